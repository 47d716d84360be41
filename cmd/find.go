package main

import (
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/leadmagnet/leadmagnet-cli/internal/crm"
	"github.com/leadmagnet/leadmagnet-cli/internal/export"
	"github.com/leadmagnet/leadmagnet-cli/internal/sector"
	"github.com/leadmagnet/leadmagnet-cli/internal/session"
)

var (
	findQuery    string
	findLocation string
	findSector   string
	findMore     int
	findOutDir   string
	findXLSX     bool
	findPushCRM  bool
)

var findCmd = &cobra.Command{
	Use:   "find",
	Short: "Run the full funnel once: search, clean, export",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if !sector.Valid(findSector) {
			return eris.Errorf("unknown sector %q", findSector)
		}

		sess, err := newSession()
		if err != nil {
			return err
		}

		found, err := sess.Search(ctx, findQuery, findLocation, findSector)
		if err != nil {
			return eris.Wrap(err, "search")
		}
		zap.L().Info("search complete", zap.Int("found", found))

		for round := 0; round < findMore; round++ {
			more, err := sess.FindMore(ctx)
			if eris.Is(err, session.ErrExhausted) {
				zap.L().Info("maximum data reached for this query", zap.Int("round", round+1))
				break
			}
			if err != nil {
				return eris.Wrap(err, "find more")
			}
			zap.L().Info("find more complete", zap.Int("round", round+1), zap.Int("found", more))
		}

		result, err := sess.Commit(ctx)
		if err != nil {
			return eris.Wrap(err, "commit")
		}

		leads := sess.Leads()
		now := time.Now()

		data, err := export.CSV(leads)
		if err != nil {
			return eris.Wrap(err, "export csv")
		}
		csvPath := filepath.Join(findOutDir, export.Filename(now))
		if err := os.WriteFile(csvPath, data, 0o644); err != nil {
			return eris.Wrap(err, "write csv")
		}

		var xlsxPath string
		if findXLSX {
			data, err := export.XLSX(leads)
			if err != nil {
				return eris.Wrap(err, "export xlsx")
			}
			xlsxPath = filepath.Join(findOutDir, export.XLSXFilename(now))
			if err := os.WriteFile(xlsxPath, data, 0o644); err != nil {
				return eris.Wrap(err, "write xlsx")
			}
		}

		if findPushCRM {
			sfClient, err := initSalesforce()
			if err != nil {
				return err
			}
			if sfClient == nil {
				return eris.New("--push-crm requires salesforce configuration")
			}
			pushed, err := crm.Push(ctx, sfClient, leads)
			if err != nil {
				return err
			}
			zap.L().Info("salesforce push complete",
				zap.Int("inserted", pushed.Inserted),
				zap.Int("failed", pushed.Failed),
			)
		}

		p := message.NewPrinter(language.English)
		p.Printf("Captured %d leads (%d new, %d duplicates skipped), written to %s\n",
			result.Total, result.Added, result.Duplicates, csvPath)
		if xlsxPath != "" {
			p.Printf("Spreadsheet written to %s\n", xlsxPath)
		}

		return nil
	},
}

func init() {
	findCmd.Flags().StringVar(&findQuery, "query", "", "free-text search keywords")
	findCmd.Flags().StringVar(&findLocation, "location", "", "location focus, e.g. \"Bandra, Mumbai\"")
	findCmd.Flags().StringVar(&findSector, "sector", sector.Default(), "business sector filter")
	findCmd.Flags().IntVar(&findMore, "more", 0, "extra find-more rounds after the initial search")
	findCmd.Flags().StringVar(&findOutDir, "out", ".", "directory for export files")
	findCmd.Flags().BoolVar(&findXLSX, "xlsx", false, "also write an XLSX export")
	findCmd.Flags().BoolVar(&findPushCRM, "push-crm", false, "push captured leads to Salesforce")
	rootCmd.AddCommand(findCmd)
}
