// Package crm pushes captured leads straight into Salesforce as Lead
// sObjects, as an alternative to the CSV hand-off.
package crm

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/leadmagnet/leadmagnet-cli/internal/export"
	"github.com/leadmagnet/leadmagnet-cli/internal/model"
	"github.com/leadmagnet/leadmagnet-cli/pkg/salesforce"
)

// PushResult reports how many records landed.
type PushResult struct {
	Inserted int      `json:"inserted"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors,omitempty"`
}

// BuildLeadRecords maps leads onto Salesforce Lead sObject field maps,
// reusing the export contract's name split and placeholder rules.
func BuildLeadRecords(leads []model.Lead) []map[string]any {
	records := make([]map[string]any, len(leads))
	for i, l := range leads {
		first, last := export.SplitName(l.Name)
		rec := map[string]any{
			"FirstName":  first,
			"LastName":   last,
			"Company":    l.Name,
			"LeadSource": "LeadMagnet",
			"Rating":     string(l.Status),
		}
		setIfPresent(rec, "Phone", l.Phone)
		setIfPresent(rec, "Email", l.Email)
		setIfPresent(rec, "Website", l.Website)
		setIfPresent(rec, "Street", firstNonEmpty(l.Street, l.Address))
		setIfPresent(rec, "City", l.City)
		setIfPresent(rec, "State", l.State)
		setIfPresent(rec, "Country", l.Country)
		setIfPresent(rec, "PostalCode", l.ZipCode)
		setIfPresent(rec, "Description", l.Category)
		records[i] = rec
	}
	return records
}

// Push inserts the leads as Salesforce Lead records. Partial failures are
// reported per record, not treated as a hard error.
func Push(ctx context.Context, client salesforce.Client, leads []model.Lead) (PushResult, error) {
	if len(leads) == 0 {
		return PushResult{}, eris.New("crm: no leads to push")
	}

	results, err := client.InsertCollection(ctx, "Lead", BuildLeadRecords(leads))
	if err != nil {
		return PushResult{}, eris.Wrap(err, "crm: insert leads")
	}

	var out PushResult
	for _, r := range results {
		if r.Success {
			out.Inserted++
			continue
		}
		out.Failed++
		out.Errors = append(out.Errors, r.Errors...)
	}

	zap.L().Info("crm: push complete",
		zap.Int("inserted", out.Inserted),
		zap.Int("failed", out.Failed),
	)

	return out, nil
}

func setIfPresent(rec map[string]any, field, val string) {
	if val == "" || val == "n/a" {
		return
	}
	rec[field] = val
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
