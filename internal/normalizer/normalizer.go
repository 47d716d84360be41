// Package normalizer sends raw candidate listings to the AI boundary and
// turns the reply into structured Lead records ready for the CRM contract.
package normalizer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leadmagnet/leadmagnet-cli/internal/config"
	"github.com/leadmagnet/leadmagnet-cli/internal/model"
	"github.com/leadmagnet/leadmagnet-cli/pkg/anthropic"
)

// Normalizer performs AI-backed lead cleaning.
type Normalizer struct {
	client    anthropic.Client
	model     string
	chunkSize int
	maxTokens int64
}

// New creates a Normalizer over the given Anthropic client.
func New(client anthropic.Client, model string, cfg config.NormalizerConfig) *Normalizer {
	n := &Normalizer{
		client:    client,
		model:     model,
		chunkSize: cfg.ChunkSize,
		maxTokens: int64(cfg.MaxTokens),
	}
	if n.chunkSize <= 0 {
		n.chunkSize = 20
	}
	if n.maxTokens <= 0 {
		n.maxTokens = 8192
	}
	return n
}

// EncodeRaw renders a candidate as the pipe-delimited line the cleaning
// prompt expects. Missing phone/email/website become "N/A".
func EncodeRaw(r model.MapResult) string {
	return fmt.Sprintf("Name: %s | Phone: %s | Email: %s | Website: %s | Address: %s | Category: %s | Rating: %g stars",
		r.Name, orNA(r.Phone), orNA(r.Email), orNA(r.Website), r.Address, r.Type, r.Rating)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// wireLead mirrors the JSON shape requested from the model.
type wireLead struct {
	Name        string  `json:"name"`
	Phone       string  `json:"phone"`
	Email       string  `json:"email"`
	Website     string  `json:"website"`
	Street      string  `json:"street"`
	City        string  `json:"city"`
	State       string  `json:"state"`
	Country     string  `json:"country"`
	ZipCode     string  `json:"zipCode"`
	Category    string  `json:"category"`
	Rating      float64 `json:"rating"`
	ReviewCount int     `json:"reviewCount"`
	LeadStatus  string  `json:"leadStatus"`
	Source      string  `json:"source"`
}

// Clean structures a batch of raw listings into Leads. Inputs are split
// into chunks cleaned concurrently; any chunk failure fails the whole call
// so the caller can treat the batch as atomic. Each returned lead carries
// a freshly minted identifier; IDs are never assigned earlier.
func (n *Normalizer) Clean(ctx context.Context, raw []string) ([]model.Lead, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	chunks := chunk(raw, n.chunkSize)
	results := make([][]model.Lead, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	for i, c := range chunks {
		g.Go(func() error {
			leads, err := n.cleanChunk(gctx, c)
			if err != nil {
				return err
			}
			results[i] = leads
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var leads []model.Lead
	for _, r := range results {
		leads = append(leads, r...)
	}

	zap.L().Info("normalizer: cleaning complete",
		zap.Int("raw_inputs", len(raw)),
		zap.Int("leads", len(leads)),
	)

	return leads, nil
}

func (n *Normalizer) cleanChunk(ctx context.Context, raw []string) ([]model.Lead, error) {
	resp, err := n.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     n.model,
		MaxTokens: n.maxTokens,
		System:    systemPrompt,
		Messages: []anthropic.Message{
			{Role: "user", Content: buildPrompt(raw)},
		},
	})
	if err != nil {
		return nil, eris.Wrap(err, "normalizer: clean call")
	}
	resp.Usage.LogCost(n.model, "clean")

	cleaned := cleanJSONArray(resp.Text())
	var parsed []wireLead
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return nil, eris.Wrap(err, "normalizer: parse response")
	}

	leads := make([]model.Lead, 0, len(parsed))
	for _, w := range parsed {
		leads = append(leads, fromWire(w))
	}
	return leads, nil
}

// fromWire applies the fallback rules: email/website default to "n/a",
// address decomposition fields default to empty, the composite address
// falls back to the street or, failing that, the name.
func fromWire(w wireLead) model.Lead {
	email := w.Email
	if email == "" {
		email = "n/a"
	}
	website := w.Website
	if website == "" {
		website = "n/a"
	}
	address := w.Street
	if address == "" {
		address = w.Name
	}

	return model.Lead{
		ID:          "lead-" + uuid.NewString(),
		Name:        w.Name,
		Phone:       w.Phone,
		Email:       email,
		Website:     website,
		Address:     address,
		Street:      w.Street,
		City:        w.City,
		State:       w.State,
		Country:     w.Country,
		ZipCode:     w.ZipCode,
		Category:    w.Category,
		Rating:      w.Rating,
		ReviewCount: w.ReviewCount,
		Source:      w.Source,
		Status:      coerceStatus(w.LeadStatus),
	}
}

var statusCaser = cases.Title(language.English)

// coerceStatus maps the model's label onto the enum; anything
// unrecognized becomes New so the status invariant holds.
func coerceStatus(s string) model.LeadStatus {
	status := model.LeadStatus(statusCaser.String(strings.ToLower(strings.TrimSpace(s))))
	if model.ValidStatus(status) {
		return status
	}
	return model.StatusNew
}

const systemPrompt = "You are a CRM data cleaning assistant. You respond " +
	"with a single JSON array only — no prose, no markdown fences."

func buildPrompt(raw []string) string {
	var b strings.Builder
	b.WriteString(`Clean and structure the following raw business data.
- Standardize phone numbers to international format.
- Extract and split the address into: street, city, state, country, and zipCode.
- If the zip code is missing, try to find it or leave it empty.
- Assign leadStatus based on rating: above 4.2 is "Hot"; use your judgment
  for "Warm", "Cold" and "New" below that.

Respond with a JSON array, one object per input line, of this exact shape:
[{"name": string, "phone": string, "email": string, "website": string, "street": string, "city": string, "state": string, "country": string, "zipCode": string, "category": string, "rating": number, "reviewCount": number, "leadStatus": string, "source": string}]

"name", "phone", "category", "city" and "leadStatus" are required for every
object; leave the other fields empty when unrecoverable.

RAW DATA:
`)
	b.WriteString(strings.Join(raw, "\n"))
	return b.String()
}

// chunk splits items into slices of at most size elements.
func chunk(items []string, size int) [][]string {
	var out [][]string
	for len(items) > size {
		out = append(out, items[:size])
		items = items[size:]
	}
	return append(out, items)
}

// cleanJSONArray strips markdown code fences and surrounding prose, leaving
// the outermost JSON array.
func cleanJSONArray(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}
