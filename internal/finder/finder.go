// Package finder asks the AI web-search boundary for candidate businesses
// matching a sector/location/query and surfaces the web sources it consulted.
package finder

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/leadmagnet/leadmagnet-cli/internal/config"
	"github.com/leadmagnet/leadmagnet-cli/internal/model"
	"github.com/leadmagnet/leadmagnet-cli/internal/sector"
	"github.com/leadmagnet/leadmagnet-cli/pkg/anthropic"
)

// Query describes one finder request.
type Query struct {
	Text         string
	Location     string
	Sector       string
	ExcludeNames []string
}

// Finder performs AI-backed business discovery.
type Finder struct {
	client        anthropic.Client
	model         string
	targetResults int
	maxSearchUses int64
	maxTokens     int64
	limiter       *rate.Limiter
}

// New creates a Finder over the given Anthropic client.
func New(client anthropic.Client, model string, cfg config.FinderConfig) *Finder {
	f := &Finder{
		client:        client,
		model:         model,
		targetResults: cfg.TargetResults,
		maxSearchUses: int64(cfg.MaxSearchUses),
		maxTokens:     int64(cfg.MaxTokens),
	}
	if f.targetResults <= 0 {
		f.targetResults = 25
	}
	if f.maxTokens <= 0 {
		f.maxTokens = 8192
	}
	if cfg.RequestsPerMinute > 0 {
		f.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerMinute/60), 1)
	}
	return f
}

// wire mirrors the JSON shape requested from the model.
type wireBusiness struct {
	Name        string  `json:"name"`
	Rating      float64 `json:"rating"`
	Type        string  `json:"type"`
	Address     string  `json:"address"`
	Phone       string  `json:"phone"`
	Website     string  `json:"website"`
	Email       string  `json:"email"`
	ReviewCount int     `json:"reviewCount"`
	SourceURL   string  `json:"sourceUrl"`
}

type wireResponse struct {
	Businesses []wireBusiness `json:"businesses"`
}

// Find runs one discovery call. A successful call that yields zero
// businesses returns an empty slice and a nil error; the caller decides
// whether that means "exhausted".
func (f *Finder) Find(ctx context.Context, q Query) ([]model.MapResult, []model.GroundingLink, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, nil, eris.Wrap(err, "finder: rate limit")
		}
	}

	resp, err := f.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     f.model,
		MaxTokens: f.maxTokens,
		System:    systemPrompt,
		Messages: []anthropic.Message{
			{Role: "user", Content: f.buildPrompt(q)},
		},
		WebSearch: &anthropic.WebSearchTool{MaxUses: f.maxSearchUses},
	})
	if err != nil {
		return nil, nil, eris.Wrap(err, "finder: search call")
	}
	resp.Usage.LogCost(f.model, "find")

	var parsed wireResponse
	cleaned := cleanJSON(resp.Text())
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return nil, nil, eris.Wrap(err, "finder: parse response")
	}

	results := make([]model.MapResult, 0, len(parsed.Businesses))
	for _, b := range parsed.Businesses {
		if strings.TrimSpace(b.Name) == "" {
			zap.L().Warn("finder: dropping unnamed business result")
			continue
		}
		results = append(results, model.MapResult{
			Name:        b.Name,
			Rating:      b.Rating,
			Type:        b.Type,
			Address:     b.Address,
			Phone:       b.Phone,
			Website:     b.Website,
			Email:       b.Email,
			ReviewCount: b.ReviewCount,
			SourceURL:   b.SourceURL,
		})
	}

	links := make([]model.GroundingLink, 0, len(resp.Citations))
	for _, c := range resp.Citations {
		links = append(links, model.GroundingLink{URI: c.URL, Title: c.Title})
	}

	zap.L().Info("finder: search complete",
		zap.Int("results", len(results)),
		zap.Int("grounding_links", len(links)),
		zap.Int("excluded", len(q.ExcludeNames)),
	)

	return results, links, nil
}

const systemPrompt = "You are a lead research assistant. You find real, " +
	"verified businesses using web search and respond with a single JSON " +
	"object only — no prose, no markdown fences around your final answer."

// buildPrompt mirrors the dashboard's discovery prompt: sector and location
// clauses appear only when set, exclusions only when there are prior names.
func (f *Finder) buildPrompt(q Query) string {
	var b strings.Builder

	sectorContext := ""
	if q.Sector != "" && q.Sector != sector.AllSectors {
		sectorContext = fmt.Sprintf("in the %s sector ", q.Sector)
	}
	locationContext := ""
	if q.Location != "" {
		locationContext = fmt.Sprintf("located in or around %s", q.Location)
	}

	fmt.Fprintf(&b, "Find an exhaustive list of real, verified businesses %s%s.\n", sectorContext, locationContext)
	fmt.Fprintf(&b, "Your specific search query is: %q.\n", q.Text)
	fmt.Fprintf(&b, "I want ALL available data you can find, specifically contact details. "+
		"Please return at least %d-%d unique results per batch if possible.\n", f.targetResults, f.targetResults+5)

	if len(q.ExcludeNames) > 0 {
		fmt.Fprintf(&b, "IMPORTANT: I already have these businesses, do NOT repeat them: %s.\n",
			strings.Join(q.ExcludeNames, ", "))
	}

	b.WriteString(`
Provide accurate, genuine details for each:
- Name
- Rating (e.g. 4.5)
- Business Category (e.g. Dental Clinic)
- Full Address
- Phone Number (international format)
- Website URL (find the official website if available)
- Email Address (publicly listed emails on their website or social profiles)
- Review Count
- A source URL for verification

Respond with a JSON object of this exact shape:
{"businesses": [{"name": string, "rating": number, "type": string, "address": string, "phone": string, "website": string, "email": string, "reviewCount": number, "sourceUrl": string}]}

"name", "type" and "address" are required for every entry; omit or leave the
other fields empty when you cannot verify them. If nothing new matches,
return {"businesses": []}.`)

	return b.String()
}

// cleanJSON strips markdown code fences and surrounding prose, leaving the
// outermost JSON object.
func cleanJSON(text string) string {
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

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}
