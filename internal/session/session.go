// Package session owns the dashboard's mutable state: the lead collection,
// the transient candidate list, grounding links, and the commit-cycle phase.
// All mutation funnels through Session methods so the merge and dedupe
// invariants stay checkable in isolation from any rendering layer.
package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/leadmagnet/leadmagnet-cli/internal/config"
	"github.com/leadmagnet/leadmagnet-cli/internal/finder"
	"github.com/leadmagnet/leadmagnet-cli/internal/model"
	"github.com/leadmagnet/leadmagnet-cli/internal/normalizer"
)

// Sentinel outcomes. None of these carry partial state: the caller's view
// of the session is unchanged whenever one is returned.
var (
	// ErrMissingQuery rejects a search with neither query text nor location.
	ErrMissingQuery = eris.New("session: query or location is required")
	// ErrBusy rejects a re-entrant call while the same action is in flight.
	ErrBusy = eris.New("session: action already in flight")
	// ErrExhausted signals a find-more round that produced zero new
	// candidates. Informational, not a failure.
	ErrExhausted = eris.New("session: maximum data reached for this query")
	// ErrNoCandidates rejects a commit with an empty candidate list.
	ErrNoCandidates = eris.New("session: no candidates to commit")
)

// BusinessFinder is the discovery boundary. Implemented by finder.Finder,
// replaced by a deterministic fake in tests.
type BusinessFinder interface {
	Find(ctx context.Context, q finder.Query) ([]model.MapResult, []model.GroundingLink, error)
}

// LeadCleaner is the normalization boundary. Implemented by
// normalizer.Normalizer, replaced by a deterministic fake in tests.
type LeadCleaner interface {
	Clean(ctx context.Context, raw []string) ([]model.Lead, error)
}

// CommitResult reports the outcome of a successful commit cycle.
type CommitResult struct {
	Cleaned    int `json:"cleaned"`
	Added      int `json:"added"`
	Duplicates int `json:"duplicates"`
	Total      int `json:"total"`
}

// Session is the single owner of dashboard state. Safe for concurrent use.
type Session struct {
	finder  BusinessFinder
	cleaner LeadCleaner

	progressTick time.Duration
	readyDelay   time.Duration

	mu           sync.Mutex
	leads        []model.Lead
	candidates   []model.MapResult
	links        []model.GroundingLink
	phase        model.Phase
	progress     int
	searching    bool
	fetchingMore bool

	queryText     string
	queryLocation string
	querySector   string
}

// New creates an empty session.
func New(f BusinessFinder, c LeadCleaner, cfg config.SessionConfig) *Session {
	return &Session{
		finder:       f,
		cleaner:      c,
		progressTick: time.Duration(cfg.ProgressTickMs) * time.Millisecond,
		readyDelay:   time.Duration(cfg.ReadyDelayMs) * time.Millisecond,
		phase:        model.PhaseIdle,
	}
}

// Search runs a fresh discovery call. On success the candidate list and
// grounding links are replaced; on failure prior state is untouched.
func (s *Session) Search(ctx context.Context, text, location, sectorName string) (int, error) {
	s.mu.Lock()
	if text == "" && location == "" {
		s.mu.Unlock()
		return 0, ErrMissingQuery
	}
	if s.searching {
		s.mu.Unlock()
		return 0, ErrBusy
	}
	s.searching = true
	s.queryText, s.queryLocation, s.querySector = text, location, sectorName
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.searching = false
		s.mu.Unlock()
	}()

	results, links, err := s.finder.Find(ctx, finder.Query{
		Text:     text,
		Location: location,
		Sector:   sectorName,
	})
	if err != nil {
		return 0, eris.Wrap(err, "session: search")
	}

	s.mu.Lock()
	s.candidates = results
	s.links = MergeLinks(nil, links)
	s.mu.Unlock()

	return len(results), nil
}

// FindMore runs another discovery round, asking the remote service to skip
// names already on the candidate list. Zero new results is the distinct
// "exhausted" outcome, not a failure; candidates are never pruned locally.
func (s *Session) FindMore(ctx context.Context) (int, error) {
	s.mu.Lock()
	if s.queryText == "" && s.queryLocation == "" {
		s.mu.Unlock()
		return 0, ErrMissingQuery
	}
	if s.fetchingMore {
		s.mu.Unlock()
		return 0, ErrBusy
	}
	s.fetchingMore = true
	exclude := make([]string, len(s.candidates))
	for i, c := range s.candidates {
		exclude[i] = c.Name
	}
	q := finder.Query{
		Text:         s.queryText,
		Location:     s.queryLocation,
		Sector:       s.querySector,
		ExcludeNames: exclude,
	}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.fetchingMore = false
		s.mu.Unlock()
	}()

	results, links, err := s.finder.Find(ctx, q)
	if err != nil {
		return 0, eris.Wrap(err, "session: find more")
	}
	if len(results) == 0 {
		return 0, ErrExhausted
	}

	s.mu.Lock()
	s.candidates = append(s.candidates, results...)
	s.links = MergeLinks(s.links, links)
	s.mu.Unlock()

	return len(results), nil
}

// Commit normalizes the current candidates into leads: Idle → Extracting
// (synthetic progress) → Cleaning (remote call) → Ready, reverting to Idle
// on failure with the collection untouched. Ready falls back to Idle after
// the configured display delay.
func (s *Session) Commit(ctx context.Context) (CommitResult, error) {
	s.mu.Lock()
	if len(s.candidates) == 0 {
		s.mu.Unlock()
		return CommitResult{}, ErrNoCandidates
	}
	snapshot := make([]model.MapResult, len(s.candidates))
	copy(snapshot, s.candidates)
	s.phase = model.PhaseExtracting
	s.progress = 0
	s.mu.Unlock()

	// Synthetic progress: ten equal increments over a fixed interval. Pure
	// UI feedback, the discovery call already completed before commit.
	for i := 1; i <= 10; i++ {
		select {
		case <-ctx.Done():
			s.revertToIdle()
			return CommitResult{}, eris.Wrap(ctx.Err(), "session: commit cancelled")
		case <-time.After(s.progressTick):
		}
		s.mu.Lock()
		s.progress = i * 10
		s.mu.Unlock()
	}

	s.mu.Lock()
	s.phase = model.PhaseCleaning
	s.mu.Unlock()

	raw := make([]string, len(snapshot))
	for i, c := range snapshot {
		raw[i] = normalizer.EncodeRaw(c)
	}

	cleaned, err := s.cleaner.Clean(ctx, raw)
	if err != nil {
		s.revertToIdle()
		return CommitResult{}, eris.Wrap(err, "session: clean")
	}

	s.mu.Lock()
	merged, added := MergeLeads(s.leads, cleaned)
	s.leads = merged
	s.phase = model.PhaseReady
	total := len(s.leads)
	s.mu.Unlock()

	zap.L().Info("session: commit complete",
		zap.Int("cleaned", len(cleaned)),
		zap.Int("added", added),
		zap.Int("duplicates", len(cleaned)-added),
		zap.Int("total", total),
	)

	if s.readyDelay > 0 {
		time.AfterFunc(s.readyDelay, s.readyToIdle)
	} else {
		s.readyToIdle()
	}

	return CommitResult{
		Cleaned:    len(cleaned),
		Added:      added,
		Duplicates: len(cleaned) - added,
		Total:      total,
	}, nil
}

func (s *Session) revertToIdle() {
	s.mu.Lock()
	s.phase = model.PhaseIdle
	s.progress = 0
	s.mu.Unlock()
}

// readyToIdle resets the phase only if a new cycle hasn't started since.
func (s *Session) readyToIdle() {
	s.mu.Lock()
	if s.phase == model.PhaseReady {
		s.phase = model.PhaseIdle
		s.progress = 0
	}
	s.mu.Unlock()
}

// Clear empties the lead collection and resets the phase. Destructive;
// confirmation is the caller's responsibility.
func (s *Session) Clear() {
	s.mu.Lock()
	s.leads = nil
	s.phase = model.PhaseIdle
	s.progress = 0
	s.mu.Unlock()
}

// Leads returns a copy of the collection, most recent first.
func (s *Session) Leads() []model.Lead {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Lead, len(s.leads))
	copy(out, s.leads)
	return out
}

// Candidates returns a copy of the transient candidate list.
func (s *Session) Candidates() []model.MapResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.MapResult, len(s.candidates))
	copy(out, s.candidates)
	return out
}

// Links returns a copy of the grounding links in first-appearance order.
func (s *Session) Links() []model.GroundingLink {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.GroundingLink, len(s.links))
	copy(out, s.links)
	return out
}

// Phase returns the current commit-cycle phase and synthetic progress.
func (s *Session) Phase() (model.Phase, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase, s.progress
}

// Stats summarizes the session for the dashboard.
func (s *Session) Stats() model.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.BuildStats(s.leads, len(s.candidates), len(s.links))
}

// MergeLeads prepends incoming leads whose lower-cased name is not already
// present. New leads always precede existing ones; relative order within
// each group is preserved. Returns the merged slice and how many survived.
func MergeLeads(existing, incoming []model.Lead) ([]model.Lead, int) {
	seen := make(map[string]bool, len(existing))
	for _, l := range existing {
		seen[strings.ToLower(l.Name)] = true
	}

	var fresh []model.Lead
	for _, l := range incoming {
		key := strings.ToLower(l.Name)
		if seen[key] {
			continue
		}
		seen[key] = true
		fresh = append(fresh, l)
	}

	merged := make([]model.Lead, 0, len(fresh)+len(existing))
	merged = append(merged, fresh...)
	merged = append(merged, existing...)
	return merged, len(fresh)
}

// MergeLinks appends incoming links with unseen URIs, preserving order of
// first appearance. First-seen titles win; links without a URI are dropped.
func MergeLinks(existing, incoming []model.GroundingLink) []model.GroundingLink {
	seen := make(map[string]bool, len(existing))
	for _, l := range existing {
		seen[l.URI] = true
	}

	merged := existing
	for _, l := range incoming {
		if l.URI == "" || seen[l.URI] {
			continue
		}
		seen[l.URI] = true
		merged = append(merged, l)
	}
	return merged
}
