package session

import (
	"context"

	"github.com/leadmagnet/leadmagnet-cli/internal/finder"
	"github.com/leadmagnet/leadmagnet-cli/internal/model"
)

// mockFinder implements BusinessFinder for testing. When started/release
// are set, Find signals started and then blocks until release is closed,
// which lets tests observe the in-flight state.
type mockFinder struct {
	results []model.MapResult
	links   []model.GroundingLink
	err     error

	calls     int
	lastQuery finder.Query
	started   chan struct{}
	release   chan struct{}
}

func (m *mockFinder) Find(_ context.Context, q finder.Query) ([]model.MapResult, []model.GroundingLink, error) {
	m.calls++
	m.lastQuery = q
	if m.started != nil {
		m.started <- struct{}{}
	}
	if m.release != nil {
		<-m.release
	}
	return m.results, m.links, m.err
}

// mockCleaner implements LeadCleaner for testing.
type mockCleaner struct {
	leads   []model.Lead
	err     error
	lastRaw []string
}

func (m *mockCleaner) Clean(_ context.Context, raw []string) ([]model.Lead, error) {
	m.lastRaw = raw
	return m.leads, m.err
}
