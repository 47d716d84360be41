package model

// Phase is the commit-cycle progress state driving the dashboard indicator.
type Phase string

const (
	PhaseIdle       Phase = "IDLE"
	PhaseExtracting Phase = "EXTRACTING"
	PhaseCleaning   Phase = "CLEANING"
	PhaseReady      Phase = "READY"
)

// Stats summarizes the lead collection for the dashboard and analytics views.
type Stats struct {
	Total      int `json:"total"`
	Hot        int `json:"hot"`
	Warm       int `json:"warm"`
	Cold       int `json:"cold"`
	New        int `json:"new"`
	Candidates int `json:"candidates"`
	Links      int `json:"links"`
}

// BuildStats tallies leads by status.
func BuildStats(leads []Lead, candidates, links int) Stats {
	s := Stats{Total: len(leads), Candidates: candidates, Links: links}
	for _, l := range leads {
		switch l.Status {
		case StatusHot:
			s.Hot++
		case StatusWarm:
			s.Warm++
		case StatusCold:
			s.Cold++
		case StatusNew:
			s.New++
		}
	}
	return s
}
