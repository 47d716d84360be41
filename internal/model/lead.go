package model

// LeadStatus grades how promising a lead is.
type LeadStatus string

const (
	StatusHot  LeadStatus = "Hot"
	StatusWarm LeadStatus = "Warm"
	StatusCold LeadStatus = "Cold"
	StatusNew  LeadStatus = "New"
)

// ValidStatus reports whether s is one of the four enumerated statuses.
func ValidStatus(s LeadStatus) bool {
	switch s {
	case StatusHot, StatusWarm, StatusCold, StatusNew:
		return true
	}
	return false
}

// Lead is a normalized business contact record ready for CRM import.
// Leads are created only by the normalizer and treated as immutable once
// merged into the collection.
type Lead struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Phone       string     `json:"phone"`
	Email       string     `json:"email"`
	Website     string     `json:"website"`
	Address     string     `json:"address"`
	Street      string     `json:"street"`
	City        string     `json:"city"`
	State       string     `json:"state"`
	Country     string     `json:"country"`
	ZipCode     string     `json:"zip_code"`
	Category    string     `json:"category"`
	Rating      float64    `json:"rating"`
	ReviewCount int        `json:"review_count"`
	Source      string     `json:"source"`
	Status      LeadStatus `json:"lead_status"`
}

// MapResult is an unnormalized candidate business returned by the finder.
// Candidates live in a transient list and only become Leads through commit.
type MapResult struct {
	Name        string  `json:"name"`
	Rating      float64 `json:"rating"`
	Type        string  `json:"type"`
	Address     string  `json:"address"`
	Phone       string  `json:"phone"`
	Website     string  `json:"website"`
	Email       string  `json:"email"`
	ReviewCount int     `json:"review_count"`
	SourceURL   string  `json:"source_url"`
}

// GroundingLink is a provenance URI/title pair surfaced by the finder's
// web search. Deduplicated by URI, first-seen title wins.
type GroundingLink struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}
