package facade

// CountItem is one aggregated (label, count) pair from openFDA
type CountItem struct {
	Term  string `json:"term"`
	Count int    `json:"count"`
}

// Paper is one PubMed document summary
type Paper struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Source  string   `json:"source,omitempty"`
	PubDate string   `json:"pub_date,omitempty"`
	Authors []string `json:"authors,omitempty"`
}

// ExternalResult is the normalized upstream response.
// Count results fill Counts; narrative results fill Narrative and Papers.
type ExternalResult struct {
	Query     string      `json:"query"`
	Counts    []CountItem `json:"counts,omitempty"`
	Narrative string      `json:"narrative,omitempty"`
	Papers    []Paper     `json:"papers,omitempty"`
	// Total is the upstream match count, which may exceed len(Papers)
	Total int `json:"total,omitempty"`
}
