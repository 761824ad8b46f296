package facade

import "strings"

// Intent selects the request template used for a query
type Intent string

const (
	IntentDrugsByCondition  Intent = "drugs_by_condition"
	IntentSideEffectsByDrug Intent = "side_effects_by_drug"
	IntentLiteratureByTerm  Intent = "literature_by_term"
)

// Result limit shared by every intent
const resultLimit = 10

// NormalizedRequest is the upstream-facing form of a query. It is built once and passed by value.
type NormalizedRequest struct {
	Intent     Intent
	Term       string
	Endpoint   string
	Search     string
	CountField string
	Limit      int
}

// IsCount reports whether the request aggregates counts rather than fetching documents
func (r NormalizedRequest) IsCount() bool {
	return r.CountField != ""
}

// BuildRequest maps term and intent onto the fixed upstream templates.
// Unknown intents yield a request with an empty Endpoint.
func BuildRequest(term string, intent Intent) NormalizedRequest {
	req := NormalizedRequest{Intent: intent, Term: term, Limit: resultLimit}

	switch intent {
	case IntentDrugsByCondition:
		req.Endpoint = "event.json"
		req.Search = "patient.drug.drugindication:" + openFDATerm(term)
		req.CountField = "patient.drug.medicinalproduct.exact"
	case IntentSideEffectsByDrug:
		req.Endpoint = "event.json"
		req.Search = "patient.drug.medicinalproduct:" + openFDATerm(term)
		req.CountField = "patient.reaction.reactionmeddrapt.exact"
	case IntentLiteratureByTerm:
		req.Endpoint = "esearch.fcgi"
		req.Search = term
	}

	return req
}

// openFDATerm quotes multi-word terms so openFDA matches them as a phrase
func openFDATerm(term string) string {
	term = strings.TrimSpace(strings.ReplaceAll(term, `"`, ""))
	if strings.ContainsAny(term, " \t") {
		return `"` + term + `"`
	}
	return term
}
