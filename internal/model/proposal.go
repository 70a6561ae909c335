package model

import "time"

// ProposalTerms holds the structured fields extracted from a vendor's
// free-text reply.
type ProposalTerms struct {
	Cost         float64 `json:"cost"`
	DeliveryTime string  `json:"deliveryTime"`
	Warranty     string  `json:"warranty"`
	Summary      string  `json:"summary"`
}

// Proposal is one vendor's structured response to a request. At most
// one proposal exists per (request, vendor) pair; the store enforces
// this with a composite unique key. Proposals are never mutated after
// insertion.
type Proposal struct {
	ID        int64         `json:"id"`
	RequestID RequestID     `json:"requestId"`
	VendorID  VendorID      `json:"vendorId"`
	RawText   string        `json:"rawText"`
	Terms     ProposalTerms `json:"terms"`
	CreatedAt time.Time     `json:"createdAt"`
}

// Ranking is one row of the comparison output: how a single vendor
// scored against the request.
type Ranking struct {
	VendorName   string  `json:"vendorName"`
	Score        float64 `json:"score"` // 1-10, display only
	Cost         float64 `json:"cost"`
	DeliveryTime string  `json:"deliveryTime"`
	Note         string  `json:"note"`
}

// Analysis is the recommendation artifact attached to a request after
// comparing its proposals. It is a recomputable cache - re-analysis
// overwrites it wholesale, last write wins. RecommendedVendorID is
// authoritative; it is never rederived from ranking scores.
type Analysis struct {
	RecommendedVendorID VendorID  `json:"recommendedVendorId"`
	Reasoning           string    `json:"reasoning"`
	Rankings            []Ranking `json:"rankings"`
}
