package model

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// RequestID is the canonical identifier of a procurement request:
// 24 lowercase hexadecimal characters. The shape is load-bearing -
// the reference token embedded in email subjects is matched against
// exactly this form.
type RequestID string

// requestIDBytes is the number of random bytes behind a RequestID
// (hex-encoded to 24 characters).
const requestIDBytes = 12

// NewRequestID generates a fresh random identifier.
func NewRequestID() RequestID {
	buf := make([]byte, requestIDBytes)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms
		panic("model: read random: " + err.Error())
	}
	return RequestID(hex.EncodeToString(buf))
}

// IsValid reports whether the identifier has the canonical 24-hex shape.
func (id RequestID) IsValid() bool {
	if len(id) != 2*requestIDBytes {
		return false
	}
	for _, r := range id {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}

func (id RequestID) String() string {
	return string(id)
}

// Status is the lifecycle state of a request. Transitions only move
// forward: Draft -> Sent -> Closed.
type Status string

const (
	StatusDraft  Status = "Draft"
	StatusSent   Status = "Sent"
	StatusClosed Status = "Closed"
)

// rank orders statuses for the forward-only transition check.
func (s Status) rank() int {
	switch s {
	case StatusDraft:
		return 0
	case StatusSent:
		return 1
	case StatusClosed:
		return 2
	default:
		return -1
	}
}

// IsValid reports whether the status is one of the known states.
func (s Status) IsValid() bool {
	return s.rank() >= 0
}

// CanAdvanceTo reports whether the transition s -> next is allowed.
// Staying in the same state is allowed; moving backward is not.
func (s Status) CanAdvanceTo(next Status) bool {
	if !s.IsValid() || !next.IsValid() {
		return false
	}
	return next.rank() >= s.rank()
}

// LineItem is one structured item inside a request's terms.
type LineItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Specs    string `json:"specs,omitempty"`
}

// RequestTerms is the structured interpretation of the buyer's
// free-text ask, produced at intake.
type RequestTerms struct {
	Title    string     `json:"title"`
	Budget   float64    `json:"budget"`
	Currency string     `json:"currency"`
	Deadline string     `json:"deadline"`
	Items    []LineItem `json:"items,omitempty"`
}

// Request is a buyer's procurement need tracked through its lifecycle.
type Request struct {
	ID          RequestID    `json:"id"`
	UserRequest string       `json:"userRequest"` // original free-text ask
	Terms       RequestTerms `json:"terms"`
	Status      Status       `json:"status"`
	VendorIDs   []VendorID   `json:"vendorIds,omitempty"` // invited vendors

	// Analysis is the last recommendation artifact, nil until the
	// request has been analyzed. AnalyzedCount is the number of
	// proposals that artifact reflects; comparing it against the
	// current proposal count tells a caller whether the artifact
	// is stale.
	Analysis      *Analysis `json:"analysis,omitempty"`
	AnalyzedCount int       `json:"analyzedProposalCount"`

	CreatedAt time.Time `json:"createdAt"`
}
