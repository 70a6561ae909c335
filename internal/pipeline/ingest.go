// Package pipeline orchestrates the two on-demand operations of the
// procurement core: ingesting vendor replies from the mailbox and
// analyzing a request's proposals into a recommendation.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/mdidris/rfpd/internal/model"
	"github.com/mdidris/rfpd/internal/store"
	"github.com/mdidris/rfpd/internal/token"
)

// Poller yields one batch of inbound messages per call.
type Poller interface {
	Poll(ctx context.Context) ([]model.InboundMessage, error)
}

// VendorLookup resolves a sender address to a vendor.
type VendorLookup interface {
	ByEmail(ctx context.Context, email string) (*model.Vendor, error)
}

// Extractor turns raw reply text into structured proposal terms.
type Extractor interface {
	ExtractProposal(ctx context.Context, rawText string) (model.ProposalTerms, error)
}

// ProposalStore is the persistence surface the ingest guard needs.
// *store.Store satisfies it.
type ProposalStore interface {
	RequestExists(ctx context.Context, id model.RequestID) (bool, error)
	HasProposal(ctx context.Context, requestID model.RequestID, vendorID model.VendorID) (bool, error)
	InsertProposal(ctx context.Context, p *model.Proposal) error
}

// SkipReason classifies why a message was not ingested.
type SkipReason string

const (
	ReasonUnmatchedRequest    SkipReason = "unmatched_request"
	ReasonUnknownVendor       SkipReason = "unknown_vendor"
	ReasonDuplicate           SkipReason = "duplicate"
	ReasonMalformedExtraction SkipReason = "malformed_extraction"
	ReasonStoreFailed         SkipReason = "store_failed"
)

// ItemOutcome records the fate of one inbound message. Rejection is a
// normal per-item outcome, not an error; the batch continues.
type ItemOutcome struct {
	UID       uint32          `json:"uid"`
	From      string          `json:"from"`
	RequestID model.RequestID `json:"requestId,omitempty"`
	Accepted  bool            `json:"accepted"`
	Reason    SkipReason      `json:"reason,omitempty"`
	Err       error           `json:"-"`
}

// IngestSummary aggregates one poll cycle.
type IngestSummary struct {
	Processed int           `json:"processed"`
	Accepted  int           `json:"accepted"`
	Skipped   int           `json:"skipped"`
	Items     []ItemOutcome `json:"items"`
}

// CountByReason returns how many items were skipped for the given
// reason.
func (s *IngestSummary) CountByReason(reason SkipReason) int {
	n := 0
	for _, item := range s.Items {
		if !item.Accepted && item.Reason == reason {
			n++
		}
	}
	return n
}

// Ingestor runs one poll cycle: poll the mailbox, correlate each
// message to a (request, vendor) pair, reject duplicates, extract
// structured terms and persist the survivors.
type Ingestor struct {
	poller    Poller
	vendors   VendorLookup
	extractor Extractor
	store     ProposalStore
}

// NewIngestor creates an ingestor.
func NewIngestor(poller Poller, vendors VendorLookup, extractor Extractor, st ProposalStore) *Ingestor {
	return &Ingestor{
		poller:    poller,
		vendors:   vendors,
		extractor: extractor,
		store:     st,
	}
}

// Run executes one poll cycle. A mailbox failure aborts the whole run
// with nothing persisted; every per-message condition is recorded as
// an item outcome and the batch continues. Messages are processed
// sequentially so two replies in one batch cannot race on the same
// (request, vendor) pair - and even if a concurrent cycle slips one
// through, the store's unique key ends the race.
func (in *Ingestor) Run(ctx context.Context) (*IngestSummary, error) {
	messages, err := in.poller.Poll(ctx)
	if err != nil {
		return nil, fmt.Errorf("poll mailbox: %w", err)
	}

	summary := &IngestSummary{}
	for _, msg := range messages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		outcome := in.process(ctx, msg)
		summary.Processed++
		if outcome.Accepted {
			summary.Accepted++
		} else {
			summary.Skipped++
		}
		summary.Items = append(summary.Items, outcome)
	}
	return summary, nil
}

func (in *Ingestor) process(ctx context.Context, msg model.InboundMessage) ItemOutcome {
	outcome := ItemOutcome{UID: msg.UID, From: msg.From}

	requestID, ok := token.Decode(msg.Subject)
	if !ok {
		outcome.Reason = ReasonUnmatchedRequest
		return outcome
	}
	outcome.RequestID = requestID

	exists, err := in.store.RequestExists(ctx, requestID)
	if err != nil {
		outcome.Reason = ReasonStoreFailed
		outcome.Err = err
		return outcome
	}
	if !exists {
		outcome.Reason = ReasonUnmatchedRequest
		return outcome
	}

	vendor, err := in.vendors.ByEmail(ctx, msg.From)
	if errors.Is(err, store.ErrNotFound) {
		outcome.Reason = ReasonUnknownVendor
		return outcome
	}
	if err != nil {
		outcome.Reason = ReasonStoreFailed
		outcome.Err = err
		return outcome
	}

	// Pre-check for an existing proposal so duplicates are rejected
	// before spending an extraction call. The unique key below remains
	// the authority.
	dup, err := in.store.HasProposal(ctx, requestID, vendor.ID)
	if err != nil {
		outcome.Reason = ReasonStoreFailed
		outcome.Err = err
		return outcome
	}
	if dup {
		outcome.Reason = ReasonDuplicate
		return outcome
	}

	terms, err := in.extractor.ExtractProposal(ctx, msg.Text)
	if err != nil {
		outcome.Reason = ReasonMalformedExtraction
		outcome.Err = err
		return outcome
	}

	proposal := &model.Proposal{
		RequestID: requestID,
		VendorID:  vendor.ID,
		RawText:   msg.Text,
		Terms:     terms,
	}
	if err := in.store.InsertProposal(ctx, proposal); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			outcome.Reason = ReasonDuplicate
			return outcome
		}
		outcome.Reason = ReasonStoreFailed
		outcome.Err = err
		return outcome
	}

	outcome.Accepted = true
	return outcome
}
