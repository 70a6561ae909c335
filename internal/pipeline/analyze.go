package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/mdidris/rfpd/internal/llm"
	"github.com/mdidris/rfpd/internal/model"
	"github.com/mdidris/rfpd/internal/store"
)

// ErrNoProposals is returned when analysis is requested for a request
// with no stored proposals. The comparison capability is never called
// with an empty set.
var ErrNoProposals = errors.New("no proposals to analyze")

// Comparer is the external comparison capability.
type Comparer interface {
	CompareProposals(ctx context.Context, req *model.Request, entries []llm.CompareEntry) (*model.Analysis, error)
}

// AnalysisStore is the persistence surface the analyzer needs.
// *store.Store satisfies it.
type AnalysisStore interface {
	GetRequest(ctx context.Context, id model.RequestID) (*model.Request, error)
	ProposalsByRequest(ctx context.Context, requestID model.RequestID) ([]store.ProposalRecord, error)
	SaveAnalysis(ctx context.Context, id model.RequestID, analysis *model.Analysis, count int) error
}

// Analyzer produces the recommendation artifact for a request.
type Analyzer struct {
	store    AnalysisStore
	comparer Comparer
}

// NewAnalyzer creates an analyzer.
func NewAnalyzer(st AnalysisStore, comparer Comparer) *Analyzer {
	return &Analyzer{store: st, comparer: comparer}
}

// Analyze compares the request's current proposal set and persists the
// resulting artifact along with the number of proposals it reflects.
// A comparison failure or malformed response leaves any prior artifact
// untouched. Concurrent runs for the same request resolve last-write-
// wins; the artifact is a recomputable cache, not a ledger.
func (a *Analyzer) Analyze(ctx context.Context, requestID model.RequestID) (*model.Analysis, int, error) {
	req, err := a.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, 0, err
	}

	records, err := a.store.ProposalsByRequest(ctx, requestID)
	if err != nil {
		return nil, 0, fmt.Errorf("load proposals: %w", err)
	}

	entries := dedupeByVendor(records)
	if len(entries) == 0 {
		return nil, 0, ErrNoProposals
	}

	analysis, err := a.comparer.CompareProposals(ctx, req, entries)
	if err != nil {
		return nil, 0, fmt.Errorf("analysis failed: %w", err)
	}

	if err := a.store.SaveAnalysis(ctx, requestID, analysis, len(entries)); err != nil {
		return nil, 0, fmt.Errorf("save analysis: %w", err)
	}
	return analysis, len(entries), nil
}

// dedupeByVendor reduces the proposal set to at most one entry per
// vendor. The store's unique key should make duplicates impossible;
// this is the defensive second pass at analysis time, keeping the most
// recently stored proposal per vendor while preserving first-seen
// vendor order.
func dedupeByVendor(records []store.ProposalRecord) []llm.CompareEntry {
	latest := make(map[model.VendorID]store.ProposalRecord)
	var order []model.VendorID

	for _, rec := range records {
		id := rec.Proposal.VendorID
		if _, seen := latest[id]; !seen {
			order = append(order, id)
		}
		// Records arrive in insertion order; the last one per vendor
		// is the most recently stored.
		latest[id] = rec
	}

	entries := make([]llm.CompareEntry, 0, len(order))
	for _, id := range order {
		rec := latest[id]
		entries = append(entries, llm.CompareEntry{
			VendorID:   rec.Vendor.ID,
			VendorName: rec.Vendor.Name,
			Terms:      rec.Proposal.Terms,
		})
	}
	return entries
}
