package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/mdidris/rfpd/internal/directory"
	"github.com/mdidris/rfpd/internal/model"
	"github.com/mdidris/rfpd/internal/store"
)

type fakePoller struct {
	messages []model.InboundMessage
	err      error
}

func (p *fakePoller) Poll(context.Context) ([]model.InboundMessage, error) {
	return p.messages, p.err
}

type fakeExtractor struct {
	calls int
	fail  bool
}

func (e *fakeExtractor) ExtractProposal(_ context.Context, rawText string) (model.ProposalTerms, error) {
	e.calls++
	if e.fail {
		return model.ProposalTerms{}, fmt.Errorf("extract proposal: response missing expected fields")
	}
	return model.ProposalTerms{
		Cost:         24000,
		DeliveryTime: "7 days",
		Warranty:     "1 year",
		Summary:      "structured from: " + rawText,
	}, nil
}

func newIngestHarness(t *testing.T) (*store.Store, *directory.Directory) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "rfpd.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, directory.New(s, time.Minute)
}

func seedIngestRequest(t *testing.T, s *store.Store, id model.RequestID) {
	t.Helper()
	req := &model.Request{
		ID:          id,
		UserRequest: "Need 50 laptops",
		Terms:       model.RequestTerms{Title: "Laptops", Budget: 60000, Currency: "USD", Deadline: "3 weeks"},
		Status:      model.StatusSent,
	}
	if err := s.CreateRequest(context.Background(), req); err != nil {
		t.Fatalf("seed request: %v", err)
	}
}

func seedIngestVendor(t *testing.T, s *store.Store, name, email string) *model.Vendor {
	t.Helper()
	v := &model.Vendor{Name: name, Email: email}
	if err := s.CreateVendor(context.Background(), v); err != nil {
		t.Fatalf("seed vendor: %v", err)
	}
	return v
}

func TestRun_EndToEnd_RepollStoresNothingNew(t *testing.T) {
	s, dir := newIngestHarness(t)
	ctx := context.Background()

	const reqID = model.RequestID("a1b2c3d4e5f6a1b2c3d4e5f6")
	seedIngestRequest(t, s, reqID)
	vendor := seedIngestVendor(t, s, "Tech Corp", "sales@techcorp.example")

	poller := &fakePoller{messages: []model.InboundMessage{{
		UID:     101,
		From:    "sales@techcorp.example",
		Subject: "Re: RFP Invitation - Ref:a1b2c3d4e5f6a1b2c3d4e5f6",
		Text:    "We can supply for $24,000, delivery in 7 days, 1 year warranty.",
	}}}
	extractor := &fakeExtractor{}
	ingestor := NewIngestor(poller, dir, extractor, s)

	// First poll: one proposal stored.
	summary, err := ingestor.Run(ctx)
	if err != nil {
		t.Fatalf("first Run failed: %v", err)
	}
	if summary.Accepted != 1 || summary.Skipped != 0 {
		t.Fatalf("first run: accepted %d skipped %d, want 1/0", summary.Accepted, summary.Skipped)
	}

	records, err := s.ProposalsByRequest(ctx, reqID)
	if err != nil {
		t.Fatalf("ProposalsByRequest: %v", err)
	}
	if len(records) != 1 || records[0].Vendor.ID != vendor.ID {
		t.Fatalf("expected one proposal for the vendor, got %+v", records)
	}

	// Identical second poll: zero new proposals, one duplicate counted.
	summary, err = ingestor.Run(ctx)
	if err != nil {
		t.Fatalf("second Run failed: %v", err)
	}
	if summary.Accepted != 0 {
		t.Errorf("second run accepted %d, want 0", summary.Accepted)
	}
	if summary.CountByReason(ReasonDuplicate) != 1 {
		t.Errorf("duplicates = %d, want 1", summary.CountByReason(ReasonDuplicate))
	}

	records, err = s.ProposalsByRequest(ctx, reqID)
	if err != nil {
		t.Fatalf("ProposalsByRequest: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("proposal count after re-poll = %d, want 1", len(records))
	}
}

func TestRun_DuplicateWithinBatch(t *testing.T) {
	s, dir := newIngestHarness(t)

	const reqID = model.RequestID("a1b2c3d4e5f6a1b2c3d4e5f6")
	seedIngestRequest(t, s, reqID)
	seedIngestVendor(t, s, "Tech Corp", "sales@techcorp.example")

	// Same sender, same decoded request, different raw text: only the
	// first counts.
	poller := &fakePoller{messages: []model.InboundMessage{
		{UID: 1, From: "sales@techcorp.example", Subject: "Ref:a1b2c3d4e5f6a1b2c3d4e5f6", Text: "first offer"},
		{UID: 2, From: "sales@techcorp.example", Subject: "Re: Ref:a1b2c3d4e5f6a1b2c3d4e5f6", Text: "revised offer"},
	}}
	ingestor := NewIngestor(poller, dir, &fakeExtractor{}, s)

	summary, err := ingestor.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Accepted != 1 || summary.CountByReason(ReasonDuplicate) != 1 {
		t.Errorf("accepted %d duplicates %d, want 1/1", summary.Accepted, summary.CountByReason(ReasonDuplicate))
	}

	records, _ := s.ProposalsByRequest(context.Background(), reqID)
	if len(records) != 1 || records[0].Proposal.RawText != "first offer" {
		t.Errorf("stored proposal = %+v, want the first offer only", records)
	}
}

func TestRun_UnknownVendorNeverReachesExtraction(t *testing.T) {
	s, dir := newIngestHarness(t)

	const reqID = model.RequestID("a1b2c3d4e5f6a1b2c3d4e5f6")
	seedIngestRequest(t, s, reqID)

	poller := &fakePoller{messages: []model.InboundMessage{{
		UID: 7, From: "stranger@nowhere.example", Subject: "Ref:a1b2c3d4e5f6a1b2c3d4e5f6", Text: "unsolicited offer",
	}}}
	extractor := &fakeExtractor{}
	ingestor := NewIngestor(poller, dir, extractor, s)

	summary, err := ingestor.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.CountByReason(ReasonUnknownVendor) != 1 {
		t.Errorf("unknown vendor count = %d, want 1", summary.CountByReason(ReasonUnknownVendor))
	}
	if extractor.calls != 0 {
		t.Errorf("extractor called %d times for an unknown vendor, want 0", extractor.calls)
	}
}

func TestRun_UnmatchedSubjects(t *testing.T) {
	s, dir := newIngestHarness(t)
	seedIngestVendor(t, s, "Tech Corp", "sales@techcorp.example")

	poller := &fakePoller{messages: []model.InboundMessage{
		// No token at all.
		{UID: 1, From: "sales@techcorp.example", Subject: "Hello there", Text: "x"},
		// Token decodes but no such request exists.
		{UID: 2, From: "sales@techcorp.example", Subject: "Ref:ffffffffffffffffffffffff", Text: "x"},
	}}
	ingestor := NewIngestor(poller, dir, &fakeExtractor{}, s)

	summary, err := ingestor.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.CountByReason(ReasonUnmatchedRequest) != 2 {
		t.Errorf("unmatched = %d, want 2", summary.CountByReason(ReasonUnmatchedRequest))
	}
}

func TestRun_MalformedExtractionSkipsMessageOnly(t *testing.T) {
	s, dir := newIngestHarness(t)

	const reqID = model.RequestID("a1b2c3d4e5f6a1b2c3d4e5f6")
	seedIngestRequest(t, s, reqID)
	seedIngestVendor(t, s, "Tech Corp", "sales@techcorp.example")
	seedIngestVendor(t, s, "Budget Inc", "quotes@budget.example")

	failing := &fakeExtractor{fail: true}
	poller := &fakePoller{messages: []model.InboundMessage{
		{UID: 1, From: "sales@techcorp.example", Subject: "Ref:a1b2c3d4e5f6a1b2c3d4e5f6", Text: "garbled"},
		{UID: 2, From: "quotes@budget.example", Subject: "Ref:a1b2c3d4e5f6a1b2c3d4e5f6", Text: "also garbled"},
	}}
	ingestor := NewIngestor(poller, dir, failing, s)

	summary, err := ingestor.Run(context.Background())
	if err != nil {
		t.Fatalf("batch should survive per-item extraction failures: %v", err)
	}
	if summary.Processed != 2 || summary.CountByReason(ReasonMalformedExtraction) != 2 {
		t.Errorf("summary = %+v", summary)
	}
}

func TestRun_PollFailureAbortsCycle(t *testing.T) {
	s, dir := newIngestHarness(t)

	pollErr := errors.New("inbox unavailable: dial tcp: connection refused")
	ingestor := NewIngestor(&fakePoller{err: pollErr}, dir, &fakeExtractor{}, s)

	summary, err := ingestor.Run(context.Background())
	if err == nil {
		t.Fatal("expected error when the poll fails")
	}
	if !errors.Is(err, pollErr) {
		t.Errorf("err = %v, want wrapped poll error", err)
	}
	if summary != nil {
		t.Errorf("summary should be nil on an aborted cycle, got %+v", summary)
	}
}
