package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/mdidris/rfpd/internal/llm"
	"github.com/mdidris/rfpd/internal/model"
	"github.com/mdidris/rfpd/internal/store"
)

type fakeComparer struct {
	calls   int
	entries []llm.CompareEntry
	result  *model.Analysis
	err     error
}

func (c *fakeComparer) CompareProposals(_ context.Context, _ *model.Request, entries []llm.CompareEntry) (*model.Analysis, error) {
	c.calls++
	c.entries = entries
	if c.err != nil {
		return nil, c.err
	}
	return c.result, nil
}

func newAnalyzeStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "rfpd.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAnalyze_ZeroProposals_NeverCallsComparer(t *testing.T) {
	s := newAnalyzeStore(t)
	ctx := context.Background()

	req := &model.Request{ID: model.NewRequestID(), UserRequest: "laptops"}
	if err := s.CreateRequest(ctx, req); err != nil {
		t.Fatalf("seed request: %v", err)
	}

	comparer := &fakeComparer{}
	analyzer := NewAnalyzer(s, comparer)

	_, _, err := analyzer.Analyze(ctx, req.ID)
	if !errors.Is(err, ErrNoProposals) {
		t.Fatalf("err = %v, want ErrNoProposals", err)
	}
	if comparer.calls != 0 {
		t.Errorf("comparer called %d times with an empty set, want 0", comparer.calls)
	}
}

func TestAnalyze_MissingRequest(t *testing.T) {
	s := newAnalyzeStore(t)
	analyzer := NewAnalyzer(s, &fakeComparer{})

	_, _, err := analyzer.Analyze(context.Background(), "a1b2c3d4e5f6a1b2c3d4e5f6")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestAnalyze_TwoVendors_PersistsArtifactAndCount(t *testing.T) {
	s := newAnalyzeStore(t)
	ctx := context.Background()

	req := &model.Request{
		ID:          model.NewRequestID(),
		UserRequest: "50 laptops",
		Terms:       model.RequestTerms{Budget: 60000, Deadline: "3 weeks"},
		Status:      model.StatusSent,
	}
	if err := s.CreateRequest(ctx, req); err != nil {
		t.Fatalf("seed request: %v", err)
	}

	alpha := &model.Vendor{Name: "Alpha", Email: "a@vendors.example"}
	beta := &model.Vendor{Name: "Beta", Email: "b@vendors.example"}
	for _, v := range []*model.Vendor{alpha, beta} {
		if err := s.CreateVendor(ctx, v); err != nil {
			t.Fatalf("seed vendor: %v", err)
		}
	}
	for _, p := range []*model.Proposal{
		{RequestID: req.ID, VendorID: alpha.ID, RawText: "a", Terms: model.ProposalTerms{Cost: 30000, DeliveryTime: "3 weeks"}},
		{RequestID: req.ID, VendorID: beta.ID, RawText: "b", Terms: model.ProposalTerms{Cost: 24000, DeliveryTime: "7 days"}},
	} {
		if err := s.InsertProposal(ctx, p); err != nil {
			t.Fatalf("seed proposal: %v", err)
		}
	}

	comparer := &fakeComparer{result: &model.Analysis{
		RecommendedVendorID: beta.ID,
		Reasoning:           "Best price and meets deadline.",
		Rankings: []model.Ranking{
			{VendorName: "Beta", Score: 9, Cost: 24000, DeliveryTime: "7 days", Note: "winner"},
			{VendorName: "Alpha", Score: 6, Cost: 30000, DeliveryTime: "3 weeks", Note: "pricier"},
		},
	}}
	analyzer := NewAnalyzer(s, comparer)

	analysis, count, err := analyzer.Analyze(ctx, req.ID)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
	if analysis.RecommendedVendorID != beta.ID {
		t.Errorf("recommended = %s, want %s", analysis.RecommendedVendorID, beta.ID)
	}
	if len(analysis.Rankings) != 2 {
		t.Errorf("rankings = %d, want 2", len(analysis.Rankings))
	}

	stored, err := s.GetRequest(ctx, req.ID)
	if err != nil {
		t.Fatalf("GetRequest: %v", err)
	}
	if stored.Analysis == nil || stored.Analysis.RecommendedVendorID != beta.ID {
		t.Errorf("artifact not persisted: %+v", stored.Analysis)
	}
	if stored.AnalyzedCount != 2 {
		t.Errorf("AnalyzedCount = %d, want 2", stored.AnalyzedCount)
	}
}

func TestAnalyze_ComparerFailureLeavesPriorArtifact(t *testing.T) {
	s := newAnalyzeStore(t)
	ctx := context.Background()

	req := &model.Request{ID: model.NewRequestID(), UserRequest: "laptops"}
	if err := s.CreateRequest(ctx, req); err != nil {
		t.Fatalf("seed request: %v", err)
	}
	v := &model.Vendor{Name: "Alpha", Email: "a@vendors.example"}
	if err := s.CreateVendor(ctx, v); err != nil {
		t.Fatalf("seed vendor: %v", err)
	}
	if err := s.InsertProposal(ctx, &model.Proposal{RequestID: req.ID, VendorID: v.ID, RawText: "a"}); err != nil {
		t.Fatalf("seed proposal: %v", err)
	}

	prior := &model.Analysis{RecommendedVendorID: v.ID, Reasoning: "earlier run", Rankings: []model.Ranking{{VendorName: "Alpha", Score: 8}}}
	if err := s.SaveAnalysis(ctx, req.ID, prior, 1); err != nil {
		t.Fatalf("seed prior artifact: %v", err)
	}

	analyzer := NewAnalyzer(s, &fakeComparer{err: fmt.Errorf("service unavailable")})
	if _, _, err := analyzer.Analyze(ctx, req.ID); err == nil {
		t.Fatal("expected analysis failure")
	}

	stored, err := s.GetRequest(ctx, req.ID)
	if err != nil {
		t.Fatalf("GetRequest: %v", err)
	}
	if stored.Analysis == nil || stored.Analysis.Reasoning != "earlier run" {
		t.Errorf("prior artifact was disturbed: %+v", stored.Analysis)
	}
}

// fakeAnalysisStore lets a test hand the analyzer a proposal set that
// bypassed storage-level dedup.
type fakeAnalysisStore struct {
	request *model.Request
	records []store.ProposalRecord

	savedAnalysis *model.Analysis
	savedCount    int
}

func (f *fakeAnalysisStore) GetRequest(context.Context, model.RequestID) (*model.Request, error) {
	return f.request, nil
}

func (f *fakeAnalysisStore) ProposalsByRequest(context.Context, model.RequestID) ([]store.ProposalRecord, error) {
	return f.records, nil
}

func (f *fakeAnalysisStore) SaveAnalysis(_ context.Context, _ model.RequestID, analysis *model.Analysis, count int) error {
	f.savedAnalysis = analysis
	f.savedCount = count
	return nil
}

func TestAnalyze_DefensiveDedupKeepsLatestPerVendor(t *testing.T) {
	vendorA := model.Vendor{ID: "aaaaaaaaaaaaaaaaaaaaaaaa", Name: "Alpha"}
	vendorB := model.Vendor{ID: "bbbbbbbbbbbbbbbbbbbbbbbb", Name: "Beta"}
	vendorC := model.Vendor{ID: "cccccccccccccccccccccccc", Name: "Gamma"}

	rec := func(id int64, v model.Vendor, cost float64) store.ProposalRecord {
		return store.ProposalRecord{
			Proposal: model.Proposal{ID: id, RequestID: "a1b2c3d4e5f6a1b2c3d4e5f6", VendorID: v.ID, Terms: model.ProposalTerms{Cost: cost}},
			Vendor:   v,
		}
	}

	// A and C carry duplicate entries, simulating a dedup bypass; the
	// later row per vendor must win.
	fake := &fakeAnalysisStore{
		request: &model.Request{ID: "a1b2c3d4e5f6a1b2c3d4e5f6"},
		records: []store.ProposalRecord{
			rec(1, vendorA, 100),
			rec(2, vendorB, 200),
			rec(3, vendorC, 300),
			rec(4, vendorA, 111),
			rec(5, vendorC, 333),
		},
	}
	comparer := &fakeComparer{result: &model.Analysis{
		RecommendedVendorID: vendorB.ID,
		Reasoning:           "x",
		Rankings:            []model.Ranking{{VendorName: "Beta", Score: 9}},
	}}
	analyzer := NewAnalyzer(fake, comparer)

	_, count, err := analyzer.Analyze(context.Background(), "a1b2c3d4e5f6a1b2c3d4e5f6")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if count != 3 {
		t.Errorf("count = %d, want 3 (one per vendor)", count)
	}
	if len(comparer.entries) != 3 {
		t.Fatalf("comparer saw %d entries, want 3", len(comparer.entries))
	}

	byID := make(map[model.VendorID]llm.CompareEntry)
	for _, e := range comparer.entries {
		byID[e.VendorID] = e
	}
	if byID[vendorA.ID].Terms.Cost != 111 {
		t.Errorf("vendor A cost = %v, want the most recent (111)", byID[vendorA.ID].Terms.Cost)
	}
	if byID[vendorC.ID].Terms.Cost != 333 {
		t.Errorf("vendor C cost = %v, want the most recent (333)", byID[vendorC.ID].Terms.Cost)
	}
	if fake.savedCount != 3 {
		t.Errorf("saved count = %d, want 3", fake.savedCount)
	}
}
