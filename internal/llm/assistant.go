package llm

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/time/rate"

	"github.com/mdidris/rfpd/internal/model"
)

// Assistant wraps a Provider with the procurement-specific prompts:
// structuring a buyer's ask, extracting terms from vendor replies, and
// comparing proposals. All calls pass through a shared rate limiter.
type Assistant struct {
	provider Provider
	limiter  *rate.Limiter
}

// NewAssistant builds an assistant from configuration. A provider is
// required; the pipeline cannot run without extraction.
func NewAssistant(config Config) (*Assistant, error) {
	provider, err := NewProvider(config)
	if err != nil {
		return nil, err
	}
	if provider == nil {
		return nil, fmt.Errorf("no LLM provider configured")
	}

	rps := config.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	burst := config.Burst
	if burst <= 0 {
		burst = 1
	}

	return &Assistant{
		provider: provider,
		limiter:  rate.NewLimiter(rate.Limit(rps), burst),
	}, nil
}

// NewAssistantWithProvider wires an explicit provider; tests use this.
func NewAssistantWithProvider(provider Provider) *Assistant {
	return &Assistant{
		provider: provider,
		limiter:  rate.NewLimiter(rate.Inf, 1),
	}
}

// Provider returns the underlying provider.
func (a *Assistant) Provider() Provider {
	return a.provider
}

func (a *Assistant) complete(ctx context.Context, system, prompt string) (string, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return a.provider.Complete(ctx, CompletionRequest{
		System:      system,
		Prompt:      prompt,
		Temperature: 0.2,
		JSONOnly:    true,
	})
}

// StructureRequest turns a buyer's free-text ask into structured
// request terms.
func (a *Assistant) StructureRequest(ctx context.Context, userText string) (model.RequestTerms, error) {
	prompt := fmt.Sprintf(`Analyze the buyer's request and extract structured data.

Buyer Request: %q

Output this exact JSON structure:
{
  "title": "Short summary of the request",
  "budget": Number (or 0 if not specified),
  "currency": "String (Detect from symbol: '$' -> 'USD', '₹' -> 'INR', '€' -> 'EUR'. Default to 'USD' if unsure)",
  "deadline": "String (ISO date or duration)",
  "items": [
    {
      "name": "Item name",
      "quantity": Number,
      "specs": "Any specific details (RAM, Color, etc.)"
    }
  ]
}`, userText)

	raw, err := a.complete(ctx, "You are a procurement AI assistant.", prompt)
	if err != nil {
		return model.RequestTerms{}, fmt.Errorf("structure request: %w", err)
	}

	var wire struct {
		Title    *string   `json:"title"`
		Budget   flexFloat `json:"budget"`
		Currency string    `json:"currency"`
		Deadline string    `json:"deadline"`
		Items    []struct {
			Name     string    `json:"name"`
			Quantity flexFloat `json:"quantity"`
			Specs    string    `json:"specs"`
		} `json:"items"`
	}
	if err := decodeJSON(raw, &wire); err != nil {
		return model.RequestTerms{}, fmt.Errorf("structure request: %w", err)
	}
	if wire.Title == nil || *wire.Title == "" {
		return model.RequestTerms{}, fmt.Errorf("structure request: response missing title")
	}

	terms := model.RequestTerms{
		Title:    *wire.Title,
		Budget:   float64(wire.Budget),
		Currency: wire.Currency,
		Deadline: wire.Deadline,
	}
	if terms.Currency == "" {
		terms.Currency = "USD"
	}
	for _, it := range wire.Items {
		terms.Items = append(terms.Items, model.LineItem{
			Name:     it.Name,
			Quantity: int(it.Quantity),
			Specs:    it.Specs,
		})
	}
	return terms, nil
}

// ExtractProposal converts a vendor's raw reply text into structured
// proposal terms. The response must contain all four expected fields;
// anything less is a malformed extraction and the caller skips the
// message.
func (a *Assistant) ExtractProposal(ctx context.Context, rawText string) (model.ProposalTerms, error) {
	prompt := fmt.Sprintf(`Extract structured data from this vendor email.

Email Content: %q

Return ONLY valid JSON with these exact keys:
{
  "cost": Number (Total cost. Example: 24000),
  "deliveryTime": "String (e.g. '7 days' or '2 weeks')",
  "warranty": "String (e.g. '1 year')",
  "summary": "String (Short 10-word summary)"
}`, rawText)

	raw, err := a.complete(ctx, "You are a procurement assistant.", prompt)
	if err != nil {
		return model.ProposalTerms{}, fmt.Errorf("extract proposal: %w", err)
	}

	var wire struct {
		Cost         *flexFloat `json:"cost"`
		DeliveryTime *string    `json:"deliveryTime"`
		Warranty     *string    `json:"warranty"`
		Summary      *string    `json:"summary"`
	}
	if err := decodeJSON(raw, &wire); err != nil {
		return model.ProposalTerms{}, fmt.Errorf("extract proposal: %w", err)
	}
	if wire.Cost == nil || wire.DeliveryTime == nil || wire.Warranty == nil || wire.Summary == nil {
		return model.ProposalTerms{}, fmt.Errorf("extract proposal: response missing expected fields")
	}

	return model.ProposalTerms{
		Cost:         float64(*wire.Cost),
		DeliveryTime: *wire.DeliveryTime,
		Warranty:     *wire.Warranty,
		Summary:      *wire.Summary,
	}, nil
}

// CompareEntry is one vendor's offer as presented to the comparison
// capability.
type CompareEntry struct {
	VendorID   model.VendorID
	VendorName string
	Terms      model.ProposalTerms
}

// CompareProposals evaluates the proposals against the request and
// returns a recommendation. The recommended vendor identifier in the
// response is authoritative and must reference one of the entries.
func (a *Assistant) CompareProposals(ctx context.Context, req *model.Request, entries []CompareEntry) (*model.Analysis, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("compare proposals: no entries")
	}

	var summaries strings.Builder
	for i, e := range entries {
		fmt.Fprintf(&summaries, "Vendor %d (%s): Cost $%.2f, Delivery %s, Warranty %s. (ID: %s)\n",
			i+1, e.VendorName, e.Terms.Cost, e.Terms.DeliveryTime, e.Terms.Warranty, e.VendorID)
	}

	prompt := fmt.Sprintf(`Evaluate these proposals based on my requirements.

MY REQUIREMENTS:
%q
Budget: %.2f
Deadline: %s

VENDOR PROPOSALS:
%s
TASK:
Compare them. Pick the best vendor.

OUTPUT JSON ONLY:
{
  "recommendedVendorId": "The ID of the best vendor from the list above",
  "reasoning": "A clear 2-sentence explanation why they won (e.g. 'Best price and meets deadline').",
  "rankings": [
    { "vendorName": "Name", "score": Number 1-10, "cost": Number, "deliveryTime": "String", "note": "Short note" }
  ]
}`, req.UserRequest, req.Terms.Budget, req.Terms.Deadline, summaries.String())

	raw, err := a.complete(ctx, "You are a Procurement Manager.", prompt)
	if err != nil {
		return nil, fmt.Errorf("compare proposals: %w", err)
	}

	var wire struct {
		RecommendedVendorID string `json:"recommendedVendorId"`
		Reasoning           string `json:"reasoning"`
		Rankings            []struct {
			VendorName   string    `json:"vendorName"`
			Score        flexFloat `json:"score"`
			Cost         flexFloat `json:"cost"`
			DeliveryTime string    `json:"deliveryTime"`
			Note         string    `json:"note"`
		} `json:"rankings"`
	}
	if err := decodeJSON(raw, &wire); err != nil {
		return nil, fmt.Errorf("compare proposals: %w", err)
	}
	if wire.RecommendedVendorID == "" || wire.Reasoning == "" || len(wire.Rankings) == 0 {
		return nil, fmt.Errorf("compare proposals: response missing recommendation, reasoning or rankings")
	}

	recommended := model.VendorID(wire.RecommendedVendorID)
	known := false
	byName := make(map[string]CompareEntry, len(entries))
	for _, e := range entries {
		byName[strings.ToLower(e.VendorName)] = e
		if e.VendorID == recommended {
			known = true
		}
	}
	if !known {
		return nil, fmt.Errorf("compare proposals: recommended vendor %q is not among the proposals", wire.RecommendedVendorID)
	}

	analysis := &model.Analysis{
		RecommendedVendorID: recommended,
		Reasoning:           wire.Reasoning,
	}
	for _, r := range wire.Rankings {
		ranking := model.Ranking{
			VendorName:   r.VendorName,
			Score:        float64(r.Score),
			Cost:         float64(r.Cost),
			DeliveryTime: r.DeliveryTime,
			Note:         r.Note,
		}
		// Backfill cost/delivery from the submitted terms when the
		// model omits them from a ranking row.
		if e, ok := byName[strings.ToLower(r.VendorName)]; ok {
			if ranking.Cost == 0 {
				ranking.Cost = e.Terms.Cost
			}
			if ranking.DeliveryTime == "" {
				ranking.DeliveryTime = e.Terms.DeliveryTime
			}
		}
		analysis.Rankings = append(analysis.Rankings, ranking)
	}
	return analysis, nil
}
