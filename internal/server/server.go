// Package server exposes the procurement workflow over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/mdidris/rfpd/internal/directory"
	"github.com/mdidris/rfpd/internal/mailbox"
	"github.com/mdidris/rfpd/internal/model"
	"github.com/mdidris/rfpd/internal/pipeline"
	"github.com/mdidris/rfpd/internal/store"
)

// Structurer turns a buyer's free-text ask into structured terms.
// *llm.Assistant satisfies it.
type Structurer interface {
	StructureRequest(ctx context.Context, userText string) (model.RequestTerms, error)
}

// Ingestor runs one mailbox poll cycle. *pipeline.Ingestor satisfies it.
type Ingestor interface {
	Run(ctx context.Context) (*pipeline.IngestSummary, error)
}

// Analyzer produces the recommendation artifact. *pipeline.Analyzer
// satisfies it.
type Analyzer interface {
	Analyze(ctx context.Context, id model.RequestID) (*model.Analysis, int, error)
}

// Inviter sends invitation emails. *outbound.Mailer satisfies it.
type Inviter interface {
	Invite(ctx context.Context, req *model.Request, vendors []model.Vendor) error
}

// Server is the HTTP API over the procurement core.
type Server struct {
	echo       *echo.Echo
	store      *store.Store
	vendors    *directory.Directory
	structurer Structurer
	ingestor   Ingestor
	analyzer   Analyzer
	inviter    Inviter
	addr       string
}

// New wires the API. All dependencies are required except the inviter,
// which may be nil when SMTP is not configured; the send endpoint then
// reports it unavailable.
func New(addr string, st *store.Store, vendors *directory.Directory, structurer Structurer, ingestor Ingestor, analyzer Analyzer, inviter Inviter) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())

	s := &Server{
		echo:       e,
		store:      st,
		vendors:    vendors,
		structurer: structurer,
		ingestor:   ingestor,
		analyzer:   analyzer,
		inviter:    inviter,
		addr:       addr,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)

	api := s.echo.Group("/api")
	api.POST("/rfp", s.handleCreateRequest)
	api.GET("/rfp", s.handleListRequests)
	api.GET("/rfp/check-inbox", s.handleCheckInbox)
	api.GET("/rfp/:id", s.handleGetRequest)
	api.GET("/rfp/:id/analysis", s.handleAnalyze)
	api.POST("/rfp/send", s.handleSendInvitations)
	api.GET("/proposals", s.handleListProposals)
	api.GET("/vendors", s.handleListVendors)
	api.POST("/vendors", s.handleCreateVendor)
}

// Start runs the server until Shutdown.
func (s *Server) Start() error {
	return s.echo.Start(s.addr)
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler exposes the routing tree; tests drive it directly.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// CreateRequestBody is the payload for POST /api/rfp.
type CreateRequestBody struct {
	UserRequest string `json:"userRequest"`
}

func (s *Server) handleCreateRequest(c echo.Context) error {
	var body CreateRequestBody
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if body.UserRequest == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "userRequest is required")
	}

	ctx := c.Request().Context()
	terms, err := s.structurer.StructureRequest(ctx, body.UserRequest)
	if err != nil {
		return httpError(err)
	}

	req := &model.Request{
		ID:          model.NewRequestID(),
		UserRequest: body.UserRequest,
		Terms:       terms,
		Status:      model.StatusDraft,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.store.CreateRequest(ctx, req); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, req)
}

func (s *Server) handleListRequests(c echo.Context) error {
	requests, err := s.store.ListRequests(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	if requests == nil {
		requests = []model.Request{}
	}
	return c.JSON(http.StatusOK, requests)
}

// RequestDetail is the response for GET /api/rfp/:id.
type RequestDetail struct {
	Request   *model.Request `json:"request"`
	Proposals []ProposalView `json:"proposals"`
}

// ProposalView is a proposal with its vendor resolved for display.
type ProposalView struct {
	Proposal model.Proposal `json:"proposal"`
	Vendor   model.Vendor   `json:"vendor"`
}

func (s *Server) handleGetRequest(c echo.Context) error {
	id := model.RequestID(c.Param("id"))
	if !id.IsValid() {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request id")
	}

	ctx := c.Request().Context()
	req, err := s.store.GetRequest(ctx, id)
	if err != nil {
		return httpError(err)
	}
	records, err := s.store.ProposalsByRequest(ctx, id)
	if err != nil {
		return httpError(err)
	}

	detail := RequestDetail{Request: req, Proposals: []ProposalView{}}
	for _, rec := range records {
		detail.Proposals = append(detail.Proposals, ProposalView{Proposal: rec.Proposal, Vendor: rec.Vendor})
	}
	return c.JSON(http.StatusOK, detail)
}

// SendBody is the payload for POST /api/rfp/send.
type SendBody struct {
	RequestID model.RequestID  `json:"rfpId"`
	VendorIDs []model.VendorID `json:"vendorIds"`
}

// SendResult reports an invitation round.
type SendResult struct {
	Request *model.Request `json:"request"`
	Invited int            `json:"invited"`
}

func (s *Server) handleSendInvitations(c echo.Context) error {
	if s.inviter == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "outbound mail is not configured")
	}

	var body SendBody
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if !body.RequestID.IsValid() {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request id")
	}
	if len(body.VendorIDs) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "vendorIds is required")
	}

	ctx := c.Request().Context()
	req, err := s.store.GetRequest(ctx, body.RequestID)
	if err != nil {
		return httpError(err)
	}
	vendors, err := s.vendors.ByIDs(ctx, body.VendorIDs)
	if err != nil {
		return httpError(err)
	}
	if len(vendors) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "no known vendors among vendorIds")
	}

	if err := s.inviter.Invite(ctx, req, vendors); err != nil {
		return httpError(err)
	}

	invited := make([]model.VendorID, len(vendors))
	for i, v := range vendors {
		invited[i] = v.ID
	}
	if err := s.store.MarkSent(ctx, req.ID, invited); err != nil {
		return httpError(err)
	}

	updated, err := s.store.GetRequest(ctx, req.ID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, SendResult{Request: updated, Invited: len(vendors)})
}

func (s *Server) handleCheckInbox(c echo.Context) error {
	summary, err := s.ingestor.Run(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, summary)
}

// AnalysisResult is the response for GET /api/rfp/:id/analysis.
type AnalysisResult struct {
	RequestID     model.RequestID `json:"requestId"`
	Analysis      *model.Analysis `json:"analysis"`
	ProposalCount int             `json:"proposalCount"`
}

func (s *Server) handleAnalyze(c echo.Context) error {
	id := model.RequestID(c.Param("id"))
	if !id.IsValid() {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request id")
	}

	analysis, count, err := s.analyzer.Analyze(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, AnalysisResult{RequestID: id, Analysis: analysis, ProposalCount: count})
}

// ProposalListing is one row of GET /api/proposals.
type ProposalListing struct {
	Proposal model.Proposal `json:"proposal"`
	Vendor   model.Vendor   `json:"vendor"`
	Request  model.Request  `json:"request"`
}

func (s *Server) handleListProposals(c echo.Context) error {
	listings, err := s.store.AllProposals(c.Request().Context())
	if err != nil {
		return httpError(err)
	}

	out := make([]ProposalListing, 0, len(listings))
	for _, l := range listings {
		out = append(out, ProposalListing{Proposal: l.Proposal, Vendor: l.Vendor, Request: l.Request})
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleListVendors(c echo.Context) error {
	vendors, err := s.vendors.List(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	if vendors == nil {
		vendors = []model.Vendor{}
	}
	return c.JSON(http.StatusOK, vendors)
}

// CreateVendorBody is the payload for POST /api/vendors.
type CreateVendorBody struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Category string `json:"category"`
}

func (s *Server) handleCreateVendor(c echo.Context) error {
	var body CreateVendorBody
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if body.Name == "" || body.Email == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name and email are required")
	}

	v := &model.Vendor{Name: body.Name, Email: body.Email, Category: body.Category}
	if err := s.vendors.Add(c.Request().Context(), v); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, v)
}

// httpError maps domain errors to HTTP status codes.
func httpError(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	case errors.Is(err, pipeline.ErrNoProposals):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "no proposals to analyze")
	case errors.Is(err, mailbox.ErrUnavailable):
		return echo.NewHTTPError(http.StatusBadGateway, "mailbox unavailable")
	case errors.Is(err, store.ErrDuplicate):
		return echo.NewHTTPError(http.StatusConflict, "already exists")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
