package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/mdidris/rfpd/internal/model"
)

// ProposalRecord is a proposal joined with its vendor for display.
type ProposalRecord struct {
	Proposal model.Proposal
	Vendor   model.Vendor
}

// ProposalListing is a proposal joined with both its request and its
// vendor, for the cross-request listing.
type ProposalListing struct {
	Proposal model.Proposal
	Vendor   model.Vendor
	Request  model.Request
}

// InsertProposal inserts a proposal. When a proposal for the same
// (request, vendor) pair already exists the insert is a no-op and
// ErrDuplicate is returned; the existing row is never altered. The
// ON CONFLICT clause makes this atomic, so two poll cycles racing on
// the same pair cannot both win.
func (s *Store) InsertProposal(ctx context.Context, p *model.Proposal) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	query := `
	INSERT INTO proposals (request_id, vendor_id, raw_text, cost, delivery_time, warranty, summary, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(request_id, vendor_id) DO NOTHING
	`
	res, err := s.db.ExecContext(ctx, query,
		string(p.RequestID), string(p.VendorID), p.RawText,
		p.Terms.Cost, p.Terms.DeliveryTime, p.Terms.Warranty, p.Terms.Summary,
		p.CreatedAt)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrDuplicate
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = id
	return nil
}

// HasProposal reports whether a proposal exists for the pair. This is
// the guard's pre-check; the unique key remains the authority.
func (s *Store) HasProposal(ctx context.Context, requestID model.RequestID, vendorID model.VendorID) (bool, error) {
	var dummy int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM proposals WHERE request_id = ? AND vendor_id = ?`,
		string(requestID), string(vendorID)).Scan(&dummy)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ProposalsByRequest returns all proposals for a request joined with
// their vendors, in insertion order (oldest first).
func (s *Store) ProposalsByRequest(ctx context.Context, requestID model.RequestID) ([]ProposalRecord, error) {
	query := `
	SELECT p.id, p.request_id, p.vendor_id, p.raw_text, p.cost, p.delivery_time, p.warranty, p.summary, p.created_at,
	       v.id, v.name, v.email, v.category, v.created_at
	FROM proposals p
	JOIN vendors v ON v.id = p.vendor_id
	WHERE p.request_id = ?
	ORDER BY p.id
	`
	rows, err := s.db.QueryContext(ctx, query, string(requestID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ProposalRecord
	for rows.Next() {
		var rec ProposalRecord
		var reqID, vendorID, vID string
		err := rows.Scan(&rec.Proposal.ID, &reqID, &vendorID, &rec.Proposal.RawText,
			&rec.Proposal.Terms.Cost, &rec.Proposal.Terms.DeliveryTime,
			&rec.Proposal.Terms.Warranty, &rec.Proposal.Terms.Summary, &rec.Proposal.CreatedAt,
			&vID, &rec.Vendor.Name, &rec.Vendor.Email, &rec.Vendor.Category, &rec.Vendor.CreatedAt)
		if err != nil {
			return nil, err
		}
		rec.Proposal.RequestID = model.RequestID(reqID)
		rec.Proposal.VendorID = model.VendorID(vendorID)
		rec.Vendor.ID = model.VendorID(vID)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// AllProposals returns every proposal across all requests, newest
// first, joined with request and vendor.
func (s *Store) AllProposals(ctx context.Context) ([]ProposalListing, error) {
	query := `
	SELECT p.id, p.request_id, p.vendor_id, p.raw_text, p.cost, p.delivery_time, p.warranty, p.summary, p.created_at,
	       v.id, v.name, v.email, v.category, v.created_at,
	       r.id, r.user_request, r.terms, r.status, r.vendor_ids, r.analysis, r.analyzed_count, r.created_at
	FROM proposals p
	JOIN vendors v ON v.id = p.vendor_id
	JOIN requests r ON r.id = p.request_id
	ORDER BY p.created_at DESC, p.id DESC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ProposalListing
	for rows.Next() {
		var (
			l                  ProposalListing
			reqID, vendorID    string
			vID                string
			rID, terms, status string
			vendorIDs          string
			analysis           sql.NullString
		)
		err := rows.Scan(&l.Proposal.ID, &reqID, &vendorID, &l.Proposal.RawText,
			&l.Proposal.Terms.Cost, &l.Proposal.Terms.DeliveryTime,
			&l.Proposal.Terms.Warranty, &l.Proposal.Terms.Summary, &l.Proposal.CreatedAt,
			&vID, &l.Vendor.Name, &l.Vendor.Email, &l.Vendor.Category, &l.Vendor.CreatedAt,
			&rID, &l.Request.UserRequest, &terms, &status, &vendorIDs,
			&analysis, &l.Request.AnalyzedCount, &l.Request.CreatedAt)
		if err != nil {
			return nil, err
		}
		l.Proposal.RequestID = model.RequestID(reqID)
		l.Proposal.VendorID = model.VendorID(vendorID)
		l.Vendor.ID = model.VendorID(vID)
		l.Request.ID = model.RequestID(rID)
		l.Request.Status = model.Status(status)
		if err := unmarshalRequestBlobs(&l.Request, terms, vendorIDs, analysis); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
