package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mdidris/rfpd/internal/model"
)

// CreateRequest inserts a new request. CreatedAt is set if zero.
func (s *Store) CreateRequest(ctx context.Context, req *model.Request) error {
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}
	if req.Status == "" {
		req.Status = model.StatusDraft
	}

	terms, err := json.Marshal(req.Terms)
	if err != nil {
		return fmt.Errorf("marshal terms: %w", err)
	}
	vendorIDs, err := json.Marshal(req.VendorIDs)
	if err != nil {
		return fmt.Errorf("marshal vendor ids: %w", err)
	}

	query := `
	INSERT INTO requests (id, user_request, terms, status, vendor_ids, analyzed_count, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		string(req.ID), req.UserRequest, string(terms), string(req.Status),
		string(vendorIDs), req.AnalyzedCount, req.CreatedAt)
	return err
}

// GetRequest retrieves a request by identifier.
func (s *Store) GetRequest(ctx context.Context, id model.RequestID) (*model.Request, error) {
	query := `
	SELECT id, user_request, terms, status, vendor_ids, analysis, analyzed_count, created_at
	FROM requests WHERE id = ?
	`
	return scanRequest(s.db.QueryRowContext(ctx, query, string(id)))
}

// RequestExists reports whether a request with the given identifier
// exists.
func (s *Store) RequestExists(ctx context.Context, id model.RequestID) (bool, error) {
	var dummy int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM requests WHERE id = ?`, string(id)).Scan(&dummy)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListRequests returns all requests, newest first.
func (s *Store) ListRequests(ctx context.Context) ([]model.Request, error) {
	query := `
	SELECT id, user_request, terms, status, vendor_ids, analysis, analyzed_count, created_at
	FROM requests ORDER BY created_at DESC, id DESC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *req)
	}
	return out, rows.Err()
}

// MarkSent records that invitations went out: status advances to Sent
// and the invited vendor set is stored. Moving a Closed request back
// is refused.
func (s *Store) MarkSent(ctx context.Context, id model.RequestID, vendorIDs []model.VendorID) error {
	req, err := s.GetRequest(ctx, id)
	if err != nil {
		return err
	}
	if !req.Status.CanAdvanceTo(model.StatusSent) {
		return fmt.Errorf("request %s: cannot move %s back to %s", id, req.Status, model.StatusSent)
	}

	ids, err := json.Marshal(vendorIDs)
	if err != nil {
		return fmt.Errorf("marshal vendor ids: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE requests SET status = ?, vendor_ids = ? WHERE id = ?`,
		string(model.StatusSent), string(ids), string(id))
	return err
}

// SaveAnalysis overwrites the request's recommendation artifact and the
// count of proposals it reflects. A single UPDATE, so concurrent
// analysis runs resolve last-write-wins.
func (s *Store) SaveAnalysis(ctx context.Context, id model.RequestID, analysis *model.Analysis, count int) error {
	blob, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE requests SET analysis = ?, analyzed_count = ? WHERE id = ?`,
		string(blob), count, string(id))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*model.Request, error) {
	var (
		req       model.Request
		id        string
		terms     string
		status    string
		vendorIDs string
		analysis  sql.NullString
	)

	err := row.Scan(&id, &req.UserRequest, &terms, &status, &vendorIDs,
		&analysis, &req.AnalyzedCount, &req.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	req.ID = model.RequestID(id)
	req.Status = model.Status(status)
	if err := unmarshalRequestBlobs(&req, terms, vendorIDs, analysis); err != nil {
		return nil, err
	}
	return &req, nil
}

// unmarshalRequestBlobs decodes the JSON columns of a requests row.
func unmarshalRequestBlobs(req *model.Request, terms, vendorIDs string, analysis sql.NullString) error {
	if err := json.Unmarshal([]byte(terms), &req.Terms); err != nil {
		return fmt.Errorf("unmarshal terms: %w", err)
	}
	if err := json.Unmarshal([]byte(vendorIDs), &req.VendorIDs); err != nil {
		return fmt.Errorf("unmarshal vendor ids: %w", err)
	}
	if analysis.Valid && analysis.String != "" {
		req.Analysis = &model.Analysis{}
		if err := json.Unmarshal([]byte(analysis.String), req.Analysis); err != nil {
			return fmt.Errorf("unmarshal analysis: %w", err)
		}
	}
	return nil
}
