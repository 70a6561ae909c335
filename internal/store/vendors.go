package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/mdidris/rfpd/internal/model"
)

// CreateVendor inserts a vendor. The contact email is normalized to
// lower case and must be unique.
func (s *Store) CreateVendor(ctx context.Context, v *model.Vendor) error {
	if v.ID == "" {
		v.ID = model.NewVendorID()
	}
	if v.Category == "" {
		v.Category = "General"
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}
	v.Email = strings.ToLower(strings.TrimSpace(v.Email))

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO vendors (id, name, email, category, created_at) VALUES (?, ?, ?, ?, ?)`,
		string(v.ID), v.Name, v.Email, v.Category, v.CreatedAt)
	return err
}

// VendorByEmail looks a vendor up by exact contact address. Returns
// ErrNotFound when the address is not in the directory - inbound
// replies from unknown addresses are never attributed to a guess.
func (s *Store) VendorByEmail(ctx context.Context, email string) (*model.Vendor, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var v model.Vendor
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, category, created_at FROM vendors WHERE email = ?`, email).
		Scan(&id, &v.Name, &v.Email, &v.Category, &v.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	v.ID = model.VendorID(id)
	return &v, nil
}

// VendorsByIDs returns the vendors whose identifiers are in ids.
// Unknown identifiers are silently absent from the result.
func (s *Store) VendorsByIDs(ctx context.Context, ids []model.VendorID) ([]model.Vendor, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = string(id)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, email, category, created_at FROM vendors WHERE id IN (`+placeholders+`) ORDER BY name`,
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanVendors(rows)
}

// ListVendors returns the whole directory ordered by name.
func (s *Store) ListVendors(ctx context.Context) ([]model.Vendor, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, email, category, created_at FROM vendors ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanVendors(rows)
}

func scanVendors(rows *sql.Rows) ([]model.Vendor, error) {
	var out []model.Vendor
	for rows.Next() {
		var v model.Vendor
		var id string
		if err := rows.Scan(&id, &v.Name, &v.Email, &v.Category, &v.CreatedAt); err != nil {
			return nil, err
		}
		v.ID = model.VendorID(id)
		out = append(out, v)
	}
	return out, rows.Err()
}
