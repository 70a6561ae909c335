// Package directory provides vendor lookups for the ingest pipeline,
// fronted by a small TTL cache so one poll cycle over a busy inbox
// does not hit the database once per message for the same senders.
package directory

import (
	"context"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/mdidris/rfpd/internal/model"
)

// Source is the persistence surface the directory reads and writes.
// *store.Store satisfies it.
type Source interface {
	CreateVendor(ctx context.Context, v *model.Vendor) error
	VendorByEmail(ctx context.Context, email string) (*model.Vendor, error)
	VendorsByIDs(ctx context.Context, ids []model.VendorID) ([]model.Vendor, error)
	ListVendors(ctx context.Context) ([]model.Vendor, error)
}

// Directory is a read-mostly vendor lookup with per-address caching.
type Directory struct {
	src   Source
	cache *gocache.Cache
	ttl   time.Duration
}

// New creates a directory. Entries expire after ttl.
func New(src Source, ttl time.Duration) *Directory {
	return &Directory{
		src:   src,
		cache: gocache.New(ttl, 2*ttl),
		ttl:   ttl,
	}
}

// ByEmail looks a vendor up by exact contact address. Misses are not
// cached: an address absent from the directory stays a store round
// trip, so a vendor added mid-run is found immediately.
func (d *Directory) ByEmail(ctx context.Context, email string) (*model.Vendor, error) {
	key := strings.ToLower(strings.TrimSpace(email))

	if cached, found := d.cache.Get(key); found {
		v := cached.(model.Vendor)
		return &v, nil
	}

	v, err := d.src.VendorByEmail(ctx, key)
	if err != nil {
		return nil, err
	}
	d.cache.Set(key, *v, d.ttl)
	return v, nil
}

// ByIDs returns the vendors for the given identifiers.
func (d *Directory) ByIDs(ctx context.Context, ids []model.VendorID) ([]model.Vendor, error) {
	return d.src.VendorsByIDs(ctx, ids)
}

// List returns the whole directory.
func (d *Directory) List(ctx context.Context) ([]model.Vendor, error) {
	return d.src.ListVendors(ctx)
}

// Add registers a new vendor and primes the cache with it.
func (d *Directory) Add(ctx context.Context, v *model.Vendor) error {
	if err := d.src.CreateVendor(ctx, v); err != nil {
		return err
	}
	d.cache.Set(v.Email, *v, d.ttl)
	return nil
}
