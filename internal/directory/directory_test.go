package directory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mdidris/rfpd/internal/model"
	"github.com/mdidris/rfpd/internal/store"
)

// countingSource wraps a fixed vendor set and counts lookups.
type countingSource struct {
	vendors map[string]model.Vendor
	lookups int
}

func (c *countingSource) CreateVendor(_ context.Context, v *model.Vendor) error {
	if v.ID == "" {
		v.ID = model.NewVendorID()
	}
	c.vendors[v.Email] = *v
	return nil
}

func (c *countingSource) VendorByEmail(_ context.Context, email string) (*model.Vendor, error) {
	c.lookups++
	v, ok := c.vendors[email]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &v, nil
}

func (c *countingSource) VendorsByIDs(_ context.Context, ids []model.VendorID) ([]model.Vendor, error) {
	var out []model.Vendor
	for _, v := range c.vendors {
		for _, id := range ids {
			if v.ID == id {
				out = append(out, v)
			}
		}
	}
	return out, nil
}

func (c *countingSource) ListVendors(_ context.Context) ([]model.Vendor, error) {
	var out []model.Vendor
	for _, v := range c.vendors {
		out = append(out, v)
	}
	return out, nil
}

func TestByEmail_CachesHits(t *testing.T) {
	src := &countingSource{vendors: map[string]model.Vendor{
		"sales@techcorp.example": {ID: model.NewVendorID(), Name: "Tech Corp", Email: "sales@techcorp.example"},
	}}
	d := New(src, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		v, err := d.ByEmail(ctx, "sales@techcorp.example")
		if err != nil {
			t.Fatalf("ByEmail failed: %v", err)
		}
		if v.Name != "Tech Corp" {
			t.Errorf("Name = %q, want Tech Corp", v.Name)
		}
	}

	if src.lookups != 1 {
		t.Errorf("store lookups = %d, want 1 (cached)", src.lookups)
	}
}

func TestByEmail_NormalizesAddress(t *testing.T) {
	src := &countingSource{vendors: map[string]model.Vendor{
		"sales@techcorp.example": {Name: "Tech Corp", Email: "sales@techcorp.example"},
	}}
	d := New(src, time.Minute)

	if _, err := d.ByEmail(context.Background(), "  Sales@TechCorp.example "); err != nil {
		t.Fatalf("ByEmail with unnormalized address failed: %v", err)
	}
}

func TestByEmail_MissesNotCached(t *testing.T) {
	src := &countingSource{vendors: map[string]model.Vendor{}}
	d := New(src, time.Minute)
	ctx := context.Background()

	if _, err := d.ByEmail(ctx, "new@vendor.example"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	// Vendor registered after the miss must be visible at once.
	if err := d.Add(ctx, &model.Vendor{Name: "New Vendor", Email: "new@vendor.example"}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	v, err := d.ByEmail(ctx, "new@vendor.example")
	if err != nil {
		t.Fatalf("ByEmail after Add failed: %v", err)
	}
	if v.Name != "New Vendor" {
		t.Errorf("Name = %q, want New Vendor", v.Name)
	}
}
