package model

import "time"

// VendorID identifies a vendor in the directory. Same 24-hex shape as
// RequestID.
type VendorID string

// NewVendorID generates a fresh random vendor identifier.
func NewVendorID() VendorID {
	return VendorID(NewRequestID())
}

func (id VendorID) String() string {
	return string(id)
}

// Vendor is an external party capable of responding to a request.
// The contact email is unique across the directory; inbound replies
// are attributed by exact sender-address match and nothing else.
type Vendor struct {
	ID        VendorID  `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"createdAt"`
}
