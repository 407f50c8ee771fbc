package model

import "time"

// Sentinels substituted when a payload omits an identifying field.
// Defaulting is applied by the dimension resolver, never silently.
const (
	UnknownVendor     = "Unknown Vendor"
	UnknownProduct    = "Unknown Product"
	UnknownDeviceType = "Unknown Device Type"
)

// Customer is a tenant, identified externally by its cnnid.
// Created lazily on first log referencing an unknown cnnid.
type Customer struct {
	ID        int64     `db:"id" json:"id"`
	CNNID     string    `db:"cnnid" json:"cnnid"`
	Name      string    `db:"name" json:"name,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Vendor is a device manufacturer. Vendor names are globally unique.
type Vendor struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Device is a product belonging to a vendor, e.g. an ASA firewall.
type Device struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Type      string    `db:"type" json:"type"`
	VendorID  int64     `db:"vendor_id" json:"vendor_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
