package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/logvault/logvault/internal/model"
)

// DimensionStore looks up or creates dimension entities. Implementations must
// treat a uniqueness violation on insert as "already exists" and return the
// existing row, so two batches racing on the same new value both succeed.
type DimensionStore interface {
	GetOrCreateCustomer(ctx context.Context, cnnid string) (model.Customer, error)
	GetOrCreateVendor(ctx context.Context, name string) (model.Vendor, error)
	GetOrCreateDevice(ctx context.Context, name, deviceType string, vendorID int64) (model.Device, error)
}

// Resolved holds the dimension rows an entry was attached to.
type Resolved struct {
	Customer model.Customer
	Vendor   model.Vendor
	Device   model.Device
}

// Resolver resolves a payload's identifying attributes into Customer, Vendor
// and Device rows, creating them on first use. Missing attributes are
// substituted with sentinels and logged, never silently defaulted.
type Resolver struct {
	store  DimensionStore
	logger zerolog.Logger
	now    func() time.Time
}

// NewResolver returns a Resolver over the given store.
func NewResolver(store DimensionStore, logger zerolog.Logger) *Resolver {
	return &Resolver{store: store, logger: logger, now: time.Now}
}

// Resolve resolves in dependency order: customer, then vendor, then device,
// so each generated id is available to the next step.
func (r *Resolver) Resolve(ctx context.Context, cnnid, vendor, product, deviceType string) (Resolved, error) {
	if cnnid == "" {
		cnnid = fmt.Sprintf("UNKNOWN_%d", r.now().UTC().Unix())
		r.logger.Warn().Str("cnnid", cnnid).Msg("payload missing cnnid, generated synthetic customer id")
	}
	if vendor == "" {
		vendor = model.UnknownVendor
		r.logger.Warn().Str("cnnid", cnnid).Msg("payload missing vendor, using sentinel")
	}
	if product == "" {
		product = model.UnknownProduct
		r.logger.Warn().Str("cnnid", cnnid).Str("vendor", vendor).Msg("payload missing product, using sentinel")
	}
	if deviceType == "" {
		deviceType = model.UnknownDeviceType
		r.logger.Warn().Str("cnnid", cnnid).Str("vendor", vendor).Msg("payload missing device_type, using sentinel")
	}

	customer, err := r.store.GetOrCreateCustomer(ctx, cnnid)
	if err != nil {
		return Resolved{}, fmt.Errorf("resolve customer %q: %w", cnnid, err)
	}
	v, err := r.store.GetOrCreateVendor(ctx, vendor)
	if err != nil {
		return Resolved{}, fmt.Errorf("resolve vendor %q: %w", vendor, err)
	}
	device, err := r.store.GetOrCreateDevice(ctx, product, deviceType, v.ID)
	if err != nil {
		return Resolved{}, fmt.Errorf("resolve device %q/%q: %w", product, deviceType, err)
	}
	return Resolved{Customer: customer, Vendor: v, Device: device}, nil
}
