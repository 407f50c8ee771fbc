package ingest

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/logvault/logvault/internal/model"
)

// memDimensions is an in-memory DimensionStore that mimics the database's
// get-or-create semantics, including id stability across repeated calls.
type memDimensions struct {
	customers map[string]model.Customer
	vendors   map[string]model.Vendor
	devices   map[string]model.Device
	nextID    int64
}

func newMemDimensions() *memDimensions {
	return &memDimensions{
		customers: map[string]model.Customer{},
		vendors:   map[string]model.Vendor{},
		devices:   map[string]model.Device{},
		nextID:    1,
	}
}

func (m *memDimensions) GetOrCreateCustomer(_ context.Context, cnnid string) (model.Customer, error) {
	if c, ok := m.customers[cnnid]; ok {
		return c, nil
	}
	c := model.Customer{ID: m.nextID, CNNID: cnnid}
	m.nextID++
	m.customers[cnnid] = c
	return c, nil
}

func (m *memDimensions) GetOrCreateVendor(_ context.Context, name string) (model.Vendor, error) {
	if v, ok := m.vendors[name]; ok {
		return v, nil
	}
	v := model.Vendor{ID: m.nextID, Name: name}
	m.nextID++
	m.vendors[name] = v
	return v, nil
}

func (m *memDimensions) GetOrCreateDevice(_ context.Context, name, deviceType string, vendorID int64) (model.Device, error) {
	key := name + "/" + deviceType
	if d, ok := m.devices[key]; ok {
		return d, nil
	}
	d := model.Device{ID: m.nextID, Name: name, Type: deviceType, VendorID: vendorID}
	m.nextID++
	m.devices[key] = d
	return d, nil
}

func testResolver(store DimensionStore) *Resolver {
	r := NewResolver(store, zerolog.Nop())
	r.now = func() time.Time { return time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC) }
	return r
}

func TestResolveCreatesDimensionChain(t *testing.T) {
	store := newMemDimensions()
	r := testResolver(store)

	got, err := r.Resolve(context.Background(), "CNN001", "Cisco", "ASA", "Firewall")
	require.NoError(t, err)
	require.Equal(t, "CNN001", got.Customer.CNNID)
	require.Equal(t, "Cisco", got.Vendor.Name)
	require.Equal(t, "ASA", got.Device.Name)
	require.Equal(t, "Firewall", got.Device.Type)
	require.Equal(t, got.Vendor.ID, got.Device.VendorID)
}

func TestResolveIsIdempotent(t *testing.T) {
	store := newMemDimensions()
	r := testResolver(store)

	first, err := r.Resolve(context.Background(), "CNN001", "Cisco", "ASA", "Firewall")
	require.NoError(t, err)
	second, err := r.Resolve(context.Background(), "CNN001", "Cisco", "ASA", "Firewall")
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Len(t, store.customers, 1)
	require.Len(t, store.vendors, 1)
	require.Len(t, store.devices, 1)
}

func TestResolveSentinels(t *testing.T) {
	store := newMemDimensions()
	r := testResolver(store)

	got, err := r.Resolve(context.Background(), "", "", "", "")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(got.Customer.CNNID, "UNKNOWN_"), "got %q", got.Customer.CNNID)
	require.Equal(t, model.UnknownVendor, got.Vendor.Name)
	require.Equal(t, model.UnknownProduct, got.Device.Name)
	require.Equal(t, model.UnknownDeviceType, got.Device.Type)
}

func TestResolveWarnsOnEveryDefault(t *testing.T) {
	var buf bytes.Buffer
	r := NewResolver(newMemDimensions(), zerolog.New(&buf))
	r.now = func() time.Time { return time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC) }

	_, err := r.Resolve(context.Background(), "", "", "", "")
	require.NoError(t, err)

	out := buf.String()
	require.Contains(t, out, "payload missing cnnid")
	require.Contains(t, out, "payload missing vendor")
	require.Contains(t, out, "payload missing product")
	require.Contains(t, out, "payload missing device_type")

	// fully identified payloads stay quiet
	buf.Reset()
	_, err = r.Resolve(context.Background(), "CNN001", "Cisco", "ASA", "Firewall")
	require.NoError(t, err)
	require.Empty(t, buf.String())
}
