package track

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aistrackd/internal/ais"
	"aistrackd/internal/broadcast"
	"aistrackd/internal/source"
	"aistrackd/internal/store"
)

// memStore is an in-memory Store for exercising the tracker without SQLite.
type memStore struct {
	positions []*store.PositionRecord
	vessels   map[uint32]*store.VesselRecord
	nextID    int64
}

func newMemStore() *memStore {
	return &memStore{vessels: make(map[uint32]*store.VesselRecord)}
}

func (m *memStore) AppendPosition(_ context.Context, p *store.PositionRecord) (int64, error) {
	m.nextID++
	cp := *p
	cp.ID = m.nextID
	m.positions = append(m.positions, &cp)
	return cp.ID, nil
}

func (m *memStore) BackfillDisplay(_ context.Context, mmsi uint32, before time.Time, lat, lon float64) (int64, error) {
	var n int64
	for _, p := range m.positions {
		if p.MMSI != mmsi || p.DisplayLat != nil || p.Timestamp.After(before) {
			continue
		}
		la, lo := lat, lon
		p.DisplayLat, p.DisplayLon = &la, &lo
		n++
	}
	return n, nil
}

func (m *memStore) LastValidPosition(_ context.Context, mmsi uint32) (*store.PositionRecord, error) {
	for i := len(m.positions) - 1; i >= 0; i-- {
		if p := m.positions[i]; p.MMSI == mmsi && p.Valid {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) Positions(_ context.Context, mmsi uint32, limit int) ([]*store.PositionRecord, error) {
	var out []*store.PositionRecord
	for _, p := range m.positions {
		if p.MMSI == mmsi && p.DisplayLat != nil {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStore) UpsertVessel(_ context.Context, v *store.VesselRecord) error {
	cp := *v
	m.vessels[v.MMSI] = &cp
	return nil
}

func (m *memStore) Vessel(_ context.Context, mmsi uint32) (*store.VesselRecord, error) {
	v, ok := m.vessels[mmsi]
	if !ok {
		return nil, nil
	}
	cp := *v
	return &cp, nil
}

func (m *memStore) PurgeVessel(_ context.Context, mmsi uint32) error {
	delete(m.vessels, mmsi)
	kept := m.positions[:0]
	for _, p := range m.positions {
		if p.MMSI != mmsi {
			kept = append(kept, p)
		}
	}
	m.positions = kept
	return nil
}

func (m *memStore) Close() error { return nil }

type trackerFixture struct {
	tracker  *Tracker
	store    *memStore
	registry *source.Registry
	sub      *broadcast.Subscriber
	sourceID string
}

func newTrackerFixture(t *testing.T) *trackerFixture {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	st := newMemStore()
	registry := source.NewRegistry()
	hub := broadcast.NewHub(logger, 64)
	sub := hub.Subscribe()
	t.Cleanup(sub.Close)

	src := registry.Create(source.TypeTCP, "test-feed")

	return &trackerFixture{
		tracker:  NewTracker(logger, st, registry, hub),
		store:    st,
		registry: registry,
		sub:      sub,
		sourceID: src.ID,
	}
}

func (f *trackerFixture) drainEvents() []broadcast.Event {
	var out []broadcast.Event
	for {
		select {
		case ev := <-f.sub.C:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func positionA(mmsi uint32, lat, lon float64) *ais.PositionReportA {
	return &ais.PositionReportA{
		Header: ais.Header{MsgType: 1, MMSI: mmsi},
		Lat:    lat,
		Lon:    lon,
	}
}

// TestTrackerValidFix tests the straight-line case: a valid fix stores raw
// as display and publishes
func TestTrackerValidFix(t *testing.T) {
	f := newTrackerFixture(t)
	ctx := context.Background()
	now := time.Now().UTC()

	err := f.tracker.HandleMessage(ctx, positionA(316001245, 45.25, -73.5), f.sourceID, false, now)
	require.NoError(t, err)

	require.Len(t, f.store.positions, 1)
	rec := f.store.positions[0]
	assert.True(t, rec.Valid)
	require.NotNil(t, rec.DisplayLat)
	assert.Equal(t, 45.25, *rec.DisplayLat)
	assert.Equal(t, -73.5, *rec.DisplayLon)

	events := f.drainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, broadcast.EventPosition, events[0].Type)

	ev := events[0].Payload.(PositionEvent)
	assert.Equal(t, "316001245", ev.MMSI)
	assert.True(t, ev.Valid)
	assert.Equal(t, 45.25, ev.Lat)
}

// TestTrackerForwardBackfill tests that the first valid fix repairs every
// earlier display-less record
func TestTrackerForwardBackfill(t *testing.T) {
	f := newTrackerFixture(t)
	ctx := context.Background()
	base := time.Now().UTC()

	// Two sentinel fixes before the receiver has a lock.
	require.NoError(t, f.tracker.HandleMessage(ctx, positionA(316001245, 91.0, 181.0), f.sourceID, false, base))
	require.NoError(t, f.tracker.HandleMessage(ctx, positionA(316001245, 91.0, 181.0), f.sourceID, false, base.Add(time.Second)))

	// Nothing publishable yet.
	assert.Empty(t, f.drainEvents())
	require.Len(t, f.store.positions, 2)
	assert.Nil(t, f.store.positions[0].DisplayLat)
	assert.Nil(t, f.store.positions[1].DisplayLat)

	// First valid fix.
	require.NoError(t, f.tracker.HandleMessage(ctx, positionA(316001245, 45.25, -73.5), f.sourceID, false, base.Add(2*time.Second)))

	require.Len(t, f.store.positions, 3)
	for i, rec := range f.store.positions {
		require.NotNil(t, rec.DisplayLat, "record %d", i)
		assert.Equal(t, 45.25, *rec.DisplayLat, "record %d", i)
		assert.Equal(t, -73.5, *rec.DisplayLon, "record %d", i)
	}

	// Raw coordinates and validity of the early records are untouched.
	assert.Equal(t, 91.0, f.store.positions[0].RawLat)
	assert.Equal(t, 181.0, f.store.positions[0].RawLon)
	assert.False(t, f.store.positions[0].Valid)
	assert.True(t, f.store.positions[2].Valid)
}

// TestTrackerBackwardLookup tests that an invalid fix after a valid one is
// rendered at the last known good position
func TestTrackerBackwardLookup(t *testing.T) {
	f := newTrackerFixture(t)
	ctx := context.Background()
	base := time.Now().UTC()

	require.NoError(t, f.tracker.HandleMessage(ctx, positionA(316001245, 45.25, -73.5), f.sourceID, false, base))
	f.drainEvents()

	require.NoError(t, f.tracker.HandleMessage(ctx, positionA(316001245, 91.0, 181.0), f.sourceID, false, base.Add(time.Second)))

	require.Len(t, f.store.positions, 2)
	rec := f.store.positions[1]
	assert.False(t, rec.Valid)
	assert.Equal(t, 91.0, rec.RawLat)
	require.NotNil(t, rec.DisplayLat)
	assert.Equal(t, 45.25, *rec.DisplayLat)
	assert.Equal(t, -73.5, *rec.DisplayLon)

	events := f.drainEvents()
	require.Len(t, events, 1)
	ev := events[0].Payload.(PositionEvent)
	assert.False(t, ev.Valid, "event keeps the invalid flag even though it renders")
	assert.Equal(t, 45.25, ev.Lat)
}

// TestTrackerSeedsFromStore tests that the backward lookup survives a
// restart by reloading the last valid fix
func TestTrackerSeedsFromStore(t *testing.T) {
	f := newTrackerFixture(t)
	ctx := context.Background()
	base := time.Now().UTC()

	lat, lon := 55.7, 12.5
	f.store.AppendPosition(ctx, &store.PositionRecord{
		MMSI: 219000606, SourceID: f.sourceID, Timestamp: base.Add(-time.Hour),
		RawLat: lat, RawLon: lon, DisplayLat: &lat, DisplayLon: &lon, Valid: true,
	})

	require.NoError(t, f.tracker.HandleMessage(ctx, positionA(219000606, 91.0, 181.0), f.sourceID, false, base))

	rec := f.store.positions[len(f.store.positions)-1]
	require.NotNil(t, rec.DisplayLat)
	assert.Equal(t, 55.7, *rec.DisplayLat)
}

// TestTrackerStaticMergeOrder tests last-write-wins ordering by message
// timestamp across out-of-order delivery
func TestTrackerStaticMergeOrder(t *testing.T) {
	f := newTrackerFixture(t)
	ctx := context.Background()
	base := time.Now().UTC()

	newer := &ais.StaticVoyageData{
		Header:   ais.Header{MsgType: 5, MMSI: 353136000},
		ShipName: "EVER GIVEN",
		ShipType: 70,
		IMO:      9811000,
	}
	older := &ais.StaticVoyageData{
		Header:   ais.Header{MsgType: 5, MMSI: 353136000},
		ShipName: "STALE NAME",
		ShipType: 60,
		IMO:      9811000,
	}

	require.NoError(t, f.tracker.HandleMessage(ctx, newer, f.sourceID, false, base.Add(time.Minute)))
	require.NoError(t, f.tracker.HandleMessage(ctx, older, f.sourceID, false, base))

	v := f.tracker.Vessel(353136000)
	require.NotNil(t, v)
	assert.Equal(t, "EVER GIVEN", v.Name, "older message must not regress the name")
	require.NotNil(t, v.ShipType)
	assert.Equal(t, 70, *v.ShipType)

	stored := f.store.vessels[353136000]
	require.NotNil(t, stored)
	assert.Equal(t, "EVER GIVEN", stored.Name)
}

// TestTrackerStaticDataReportParts tests merging the two halves of a type
// 24 report into one aggregate
func TestTrackerStaticDataReportParts(t *testing.T) {
	f := newTrackerFixture(t)
	ctx := context.Background()
	base := time.Now().UTC()

	partA := &ais.StaticDataReport{
		Header:     ais.Header{MsgType: 24, MMSI: 338111222},
		PartNumber: 0,
		ShipName:   "SEA BREEZE",
	}
	partB := &ais.StaticDataReport{
		Header:     ais.Header{MsgType: 24, MMSI: 338111222},
		PartNumber: 1,
		ShipType:   37,
		Callsign:   "WDF5678",
	}

	require.NoError(t, f.tracker.HandleMessage(ctx, partA, f.sourceID, false, base))
	require.NoError(t, f.tracker.HandleMessage(ctx, partB, f.sourceID, false, base.Add(time.Second)))

	v := f.tracker.Vessel(338111222)
	require.NotNil(t, v)
	assert.Equal(t, "SEA BREEZE", v.Name)
	assert.Equal(t, "WDF5678", v.Callsign)
	require.NotNil(t, v.ShipType)
	assert.Equal(t, 37, *v.ShipType)
}

// TestTrackerBaseStationLatch tests that the base station flag latches and
// never clears
func TestTrackerBaseStationLatch(t *testing.T) {
	f := newTrackerFixture(t)
	ctx := context.Background()
	base := time.Now().UTC()

	report := &ais.BaseStationReport{
		Header: ais.Header{MsgType: 4, MMSI: 2320717},
		Lat:    51.9, Lon: 4.5,
	}
	require.NoError(t, f.tracker.HandleMessage(ctx, report, f.sourceID, false, base))

	v := f.tracker.Vessel(2320717)
	require.NotNil(t, v)
	assert.True(t, v.BaseStation)

	// A later position report does not clear it.
	require.NoError(t, f.tracker.HandleMessage(ctx, positionA(2320717, 51.9, 4.5), f.sourceID, false, base.Add(time.Second)))
	assert.True(t, f.tracker.Vessel(2320717).BaseStation)
}

// TestTrackerBaseStationMMSIPattern tests that a 00-prefixed MMSI latches
// the flag even without a type 4 report
func TestTrackerBaseStationMMSIPattern(t *testing.T) {
	f := newTrackerFixture(t)
	ctx := context.Background()

	require.NoError(t, f.tracker.HandleMessage(ctx, positionA(2320717, 51.9, 4.5), f.sourceID, false, time.Now().UTC()))
	v := f.tracker.Vessel(2320717)
	require.NotNil(t, v)
	assert.True(t, v.BaseStation, "MMSI 002320717 matches the coast station pattern")

	require.NoError(t, f.tracker.HandleMessage(ctx, positionA(316001245, 45.0, -73.0), f.sourceID, false, time.Now().UTC()))
	assert.False(t, f.tracker.Vessel(316001245).BaseStation)
}

// TestTrackerOwnShipReference tests that a valid VDO fix becomes the
// source's spoofing baseline and flags distant traffic
func TestTrackerOwnShipReference(t *testing.T) {
	f := newTrackerFixture(t)
	ctx := context.Background()
	base := time.Now().UTC()

	// Own ship anchors the source near Rotterdam.
	require.NoError(t, f.tracker.HandleMessage(ctx, positionA(244660000, 51.9225, 4.47917), f.sourceID, true, base))
	f.drainEvents()

	ref, limit, ok := f.registry.SpoofBaseline(f.sourceID)
	require.True(t, ok)
	assert.Equal(t, 51.9225, ref.Lat)
	assert.Equal(t, source.DefaultSpoofLimitKM, limit)

	// A vessel reporting from the Baltic through the same receiver is
	// physically implausible.
	require.NoError(t, f.tracker.HandleMessage(ctx, positionA(265547250, 57.7, 11.97), f.sourceID, false, base.Add(time.Second)))
	events := f.drainEvents()
	require.Len(t, events, 1)
	assert.True(t, events[0].Payload.(PositionEvent).Spoofed)

	// Nearby traffic is fine.
	require.NoError(t, f.tracker.HandleMessage(ctx, positionA(244123456, 51.95, 4.3), f.sourceID, false, base.Add(2*time.Second)))
	events = f.drainEvents()
	require.Len(t, events, 1)
	assert.False(t, events[0].Payload.(PositionEvent).Spoofed)
}

// TestTrackerInvalidOwnShipFixIsNoBaseline tests that a sentinel VDO fix
// never becomes a reference
func TestTrackerInvalidOwnShipFixIsNoBaseline(t *testing.T) {
	f := newTrackerFixture(t)
	ctx := context.Background()

	require.NoError(t, f.tracker.HandleMessage(ctx, positionA(244660000, 91.0, 181.0), f.sourceID, true, time.Now().UTC()))

	_, _, ok := f.registry.SpoofBaseline(f.sourceID)
	assert.False(t, ok)
}

// TestTrackerVesselInfoEvent tests the vessel_info broadcast contents
func TestTrackerVesselInfoEvent(t *testing.T) {
	f := newTrackerFixture(t)
	ctx := context.Background()

	msg := &ais.StaticVoyageData{
		Header:      ais.Header{MsgType: 5, MMSI: 353136000},
		ShipName:    "EVER GIVEN",
		Callsign:    "H3RC",
		IMO:         9811000,
		ShipType:    70,
		Destination: "ROTTERDAM",
		ETA:         ais.ETA{Month: 6, Day: 15, Hour: 9, Minute: 30},
	}
	require.NoError(t, f.tracker.HandleMessage(ctx, msg, f.sourceID, false, time.Now().UTC()))

	events := f.drainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, broadcast.EventVesselInfo, events[0].Type)

	ev := events[0].Payload.(VesselInfoEvent)
	assert.Equal(t, "353136000", ev.MMSI)
	assert.Equal(t, "EVER GIVEN", ev.Name)
	assert.Equal(t, "Cargo", ev.ShipTypeText)
	assert.Equal(t, "06-15 09:30", ev.ETA)
	assert.Equal(t, "Panama", ev.Country)
	assert.Equal(t, []string{f.sourceID}, ev.Sources)
}

// TestTrackerPerSourceAttribution tests that one vessel accumulates all
// contributing sources
func TestTrackerPerSourceAttribution(t *testing.T) {
	f := newTrackerFixture(t)
	ctx := context.Background()
	other := f.registry.Create(source.TypeUDP, "second-feed")

	require.NoError(t, f.tracker.HandleMessage(ctx, positionA(316001245, 45.0, -73.0), f.sourceID, false, time.Now().UTC()))
	require.NoError(t, f.tracker.HandleMessage(ctx, positionA(316001245, 45.1, -73.1), other.ID, false, time.Now().UTC()))

	v := f.tracker.Vessel(316001245)
	require.NotNil(t, v)
	assert.Len(t, v.SourceIDs(), 2)
}
