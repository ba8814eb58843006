package track

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"aistrackd/internal/ais"
	"aistrackd/internal/broadcast"
	"aistrackd/internal/source"
	"aistrackd/internal/store"
)

// shardCount spreads per-MMSI locks so unrelated vessels never contend.
const shardCount = 32

type shard struct {
	mu      sync.Mutex
	vessels map[uint32]*Vessel
}

// Tracker merges decoded messages into per-MMSI vessel state, runs the
// position validity / backfill engine, persists through the store, and
// publishes accepted updates to the hub.
//
// All mutation for one MMSI is serialized through its shard lock; the store
// write, the backfill patch and the last-valid-position update happen under
// it, so concurrent adapters can never race on the same vessel. Events are
// published while the lock is held, which is what preserves per-MMSI
// ordering across sources.
type Tracker struct {
	logger   *logrus.Logger
	store    store.Store
	registry *source.Registry
	hub      *broadcast.Hub

	shards [shardCount]shard
}

// NewTracker wires the tracker to its collaborators.
func NewTracker(logger *logrus.Logger, st store.Store, registry *source.Registry, hub *broadcast.Hub) *Tracker {
	t := &Tracker{
		logger:   logger,
		store:    st,
		registry: registry,
		hub:      hub,
	}
	for i := range t.shards {
		t.shards[i].vessels = make(map[uint32]*Vessel)
	}
	return t
}

func (t *Tracker) shardFor(mmsi uint32) *shard {
	return &t.shards[mmsi%shardCount]
}

// Vessel returns a snapshot of the aggregate, or nil when unknown.
func (t *Tracker) Vessel(mmsi uint32) *Vessel {
	sh := t.shardFor(mmsi)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	v, ok := sh.vessels[mmsi]
	if !ok {
		return nil
	}
	return v.snapshot()
}

// Vessels returns snapshots of every tracked aggregate.
func (t *Tracker) Vessels() []*Vessel {
	var out []*Vessel
	for i := range t.shards {
		sh := &t.shards[i]
		sh.mu.Lock()
		for _, v := range sh.vessels {
			out = append(out, v.snapshot())
		}
		sh.mu.Unlock()
	}
	return out
}

// SpoofedNow computes the read-time spoof annotation for a vessel: true when
// any contributing source with an own-ship reference sees the vessel's
// current display position beyond its limit.
func (t *Tracker) SpoofedNow(v *Vessel) bool {
	if v == nil || v.LastPosition == nil || !v.LastPosition.Publishable() {
		return false
	}
	for id := range v.Sources {
		ref, limit, ok := t.registry.SpoofBaseline(id)
		if !ok {
			continue
		}
		if Spoofed(*v.LastPosition.DisplayLat, *v.LastPosition.DisplayLon, ref.Lat, ref.Lon, limit) {
			return true
		}
	}
	return false
}

// HandleMessage merges one decoded message from a source. Per-message decode
// problems never reach here; an error from HandleMessage means the store is
// unavailable and escalates to the adapter.
func (t *Tracker) HandleMessage(ctx context.Context, msg ais.Message, sourceID string, ownShip bool, ts time.Time) error {
	mmsi := msg.UserID()
	sh := t.shardFor(mmsi)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	v, err := t.getOrCreate(ctx, sh, mmsi)
	if err != nil {
		return err
	}
	v.Sources[sourceID] = struct{}{}
	if ts.After(v.LastSeen) {
		v.LastSeen = ts
	}

	switch m := msg.(type) {
	case *ais.PositionReportA:
		nav := m.NavStatus
		return t.handlePosition(ctx, v, &Position{
			MMSI:      mmsi,
			SourceID:  sourceID,
			Timestamp: ts,
			RawLat:    m.Lat,
			RawLon:    m.Lon,
			Speed:     m.Speed,
			Course:    m.Course,
			Heading:   m.Heading,
			NavStatus: &nav,
		}, ownShip)

	case *ais.BaseStationReport:
		t.latchBaseStation(ctx, v)
		return t.handlePosition(ctx, v, &Position{
			MMSI:      mmsi,
			SourceID:  sourceID,
			Timestamp: ts,
			RawLat:    m.Lat,
			RawLon:    m.Lon,
		}, ownShip)

	case *ais.StaticVoyageData:
		return t.mergeStatic(ctx, v, ts, func(v *Vessel) {
			v.Name = m.ShipName
			v.Callsign = m.Callsign
			v.IMO = m.IMO
			shipType := m.ShipType
			v.ShipType = &shipType
			v.Destination = m.Destination
			v.ETA = formatETA(m.ETA)
		})

	case *ais.PositionReportB:
		if m.Extended != nil {
			if err := t.mergeStatic(ctx, v, ts, func(v *Vessel) {
				v.Name = m.Extended.ShipName
				shipType := m.Extended.ShipType
				v.ShipType = &shipType
			}); err != nil {
				return err
			}
		}
		return t.handlePosition(ctx, v, &Position{
			MMSI:      mmsi,
			SourceID:  sourceID,
			Timestamp: ts,
			RawLat:    m.Lat,
			RawLon:    m.Lon,
			Speed:     m.Speed,
			Course:    m.Course,
			Heading:   m.Heading,
		}, ownShip)

	case *ais.AidToNavigation:
		if err := t.mergeStatic(ctx, v, ts, func(v *Vessel) {
			v.Name = m.Name
		}); err != nil {
			return err
		}
		return t.handlePosition(ctx, v, &Position{
			MMSI:      mmsi,
			SourceID:  sourceID,
			Timestamp: ts,
			RawLat:    m.Lat,
			RawLon:    m.Lon,
		}, ownShip)

	case *ais.StaticDataReport:
		return t.mergeStatic(ctx, v, ts, func(v *Vessel) {
			if m.PartNumber == 0 {
				if m.ShipName != "" {
					v.Name = m.ShipName
				}
				return
			}
			v.Callsign = m.Callsign
			shipType := m.ShipType
			v.ShipType = &shipType
		})
	}

	t.logger.WithFields(logrus.Fields{
		"mmsi": ais.FormatMMSI(mmsi),
		"type": msg.Type(),
	}).Debug("No merge rule for message type")
	return nil
}

// getOrCreate returns the live aggregate for the MMSI, creating it on first
// sight and seeding the last-valid-position pointer from the store so the
// backward lookup survives restarts.
func (t *Tracker) getOrCreate(ctx context.Context, sh *shard, mmsi uint32) (*Vessel, error) {
	if v, ok := sh.vessels[mmsi]; ok {
		return v, nil
	}

	v := &Vessel{
		MMSI:        mmsi,
		Country:     ais.Country(mmsi),
		BaseStation: ais.IsBaseStationMMSI(mmsi),
		Sources:     make(map[string]struct{}),
	}

	last, err := t.store.LastValidPosition(ctx, mmsi)
	if err != nil {
		return nil, fmt.Errorf("failed to load last valid position: %w", err)
	}
	if last != nil {
		v.hasValidFix = true
		v.LastPosition = &Position{
			MMSI:       mmsi,
			SourceID:   last.SourceID,
			Timestamp:  last.Timestamp,
			RawLat:     last.RawLat,
			RawLon:     last.RawLon,
			DisplayLat: last.DisplayLat,
			DisplayLon: last.DisplayLon,
			Valid:      true,
		}
	}

	sh.vessels[mmsi] = v
	return v, nil
}

// handlePosition runs the validity / backfill engine for one fix and
// publishes it when it ends up renderable.
func (t *Tracker) handlePosition(ctx context.Context, v *Vessel, pos *Position, ownShip bool) error {
	valid := ValidRange(pos.RawLat, pos.RawLon)
	pos.Valid = valid

	if valid {
		lat, lon := pos.RawLat, pos.RawLon
		pos.DisplayLat, pos.DisplayLon = &lat, &lon
		if ownShip {
			t.registry.SetReference(pos.SourceID, lat, lon)
		}
	} else if v.LastPosition != nil && v.LastPosition.Publishable() {
		// Backward lookup: render the invalid fix at the last known good
		// position. The record itself stays marked invalid.
		lat, lon := *v.LastPosition.DisplayLat, *v.LastPosition.DisplayLon
		pos.DisplayLat, pos.DisplayLon = &lat, &lon
	}

	if _, err := t.store.AppendPosition(ctx, positionRecord(pos)); err != nil {
		return fmt.Errorf("failed to store position: %w", err)
	}

	if valid {
		firstFix := !v.hasValidFix
		v.hasValidFix = true
		v.LastPosition = pos

		if firstFix {
			// Forward backfill: every earlier record without display
			// coordinates is rendered at this first fix. Raw coordinates
			// and the valid flag stay untouched.
			n, err := t.store.BackfillDisplay(ctx, v.MMSI, pos.Timestamp, pos.RawLat, pos.RawLon)
			if err != nil {
				return fmt.Errorf("failed to backfill positions: %w", err)
			}
			if n > 0 {
				t.logger.WithFields(logrus.Fields{
					"mmsi":     ais.FormatMMSI(v.MMSI),
					"repaired": n,
				}).Info("Backfilled display coordinates from first valid fix")
			}
		}
	}

	if pos.Publishable() {
		t.publishPosition(pos)
	}
	return nil
}

func (t *Tracker) publishPosition(pos *Position) {
	ev := PositionEvent{
		MMSI:      ais.FormatMMSI(pos.MMSI),
		SourceID:  pos.SourceID,
		Timestamp: pos.Timestamp,
		Lat:       *pos.DisplayLat,
		Lon:       *pos.DisplayLon,
		Valid:     pos.Valid,
		Speed:     pos.Speed,
		Course:    pos.Course,
		Heading:   pos.Heading,
		NavStatus: pos.NavStatus,
	}
	if ref, limit, ok := t.registry.SpoofBaseline(pos.SourceID); ok {
		ev.Spoofed = Spoofed(ev.Lat, ev.Lon, ref.Lat, ref.Lon, limit)
	}
	t.hub.Publish(broadcast.Event{
		Type:    broadcast.EventPosition,
		MMSI:    ev.MMSI,
		Payload: ev,
	})
}

// mergeStatic applies a static-data update last-write-wins by message
// timestamp, persists the aggregate, and publishes a vessel_info event.
// An older message than the newest already merged is dropped silently.
func (t *Tracker) mergeStatic(ctx context.Context, v *Vessel, ts time.Time, apply func(*Vessel)) error {
	if ts.Before(v.lastStatic) {
		return nil
	}
	v.lastStatic = ts
	apply(v)
	return t.persistAndAnnounce(ctx, v)
}

// latchBaseStation sets the permanent base-station flag and announces the
// change the first time it flips.
func (t *Tracker) latchBaseStation(ctx context.Context, v *Vessel) {
	if v.BaseStation {
		return
	}
	v.BaseStation = true
	if err := t.persistAndAnnounce(ctx, v); err != nil {
		t.logger.WithError(err).Warn("Failed to persist base station flag")
	}
}

func (t *Tracker) persistAndAnnounce(ctx context.Context, v *Vessel) error {
	if err := t.store.UpsertVessel(ctx, &store.VesselRecord{
		MMSI:        v.MMSI,
		Name:        v.Name,
		Callsign:    v.Callsign,
		IMO:         v.IMO,
		ShipType:    v.ShipType,
		Destination: v.Destination,
		ETA:         v.ETA,
		Country:     v.Country,
		BaseStation: v.BaseStation,
		LastSeen:    v.LastSeen,
	}); err != nil {
		return fmt.Errorf("failed to persist vessel: %w", err)
	}

	ev := VesselInfoEvent{
		MMSI:        ais.FormatMMSI(v.MMSI),
		Name:        v.Name,
		Callsign:    v.Callsign,
		IMO:         v.IMO,
		ShipType:    v.ShipType,
		Destination: v.Destination,
		ETA:         v.ETA,
		Country:     v.Country,
		BaseStation: v.BaseStation,
		Sources:     v.SourceIDs(),
	}
	if v.ShipType != nil {
		ev.ShipTypeText = ais.ShipTypeText(*v.ShipType)
	}
	t.hub.Publish(broadcast.Event{
		Type:    broadcast.EventVesselInfo,
		MMSI:    ev.MMSI,
		Payload: ev,
	})
	return nil
}

func positionRecord(p *Position) *store.PositionRecord {
	return &store.PositionRecord{
		MMSI:       p.MMSI,
		SourceID:   p.SourceID,
		Timestamp:  p.Timestamp,
		RawLat:     p.RawLat,
		RawLon:     p.RawLon,
		DisplayLat: p.DisplayLat,
		DisplayLon: p.DisplayLon,
		Valid:      p.Valid,
		Speed:      p.Speed,
		Course:     p.Course,
		Heading:    p.Heading,
		NavStatus:  p.NavStatus,
	}
}

func formatETA(eta ais.ETA) string {
	if eta.Month == 0 && eta.Day == 0 {
		return ""
	}
	return fmt.Sprintf("%02d-%02d %02d:%02d", eta.Month, eta.Day, eta.Hour, eta.Minute)
}
