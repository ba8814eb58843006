// Package store is the persistence boundary of the pipeline. The tracker
// depends on these operations abstractly; SQLite is the shipped
// implementation.
package store

import (
	"context"
	"time"
)

// PositionRecord is one stored fix. RawLat/RawLon hold the coordinates as
// received, sentinel values included, and are never mutated after insert.
// DisplayLat/DisplayLon are the renderable coordinates: either both set and
// in valid range, or both nil. A record whose display coordinates are nil is
// retained for audit and backfill but is invisible to vessel-facing reads.
type PositionRecord struct {
	ID         int64
	MMSI       uint32
	SourceID   string
	Timestamp  time.Time
	RawLat     float64
	RawLon     float64
	DisplayLat *float64
	DisplayLon *float64
	Valid      bool
	Speed      *float64
	Course     *float64
	Heading    *int
	NavStatus  *int
}

// VesselRecord is the persisted vessel aggregate.
type VesselRecord struct {
	MMSI        uint32
	Name        string
	Callsign    string
	IMO         uint32
	ShipType    *int
	Destination string
	ETA         string
	Country     string
	BaseStation bool
	LastSeen    time.Time
}

// Store is the set of persistence operations the core pipeline needs.
type Store interface {
	// AppendPosition inserts a fix and returns its id.
	AppendPosition(ctx context.Context, p *PositionRecord) (int64, error)

	// BackfillDisplay sets display coordinates on every position of the
	// vessel that lacks them, up to the given time. Raw coordinates
	// and the valid flag are untouched. Returns the number of repaired rows.
	BackfillDisplay(ctx context.Context, mmsi uint32, before time.Time, lat, lon float64) (int64, error)

	// LastValidPosition returns the most recent position with a valid fix,
	// or nil if the vessel has none yet.
	LastValidPosition(ctx context.Context, mmsi uint32) (*PositionRecord, error)

	// Positions returns the vessel's publishable track, oldest first.
	// Records without display coordinates are excluded.
	Positions(ctx context.Context, mmsi uint32, limit int) ([]*PositionRecord, error)

	// UpsertVessel creates or replaces the vessel aggregate row.
	UpsertVessel(ctx context.Context, v *VesselRecord) error

	// Vessel returns the stored aggregate, or nil when unknown.
	Vessel(ctx context.Context, mmsi uint32) (*VesselRecord, error)

	// PurgeVessel removes a vessel and all of its positions. This is the
	// explicit external delete operation; ingestion never calls it.
	PurgeVessel(ctx context.Context, mmsi uint32) error

	Close() error
}
