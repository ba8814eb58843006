package track

import (
	"sort"
	"time"
)

// Vessel is the per-MMSI aggregate. Exactly one exists per MMSI; positions
// from every contributing source attach to it. All mutation happens under
// the owning shard's lock.
type Vessel struct {
	MMSI        uint32
	Name        string
	Callsign    string
	IMO         uint32
	ShipType    *int
	Destination string
	ETA         string
	Country     string

	// BaseStation latches true on a type 4 report or a coast-station MMSI
	// pattern and is never cleared.
	BaseStation bool

	// Sources accumulates every source id that has contributed a message.
	Sources map[string]struct{}

	// LastPosition always points at the most recent position with a valid
	// fix, or is nil before the first one. It never points at a sentinel
	// fix.
	LastPosition *Position

	LastSeen time.Time

	// lastStatic orders static-data merges by message timestamp so
	// out-of-order multi-source delivery cannot regress newer fields.
	lastStatic time.Time

	// hasValidFix is the backfill state machine: false = NO_VALID_FIX_YET,
	// true = HAS_VALID_FIX.
	hasValidFix bool
}

// SourceIDs returns the contributing sources in stable order.
func (v *Vessel) SourceIDs() []string {
	ids := make([]string, 0, len(v.Sources))
	for id := range v.Sources {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// snapshot returns a copy safe to hand out after the shard lock is released.
func (v *Vessel) snapshot() *Vessel {
	c := *v
	c.Sources = make(map[string]struct{}, len(v.Sources))
	for id := range v.Sources {
		c.Sources[id] = struct{}{}
	}
	if v.LastPosition != nil {
		p := *v.LastPosition
		c.LastPosition = &p
	}
	return &c
}
