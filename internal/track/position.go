package track

import "time"

// ValidRange is the sole definition of a valid fix: both coordinates inside
// the geographic range. The AIS "no fix" sentinels (lat 91, lon 181) fall
// outside it by construction.
func ValidRange(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// Position is one fix flowing through the tracker. RawLat/RawLon are the
// coordinates as received and are never rewritten. DisplayLat/DisplayLon are
// what renders on a map: both set and in range, or both nil. A position with
// nil display coordinates is retained for audit and later backfill but is
// not publishable.
type Position struct {
	MMSI      uint32
	SourceID  string
	Timestamp time.Time

	RawLat, RawLon float64
	DisplayLat     *float64
	DisplayLon     *float64
	Valid          bool

	Speed     *float64
	Course    *float64
	Heading   *int
	NavStatus *int
}

// Publishable reports whether the position carries display coordinates.
func (p *Position) Publishable() bool {
	return p.DisplayLat != nil && p.DisplayLon != nil
}
