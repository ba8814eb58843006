package track

import "time"

// PositionEvent is the payload of a "position" broadcast. Lat/Lon are the
// resolved display coordinates; Valid distinguishes a real fix from a
// record rendered at its backward-lookup position.
type PositionEvent struct {
	MMSI      string    `json:"mmsi"`
	SourceID  string    `json:"source_id"`
	Timestamp time.Time `json:"timestamp"`
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	Valid     bool      `json:"position_valid"`
	Speed     *float64  `json:"speed,omitempty"`
	Course    *float64  `json:"course,omitempty"`
	Heading   *int      `json:"heading,omitempty"`
	NavStatus *int      `json:"nav_status,omitempty"`
	Spoofed   bool      `json:"spoofed"`
}

// VesselInfoEvent is the payload of a "vessel_info" broadcast.
type VesselInfoEvent struct {
	MMSI         string   `json:"mmsi"`
	Name         string   `json:"name,omitempty"`
	Callsign     string   `json:"callsign,omitempty"`
	IMO          uint32   `json:"imo,omitempty"`
	ShipType     *int     `json:"ship_type,omitempty"`
	ShipTypeText string   `json:"ship_type_text,omitempty"`
	Destination  string   `json:"destination,omitempty"`
	ETA          string   `json:"eta,omitempty"`
	Country      string   `json:"country,omitempty"`
	BaseStation  bool     `json:"is_base_station"`
	Sources      []string `json:"sources"`
}
