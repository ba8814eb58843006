package ais

// Header carries the fields common to every AIS message.
type Header struct {
	MsgType int
	Repeat  int
	MMSI    uint32
}

func (h Header) Type() int { return h.MsgType }

func (h Header) UserID() uint32 { return h.MMSI }

// Message is the closed set of decoded AIS variants this pipeline handles.
// Each variant carries exactly the fields its message type defines; a field
// whose on-air value is the type's "not available" sentinel decodes to a nil
// pointer, never to the raw sentinel number.
type Message interface {
	Type() int
	UserID() uint32
}

// PositionReportA is a class A position report, types 1-3.
type PositionReportA struct {
	Header
	NavStatus  int
	RateOfTurn *int
	Speed      *float64
	Accuracy   bool
	Lon        float64 // degrees as received; 181 when the sender has no fix
	Lat        float64 // degrees as received; 91 when the sender has no fix
	Course     *float64
	Heading    *int
	Second     int
	RAIM       bool
}

// BaseStationReport is a type 4 report. Base stations report a full UTC
// timestamp and fix metadata and carry no motion fields at all.
type BaseStationReport struct {
	Header
	Year, Month, Day     int
	Hour, Minute, Second int
	Accuracy             bool
	Lon                  float64
	Lat                  float64
	EPFD                 int
	RAIM                 bool
}

// ETA is the voyage estimated time of arrival as encoded on air (month and
// day may be zero, meaning not available).
type ETA struct {
	Month, Day, Hour, Minute int
}

// StaticVoyageData is a type 5 static-and-voyage report.
type StaticVoyageData struct {
	Header
	AISVersion   int
	IMO          uint32
	Callsign     string
	ShipName     string
	ShipType     int
	DimBow       int
	DimStern     int
	DimPort      int
	DimStarboard int
	EPFD         int
	ETA          ETA
	Draught      float64
	Destination  string
}

// ClassBStatic is the static block a type 19 extended report carries on top
// of the class B position fields.
type ClassBStatic struct {
	ShipName     string
	ShipType     int
	DimBow       int
	DimStern     int
	DimPort      int
	DimStarboard int
	EPFD         int
}

// PositionReportB covers class B position reports, types 18 and 19.
// Extended is nil for type 18; type 19 populates it with its static block.
type PositionReportB struct {
	Header
	Speed    *float64
	Accuracy bool
	Lon      float64
	Lat      float64
	Course   *float64
	Heading  *int
	Second   int
	RAIM     bool
	Extended *ClassBStatic
}

// AidToNavigation is a type 21 aid-to-navigation report.
type AidToNavigation struct {
	Header
	AidType      int
	Name         string
	Accuracy     bool
	Lon          float64
	Lat          float64
	DimBow       int
	DimStern     int
	DimPort      int
	DimStarboard int
	EPFD         int
	Second       int
	OffPosition  bool
	RAIM         bool
	VirtualAid   bool
}

// StaticDataReport is a type 24 report. Part A carries the vessel name,
// part B the callsign, ship type and dimensions; the two halves arrive as
// separate transmissions keyed by PartNumber.
type StaticDataReport struct {
	Header
	PartNumber int

	// Part A
	ShipName string

	// Part B
	ShipType     int
	VendorID     string
	Callsign     string
	DimBow       int
	DimStern     int
	DimPort      int
	DimStarboard int
}
