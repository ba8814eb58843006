package app

// Default configuration constants
const (
	DefaultListenAddr   = ":8090"
	DefaultDBPath       = "./aistrack.db"
	DefaultSpoofLimitKM = 50.0
)

// Config holds application configuration
type Config struct {
	TCPAddrs      []string
	UDPAddrs      []string
	SerialDevices []string
	BaudRate      uint
	ReplayFiles   []string
	DBPath        string
	ListenAddr    string
	SpoofLimitKM  float64
	CaptureDir    string
	Verbose       bool
	ShowVersion   bool
}
