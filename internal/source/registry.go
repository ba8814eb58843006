package source

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned for operations on an unknown source id.
var ErrNotFound = errors.New("source not found")

// Transport types.
const (
	TypeTCP    = "tcp"
	TypeUDP    = "udp"
	TypeSerial = "serial"
	TypeFile   = "file"
)

// Status values.
const (
	StatusActive   = "active"
	StatusDisabled = "disabled"
)

// DefaultSpoofLimitKM applies when a source is created without an explicit
// spoofing radius.
const DefaultSpoofLimitKM = 50.0

// Reference is an own-ship (VDO) position reported by the receiving station
// behind a source, used as the spoofing baseline.
type Reference struct {
	Lat float64
	Lon float64
}

// Source describes one ingest session: a TCP/UDP/serial stream or an
// uploaded file. Counter and status mutation goes through the Registry so
// readers never observe a torn write.
type Source struct {
	ID           string
	Type         string
	Name         string
	Status       string
	SpoofLimitKM float64
	CreatedAt    time.Time
	LastMessage  time.Time

	MessageCount    uint64
	FramingDrops    uint64
	IncompleteCount uint64
	DecodeErrors    uint64

	Complete  bool // file sources: fully processed
	Reference *Reference
}

// Registry is the shared table of sources. All fields of a Source are read
// and written under the registry lock; accessors hand out copies.
type Registry struct {
	mu      sync.RWMutex
	sources map[string]*Source
}

func NewRegistry() *Registry {
	return &Registry{sources: make(map[string]*Source)}
}

// Create registers a new active source and returns its id.
func (r *Registry) Create(transport, name string) *Source {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := &Source{
		ID:           uuid.NewString(),
		Type:         transport,
		Name:         name,
		Status:       StatusActive,
		SpoofLimitKM: DefaultSpoofLimitKM,
		CreatedAt:    time.Now().UTC(),
	}
	r.sources[s.ID] = s
	snap := *s
	return &snap
}

// Get returns a snapshot of the source, or ErrNotFound.
func (r *Registry) Get(id string) (*Source, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sources[id]
	if !ok {
		return nil, ErrNotFound
	}
	snap := *s
	if s.Reference != nil {
		ref := *s.Reference
		snap.Reference = &ref
	}
	return &snap, nil
}

// List returns snapshots of all sources.
func (r *Registry) List() []*Source {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Source, 0, len(r.sources))
	for _, s := range r.sources {
		snap := *s
		if s.Reference != nil {
			ref := *s.Reference
			snap.Reference = &ref
		}
		out = append(out, &snap)
	}
	return out
}

// Active reports whether the source exists and is accepting traffic.
func (r *Registry) Active(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sources[id]
	return ok && s.Status == StatusActive
}

// Disable halts further ingestion from the source. Disabling an already
// disabled source is a no-op; stored data is never retracted.
func (r *Registry) Disable(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sources[id]
	if !ok {
		return ErrNotFound
	}
	s.Status = StatusDisabled
	return nil
}

// Enable re-activates a disabled source.
func (r *Registry) Enable(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sources[id]
	if !ok {
		return ErrNotFound
	}
	s.Status = StatusActive
	return nil
}

// Delete removes the source record. Vessel/position data contributed by the
// source stays; purging it is a separate, explicit storage operation.
func (r *Registry) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sources, id)
}

// SetSpoofLimit updates the spoofing radius for a source.
func (r *Registry) SetSpoofLimit(id string, km float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sources[id]
	if !ok {
		return ErrNotFound
	}
	s.SpoofLimitKM = km
	return nil
}

// SetReference records the source's own-ship position, making it a spoofing
// baseline for every vessel the source contributes.
func (r *Registry) SetReference(id string, lat, lon float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sources[id]; ok {
		s.Reference = &Reference{Lat: lat, Lon: lon}
	}
}

// SpoofBaseline returns the source's reference position and limit, if it has
// one. Sources that never emitted VDO traffic return ok=false.
func (r *Registry) SpoofBaseline(id string) (ref Reference, limitKM float64, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, found := r.sources[id]
	if !found || s.Reference == nil {
		return Reference{}, 0, false
	}
	return *s.Reference, s.SpoofLimitKM, true
}

// MarkComplete flags a file source as fully processed.
func (r *Registry) MarkComplete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sources[id]; ok {
		s.Complete = true
	}
}

// RecordMessage bumps the accepted-message counter.
func (r *Registry) RecordMessage(id string, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sources[id]; ok {
		s.MessageCount++
		s.LastMessage = at
	}
}

// RecordFramingDrop counts a checksum or framing rejection.
func (r *Registry) RecordFramingDrop(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sources[id]; ok {
		s.FramingDrops++
	}
}

// RecordIncomplete counts an expired fragment group.
func (r *Registry) RecordIncomplete(id string, n uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sources[id]; ok {
		s.IncompleteCount += n
	}
}

// RecordDecodeError counts an unsupported or truncated payload.
func (r *Registry) RecordDecodeError(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sources[id]; ok {
		s.DecodeErrors++
	}
}
