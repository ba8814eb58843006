package app

import (
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"aistrackd/internal/ais"
	"aistrackd/internal/track"
)

type vesselResponse struct {
	track.VesselInfoEvent
	LastSeen time.Time            `json:"last_seen"`
	Position *track.PositionEvent `json:"position,omitempty"`
	Spoofed  bool                 `json:"spoofed"`
}

type sourceResponse struct {
	ID              string     `json:"id"`
	Type            string     `json:"type"`
	Name            string     `json:"name"`
	Status          string     `json:"status"`
	SpoofLimitKM    float64    `json:"spoof_limit_km"`
	CreatedAt       time.Time  `json:"created_at"`
	LastMessage     *time.Time `json:"last_message,omitempty"`
	MessageCount    uint64     `json:"message_count"`
	FramingDrops    uint64     `json:"framing_drops"`
	IncompleteCount uint64     `json:"incomplete_count"`
	DecodeErrors    uint64     `json:"decode_errors"`
	Complete        bool       `json:"complete"`
}

// handleVessels serves the current snapshot of every tracked vessel.
func (app *Application) handleVessels(w http.ResponseWriter, r *http.Request) {
	vessels := app.tracker.Vessels()
	sort.Slice(vessels, func(i, j int) bool { return vessels[i].MMSI < vessels[j].MMSI })

	out := make([]vesselResponse, 0, len(vessels))
	for _, v := range vessels {
		resp := vesselResponse{
			VesselInfoEvent: track.VesselInfoEvent{
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
			},
			LastSeen: v.LastSeen,
			Spoofed:  app.tracker.SpoofedNow(v),
		}
		if v.ShipType != nil {
			resp.ShipTypeText = ais.ShipTypeText(*v.ShipType)
		}
		if p := v.LastPosition; p != nil && p.Publishable() {
			resp.Position = &track.PositionEvent{
				MMSI:      resp.MMSI,
				SourceID:  p.SourceID,
				Timestamp: p.Timestamp,
				Lat:       *p.DisplayLat,
				Lon:       *p.DisplayLon,
				Valid:     p.Valid,
				Speed:     p.Speed,
				Course:    p.Course,
				Heading:   p.Heading,
				NavStatus: p.NavStatus,
				Spoofed:   resp.Spoofed,
			}
		}
		out = append(out, resp)
	}
	writeJSON(w, out)
}

// handleSources serves the registry snapshot with per-source counters.
func (app *Application) handleSources(w http.ResponseWriter, r *http.Request) {
	srcs := app.registry.List()
	out := make([]sourceResponse, 0, len(srcs))
	for _, s := range srcs {
		resp := sourceResponse{
			ID:              s.ID,
			Type:            s.Type,
			Name:            s.Name,
			Status:          s.Status,
			SpoofLimitKM:    s.SpoofLimitKM,
			CreatedAt:       s.CreatedAt,
			MessageCount:    s.MessageCount,
			FramingDrops:    s.FramingDrops,
			IncompleteCount: s.IncompleteCount,
			DecodeErrors:    s.DecodeErrors,
			Complete:        s.Complete,
		}
		if !s.LastMessage.IsZero() {
			t := s.LastMessage
			resp.LastMessage = &t
		}
		out = append(out, resp)
	}
	writeJSON(w, out)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
