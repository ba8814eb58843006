package track

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestValidRange tests the geographic range rule, sentinels included
func TestValidRange(t *testing.T) {
	tests := []struct {
		name  string
		lat   float64
		lon   float64
		valid bool
	}{
		{name: "mid ocean", lat: 45.25, lon: -73.5, valid: true},
		{name: "null island is a real place", lat: 0, lon: 0, valid: true},
		{name: "north pole", lat: 90, lon: 0, valid: true},
		{name: "south pole", lat: -90, lon: 0, valid: true},
		{name: "antimeridian east", lat: 0, lon: 180, valid: true},
		{name: "antimeridian west", lat: 0, lon: -180, valid: true},
		{name: "latitude sentinel", lat: 91, lon: 0, valid: false},
		{name: "longitude sentinel", lat: 0, lon: 181, valid: false},
		{name: "both sentinels", lat: 91, lon: 181, valid: false},
		{name: "latitude under range", lat: -90.0001, lon: 0, valid: false},
		{name: "longitude under range", lat: 0, lon: -180.0001, valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, ValidRange(tt.lat, tt.lon))
		})
	}
}

// TestPublishable tests that display coordinates gate publishability
func TestPublishable(t *testing.T) {
	lat, lon := 45.0, -73.0

	assert.False(t, (&Position{}).Publishable())
	assert.False(t, (&Position{DisplayLat: &lat}).Publishable())
	assert.True(t, (&Position{DisplayLat: &lat, DisplayLon: &lon}).Publishable())
}
