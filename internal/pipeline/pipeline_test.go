package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aistrackd/internal/ais"
	"aistrackd/internal/broadcast"
	"aistrackd/internal/nmea"
	"aistrackd/internal/source"
	"aistrackd/internal/store"
	"aistrackd/internal/track"
)

type pipelineFixture struct {
	pipe     *Pipeline
	registry *source.Registry
	tracker  *track.Tracker
	sub      *broadcast.Subscriber
	sourceID string
}

func newPipelineFixture(t *testing.T) *pipelineFixture {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	st, err := store.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	registry := source.NewRegistry()
	hub := broadcast.NewHub(logger, 64)
	sub := hub.Subscribe()
	t.Cleanup(sub.Close)

	tracker := track.NewTracker(logger, st, registry, hub)
	src := registry.Create(source.TypeTCP, "test-feed")

	return &pipelineFixture{
		pipe:     New(logger, registry, tracker, src.ID, nil),
		registry: registry,
		tracker:  tracker,
		sub:      sub,
		sourceID: src.ID,
	}
}

func (f *pipelineFixture) counters(t *testing.T) *source.Source {
	t.Helper()
	s, err := f.registry.Get(f.sourceID)
	require.NoError(t, err)
	return s
}

// TestPipelineOwnShipSentence tests the full path for a single-fragment VDO
// base station report
func TestPipelineOwnShipSentence(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()

	err := f.pipe.ProcessLine(ctx, "!ABVDO,1,1,,B,4>kvmbiuHO969Rvgn<:CUW?P0<0m,0*4D")
	require.NoError(t, err)

	assert.Equal(t, uint64(1), f.counters(t).MessageCount)

	v := f.tracker.Vessel(994031019)
	require.NotNil(t, v)
	assert.True(t, v.BaseStation)
	require.NotNil(t, v.LastPosition)
	assert.InDelta(t, 18.01114, *v.LastPosition.DisplayLat, 1e-4)
	assert.InDelta(t, 41.66945, *v.LastPosition.DisplayLon, 1e-4)

	// The VDO fix became the source's spoofing baseline.
	ref, _, ok := f.registry.SpoofBaseline(f.sourceID)
	require.True(t, ok)
	assert.InDelta(t, 18.01114, ref.Lat, 1e-4)
}

// TestPipelineMultiFragment tests reassembly and decode of a two-part type
// 5 static report
func TestPipelineMultiFragment(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()

	require.NoError(t, f.pipe.ProcessLine(ctx,
		"!AIVDM,2,1,3,B,55P5TL01VIaAL@7WKO@mBplU@<PDhh000000001S;AJ::4A80?4i@E53,0*3E"))
	assert.Nil(t, f.tracker.Vessel(369190000), "nothing decodes until the group completes")

	require.NoError(t, f.pipe.ProcessLine(ctx, "!AIVDM,2,2,3,B,1@0000000000000,2*55"))

	v := f.tracker.Vessel(369190000)
	require.NotNil(t, v)
	assert.Equal(t, "MT.MITCHELL", v.Name)
	assert.Equal(t, "WDA9674", v.Callsign)
	assert.Equal(t, "SEATTLE", v.Destination)
	require.NotNil(t, v.ShipType)
	assert.Equal(t, 99, *v.ShipType)
	assert.Equal(t, uint32(6710932), v.IMO)

	ev := <-f.sub.C
	assert.Equal(t, broadcast.EventVesselInfo, ev.Type)
	assert.Equal(t, "369190000", ev.MMSI)
}

// TestPipelineCounts tests that per-line problems are counted, not fatal
func TestPipelineCounts(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()

	// Non-NMEA chatter is ignored outright.
	require.NoError(t, f.pipe.ProcessLine(ctx, "GPS ready"))
	require.NoError(t, f.pipe.ProcessLine(ctx, ""))
	assert.Equal(t, uint64(0), f.counters(t).MessageCount)
	assert.Equal(t, uint64(0), f.counters(t).FramingDrops)

	// Framing damage counts against the source.
	require.NoError(t, f.pipe.ProcessLine(ctx, "!ABVDO,1,1,,B,4>kvmbiuHO969Rvgn<:CUW?P0<0m,0*00"))
	assert.Equal(t, uint64(1), f.counters(t).FramingDrops)
	assert.Equal(t, uint64(0), f.counters(t).MessageCount)

	// An unparseable payload counts as accepted framing but a decode error.
	require.NoError(t, f.pipe.ProcessLine(ctx, "!AIVDM,1,1,,A,1,0*17"))
	s := f.counters(t)
	assert.Equal(t, uint64(1), s.MessageCount)
	assert.Equal(t, uint64(1), s.DecodeErrors)

	// Message types we do not track count the same way.
	require.NoError(t, f.pipe.ProcessLine(ctx, "!AIVDM,1,1,,A,8000000,0*1E"))
	s = f.counters(t)
	assert.Equal(t, uint64(2), s.MessageCount)
	assert.Equal(t, uint64(2), s.DecodeErrors)
}

// TestPipelineDisabledSource tests that a disabled source drops everything
// silently
func TestPipelineDisabledSource(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()

	require.NoError(t, f.registry.Disable(f.sourceID))
	require.NoError(t, f.pipe.ProcessLine(ctx, "!ABVDO,1,1,,B,4>kvmbiuHO969Rvgn<:CUW?P0<0m,0*4D"))

	assert.Equal(t, uint64(0), f.counters(t).MessageCount)
	assert.Nil(t, f.tracker.Vessel(994031019))
}

// TestPipelineIncompleteGroupCounting tests TTL expiry surfacing in the
// source counters
func TestPipelineIncompleteGroupCounting(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()

	// Shrink the TTL so the buffered group expires immediately.
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	f.pipe.assembler = nmea.NewAssembler(logger, time.Nanosecond)

	require.NoError(t, f.pipe.ProcessLine(ctx,
		"!AIVDM,2,1,3,B,55P5TL01VIaAL@7WKO@mBplU@<PDhh000000001S;AJ::4A80?4i@E53,0*3E"))
	assert.Equal(t, 1, f.pipe.Pending())

	// The next processed line triggers the expiry sweep.
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, f.pipe.ProcessLine(ctx, "!ABVDO,1,1,,B,4>kvmbiuHO969Rvgn<:CUW?P0<0m,0*4D"))

	assert.Equal(t, 0, f.pipe.Pending())
	assert.Equal(t, uint64(1), f.counters(t).IncompleteCount)
}

// TestMessageTime tests receive-time reconciliation with on-air timestamps
func TestMessageTime(t *testing.T) {
	recv := time.Date(2026, 8, 29, 10, 15, 58, 0, time.UTC)

	t.Run("base station full UTC wins", func(t *testing.T) {
		got := messageTime(&ais.BaseStationReport{
			Year: 2026, Month: 8, Day: 29, Hour: 10, Minute: 16, Second: 2,
		}, recv)
		assert.Equal(t, time.Date(2026, 8, 29, 10, 16, 2, 0, time.UTC), got)
	})

	t.Run("implausible base station timestamp falls back", func(t *testing.T) {
		got := messageTime(&ais.BaseStationReport{Month: 13, Day: 40}, recv)
		assert.Equal(t, recv, got)
	})

	t.Run("position report second is snapped", func(t *testing.T) {
		got := messageTime(&ais.PositionReportA{Second: 2}, recv)
		assert.Equal(t, time.Date(2026, 8, 29, 10, 16, 2, 0, time.UTC), got)
	})
}

// TestSnapSecond tests minute-boundary snapping of the transmitted second
func TestSnapSecond(t *testing.T) {
	tests := []struct {
		name string
		recv time.Time
		sec  int
		want time.Time
	}{
		{
			name: "same minute",
			recv: time.Date(2026, 8, 29, 10, 15, 30, 0, time.UTC),
			sec:  33,
			want: time.Date(2026, 8, 29, 10, 15, 33, 0, time.UTC),
		},
		{
			name: "second from previous minute",
			recv: time.Date(2026, 8, 29, 10, 16, 1, 0, time.UTC),
			sec:  58,
			want: time.Date(2026, 8, 29, 10, 15, 58, 0, time.UTC),
		},
		{
			name: "second from next minute",
			recv: time.Date(2026, 8, 29, 10, 15, 59, 0, time.UTC),
			sec:  2,
			want: time.Date(2026, 8, 29, 10, 16, 2, 0, time.UTC),
		},
		{
			name: "not available passes through",
			recv: time.Date(2026, 8, 29, 10, 15, 59, 0, time.UTC),
			sec:  60,
			want: time.Date(2026, 8, 29, 10, 15, 59, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, snapSecond(tt.recv, tt.sec))
		})
	}
}
