package nmea

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAssembler(ttl time.Duration) *Assembler {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewAssembler(logger, ttl)
}

func fragment(count, index int, groupID, channel, payload string, fillBits int) *Sentence {
	return &Sentence{
		Talker:        "AIVDM",
		FragmentCount: count,
		FragmentIndex: index,
		GroupID:       groupID,
		Channel:       channel,
		Payload:       payload,
		FillBits:      fillBits,
	}
}

// TestAssemblerSingleFragment tests that single-fragment sentences pass
// straight through
func TestAssemblerSingleFragment(t *testing.T) {
	a := newTestAssembler(0)

	s := fragment(1, 1, "", "A", "14eG;o@0", 0)
	out, ok := a.Add(s)
	require.True(t, ok)
	assert.Same(t, s, out)
	assert.Equal(t, 0, a.Pending())
}

// TestAssemblerTwoFragments tests in-order reassembly of a two-part group
func TestAssemblerTwoFragments(t *testing.T) {
	a := newTestAssembler(0)

	out, ok := a.Add(fragment(2, 1, "3", "B", "55P5TL01VIaAL@7WKO@mBplU@", 0))
	require.False(t, ok)
	assert.Nil(t, out)
	assert.Equal(t, 1, a.Pending())

	out, ok = a.Add(fragment(2, 2, "3", "B", "1@0000000000000", 2))
	require.True(t, ok)
	require.NotNil(t, out)

	assert.Equal(t, "55P5TL01VIaAL@7WKO@mBplU@1@0000000000000", out.Payload)
	assert.Equal(t, 2, out.FillBits, "fill bits must come from the final fragment")
	assert.Equal(t, 1, out.FragmentCount)
	assert.Equal(t, 0, a.Pending())
}

// TestAssemblerOutOfOrder tests that fragment arrival order does not matter
func TestAssemblerOutOfOrder(t *testing.T) {
	a := newTestAssembler(0)

	_, ok := a.Add(fragment(2, 2, "7", "A", "TAIL", 4))
	require.False(t, ok)

	out, ok := a.Add(fragment(2, 1, "7", "A", "HEAD", 0))
	require.True(t, ok)
	assert.Equal(t, "HEADTAIL", out.Payload)
	assert.Equal(t, 4, out.FillBits)
}

// TestAssemblerDuplicateFinalFragment tests that a repeated trailing
// fragment cannot complete the same group twice
func TestAssemblerDuplicateFinalFragment(t *testing.T) {
	a := newTestAssembler(0)

	a.Add(fragment(2, 1, "5", "B", "HEAD", 0))
	last := fragment(2, 2, "5", "B", "TAIL", 0)

	_, ok := a.Add(last)
	require.True(t, ok)

	// The duplicate opens a fresh group instead of re-completing.
	out, ok := a.Add(last)
	assert.False(t, ok)
	assert.Nil(t, out)
	assert.Equal(t, 1, a.Pending())
}

// TestAssemblerChannelsAreDistinctGroups tests that the same group id on
// different channels never mixes
func TestAssemblerChannelsAreDistinctGroups(t *testing.T) {
	a := newTestAssembler(0)

	_, ok := a.Add(fragment(2, 1, "1", "A", "AAAA", 0))
	require.False(t, ok)
	_, ok = a.Add(fragment(2, 1, "1", "B", "BBBB", 0))
	require.False(t, ok)
	assert.Equal(t, 2, a.Pending())

	out, ok := a.Add(fragment(2, 2, "1", "B", "bbbb", 0))
	require.True(t, ok)
	assert.Equal(t, "BBBBbbbb", out.Payload)
}

// TestAssemblerTTLExpiry tests that a stale group is discarded and counted
func TestAssemblerTTLExpiry(t *testing.T) {
	a := newTestAssembler(5 * time.Second)

	now := time.Now()
	a.now = func() time.Time { return now }

	_, ok := a.Add(fragment(2, 1, "9", "A", "HEAD", 0))
	require.False(t, ok)
	assert.Equal(t, uint64(0), a.Incomplete())

	// Past the TTL the group is gone; the late tail opens a new group and
	// the loss is counted.
	now = now.Add(6 * time.Second)
	out, ok := a.Add(fragment(2, 2, "9", "A", "TAIL", 0))
	assert.False(t, ok)
	assert.Nil(t, out)
	assert.Equal(t, uint64(1), a.Incomplete())
	assert.Equal(t, 1, a.Pending())
}

// TestAssemblerFreshGroupOnCountMismatch tests that a conflicting fragment
// count restarts the group
func TestAssemblerFreshGroupOnCountMismatch(t *testing.T) {
	a := newTestAssembler(0)

	_, ok := a.Add(fragment(3, 1, "2", "A", "X", 0))
	require.False(t, ok)

	_, ok = a.Add(fragment(2, 1, "2", "A", "HEAD", 0))
	require.False(t, ok)

	out, ok := a.Add(fragment(2, 2, "2", "A", "TAIL", 0))
	require.True(t, ok)
	assert.Equal(t, "HEADTAIL", out.Payload)
}
