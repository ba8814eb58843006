package nmea

import (
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultGroupTTL bounds how long an incomplete fragment group is buffered.
const DefaultGroupTTL = 5 * time.Second

type groupKey struct {
	groupID string
	channel string
}

type fragmentGroup struct {
	fragments []*Sentence // indexed by FragmentIndex-1
	received  int
	started   time.Time
}

// Assembler reassembles multi-fragment sentence groups keyed by
// (sequential message id, radio channel). Fragments are concatenated in
// index order once indices 1..FragmentCount have all arrived. Groups that
// sit incomplete past the TTL are discarded and counted; a fragment arriving
// after its group was discarded simply opens a fresh group.
//
// An Assembler belongs to a single ingest session and is not safe for
// concurrent use; sentences within one adapter arrive in order.
type Assembler struct {
	logger     *logrus.Logger
	ttl        time.Duration
	groups     map[groupKey]*fragmentGroup
	incomplete uint64

	now func() time.Time // test hook
}

// NewAssembler creates an assembler with the given group TTL.
// A non-positive ttl selects DefaultGroupTTL.
func NewAssembler(logger *logrus.Logger, ttl time.Duration) *Assembler {
	if ttl <= 0 {
		ttl = DefaultGroupTTL
	}
	return &Assembler{
		logger: logger,
		ttl:    ttl,
		groups: make(map[groupKey]*fragmentGroup),
		now:    time.Now,
	}
}

// Add feeds one parsed sentence in. Single-fragment sentences are returned
// immediately. A multi-fragment sentence is buffered; when it completes its
// group, Add returns a synthetic sentence carrying the concatenated payload
// and the final fragment's fill bits, and the group is forgotten (a duplicate
// trailing fragment therefore never completes a second time).
func (a *Assembler) Add(s *Sentence) (*Sentence, bool) {
	a.expire(a.now())

	if s.FragmentCount == 1 {
		return s, true
	}

	key := groupKey{groupID: s.GroupID, channel: s.Channel}
	g, ok := a.groups[key]
	if !ok || len(g.fragments) != s.FragmentCount {
		g = &fragmentGroup{
			fragments: make([]*Sentence, s.FragmentCount),
			started:   a.now(),
		}
		a.groups[key] = g
	}

	if g.fragments[s.FragmentIndex-1] == nil {
		g.received++
	}
	g.fragments[s.FragmentIndex-1] = s

	if g.received < s.FragmentCount {
		return nil, false
	}
	delete(a.groups, key)

	var payload strings.Builder
	for _, frag := range g.fragments {
		payload.WriteString(frag.Payload)
	}
	last := g.fragments[len(g.fragments)-1]
	first := g.fragments[0]

	return &Sentence{
		Talker:        first.Talker,
		FragmentCount: 1,
		FragmentIndex: 1,
		GroupID:       first.GroupID,
		Channel:       first.Channel,
		Payload:       payload.String(),
		FillBits:      last.FillBits,
		OwnShip:       first.OwnShip || last.OwnShip,
		Raw:           first.Raw,
	}, true
}

// Incomplete reports how many fragment groups have been discarded on TTL
// expiry since the assembler was created.
func (a *Assembler) Incomplete() uint64 {
	return a.incomplete
}

// Pending reports how many fragment groups are currently buffered.
func (a *Assembler) Pending() int {
	return len(a.groups)
}

func (a *Assembler) expire(now time.Time) {
	for key, g := range a.groups {
		if now.Sub(g.started) <= a.ttl {
			continue
		}
		a.incomplete++
		delete(a.groups, key)
		a.logger.WithFields(logrus.Fields{
			"group_id": key.groupID,
			"channel":  key.channel,
			"received": g.received,
			"expected": len(g.fragments),
		}).Debug("Discarding incomplete fragment group")
	}
}
