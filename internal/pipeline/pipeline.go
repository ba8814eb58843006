// Package pipeline drives one source's line stream through framing,
// reassembly, decode and vessel tracking. Every adapter owns exactly one
// Pipeline, so fragment groups from different sources can never mix.
package pipeline

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"aistrackd/internal/ais"
	"aistrackd/internal/nmea"
	"aistrackd/internal/source"
	"aistrackd/internal/track"
)

// Pipeline processes raw NMEA lines for a single registered source.
type Pipeline struct {
	logger    *logrus.Logger
	registry  *source.Registry
	tracker   *track.Tracker
	assembler *nmea.Assembler
	sourceID  string
	capture   io.Writer

	// last assembler incomplete count already reported to the registry
	incompleteSeen uint64

	clock func() time.Time
}

// New builds a pipeline for one source. capture may be nil; when set, every
// received line is written through it before any parsing.
func New(logger *logrus.Logger, registry *source.Registry, tracker *track.Tracker, sourceID string, capture io.Writer) *Pipeline {
	return &Pipeline{
		logger:    logger,
		registry:  registry,
		tracker:   tracker,
		assembler: nmea.NewAssembler(logger, nmea.DefaultGroupTTL),
		sourceID:  sourceID,
		capture:   capture,
		clock:     time.Now,
	}
}

// ProcessLine handles one line stamped with the current wall clock.
func (p *Pipeline) ProcessLine(ctx context.Context, line string) error {
	return p.ProcessLineAt(ctx, line, p.clock().UTC())
}

// ProcessLineAt handles one line with an externally supplied receive time,
// used by the file adapter for timestamped replay logs.
//
// Per-line problems (bad checksum, malformed fields, undecodable payloads)
// are counted against the source and swallowed; only a tracker failure, which
// means the store is down, surfaces as an error.
func (p *Pipeline) ProcessLineAt(ctx context.Context, line string, ts time.Time) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	if !p.registry.Active(p.sourceID) {
		return nil
	}
	if p.capture != nil {
		io.WriteString(p.capture, line+"\n")
	}
	if line[0] != '!' && line[0] != '$' {
		// Interleaved non-NMEA chatter, common on shared serial lines.
		return nil
	}

	s, err := nmea.ParseSentence(line)
	if err != nil {
		p.registry.RecordFramingDrop(p.sourceID)
		p.logger.WithFields(logrus.Fields{
			"source": p.sourceID,
			"line":   line,
		}).WithError(err).Debug("Dropped unparseable sentence")
		return nil
	}
	p.registry.RecordMessage(p.sourceID, ts)

	full, ok := p.assembler.Add(s)
	p.reportIncomplete()
	if !ok {
		return nil
	}

	msg, err := ais.Decode(full.Payload, full.FillBits)
	if err != nil {
		p.registry.RecordDecodeError(p.sourceID)
		p.logger.WithFields(logrus.Fields{
			"source": p.sourceID,
		}).WithError(err).Debug("Dropped undecodable payload")
		return nil
	}

	return p.tracker.HandleMessage(ctx, msg, p.sourceID, full.OwnShip, messageTime(msg, ts))
}

// Pending reports fragment groups still waiting for fragments.
func (p *Pipeline) Pending() int {
	return p.assembler.Pending()
}

func (p *Pipeline) reportIncomplete() {
	if n := p.assembler.Incomplete(); n > p.incompleteSeen {
		p.registry.RecordIncomplete(p.sourceID, n-p.incompleteSeen)
		p.incompleteSeen = n
	}
}

// messageTime reconciles the receive time with the time the message itself
// carries. Base station reports carry a full UTC timestamp and win outright
// when plausible; position reports carry only the UTC second, so the receive
// time is snapped to the nearest minute boundary that matches it.
func messageTime(msg ais.Message, ts time.Time) time.Time {
	switch m := msg.(type) {
	case *ais.BaseStationReport:
		if m.Year > 0 && m.Month >= 1 && m.Month <= 12 && m.Day >= 1 && m.Day <= 31 &&
			m.Hour < 24 && m.Minute < 60 && m.Second < 60 {
			return time.Date(m.Year, time.Month(m.Month), m.Day, m.Hour, m.Minute, m.Second, 0, time.UTC)
		}
	case *ais.PositionReportA:
		return snapSecond(ts, m.Second)
	case *ais.PositionReportB:
		return snapSecond(ts, m.Second)
	case *ais.AidToNavigation:
		return snapSecond(ts, m.Second)
	}
	return ts
}

// snapSecond replaces the wall-clock second with the transmitted UTC second,
// picking whichever surrounding minute lands closest to the receive time.
// Values 60 and above mean the second is unavailable.
func snapSecond(ts time.Time, sec int) time.Time {
	if sec < 0 || sec > 59 {
		return ts
	}
	base := ts.Truncate(time.Minute).Add(time.Duration(sec) * time.Second)
	best := base
	for _, cand := range []time.Time{base.Add(-time.Minute), base.Add(time.Minute)} {
		if absDuration(cand.Sub(ts)) < absDuration(best.Sub(ts)) {
			best = cand
		}
	}
	return best
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
