package ingest

import (
	"bufio"
	"context"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"aistrackd/internal/pipeline"
	"aistrackd/internal/source"
)

// logTimeLayout is the receive-time prefix replay logs may carry in front of
// each sentence.
const logTimeLayout = "2006-01-02 15:04:05"

// FileAdapter replays a recorded NMEA log. Lines prefixed with a
// "YYYY-MM-DD HH:MM:SS " receive time are processed at that time; bare
// sentences fall back to the wall clock. The source is marked complete when
// the file is exhausted.
type FileAdapter struct {
	logger   *logrus.Logger
	pipe     *pipeline.Pipeline
	registry *source.Registry
	sourceID string
	path     string
}

func NewFileAdapter(logger *logrus.Logger, pipe *pipeline.Pipeline, registry *source.Registry, sourceID, path string) *FileAdapter {
	return &FileAdapter{
		logger:   logger,
		pipe:     pipe,
		registry: registry,
		sourceID: sourceID,
		path:     path,
	}
}

func (a *FileAdapter) Run(ctx context.Context) error {
	f, err := os.Open(a.path)
	if err != nil {
		return err
	}
	defer f.Close()

	a.logger.WithField("path", a.path).Info("Replaying NMEA log")

	var lines int
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, ts, ok := splitLogLine(scanner.Text())
		if ok {
			err = a.pipe.ProcessLineAt(ctx, line, ts)
		} else {
			err = a.pipe.ProcessLine(ctx, line)
		}
		if err != nil {
			return err
		}
		lines++
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	a.registry.MarkComplete(a.sourceID)
	a.logger.WithFields(logrus.Fields{
		"path":  a.path,
		"lines": lines,
	}).Info("Replay complete")
	return nil
}

// splitLogLine strips the receive-time prefix when present.
func splitLogLine(line string) (string, time.Time, bool) {
	if len(line) < len(logTimeLayout)+2 {
		return line, time.Time{}, false
	}
	ts, err := time.ParseInLocation(logTimeLayout, line[:len(logTimeLayout)], time.UTC)
	if err != nil || line[len(logTimeLayout)] != ' ' {
		return line, time.Time{}, false
	}
	return line[len(logTimeLayout)+1:], ts, true
}
