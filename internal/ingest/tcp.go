package ingest

import (
	"bufio"
	"context"
	"net"
	"time"

	"github.com/sirupsen/logrus"

	"aistrackd/internal/pipeline"
)

const (
	dialTimeout    = 10 * time.Second
	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second
)

// TCPAdapter connects to a remote NMEA feed and reconnects with exponential
// backoff whenever the connection drops.
type TCPAdapter struct {
	logger *logrus.Logger
	pipe   *pipeline.Pipeline
	addr   string
}

func NewTCPAdapter(logger *logrus.Logger, pipe *pipeline.Pipeline, addr string) *TCPAdapter {
	return &TCPAdapter{logger: logger, pipe: pipe, addr: addr}
}

func (a *TCPAdapter) Run(ctx context.Context) error {
	backoff := initialBackoff
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		conn, err := (&net.Dialer{Timeout: dialTimeout}).DialContext(ctx, "tcp", a.addr)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			a.logger.WithFields(logrus.Fields{
				"addr":  a.addr,
				"retry": backoff,
			}).WithError(err).Warn("TCP connect failed")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			if backoff *= 2; backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}

		a.logger.WithField("addr", a.addr).Info("Connected to TCP feed")
		backoff = initialBackoff

		if err := a.consume(ctx, conn); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		a.logger.WithField("addr", a.addr).Warn("TCP feed disconnected, reconnecting")
	}
}

func (a *TCPAdapter) consume(ctx context.Context, conn net.Conn) error {
	defer conn.Close()

	// Unblock the scanner when the context is cancelled.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		if err := a.pipe.ProcessLine(ctx, scanner.Text()); err != nil {
			return err
		}
	}
	return nil
}
