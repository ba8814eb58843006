package ingest

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/sirupsen/logrus"

	"aistrackd/internal/pipeline"
)

// maxDatagram comfortably fits any burst of NMEA sentences one sender packs
// into a single datagram.
const maxDatagram = 4096

// UDPAdapter listens for NMEA datagrams. A datagram may carry several
// newline-separated sentences; each is processed independently.
type UDPAdapter struct {
	logger *logrus.Logger
	pipe   *pipeline.Pipeline
	addr   string
}

func NewUDPAdapter(logger *logrus.Logger, pipe *pipeline.Pipeline, addr string) *UDPAdapter {
	return &UDPAdapter{logger: logger, pipe: pipe, addr: addr}
}

func (a *UDPAdapter) Run(ctx context.Context) error {
	conn, err := net.ListenPacket("udp", a.addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	a.logger.WithField("addr", conn.LocalAddr().String()).Info("Listening for UDP feed")

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	buf := make([]byte, maxDatagram)
	for {
		n, _, err := conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			a.logger.WithError(err).Warn("UDP read failed")
			continue
		}
		for _, line := range strings.Split(string(buf[:n]), "\n") {
			if err := a.pipe.ProcessLine(ctx, line); err != nil {
				return err
			}
		}
	}
}
