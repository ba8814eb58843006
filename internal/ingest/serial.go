package ingest

import (
	"bufio"
	"context"
	"io"
	"time"

	"github.com/jacobsa/go-serial/serial"
	"github.com/sirupsen/logrus"

	"aistrackd/internal/pipeline"
)

// DefaultBaudRate matches the NMEA-0183 base rate. High-speed AIS receivers
// usually run 38400; pass it explicitly.
const DefaultBaudRate = 9600

// SerialAdapter reads NMEA lines from a local serial port, reopening the
// port after transient failures.
type SerialAdapter struct {
	logger *logrus.Logger
	pipe   *pipeline.Pipeline
	device string
	baud   uint
}

func NewSerialAdapter(logger *logrus.Logger, pipe *pipeline.Pipeline, device string, baud uint) *SerialAdapter {
	if baud == 0 {
		baud = DefaultBaudRate
	}
	return &SerialAdapter{logger: logger, pipe: pipe, device: device, baud: baud}
}

func (a *SerialAdapter) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		port, err := serial.Open(serial.OpenOptions{
			PortName:        a.device,
			BaudRate:        a.baud,
			DataBits:        8,
			StopBits:        1,
			ParityMode:      serial.PARITY_NONE,
			MinimumReadSize: 1,
		})
		if err != nil {
			a.logger.WithFields(logrus.Fields{
				"device": a.device,
				"baud":   a.baud,
			}).WithError(err).Warn("Failed to open serial port")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(5 * time.Second):
			}
			continue
		}

		a.logger.WithFields(logrus.Fields{
			"device": a.device,
			"baud":   a.baud,
		}).Info("Serial port opened")

		err = a.consume(ctx, port)
		port.Close()
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		a.logger.WithField("device", a.device).Warn("Serial port closed, reopening")
	}
}

func (a *SerialAdapter) consume(ctx context.Context, port io.Reader) error {
	scanner := bufio.NewScanner(port)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil
		}
		if err := a.pipe.ProcessLine(ctx, scanner.Text()); err != nil {
			return err
		}
	}
	return nil
}
