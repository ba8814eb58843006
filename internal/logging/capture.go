// Package logging holds the raw capture writer: a daily-rotated, gzip
// archived record of every NMEA line the daemon receives, suitable for
// replay through the file adapter.
package logging

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Capture is an io.Writer appending raw NMEA lines to a per-day file.
// Rotation happens inline on the first write of a new UTC day; the closed
// day's file is gzipped in the background.
type Capture struct {
	dir    string
	logger *logrus.Logger

	mu          sync.Mutex
	currentFile *os.File
	currentDate string
}

// NewCapture opens the capture directory and today's file.
func NewCapture(dir string, logger *logrus.Logger) (*Capture, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create capture directory: %w", err)
	}

	c := &Capture{dir: dir, logger: logger}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.rotate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Write appends raw bytes to the current day's file, rotating first when the
// UTC date has changed since the last write.
func (c *Capture) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if today := time.Now().UTC().Format("2006-01-02"); today != c.currentDate {
		if err := c.rotate(); err != nil {
			return 0, err
		}
	}
	if c.currentFile == nil {
		return 0, fmt.Errorf("capture writer is closed")
	}
	return c.currentFile.Write(p)
}

// CurrentFile returns the path of the file currently being written.
func (c *Capture) CurrentFile() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.currentDate == "" {
		return ""
	}
	return c.filePath(c.currentDate)
}

// Files lists all capture files in the directory, archived ones included.
func (c *Capture) Files() ([]string, error) {
	files, err := filepath.Glob(filepath.Join(c.dir, "nmea_*.log*"))
	if err != nil {
		return nil, fmt.Errorf("failed to list capture files: %w", err)
	}
	return files, nil
}

// CleanupOld removes capture files older than maxDays, skipping the file
// currently in use.
func (c *Capture) CleanupOld(maxDays int) error {
	if maxDays <= 0 {
		return fmt.Errorf("maxDays must be positive")
	}

	files, err := c.Files()
	if err != nil {
		return err
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -maxDays)
	current := c.CurrentFile()

	removed := 0
	for _, file := range files {
		if file == current {
			continue
		}
		info, err := os.Stat(file)
		if err != nil {
			c.logger.WithError(err).WithField("file", file).Warn("Failed to stat capture file")
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(file); err != nil {
				c.logger.WithError(err).WithField("file", file).Error("Failed to remove old capture file")
				continue
			}
			removed++
		}
	}
	if removed > 0 {
		c.logger.WithField("count", removed).Info("Removed old capture files")
	}
	return nil
}

// Close flushes and closes the current file.
func (c *Capture) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.currentFile == nil {
		return nil
	}
	err := c.currentFile.Close()
	c.currentFile = nil
	return err
}

// rotate closes the current file, schedules its compression, and opens the
// file for the current UTC day. Caller holds c.mu.
func (c *Capture) rotate() error {
	if c.currentFile != nil {
		oldDate := c.currentDate
		if err := c.currentFile.Close(); err != nil {
			c.logger.WithError(err).Error("Failed to close capture file")
		}
		go c.compress(oldDate)
	}

	date := time.Now().UTC().Format("2006-01-02")
	path := c.filePath(date)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open capture file %s: %w", path, err)
	}

	c.currentFile = file
	c.currentDate = date
	c.logger.WithField("file", path).Info("Opened capture file")
	return nil
}

func (c *Capture) filePath(date string) string {
	return filepath.Join(c.dir, fmt.Sprintf("nmea_%s.log", date))
}

// compress gzips a closed day's file and removes the original.
func (c *Capture) compress(date string) {
	src := c.filePath(date)
	dst := src + ".gz"

	in, err := os.Open(src)
	if err != nil {
		if !os.IsNotExist(err) {
			c.logger.WithError(err).WithField("file", src).Error("Failed to open capture file for compression")
		}
		return
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		c.logger.WithError(err).WithField("file", dst).Error("Failed to create archive file")
		return
	}
	defer out.Close()

	gz := gzip.NewWriter(out)
	gz.Name = filepath.Base(src)
	gz.ModTime = time.Now()

	if _, err := io.Copy(gz, in); err != nil {
		c.logger.WithError(err).Error("Failed to compress capture file")
		return
	}
	if err := gz.Close(); err != nil {
		c.logger.WithError(err).Error("Failed to finish archive")
		return
	}
	if err := os.Remove(src); err != nil {
		c.logger.WithError(err).WithField("file", src).Error("Failed to remove archived capture file")
		return
	}
	c.logger.WithField("file", dst).Info("Archived capture file")
}
