package ics

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	appLog "officemove/internal/log"
	"officemove/internal/metrics"
	"officemove/internal/model"
)

const (
	MediaType       = "text/calendar; charset=utf-8"
	DefaultFilename = "office-move.ics"
)

// Download is the (bytes, media type, filename) triple handed to whatever
// makes the file available to the user.
type Download struct {
	Body      []byte
	MediaType string
	Filename  string
}

// Offerer makes a Download available to the user.
type Offerer interface {
	Offer(ctx context.Context, d Download) error
}

// NewDownload serializes ev with enc and packages it as office-move.ics.
func NewDownload(enc *Encoder, ev model.CalendarEvent, exportedAt time.Time) (Download, error) {
	if err := ev.Validate(); err != nil {
		return Download{}, err
	}
	if enc == nil {
		enc = NewEncoder(false)
	}
	return Download{
		Body:      []byte(enc.Serialize(ev, exportedAt)),
		MediaType: MediaType,
		Filename:  DefaultFilename,
	}, nil
}

// FileOfferer writes downloads into Dir.
//
// The body goes to a temp file in Dir first, which is removed on every exit
// path; the final file only appears through an atomic rename.
type FileOfferer struct {
	Dir string
}

// Path returns where a download with the given name will be written.
func (f FileOfferer) Path(name string) string {
	if name == "" {
		name = DefaultFilename
	}
	return filepath.Join(f.dir(), filepath.Base(name))
}

// Offer implements Offerer.
func (f FileOfferer) Offer(ctx context.Context, d Download) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(d.Body) == 0 {
		return errors.New("ics: empty download body")
	}

	dir := f.dir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ics: create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".officemove-*.ics.tmp")
	if err != nil {
		return fmt.Errorf("ics: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(d.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("ics: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("ics: close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}

	dest := f.Path(d.Filename)
	if err := os.Rename(tmpName, dest); err != nil {
		return fmt.Errorf("ics: move into place: %w", err)
	}

	metrics.ICSExports.WithLabelValues("file").Inc()
	appLog.Info("ics written", "path", dest, "bytes", len(d.Body))
	return nil
}

func (f FileOfferer) dir() string {
	if f.Dir == "" {
		return "."
	}
	return f.Dir
}
