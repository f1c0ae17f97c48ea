package ics

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"

	appLog "calpin/internal/log"
	"calpin/internal/model"
)

// Lister returns every stored event.
type Lister interface {
	List(ctx context.Context) ([]model.Event, error)
}

// Snapshot writes the full feed to a file so it can be served statically.
type Snapshot struct {
	events  Lister
	path    string
	opts    ExportOptions
	timeout time.Duration
}

// NewSnapshot returns a writer for path.
func NewSnapshot(events Lister, path string, opts ExportOptions) *Snapshot {
	return &Snapshot{events: events, path: path, opts: opts, timeout: 30 * time.Second}
}

// Write exports every event and replaces the target file atomically.
func (s *Snapshot) Write(ctx context.Context) error {
	if s.path == "" {
		return errors.New("snapshot path is empty")
	}
	events, err := s.events.List(ctx)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(s.path, []byte(Export(events, s.opts))); err != nil {
		return err
	}
	appLog.Info("ics snapshot written", "path", s.path, "event_count", len(events))
	return nil
}

// Schedule registers Write on c under the cron spec.
func (s *Snapshot) Schedule(c *cron.Cron, spec string) (cron.EntryID, error) {
	return c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if err := s.Write(ctx); err != nil {
			appLog.Error("ics snapshot failed", err, "path", s.path)
		}
	})
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".calpin-feed-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
