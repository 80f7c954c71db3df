package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adhocore/gronx"

	"github.com/lfsouza/finzap/pkg/logger"
)

// Sweeper removes stale temp files on a cron schedule. It is independent of
// the per-message Release and defends against incomplete cleanup there.
type Sweeper struct {
	dir      string
	schedule string
	maxAge   time.Duration
}

// NewSweeper validates the cron schedule up front so a misconfiguration
// fails at startup, not at the first tick.
func NewSweeper(dir, schedule string, maxAge time.Duration) (*Sweeper, error) {
	if !gronx.New().IsValid(schedule) {
		return nil, fmt.Errorf("invalid sweep schedule %q", schedule)
	}
	return &Sweeper{dir: dir, schedule: schedule, maxAge: maxAge}, nil
}

// Run sweeps at each schedule tick until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	for {
		next, err := gronx.NextTick(s.schedule, false)
		if err != nil {
			logger.ErrorCF("media", "Sweep schedule error", map[string]any{"error": err.Error()})
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Until(next)):
			s.SweepOnce()
		}
	}
}

// SweepOnce removes every file in the scratch directory older than maxAge.
func (s *Sweeper) SweepOnce() {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.WarnCF("media", "Sweep readdir failed", map[string]any{"error": err.Error()})
		}
		return
	}

	cutoff := time.Now().Add(-s.maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, entry.Name())); err == nil {
			removed++
		}
	}

	if removed > 0 {
		logger.InfoCF("media", "Swept stale temp files", map[string]any{"removed": removed})
	}
}
