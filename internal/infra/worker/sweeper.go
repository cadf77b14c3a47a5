package worker

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"telegram-chat-summarizer/internal/infra/metrics"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Sweeper removes participant files that outlived their retention.
// Output files are delivery artifacts, not records; the durable state
// lives in the store.
type Sweeper struct {
	dir       string
	retention time.Duration
	cron      *cron.Cron
	log       *zerolog.Logger
}

func NewSweeper(dir string, retention time.Duration, log *zerolog.Logger) *Sweeper {
	return &Sweeper{dir: dir, retention: retention, cron: cron.New(), log: log}
}

// Start schedules the sweep on spec (standard 5-field cron).
func (s *Sweeper) Start(spec string) error {
	if _, err := s.cron.AddFunc(spec, func() {
		n, err := s.Sweep()
		if err != nil {
			s.log.Error().Err(err).Msg("output sweep failed")
			return
		}
		if n > 0 {
			s.log.Info().Int("removed", n).Msg("output sweep done")
		}
	}); err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

// Sweep deletes expired participant files and reports how many went.
func (s *Sweeper) Sweep() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-s.retention)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), "participants_") {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		if err := os.Remove(path); err != nil {
			s.log.Error().Err(err).Str("path", path).Msg("sweep remove failed")
			continue
		}
		removed++
	}
	metrics.AddFilesSwept(removed)
	return removed, nil
}
