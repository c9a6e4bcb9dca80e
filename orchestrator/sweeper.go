package orchestrator

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	// DefaultSweepSchedule runs the sweeper twice an hour.
	DefaultSweepSchedule = "@every 30m"
	// DefaultSweepMaxAge is how old a scratch entry must be before it is removed.
	DefaultSweepMaxAge = 6 * time.Hour
)

// Sweeper periodically removes scratch entries left behind by runs that never
// reached their own cleanup, e.g. after a crash.
type Sweeper struct {
	dir    string
	maxAge time.Duration
	skip   func(name string) bool
	now    func() time.Time

	mu     sync.Mutex
	cron   *cron.Cron
	cronID cron.EntryID
}

// NewSweeper creates a Sweeper for dir. skip, when set, protects entries by name.
func NewSweeper(dir string, maxAge time.Duration, skip func(name string) bool) *Sweeper {
	if maxAge <= 0 {
		maxAge = DefaultSweepMaxAge
	}
	return &Sweeper{
		dir:    dir,
		maxAge: maxAge,
		skip:   skip,
		now:    time.Now,
		cron:   cron.New(),
	}
}

// Start schedules the sweep.
func (s *Sweeper) Start(schedule string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if schedule == "" {
		schedule = DefaultSweepSchedule
	}
	id, err := s.cron.AddFunc(schedule, func() {
		if n, err := s.SweepOnce(); err != nil {
			log.Printf("[sweeper] sweep failed: %v", err)
		} else if n > 0 {
			log.Printf("[sweeper] removed %d stale entries from %s", n, s.dir)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to add sweep job: %w", err)
	}

	s.cronID = id
	s.cron.Start()
	log.Printf("[sweeper] started with schedule %s, max age %s", schedule, s.maxAge)
	return nil
}

// Stop halts scheduling and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	<-s.cron.Stop().Done()
}

// SweepOnce removes every entry of the scratch directory older than the max
// age and returns how many were removed. A missing directory is not an error.
func (s *Sweeper) SweepOnce() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	cutoff := s.now().Add(-s.maxAge)
	removed := 0
	for _, e := range entries {
		if s.skip != nil && s.skip(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(s.dir, e.Name())
		if err := os.RemoveAll(path); err != nil {
			log.Printf("[sweeper] failed to remove %s: %v", path, err)
			continue
		}
		removed++
	}
	return removed, nil
}

// Busy reports whether a scratch entry belongs to a run still in flight.
// Run directories are named "<composition id>_<unix millis>".
func (s *Service) Busy(name string) bool {
	id := name
	if i := strings.LastIndexByte(name, '_'); i > 0 {
		id = name[:i]
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.active[id]
	return ok
}
