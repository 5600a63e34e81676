package quota

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"fixlet/pkg/errors"
	"fixlet/pkg/logger"
)

const dayKeyLayout = "2006-01-02"

// Guard enforces a per-calendar-day invocation quota backed by a local JSON
// file of shape {"YYYY-MM-DD": remaining}. Writes are atomic (temp file +
// rename) so a crash cannot truncate the file, but there is no cross-process
// mutual exclusion: two racing invocations can observe the same
// pre-decrement value.
type Guard struct {
	path   string
	limit  int
	now    func() time.Time
	logger *logger.Logger
}

// NewGuard creates a quota guard persisting to the given file.
func NewGuard(path string, limit int) *Guard {
	return &Guard{
		path:   path,
		limit:  limit,
		now:    time.Now,
		logger: logger.WithField("component", "quota-guard"),
	}
}

// Consume takes one invocation from today's budget, initializing the day key
// on first use. Fails with LIMIT_EXCEEDED when the budget is spent; the
// stored value never goes below zero.
func (g *Guard) Consume() error {
	key := g.now().Format(dayKeyLayout)
	record := g.load()

	remaining, ok := record[key]
	if !ok {
		record[key] = g.limit
		if err := g.persist(record); err != nil {
			return fmt.Errorf("failed to initialize quota record: %w", err)
		}
		remaining = g.limit
	}

	if remaining <= 0 {
		if remaining < 0 {
			record[key] = 0
			_ = g.persist(record)
		}
		g.logger.Warn("daily quota exhausted", "day", key, "limit", g.limit)
		return errors.New(errors.CodeLimitExceeded,
			"daily limit of %d repairs reached", g.limit)
	}

	record[key] = remaining - 1
	if err := g.persist(record); err != nil {
		return fmt.Errorf("failed to persist quota record: %w", err)
	}

	g.logger.Debug("quota consumed", "day", key, "remaining", remaining-1)
	return nil
}

// Remaining reports today's budget without consuming it.
func (g *Guard) Remaining() int {
	key := g.now().Format(dayKeyLayout)
	record := g.load()

	remaining, ok := record[key]
	if !ok {
		return g.limit
	}
	if remaining < 0 {
		return 0
	}
	return remaining
}

// load reads the quota record; a missing or unparseable file is treated as
// an empty map so a corrupted record recovers on the next write.
func (g *Guard) load() map[string]int {
	record := make(map[string]int)

	data, err := os.ReadFile(g.path)
	if err != nil {
		return record
	}

	if err := json.Unmarshal(data, &record); err != nil {
		g.logger.Warn("quota file unreadable, starting fresh", "path", g.path, "error", err)
		return make(map[string]int)
	}

	return record
}

func (g *Guard) persist(record map[string]int) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}

	dir := filepath.Dir(g.path)
	tmp, err := os.CreateTemp(dir, ".limit-*.json")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	return os.Rename(tmpName, g.path)
}
