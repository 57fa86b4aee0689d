// Package retention prunes uploads and outputs once they outlive the
// configured age.
package retention

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"github.com/tauraamui/idlesqueeze/pkg/log"
	"github.com/tauraamui/idlesqueeze/pkg/process"
)

var fs = afero.NewOsFs()

var TimeNow = func() time.Time {
	return time.Now()
}

type Settings struct {
	Dirs     []string
	MaxAge   time.Duration
	Interval time.Duration
}

// New returns a process which sweeps every dir once per interval.
func New(s Settings) process.Process {
	return process.New(process.Settings{
		WaitForShutdownMsg: fmt.Sprintf("Stopping pruning of files older than %s...", s.MaxAge),
		Process:            PruneOldFiles(s),
	})
}

func PruneOldFiles(s Settings) func(context.Context) []chan interface{} {
	return func(cancel context.Context) []chan interface{} {
		log.Info("Pruning files older than %s from %v", s.MaxAge, s.Dirs)
		stopping := make(chan interface{})
		go func(cancel context.Context, stopping chan interface{}) {
			defer close(stopping)
			ticker := time.NewTicker(s.Interval)
			defer ticker.Stop()
			for {
				Sweep(s.Dirs, s.MaxAge)
				select {
				case <-cancel.Done():
					return
				case <-ticker.C:
				}
			}
		}(cancel, stopping)
		return []chan interface{}{stopping}
	}
}

// Sweep removes regular files directly under each dir whose modification
// time is older than maxAge, returning how many were removed.
func Sweep(dirs []string, maxAge time.Duration) int {
	cutoff := TimeNow().Add(-maxAge)
	removed := 0
	for _, dir := range dirs {
		entries, err := afero.ReadDir(fs, dir)
		if err != nil {
			if !os.IsNotExist(err) {
				log.Warn("unable to list %s for pruning: %v", dir, err)
			}
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() || !entry.ModTime().Before(cutoff) {
				continue
			}
			path := filepath.Join(dir, entry.Name())
			if err := fs.Remove(path); err != nil {
				log.Warn("unable to prune %s: %v", path, err)
				continue
			}
			log.Debug("pruned %s", path)
			removed++
		}
	}
	return removed
}
