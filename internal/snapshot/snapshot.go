// Package snapshot optionally captures raw per-day payloads for offline
// diagnosis of heuristic misses.
package snapshot

import (
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// Writer stores each day's raw bytes under <dir>/<host>/<date>.csv.
// Write failures are logged and swallowed; a broken snapshot disk must
// never cost a day of series output.
type Writer struct {
	dir string
}

// NewWriter creates a snapshot writer rooted at dir.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// Capture writes one day's payload.
func (w *Writer) Capture(date time.Time, host string, body []byte) {
	if w == nil || w.dir == "" {
		return
	}
	target := filepath.Join(w.dir, host)
	if err := os.MkdirAll(target, 0o755); err != nil {
		zap.L().Warn("snapshot: create dir failed",
			zap.String("dir", target),
			zap.Error(err),
		)
		return
	}
	path := filepath.Join(target, date.Format("2006-01-02")+".csv")
	if err := os.WriteFile(path, body, 0o644); err != nil {
		zap.L().Warn("snapshot: write failed",
			zap.String("path", path),
			zap.Error(err),
		)
		return
	}
	zap.L().Debug("snapshot: captured day payload",
		zap.String("path", path),
		zap.Int("bytes", len(body)),
	)
}
