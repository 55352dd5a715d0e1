// Package watcher polls a deck file, and the slide fragments next to a
// YAML or JSON deck, for changes.
package watcher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fredcamaral/slidekit/internal/domain/ports"
)

// PollingWatcher implements file watching using polling
type PollingWatcher struct {
	interval  time.Duration
	debounce  time.Duration
	clock     ports.TimeProvider
	logger    *slog.Logger
	fileInfos map[string]FileInfo
	events    chan ports.DeckChange
	mu        sync.RWMutex
	wg        sync.WaitGroup
	stopped   bool
	stopCh    chan struct{}
}

// FileInfo stores information about a file
type FileInfo struct {
	Size     int64
	ModTime  time.Time
	Checksum string
}

// NewPollingWatcher creates a new polling-based file watcher
func NewPollingWatcher(interval, debounce time.Duration, clock ports.TimeProvider, logger *slog.Logger) *PollingWatcher {
	if clock == nil {
		clock = ports.NewRealTimeProvider()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PollingWatcher{
		interval:  interval,
		debounce:  debounce,
		clock:     clock,
		logger:    logger.With("service", "watcher"),
		fileInfos: make(map[string]FileInfo),
		events:    make(chan ports.DeckChange, 10),
		stopCh:    make(chan struct{}),
	}
}

var _ ports.DeckWatcher = (*PollingWatcher)(nil)

// Watch starts watching a deck for changes
func (w *PollingWatcher) Watch(ctx context.Context, path string) (<-chan ports.DeckChange, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	// the deck itself must exist; fragments are optional
	if err := w.scanFile(absPath); err != nil {
		return nil, fmt.Errorf("initial scan: %w", err)
	}
	for _, fragment := range fragmentsOf(absPath) {
		if err := w.scanFile(fragment); err != nil {
			w.logger.Warn("skipping unreadable fragment", "path", fragment, "error", err)
		}
	}

	ticker := w.clock.NewTicker(w.interval)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ticker.Stop()
		w.pollLoop(ctx, absPath, ticker)
	}()

	return w.events, nil
}

// Stop stops the file watcher and closes the event channel
func (w *PollingWatcher) Stop() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	close(w.stopCh)
	w.mu.Unlock()

	w.wg.Wait()
	close(w.events)

	return nil
}

// fragmentsOf lists the .html files next to a YAML or JSON deck
func fragmentsOf(deckPath string) []string {
	switch strings.ToLower(filepath.Ext(deckPath)) {
	case ".yaml", ".yml", ".json":
	default:
		return nil
	}
	matches, err := filepath.Glob(filepath.Join(filepath.Dir(deckPath), "*.html"))
	if err != nil {
		return nil
	}
	sort.Strings(matches)
	return matches
}

func (w *PollingWatcher) scanFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat file: %w", err)
	}

	checksum, err := calculateChecksum(path)
	if err != nil {
		return fmt.Errorf("calculate checksum: %w", err)
	}

	w.mu.Lock()
	w.fileInfos[path] = FileInfo{
		Size:     info.Size(),
		ModTime:  info.ModTime(),
		Checksum: checksum,
	}
	w.mu.Unlock()

	return nil
}

func (w *PollingWatcher) pollLoop(ctx context.Context, deckPath string, ticker ports.Ticker) {
	var lastEventTime time.Time
	var pending *ports.DeckChange

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C():
			if change := w.scan(deckPath); change != nil {
				pending = change
			}
			if pending == nil {
				continue
			}

			// changes inside the debounce window wait for a later tick
			if !lastEventTime.IsZero() && w.clock.Since(lastEventTime) < w.debounce {
				continue
			}

			event := *pending
			event.Timestamp = w.clock.Now()
			select {
			case w.events <- event:
				lastEventTime = event.Timestamp
				pending = nil
			case <-ctx.Done():
				return
			case <-w.stopCh:
				return
			}
		}
	}
}

// scan checks every tracked file and returns the first change, if any.
// All changes are recorded so one reload covers them.
func (w *PollingWatcher) scan(deckPath string) *ports.DeckChange {
	paths := append([]string{deckPath}, fragmentsOf(deckPath)...)

	w.mu.RLock()
	for known := range w.fileInfos {
		if !contains(paths, known) {
			paths = append(paths, known)
		}
	}
	w.mu.RUnlock()

	var first *ports.DeckChange
	for _, path := range paths {
		kind, changed, err := w.checkForChanges(path)
		if err != nil {
			w.logger.Warn("watch error", "path", path, "error", err)
			continue
		}
		if changed && first == nil {
			first = &ports.DeckChange{DeckPath: deckPath, Path: path, Kind: kind, Fragment: path != deckPath}
		}
	}
	return first
}

func (w *PollingWatcher) checkForChanges(path string) (ports.ChangeKind, bool, error) {
	w.mu.RLock()
	oldInfo, exists := w.fileInfos[path]
	w.mu.RUnlock()

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			if !exists {
				return ports.ChangeRemoved, false, nil
			}
			w.mu.Lock()
			delete(w.fileInfos, path)
			w.mu.Unlock()
			return ports.ChangeRemoved, true, nil
		}
		return ports.ChangeEdited, false, fmt.Errorf("stat file: %w", err)
	}

	// size and mtime unchanged means content unchanged
	if exists && oldInfo.Size == info.Size() && oldInfo.ModTime.Equal(info.ModTime()) {
		return ports.ChangeEdited, false, nil
	}

	checksum, err := calculateChecksum(path)
	if err != nil {
		return ports.ChangeEdited, false, fmt.Errorf("calculate checksum: %w", err)
	}

	current := FileInfo{Size: info.Size(), ModTime: info.ModTime(), Checksum: checksum}
	w.mu.Lock()
	w.fileInfos[path] = current
	w.mu.Unlock()

	if !exists {
		return ports.ChangeAdded, true, nil
	}
	return ports.ChangeEdited, oldInfo.Checksum != checksum, nil
}

func calculateChecksum(path string) (string, error) {
	file, err := os.Open(path) // #nosec G304 - path is the watched deck or a file beside it
	if err != nil {
		return "", err
	}
	defer func() { _ = file.Close() }()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}

	return hex.EncodeToString(hash.Sum(nil)), nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
