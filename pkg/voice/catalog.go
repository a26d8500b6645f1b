package voice

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Editor saves often fire several write events for one save.
const reloadDebounce = 500 * time.Millisecond

// DefaultPool is used when no catalog file is configured.
var DefaultPool = []Voice{
	{ID: "aria", Name: "Aria", Language: "en"},
	{ID: "baxter", Name: "Baxter", Language: "en"},
	{ID: "clara", Name: "Clara", Language: "en"},
	{ID: "dmitri", Name: "Dmitri", Language: "en"},
	{ID: "esme", Name: "Esmé", Language: "fr"},
	{ID: "hana", Name: "Hana", Language: "ja"},
}

// LoadCatalog reads a JSON voice catalog: an array of {id, name, language}.
func LoadCatalog(path string) ([]Voice, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read voice catalog %q: %w", path, err)
	}
	var pool []Voice
	if err := json.Unmarshal(data, &pool); err != nil {
		return nil, fmt.Errorf("parse voice catalog %q: %w", path, err)
	}
	valid := pool[:0]
	for _, v := range pool {
		if strings.TrimSpace(v.ID) == "" {
			continue
		}
		valid = append(valid, v)
	}
	return valid, nil
}

// Catalog watches a voice catalog file and pushes reloaded pools into an
// allocator. A broken reload keeps the previous pool.
type Catalog struct {
	path      string
	allocator *Allocator
	logger    *slog.Logger

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	cancel  chan struct{}
}

// NewCatalog builds a catalog watcher for path feeding allocator.
func NewCatalog(path string, allocator *Allocator, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{path: path, allocator: allocator, logger: logger}
}

// Watch loads the catalog once, then reloads on every file change until
// Close is called.
func (c *Catalog) Watch() error {
	pool, err := LoadCatalog(c.path)
	if err != nil {
		return err
	}
	c.allocator.SetPool(pool)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch voice catalog: %w", err)
	}
	// Watch the directory: editors replace files on save, which drops a
	// watch registered on the file itself.
	if err := watcher.Add(filepath.Dir(c.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch voice catalog dir: %w", err)
	}

	cancel := make(chan struct{})
	c.mu.Lock()
	c.watcher = watcher
	c.cancel = cancel
	c.mu.Unlock()

	go c.watchLoop(watcher, cancel)
	return nil
}

// Close stops the watcher. Safe to call when Watch was never started.
func (c *Catalog) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		close(c.cancel)
		c.cancel = nil
	}
	if c.watcher != nil {
		c.watcher.Close()
		c.watcher = nil
	}
}

func (c *Catalog) watchLoop(watcher *fsnotify.Watcher, cancel chan struct{}) {
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	target := filepath.Clean(c.path)
	for {
		select {
		case <-cancel:
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(reloadDebounce, c.reload)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			c.logger.Warn("voice catalog watch error", "error", err)
		}
	}
}

func (c *Catalog) reload() {
	pool, err := LoadCatalog(c.path)
	if err != nil {
		c.logger.Warn("voice catalog reload failed, keeping previous pool", "error", err)
		return
	}
	c.allocator.SetPool(pool)
	c.logger.Info("voice catalog reloaded", "voices", len(pool))
}
