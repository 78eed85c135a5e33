package repository

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"buyerwatch/internal/entities"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

//go:embed data/dashboard.yaml
var defaultDashboard []byte

var timelineStatuses = map[string]bool{"completed": true, "current": true, "future": true}

// DashboardRepository serves the dashboard datasets from YAML. With a path set
// the file replaces the embedded default and is reloaded when it changes.
type DashboardRepository struct {
	mu     sync.RWMutex
	data   entities.DashboardData
	path   string
	logger *zap.Logger
}

func NewDashboardRepository(path string, logger *zap.Logger) (*DashboardRepository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &DashboardRepository{path: path, logger: logger}

	if path == "" {
		data, err := ParseDashboard(defaultDashboard)
		if err != nil {
			return nil, fmt.Errorf("embedded dashboard: %w", err)
		}
		r.data = data
		return r, nil
	}

	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *DashboardRepository) Snapshot() entities.DashboardData {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.data
}

// Reload re-reads the file; on error the previous data is kept
func (r *DashboardRepository) Reload() error {
	if r.path == "" {
		return nil
	}
	raw, err := os.ReadFile(r.path)
	if err != nil {
		return fmt.Errorf("read dashboard file: %w", err)
	}
	data, err := ParseDashboard(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", r.path, err)
	}

	r.mu.Lock()
	r.data = data
	r.mu.Unlock()
	return nil
}

// Watch reloads the dataset on file changes until ctx is done.
// It returns immediately when serving the embedded default.
func (r *DashboardRepository) Watch(ctx context.Context) error {
	if r.path == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// editors often replace the file, so watch the directory
	if err := watcher.Add(filepath.Dir(r.path)); err != nil {
		return fmt.Errorf("watch %s: %w", r.path, err)
	}
	target := filepath.Clean(r.path)
	r.logger.Info("watching dashboard file", zap.String("path", target))

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target || (!event.Has(fsnotify.Write) && !event.Has(fsnotify.Create)) {
				continue
			}
			if err := r.Reload(); err != nil {
				r.logger.Warn("dashboard reload failed", zap.Error(err))
				continue
			}
			r.logger.Info("dashboard reloaded", zap.String("path", target))

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			r.logger.Warn("dashboard watcher error", zap.Error(err))
		}
	}
}

// ParseDashboard decodes and validates a dataset document
func ParseDashboard(raw []byte) (entities.DashboardData, error) {
	var data entities.DashboardData
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return data, fmt.Errorf("decode dashboard: %w", err)
	}
	for _, t := range data.Timeline {
		if !timelineStatuses[t.Status] {
			return data, fmt.Errorf("timeline entry %q: invalid status %q", t.Title, t.Status)
		}
	}
	for _, p := range data.Progress {
		if p.Percentage < 0 || p.Percentage > 100 {
			return data, fmt.Errorf("progress item %q: percentage %d out of range", p.Name, p.Percentage)
		}
	}
	return data, nil
}
