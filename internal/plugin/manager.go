package plugin

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

const manifestFile = "plugin.json"

var (
	// ErrPluginNotFound is returned when a requested plugin cannot be found.
	ErrPluginNotFound = errors.New("plugin not found")

	// ErrInvalidManifest wraps manifests that cannot be used.
	ErrInvalidManifest = errors.New("invalid plugin manifest")

	errNoManifest = errors.New("no " + manifestFile)
)

// Manager discovers plugins in a directory where each plugin lives in its
// own subdirectory next to a plugin.json manifest.
type Manager struct {
	dir string

	mu      sync.RWMutex
	byName  map[string]*Plugin
	ordered []*Plugin
	skipped map[string]error
}

// NewManager creates a Manager for dir. Nothing is loaded until Discover.
func NewManager(dir string) *Manager {
	return &Manager{dir: dir, byName: map[string]*Plugin{}}
}

// Discover rescans the plugin directory and replaces the loaded set.
// A missing directory yields no plugins. Subdirectories whose manifest
// cannot be read or is incomplete are skipped and reported by Skipped.
func (m *Manager) Discover() error {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		// Missing or not a directory: nothing to load.
		if isDir(m.dir) {
			return fmt.Errorf("read plugin dir: %w", err)
		}
		entries = nil
	}

	byName := make(map[string]*Plugin, len(entries))
	skipped := map[string]error{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		p, err := loadPlugin(filepath.Join(m.dir, entry.Name()))
		switch {
		case errors.Is(err, errNoManifest):
		case err != nil:
			skipped[entry.Name()] = err
		default:
			byName[p.Manifest.Name] = p
		}
	}

	ordered := make([]*Plugin, 0, len(byName))
	for _, p := range byName {
		ordered = append(ordered, p)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Manifest.Name < ordered[j].Manifest.Name
	})

	m.mu.Lock()
	m.byName, m.ordered, m.skipped = byName, ordered, skipped
	m.mu.Unlock()
	return nil
}

// loadPlugin reads dir/plugin.json.
func loadPlugin(dir string) (*Plugin, error) {
	data, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errNoManifest
	}
	if err != nil {
		return nil, err
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	if manifest.Name == "" || manifest.Executable == "" {
		return nil, fmt.Errorf("%w: name and executable are required", ErrInvalidManifest)
	}
	return &Plugin{
		Manifest:   manifest,
		Path:       dir,
		Executable: filepath.Join(dir, manifest.Executable),
	}, nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// Get returns the plugin named name, or ErrPluginNotFound.
func (m *Manager) Get(name string) (*Plugin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if p, ok := m.byName[name]; ok {
		return p, nil
	}
	return nil, ErrPluginNotFound
}

// List returns all discovered plugins ordered by name.
func (m *Manager) List() []*Plugin {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*Plugin(nil), m.ordered...)
}

// Handlers returns the plugins that declared action, ordered by name.
func (m *Manager) Handlers(action string) []*Plugin {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Plugin
	for _, p := range m.ordered {
		if p.Manifest.Handles(action) {
			out = append(out, p)
		}
	}
	return out
}

// Skipped returns the subdirectories the last Discover ignored, keyed by
// directory name.
func (m *Manager) Skipped() map[string]error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]error, len(m.skipped))
	for k, v := range m.skipped {
		out[k] = v
	}
	return out
}

// PluginDir returns the plugin directory path.
func (m *Manager) PluginDir() string {
	return m.dir
}
