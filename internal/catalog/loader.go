// Package catalog loads topic and problem fixtures from YAML files.
package catalog

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/p-n-ai/pai-tracker/internal/progress"
)

// Loader loads and caches catalog topics from the filesystem.
type Loader struct {
	rootDir string
	topics  map[string]Topic
	mu      sync.RWMutex
}

// NewLoader creates a new catalog loader and loads all content.
func NewLoader(rootDir string) (*Loader, error) {
	l := &Loader{
		rootDir: rootDir,
		topics:  make(map[string]Topic),
	}

	if _, err := os.Stat(rootDir); err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}
	if err := l.loadAll(); err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}

	slog.Info("catalog loaded", "dir", rootDir, "topics", len(l.topics))
	return l, nil
}

// GetTopic returns a topic by ID.
func (l *Loader) GetTopic(id string) (Topic, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	t, ok := l.topics[id]
	return t, ok
}

// AllTopics returns all loaded topics ordered by their order field, then id.
func (l *Loader) AllTopics() []Topic {
	l.mu.RLock()
	topics := make([]Topic, 0, len(l.topics))
	for _, t := range l.topics {
		topics = append(topics, t)
	}
	l.mu.RUnlock()

	sort.Slice(topics, func(i, j int) bool {
		if topics[i].Order != topics[j].Order {
			return topics[i].Order < topics[j].Order
		}
		return topics[i].ID < topics[j].ID
	})
	return topics
}

// ProgressTopics converts every topic for use as an authority snapshot.
func (l *Loader) ProgressTopics() ([]progress.Topic, error) {
	all := l.AllTopics()
	out := make([]progress.Topic, 0, len(all))
	for _, t := range all {
		pt, err := t.ToProgress()
		if err != nil {
			return nil, err
		}
		out = append(out, pt)
	}
	return out, nil
}

func (l *Loader) loadAll() error {
	return filepath.Walk(l.rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
			return l.loadTopic(path)
		}
		return nil
	})
}

func (l *Loader) loadTopic(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var topic Topic
	if err := yaml.Unmarshal(data, &topic); err != nil {
		slog.Warn("skipping invalid topic YAML", "path", path, "error", err)
		return nil
	}

	if topic.ID == "" {
		return nil // Not a topic file
	}

	l.mu.Lock()
	if _, dup := l.topics[topic.ID]; dup {
		slog.Warn("duplicate topic id, later file wins", "id", topic.ID, "path", path)
	}
	l.topics[topic.ID] = topic
	l.mu.Unlock()

	return nil
}
