// Package knowledge loads knowledge base entries from YAML and seeds them
// into a store.
package knowledge

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/spec-kit/bi-triage-agent/internal/domain"
	"github.com/spec-kit/bi-triage-agent/internal/repository"
)

//go:embed seed.yaml
var defaultSeed []byte

type seedFile struct {
	Entries []domain.KnowledgeBaseEntry `yaml:"entries"`
}

// Load reads entries from a YAML file.
func Load(path string) ([]domain.KnowledgeBaseEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("knowledge: read %s: %w", path, err)
	}
	return Parse(data)
}

// Default returns the entries bundled with the binary.
func Default() ([]domain.KnowledgeBaseEntry, error) {
	return Parse(defaultSeed)
}

// Parse unmarshals YAML bytes into validated entries. File order becomes the
// stored order.
func Parse(data []byte) ([]domain.KnowledgeBaseEntry, error) {
	var file seedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("knowledge: parse: %w", err)
	}

	seen := make(map[string]struct{}, len(file.Entries))
	for i := range file.Entries {
		entry := &file.Entries[i]
		entry.ID = strings.TrimSpace(entry.ID)
		entry.Title = strings.TrimSpace(entry.Title)
		entry.Content = strings.TrimSpace(entry.Content)
		entry.Keywords = strings.TrimSpace(entry.Keywords)
		if entry.ID == "" {
			return nil, fmt.Errorf("knowledge: entry %d: id is required", i)
		}
		if entry.Keywords == "" {
			return nil, fmt.Errorf("knowledge: entry %s: keywords are required", entry.ID)
		}
		if _, dup := seen[entry.ID]; dup {
			return nil, fmt.Errorf("knowledge: duplicate entry id %s", entry.ID)
		}
		seen[entry.ID] = struct{}{}
		entry.Position = i
	}
	return file.Entries, nil
}

// Seed upserts entries into repo and returns how many were written.
func Seed(ctx context.Context, repo repository.KnowledgeBaseRepository, entries []domain.KnowledgeBaseEntry, now time.Time) (int, error) {
	for i := range entries {
		entry := entries[i]
		if entry.CreatedAt.IsZero() {
			entry.CreatedAt = now.UTC()
		}
		if err := repo.Upsert(ctx, &entry); err != nil {
			return i, fmt.Errorf("knowledge: upsert %s: %w", entry.ID, err)
		}
	}
	return len(entries), nil
}
