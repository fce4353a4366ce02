package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/wricardo/online-games/game/service"
)

// FilePersistence implements MatchPersistence with one JSON file per match
type FilePersistence struct {
	matchesDir string
}

// NewFilePersistence creates a new file-based match persistence layer
func NewFilePersistence(matchesDir string) (*FilePersistence, error) {
	if err := os.MkdirAll(matchesDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create matches directory: %w", err)
	}
	return &FilePersistence{matchesDir: matchesDir}, nil
}

// Save writes the match as indented JSON. The file is replaced atomically.
func (fp *FilePersistence) Save(ctx context.Context, match *service.Match) error {
	if match == nil {
		return fmt.Errorf("match cannot be nil")
	}
	if !validID(match.ID) {
		return fmt.Errorf("%w: %q", ErrInvalidMatchID, match.ID)
	}

	jsonData, err := json.MarshalIndent(match, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal match: %w", err)
	}

	tmp, err := os.CreateTemp(fp.matchesDir, match.ID+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to write match file: %w", err)
	}
	if _, err := tmp.Write(jsonData); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write match file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write match file: %w", err)
	}
	if err := os.Rename(tmp.Name(), fp.getFilePath(match.ID)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write match file: %w", err)
	}
	return nil
}

// Load reads a match file
func (fp *FilePersistence) Load(ctx context.Context, id string) (*service.Match, error) {
	if !validID(id) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMatchID, id)
	}

	jsonData, err := os.ReadFile(fp.getFilePath(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", service.ErrMatchNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read match file: %w", err)
	}

	var match service.Match
	if err := json.Unmarshal(jsonData, &match); err != nil {
		return nil, fmt.Errorf("failed to unmarshal match: %w", err)
	}
	return &match, nil
}

// Delete removes a match file
func (fp *FilePersistence) Delete(ctx context.Context, id string) error {
	if !fp.Exists(ctx, id) {
		return fmt.Errorf("%w: %s", service.ErrMatchNotFound, id)
	}
	if err := os.Remove(fp.getFilePath(id)); err != nil {
		return fmt.Errorf("failed to remove match file: %w", err)
	}
	return nil
}

// ListAll returns all persisted match IDs
func (fp *FilePersistence) ListAll(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(fp.matchesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read matches directory: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if name := entry.Name(); strings.HasSuffix(name, ".json") {
			ids = append(ids, strings.TrimSuffix(name, ".json"))
		}
	}
	return ids, nil
}

// Exists checks if a match file exists
func (fp *FilePersistence) Exists(ctx context.Context, id string) bool {
	if !validID(id) {
		return false
	}
	_, err := os.Stat(fp.getFilePath(id))
	return err == nil
}

func (fp *FilePersistence) getFilePath(id string) string {
	return filepath.Join(fp.matchesDir, id+".json")
}

// validID rejects ids that could escape the matches directory
func validID(id string) bool {
	return id != "" && !strings.ContainsAny(id, `/\`) && id != "." && id != ".."
}
