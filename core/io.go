package core

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/opensdd/osdd-api/clients/go/osdd"
)

// PersistMaterializedResult writes the entries of result under root.
// File entries overwrite existing files and get their parent directories created.
// Directory entries are created. Entries resolving outside root are rejected.
func PersistMaterializedResult(ctx context.Context, root string, result *osdd.MaterializedResult) error {
	log := slog.With("op", "PersistMaterializedResult")
	if strings.TrimSpace(root) == "" {
		return fmt.Errorf("root path cannot be empty")
	}
	if result == nil {
		return fmt.Errorf("materialized result cannot be nil")
	}
	root = filepath.Clean(root)

	for i, e := range result.GetEntries() {
		if err := ctx.Err(); err != nil {
			return err
		}
		switch {
		case e == nil:
			continue
		case e.HasDirectory():
			dir := strings.TrimSpace(e.GetDirectory())
			if dir == "" {
				continue
			}
			full, ok := resolveUnder(root, dir)
			if !ok {
				return fmt.Errorf("entry %d: directory path escapes root: %s", i, dir)
			}
			log.Debug("Ensuring directory exists", "dir", full)
			if err := os.MkdirAll(full, 0o755); err != nil {
				return fmt.Errorf("entry %d: failed to create directory %s: %w", i, full, err)
			}
		case e.HasFile() && e.GetFile() != nil:
			f := e.GetFile()
			p := strings.TrimSpace(f.GetPath())
			if p == "" {
				return fmt.Errorf("entry %d: file path cannot be empty", i)
			}
			full, ok := resolveUnder(root, p)
			if !ok {
				return fmt.Errorf("entry %d: path escapes root: %s", i, p)
			}
			if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
				return fmt.Errorf("entry %d: failed to create directories for %s: %w", i, full, err)
			}
			log.Debug("Writing file", "path", full)
			if err := os.WriteFile(full, []byte(f.GetContent()), 0o644); err != nil {
				return fmt.Errorf("entry %d: failed to write file %s: %w", i, full, err)
			}
		}
	}
	return nil
}

// resolveUnder joins p onto root, treating absolute p as relative.
// ok is false when the result lies outside root.
func resolveUnder(root, p string) (string, bool) {
	rel := strings.TrimPrefix(filepath.Clean(p), string(os.PathSeparator))
	full := filepath.Clean(filepath.Join(root, rel))
	return full, isPathWithinRoot(root, full)
}

func isPathWithinRoot(root, target string) bool {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(target))
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(os.PathSeparator))
}
