package annotations

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultExcludedDirs lists directory names that are never descended into, at any depth.
var DefaultExcludedDirs = []string{
	// version control
	".git", ".hg", ".svn",
	// dependency caches
	"node_modules", "vendor", "bower_components", ".venv", "venv", "__pycache__", ".gradle",
	// build output and coverage
	"dist", "build", "out", "target", "bin", "obj", "coverage", ".next", ".nuxt", ".cache",
	// editors and IDEs
	".idea", ".vscode", ".vs",
	// CI configuration
	".github", ".circleci", ".gitlab",
}

// todoPattern recognizes a TODO introduced by a line comment, hash comment, block
// comment or markup comment, capturing text up to a closing delimiter or end of line.
var todoPattern = regexp.MustCompile(`(?i)(?://|#|/\*|<!--)\s*TODO:\s*(.*?)\s*(?:\*/|-->|$)`)

// Scanner walks a source tree and extracts TODO annotations.
type Scanner struct {
	// Root is the directory to scan. Annotation paths are relative to it.
	Root string
	// Excluded holds directory names to prune. Nil means DefaultExcludedDirs.
	Excluded []string
}

// NewScanner returns a Scanner over root using DefaultExcludedDirs.
func NewScanner(root string) *Scanner {
	return &Scanner{Root: root}
}

// Scan walks the tree in lexical order and returns every annotation found.
// Unreadable and binary files are logged and skipped. Only a failure to read
// the root itself is returned as an error.
func (s *Scanner) Scan(ctx context.Context) ([]Annotation, error) {
	log := slog.With("op", "Scan", "root", s.Root)
	if strings.TrimSpace(s.Root) == "" {
		return nil, fmt.Errorf("scan root cannot be empty")
	}
	root := filepath.Clean(s.Root)
	excluded := s.excludedSet()

	var result []Annotation
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			log.Warn("Skipping unreadable path", "path", path, "error", walkErr)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != root {
				if _, ok := excluded[d.Name()]; ok {
					log.Debug("Pruning excluded directory", "path", path)
					return filepath.SkipDir
				}
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			log.Warn("Skipping file outside root", "path", path, "error", err)
			return nil
		}
		found, err := scanFile(path, NormalizePath(rel))
		if err != nil {
			log.Warn("Skipping file", "path", rel, "error", err)
			return nil
		}
		result = append(result, found...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}
	log.Debug("Scan finished", "annotations", len(result))
	return result, nil
}

func (s *Scanner) excludedSet() map[string]struct{} {
	names := s.Excluded
	if names == nil {
		names = DefaultExcludedDirs
	}
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

func scanFile(path, rel string) ([]Annotation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if isBinary(data) {
		return nil, fmt.Errorf("binary content")
	}
	return ExtractAnnotations(rel, string(data)), nil
}

// ExtractAnnotations returns the annotations in content, at most one per line.
// Markers with no text after trimming are ignored.
func ExtractAnnotations(path, content string) []Annotation {
	var result []Annotation
	for i, line := range strings.Split(content, "\n") {
		m := todoPattern.FindStringSubmatch(strings.TrimSuffix(line, "\r"))
		if m == nil {
			continue
		}
		text := strings.TrimSpace(m[1])
		if text == "" {
			continue
		}
		result = append(result, Annotation{Path: path, Text: text, Line: i + 1})
	}
	return result
}

func isBinary(data []byte) bool {
	return bytes.IndexByte(data, 0) >= 0 || !utf8.Valid(data)
}
