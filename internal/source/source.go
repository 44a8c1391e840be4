// Package source reads flattened SRD documents from the local tree.
package source

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fjglira/srd-testgen/internal/domain"
)

// FileSource resolves document IDs to files below Root. An absolute ID is
// read as is.
type FileSource struct {
	Root string
}

// NewFileSource creates a FileSource rooted at root.
func NewFileSource(root string) *FileSource {
	return &FileSource{Root: root}
}

// Path returns the file path for documentID.
func (s *FileSource) Path(documentID string) string {
	if filepath.IsAbs(documentID) || s.Root == "" {
		return documentID
	}
	return filepath.Join(s.Root, documentID)
}

// FetchFlattenedText returns the document text unchanged.
func (s *FileSource) FetchFlattenedText(ctx context.Context, documentID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path := s.Path(documentID)
	content, err := os.ReadFile(path)
	if err != nil {
		return "", domain.NewErrorWithSuggestion("source", "", "",
			"failed to read "+path,
			"check that the file exists and has read permissions",
			err)
	}
	return string(content), nil
}

// Discover walks rootDir and returns sorted file paths matching any include
// glob and no exclude glob. Without recursive only rootDir itself is read.
func Discover(rootDir string, include, exclude []string, recursive bool) ([]string, error) {
	var files []string

	err := filepath.WalkDir(rootDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		relPath, relErr := filepath.Rel(rootDir, path)
		if relErr != nil {
			relPath = path
		}

		if d.IsDir() {
			if relPath == "." {
				return nil
			}
			if !recursive || matchAny(relPath, exclude) {
				return filepath.SkipDir
			}
			return nil
		}

		if matchAny(relPath, exclude) {
			return nil
		}
		if matchAny(relPath, include) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, domain.NewError("source", "", "", "failed to scan "+rootDir, err)
	}

	sort.Strings(files)
	return files, nil
}

func matchAny(path string, patterns []string) bool {
	for _, p := range patterns {
		if matchGlob(path, p) {
			return true
		}
	}
	return false
}

// matchGlob matches a path against a glob pattern, supporting ** for recursive matching.
func matchGlob(path, pattern string) bool {
	sep := string(filepath.Separator)
	if strings.Contains(pattern, "**") {
		parts := strings.SplitN(pattern, "**", 2)
		prefix := strings.TrimSuffix(parts[0], sep)
		suffix := strings.TrimPrefix(parts[1], sep)

		if prefix != "" {
			if !strings.HasPrefix(path, prefix) {
				return false
			}
			path = strings.TrimPrefix(strings.TrimPrefix(path, prefix), sep)
		}
		if suffix == "" {
			return true
		}

		pathParts := strings.Split(path, sep)
		for i := range pathParts {
			if matched, _ := filepath.Match(suffix, strings.Join(pathParts[i:], sep)); matched {
				return true
			}
		}
		return false
	}

	if matched, _ := filepath.Match(pattern, filepath.Base(path)); matched {
		return true
	}
	matched, _ := filepath.Match(pattern, path)
	return matched
}
