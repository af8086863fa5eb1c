package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"fedquery/internal/logging"
	"fedquery/internal/types"
)

// =============================================================================
// FILESYSTEM ADAPTER
// =============================================================================

// FilesystemAdapter serves FILE_SEARCH operations by walking a rooted
// directory tree and matching file names against a glob pattern or
// substring. The store is optional; deployments without one simply never
// register it.
type FilesystemAdapter struct {
	root            string
	excludePatterns []string
}

// defaultExcludes skips directories that never hold user content.
var defaultExcludes = []string{
	".git", "node_modules", "vendor", "dist", "build",
	".venv", "venv", "__pycache__", ".tox",
}

// NewFilesystemAdapter roots the adapter at dir.
func NewFilesystemAdapter(dir string) (*FilesystemAdapter, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("filesystem root unavailable: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("filesystem root %q is not a directory", dir)
	}
	return &FilesystemAdapter{root: dir, excludePatterns: defaultExcludes}, nil
}

// Name implements Adapter.
func (a *FilesystemAdapter) Name() types.StoreKind { return types.StoreFilesystem }

// Health implements Adapter.
func (a *FilesystemAdapter) Health(ctx context.Context) Health {
	var count int64
	err := filepath.WalkDir(a.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable subtree, keep counting
		}
		if d.IsDir() {
			if a.excluded(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		count++
		if count > 10000 {
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		return Health{Healthy: false, Err: err}
	}
	return Health{Healthy: true, SizeHint: count}
}

// Execute implements Adapter.
func (a *FilesystemAdapter) Execute(ctx context.Context, params types.OpParams) (types.Payload, error) {
	p, ok := params.(*types.FileSearchParams)
	if !ok {
		return nil, fmt.Errorf("filesystem store does not support %s", params.OpKind())
	}

	timer := logging.StartTimer(logging.CategoryStore, "filesystem.search")
	defer timer.Stop()

	searchRoot := a.root
	if p.Path != "" && p.Path != "." {
		searchRoot = filepath.Join(a.root, p.Path)
	}

	var files types.Files
	err := filepath.WalkDir(searchRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if d.IsDir() {
			if a.excluded(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !matchFileName(d.Name(), p.Pattern) {
			return nil
		}
		info, ierr := d.Info()
		if ierr != nil {
			return nil
		}
		rel, rerr := filepath.Rel(a.root, path)
		if rerr != nil {
			rel = path
		}
		files = append(files, types.File{
			Name:    d.Name(),
			Path:    rel,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
		if len(files) >= p.Limit {
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		// A deadline mid-walk keeps whatever matched before it; partial
		// results are still results.
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			logging.StoreDebug("file search %q cut short by deadline: %d match(es) kept",
				p.Pattern, len(files))
			return files, nil
		}
		return nil, fmt.Errorf("file search failed: %w", err)
	}

	logging.StoreDebug("file search %q under %q: %d match(es)", p.Pattern, searchRoot, len(files))
	return files, nil
}

func (a *FilesystemAdapter) excluded(name string) bool {
	for _, pat := range a.excludePatterns {
		if name == pat {
			return true
		}
	}
	return false
}

// matchFileName treats patterns containing glob metacharacters as globs
// against the base name; anything else is a case-insensitive substring.
func matchFileName(name, pattern string) bool {
	if strings.ContainsAny(pattern, "*?[") {
		ok, err := filepath.Match(pattern, name)
		return err == nil && ok
	}
	return strings.Contains(strings.ToLower(name), strings.ToLower(pattern))
}
