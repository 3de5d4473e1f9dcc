// Package scanner produces a finite, de-duplicated, deterministically
// ordered stream of candidate audio files per spec.md §4.2. Directory
// walking follows the teacher's filepath.WalkDir idiom (internal/worker's
// generatePlaylistFile walks output directories the same way); here it
// additionally resolves symlinked roots once up front to avoid cycles.
package scanner

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cesargomez89/navidrums/internal/apierr"
	"github.com/cesargomez89/navidrums/internal/constants"
	"github.com/cesargomez89/navidrums/internal/domain"
)

// Request describes one scan invocation.
type Request struct {
	Directories     []string
	FilePaths       []string
	Recursive       bool
	IncludePatterns []string
	ExcludePatterns []string

	MinFileSizeKB int
	MaxFileSizeMB int
	MaxDepth      int
}

// Warning is a non-fatal, per-path scan problem (spec.md §4.2).
type Warning struct {
	Path    string
	Message string
}

// Result is the finite, deduplicated, lexicographically sorted candidate
// set produced by one Scan call.
type Result struct {
	Files    []string
	Warnings []Warning
}

// Scan walks the requested directories and files and returns the filtered,
// deduplicated, deterministically ordered candidate set.
func Scan(req Request) (Result, error) {
	maxDepth := req.MaxDepth
	if maxDepth <= 0 {
		maxDepth = constants.DefaultScanMaxDepth
	}
	includes := req.IncludePatterns
	if len(includes) == 0 {
		includes = []string{"*"}
	}

	seen := make(map[string]bool)
	var result Result

	addCandidate := func(path string, size int64) {
		canonical, err := filepath.Abs(path)
		if err != nil {
			canonical = path
		}
		if seen[canonical] {
			return
		}
		if !isCandidate(canonical, size, req.MinFileSizeKB, req.MaxFileSizeMB, includes, req.ExcludePatterns) {
			return
		}
		seen[canonical] = true
		result.Files = append(result.Files, canonical)
	}

	for _, p := range req.FilePaths {
		stat, err := os.Stat(p)
		if err != nil {
			result.Warnings = append(result.Warnings, Warning{Path: p, Message: err.Error()})
			continue
		}
		if stat.IsDir() {
			result.Warnings = append(result.Warnings, Warning{Path: p, Message: "expected a file, got a directory"})
			continue
		}
		addCandidate(p, stat.Size())
	}

	for _, dir := range req.Directories {
		root, err := canonicalizeRoot(dir)
		if err != nil {
			return Result{}, apierr.NotFound("scan root %s does not exist: %v", dir, err)
		}

		walkErr := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				result.Warnings = append(result.Warnings, Warning{Path: path, Message: err.Error()})
				if d != nil && d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			if d.IsDir() {
				if path != root && !req.Recursive {
					return filepath.SkipDir
				}
				if depthOf(root, path) > maxDepth {
					return apierr.InvalidArgument("scan exceeded max depth %d under %s", maxDepth, root)
				}
				return nil
			}

			info, err := d.Info()
			if err != nil {
				result.Warnings = append(result.Warnings, Warning{Path: path, Message: err.Error()})
				return nil
			}
			addCandidate(path, info.Size())
			return nil
		})
		if walkErr != nil {
			return Result{}, walkErr
		}
	}

	sort.Strings(result.Files)
	return result, nil
}

func canonicalizeRoot(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(abs); err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", err
	}
	return resolved, nil
}

func depthOf(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return 0
	}
	return len(strings.Split(rel, string(filepath.Separator)))
}

func isCandidate(path string, size int64, minKB, maxMB int, includes, excludes []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	supported := false
	for _, f := range domain.SupportedFormats() {
		if f == ext {
			supported = true
			break
		}
	}
	if !supported {
		return false
	}

	if minKB > 0 && size < int64(minKB)*1024 {
		return false
	}
	if maxMB > 0 && size > int64(maxMB)*1024*1024 {
		return false
	}

	base := filepath.Base(path)
	matchedInclude := false
	for _, pattern := range includes {
		if ok, _ := filepath.Match(pattern, base); ok {
			matchedInclude = true
			break
		}
	}
	if !matchedInclude {
		return false
	}

	for _, pattern := range excludes {
		if ok, _ := filepath.Match(pattern, base); ok {
			return false
		}
	}

	return true
}
