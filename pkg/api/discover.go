package api

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
)

// DiscoverFlowFiles walks root looking for *.flow.yaml files up to maxDepth.
// A maxDepth of -1 means unlimited, 0 means only root itself.
// Results are sorted by path depth (parents before children), then by path.
func DiscoverFlowFiles(root string, maxDepth int) ([]*FlowFile, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving root path: %w", err)
	}

	paths, err := collectFlowPaths(absRoot, maxDepth)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(paths, func(a, b string) int {
		if d := pathDepth(a) - pathDepth(b); d != 0 {
			return d
		}
		return strings.Compare(a, b)
	})

	files := make([]*FlowFile, 0, len(paths))
	for _, p := range paths {
		f, err := LoadFlowFile(p)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", p, err)
		}
		files = append(files, f)
	}
	return files, nil
}

// FindFlowFile returns ref itself when it names an existing file, otherwise
// the first discovered flow under root whose name or file stem equals ref.
func FindFlowFile(root, ref string) (*FlowFile, error) {
	if strings.HasSuffix(ref, FlowFileExtension) || strings.ContainsRune(ref, filepath.Separator) {
		return LoadFlowFile(ref)
	}

	files, err := DiscoverFlowFiles(root, -1)
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		stem := strings.TrimSuffix(filepath.Base(f.FilePath), FlowFileExtension)
		if f.Name == ref || stem == ref {
			return f, nil
		}
	}
	return nil, fmt.Errorf("no flow named %q under %s", ref, root)
}

func collectFlowPaths(absRoot string, maxDepth int) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walk error at %s: %w", path, err)
		}

		if d.IsDir() && maxDepth >= 0 {
			rel, relErr := filepath.Rel(absRoot, path)
			if relErr != nil {
				return fmt.Errorf("computing relative path for %s: %w", path, relErr)
			}
			if pathDepth(rel) > maxDepth {
				return filepath.SkipDir
			}
		}

		if !d.IsDir() && strings.HasSuffix(d.Name(), FlowFileExtension) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking directory tree: %w", err)
	}
	return paths, nil
}

func pathDepth(p string) int {
	if p == "." {
		return 0
	}
	return strings.Count(filepath.ToSlash(p), "/") + 1
}
