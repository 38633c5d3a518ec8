package scanner

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/poiesic/kbimport/core"
)

// Scan inspects root's immediate children and builds an import plan.
//
// If root contains any subdirectory the scope is multi-base: each
// subdirectory becomes one knowledge base named after it, and files directly
// under root are ignored. Otherwise the scope is single-base and the matching
// files under root form one base named after the root directory itself.
//
// A file is included iff extensions is empty or contains its extension,
// compared case-insensitively. Candidate bases with zero matching files are
// excluded from the plan; a plan with no bases at all is an error.
func Scan(root string, extensions []string) (*core.ImportPlan, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrScan, root, err)
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %q does not exist", ErrNotDirectory, absRoot)
		}
		return nil, fmt.Errorf("%w: %q: %w", ErrScan, absRoot, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %q is not a directory", ErrNotDirectory, absRoot)
	}

	allowed := allowList(extensions)

	entries, err := os.ReadDir(absRoot)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrScan, absRoot, err)
	}

	var subdirs []string
	for _, entry := range entries {
		if entry.IsDir() {
			subdirs = append(subdirs, entry.Name())
		}
	}

	plan := &core.ImportPlan{Root: absRoot}

	if len(subdirs) == 0 {
		// Single-base scope: the root itself is the knowledge base.
		files, err := matchingFiles(absRoot, entries, allowed)
		if err != nil {
			return nil, err
		}
		if len(files) == 0 {
			return nil, fmt.Errorf("%w: %q", ErrNoMatchingFiles, absRoot)
		}
		name := filepath.Base(absRoot)
		slog.Debug("single-base scope", "base", name, "files", len(files))
		plan.Bases = append(plan.Bases, core.PlannedBase{Name: name, Dir: absRoot, Files: files})
		return plan, nil
	}

	// Multi-base scope: one base per subdirectory, root-level files ignored.
	for _, name := range subdirs {
		dir := filepath.Join(absRoot, name)
		subEntries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %w", ErrScan, dir, err)
		}
		files, err := matchingFiles(dir, subEntries, allowed)
		if err != nil {
			return nil, err
		}
		if len(files) == 0 {
			slog.Warn("skipping empty knowledge base directory", "base", name, "dir", dir)
			continue
		}
		slog.Debug("planned knowledge base", "base", name, "files", len(files))
		plan.Bases = append(plan.Bases, core.PlannedBase{Name: name, Dir: dir, Files: files})
	}

	if len(plan.Bases) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoMatchingFiles, absRoot)
	}

	slog.Info("scan complete", "root", absRoot, "bases", len(plan.Bases), "files", plan.TotalFiles())
	return plan, nil
}

// allowList normalizes the extension filter into a set. An empty filter
// returns nil, which matches every extension.
func allowList(extensions []string) map[string]struct{} {
	if len(extensions) == 0 {
		return nil
	}
	allowed := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		normalized := core.NormalizeExtension(ext)
		if normalized != "" {
			allowed[normalized] = struct{}{}
		}
	}
	if len(allowed) == 0 {
		return nil
	}
	return allowed
}

// matchingFiles collects the regular files among entries that pass the
// allow-list, in directory enumeration order.
func matchingFiles(dir string, entries []os.DirEntry, allowed map[string]struct{}) ([]core.FileEntry, error) {
	var files []core.FileEntry
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := core.NormalizeExtension(filepath.Ext(entry.Name()))
		if allowed != nil {
			if _, ok := allowed[ext]; !ok {
				continue
			}
		}
		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %w", ErrScan, filepath.Join(dir, entry.Name()), err)
		}
		if !info.Mode().IsRegular() {
			continue
		}
		files = append(files, core.FileEntry{
			Path: filepath.Join(dir, entry.Name()),
			Name: entry.Name(),
			Size: info.Size(),
			Ext:  ext,
		})
	}
	return files, nil
}
