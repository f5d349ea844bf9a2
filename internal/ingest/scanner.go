package ingest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrDirectoryNotFound is returned by ScanDirectory when the root does not exist.
var ErrDirectoryNotFound = errors.New("directory not found")

// supportedExtensions is the allow-list of document formats the pipeline
// accepts. Anything else found during a scan is silently skipped.
var supportedExtensions = map[string]struct{}{
	".pdf":  {},
	".doc":  {},
	".docx": {},
	".txt":  {},
	".md":   {},
	".json": {},
	".csv":  {},
	".xls":  {},
	".xlsx": {},
	".ppt":  {},
	".pptx": {},
}

// FileDescriptor describes one scanned file. Category is empty when the scan
// ran without auto-categorization.
type FileDescriptor struct {
	Path      string `json:"file_path"`
	Filename  string `json:"filename"`
	Category  string `json:"category"`
	SizeBytes int64  `json:"file_size"`
}

// ScanDirectory recursively walks root and returns descriptors for every
// supported document file, in traversal order. Files with unsupported
// extensions, irregular files, and files that cannot be stat'd (permissions,
// races with deletion) are skipped rather than failing the scan. The result
// is materialized eagerly so callers can batch and report over it.
func ScanDirectory(root string, autoCategorize bool) ([]FileDescriptor, error) {
	if _, err := os.Stat(root); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrDirectoryNotFound, root)
		}
		return nil, fmt.Errorf("checking directory %s: %w", root, err)
	}

	var files []FileDescriptor
	filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable entries are skipped, not fatal.
			return nil
		}
		if d.IsDir() {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(d.Name()))
		if _, ok := supportedExtensions[ext]; !ok {
			return nil
		}

		info, err := d.Info()
		if err != nil || !info.Mode().IsRegular() {
			return nil
		}

		category := ""
		if autoCategorize {
			category = DetectCategory(path)
		}

		files = append(files, FileDescriptor{
			Path:      path,
			Filename:  d.Name(),
			Category:  category,
			SizeBytes: info.Size(),
		})
		return nil
	})

	return files, nil
}
