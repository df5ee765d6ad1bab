package pipeline

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// directories commonly injected by NAS indexers, never contain photos
var skippedDirs = map[string]struct{}{
	"@eadir": {},
}

// ListPhotos walks the given directory and returns the candidate photo
// files in stable order. Hidden files and indexer directories are
// skipped, format detection happens later by content sniffing.
func ListPhotos(dir string) ([]string, error) {
	var paths []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		name := info.Name()
		if info.IsDir() {
			if _, found := skippedDirs[strings.ToLower(name)]; found {
				return filepath.SkipDir
			}
			if strings.HasPrefix(name, ".") && path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}
