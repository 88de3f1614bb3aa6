package scanner

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/charlievieth/fastwalk"
)

// Entry is a non-directory entry found by the walker
type Entry struct {
	Path string
	Name string
}

// Walker implements parallel filesystem walking with a deterministic result order
type Walker struct {
	workers int
}

// NewWalker creates a new parallel filesystem walker. workers <= 0 uses the
// fastwalk default.
func NewWalker(workers int) *Walker {
	if workers < 0 {
		workers = 0
	}
	return &Walker{workers: workers}
}

// Walk returns every file below root in top-down walk order (see pathLess).
// Unreadable subdirectories are skipped.
func (w *Walker) Walk(root string) ([]Entry, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	// Collect entries in background, fastwalk calls back from many goroutines
	entryChan := make(chan Entry, 1024)
	var entries []Entry
	var entriesWg sync.WaitGroup

	entriesWg.Add(1)
	go func() {
		defer entriesWg.Done()
		for e := range entryChan {
			entries = append(entries, e)
		}
	}()

	conf := &fastwalk.Config{
		Follow:     false, // Don't follow symlinks
		NumWorkers: w.workers,
	}

	walkErr := fastwalk.Walk(conf, absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == absRoot {
				return err
			}
			return nil // Skip entries with errors
		}
		if d.IsDir() {
			return nil
		}
		entryChan <- Entry{Path: path, Name: d.Name()}
		return nil
	})

	close(entryChan)
	entriesWg.Wait()

	sort.Slice(entries, func(i, j int) bool {
		return pathLess(entries[i].Path, entries[j].Path)
	})
	return entries, walkErr
}

// pathLess orders files the way a top-down walk of sorted listings visits
// them: a directory's own files come first, then its subdirectories, each
// group by name. Both paths name files.
func pathLess(a, b string) bool {
	ap := strings.Split(a, string(filepath.Separator))
	bp := strings.Split(b, string(filepath.Separator))
	for i := 0; i < len(ap) && i < len(bp); i++ {
		if ap[i] == bp[i] {
			continue
		}
		aFile, bFile := i == len(ap)-1, i == len(bp)-1
		if aFile != bFile {
			return aFile
		}
		return ap[i] < bp[i]
	}
	return len(ap) < len(bp)
}
