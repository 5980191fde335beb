// Package checkpoint tracks fully completed partitions in a sidecar text
// file, one key per line, append-only. It is the coarse resumability layer
// above the store's per-filing resume set: a fresh process start skips a
// partition found here without a single network fetch.
package checkpoint

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"
)

// File is a loaded done-file. Safe for concurrent use.
type File struct {
	mu   sync.Mutex
	path string
	done map[string]struct{}
}

// Load reads the done-file at path. A missing file simply means no
// partition has completed yet.
func Load(path string) (*File, error) {
	f := &File{path: path, done: make(map[string]struct{})}

	raw, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return f, nil
		}
		return nil, fmt.Errorf("open checkpoint file: %w", err)
	}
	defer raw.Close()

	scanner := bufio.NewScanner(raw)
	for scanner.Scan() {
		key := strings.TrimSpace(scanner.Text())
		if key != "" {
			f.done[key] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read checkpoint file: %w", err)
	}
	return f, nil
}

// Done reports whether the partition already completed in a prior run.
func (f *File) Done(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.done[key]
	return ok
}

// MarkDone appends the partition key and syncs before reporting success, so
// a crash directly after a partition completes cannot lose the checkpoint.
func (f *File) MarkDone(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.done[key]; ok {
		return nil
	}
	raw, err := os.OpenFile(f.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open checkpoint file for append: %w", err)
	}
	defer raw.Close()

	if _, err := fmt.Fprintln(raw, key); err != nil {
		return fmt.Errorf("append checkpoint %q: %w", key, err)
	}
	if err := raw.Sync(); err != nil {
		return fmt.Errorf("sync checkpoint file: %w", err)
	}
	f.done[key] = struct{}{}
	return nil
}
