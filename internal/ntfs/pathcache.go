package ntfs

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/google/renameio"
)

// cacheMagic and cacheVersion identify the on-disk path cache format.
// The format is a custom length-prefixed binary framing, not a
// language-specific serialization (deliberately ruling out anything
// resembling pickle/gob for this file).
const (
	cacheMagic   = "NTFSPC01"
	cacheVersion = 1
)

// PathCacheEntry is one resolved path's cached record number, keyed by
// drive letter plus the '\'-joined path it was resolved from.
type PathCacheEntry struct {
	Drive        byte
	Path         string
	RecordNumber uint64
}

// PathCache is a persistent, in-memory-backed map from (drive, path) to
// MFT record number, saved across invocations so repeated copies of the
// same tree skip re-walking the directory index.
type PathCache struct {
	mu      sync.RWMutex
	path    string
	entries map[cacheKey]uint64
	ignore  bool
}

type cacheKey struct {
	drive byte
	path  string
}

// LoadPathCache reads path if it exists, or returns an empty cache ready
// to be populated and saved there. ignoreTable, when true, disables
// lookups (every Get misses) while Put calls are still recorded and
// saved, matching an ignore_table mode.
func LoadPathCache(path string, ignoreTable bool) (*PathCache, error) {
	pc := &PathCache{path: path, entries: make(map[cacheKey]uint64), ignore: ignoreTable}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return pc, nil
		}
		return nil, fmt.Errorf("%w: opening path cache: %v", ErrExtractIO, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	magic := make([]byte, len(cacheMagic))
	if _, err := io.ReadFull(r, magic); err != nil {
		return nil, fmt.Errorf("%w: path cache truncated header", ErrExtractIO)
	}
	if string(magic) != cacheMagic {
		return nil, fmt.Errorf("%w: path cache has unrecognized magic %q", ErrExtractIO, magic)
	}
	var version uint32
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, fmt.Errorf("%w: path cache truncated version", ErrExtractIO)
	}

	for {
		var drive byte
		if err := binary.Read(r, binary.LittleEndian, &drive); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("%w: path cache truncated record", ErrExtractIO)
		}
		var pathLen uint32
		if err := binary.Read(r, binary.LittleEndian, &pathLen); err != nil {
			return nil, fmt.Errorf("%w: path cache truncated record", ErrExtractIO)
		}
		pathBytes := make([]byte, pathLen)
		if _, err := io.ReadFull(r, pathBytes); err != nil {
			return nil, fmt.Errorf("%w: path cache truncated path", ErrExtractIO)
		}
		var recordNumber uint64
		if err := binary.Read(r, binary.LittleEndian, &recordNumber); err != nil {
			return nil, fmt.Errorf("%w: path cache truncated record number", ErrExtractIO)
		}
		pc.entries[cacheKey{drive: drive, path: string(pathBytes)}] = recordNumber
	}

	return pc, nil
}

// Get returns the cached record number for (drive, path). It always
// misses when the cache was loaded with ignoreTable.
func (pc *PathCache) Get(drive byte, path string) (uint64, bool) {
	if pc.ignore {
		return 0, false
	}
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	v, ok := pc.entries[cacheKey{drive: drive, path: path}]
	return v, ok
}

// Put records path's resolved record number, overwriting any prior entry.
func (pc *PathCache) Put(drive byte, path string, recordNumber uint64) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.entries[cacheKey{drive: drive, path: path}] = recordNumber
}

// Clear removes every entry without touching the on-disk file; callers
// still need to Save to persist the cleared state.
func (pc *PathCache) Clear() {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.entries = make(map[cacheKey]uint64)
}

// Len reports the number of cached entries.
func (pc *PathCache) Len() int {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	return len(pc.entries)
}

// Save writes the cache atomically via a temp-file-plus-rename, so a
// process killed mid-write never corrupts the previous cache. Session.Close
// calls it, so the cache is saved on normal exit regardless of per-path
// failures during the run.
func (pc *PathCache) Save() error {
	pc.mu.RLock()
	defer pc.mu.RUnlock()

	t, err := renameio.TempFile("", pc.path)
	if err != nil {
		return fmt.Errorf("%w: creating path cache temp file: %v", ErrExtractIO, err)
	}
	defer t.Cleanup()

	w := bufio.NewWriter(t)
	if _, err := w.WriteString(cacheMagic); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(cacheVersion)); err != nil {
		return err
	}
	for key, recordNumber := range pc.entries {
		if err := binary.Write(w, binary.LittleEndian, key.drive); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, uint32(len(key.path))); err != nil {
			return err
		}
		if _, err := w.WriteString(key.path); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, recordNumber); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("%w: flushing path cache: %v", ErrExtractIO, err)
	}

	return t.CloseAtomicallyReplace()
}
