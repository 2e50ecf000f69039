package ntfs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shubham/ntfsresolver/internal/device"
)

// Session drives one or more Copy calls against a set of open volumes,
// one per drive letter touched, and a shared path cache saved once at
// the end of the run regardless of per-path failures.
type Session struct {
	cache   *PathCache
	volumes map[byte]*Volume
	opener  func(drive byte) (string, error)
}

// NewSession opens a Session backed by a path cache persisted at
// cachePath. opener maps a drive letter to the raw device path to open
// for it (an external collaborator contract: how a drive letter becomes
// a device path is platform-specific and out of this package's scope).
func NewSession(cachePath string, ignoreTable bool, opener func(drive byte) (string, error)) (*Session, error) {
	cache, err := LoadPathCache(cachePath, ignoreTable)
	if err != nil {
		return nil, err
	}
	return &Session{cache: cache, volumes: make(map[byte]*Volume), opener: opener}, nil
}

// Close releases every volume opened during the session and saves the
// path cache, best-effort, returning the first error encountered.
func (s *Session) Close() error {
	var firstErr error
	for _, v := range s.volumes {
		if err := v.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := s.cache.Save(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

func (s *Session) volumeFor(drive byte) (*Volume, error) {
	if v, ok := s.volumes[drive]; ok {
		return v, nil
	}
	devicePath, err := s.opener(drive)
	if err != nil {
		return nil, err
	}
	v, err := OpenVolume(devicePath)
	if err != nil {
		return nil, err
	}
	s.volumes[drive] = v
	return v, nil
}

// Copy resolves sourcePattern (e.g. `C:\Users\*\Documents\report.docx` or
// `*:\Windows\System32\config\SAM`) and copies every match to destRoot,
// recursing into directories when recursive is true. It returns the
// number of files copied and a combined error for any paths that failed
// along the way — one bad path never aborts the whole pattern
// (best-effort semantics).
func (s *Session) Copy(sourcePattern, destRoot string, recursive bool) (int, error) {
	drive, rest, err := splitDrive(sourcePattern)
	if err != nil {
		return 0, err
	}

	drives, err := s.expandDrive(drive)
	if err != nil {
		return 0, err
	}

	var copied int
	var errs []error
	for _, d := range drives {
		n, err := s.copyOnDrive(d, rest, destRoot, recursive)
		copied += n
		if err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return copied, joinErrors(errs)
	}
	return copied, nil
}

// splitDrive splits "C:\path\to\thing" into ('C', `path\to\thing`). A
// drive letter of '*' means "every local fixed volume".
func splitDrive(pattern string) (byte, string, error) {
	if len(pattern) < 2 || pattern[1] != ':' {
		return 0, "", fmt.Errorf("%w: %q has no drive letter", ErrPathNotFound, pattern)
	}
	drive := pattern[0]
	rest := strings.TrimPrefix(pattern[2:], `\`)
	rest = strings.TrimPrefix(rest, "/")
	return drive, rest, nil
}

// expandDrive resolves a '*' drive letter to every locally attached
// fixed volume via internal/device.List, or returns the single drive
// letter unchanged otherwise.
func (s *Session) expandDrive(drive byte) ([]byte, error) {
	if drive != '*' {
		return []byte{drive}, nil
	}
	devices, err := device.List()
	if err != nil {
		return nil, err
	}
	var drives []byte
	for _, d := range devices {
		if d.Removable {
			continue
		}
		if letter := driveLetterOf(d); letter != 0 {
			drives = append(drives, letter)
		}
	}
	return drives, nil
}

// driveLetterOf extracts a drive letter from a device's mountpoint, when
// it has the form "X:" or "X:\". Devices without a recognizable letter
// (common on non-Windows hosts being used to mount a raw image) are
// skipped by the wildcard expansion; such devices are still addressable
// by passing their explicit single-letter mapping.
func driveLetterOf(d device.Device) byte {
	mp := d.Mountpoint
	if len(mp) >= 2 && mp[1] == ':' {
		return mp[0]
	}
	return 0
}

// copyOnDrive resolves and copies pattern (drive-relative, possibly
// containing a single-component '*' wildcard) on one drive.
func (s *Session) copyOnDrive(drive byte, pattern, destRoot string, recursive bool) (int, error) {
	vol, err := s.volumeFor(drive)
	if err != nil {
		return 0, err
	}

	components := splitPath(pattern)
	matches, err := s.expandWildcards(vol, drive, components)
	if err != nil {
		return 0, err
	}

	var copied int
	var errs []error
	for _, m := range matches {
		n, err := s.copyMatch(vol, drive, m, destRoot, recursive)
		copied += n
		if err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return copied, joinErrors(errs)
	}
	return copied, nil
}

// expandWildcards resolves components to concrete record numbers,
// expanding a single '*' component (matching every child at that level)
// but never '**'.
func (s *Session) expandWildcards(vol *Volume, drive byte, components []string) ([]pathMatch, error) {
	frontier := []pathMatch{{recordNumber: RecordNumberRoot, path: ""}}

	for _, component := range components {
		var next []pathMatch
		for _, m := range frontier {
			if component != "*" {
				childPath := joinComponent(m.path, component)
				if cached, ok := s.cache.Get(drive, childPath); ok && vol.recordStillInUse(cached) {
					next = append(next, pathMatch{recordNumber: cached, path: childPath})
					continue
				}
				// Cache miss, or a stale entry whose record number was
				// reused/freed since it was cached: re-resolve live.
				record, err := vol.ReadRecord(m.recordNumber)
				if err != nil {
					continue
				}
				child, err := vol.lookupChild(record, component)
				if err != nil {
					continue
				}
				s.cache.Put(drive, childPath, child)
				next = append(next, pathMatch{recordNumber: child, path: childPath})
				continue
			}

			names, err := vol.ListChildren(m.recordNumber)
			if err != nil {
				continue
			}
			record, err := vol.ReadRecord(m.recordNumber)
			if err != nil {
				continue
			}
			for _, name := range names {
				child, err := vol.lookupChild(record, name)
				if err != nil {
					continue
				}
				childPath := joinComponent(m.path, name)
				s.cache.Put(drive, childPath, child)
				next = append(next, pathMatch{recordNumber: child, path: childPath})
			}
		}
		frontier = next
	}

	if len(frontier) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrPathNotFound, strings.Join(components, `\`))
	}
	return frontier, nil
}

type pathMatch struct {
	recordNumber uint64
	path         string
}

func joinComponent(base, name string) string {
	if base == "" {
		return name
	}
	return base + `\` + name
}

// copyMatch copies a single resolved path (file or, if recursive,
// directory) to destRoot, preserving its relative path layout.
func (s *Session) copyMatch(vol *Volume, drive byte, m pathMatch, destRoot string, recursive bool) (int, error) {
	record, err := vol.ReadRecord(m.recordNumber)
	if err != nil {
		return 0, err
	}

	if record.IsDirectory() {
		if !recursive {
			return 0, fmt.Errorf("%w: %q is a directory (pass recursive to copy it)", ErrNotADirectory, m.path)
		}
		return s.copyDirectory(vol, drive, m, destRoot)
	}

	return 1, s.copyFile(vol, m.recordNumber, filepath.Join(destRoot, m.path))
}

func (s *Session) copyDirectory(vol *Volume, drive byte, m pathMatch, destRoot string) (int, error) {
	names, err := vol.ListChildren(m.recordNumber)
	if err != nil {
		return 0, err
	}
	record, err := vol.ReadRecord(m.recordNumber)
	if err != nil {
		return 0, err
	}

	var copied int
	var errs []error
	for _, name := range names {
		if name == "." || name == ".." {
			continue
		}
		child, err := vol.lookupChild(record, name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		childPath := joinComponent(m.path, name)
		s.cache.Put(drive, childPath, child)
		n, err := s.copyMatch(vol, drive, pathMatch{recordNumber: child, path: childPath}, destRoot, true)
		copied += n
		if err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return copied, joinErrors(errs)
	}
	return copied, nil
}

func (s *Session) copyFile(vol *Volume, recordNumber uint64, destPath string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("%w: creating %q: %v", ErrExtractIO, filepath.Dir(destPath), err)
	}
	f, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("%w: creating %q: %v", ErrExtractIO, destPath, err)
	}
	defer f.Close()

	if _, err := vol.ExtractStream(recordNumber, "", f); err != nil {
		return fmt.Errorf("copying to %q: %w", destPath, err)
	}

	streams, err := vol.Streams(recordNumber)
	if err == nil {
		for _, name := range streams {
			if name == "" {
				continue
			}
			adsPath := destPath + "_ADS_" + name
			adsFile, err := os.Create(adsPath)
			if err != nil {
				continue // best-effort: skip a stream whose name the destination filesystem rejects
			}
			vol.ExtractStream(recordNumber, name, adsFile)
			adsFile.Close()
		}
	}

	return nil
}

// joinErrors combines multiple per-path failures into one error value,
// preserving errors.Is matching against the first error via %w.
func joinErrors(errs []error) error {
	if len(errs) == 1 {
		return errs[0]
	}
	return fmt.Errorf("%d paths failed: %w (and %d more)", len(errs), errs[0], len(errs)-1)
}
