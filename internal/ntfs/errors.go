package ntfs

import "errors"

// Sentinel errors for the resolver's error handling. Callers distinguish
// them with errors.Is to decide whether a failure is fatal to the current
// record, the current path, or the whole pattern.
var (
	ErrCorruptFixup      = errors.New("ntfs: corrupt fixup (usa_offset/usa_count out of range)")
	ErrCorruptRunlist    = errors.New("ntfs: corrupt data run list")
	ErrCorruptAttribute  = errors.New("ntfs: corrupt attribute")
	ErrBadMagic          = errors.New("ntfs: bad record magic")
	ErrRecordOutOfRange  = errors.New("ntfs: mft record number out of range")
	ErrNotADirectory     = errors.New("ntfs: not a directory")
	ErrPathNotFound      = errors.New("ntfs: path not found")
	ErrAttributeNotFound = errors.New("ntfs: attribute not found")
	ErrExtractIO         = errors.New("ntfs: extraction I/O error")
)
