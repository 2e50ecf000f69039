package ntfs

import (
	"fmt"

	"github.com/shubham/ntfsresolver/internal/ntfscursor"
)

// FileNameNamespace distinguishes the four namespaces NTFS can store a
// name in.
type FileNameNamespace uint8

const (
	NamespacePosix    FileNameNamespace = 0
	NamespaceWin32    FileNameNamespace = 1
	NamespaceDOS      FileNameNamespace = 2
	NamespaceWin32DOS FileNameNamespace = 3
)

// FileNameAttr is a decoded $FILE_NAME ($30) attribute value: the parent
// directory reference plus the name in one namespace. A record can carry
// several of these (one per namespace it needs).
type FileNameAttr struct {
	ParentDirectory FileReference
	Name            string
	Namespace       FileNameNamespace
}

// ParseFileNameAttr decodes a resident $FILE_NAME attribute value.
func ParseFileNameAttr(buf []byte) (*FileNameAttr, error) {
	if len(buf) < 0x42 {
		return nil, fmt.Errorf("%w: file name value shorter than header", ErrCorruptAttribute)
	}
	c := ntfscursor.New(buf)

	parentRef, err := c.Uint64(0x00)
	if err != nil {
		return nil, err
	}
	nameLenChars, err := c.Uint8(0x40)
	if err != nil {
		return nil, err
	}
	namespace, err := c.Uint8(0x41)
	if err != nil {
		return nil, err
	}
	name, err := c.UTF16At(0x42, int(nameLenChars)*2)
	if err != nil {
		return nil, fmt.Errorf("%w: file name value: %v", ErrCorruptAttribute, err)
	}

	return &FileNameAttr{
		ParentDirectory: FileReference(parentRef),
		Name:            name,
		Namespace:       FileNameNamespace(namespace),
	}, nil
}
