// Package storage defines the workspace file-system abstraction.
package storage

import "github.com/starford/testrack/internal/models"

// Provider is the interface for workspace file operations. All paths are
// relative to the workspace root and use forward slashes.
type Provider interface {
	// Root returns the absolute workspace root.
	Root() string
	// SafePath resolves a relative path and rejects escapes from the root.
	SafePath(rel string) (string, error)
	// List returns metadata for every .yaml file under dir.
	List(dir string) ([]models.FileMeta, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Exists reports whether a file is present at path.
	Exists(path string) (bool, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
	// Trash moves the file at path into the trash and returns its new path.
	Trash(path string) (string, error)
	// Move renames oldPath to newPath.
	Move(oldPath, newPath string) error
}

var _ Provider = (*FS)(nil)
