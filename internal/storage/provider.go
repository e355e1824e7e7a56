// Package storage defines the data-directory artifact abstraction.
package storage

import "time"

// ArtifactInfo is lightweight metadata about one stored artifact.
type ArtifactInfo struct {
	Name    string
	Path    string // relative to the data root
	Size    int64
	ModTime time.Time
}

// Provider is the interface for durable artifact operations. All paths are
// relative to the data root.
type Provider interface {
	// List returns metadata for every .json artifact directly under dir.
	List(dir string) ([]ArtifactInfo, error)
	// Read returns the raw bytes of the artifact at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (temp file, fsync, rename).
	Write(path string, content []byte) error
	// Delete removes the artifact at path.
	Delete(path string) error
	// Root returns the absolute data root directory.
	Root() string
}
