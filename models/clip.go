// Package models provides core data structures for the splicer pipeline.
package models

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ClipRef identifies a video file on disk.
//
// Duration is in whole seconds and is only meaningful when HasDuration is
// true; a zero value means the clip has not been probed yet. ClipRefs are
// values and are never mutated once produced.
type ClipRef struct {
	Path        string `json:"path"`
	Duration    int    `json:"duration,omitempty"`
	HasDuration bool   `json:"has_duration,omitempty"`
}

// NewClipRef creates a ClipRef for a path with an unknown duration.
func NewClipRef(path string) ClipRef {
	return ClipRef{Path: path}
}

// WithDuration returns a copy of the clip carrying a known duration.
func (c ClipRef) WithDuration(seconds int) ClipRef {
	c.Duration = seconds
	c.HasDuration = true
	return c
}

// Validate checks that the clip points somewhere.
func (c ClipRef) Validate() error {
	if strings.TrimSpace(c.Path) == "" {
		return fmt.Errorf("path cannot be empty")
	}
	if c.HasDuration && c.Duration < 0 {
		return fmt.Errorf("duration cannot be negative")
	}
	return nil
}

// Base returns the file name without its directory.
func (c ClipRef) Base() string {
	return filepath.Base(c.Path)
}

// Stem returns the file name without directory and extension.
func (c ClipRef) Stem() string {
	base := c.Base()
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (c ClipRef) String() string {
	return c.Path
}

// NormalizedClip is a clip that satisfies the canonical encoding contract:
// fixed resolution, frame rate and track timescale. Only values of this type
// can be concatenated; the concat step joins streams without re-encoding.
//
// The zero value is not a valid clip. Use AssumeNormalized to mint one.
type NormalizedClip struct {
	clip ClipRef
}

// AssumeNormalized marks a clip as satisfying the canonical encoding.
//
// The normalizer calls this after a successful re-encode. Any other caller is
// asserting the contract on its own authority.
func AssumeNormalized(clip ClipRef) NormalizedClip {
	return NormalizedClip{clip: clip}
}

// Clip returns the underlying clip reference.
func (n NormalizedClip) Clip() ClipRef {
	return n.clip
}

// Path returns the path of the normalized file.
func (n NormalizedClip) Path() string {
	return n.clip.Path
}

// IsZero reports whether the value was never minted.
func (n NormalizedClip) IsZero() bool {
	return n.clip.Path == ""
}

func (n NormalizedClip) String() string {
	return n.clip.Path
}
