// Package file reads and writes the tags of audio files on disk.
package file

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/h2non/filetype"
	"go.senan.xyz/taglib"

	"tracktagger/internal/metadata"
	"tracktagger/internal/track"
)

// headerSize is enough of the file for filetype to recognise any container.
const headerSize = 261

// File is an audio file with the metadata read from disk and a working copy
// that Save writes back.
type File struct {
	path     string
	orig     *metadata.Metadata
	metadata *metadata.Metadata
	item     track.Item
	parent   track.Item
	readOnly bool
}

// Open reads the tags and audio properties of the file at path.
func Open(path string) (*File, error) {
	tags, err := taglib.ReadTags(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tags from %s: %w", path, err)
	}

	renamed := make(map[string][]string, len(tags))
	for name, values := range tags {
		renamed[fromTagLib(name)] = values
	}
	orig := metadata.FromMap(renamed)
	orig.Set(metadata.Extension, strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."))

	props, err := taglib.ReadProperties(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read properties from %s: %w", path, err)
	}
	if props.Length > 0 {
		orig.Set(metadata.Length, strconv.FormatInt(props.Length.Milliseconds(), 10))
	}

	video, err := isVideo(path)
	if err != nil {
		return nil, err
	}
	if video {
		orig.Set(metadata.Video, "1")
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	return &File{
		path:     path,
		orig:     orig,
		metadata: orig.Clone(),
		readOnly: info.Mode().Perm()&0200 == 0,
	}, nil
}

func isVideo(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	head := make([]byte, headerSize)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return false, fmt.Errorf("failed to read header of %s: %w", path, err)
	}
	return filetype.IsVideo(head[:n]), nil
}

func (f *File) String() string {
	return fmt.Sprintf("<File %s>", f.path)
}

func (f *File) Path() string                     { return f.path }
func (f *File) Metadata() *metadata.Metadata     { return f.metadata }
func (f *File) OrigMetadata() *metadata.Metadata { return f.orig }
func (f *File) CanSave() bool                    { return !f.readOnly }
func (f *File) CanRemove() bool                  { return true }

// SetItem attaches the file's own observer.
func (f *File) SetItem(item track.Item) {
	f.item = item
}

// SetParent attaches the observer that signalled updates propagate to.
func (f *File) SetParent(parent track.Item) {
	f.parent = parent
}

// Update notifies the file's observer, and its parent when signal is set.
func (f *File) Update(signal bool) {
	if f.item != nil {
		f.item.Update()
	}
	if signal && f.parent != nil {
		f.parent.Update()
	}
}

// Save writes the working metadata to disk. Hidden tags are skipped and
// tags removed since the file was read are deleted.
func (f *File) Save() error {
	if f.readOnly {
		return fmt.Errorf("file %s is read-only", f.path)
	}
	tags := tagLibMap(f.metadata, f.orig)
	if err := taglib.WriteTags(f.path, tags, 0); err != nil {
		return fmt.Errorf("failed to write tags to %s: %w", f.path, err)
	}

	f.orig = f.metadata.Clone()
	f.orig.Changed = false
	f.metadata.Changed = false
	f.Update(true)
	return nil
}

// Revert discards unsaved changes.
func (f *File) Revert() {
	f.metadata.Copy(f.orig)
	f.metadata.Changed = false
	f.Update(true)
}
