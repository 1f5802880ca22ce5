package track

import (
	"slices"

	"tracktagger/internal/metadata"
)

// AddFile links f to the track and pushes the track's metadata to it.
// Adding a file that is already linked does nothing.
func (t *Track) AddFile(f File) {
	if slices.Contains(t.linkedFiles, f) {
		return
	}
	t.linkedFiles = append(t.linkedFiles, f)
	t.numLinkedFiles++
	t.album.AddFile(t, f)
	t.UpdateFileMetadata(f)
}

// RemoveFile unlinks f and restores its original metadata.
// Removing a file that is not linked does nothing.
func (t *Track) RemoveFile(f File) {
	i := slices.Index(t.linkedFiles, f)
	if i < 0 {
		return
	}
	t.linkedFiles = slices.Delete(t.linkedFiles, i, i+1)
	t.numLinkedFiles--

	fm := f.Metadata()
	fm.Copy(f.OrigMetadata())
	fm.Changed = false

	t.album.RemoveFile(t, f)
	t.Update()
}

// UpdateFileMetadata copies the track's metadata onto a linked file. The
// file keeps its own extension tag. The file refresh is not propagated, the
// track refreshes once instead.
func (t *Track) UpdateFileMetadata(f File) {
	if !slices.Contains(t.linkedFiles, f) {
		return
	}
	fm := f.Metadata()
	fm.Copy(t.metadata)

	orig := f.OrigMetadata()
	if orig.Has(metadata.Extension) {
		fm.SetValues(metadata.Extension, orig.Values(metadata.Extension))
	} else {
		fm.Delete(metadata.Extension)
	}

	fm.Changed = true
	f.Update(false)
	t.Update()
}

// Files returns the linked files in link order.
func (t *Track) Files() []File {
	return slices.Clone(t.linkedFiles)
}

func (t *Track) NumLinkedFiles() int {
	return t.numLinkedFiles
}

func (t *Track) IsLinked() bool {
	return t.numLinkedFiles > 0
}
