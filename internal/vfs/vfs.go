// Package vfs indexes the input tree behind stable file ids and gives
// the rest of the pipeline a uniform way to read both plain files and
// zip archive members.
package vfs

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/pelamfi/whatsapp-archive-browse/internal/chatdata"
)

// Sentinel errors for expected conditions.
var (
	ErrNotFound    = errors.New("file not found")
	ErrNotReadable = errors.New("file is historical and cannot be opened")
)

// VFS holds every discovered file handle under three indexes: by id
// (primary), by path, and by basename (for media lookup fallback).
// The id and basename indexes hold every handle. The path index holds
// one handle per path: when paths collide (members of different
// archives, or a historical handle at a current file's path), the
// handle added last is the one found by path.
type VFS struct {
	root    string
	byID    map[chatdata.FileID]chatdata.FileHandle
	byPath  map[string]chatdata.FileHandle
	byName  map[string][]chatdata.FileHandle
}

// New returns an empty VFS rooted at the given input directory.
func New(root string) *VFS {
	return &VFS{
		root:   root,
		byID:   map[chatdata.FileID]chatdata.FileHandle{},
		byPath: map[string]chatdata.FileHandle{},
		byName: map[string][]chatdata.FileHandle{},
	}
}

// Root returns the scan root this VFS reads plain files from.
func (v *VFS) Root() string {
	return v.root
}

// Add inserts a handle into all three indexes. Adding a handle whose id
// is already present replaces the previous one.
func (v *VFS) Add(h chatdata.FileHandle) {
	if existing, ok := v.byID[h.ID()]; ok {
		v.Remove(existing)
	}
	v.byID[h.ID()] = h
	v.byPath[h.Path] = h
	name := path.Base(h.Path)
	v.byName[name] = append(v.byName[name], h)
}

// Remove deletes a handle from all three indexes.
func (v *VFS) Remove(h chatdata.FileHandle) {
	id := h.ID()
	if _, ok := v.byID[id]; !ok {
		return
	}
	delete(v.byID, id)
	if indexed, ok := v.byPath[h.Path]; ok && indexed.ID() == id {
		delete(v.byPath, h.Path)
	}
	name := path.Base(h.Path)
	kept := v.byName[name][:0]
	for _, candidate := range v.byName[name] {
		if candidate.ID() != id {
			kept = append(kept, candidate)
		}
	}
	if len(kept) == 0 {
		delete(v.byName, name)
	} else {
		v.byName[name] = kept
	}
}

// ByID looks up a handle by id.
func (v *VFS) ByID(id chatdata.FileID) (chatdata.FileHandle, bool) {
	h, ok := v.byID[id]
	return h, ok
}

// ByPath looks up a handle by its slash-separated relative path.
func (v *VFS) ByPath(p string) (chatdata.FileHandle, bool) {
	h, ok := v.byPath[p]
	return h, ok
}

// ByName returns all handles whose basename matches, sorted by path so
// that callers picking "the first" get a reproducible choice.
func (v *VFS) ByName(name string) []chatdata.FileHandle {
	found := v.byName[name]
	if len(found) == 0 {
		return nil
	}
	out := make([]chatdata.FileHandle, len(found))
	copy(out, found)
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Exists reports whether the id resolves to a handle present in the
// current input tree.
func (v *VFS) Exists(id chatdata.FileID) bool {
	h, ok := v.byID[id]
	return ok && h.Exists
}

// PathsSorted returns every indexed path in sorted order, one entry per
// distinct path.
func (v *VFS) PathsSorted() []string {
	paths := make([]string, 0, len(v.byPath))
	for p := range v.byPath {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// HandlesSorted returns every handle ordered by path, then id. Unlike
// PathsSorted this sees all handles even when paths collide, which
// happens when several export archives each contain a member named
// _chat.txt.
func (v *VFS) HandlesSorted() []chatdata.FileHandle {
	handles := make([]chatdata.FileHandle, 0, len(v.byID))
	for _, h := range v.byID {
		handles = append(handles, h)
	}
	sort.Slice(handles, func(i, j int) bool {
		if handles[i].Path != handles[j].Path {
			return handles[i].Path < handles[j].Path
		}
		return handles[i].ID() < handles[j].ID()
	})
	return handles
}

// Open returns a reader over the handle's bytes together with the
// uncompressed size. Plain files stream from disk; archive members
// decompress through the containing zip. Historical handles fail with
// ErrNotReadable.
func (v *VFS) Open(h chatdata.FileHandle) (io.ReadCloser, int64, error) {
	if !h.Exists {
		return nil, 0, fmt.Errorf("%w: %s", ErrNotReadable, h.Path)
	}

	if h.ParentZip == "" {
		file, err := os.Open(filepath.Join(v.root, filepath.FromSlash(h.Path)))
		if err != nil {
			return nil, 0, fmt.Errorf("open %s: %w", h.Path, err)
		}
		return file, h.Size, nil
	}

	parent, ok := v.byID[h.ParentZip]
	if !ok || !parent.Exists {
		return nil, 0, fmt.Errorf("%w: archive for member %s", ErrNotFound, h.Path)
	}
	reader, err := openZipMember(filepath.Join(v.root, filepath.FromSlash(parent.Path)), h.Path)
	if err != nil {
		return nil, 0, err
	}
	return reader, h.Size, nil
}
