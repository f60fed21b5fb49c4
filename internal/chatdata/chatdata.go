// Package chatdata defines the persisted data model of the archive
// generator: file identities, chats, messages and per-year output file
// records, together with their JSON codec and the on-disk state store.
package chatdata

import (
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"strconv"
)

// FileID identifies a file by its metadata rather than its location.
// Two files with equal (mtime, size, path) are interchangeable for this
// tool's purposes, so the id stays valid across directory moves as long
// as those three attributes are unchanged. SHA-1 is fine here; this is
// not a security boundary.
type FileID string

// NewFileID derives the content address for the given file metadata.
func NewFileID(mtime float64, size int64, path string) FileID {
	key := fmt.Sprintf("%s:%d:%s", formatMTime(mtime), size, path)
	sum := sha1.Sum([]byte(key))
	return FileID(base64.StdEncoding.EncodeToString(sum[:]))
}

// formatMTime renders the mtime deterministically. The exact rendering is
// an implementation detail of the hash key; it only has to be stable.
func formatMTime(mtime float64) string {
	return strconv.FormatFloat(mtime, 'f', -1, 64)
}

// FileHandle describes one input file: a plain file under the scan root
// or a member of a zip archive. Handles are treated as immutable; the VFS
// replaces a handle instead of mutating it.
type FileHandle struct {
	// Path is relative to the scan root, or to the containing zip for
	// archive members. Always slash-separated.
	Path string
	// Size in bytes (uncompressed size for zip members).
	Size int64
	// MTime is the modification time in floating-point seconds since the
	// epoch (the zip per-entry date for archive members).
	MTime float64
	// ParentZip is the id of the enclosing archive, empty for plain files.
	ParentZip FileID
	// Exists is false for historical handles: files known from a previous
	// run's state that are absent from the current scan. Historical
	// handles remain addressable by id but cannot be opened.
	Exists bool
}

// ID returns the handle's content address. It is a pure function of
// (mtime, size, path); two handles with equal ids are interchangeable
// except for the Exists flag.
func (h FileHandle) ID() FileID {
	return NewFileID(h.MTime, h.Size, h.Path)
}

// Message is a single parsed transcript message.
type Message struct {
	// Timestamp is kept verbatim as it appeared between the brackets;
	// only the year is ever interpreted.
	Timestamp string
	Sender    string
	Content   string
	// Year extracted from the timestamp, selects the output page.
	Year int
	// InputFileID is the id of the transcript the message came from.
	InputFileID FileID
	// MediaName is the referenced media file name, empty when the message
	// has no media reference. It is a basename, not an id; media are
	// resolved against the VFS in a later stage.
	MediaName string
}

// ChatName is the primary key of a conversation within a run.
type ChatName string

// OutputFile represents one YYYY.html page of a chat and tracks the
// dependencies used to decide whether the page must be rewritten.
type OutputFile struct {
	Year int
	// Generate is set by the dependency checker when the page must be
	// re-emitted this run.
	Generate bool
	// MediaDependencies maps referenced media basenames to their resolved
	// ids. An empty id records "referenced but not found".
	MediaDependencies map[string]FileID
	// ChatDependencies is the set of transcript ids contributing messages
	// to this year.
	ChatDependencies map[FileID]struct{}
	// CSSDependency is the id of the stylesheet asset inlined into the page.
	CSSDependency FileID
}

// NewOutputFile returns an OutputFile with empty dependency sets.
func NewOutputFile(year int) *OutputFile {
	return &OutputFile{
		Year:              year,
		MediaDependencies: map[string]FileID{},
		ChatDependencies:  map[FileID]struct{}{},
	}
}

// DependenciesEqual reports whether two output files have identical
// dependency sets. Dependency equality is authoritative for regeneration;
// message content is never inspected.
func (f *OutputFile) DependenciesEqual(other *OutputFile) bool {
	if other == nil {
		return false
	}
	if f.CSSDependency != other.CSSDependency {
		return false
	}
	if len(f.MediaDependencies) != len(other.MediaDependencies) {
		return false
	}
	for name, id := range f.MediaDependencies {
		otherID, ok := other.MediaDependencies[name]
		if !ok || otherID != id {
			return false
		}
	}
	if len(f.ChatDependencies) != len(other.ChatDependencies) {
		return false
	}
	for id := range f.ChatDependencies {
		if _, ok := other.ChatDependencies[id]; !ok {
			return false
		}
	}
	return true
}

// Chat is one conversation: its messages oldest first and the per-year
// output file records.
type Chat struct {
	Name        ChatName
	Messages    []Message
	OutputFiles map[int]*OutputFile
}

// NewChat returns an empty chat for the given name.
func NewChat(name ChatName) *Chat {
	return &Chat{
		Name:        name,
		OutputFiles: map[int]*OutputFile{},
	}
}

// ChatData is the persisted aggregate carried between runs.
type ChatData struct {
	Chats map[ChatName]*Chat
	// InputFiles holds every FileHandle referenced from anywhere in the
	// aggregate, keyed by id.
	InputFiles map[FileID]FileHandle
	// Timestamp of the run that produced this data, for display only.
	Timestamp string
}

// NewChatData returns an empty aggregate.
func NewChatData() *ChatData {
	return &ChatData{
		Chats:      map[ChatName]*Chat{},
		InputFiles: map[FileID]FileHandle{},
		Timestamp:  "1970-01-01T00:00:00",
	}
}

// EnsureChat returns the chat for name, creating it if needed.
func (d *ChatData) EnsureChat(name ChatName) *Chat {
	if chat, ok := d.Chats[name]; ok {
		return chat
	}
	chat := NewChat(name)
	d.Chats[name] = chat
	return chat
}

// RecordInputFile stores the handle in InputFiles under its id.
func (d *ChatData) RecordInputFile(h FileHandle) {
	d.InputFiles[h.ID()] = h
}
