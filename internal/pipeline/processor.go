// Package pipeline wires the run together: scan, parse, merge, plan,
// resolve media, check dependencies, emit, persist. Each stage mutates
// the new ChatData in a single-ownership chain; the VFS and the
// previous run's ChatData are read-only throughout.
package pipeline

import (
	"io"
	"path"
	"sort"

	"go.uber.org/zap"

	"github.com/pelamfi/whatsapp-archive-browse/internal/chatdata"
	"github.com/pelamfi/whatsapp-archive-browse/internal/parser"
	"github.com/pelamfi/whatsapp-archive-browse/internal/vfs"
)

// pendingChat is one source of messages for a conversation: either a
// freshly parsed transcript or the previous run's merged chat, keyed by
// the mtime used for chronological ordering.
type pendingChat struct {
	mtime  float64
	handle chatdata.FileHandle
	chat   *chatdata.Chat
}

// dedupKey is the byte-exact message identity used when merging
// overlapping backups. No normalization on purpose: whitespace variation
// across backups has not been observed, and normalizing risks collapsing
// genuinely distinct messages.
type dedupKey struct {
	timestamp string
	sender    string
	content   string
}

// ProcessMessages merges the previous run's chats with every transcript
// in the VFS into a new ChatData. Sources for the same conversation are
// ordered by file mtime, oldest first: WhatsApp writes a fresh export
// per backup, so the older file holds the earlier part of the
// conversation and localized timestamps never need parsing. Exact
// duplicate messages from overlapping backups are dropped, first
// occurrence wins.
func ProcessMessages(v *vfs.VFS, old *chatdata.ChatData, log *zap.Logger) *chatdata.ChatData {
	data := chatdata.NewChatData()
	pending := map[chatdata.ChatName][]pendingChat{}
	historyIDs := map[chatdata.FileID]struct{}{}

	var oldChatCount, parsedCount, parseFailures, skippedKnown int

	// Previous run first: each old conversation contributes its merged
	// messages as a single source, ordered by the mtime of the transcript
	// its first message came from.
	for _, name := range sortedChatNames(old) {
		oldChat := old.Chats[name]
		if len(oldChat.Messages) == 0 {
			continue
		}
		id := oldChat.Messages[0].InputFileID
		handle, ok := v.ByID(id)
		if !ok {
			// Referenced file missing even as history; keep the messages
			// and let them sort before everything current.
			handle = chatdata.FileHandle{Exists: false}
		}
		historyIDs[id] = struct{}{}
		pending[name] = append(pending[name], pendingChat{
			mtime:  handle.MTime,
			handle: handle,
			chat:   oldChat,
		})
		oldChatCount++
	}

	// Then every transcript present in the input tree. A transcript whose
	// id already arrived via history carries identical content under this
	// tool's collision model, so parsing it again is skipped.
	for _, handle := range v.HandlesSorted() {
		if path.Base(handle.Path) != "_chat.txt" || !handle.Exists {
			continue
		}
		if _, known := historyIDs[handle.ID()]; known {
			skippedKnown++
			continue
		}

		chat := parseTranscript(v, handle, log)
		parsedCount++
		if chat == nil {
			parseFailures++
			continue
		}
		pending[chat.Name] = append(pending[chat.Name], pendingChat{
			mtime:  handle.MTime,
			handle: handle,
			chat:   chat,
		})
	}

	var messageCount, duplicateCount int
	names := make([]chatdata.ChatName, 0, len(pending))
	for name := range pending {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

	for _, name := range names {
		sources := pending[name]
		sort.SliceStable(sources, func(i, j int) bool { return sources[i].mtime < sources[j].mtime })

		combined := data.EnsureChat(name)
		seen := map[dedupKey]struct{}{}

		for _, source := range sources {
			if source.handle.Path != "" {
				recordHandle(data, v, source.handle)
			}
			for _, msg := range source.chat.Messages {
				key := dedupKey{msg.Timestamp, msg.Sender, msg.Content}
				if _, dup := seen[key]; dup {
					duplicateCount++
					continue
				}
				seen[key] = struct{}{}
				combined.Messages = append(combined.Messages, msg)
				messageCount++
			}
		}

		backfillInputFiles(data, combined, v, old)
	}

	log.Info("Merged chat transcripts",
		zap.Int("chats", len(data.Chats)),
		zap.Int("parsed_files", parsedCount),
		zap.Int("parse_failures", parseFailures),
		zap.Int("old_chats", oldChatCount),
		zap.Int("already_known_files", skippedKnown),
		zap.Int("messages", messageCount),
		zap.Int("duplicates_dropped", duplicateCount))

	return data
}

// parseTranscript reads one transcript through the VFS and parses it.
// Unreadable or malformed transcripts are logged and skipped.
func parseTranscript(v *vfs.VFS, handle chatdata.FileHandle, log *zap.Logger) *chatdata.Chat {
	log.Debug("Parsing transcript", zap.String("path", handle.Path))

	reader, _, err := v.Open(handle)
	if err != nil {
		log.Warn("Cannot open transcript", zap.String("path", handle.Path), zap.Error(err))
		return nil
	}
	defer reader.Close()

	content, err := io.ReadAll(reader)
	if err != nil {
		log.Warn("Cannot read transcript", zap.String("path", handle.Path), zap.Error(err))
		return nil
	}

	chat, err := parser.Parse(content, handle.ID(), handle.Path, log)
	if err != nil {
		return nil
	}
	return chat
}

// recordHandle stores a contributing handle in input_files, together
// with its containing archive so archive members stay resolvable from
// persisted state alone.
func recordHandle(data *chatdata.ChatData, v *vfs.VFS, handle chatdata.FileHandle) {
	data.RecordInputFile(handle)
	if handle.ParentZip == "" {
		return
	}
	if parent, ok := v.ByID(handle.ParentZip); ok {
		data.RecordInputFile(parent)
	}
}

// backfillInputFiles makes sure every transcript id referenced by the
// merged messages resolves in input_files. Messages carried over from
// history reference transcripts beyond the single ordering handle, so
// those are pulled from the VFS (which includes historical handles) or,
// failing that, from the old state.
func backfillInputFiles(data *chatdata.ChatData, chat *chatdata.Chat, v *vfs.VFS, old *chatdata.ChatData) {
	for _, msg := range chat.Messages {
		id := msg.InputFileID
		if id == "" {
			continue
		}
		if _, ok := data.InputFiles[id]; ok {
			continue
		}
		if handle, ok := v.ByID(id); ok {
			recordHandle(data, v, handle)
			continue
		}
		if old != nil {
			if handle, ok := old.InputFiles[id]; ok {
				handle.Exists = false
				data.InputFiles[id] = handle
			}
		}
	}
}

func sortedChatNames(data *chatdata.ChatData) []chatdata.ChatName {
	if data == nil {
		return nil
	}
	names := make([]chatdata.ChatName, 0, len(data.Chats))
	for name := range data.Chats {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}
