package pipeline

import (
	"path"

	"go.uber.org/zap"

	"github.com/pelamfi/whatsapp-archive-browse/internal/chatdata"
	"github.com/pelamfi/whatsapp-archive-browse/internal/vfs"
)

// ResolveMedia resolves every message's media reference against the VFS
// and records the result in the owning year's dependency map. A media
// name is looked up once per (chat, year); unresolved references are
// recorded as empty ids so "referenced but missing" participates in
// dependency comparison like any other state.
func ResolveMedia(data *chatdata.ChatData, v *vfs.VFS, log *zap.Logger) {
	var resolved, missing int

	for _, name := range sortedChatNames(data) {
		chat := data.Chats[name]
		for _, msg := range chat.Messages {
			if msg.MediaName == "" {
				continue
			}
			outputFile, ok := chat.OutputFiles[msg.Year]
			if !ok {
				continue
			}
			if _, done := outputFile.MediaDependencies[msg.MediaName]; done {
				continue
			}

			handle, found := locateMedia(v, data, msg)
			if !found {
				log.Warn("Media file not found",
					zap.String("chat", string(name)),
					zap.String("media", msg.MediaName))
				outputFile.MediaDependencies[msg.MediaName] = ""
				missing++
				continue
			}
			outputFile.MediaDependencies[msg.MediaName] = handle.ID()
			recordHandle(data, v, handle)
			resolved++
		}
	}

	log.Info("Resolved media references",
		zap.Int("resolved", resolved),
		zap.Int("missing", missing))
}

// locateMedia implements the two-tier lookup: a file sitting next to the
// message's transcript wins; otherwise any file in the tree with the
// referenced basename is accepted. The fallback takes the first entry of
// the path-sorted basename set so the pick is reproducible.
func locateMedia(v *vfs.VFS, data *chatdata.ChatData, msg chatdata.Message) (chatdata.FileHandle, bool) {
	if transcript, ok := v.ByID(msg.InputFileID); ok {
		siblingPath := path.Join(path.Dir(transcript.Path), msg.MediaName)
		if handle, ok := v.ByPath(siblingPath); ok {
			return handle, true
		}
	}
	if candidates := v.ByName(msg.MediaName); len(candidates) > 0 {
		return candidates[0], true
	}
	return chatdata.FileHandle{}, false
}
