package pipeline

import (
	"github.com/pelamfi/whatsapp-archive-browse/internal/chatdata"
)

// PlanOutputFiles rebuilds every chat's per-year output records from its
// merged messages. Each year with messages gets an OutputFile carrying
// the set of transcripts that contributed to that year plus the
// stylesheet dependency; media dependencies start empty and are filled
// in by the media locator. The regenerate decision is left to the
// dependency checker.
func PlanOutputFiles(data *chatdata.ChatData, cssHandle chatdata.FileHandle) {
	data.RecordInputFile(cssHandle)
	cssID := cssHandle.ID()

	for _, chat := range data.Chats {
		chat.OutputFiles = map[int]*chatdata.OutputFile{}

		for _, msg := range chat.Messages {
			outputFile, ok := chat.OutputFiles[msg.Year]
			if !ok {
				outputFile = chatdata.NewOutputFile(msg.Year)
				outputFile.CSSDependency = cssID
				chat.OutputFiles[msg.Year] = outputFile
			}
			if msg.InputFileID != "" {
				outputFile.ChatDependencies[msg.InputFileID] = struct{}{}
			}
		}
	}
}
