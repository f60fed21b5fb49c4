package pipeline

import (
	"go.uber.org/zap"

	"github.com/pelamfi/whatsapp-archive-browse/internal/chatdata"
)

// CheckOutputDependencies compares each new (chat, year) output record
// against the previous run and flags the ones whose dependency sets
// changed for regeneration. Dependency equality is authoritative:
// message content is never inspected, and an unresolved media reference
// counts as state just like a resolved one.
func CheckOutputDependencies(data *chatdata.ChatData, old *chatdata.ChatData, log *zap.Logger) {
	var total, flagged int

	for name, chat := range data.Chats {
		var oldChat *chatdata.Chat
		if old != nil {
			oldChat = old.Chats[name]
		}

		for year, outputFile := range chat.OutputFiles {
			total++

			var oldFile *chatdata.OutputFile
			if oldChat != nil {
				oldFile = oldChat.OutputFiles[year]
			}
			if oldFile == nil {
				outputFile.Generate = true
				flagged++
				continue
			}
			if !outputFile.DependenciesEqual(oldFile) {
				outputFile.Generate = true
				flagged++
				continue
			}
			log.Debug("Output page is up to date",
				zap.String("chat", string(name)),
				zap.Int("year", year))
		}
	}

	log.Info("Checked output dependencies",
		zap.Int("regenerate", flagged),
		zap.Int("total", total))
}
