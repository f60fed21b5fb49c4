package chatdata

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// State file names inside the output root. The previous generation is
// kept as BACKUP so an interrupted or corrupt run never loses the last
// good state.
const (
	StateFileName       = "chat-data.json"
	StateNewFileName    = "chat-data-NEW.json"
	StateBackupFileName = "chat-data-BACKUP.json"
)

// Load reads the persisted state from outputDir. A missing state file
// yields an empty aggregate. A corrupt state file is logged and also
// yields an empty aggregate; the BACKUP copy is left in place for
// forensic recovery.
func Load(outputDir string, log *zap.Logger) *ChatData {
	statePath := filepath.Join(outputDir, StateFileName)

	data, err := os.ReadFile(statePath)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn("Could not read state file", zap.String("path", statePath), zap.Error(err))
		}
		return NewChatData()
	}

	loaded, err := FromJSON(data)
	if err != nil {
		log.Error("State file is corrupt, regenerating from input. "+
			"If input files are missing, some messages may be lost. "+
			"Check the backup state file.",
			zap.String("path", statePath),
			zap.String("backup", filepath.Join(outputDir, StateBackupFileName)),
			zap.Error(err))
		return NewChatData()
	}
	return loaded
}

// Save atomically replaces the persisted state in outputDir:
//
//  1. the new state is written to chat-data-NEW.json
//  2. an existing chat-data.json is renamed to chat-data-BACKUP.json
//     (removing any previous backup first)
//  3. chat-data-NEW.json is renamed to chat-data.json
//
// Rename is atomic within a filesystem, so a crash at any point leaves
// either the previous generation in place or recoverable as BACKUP.
func Save(data *ChatData, outputDir string) error {
	mainPath := filepath.Join(outputDir, StateFileName)
	newPath := filepath.Join(outputDir, StateNewFileName)
	backupPath := filepath.Join(outputDir, StateBackupFileName)

	serialized, err := data.ToJSON()
	if err != nil {
		return fmt.Errorf("serialize state: %w", err)
	}
	if err := os.WriteFile(newPath, serialized, 0644); err != nil {
		return fmt.Errorf("write new state: %w", err)
	}

	if _, err := os.Stat(mainPath); err == nil {
		if _, err := os.Stat(backupPath); err == nil {
			if err := os.Remove(backupPath); err != nil {
				return fmt.Errorf("remove old backup: %w", err)
			}
		}
		if err := os.Rename(mainPath, backupPath); err != nil {
			return fmt.Errorf("back up previous state: %w", err)
		}
	}

	if err := os.Rename(newPath, mainPath); err != nil {
		return fmt.Errorf("activate new state: %w", err)
	}
	return nil
}
