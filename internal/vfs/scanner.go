package vfs

import (
	"io/fs"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/pelamfi/whatsapp-archive-browse/internal/chatdata"
)

// Scan walks the input tree and builds a VFS over it. Chat export
// archives (zips containing a _chat.txt entry) are indexed at member
// level; other zips stay opaque. Handles known from the previous run's
// state but absent from the walk are inserted as historical
// (exists=false) so references persisted in old state stay resolvable.
//
// Unreadable files and malformed archives are logged and skipped; the
// scan itself only fails when the root cannot be walked at all.
func Scan(root string, old *chatdata.ChatData, log *zap.Logger) (*VFS, error) {
	v := New(root)

	walkErr := filepath.WalkDir(root, func(fullPath string, entry fs.DirEntry, err error) error {
		if err != nil {
			if fullPath == root {
				return err
			}
			log.Warn("Skipping unreadable path", zap.String("path", fullPath), zap.Error(err))
			if entry != nil && entry.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if entry.IsDir() {
			return nil
		}

		info, err := entry.Info()
		if err != nil {
			log.Warn("Skipping unstattable file", zap.String("path", fullPath), zap.Error(err))
			return nil
		}
		relPath, err := filepath.Rel(root, fullPath)
		if err != nil {
			return err
		}
		relPath = filepath.ToSlash(relPath)

		handle := chatdata.FileHandle{
			Path:   relPath,
			Size:   info.Size(),
			MTime:  mtimeSeconds(info),
			Exists: true,
		}

		if strings.HasSuffix(entry.Name(), ".zip") {
			scanArchive(v, fullPath, handle, log)
			return nil
		}

		v.Add(handle)
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	if old != nil {
		mergeHistory(v, old)
	}

	return v, nil
}

// scanArchive probes one zip. Chat archives contribute their own handle
// plus one handle per member; anything else is ignored at member level.
func scanArchive(v *VFS, fullPath string, handle chatdata.FileHandle, log *zap.Logger) {
	isChat, err := isChatArchive(fullPath)
	if err != nil {
		log.Warn("Skipping malformed archive", zap.String("path", handle.Path), zap.Error(err))
		return
	}
	if !isChat {
		log.Debug("Ignoring archive without chat transcript", zap.String("path", handle.Path))
		return
	}

	v.Add(handle)
	zipID := handle.ID()

	members, err := listArchive(fullPath)
	if err != nil {
		log.Warn("Skipping unreadable archive", zap.String("path", handle.Path), zap.Error(err))
		return
	}
	for _, member := range members {
		v.Add(chatdata.FileHandle{
			Path:      member.path,
			Size:      member.size,
			MTime:     member.mtime,
			ParentZip: zipID,
			Exists:    true,
		})
	}
	log.Debug("Indexed chat archive",
		zap.String("path", handle.Path),
		zap.Int("members", len(members)))
}

// mergeHistory inserts handles remembered in the previous state that the
// walk did not find, marked non-existent. They stay addressable by id
// but cannot be opened.
func mergeHistory(v *VFS, old *chatdata.ChatData) {
	for id, handle := range old.InputFiles {
		if _, ok := v.ByID(id); ok {
			continue
		}
		historical := handle
		historical.Exists = false
		v.Add(historical)
	}
}

func mtimeSeconds(info fs.FileInfo) float64 {
	return float64(info.ModTime().UnixNano()) / 1e9
}
