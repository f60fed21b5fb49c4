package vfs

import (
	"archive/zip"
	"fmt"
	"io"
	"strings"
)

// chatTranscriptName is the file name WhatsApp gives exported transcripts,
// both on disk and inside export archives.
const chatTranscriptName = "_chat.txt"

// isChatArchive reports whether the zip at zipPath is a chat export
// archive, recognized by an entry ending in _chat.txt. Malformed
// archives report false with the error for the caller to log.
func isChatArchive(zipPath string) (bool, error) {
	reader, err := zip.OpenReader(zipPath)
	if err != nil {
		return false, err
	}
	defer reader.Close()

	for _, member := range reader.File {
		if strings.HasSuffix(member.Name, chatTranscriptName) {
			return true, nil
		}
	}
	return false, nil
}

// zipMember describes one archive entry as the scanner needs it.
type zipMember struct {
	path  string
	size  int64
	mtime float64
}

// listArchive returns the regular-file members of the archive. Member
// mtimes come from the per-entry date and sizes are uncompressed sizes,
// so member ids stay stable as long as the archive content does.
func listArchive(zipPath string) ([]zipMember, error) {
	reader, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	members := make([]zipMember, 0, len(reader.File))
	for _, member := range reader.File {
		if member.FileInfo().IsDir() {
			continue
		}
		members = append(members, zipMember{
			path:  member.Name,
			size:  int64(member.UncompressedSize64),
			mtime: float64(member.Modified.Unix()),
		})
	}
	return members, nil
}

// zipMemberReader keeps the archive reader open for as long as the
// member stream is in use.
type zipMemberReader struct {
	archive *zip.ReadCloser
	member  io.ReadCloser
}

func (r *zipMemberReader) Read(p []byte) (int, error) {
	return r.member.Read(p)
}

func (r *zipMemberReader) Close() error {
	memberErr := r.member.Close()
	archiveErr := r.archive.Close()
	if memberErr != nil {
		return memberErr
	}
	return archiveErr
}

// openZipMember opens one member of the archive at zipPath for reading.
// The central directory is re-parsed on each call; archives are small
// enough that the simplicity wins.
func openZipMember(zipPath, memberPath string) (io.ReadCloser, error) {
	archive, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", zipPath, err)
	}
	for _, member := range archive.File {
		if member.Name != memberPath {
			continue
		}
		stream, err := member.Open()
		if err != nil {
			archive.Close()
			return nil, fmt.Errorf("open archive member %s: %w", memberPath, err)
		}
		return &zipMemberReader{archive: archive, member: stream}, nil
	}
	archive.Close()
	return nil, fmt.Errorf("%w: %s in %s", ErrNotFound, memberPath, zipPath)
}
