package pipeline

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// writeZipInput creates a chat export archive whose single member is a
// transcript named _chat.txt, and pins the archive mtime.
func writeZipInput(t *testing.T, root, rel, transcript string, mtime time.Time) {
	t.Helper()
	full := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))

	out, err := os.Create(full)
	require.NoError(t, err)
	writer := zip.NewWriter(out)
	entry, err := writer.CreateHeader(&zip.FileHeader{
		Name:     "_chat.txt",
		Method:   zip.Deflate,
		Modified: mtime,
	})
	require.NoError(t, err)
	_, err = entry.Write([]byte(transcript))
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	require.NoError(t, out.Close())
	require.NoError(t, os.Chtimes(full, mtime, mtime))
}
