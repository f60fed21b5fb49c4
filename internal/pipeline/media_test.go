package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pelamfi/whatsapp-archive-browse/internal/chatdata"
	"github.com/pelamfi/whatsapp-archive-browse/internal/htmlgen"
	"github.com/pelamfi/whatsapp-archive-browse/internal/vfs"
)

const mediaTranscript = "[1.1.2022 klo 10.00.00] Chat: header\n" +
	"[1.1.2022 klo 10.01.00] A: ‎<attached: IMG-001.jpg>\n"

func resolveTestData(t *testing.T, root string) (*chatdata.ChatData, *vfs.VFS) {
	t.Helper()
	v := scanInput(t, root, nil)
	data := ProcessMessages(v, chatdata.NewChatData(), zap.NewNop())
	PlanOutputFiles(data, htmlgen.CSSHandle())
	ResolveMedia(data, v, zap.NewNop())
	return data, v
}

func TestResolveMediaPrefersSameDirectory(t *testing.T) {
	root := t.TempDir()
	writeInput(t, root, "backup/_chat.txt", mediaTranscript, time.Unix(1000000, 0))
	writeInput(t, root, "backup/IMG-001.jpg", "right jpeg", time.Unix(1000001, 0))
	writeInput(t, root, "elsewhere/IMG-001.jpg", "wrong jpeg", time.Unix(1000002, 0))

	data, v := resolveTestData(t, root)

	sibling, ok := v.ByPath("backup/IMG-001.jpg")
	require.True(t, ok)

	outputFile := data.Chats["Chat"].OutputFiles[2022]
	require.NotNil(t, outputFile)
	assert.Equal(t, sibling.ID(), outputFile.MediaDependencies["IMG-001.jpg"])
	assert.Contains(t, data.InputFiles, sibling.ID())
}

func TestResolveMediaFallsBackToGlobalLookup(t *testing.T) {
	root := t.TempDir()
	writeInput(t, root, "backup/_chat.txt", mediaTranscript, time.Unix(1000000, 0))
	writeInput(t, root, "media-pile/z/IMG-001.jpg", "jpeg z", time.Unix(1000001, 0))
	writeInput(t, root, "media-pile/a/IMG-001.jpg", "jpeg a", time.Unix(1000002, 0))

	data, v := resolveTestData(t, root)

	// The fallback picks the first of the path-sorted candidates so the
	// choice is reproducible.
	expected, ok := v.ByPath("media-pile/a/IMG-001.jpg")
	require.True(t, ok)

	outputFile := data.Chats["Chat"].OutputFiles[2022]
	assert.Equal(t, expected.ID(), outputFile.MediaDependencies["IMG-001.jpg"])
}

func TestResolveMediaRecordsMissingAsEmpty(t *testing.T) {
	root := t.TempDir()
	writeInput(t, root, "backup/_chat.txt", mediaTranscript, time.Unix(1000000, 0))

	data, _ := resolveTestData(t, root)

	outputFile := data.Chats["Chat"].OutputFiles[2022]
	id, recorded := outputFile.MediaDependencies["IMG-001.jpg"]
	require.True(t, recorded)
	assert.Empty(t, id)
}
