package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pelamfi/whatsapp-archive-browse/internal/chatdata"
)

const testFileID = chatdata.FileID("test-file-id")

func parse(t *testing.T, transcript string) *chatdata.Chat {
	t.Helper()
	chat, err := Parse([]byte(transcript), testFileID, "backup/_chat.txt", zap.NewNop())
	require.NoError(t, err)
	return chat
}

func TestParseBasicTranscript(t *testing.T) {
	chat := parse(t, "[12.3.2022 klo 14.08.18] Space Rocket: Test chat\n"+
		"[12.3.2022 klo 14.09.09] Matias Virtanen: Hello world")

	assert.Equal(t, chatdata.ChatName("Space Rocket"), chat.Name)
	require.Len(t, chat.Messages, 2)

	first := chat.Messages[0]
	assert.Equal(t, "12.3.2022 klo 14.08.18", first.Timestamp)
	assert.Equal(t, "Space Rocket", first.Sender)
	assert.Equal(t, "Test chat\n", first.Content)
	assert.Equal(t, 2022, first.Year)
	assert.Equal(t, testFileID, first.InputFileID)

	second := chat.Messages[1]
	assert.Equal(t, "Matias Virtanen", second.Sender)
	assert.Equal(t, "Hello world", second.Content)
	assert.Equal(t, 2022, second.Year)
}

func TestParseToleratesDirectionalMarks(t *testing.T) {
	chat := parse(t, "‎[12.3.2022 klo 14.08.18] Space Rocket: Test chat\n"+
		"[12.3.2022 klo 14.09.09] Matias Virtanen: ‎photo comment")

	require.Len(t, chat.Messages, 2)
	assert.Equal(t, "photo comment", chat.Messages[1].Content)
}

func TestParseTildeWrappedSender(t *testing.T) {
	chat := parse(t, "[1.2.2023 klo 10.00.00] Group: created\n"+
		"[1.2.2023 klo 10.01.00] ~ Pekka Puupää: ~ should keep this tilde? no\n"+
		"[1.2.2023 klo 10.02.00] ~ Pekka Puupää: plain content")

	require.Len(t, chat.Messages, 3)

	wrapped := chat.Messages[1]
	assert.Equal(t, "Pekka Puupää", wrapped.Sender)
	assert.Equal(t, "should keep this tilde? no\n", wrapped.Content)

	plain := chat.Messages[2]
	assert.Equal(t, "Pekka Puupää", plain.Sender)
	assert.Equal(t, "plain content", plain.Content)
}

func TestParseTildeContentWithoutTildeSenderKept(t *testing.T) {
	// A leading "~ " in the content is only stripped when it pairs with
	// a tilde-wrapped sender.
	chat := parse(t, "[1.2.2023 klo 10.00.00] Maija: ~ approximately three")
	require.Len(t, chat.Messages, 1)
	assert.Equal(t, "~ approximately three", chat.Messages[0].Content)
}

func TestParseMultilineMessage(t *testing.T) {
	chat := parse(t, "[12.3.2022 klo 14.08.18] Space Rocket: first line\n"+
		"second line\n"+
		"third line\n"+
		"[12.3.2022 klo 14.09.09] Matias Virtanen: next")

	require.Len(t, chat.Messages, 2)
	assert.Equal(t, "first line\nsecond line\nthird line\n", chat.Messages[0].Content)
}

func TestParseInvalidLinesFoldAsContinuations(t *testing.T) {
	chat := parse(t, "[12.3.2022 klo 14.08.18] Space Rocket: start\n"+
		"no brackets here\n"+
		"[] Empty Time: nope\n"+
		"[12.3.20XX klo 14.08.18] Bad Year: nope\n"+
		"[12.3.2022 klo 14.08 Unclosed Bracket: nope\n"+
		"[12.3.2022 klo 14.09.09] Matias Virtanen: still works")

	require.Len(t, chat.Messages, 2)
	assert.Equal(t,
		"start\nno brackets here\n[] Empty Time: nope\n"+
			"[12.3.20XX klo 14.08.18] Bad Year: nope\n"+
			"[12.3.2022 klo 14.08 Unclosed Bracket: nope\n",
		chat.Messages[0].Content)
	assert.Equal(t, "still works", chat.Messages[1].Content)
}

func TestParseYearBounds(t *testing.T) {
	chat := parse(t, "[31.12.1900 klo 23.59.59] Chat: ancient\n"+
		"[1.1.2099 klo 00.00.00] Chat: future")
	require.Len(t, chat.Messages, 2)
	assert.Equal(t, 1900, chat.Messages[0].Year)
	assert.Equal(t, 2099, chat.Messages[1].Year)
}

func TestParseRejectsTranscriptNotStartingWithMessage(t *testing.T) {
	_, err := Parse([]byte("just some text\n[12.3.2022 klo 14.08.18] A: b"),
		testFileID, "bad/_chat.txt", zap.NewNop())
	require.ErrorIs(t, err, ErrNotTranscript)

	_, err = Parse(nil, testFileID, "empty/_chat.txt", zap.NewNop())
	require.ErrorIs(t, err, ErrNotTranscript)
}

func TestParseExtractsMediaReference(t *testing.T) {
	chat := parse(t, "[12.3.2022 klo 14.08.18] Space Rocket: Test chat\n"+
		"[12.3.2022 klo 14.09.09] Matias Virtanen: ‎<attached: IMG-001.jpg>")

	require.Len(t, chat.Messages, 2)
	msg := chat.Messages[1]
	assert.Equal(t, "IMG-001.jpg", msg.MediaName)
	assert.Empty(t, msg.Content)
}

func TestParseMediaLabelShapes(t *testing.T) {
	cases := []struct {
		name    string
		content string
		media   string
	}{
		{"one word", "<attached: VID.mp4>", "VID.mp4"},
		{"two words", "<file attached: doc.pdf>", "doc.pdf"},
		{"three words", "<fichier joint inclus: photo.jpg>", "photo.jpg"},
		{"four words is not a media label", "<one two three four: x.jpg>", ""},
		{"digits in label are not letters", "<attached2: x.jpg>", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			chat := parse(t, "[12.3.2022 klo 14.08.18] Chat: "+tc.content)
			require.Len(t, chat.Messages, 1)
			assert.Equal(t, tc.media, chat.Messages[0].MediaName)
		})
	}
}

func TestParseMediaSpanRemovedFromContent(t *testing.T) {
	chat := parse(t, "[12.3.2022 klo 14.08.18] Chat: look at this <attached: IMG.jpg> amazing")
	require.Len(t, chat.Messages, 1)
	assert.Equal(t, "IMG.jpg", chat.Messages[0].MediaName)
	assert.Equal(t, "look at this  amazing", chat.Messages[0].Content)
}

func TestParseTimestampWithColons(t *testing.T) {
	chat := parse(t, "[2022-03-12 14:08:18] Space Rocket: Test chat")
	require.Len(t, chat.Messages, 1)
	assert.Equal(t, "2022-03-12 14:08:18", chat.Messages[0].Timestamp)
	assert.Equal(t, 2022, chat.Messages[0].Year)
}
