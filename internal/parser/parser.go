// Package parser turns WhatsApp transcript files into chats. The line
// grammar is a single regex: a match means every field of a message
// line is present, anything else is a continuation of the previous
// message.
package parser

import (
	"errors"
	"strconv"
	"strings"

	"github.com/dlclark/regexp2"
	"go.uber.org/zap"

	"github.com/pelamfi/whatsapp-archive-browse/internal/chatdata"
)

// ErrNotTranscript marks a file whose first line is not a message line.
// Such a file yields no messages.
var ErrNotTranscript = errors.New("first line is not a message line")

// messageLineRe classifies one transcript line. The left-to-right mark
// (U+200E) WhatsApp embeds is tolerated at line start and after the
// colon. The timestamp is any non-] run containing a four-digit year;
// the year is captured separately and is all that is ever parsed out of
// the timestamp. Tilde-wrapped senders ("~ Name") carry the same "~ "
// prefix again in front of the content; the backreference strips it
// only when it is the symmetric partner of the sender's wrapper, which
// is why this needs regexp2 rather than the stdlib RE2 engine.
var messageLineRe = regexp2.MustCompile(
	`^\u200E?\[(?<ts>[^\]]*?(?<year>(?:19|20)\d\d)[^\]]*)\] (?<tilde>~ )?(?<sender>[^:]*): \u200E?(?:\k<tilde>)?(?<content>.*\n?)`,
	regexp2.None)

// mediaRe finds a media reference inside assembled message content: an
// angle-bracketed label of one to three short letter words, a colon,
// and the media file name. Matching the label shape instead of the
// localized label text keeps this working across export languages.
var mediaRe = regexp2.MustCompile(
	`<\p{L}{1,20}(?:\s\p{L}{1,20}){0,2}: (?<file>[^>]+)>`,
	regexp2.None)

// messageLine is one successfully classified line.
type messageLine struct {
	timestamp string
	year      int
	sender    string
	content   string
}

// matchMessageLine classifies a single line (terminating newline
// included). It returns false for continuations.
func matchMessageLine(line string) (messageLine, bool) {
	m, err := messageLineRe.FindStringMatch(line)
	if err != nil || m == nil {
		return messageLine{}, false
	}

	year, err := strconv.Atoi(groupString(m, "year"))
	if err != nil {
		return messageLine{}, false
	}
	return messageLine{
		timestamp: groupString(m, "ts"),
		year:      year,
		sender:    groupString(m, "sender"),
		content:   groupString(m, "content"),
	}, true
}

func groupString(m *regexp2.Match, name string) string {
	g := m.GroupByName(name)
	if g == nil || len(g.Captures) == 0 {
		return ""
	}
	return g.String()
}

// extractMedia searches assembled content once for a media reference.
// On a hit it returns the content with the matched span removed and the
// referenced file name.
func extractMedia(content string) (string, string) {
	m, err := mediaRe.FindStringMatch(content)
	if err != nil || m == nil {
		return content, ""
	}
	name := groupString(m, "file")
	runes := []rune(content)
	stripped := string(runes[:m.Index]) + string(runes[m.Index+m.Length:])
	return stripped, name
}

// Parse reads one transcript and produces its chat. The sender of the
// first message line names the chat: WhatsApp's first exported line is
// a synthetic system notice whose sender field is the conversation's
// display name. Every message carries fileID so later stages know which
// transcript contributed it.
//
// Lines that do not match the message grammar are folded verbatim into
// the preceding message, original line feeds preserved. A transcript
// whose first line is not a message line is rejected.
func Parse(content []byte, fileID chatdata.FileID, path string, log *zap.Logger) (*chatdata.Chat, error) {
	text := string(content)

	var chat *chatdata.Chat
	var current *chatdata.Message

	flush := func() {
		if current == nil {
			return
		}
		stripped, mediaName := extractMedia(current.Content)
		current.Content = stripped
		current.MediaName = mediaName
		chat.Messages = append(chat.Messages, *current)
		current = nil
	}

	for len(text) > 0 {
		line := text
		if i := strings.IndexByte(text, '\n'); i >= 0 {
			line = text[:i+1]
			text = text[i+1:]
		} else {
			text = ""
		}

		parsed, ok := matchMessageLine(line)
		if !ok {
			if chat == nil {
				log.Error("Rejecting transcript: first line is not a message line",
					zap.String("path", path))
				return nil, ErrNotTranscript
			}
			current.Content += line
			continue
		}

		if chat == nil {
			chat = chatdata.NewChat(chatdata.ChatName(parsed.sender))
		}
		flush()
		current = &chatdata.Message{
			Timestamp:   parsed.timestamp,
			Sender:      parsed.sender,
			Content:     parsed.content,
			Year:        parsed.year,
			InputFileID: fileID,
		}
	}
	flush()

	if chat == nil {
		log.Error("Rejecting empty transcript", zap.String("path", path))
		return nil, ErrNotTranscript
	}
	return chat, nil
}
