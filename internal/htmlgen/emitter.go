// Package htmlgen renders the browseable archive: a top-level chat
// list, a per-chat year list, and per-year message pages. Pages are
// plain static HTML with the stylesheet inlined; there is no JavaScript
// and no external asset, so the output can be archived and moved as a
// unit.
package htmlgen

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/pelamfi/whatsapp-archive-browse/internal/chatdata"
	"github.com/pelamfi/whatsapp-archive-browse/internal/vfs"
)

// Generate writes the archive under outputRoot. Year pages are emitted
// only where the dependency checker requested regeneration; their media
// are copied at the same time, streaming through the VFS so zip-resident
// media decompress once. Index pages are recomputed every run but only
// rewritten when their bytes changed, which keeps a no-op run from
// touching the per-chat directories. The top-level index shows the run
// timestamp, so it is rewritten whenever that timestamp changes.
func Generate(data *chatdata.ChatData, v *vfs.VFS, outputRoot string, log *zap.Logger) error {
	names := make([]string, 0, len(data.Chats))
	for name := range data.Chats {
		names = append(names, string(name))
	}
	sort.Strings(names)

	for _, name := range names {
		chat := data.Chats[chatdata.ChatName(name)]
		if err := generateChat(chat, v, outputRoot, log); err != nil {
			return err
		}
	}

	indexPage := mainIndexHTML(names, data.Timestamp)
	return writeIfChanged(filepath.Join(outputRoot, "index.html"), []byte(indexPage))
}

func generateChat(chat *chatdata.Chat, v *vfs.VFS, outputRoot string, log *zap.Logger) error {
	chatDir := filepath.Join(outputRoot, string(chat.Name))
	if err := os.MkdirAll(chatDir, 0755); err != nil {
		return fmt.Errorf("create chat directory: %w", err)
	}

	years := make([]int, 0, len(chat.OutputFiles))
	for year := range chat.OutputFiles {
		years = append(years, year)
	}
	sort.Ints(years)

	for _, year := range years {
		outputFile := chat.OutputFiles[year]
		if !outputFile.Generate {
			continue
		}
		copyMedia(outputFile, v, chatDir, log)
		page := yearHTML(chat, year)
		pagePath := filepath.Join(chatDir, fmt.Sprintf("%d.html", year))
		if err := os.WriteFile(pagePath, []byte(page), 0644); err != nil {
			return fmt.Errorf("write year page: %w", err)
		}
		log.Debug("Wrote year page", zap.String("chat", string(chat.Name)), zap.Int("year", year))
	}

	index := chatIndexHTML(chat, years)
	return writeIfChanged(filepath.Join(chatDir, "index.html"), []byte(index))
}

// copyMedia copies a regenerated page's resolved media dependencies into
// <chat>/media/. Unresolved or historical media are skipped with a
// warning; a missing picture should not stop the archive build.
func copyMedia(outputFile *chatdata.OutputFile, v *vfs.VFS, chatDir string, log *zap.Logger) {
	names := make([]string, 0, len(outputFile.MediaDependencies))
	for name := range outputFile.MediaDependencies {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		id := outputFile.MediaDependencies[name]
		if id == "" {
			log.Warn("Media referenced but never found", zap.String("media", name))
			continue
		}
		handle, ok := v.ByID(id)
		if !ok || !handle.Exists {
			log.Warn("Media no longer present in input", zap.String("media", name))
			continue
		}
		if err := copyOneMedia(v, handle, chatDir); err != nil {
			log.Warn("Failed to copy media", zap.String("media", name), zap.Error(err))
		}
	}
}

func copyOneMedia(v *vfs.VFS, handle chatdata.FileHandle, chatDir string) error {
	source, _, err := v.Open(handle)
	if err != nil {
		return err
	}
	defer source.Close()

	mediaDir := filepath.Join(chatDir, "media")
	if err := os.MkdirAll(mediaDir, 0755); err != nil {
		return err
	}
	destPath := filepath.Join(mediaDir, path.Base(handle.Path))
	dest, err := os.Create(destPath)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dest, source); err != nil {
		dest.Close()
		return err
	}
	return dest.Close()
}

// formatContent escapes message content and renders embedded newlines
// as <br> tags. Trailing newlines are dropped so messages do not end
// with an empty line.
func formatContent(text string) string {
	escaped := html.EscapeString(text)
	return strings.ReplaceAll(strings.TrimRight(escaped, "\n"), "\n", "<br>\n")
}

func messageHTML(msg chatdata.Message) string {
	var media string
	if msg.MediaName != "" {
		media = fmt.Sprintf(`<div class="media"><img src="media/%s" alt="Media"></div>`,
			html.EscapeString(msg.MediaName))
	}
	return fmt.Sprintf(`
    <div class="message">
        <div class="metadata">
            <span class="timestamp">%s</span>
            <span class="sender">%s</span>
        </div>
        <div class="content">%s</div>
        %s
    </div>`,
		html.EscapeString(msg.Timestamp),
		html.EscapeString(msg.Sender),
		formatContent(msg.Content),
		media)
}

func yearHTML(chat *chatdata.Chat, year int) string {
	var messages bytes.Buffer
	for _, msg := range chat.Messages {
		if msg.Year == year {
			messages.WriteString(messageHTML(msg))
			messages.WriteString("\n")
		}
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <title>%s - %d</title>
    <style>
%s
    </style>
</head>
<body>
    <h1>%s</h1>
    <h2>Messages from %d</h2>
    <nav><a href="index.html" class="nav-link">&larr; Back to years</a></nav>
    <div class="messages">
%s
    </div>
</body>
</html>
`,
		html.EscapeString(string(chat.Name)), year,
		cssContent,
		html.EscapeString(string(chat.Name)), year,
		messages.String())
}

func chatIndexHTML(chat *chatdata.Chat, years []int) string {
	var list bytes.Buffer
	for _, year := range years {
		fmt.Fprintf(&list, `        <li><a href="%d.html">%d</a></li>`+"\n", year, year)
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <title>%s</title>
    <style>
%s
    </style>
</head>
<body>
    <h1>%s</h1>
    <nav><a href="../index.html" class="nav-link">&larr; Back to chats</a></nav>
    <h2>Messages by Year</h2>
    <ul class="year-list">
%s    </ul>
</body>
</html>
`,
		html.EscapeString(string(chat.Name)),
		cssContent,
		html.EscapeString(string(chat.Name)),
		list.String())
}

func mainIndexHTML(chatNames []string, timestamp string) string {
	var list bytes.Buffer
	for _, name := range chatNames {
		escaped := html.EscapeString(name)
		fmt.Fprintf(&list, `        <li><a href="%s/index.html">%s</a></li>`+"\n", escaped, escaped)
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <title>WhatsApp Chats</title>
    <style>
%s
    </style>
</head>
<body>
    <h1>WhatsApp Chats</h1>
    <ul class="chat-list">
%s    </ul>
    <p><small>Generated on %s</small></p>
</body>
</html>
`,
		cssContent,
		list.String(),
		html.EscapeString(timestamp))
}

// writeIfChanged writes content only when the file is absent or its
// bytes differ. Index pages are recomputed every run; skipping the
// no-op write keeps their mtimes honest for incremental checks.
func writeIfChanged(filePath string, content []byte) error {
	existing, err := os.ReadFile(filePath)
	if err == nil && bytes.Equal(existing, content) {
		return nil
	}
	return os.WriteFile(filePath, content, 0644)
}
