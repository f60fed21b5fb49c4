package htmlgen

import (
	_ "embed"

	"github.com/pelamfi/whatsapp-archive-browse/internal/chatdata"
)

//go:embed browse.css
var cssContent string

// cssMTime is a pinned modification time for the embedded stylesheet.
// The asset has no meaningful on-disk mtime once compiled in, and a
// stable value keeps the CSS dependency id identical across runs so an
// unchanged stylesheet never forces page regeneration. The size still
// feeds the id, so editing the stylesheet regenerates every page.
const cssMTime = 1620000000.0

const cssPath = "browse.css"

// CSSHandle returns the file handle under which the embedded stylesheet
// participates in dependency tracking.
func CSSHandle() chatdata.FileHandle {
	return chatdata.FileHandle{
		Path:   cssPath,
		Size:   int64(len(cssContent)),
		MTime:  cssMTime,
		Exists: true,
	}
}
