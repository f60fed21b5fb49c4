package pipeline

import (
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/pelamfi/whatsapp-archive-browse/internal/chatdata"
	"github.com/pelamfi/whatsapp-archive-browse/internal/htmlgen"
	"github.com/pelamfi/whatsapp-archive-browse/internal/vfs"
)

// Sentinel errors for unusable roots. These are the only fatal
// conditions: everything past setup is best effort per conversation.
var (
	ErrInputNotDir  = errors.New("input root is not a directory")
	ErrOutputNotDir = errors.New("output root is not usable")
)

// Options carries one run's inputs from the driver.
type Options struct {
	InputRoot  string
	OutputRoot string
	// Timestamp is the run time preformatted for display; the pipeline
	// never reads the clock itself.
	Timestamp string
	Logger    *zap.Logger
}

// Run executes one full incremental pass: load previous state, scan the
// input tree, merge and dedup messages, plan and check per-year output
// dependencies, emit the HTML that changed, and atomically persist the
// new state. The previous state file survives as backup.
func Run(opts Options) error {
	log := opts.Logger

	info, err := os.Stat(opts.InputRoot)
	if err != nil {
		return fmt.Errorf("input root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrInputNotDir, opts.InputRoot)
	}
	if err := os.MkdirAll(opts.OutputRoot, 0755); err != nil {
		return fmt.Errorf("%w: %v", ErrOutputNotDir, err)
	}

	old := chatdata.Load(opts.OutputRoot, log)

	v, err := vfs.Scan(opts.InputRoot, old, log)
	if err != nil {
		return fmt.Errorf("scan input tree: %w", err)
	}

	data := ProcessMessages(v, old, log)
	PlanOutputFiles(data, htmlgen.CSSHandle())
	ResolveMedia(data, v, log)
	CheckOutputDependencies(data, old, log)
	data.Timestamp = opts.Timestamp

	if err := htmlgen.Generate(data, v, opts.OutputRoot, log); err != nil {
		return fmt.Errorf("generate html: %w", err)
	}
	if err := chatdata.Save(data, opts.OutputRoot); err != nil {
		return fmt.Errorf("persist state: %w", err)
	}

	log.Info("Run complete",
		zap.Int("chats", len(data.Chats)),
		zap.Int("input_files", len(data.InputFiles)))
	return nil
}
