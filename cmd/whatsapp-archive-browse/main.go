// Command whatsapp-archive-browse turns WhatsApp chat exports into a
// static, browseable HTML archive. It is a batch tool: point it at an
// export folder and an output folder, run it as often as you like, and
// only the pages whose inputs changed are rewritten.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pelamfi/whatsapp-archive-browse/internal/config"
	"github.com/pelamfi/whatsapp-archive-browse/internal/logging"
	"github.com/pelamfi/whatsapp-archive-browse/internal/pipeline"
)

const helpEpilog = `
Examples:
    # Generate HTML from a WhatsApp export folder
    whatsapp-archive-browse --input path/to/whatsapp/export --output path/to/html/output

Notes:
    - Input folder should contain WhatsApp chat exports (_chat.txt files)
    - Can handle both expanded and .zip WhatsApp exports
    - Output directory will be created if it doesn't exist
    - Generates clean, static HTML with year-based organization
    - Detects and handles duplicate messages from multiple backups
    - Preserves and links media files referenced in chats
`

func timestamp() string {
	return time.Now().Format("2006-01-02 15:04:05")
}

func newRootCommand() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:           "whatsapp-archive-browse --input DIR --output DIR",
		Short:         "WhatsApp archive browseability generator",
		Long:          "Generates a static, per-chat, per-year HTML archive from WhatsApp chat exports.\n" + helpEpilog,
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			v.SetEnvPrefix(config.EnvPrefix)
			v.AutomaticEnv()
			return config.FromViper(v).Validate()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := config.FromViper(v)

			log, err := logging.New(opts.Verbosity, opts.Quiet)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer log.Sync() //nolint:errcheck

			runOpts := pipeline.Options{
				InputRoot:  opts.InputFolder,
				OutputRoot: opts.OutputFolder,
				Timestamp:  timestamp(),
				Logger:     log,
			}

			if opts.Watch {
				ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
				defer stop()
				return pipeline.WatchAndRun(ctx, runOpts, timestamp)
			}
			return pipeline.Run(runOpts)
		},
	}

	flags := cmd.Flags()
	flags.String("input", "", "Input folder containing WhatsApp archives (either expanded or .zip)")
	flags.String("output", "", "Output folder for generated browseable HTML files")
	flags.CountP("verbose", "v", "Increase verbosity (repeat up to -vvv for trace output)")
	flags.BoolP("quiet", "q", false, "Only report errors")
	flags.Bool("watch", false, "Keep running and regenerate when the input folder changes")

	for _, name := range []string{"input", "output", "verbose", "quiet", "watch"} {
		if err := v.BindPFlag(name, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}

	return cmd
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "whatsapp-archive-browse:", err)
		os.Exit(1)
	}
}
