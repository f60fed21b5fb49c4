// Package config collects the run options from flags and environment.
package config

import (
	"errors"

	"github.com/spf13/viper"
)

// Sentinel errors for missing required options.
var (
	ErrNoInput  = errors.New("input folder not set")
	ErrNoOutput = errors.New("output folder not set")
)

// EnvPrefix is the prefix for environment-variable overrides: every
// flag can also be supplied as WAB_<FLAG>.
const EnvPrefix = "wab"

// Options holds one invocation's settings.
type Options struct {
	// InputFolder contains the WhatsApp exports, expanded or zipped.
	InputFolder string
	// OutputFolder receives the generated HTML tree and the state file.
	OutputFolder string
	// Verbosity is the -v count (0-3: error, info, debug, trace).
	Verbosity int
	// Quiet forces verbosity 0 regardless of -v.
	Quiet bool
	// Watch keeps the process alive and re-runs on input changes.
	Watch bool
}

// FromViper reads the options after the driver has bound its flags.
func FromViper(v *viper.Viper) Options {
	return Options{
		InputFolder:  v.GetString("input"),
		OutputFolder: v.GetString("output"),
		Verbosity:    v.GetInt("verbose"),
		Quiet:        v.GetBool("quiet"),
		Watch:        v.GetBool("watch"),
	}
}

// Validate checks that the required options are present.
func (o Options) Validate() error {
	if o.InputFolder == "" {
		return ErrNoInput
	}
	if o.OutputFolder == "" {
		return ErrNoOutput
	}
	return nil
}
