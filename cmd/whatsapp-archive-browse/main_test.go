package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandRequiresInputAndOutput(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetArgs([]string{"--output", t.TempDir()})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "input")

	cmd = newRootCommand()
	cmd.SetArgs([]string{"--input", t.TempDir()})
	err = cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "output")
}

func TestCommandRunsFullPipeline(t *testing.T) {
	input := t.TempDir()
	output := t.TempDir()

	transcript := "[12.3.2022 klo 14.08.18] Space Rocket: Test chat\n" +
		"[12.3.2022 klo 14.09.09] Matias Virtanen: Hello world\n"
	chatPath := filepath.Join(input, "backup", "_chat.txt")
	require.NoError(t, os.MkdirAll(filepath.Dir(chatPath), 0755))
	require.NoError(t, os.WriteFile(chatPath, []byte(transcript), 0644))
	stamp := time.Unix(1000000, 0)
	require.NoError(t, os.Chtimes(chatPath, stamp, stamp))

	cmd := newRootCommand()
	cmd.SetArgs([]string{"--input", input, "--output", output, "-q"})
	require.NoError(t, cmd.Execute())

	page, err := os.ReadFile(filepath.Join(output, "Space Rocket", "2022.html"))
	require.NoError(t, err)
	assert.Contains(t, string(page), "Hello world")

	_, err = os.Stat(filepath.Join(output, "chat-data.json"))
	assert.NoError(t, err)
}

func TestCommandFailsOnMissingInputDir(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetArgs([]string{
		"--input", filepath.Join(t.TempDir(), "does-not-exist"),
		"--output", t.TempDir(),
		"-q",
	})
	require.Error(t, cmd.Execute())
}
