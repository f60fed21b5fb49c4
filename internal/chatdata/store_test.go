package chatdata

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadMissingStateYieldsEmpty(t *testing.T) {
	data := Load(t.TempDir(), zap.NewNop())
	require.NotNil(t, data)
	assert.Empty(t, data.Chats)
	assert.Empty(t, data.InputFiles)
}

func TestSaveThenLoad(t *testing.T) {
	dir := t.TempDir()
	data := buildTestData()

	require.NoError(t, Save(data, dir))

	loaded := Load(dir, zap.NewNop())
	assert.Equal(t, data.InputFiles, loaded.InputFiles)
	assert.Equal(t, data.Timestamp, loaded.Timestamp)
	require.Contains(t, loaded.Chats, ChatName("Space Rocket"))
}

func TestSaveKeepsPreviousGenerationAsBackup(t *testing.T) {
	dir := t.TempDir()

	first := buildTestData()
	first.Timestamp = "run one"
	require.NoError(t, Save(first, dir))

	firstBytes, err := os.ReadFile(filepath.Join(dir, StateFileName))
	require.NoError(t, err)

	second := buildTestData()
	second.Timestamp = "run two"
	require.NoError(t, Save(second, dir))

	backupBytes, err := os.ReadFile(filepath.Join(dir, StateBackupFileName))
	require.NoError(t, err)
	assert.Equal(t, string(firstBytes), string(backupBytes))

	// No NEW file is left behind after a successful swap.
	_, err = os.Stat(filepath.Join(dir, StateNewFileName))
	assert.True(t, os.IsNotExist(err))
}

func TestSaveReplacesOlderBackup(t *testing.T) {
	dir := t.TempDir()
	for i, stamp := range []string{"one", "two", "three"} {
		data := buildTestData()
		data.Timestamp = stamp
		require.NoError(t, Save(data, dir), "save %d", i)
	}

	backup, err := os.ReadFile(filepath.Join(dir, StateBackupFileName))
	require.NoError(t, err)
	assert.Contains(t, string(backup), "two")
}

func TestLoadCorruptStateYieldsEmpty(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, StateFileName), []byte("{ broken"), 0644))

	data := Load(dir, zap.NewNop())
	require.NotNil(t, data)
	assert.Empty(t, data.Chats)
}
