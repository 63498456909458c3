package config

import (
	"os"
	"path/filepath"
	"testing"

	tdd "github.com/stretchr/testify/assert"
)

func TestLoadDefaultsWhenNoFilePresent(t *testing.T) {
	assert := tdd.New(t)
	dir := t.TempDir()

	settings, err := Load("queue-test-no-file", dir)
	assert.NoError(err)
	assert.Equal(Defaults(), settings)
}

func TestLoadMergesConfigFile(t *testing.T) {
	assert := tdd.New(t)
	dir := t.TempDir()

	contents := "azure:\n  connection_string: \"DefaultEndpointsProtocol=https;AccountName=sample;AccountKey=c2VjcmV0\"\nmax_message_size: 1024\n"
	assert.NoError(os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(contents), 0o600))

	settings, err := Load("queue-test-with-file", dir)
	assert.NoError(err)
	assert.Equal(1024, settings.MaxMessageSize)
	assert.Contains(settings.Azure.ConnectionString, "AccountName=sample")
	// Untouched defaults should still be present.
	assert.Equal(Defaults().TemporaryContainer, settings.TemporaryContainer)
}

func TestLoadAppliesEnvironmentOverride(t *testing.T) {
	assert := tdd.New(t)
	dir := t.TempDir()
	t.Setenv("QUEUETESTENV_MAX_MESSAGE_SIZE", "2048")

	settings, err := Load("queuetestenv", dir)
	assert.NoError(err)
	assert.Equal(2048, settings.MaxMessageSize)
}
