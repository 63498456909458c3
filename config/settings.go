package config

import "time"

// AzureSettings carries the account connection details needed to build the
// queue/azure QueueService and BlobService pair.
type AzureSettings struct {
	ConnectionString string `mapstructure:"connection_string"`
}

// Settings holds every setting a queue.Provider deployment needs, loadable
// from a config file (config.yaml by default) with environment variable
// overrides under the application's env prefix (e.g. QUEUE_AZURE_CONNECTION_STRING).
type Settings struct {
	Azure              AzureSettings `mapstructure:"azure"`
	MaxMessageSize     int           `mapstructure:"max_message_size"`
	TemporaryContainer string        `mapstructure:"temporary_container"`
	RetryMaxAttempts   uint          `mapstructure:"retry_max_attempts"`
	RetryInitialWait   time.Duration `mapstructure:"retry_initial_wait"`
	LogLevel           string        `mapstructure:"log_level"`
}

// Defaults returns the baseline settings applied before a config file or
// environment overrides are merged in.
func Defaults() Settings {
	return Settings{
		MaxMessageSize:     48 * 1024,
		TemporaryContainer: "queue-overflow",
		RetryMaxAttempts:   3,
		RetryInitialWait:   200 * time.Millisecond,
		LogLevel:           "info",
	}
}

// Load reads settings for `app` from its config file (searched for per
// Handler's default locations) plus any matching environment variables,
// layered on top of Defaults(). A missing config file is not an error.
func Load(app string, locations ...string) (Settings, error) {
	h := New(app, &Options{Locations: locations})
	if err := h.ReadFile(true); err != nil {
		return Settings{}, err
	}

	// AutomaticEnv alone does not expose environment-only keys to
	// Unmarshal, so every setting is bound to its environment variable.
	for _, key := range []string{
		"azure.connection_string", "max_message_size", "temporary_container",
		"retry_max_attempts", "retry_initial_wait", "log_level",
	} {
		_ = h.Internals().BindEnv(key)
	}

	settings := Defaults()
	if err := h.Unmarshal(&settings, ""); err != nil {
		return Settings{}, err
	}
	return settings, nil
}
