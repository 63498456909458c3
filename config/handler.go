// Package config loads queue service settings from a config file plus
// environment variable overrides, following the same file/ENV precedence
// and search-path conventions the rest of the teacher's tooling uses.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"go.bryk.io/queue/errors"
)

// Handler provides a simple interface to manage application settings
// using Viper.
type Handler struct {
	id        string       // application identifier, used as env prefix and default search paths
	file      string       // config file name (without extension)
	ext       string       // implicit extension for the config file when not present
	locations []string     // additional locations to look for a config file
	vp        *viper.Viper // internal viper instance
}

// Options adjust the internal behavior of the configuration handler.
type Options struct {
	// Configuration file name (without extension). Defaults to `config`.
	FileName string

	// Configuration file extension. Used internally to automatically
	// decode its contents accordingly. Defaults to `yaml`.
	FileType string

	// Additional locations to look for the configuration file.
	Locations []string
}

func (o *Options) defaults() {
	if o.FileName == "" {
		o.FileName = "config"
	}
	if o.FileType == "" {
		o.FileType = "yaml"
	}
}

// New returns a new configuration management instance for the provided
// `app` identifier. Optional locations can be provided to specify
// additional paths to look for a config file.
func New(app string, opts *Options) *Handler {
	if opts == nil {
		opts = new(Options)
	}
	opts.defaults()
	h := &Handler{
		id:        app,
		vp:        viper.New(),
		file:      opts.FileName,
		ext:       opts.FileType,
		locations: append([]string{}, opts.Locations...),
	}

	// ENV
	h.vp.SetEnvPrefix(h.id)
	h.vp.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	h.vp.AutomaticEnv()

	// Configuration file settings. Default locations:
	// - /etc/{APP}
	// - $HOME/{APP}
	// - $HOME/.{APP}
	// - `pwd`
	h.vp.SetConfigName(h.file)
	h.vp.SetConfigType(h.ext)
	h.vp.AddConfigPath(filepath.Join("/etc", h.id))
	if home, err := os.UserHomeDir(); err == nil {
		h.vp.AddConfigPath(filepath.Join(home, h.id))
		h.vp.AddConfigPath(filepath.Join(home, fmt.Sprintf(".%s", h.id)))
	}
	h.vp.AddConfigPath(".")
	for _, loc := range h.locations {
		h.vp.AddConfigPath(loc)
	}
	return h
}

// ReadFile tries to load configuration values from the local filesystem;
// optionally ignoring the error produced when no configuration file was
// found.
func (h *Handler) ReadFile(ignoreNotFound bool) error {
	if err := h.vp.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) && ignoreNotFound {
			return nil
		}
		return errors.Wrap(err, "config: read file")
	}
	return nil
}

// FileUsed returns the full path of the configuration file used to load
// the settings, if any.
func (h *Handler) FileUsed() string {
	return h.vp.ConfigFileUsed()
}

// Read loads configuration values from the provided reader.
func (h *Handler) Read(src io.Reader) error {
	return errors.Wrap(h.vp.ReadConfig(src), "config: read")
}

// Get the value registered for `key`, if any.
func (h *Handler) Get(key string) interface{} {
	return h.vp.Get(key)
}

// Set the provided `key` to `value`.
func (h *Handler) Set(key string, value interface{}) {
	h.vp.Set(key, value)
}

// IsSet returns true if a value is available for `key`.
func (h *Handler) IsSet(key string) bool {
	return h.vp.IsSet(key)
}

// Unmarshal loads configuration values into `receiver`, which must be a
// pointer. A `key` value can be provided to load a specific subsection of
// the settings available.
func (h *Handler) Unmarshal(receiver interface{}, key string) error {
	if key != "" {
		return errors.Wrap(h.vp.UnmarshalKey(key, receiver), "config: unmarshal")
	}
	return errors.Wrap(h.vp.Unmarshal(receiver), "config: unmarshal")
}

// Internals expose the private viper instance used by the configuration
// manager; use with care.
func (h *Handler) Internals() *viper.Viper {
	return h.vp
}
