package config

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/Veraticus/biweekly/internal/common"
	"github.com/spf13/viper"
)

// SettingsFileName is the settings file every user directory carries.
const SettingsFileName = "service_config.json"

// Setting keys. Nested keys use viper's dotted form.
const (
	KeyTemplateFilePath = "templateFilePath"
	KeyOutputBaseDir    = "outputBaseDir"
	KeyHistoryDatabase  = "historyDatabase"
)

// Settings are the resolved values the generator needs from the settings file.
type Settings struct {
	v                *viper.Viper
	logger           *slog.Logger
	TemplateFilePath string
	OutputBaseDir    string
	HistoryDatabase  string
}

// NewSettings resolves settings from v. Missing keys are logged and left
// empty. Relative paths are taken relative to the settings file.
func NewSettings(v *viper.Viper, logger *slog.Logger) *Settings {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Settings{v: v, logger: logger}
	var base string
	if file := s.File(); file != "" {
		base = filepath.Dir(file)
	}
	s.TemplateFilePath = ResolvePath(base, s.Lookup(KeyTemplateFilePath))
	s.OutputBaseDir = ResolvePath(base, s.Lookup(KeyOutputBaseDir))
	s.HistoryDatabase = ResolvePath(base, s.Lookup(KeyHistoryDatabase))
	return s
}

// LoadSettings reads the JSON settings file at path into a fresh viper
// instance. Environment variables prefixed with BIWEEKLY_ override file values.
func LoadSettings(path string, logger *slog.Logger) (*Settings, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetEnvPrefix("BIWEEKLY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read settings %s: %w", path, err)
	}
	return NewSettings(v, logger), nil
}

// Lookup returns the string value stored under key. A missing key is logged
// and yields "", leaving the caller to decide whether that is fatal.
func (s *Settings) Lookup(key string) string {
	if s.v == nil || !s.v.IsSet(key) {
		s.logger.Warn("Unable to find settings key", "key", key, "file", s.File())
		return ""
	}
	return s.v.GetString(key)
}

// File returns the settings file in use, if any.
func (s *Settings) File() string {
	if s.v == nil {
		return ""
	}
	return s.v.ConfigFileUsed()
}

// Validate reports the first setting the generator cannot run without.
func (s *Settings) Validate() error {
	if s.TemplateFilePath == "" {
		return fmt.Errorf("%w: %s", common.ErrMissingConfig, KeyTemplateFilePath)
	}
	if s.OutputBaseDir == "" {
		return fmt.Errorf("%w: %s", common.ErrMissingConfig, KeyOutputBaseDir)
	}
	return nil
}
