package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/stories/internal/logging"
	"github.com/mesh-intelligence/stories/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"
	envPrefix      = "STORIES"
)

// Config keys.
const (
	cfgKeyDataDir             = "data_dir"
	cfgKeyLogLevel            = "log_level"
	cfgKeyLogFormat           = "log_format"
	cfgKeyStoryIDPrefix       = "story_id_prefix"
	cfgKeyCriteriaIDPrefix    = "criteria_id_prefix"
	cfgKeyMaxCriteriaPerStory = "max_criteria_per_story"
	cfgKeyMaxPageSize         = "max_page_size"
)

// configFile is the layout of config.yaml.
type configFile struct {
	DataDir             string `yaml:"data_dir,omitempty"`
	LogLevel            string `yaml:"log_level"`
	LogFormat           string `yaml:"log_format"`
	StoryIDPrefix       string `yaml:"story_id_prefix"`
	CriteriaIDPrefix    string `yaml:"criteria_id_prefix"`
	MaxCriteriaPerStory int    `yaml:"max_criteria_per_story"`
	MaxPageSize         int    `yaml:"max_page_size"`
}

func defaultConfigFile() configFile {
	rules := types.DefaultRules()
	return configFile{
		LogLevel:            "info",
		LogFormat:           logging.FormatText,
		StoryIDPrefix:       rules.StoryIDPrefix,
		CriteriaIDPrefix:    rules.CriteriaIDPrefix,
		MaxCriteriaPerStory: rules.MaxCriteriaPerStory,
		MaxPageSize:         rules.MaxPageSize,
	}
}

// settings is the resolved configuration a command runs with.
type settings struct {
	DataDir   string
	LogLevel  string
	LogFormat string
	Rules     types.Rules
}

// loadConfig reads config.yaml from configDir, writing a default file first
// if none exists. STORIES_<KEY> environment variables override file values.
func loadConfig(configDir string) (*viper.Viper, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("create config dir: %w", err)
	}
	if err := writeConfigIfMissing(filepath.Join(configDir, configFileExt), defaultConfigFile()); err != nil {
		return nil, fmt.Errorf("write default config: %w", err)
	}

	v := viper.New()
	def := defaultConfigFile()
	v.SetDefault(cfgKeyLogLevel, def.LogLevel)
	v.SetDefault(cfgKeyLogFormat, def.LogFormat)
	v.SetDefault(cfgKeyStoryIDPrefix, def.StoryIDPrefix)
	v.SetDefault(cfgKeyCriteriaIDPrefix, def.CriteriaIDPrefix)
	v.SetDefault(cfgKeyMaxCriteriaPerStory, def.MaxCriteriaPerStory)
	v.SetDefault(cfgKeyMaxPageSize, def.MaxPageSize)
	// data_dir is left unbound: STORIES_DATA_DIR ranks below config.yaml and
	// is read by the paths resolver.
	v.SetEnvPrefix(envPrefix)
	for _, key := range []string{
		cfgKeyLogLevel, cfgKeyLogFormat, cfgKeyStoryIDPrefix,
		cfgKeyCriteriaIDPrefix, cfgKeyMaxCriteriaPerStory, cfgKeyMaxPageSize,
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

// settingsFrom extracts settings from v. DataDir is the raw config value;
// the caller resolves it against flags and the environment.
func settingsFrom(v *viper.Viper) (settings, error) {
	s := settings{
		DataDir:   v.GetString(cfgKeyDataDir),
		LogLevel:  v.GetString(cfgKeyLogLevel),
		LogFormat: v.GetString(cfgKeyLogFormat),
		Rules: types.Rules{
			StoryIDPrefix:       v.GetString(cfgKeyStoryIDPrefix),
			CriteriaIDPrefix:    v.GetString(cfgKeyCriteriaIDPrefix),
			MaxCriteriaPerStory: v.GetInt(cfgKeyMaxCriteriaPerStory),
			MaxPageSize:         v.GetInt(cfgKeyMaxPageSize),
		},
	}
	if err := s.Rules.Validate(); err != nil {
		return settings{}, fmt.Errorf("config: %w", err)
	}
	return s, nil
}

// writeConfigIfMissing writes cfg to path unless the file already exists.
func writeConfigIfMissing(path string, cfg configFile) error {
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	header := []byte("# stories configuration; STORIES_<KEY> environment variables override.\n")
	return os.WriteFile(path, append(header, data...), 0o644)
}
