package types

import (
	"errors"
	"fmt"
)

// Default business rules.
const (
	DefaultStoryIDPrefix       = "US-"
	DefaultCriteriaIDPrefix    = "AC-"
	DefaultMaxCriteriaPerStory = 20
	DefaultMaxPageSize         = 100
)

// Rules holds the business rules the services enforce. They are
// configuration, not storage invariants.
type Rules struct {
	StoryIDPrefix       string `json:"story_id_prefix" yaml:"story_id_prefix" mapstructure:"story_id_prefix"`
	CriteriaIDPrefix    string `json:"criteria_id_prefix" yaml:"criteria_id_prefix" mapstructure:"criteria_id_prefix"`
	MaxCriteriaPerStory int    `json:"max_criteria_per_story" yaml:"max_criteria_per_story" mapstructure:"max_criteria_per_story"`
	MaxPageSize         int    `json:"max_page_size" yaml:"max_page_size" mapstructure:"max_page_size"`
}

// DefaultRules returns the stock rules: US-/AC- prefixes, 20 criteria per
// story, pages of at most 100.
func DefaultRules() Rules {
	return Rules{
		StoryIDPrefix:       DefaultStoryIDPrefix,
		CriteriaIDPrefix:    DefaultCriteriaIDPrefix,
		MaxCriteriaPerStory: DefaultMaxCriteriaPerStory,
		MaxPageSize:         DefaultMaxPageSize,
	}
}

// Config holds the data location and rules used to open a store and build
// the services.
type Config struct {
	DataDir string `json:"data_dir" yaml:"data_dir"`
	Rules   Rules  `json:"rules" yaml:"rules"`
}

// Config validation errors.
var (
	ErrPrefixEmpty        = errors.New("id prefix must not be empty")
	ErrPrefixesCollide    = errors.New("story and criteria id prefixes must differ")
	ErrCriteriaCapInvalid = errors.New("max criteria per story must be positive")
	ErrPageSizeInvalid    = errors.New("max page size must be positive")
)

// Validate checks that the rules are usable.
func (r Rules) Validate() error {
	if r.StoryIDPrefix == "" || r.CriteriaIDPrefix == "" {
		return ErrPrefixEmpty
	}
	if r.StoryIDPrefix == r.CriteriaIDPrefix {
		return ErrPrefixesCollide
	}
	if r.MaxCriteriaPerStory <= 0 {
		return ErrCriteriaCapInvalid
	}
	if r.MaxPageSize <= 0 {
		return ErrPageSizeInvalid
	}
	return nil
}

// Validate checks that the Config is well-formed. An empty DataDir is valid
// and means the current directory.
func (c Config) Validate() error {
	if err := c.Rules.Validate(); err != nil {
		return fmt.Errorf("rules: %w", err)
	}
	return nil
}
