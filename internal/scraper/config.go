package scraper

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// SourceConfig describes the listing site and how to scrape it. Loaded from
// YAML, validated before use.
type SourceConfig struct {
	// BaseURL is the site origin, e.g. "https://www.example.co.th".
	BaseURL string `yaml:"base_url" validate:"required,url"`

	// Strategy selects the extraction strategy: "selectors" (structured DOM)
	// or "regex" (whole-document card pattern fallback).
	Strategy string `yaml:"strategy" validate:"oneof=selectors regex"`

	// Mode selects the target iteration: "months" walks a window of month
	// pages around now, "pages" walks ?page=N until an empty page.
	Mode string `yaml:"mode" validate:"oneof=months pages"`

	// MonthsBefore/MonthsAfter bound the month window in months mode.
	MonthsBefore int `yaml:"months_before" validate:"min=0,max=12"`
	MonthsAfter  int `yaml:"months_after" validate:"min=0,max=12"`

	// MaxPages is the hard page cap in pages mode.
	MaxPages int `yaml:"max_pages" validate:"min=1,max=200"`

	// Delay is the politeness pause between successive targets.
	Delay time.Duration `yaml:"delay"`

	// Timeout bounds each outbound request.
	Timeout time.Duration `yaml:"timeout"`

	Selectors SelectorConfig `yaml:"selectors"`
}

// SelectorConfig holds the CSS selectors for the structured strategy.
type SelectorConfig struct {
	Card     string `yaml:"card"`
	Title    string `yaml:"title"`
	Link     string `yaml:"link"`
	Image    string `yaml:"image"`
	Location string `yaml:"location"`
	DateText string `yaml:"date_text"`
}

// DefaultSourceConfig returns a SourceConfig with defaults applied.
func DefaultSourceConfig() SourceConfig {
	return SourceConfig{
		Strategy:     "selectors",
		Mode:         "months",
		MonthsBefore: 2,
		MonthsAfter:  2,
		MaxPages:     50,
		Delay:        time.Second,
		Timeout:      10 * time.Second,
		Selectors: SelectorConfig{
			Card:     "div.event-card",
			Title:    "h3.event-title",
			Link:     "a.event-link",
			Image:    "img.event-cover",
			Location: "span.event-location",
			DateText: "span.event-date",
		},
	}
}

var validate = validator.New()

// ValidateConfig checks cfg against its struct tags plus the cross-field
// rules the tags cannot express.
func ValidateConfig(cfg SourceConfig) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("source config: %w", err)
	}
	if cfg.Strategy == "selectors" && cfg.Selectors.Card == "" {
		return fmt.Errorf("source config: selectors.card is required for the selectors strategy")
	}
	if cfg.Delay <= 0 {
		return fmt.Errorf("source config: delay must be positive, got %s", cfg.Delay)
	}
	return nil
}

// LoadSourceConfig reads a YAML source config file, applies defaults, and
// validates the result.
func LoadSourceConfig(path string) (SourceConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SourceConfig{}, fmt.Errorf("loading %s: %w", path, err)
	}

	// Start from defaults so omitted fields keep sensible values.
	cfg := DefaultSourceConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return SourceConfig{}, fmt.Errorf("parsing %s: %w", path, err)
	}

	if err := ValidateConfig(cfg); err != nil {
		return SourceConfig{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}
