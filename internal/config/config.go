package config

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/fraudwatch/account-risk/internal/domain"
	"github.com/fraudwatch/account-risk/internal/domain/detection"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"github.com/shopspring/decimal"
)

// EnvPrefix prefixes every environment override; "__" separates nesting levels
// (RISK_SOURCE__ACCOUNTS_PATH sets source.accounts_path).
const EnvPrefix = "RISK_"

type Config struct {
	Environment     string        `koanf:"environment" validate:"required"`
	LogLevel        string        `koanf:"log_level" validate:"oneof=debug info warn error"`
	RefreshInterval time.Duration `koanf:"refresh_interval" validate:"gte=0"`

	Source    SourceConfig    `koanf:"source"`
	Detection DetectionConfig `koanf:"detection"`
	Report    ReportConfig    `koanf:"report"`
	Metrics   MetricsConfig   `koanf:"metrics"`
}

type SourceConfig struct {
	Driver        string        `koanf:"driver" validate:"oneof=csv postgres"`
	AccountsPath  string        `koanf:"accounts_path" validate:"required_if=Driver csv"`
	ReferencePath string        `koanf:"reference_path" validate:"required_if=Driver csv"`
	Delimiter     string        `koanf:"delimiter"`
	DatabaseURL   string        `koanf:"database_url" validate:"required_if=Driver postgres"`
	LoadTimeout   time.Duration `koanf:"load_timeout" validate:"gt=0"`
}

type DetectionConfig struct {
	HighRiskThreshold float64 `koanf:"high_risk_threshold" validate:"gte=0"`
	Workers           int     `koanf:"workers" validate:"gte=1"`

	Phone PhoneConfig `koanf:"phone"`
	Email EmailConfig `koanf:"email"`
	Geo   GeoConfig   `koanf:"geo"`
}

type PhoneConfig struct {
	RecencyWindow         time.Duration `koanf:"recency_window" validate:"gte=0"`
	RecentChangeWeight    float64       `koanf:"recent_change_weight" validate:"gte=0"`
	MissingOperatorWeight float64       `koanf:"missing_operator_weight" validate:"gte=0"`
}

type EmailConfig struct {
	DisposableDomains []string                 `koanf:"disposable_domains"`
	BlacklistPatterns []string                 `koanf:"blacklist_patterns"`
	TrustedDomains    []string                 `koanf:"trusted_domains"`
	DisposableWeight  float64                  `koanf:"disposable_weight" validate:"gte=0"`
	MalformedWeight   float64                  `koanf:"malformed_weight" validate:"gte=0"`
	BlacklistedWeight float64                  `koanf:"blacklisted_weight" validate:"gte=0"`
	LookalikeWeight   float64                  `koanf:"lookalike_weight" validate:"gte=0"`
	Timeline          map[string]time.Duration `koanf:"timeline" validate:"dive,gt=0"`
}

type GeoConfig struct {
	TerritoryCountries map[string]string `koanf:"territory_countries"`
	MismatchWeight     float64           `koanf:"mismatch_weight" validate:"gte=0"`
}

type ReportConfig struct {
	RecentWindow time.Duration `koanf:"recent_window" validate:"gt=0"`
}

type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		Environment: "development",
		LogLevel:    "info",
		Source: SourceConfig{
			Driver:        "csv",
			AccountsPath:  "processed_data.csv",
			ReferencePath: "MAJNUM.csv",
			LoadTimeout:   30 * time.Second,
		},
		Detection: DetectionConfig{
			HighRiskThreshold: 3,
			Workers:           4,
			Phone: PhoneConfig{
				RecentChangeWeight:    2,
				MissingOperatorWeight: 0.5,
			},
			Email: EmailConfig{
				DisposableDomains: []string{
					"mailinator.com", "yopmail.com", "yopmail.fr", "guerrillamail.com",
					"10minutemail.com", "tempmail.com", "temp-mail.org", "trashmail.com",
					"jetable.org", "getnada.com", "sharklasers.com",
				},
				BlacklistPatterns: []string{
					`^test\d*@`,
					`^(fake|fraud|spam|noreply|no-reply)[0-9._-]*@`,
				},
				TrustedDomains: []string{
					"gmail.com", "yahoo.com", "yahoo.fr", "hotmail.com", "hotmail.fr",
					"outlook.com", "orange.fr", "wanadoo.fr", "free.fr", "sfr.fr", "laposte.net",
				},
				DisposableWeight:  2,
				MalformedWeight:   1,
				BlacklistedWeight: 1.5,
				LookalikeWeight:   1,
				Timeline: map[string]time.Duration{
					"last_24h":   24 * time.Hour,
					"last_week":  7 * 24 * time.Hour,
					"last_month": 30 * 24 * time.Hour,
				},
			},
			Geo: GeoConfig{
				TerritoryCountries: map[string]string{
					"Métropole":                "FR",
					"Metropole":                "FR",
					"Guadeloupe":               "FR",
					"Martinique":               "FR",
					"Guyane":                   "FR",
					"La Réunion":               "FR",
					"Mayotte":                  "FR",
					"Saint-Pierre-et-Miquelon": "FR",
					"Saint-Barthélemy":         "FR",
					"Saint-Martin":             "FR",
					"GP":                       "FR",
					"MQ":                       "FR",
					"GF":                       "FR",
					"RE":                       "FR",
					"YT":                       "FR",
					"PM":                       "FR",
				},
				MismatchWeight: 1.5,
			},
		},
		Report: ReportConfig{
			RecentWindow: 7 * 24 * time.Hour,
		},
	}
}

// Load layers defaults, the optional YAML file at path and RISK_ environment
// variables, then validates the result.
func Load(path string) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, &domain.ConfigurationError{Field: "file", Reason: err.Error()}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, &domain.ConfigurationError{Field: "unmarshal", Reason: err.Error()}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every option and returns a *domain.ConfigurationError for the first invalid one
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return &domain.ConfigurationError{
				Field:  fe.Namespace(),
				Reason: fmt.Sprintf("failed %q check (value %v)", fe.Tag(), fe.Value()),
			}
		}
		return &domain.ConfigurationError{Field: "config", Reason: err.Error()}
	}

	if _, err := c.DetectionRules(); err != nil {
		return err
	}
	if _, err := c.Delimiter(); err != nil {
		return err
	}
	return nil
}

// Delimiter returns the configured field delimiter; zero means auto-detect
func (c *Config) Delimiter() (rune, error) {
	switch d := c.Source.Delimiter; d {
	case "":
		return 0, nil
	case `\t`, "tab":
		return '\t', nil
	default:
		if len([]rune(d)) != 1 {
			return 0, &domain.ConfigurationError{Field: "source.delimiter", Reason: "must be a single character"}
		}
		return []rune(d)[0], nil
	}
}

// DetectionRules converts the detection options into detector rules
func (c *Config) DetectionRules() (detection.Rules, error) {
	d := c.Detection
	weights := []struct {
		field string
		value float64
	}{
		{"detection.high_risk_threshold", d.HighRiskThreshold},
		{"detection.phone.recent_change_weight", d.Phone.RecentChangeWeight},
		{"detection.phone.missing_operator_weight", d.Phone.MissingOperatorWeight},
		{"detection.email.disposable_weight", d.Email.DisposableWeight},
		{"detection.email.malformed_weight", d.Email.MalformedWeight},
		{"detection.email.blacklisted_weight", d.Email.BlacklistedWeight},
		{"detection.email.lookalike_weight", d.Email.LookalikeWeight},
		{"detection.geo.mismatch_weight", d.Geo.MismatchWeight},
	}

	values := make(map[string]decimal.Decimal, len(weights))
	for _, w := range weights {
		v := domain.NullableDecimal(w.value)
		if !v.Valid {
			return detection.Rules{}, &domain.ConfigurationError{Field: w.field, Reason: "must be a finite number"}
		}
		if v.Decimal.IsNegative() {
			return detection.Rules{}, &domain.ConfigurationError{Field: w.field, Reason: "must not be negative"}
		}
		values[w.field] = v.Decimal
	}

	patterns := make([]*regexp.Regexp, 0, len(d.Email.BlacklistPatterns))
	for _, p := range d.Email.BlacklistPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return detection.Rules{}, &domain.ConfigurationError{
				Field:  "detection.email.blacklist_patterns",
				Reason: fmt.Sprintf("invalid pattern %q: %v", p, err),
			}
		}
		patterns = append(patterns, re)
	}

	timeline := make([]detection.TimelineWindow, 0, len(d.Email.Timeline))
	for label, window := range d.Email.Timeline {
		timeline = append(timeline, detection.TimelineWindow{Label: label, Window: window})
	}
	sort.Slice(timeline, func(i, j int) bool {
		if timeline[i].Window != timeline[j].Window {
			return timeline[i].Window < timeline[j].Window
		}
		return timeline[i].Label < timeline[j].Label
	})

	return detection.Rules{
		HighRiskThreshold: values["detection.high_risk_threshold"],
		Phone: detection.PhoneRules{
			RecencyWindow:         d.Phone.RecencyWindow,
			RecentChangeWeight:    values["detection.phone.recent_change_weight"],
			MissingOperatorWeight: values["detection.phone.missing_operator_weight"],
		},
		Email: detection.EmailRules{
			DisposableDomains: d.Email.DisposableDomains,
			BlacklistPatterns: patterns,
			TrustedDomains:    d.Email.TrustedDomains,
			DisposableWeight:  values["detection.email.disposable_weight"],
			MalformedWeight:   values["detection.email.malformed_weight"],
			BlacklistedWeight: values["detection.email.blacklisted_weight"],
			LookalikeWeight:   values["detection.email.lookalike_weight"],
			Timeline:          timeline,
		},
		Geo: detection.GeoRules{
			TerritoryCountries: detection.NormalizeTerritoryCountries(d.Geo.TerritoryCountries),
			MismatchWeight:     values["detection.geo.mismatch_weight"],
		},
	}, nil
}
