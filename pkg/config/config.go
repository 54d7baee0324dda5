// Package config loads run settings from YAML, .env files and SHIFTBUK_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"shiftbuk/pkg/engine"
	"shiftbuk/pkg/parser"
	"shiftbuk/pkg/report"
	"shiftbuk/pkg/schema"
	"shiftbuk/pkg/shift"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SHIFTBUK_"

// Config holds every tunable of a conversion run.
type Config struct {
	Workbook   parser.SheetNames `yaml:"workbook"`
	Grid       GridConfig        `yaml:"grid"`
	Identities IdentitiesConfig  `yaml:"identities"`
	Catalog    CatalogConfig     `yaml:"catalog"`
	Normalizer NormalizerConfig  `yaml:"normalizer"`
	Matching   MatchingConfig    `yaml:"matching"`
	Output     OutputConfig      `yaml:"output"`
	Logging    LoggingConfig     `yaml:"logging"`
}

// GridConfig locates the header row and person column of the shift grid.
// Both are 0-indexed.
type GridConfig struct {
	HeaderRow    int `yaml:"header_row"`
	PersonColumn int `yaml:"person_column"`
}

// IdentitiesConfig configures the identity catalog sheet.
type IdentitiesConfig struct {
	HeaderRow int `yaml:"header_row"`
	// ColumnMap maps source headers to canonical fields (fullName,
	// externalId, department, manager). Empty means header inference.
	ColumnMap map[string]string `yaml:"column_map,omitempty"`
}

// CatalogConfig configures the shift-code catalog sheet.
type CatalogConfig struct {
	HeaderRow int    `yaml:"header_row"`
	Order     string `yaml:"order"`
}

// NormalizerConfig configures time-range normalization.
type NormalizerConfig struct {
	TokenPolicy string   `yaml:"token_policy"`
	RestWords   []string `yaml:"rest_words,omitempty"`
	Qualifiers  []string `yaml:"qualifiers,omitempty"`
}

// MatchingConfig configures identity resolution.
type MatchingConfig struct {
	Scorer    string  `yaml:"scorer"`
	Threshold float64 `yaml:"threshold"`
}

// OutputConfig configures the wide output table and its reserved values.
type OutputConfig struct {
	Sheet             string         `yaml:"sheet"`
	TriageSheet       string         `yaml:"triage_sheet"`
	RestCode          string         `yaml:"rest_code"`
	ReviewPrefix      string         `yaml:"review_prefix"`
	AmbiguousMarker   string         `yaml:"ambiguous_marker"`
	NotFoundMarker    string         `yaml:"not_found_marker"`
	IncludeAttributes bool           `yaml:"include_attributes"`
	Headers           report.Headers `yaml:"headers"`
}

// LoggingConfig configures the zap logger built by the CLI.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the settings for the standard supervisor workbook.
func DefaultConfig() *Config {
	return &Config{
		Workbook: parser.SheetNames{
			Grid:       "Turnos Formato Supervisor",
			Identities: "Base de Colaboradores",
			Catalog:    "Codificación de Turnos",
		},
		Grid: GridConfig{
			HeaderRow:    1,
			PersonColumn: 0,
		},
		Catalog: CatalogConfig{
			Order: string(schema.CatalogByHeader),
		},
		Normalizer: NormalizerConfig{
			TokenPolicy: string(shift.PolicyFirstLast),
		},
		Matching: MatchingConfig{
			Scorer:    "token",
			Threshold: engine.DefaultThreshold,
		},
		Output: OutputConfig{
			Sheet:           report.DefaultSheet,
			TriageSheet:     "Revisión",
			RestCode:        shift.DefaultRestCode,
			ReviewPrefix:    shift.DefaultReviewPrefix,
			AmbiguousMarker: report.DefaultAmbiguousMarker,
			NotFoundMarker:  report.DefaultNotFoundMarker,
			Headers:         report.DefaultHeaders,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file and applies environment
// overrides. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// LoadDotEnv loads .env files into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// applyEnvOverrides applies SHIFTBUK_* environment variable overrides.
func (c *Config) applyEnvOverrides() error {
	strs := map[string]*string{
		"GRID_SHEET":       &c.Workbook.Grid,
		"IDENTITY_SHEET":   &c.Workbook.Identities,
		"CATALOG_SHEET":    &c.Workbook.Catalog,
		"CATALOG_ORDER":    &c.Catalog.Order,
		"TOKEN_POLICY":     &c.Normalizer.TokenPolicy,
		"SCORER":           &c.Matching.Scorer,
		"OUTPUT_SHEET":     &c.Output.Sheet,
		"TRIAGE_SHEET":     &c.Output.TriageSheet,
		"REST_CODE":        &c.Output.RestCode,
		"REVIEW_PREFIX":    &c.Output.ReviewPrefix,
		"AMBIGUOUS_MARKER": &c.Output.AmbiguousMarker,
		"NOT_FOUND_MARKER": &c.Output.NotFoundMarker,
		"LOG_LEVEL":        &c.Logging.Level,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"GRID_HEADER_ROW":     &c.Grid.HeaderRow,
		"PERSON_COLUMN":       &c.Grid.PersonColumn,
		"IDENTITY_HEADER_ROW": &c.Identities.HeaderRow,
		"CATALOG_HEADER_ROW":  &c.Catalog.HeaderRow,
	}
	for key, dst := range ints {
		if v := os.Getenv(EnvPrefix + key); v != "" {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("invalid %s%s: %w", EnvPrefix, key, err)
			}
			*dst = n
		}
	}

	if v := os.Getenv(EnvPrefix + "THRESHOLD"); v != "" {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return fmt.Errorf("invalid %sTHRESHOLD: %w", EnvPrefix, err)
		}
		c.Matching.Threshold = f
	}
	if v := os.Getenv(EnvPrefix + "INCLUDE_ATTRIBUTES"); v != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid %sINCLUDE_ATTRIBUTES: %w", EnvPrefix, err)
		}
		c.Output.IncludeAttributes = b
	}
	return nil
}

var validFields = map[string]bool{
	schema.FieldFullName:   true,
	schema.FieldExternalID: true,
	schema.FieldDepartment: true,
	schema.FieldManager:    true,
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Grid.HeaderRow < 0 || c.Grid.PersonColumn < 0 || c.Identities.HeaderRow < 0 || c.Catalog.HeaderRow < 0 {
		return fmt.Errorf("header rows and person column must not be negative")
	}
	if _, err := c.CatalogOrder(); err != nil {
		return err
	}
	if _, err := c.NewNormalizer(); err != nil {
		return err
	}
	if _, err := engine.NewScorer(c.Matching.Scorer); err != nil {
		return err
	}
	if c.Matching.Threshold <= 0 || c.Matching.Threshold > 100 {
		return fmt.Errorf("matching threshold %.2f outside (0, 100]", c.Matching.Threshold)
	}
	for header, field := range c.Identities.ColumnMap {
		if !validFields[field] {
			return fmt.Errorf("column_map %q targets unknown field %q", header, field)
		}
	}
	if strings.TrimSpace(c.Output.RestCode) == "" {
		return fmt.Errorf("output rest_code must not be blank")
	}
	if c.Output.ReviewPrefix == "" {
		return fmt.Errorf("output review_prefix must not be blank")
	}
	if c.Output.Sheet != "" && c.Output.Sheet == c.Output.TriageSheet {
		return fmt.Errorf("output sheet and triage sheet must differ")
	}
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("invalid logging level: %w", err)
	}
	return nil
}

// CatalogOrder parses the configured catalog column order.
func (c *Config) CatalogOrder() (schema.CatalogOrder, error) {
	return schema.ParseCatalogOrder(c.Catalog.Order)
}

// NewNormalizer builds the normalizer shared by the catalog and the grid.
func (c *Config) NewNormalizer() (*shift.Normalizer, error) {
	policy, err := shift.ParseTokenPolicy(c.Normalizer.TokenPolicy)
	if err != nil {
		return nil, err
	}
	return shift.NewNormalizer(policy, c.Normalizer.RestWords, c.Normalizer.Qualifiers), nil
}

// ColumnMapping returns the explicit identity mapping, or nil for inference.
func (c *Config) ColumnMapping() *schema.ColumnMapping {
	if len(c.Identities.ColumnMap) == 0 {
		return nil
	}
	return &schema.ColumnMapping{Direct: c.Identities.ColumnMap}
}

// ReshapeOptions returns the grid reshaping options.
func (c *Config) ReshapeOptions() parser.ReshapeOptions {
	return parser.ReshapeOptions{HeaderRow: c.Grid.HeaderRow, PersonColumn: c.Grid.PersonColumn}
}

// CodeTableOptions returns the reserved code-table values.
func (c *Config) CodeTableOptions() shift.CodeTableOptions {
	return shift.CodeTableOptions{RestCode: c.Output.RestCode, ReviewPrefix: c.Output.ReviewPrefix}
}

// AssembleOptions returns the wide-table options.
func (c *Config) AssembleOptions() report.AssembleOptions {
	return report.AssembleOptions{
		Headers:           c.Output.Headers,
		IncludeAttributes: c.Output.IncludeAttributes,
		AmbiguousMarker:   c.Output.AmbiguousMarker,
		NotFoundMarker:    c.Output.NotFoundMarker,
	}
}

// WorkbookOptions returns the output workbook sheet names.
func (c *Config) WorkbookOptions() report.WorkbookOptions {
	return report.WorkbookOptions{Sheet: c.Output.Sheet, TriageSheet: c.Output.TriageSheet}
}
