// =============================================================================
// Trial Balance Reporter - Configuration Module
// =============================================================================
//
// This module is responsible for loading and managing the application
// configuration: where the source spreadsheets live, how their columns are
// named, how accounts are classified and how output files are named.
//
// CONFIGURATION SOURCES (later wins):
//   1. Built-in defaults (applyDefaults)
//   2. The YAML config file (config.yaml)
//   3. A .env file in the working directory, if present
//   4. Environment variables (LEDGER_URL, MAPPING_URL, TEMPLATE_URL,
//      LOG_LEVEL, SERVER_ADDR, CACHE_TTL)
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// DEFAULT VALUES
// =============================================================================

const (
	DefaultLedgerURL   = "https://docs.google.com/spreadsheets/d/1yREufu125JBMsN1EE-5EXVZZGNeQ6pKs/export?format=xlsx"
	DefaultMappingURL  = "https://docs.google.com/spreadsheets/d/1rt6Suyg1XgFxV0nTgblSkfZakzHrPNci/export?format=xlsx"
	DefaultTemplateURL = "https://docs.google.com/spreadsheets/d/1yUqlBNTb4CM_ssWwNgktZ4Lx27IKEAOc/export?format=xlsx"

	// Account-code ranges for the income statement. The bounds are inclusive
	// and reproduce the ledger convention 399999999 < income < 500000000,
	// expense > 499999999.
	DefaultIncomeMin  int64 = 400000000
	DefaultIncomeMax  int64 = 499999999
	DefaultExpenseMin int64 = 500000000

	ScopeAll     = "all"
	ScopeCompany = "company"

	FormatXLSX = "xlsx"
	FormatCSV  = "csv"
)

// DefaultMonthNames are the Spanish month names used by the ledger reports.
var DefaultMonthNames = []string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

// DefaultDateLayouts are tried in order for date cells stored as text.
var DefaultDateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"02/01/2006",
	"02/01/2006 15:04:05",
	"2006/01/02",
	"02-Jan-2006",
	"20060102",
}

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// Config holds the application configuration.
type Config struct {
	// =========================================================================
	// SOURCES
	// =========================================================================

	Sources Sources `yaml:"sources"`

	// =========================================================================
	// COLUMN LAYOUT
	// =========================================================================

	// LedgerColumns maps the ledger export headers onto ledger fields.
	LedgerColumns LedgerColumns `yaml:"ledger_columns"`

	// MappingColumns maps the chart-of-accounts headers onto mapping fields.
	MappingColumns MappingColumns `yaml:"mapping_columns"`

	// DateLayouts are Go time layouts tried for text dates.
	DateLayouts []string `yaml:"date_layouts"`

	// MonthNames are the twelve month names shown to users, January first.
	MonthNames []string `yaml:"month_names"`

	// =========================================================================
	// BALANCE RULES
	// =========================================================================

	Classification Classification `yaml:"classification"`

	// OpeningBalanceScope is "all" (opening balances over every company,
	// the historical behaviour) or "company" (selected company only).
	OpeningBalanceScope string `yaml:"opening_balance_scope"`

	// =========================================================================
	// OUTPUT, SERVER, LOGGING
	// =========================================================================

	Output Output `yaml:"output"`
	Cache  Cache  `yaml:"cache"`
	Server Server `yaml:"server"`

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	LogLevel string `yaml:"log_level"`
}

// Sources lists the three spreadsheets the report is built from.
type Sources struct {
	Ledger   Source `yaml:"ledger"`
	Mapping  Source `yaml:"mapping"`
	Template Source `yaml:"template"`

	// Timeout bounds each HTTP fetch. Zero means no timeout.
	Timeout time.Duration `yaml:"timeout"`
}

// Source describes one remote spreadsheet.
type Source struct {
	URL string `yaml:"url"`

	// Format is "xlsx" or "csv". Default: "xlsx"
	Format string `yaml:"format"`

	// Sheet is the worksheet to read. Empty means the first sheet.
	Sheet string `yaml:"sheet"`

	// HeaderRow is the 1-based row holding the column headers. Default: 1
	HeaderRow int `yaml:"header_row"`

	// CSV holds parsing settings when Format is "csv".
	CSV CSVSettings `yaml:"csv"`

	// Transformations clean raw cells before they are coerced.
	Transformations []TransformationRule `yaml:"transformations"`
}

// CSVSettings contains settings for parsing CSV sources.
type CSVSettings struct {
	// Delimiter is the character used to separate fields in the CSV.
	// Common values: "," (comma), "|" (pipe), "\t" (tab), ";" (semicolon)
	// Default: ","
	Delimiter string `yaml:"delimiter"`

	// HeaderRows is the number of header rows. Multi-row headers are joined
	// with a space. Default: 1
	HeaderRows int `yaml:"header_rows"`
}

// LedgerColumns names the ledger export columns.
type LedgerColumns struct {
	Date    string `yaml:"date"`
	Company string `yaml:"company"`
	Account string `yaml:"account"`
	Debit   string `yaml:"debit"`
	Credit  string `yaml:"credit"`
}

// MappingColumns names the chart-of-accounts columns.
type MappingColumns struct {
	Account  string `yaml:"account"`
	Name     string `yaml:"name"`
	Category string `yaml:"category"`
}

// Classification holds the inclusive account-code ranges used for the
// income-statement net figures.
type Classification struct {
	IncomeMin  int64 `yaml:"income_min"`
	IncomeMax  int64 `yaml:"income_max"`
	ExpenseMin int64 `yaml:"expense_min"`
}

// Output controls generated workbooks.
type Output struct {
	// Dir is where the process command writes workbooks. Default: "./output"
	Dir string `yaml:"dir"`

	// ArchiveDir, when set, receives a copy of every written workbook.
	ArchiveDir string `yaml:"archive_dir"`

	// ArchiveRetention removes archived files older than this. Zero keeps all.
	ArchiveRetention time.Duration `yaml:"archive_retention"`

	// ArchiveByDate files archived copies under archive/YYYY/MM/DD.
	ArchiveByDate bool `yaml:"archive_by_date"`

	// BalancesFile is the detail workbook name format.
	// Placeholders: {month}, {year}, {company}, {date}, {timestamp}, {uuid}
	BalancesFile string `yaml:"balances_file"`

	// BalancesSheet is the detail worksheet name. Default: "Datos"
	BalancesSheet string `yaml:"balances_sheet"`

	// SummaryFile is the summary workbook name format.
	SummaryFile string `yaml:"summary_file"`

	// SummarySheet is the template worksheet the category totals are
	// appended to. Default: "Hoja1"
	SummarySheet string `yaml:"summary_sheet"`
}

// Cache controls the source download cache.
type Cache struct {
	// TTL is how long a downloaded source is reused. A negative TTL keeps
	// sources until they are purged. Default: 1h
	TTL time.Duration `yaml:"ttl"`

	// Size is the maximum number of cached sources. Default: 16
	Size int `yaml:"size"`
}

// Server controls the web UI.
type Server struct {
	// Addr is the listen address. Default: ":8080"
	Addr string `yaml:"addr"`

	// AllowedOrigins for CORS. Default: ["*"]
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// =============================================================================
// TRANSFORMATION RULE STRUCTURE
// =============================================================================

// TransformationRule defines a cleaning rule for one source column.
type TransformationRule struct {
	// Field is the source column header the actions apply to.
	Field string `yaml:"field"`

	// Actions are applied in order.
	Actions []TransformationAction `yaml:"actions"`
}

// TransformationAction defines a single transformation action.
type TransformationAction struct {
	// Type is the type of transformation to apply.
	// Supported types:
	//   - "trim", "uppercase", "lowercase", "normalize_whitespace"
	//   - "prepend_string", "append_string"
	//   - "replace", "regex_replace"
	//   - "remove_leading_zeros", "extract_digits"
	//   - "lookup", "lookup_with_default"
	//   - "if_empty_use_default"
	Type string `yaml:"type"`

	// Value is the parameter for the transformation.
	Value string `yaml:"value"`

	// Find is used for "replace" and "regex_replace" transformations.
	Find string `yaml:"find,omitempty"`

	// LookupTable is used for "lookup" transformations.
	LookupTable map[string]string `yaml:"lookup_table,omitempty"`
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// Load reads the configuration file, applies defaults and environment
// overrides, and validates the result.
//
// PARAMETERS:
//   - configPath: The path to the YAML file. A missing file is not an error;
//     the built-in defaults are used instead.
//
// RETURNS:
//   - A pointer to the Config struct.
//   - An error if the file cannot be parsed or the result is invalid.
func Load(configPath string) (*Config, error) {
	var cfg Config

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			// Defaults only.
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	// A missing .env is the normal case.
	_ = godotenv.Load()

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Default returns the built-in configuration without reading any file or
// environment variable.
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

// applyEnv copies environment overrides into the configuration.
func applyEnv(cfg *Config) error {
	if v := os.Getenv("LEDGER_URL"); v != "" {
		cfg.Sources.Ledger.URL = v
	}
	if v := os.Getenv("MAPPING_URL"); v != "" {
		cfg.Sources.Mapping.URL = v
	}
	if v := os.Getenv("TEMPLATE_URL"); v != "" {
		cfg.Sources.Template.URL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("CACHE_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("failed to parse CACHE_TTL: %w", err)
		}
		cfg.Cache.TTL = ttl
	}
	return nil
}

// applyDefaults sets default values for any unset configuration options.
func applyDefaults(cfg *Config) {
	applySourceDefaults(&cfg.Sources.Ledger, DefaultLedgerURL)
	applySourceDefaults(&cfg.Sources.Mapping, DefaultMappingURL)
	applySourceDefaults(&cfg.Sources.Template, DefaultTemplateURL)

	if cfg.LedgerColumns.Date == "" {
		cfg.LedgerColumns.Date = "DEFAULT_EFFECTIVE_DATE"
	}
	if cfg.LedgerColumns.Company == "" {
		cfg.LedgerColumns.Company = "DESC_SEGMENT1"
	}
	if cfg.LedgerColumns.Account == "" {
		cfg.LedgerColumns.Account = "SEGMENT5"
	}
	if cfg.LedgerColumns.Debit == "" {
		cfg.LedgerColumns.Debit = "DEBIT"
	}
	if cfg.LedgerColumns.Credit == "" {
		cfg.LedgerColumns.Credit = "CREDIT"
	}

	if cfg.MappingColumns.Account == "" {
		cfg.MappingColumns.Account = "Cuenta"
	}
	if cfg.MappingColumns.Name == "" {
		cfg.MappingColumns.Name = "nombre cuenta"
	}
	if cfg.MappingColumns.Category == "" {
		cfg.MappingColumns.Category = "Categoria"
	}

	if len(cfg.DateLayouts) == 0 {
		cfg.DateLayouts = append([]string(nil), DefaultDateLayouts...)
	}
	if len(cfg.MonthNames) == 0 {
		cfg.MonthNames = append([]string(nil), DefaultMonthNames...)
	}

	if cfg.Classification == (Classification{}) {
		cfg.Classification = Classification{
			IncomeMin:  DefaultIncomeMin,
			IncomeMax:  DefaultIncomeMax,
			ExpenseMin: DefaultExpenseMin,
		}
	}
	if cfg.OpeningBalanceScope == "" {
		cfg.OpeningBalanceScope = ScopeAll
	}

	if cfg.Output.Dir == "" {
		cfg.Output.Dir = "./output"
	}
	if cfg.Output.BalancesFile == "" {
		cfg.Output.BalancesFile = "saldos_cuentas_{company}_{month}_{year}.xlsx"
	}
	if cfg.Output.BalancesSheet == "" {
		cfg.Output.BalancesSheet = "Datos"
	}
	if cfg.Output.SummaryFile == "" {
		cfg.Output.SummaryFile = "balance_{month}_{year}.xlsx"
	}
	if cfg.Output.SummarySheet == "" {
		cfg.Output.SummarySheet = "Hoja1"
	}

	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = time.Hour
	}
	if cfg.Cache.Size == 0 {
		cfg.Cache.Size = 16
	}

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = []string{"*"}
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
}

// applySourceDefaults fills one source.
func applySourceDefaults(src *Source, url string) {
	if src.URL == "" {
		src.URL = url
	}
	if src.Format == "" {
		src.Format = FormatXLSX
	}
	src.Format = strings.ToLower(src.Format)
	if src.HeaderRow == 0 {
		src.HeaderRow = 1
	}
	if src.CSV.Delimiter == "" {
		src.CSV.Delimiter = ","
	}
	if src.CSV.HeaderRows == 0 {
		src.CSV.HeaderRows = 1
	}
}

// Validate checks a configuration that already has defaults applied.
func Validate(cfg *Config) error {
	for name, src := range map[string]Source{
		"ledger":   cfg.Sources.Ledger,
		"mapping":  cfg.Sources.Mapping,
		"template": cfg.Sources.Template,
	} {
		if src.URL == "" {
			return fmt.Errorf("sources.%s.url is required", name)
		}
		if src.Format != FormatXLSX && src.Format != FormatCSV {
			return fmt.Errorf("sources.%s.format must be %q or %q, got %q", name, FormatXLSX, FormatCSV, src.Format)
		}
		if src.HeaderRow < 1 {
			return fmt.Errorf("sources.%s.header_row must be >= 1", name)
		}
	}
	if cfg.Sources.Template.Format != FormatXLSX {
		return fmt.Errorf("sources.template.format must be %q", FormatXLSX)
	}
	if cfg.Sources.Timeout < 0 {
		return fmt.Errorf("sources.timeout must not be negative")
	}

	if len(cfg.MonthNames) != 12 {
		return fmt.Errorf("month_names must list 12 names, got %d", len(cfg.MonthNames))
	}
	seen := make(map[string]bool, 12)
	for _, m := range cfg.MonthNames {
		key := strings.ToLower(strings.TrimSpace(m))
		if key == "" || seen[key] {
			return fmt.Errorf("month_names must be unique and non-empty")
		}
		seen[key] = true
	}

	c := cfg.Classification
	if c.IncomeMin > c.IncomeMax {
		return fmt.Errorf("classification.income_min must not exceed income_max")
	}
	if c.ExpenseMin <= c.IncomeMax {
		return fmt.Errorf("classification.expense_min must be above income_max")
	}

	switch cfg.OpeningBalanceScope {
	case ScopeAll, ScopeCompany:
	default:
		return fmt.Errorf("opening_balance_scope must be %q or %q", ScopeAll, ScopeCompany)
	}

	if cfg.Cache.Size < 0 {
		return fmt.Errorf("cache.size must not be negative")
	}

	return nil
}
