package contract

import (
	"fmt"
	"maps"
	"runtime"
	"slices"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/huangsam/ceflow/schema"
	"go.uber.org/zap/zapcore"
)

// Default values for configuration.
const (
	DefaultResultLimit = 25
	MaxResultLimit     = 1000
)

// DefaultWorkers is the default number of concurrent workers to use.
var DefaultWorkers = runtime.GOMAXPROCS(0)

// Config holds the runtime configuration for a pipeline run.
// This struct remains the "final, validated" config.
type Config struct {
	ReportPath string
	Branch     string
	BranchType schema.BranchType

	// PeriodSettings maps "periodN" and "periodN.<qualifier>" keys to raw values.
	PeriodSettings map[string]string

	QualityGatePath string

	StoreBackend   schema.DatabaseBackend
	StoreDBConnect string // Please use env var as this is plaintext

	Output      schema.OutputMode
	OutputFile  string
	ResultLimit int
	Detail      bool
	Width       int // Terminal width override (0 = auto-detect)
	UseColors   bool

	Workers  int
	LogLevel zapcore.Level
	SpillDir string

	NotifySubscribers []schema.NotificationType
	NotifyFile        string
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// --- Fields from rootCmd.PersistentFlags() ---
	Output         string `mapstructure:"output"`
	OutputFile     string `mapstructure:"output-file"`
	Limit          int    `mapstructure:"limit"`
	Detail         bool   `mapstructure:"detail"`
	Width          int    `mapstructure:"width"`
	Color          string `mapstructure:"color"`
	Workers        int    `mapstructure:"workers"`
	LogLevel       string `mapstructure:"log-level"`
	StoreBackend   string `mapstructure:"store-backend"`
	StoreDBConnect string `mapstructure:"store-db-connect"`

	// --- Fields from runCmd.Flags() ---
	Report            string   `mapstructure:"report"`
	Branch            string   `mapstructure:"branch"`
	BranchType        string   `mapstructure:"branch-type"`
	Period1           string   `mapstructure:"period1"`
	Period2           string   `mapstructure:"period2"`
	Period3           string   `mapstructure:"period3"`
	Period4           string   `mapstructure:"period4"`
	Period5           string   `mapstructure:"period5"`
	PeriodOverrides   []string `mapstructure:"period-override"`
	QualityGate       string   `mapstructure:"quality-gate"`
	SpillDir          string   `mapstructure:"spill-dir"`
	NotifySubscribers string   `mapstructure:"notify-subscribers"`
	NotifyFile        string   `mapstructure:"notify-file"`
}

// Clone returns a deep copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	clone.PeriodSettings = maps.Clone(c.PeriodSettings)
	clone.NotifySubscribers = slices.Clone(c.NotifySubscribers)
	return &clone
}

// ProcessAndValidate performs all parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := validateBackendConfigs(cfg, input); err != nil {
		return err
	}
	if err := processBranch(cfg, input); err != nil {
		return err
	}
	if err := processPeriodSettings(cfg, input); err != nil {
		return err
	}
	return processNotifications(cfg, input)
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("store-db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		dsn, err := mysql.ParseDSN(connStr)
		if err != nil {
			return fmt.Errorf("invalid MySQL connection string: %w", err)
		}
		if dsn.DBName == "" {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("store-db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

// validateBackendConfigs validates the store backend configuration.
func validateBackendConfigs(cfg *Config, input *ConfigRawInput) error {
	cfg.StoreBackend = schema.DatabaseBackend(strings.ToLower(input.StoreBackend))
	if _, ok := schema.ValidDatabaseBackends[cfg.StoreBackend]; !ok {
		return fmt.Errorf("invalid store backend '%s'. must be sqlite, mysql, postgresql, none", input.StoreBackend)
	}
	cfg.StoreDBConnect = input.StoreDBConnect
	return ValidateDatabaseConnectionString(cfg.StoreBackend, cfg.StoreDBConnect)
}

// validateSimpleInputs processes and validates all non-domain fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	// --- 0. Transfer simple non-validated fields from input -> cfg ---
	cfg.ReportPath = strings.TrimSpace(input.Report)
	cfg.QualityGatePath = strings.TrimSpace(input.QualityGate)
	cfg.OutputFile = input.OutputFile
	cfg.Detail = input.Detail
	cfg.Width = input.Width
	cfg.SpillDir = input.SpillDir

	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	// --- 1. ResultLimit Validation ---
	if input.Limit <= 0 || input.Limit > MaxResultLimit {
		return fmt.Errorf("limit must be greater than 0 and cannot exceed %d (received %d)", MaxResultLimit, input.Limit)
	}
	cfg.ResultLimit = input.Limit

	// --- 2. Workers Validation ---
	if input.Workers <= 0 {
		return fmt.Errorf("workers must be greater than 0 (received %d)", input.Workers)
	}
	cfg.Workers = input.Workers

	// --- 3. Output Validation ---
	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, csv, json, parquet", input.Output)
	}
	if cfg.Output == schema.ParquetOut && cfg.OutputFile == "" {
		return fmt.Errorf("parquet output requires --output-file")
	}

	// --- 4. Log level ---
	level, err := zapcore.ParseLevel(input.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level '%s': %w", input.LogLevel, err)
	}
	cfg.LogLevel = level

	return nil
}

// processBranch validates the branch name against its key generation strategy.
func processBranch(cfg *Config, input *ConfigRawInput) error {
	cfg.Branch = strings.TrimSpace(input.Branch)
	cfg.BranchType = schema.BranchType(strings.ToLower(input.BranchType))
	if cfg.BranchType == "" {
		cfg.BranchType = schema.MainBranch
	}
	if _, ok := schema.ValidBranchTypes[cfg.BranchType]; !ok {
		return fmt.Errorf("invalid branch type '%s'. must be main, legacy, long", input.BranchType)
	}
	if cfg.BranchType != schema.MainBranch && cfg.Branch == "" {
		return fmt.Errorf("--branch is required with branch type %s", cfg.BranchType)
	}
	return nil
}

// processPeriodSettings collects periodN values and their per-qualifier overrides.
// Values are kept raw; they are resolved against the analysis history at run time.
func processPeriodSettings(cfg *Config, input *ConfigRawInput) error {
	cfg.PeriodSettings = make(map[string]string)
	for i, v := range []string{input.Period1, input.Period2, input.Period3, input.Period4, input.Period5} {
		if v = strings.TrimSpace(v); v != "" {
			cfg.PeriodSettings[fmt.Sprintf("period%d", i+1)] = v
		}
	}
	for _, o := range input.PeriodOverrides {
		key, value, ok := strings.Cut(o, "=")
		if !ok {
			return fmt.Errorf("invalid period override '%s', expected 'periodN.QUALIFIER=value'", o)
		}
		key = strings.TrimSpace(key)
		name, qualifier, ok := strings.Cut(key, ".")
		if !ok || qualifier == "" || !isPeriodKey(name) {
			return fmt.Errorf("invalid period override key '%s', expected 'periodN.QUALIFIER'", key)
		}
		cfg.PeriodSettings[name+"."+strings.ToUpper(qualifier)] = strings.TrimSpace(value)
	}
	return nil
}

func isPeriodKey(name string) bool {
	for i := 1; i <= schema.MaxPeriods; i++ {
		if name == fmt.Sprintf("period%d", i) {
			return true
		}
	}
	return false
}

// processNotifications parses the subscriber list of the notification sink.
func processNotifications(cfg *Config, input *ConfigRawInput) error {
	cfg.NotifyFile = strings.TrimSpace(input.NotifyFile)
	cfg.NotifySubscribers = nil
	for p := range strings.SplitSeq(input.NotifySubscribers, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		nt := schema.NotificationType(strings.ToLower(p))
		if _, ok := schema.ValidNotificationTypes[nt]; !ok {
			return fmt.Errorf("invalid notification type '%s'. must be new-issues, my-new-issues, issue-changes", p)
		}
		cfg.NotifySubscribers = append(cfg.NotifySubscribers, nt)
	}
	return nil
}
