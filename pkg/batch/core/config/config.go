// Package config holds the switchprep configuration tree and its loader.
package config

// EmbeddedConfig holds the content of the configuration file embedded in the binary.
type EmbeddedConfig []byte

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"` // DEBUG, INFO, WARN, ERROR or FATAL.
}

// SystemConfig holds system-wide settings.
type SystemConfig struct {
	Timezone string        `yaml:"timezone"`
	Logging  LoggingConfig `yaml:"logging"`
}

// BatchConfig holds settings for the job runtime.
type BatchConfig struct {
	// JobName is the JSL job id launched when --job is not given.
	JobName string `yaml:"job_name"`
	// MetricsTextfile, when set, receives the Prometheus metrics in textfile-collector format after the run.
	MetricsTextfile string `yaml:"metrics_textfile"`
	// TracingEnabled switches the OpenTelemetry tracer on. Without an exporter spans stay in-process.
	TracingEnabled bool `yaml:"tracing_enabled"`
}

// SolverConfig describes the external solve command used to find expensive days.
type SolverConfig struct {
	Enabled bool     `yaml:"enabled"` // Enabled runs the command; otherwise previous results are reused.
	Command string   `yaml:"command"` // Command is the executable, e.g. "switch".
	Args    []string `yaml:"args"`    // Args precede --scenario-list.
}

// StudyConfig holds the study-wide settings shared by several steps.
type StudyConfig struct {
	// Workdir is the directory that contains the base "inputs" directory. Every relative path resolves against it.
	Workdir string `yaml:"workdir"`
	// CarbonCapLevels are the 2048 cap levels, as percentages of the 2028 cap.
	CarbonCapLevels []int `yaml:"carbon_cap_levels"`
	// ToughDayCO2Levels are the cap levels whose diagnostic runs select the tough days.
	ToughDayCO2Levels []string `yaml:"tough_day_co2_levels"`
	// ReserveLevels are the super-peak load increases applied to tough days.
	ReserveLevels []float64 `yaml:"reserve_levels"`
	// ATBWorkbook is the NREL ATB cost workbook, relative to Workdir. Empty disables the ATB update.
	ATBWorkbook string `yaml:"atb_workbook"`
	// Solver configures the optional diagnostic solve.
	Solver SolverConfig `yaml:"solver"`
	// HoursPerYear converts a period's calendar length into the hours its timeseries must represent.
	HoursPerYear float64 `yaml:"hours_per_year"`
	// PeriodHoursTolerance is the relative error allowed on those hours.
	PeriodHoursTolerance float64 `yaml:"period_hours_tolerance"`
}

// SwitchPrepConfig holds everything under the "switchprep" top-level key.
type SwitchPrepConfig struct {
	System SystemConfig `yaml:"system"`
	Batch  BatchConfig  `yaml:"batch"`
	Study  StudyConfig  `yaml:"study"`
}

// Config is the root structure for the application configuration.
type Config struct {
	SwitchPrep SwitchPrepConfig `yaml:"switchprep"`
}

// GlobalConfig is the configuration shared across the application once loaded.
var GlobalConfig *Config

// NewConfig returns a Config with default values.
func NewConfig() *Config {
	return &Config{
		SwitchPrep: SwitchPrepConfig{
			System: SystemConfig{
				Timezone: "UTC",
				Logging:  LoggingConfig{Level: "INFO"},
			},
			Batch: BatchConfig{
				JobName: "prepareInputsJob",
			},
			Study: StudyConfig{
				Workdir:              ".",
				CarbonCapLevels:      []int{0, 1, 2, 3, 4, 5, 7, 10, 15, 20, 30, 40, 50, 60, 80, 100, 150, 200},
				ToughDayCO2Levels:    []string{"000", "200"},
				ReserveLevels:        []float64{0.1, 0.2, 0.3},
				ATBWorkbook:          "ATB 2023 costs.xlsx",
				HoursPerYear:         8766,
				PeriodHoursTolerance: 0.001,
				Solver: SolverConfig{
					Command: "switch",
					Args:    []string{"solve-scenarios", "--debug"},
				},
			},
		},
	}
}

// Lookup returns the string form of a few configuration values by dotted name.
// It backs ${...} placeholders in JSL properties.
func (c *Config) Lookup(name string) (string, bool) {
	switch name {
	case "study.workdir", "workdir":
		return c.SwitchPrep.Study.Workdir, true
	case "study.atb_workbook":
		return c.SwitchPrep.Study.ATBWorkbook, true
	case "batch.job_name":
		return c.SwitchPrep.Batch.JobName, true
	}
	return "", false
}
