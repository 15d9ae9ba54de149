// Command switchprep runs the capacity expansion study jobs: input
// preparation, model extension export and result analysis.
package main

import (
	"context"
	"embed"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/fx"

	port "github.com/tigerroll/switchprep/pkg/batch/core/application/port"
	config "github.com/tigerroll/switchprep/pkg/batch/core/config"
	bootstrap "github.com/tigerroll/switchprep/pkg/batch/core/config/bootstrap"
	model "github.com/tigerroll/switchprep/pkg/batch/core/domain/model"
	logger "github.com/tigerroll/switchprep/pkg/batch/support/util/logger"
)

// embeddedConfig holds the default application configuration.
//
//go:embed resources/application.yaml
var embeddedConfig []byte

//go:embed resources/jobs/*.yaml
var jobFS embed.FS

const jobPattern = "resources/jobs/*.yaml"

// options are the command line flags.
type options struct {
	configPath  string
	envFile     string
	logLevel    string
	job         string
	params      []string
	metricsFile string
	listJobs    bool
}

func parseFlags(args []string) (*options, error) {
	opts := &options{}
	fs := pflag.NewFlagSet("switchprep", pflag.ContinueOnError)
	fs.StringVarP(&opts.configPath, "config", "c", "", "YAML file overriding the embedded configuration")
	fs.StringVar(&opts.envFile, "env-file", envOr("ENV_FILE_PATH", ".env"), "dotenv file loaded before SWITCHPREP_* variables are read")
	fs.StringVar(&opts.logLevel, "log-level", "", "DEBUG, INFO, WARN or ERROR")
	fs.StringVarP(&opts.job, "job", "j", "", "JSL job id to run (default from switchprep.batch.job_name)")
	fs.StringArrayVarP(&opts.params, "param", "p", nil, "job parameter key=value, repeatable (workdir=... selects the study directory)")
	fs.StringVar(&opts.metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile after the run")
	fs.BoolVar(&opts.listJobs, "list-jobs", false, "list the available jobs and exit")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	return opts, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// applyOverrides folds flags and the workdir job parameter into cfg.
func applyOverrides(cfg *config.Config, opts *options, params model.JobParameters) {
	if opts.logLevel != "" {
		cfg.SwitchPrep.System.Logging.Level = opts.logLevel
	}
	if opts.job != "" {
		cfg.SwitchPrep.Batch.JobName = opts.job
	}
	if opts.metricsFile != "" {
		cfg.SwitchPrep.Batch.MetricsTextfile = opts.metricsFile
	}
	if wd, ok := params.Get("workdir"); ok && wd != "" {
		cfg.SwitchPrep.Study.Workdir = wd
	}
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	opts, err := parseFlags(args)
	if err != nil {
		if err == pflag.ErrHelp {
			return 0
		}
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	sources, err := bootstrap.ReadJSLSources(jobFS, jobPattern)
	if err != nil {
		logger.Errorf("Failed to read job definitions: %v", err)
		return 1
	}
	if opts.listJobs {
		defs, err := bootstrap.NewDefinitions(sources)
		if err != nil {
			logger.Errorf("Invalid job definitions: %v", err)
			return 1
		}
		for _, id := range defs.IDs() {
			fmt.Println(id)
		}
		return 0
	}

	params, err := model.ParseJobParameters(opts.params)
	if err != nil {
		logger.Errorf("%v", err)
		return 2
	}
	cfg, err := config.LoadConfig(opts.envFile, embeddedConfig, opts.configPath)
	if err != nil {
		logger.Errorf("Failed to load configuration: %v", err)
		return 1
	}
	applyOverrides(cfg, opts, params)
	config.GlobalConfig = cfg
	logger.SetLogLevel(cfg.SwitchPrep.System.Logging.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var launcher port.JobLauncher
	app := fx.New(append(GetApplicationOptions(cfg, embeddedConfig, sources), fx.Populate(&launcher))...)
	if err := app.Err(); err != nil {
		logger.Errorf("Application setup failed: %v", err)
		return 1
	}
	if err := app.Start(ctx); err != nil {
		logger.Errorf("Application start failed: %v", err)
		return 1
	}
	code := launch(ctx, launcher, cfg.SwitchPrep.Batch.JobName, params)

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := app.Stop(stopCtx); err != nil {
		logger.Errorf("Application shutdown failed: %v", err)
		if code == 0 {
			code = 1
		}
	}
	return code
}

// launch runs the job and maps its outcome to an exit code.
func launch(ctx context.Context, launcher port.JobLauncher, jobName string, params model.JobParameters) int {
	logger.Infof("Starting job '%s'.", jobName)
	execution, err := launcher.Launch(ctx, jobName, params)
	if execution == nil {
		logger.Errorf("Failed to launch job '%s': %v", jobName, err)
		return 1
	}
	if err != nil {
		logger.Errorf("Job '%s' (Execution ID: %s) failed: %v", jobName, execution.ID, err)
		return 1
	}
	logger.Infof("Job '%s' (Execution ID: %s) finished with status %s, exit status %s.",
		jobName, execution.ID, execution.Status, execution.ExitStatus)
	if execution.ExitStatus == model.ExitStatusFailed {
		return 1
	}
	return 0
}
