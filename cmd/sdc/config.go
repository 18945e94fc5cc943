package main

import (
	"os"

	"github.com/spf13/cobra"
)

// Config holds the CLI's global configuration, resolved from flags, then
// environment variables, then built-in defaults (flags win).
type Config struct {
	DataDir        string
	ExecutorMode   string
	ServiceURL     string
	AuditLogPath   string
	Output         string
	AsrProgramPath string
	AsrModelPath   string
	LogEnvironment string
	LogFilePath    string
}

// LoadConfig resolves Config from the invoking command's flags and the
// process environment.
func LoadConfig(cmd *cobra.Command) *Config {
	cfg := &Config{}

	if v := os.Getenv("SDC_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("SDC_EXECUTOR_MODE"); v != "" {
		cfg.ExecutorMode = v
	}
	if v := os.Getenv("SDC_SERVICE_URL"); v != "" {
		cfg.ServiceURL = v
	}
	if v := os.Getenv("SDC_AUDIT_LOG_PATH"); v != "" {
		cfg.AuditLogPath = v
	}
	if v := os.Getenv("SDC_ASR_PROGRAM_PATH"); v != "" {
		cfg.AsrProgramPath = v
	}
	if v := os.Getenv("SDC_ASR_MODEL_PATH"); v != "" {
		cfg.AsrModelPath = v
	}
	if v := os.Getenv("SDC_LOG_ENV"); v != "" {
		cfg.LogEnvironment = v
	}
	if v := os.Getenv("SDC_LOG_FILE"); v != "" {
		cfg.LogFilePath = v
	}

	if v, _ := cmd.Flags().GetString("data-dir"); v != "" {
		cfg.DataDir = v
	}
	if v, _ := cmd.Flags().GetString("executor-mode"); v != "" {
		cfg.ExecutorMode = v
	}
	if v, _ := cmd.Flags().GetString("service-url"); v != "" {
		cfg.ServiceURL = v
	}
	if v, _ := cmd.Flags().GetString("audit-log"); v != "" {
		cfg.AuditLogPath = v
	}
	if v, _ := cmd.Flags().GetString("output"); v != "" {
		cfg.Output = v
	}
	if v, _ := cmd.Flags().GetString("asr-program"); v != "" {
		cfg.AsrProgramPath = v
	}
	if v, _ := cmd.Flags().GetString("asr-model"); v != "" {
		cfg.AsrModelPath = v
	}

	if cfg.DataDir == "" {
		cfg.DataDir = "/data/projects"
	}
	if cfg.ExecutorMode == "" {
		cfg.ExecutorMode = "local"
	}
	if cfg.Output == "" {
		cfg.Output = "text"
	}
	if cfg.LogEnvironment == "" {
		cfg.LogEnvironment = "dev"
	}
	if cfg.AsrProgramPath == "" {
		cfg.AsrProgramPath = "/usr/local/bin/whisper-cli"
	}

	return cfg
}

// addGlobalFlags registers the flags every subcommand resolves through
// LoadConfig.
func addGlobalFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("data-dir", "", "project artifact root (env: SDC_DATA_DIR, default: /data/projects)")
	cmd.PersistentFlags().String("executor-mode", "", "local/remote/fallback (env: SDC_EXECUTOR_MODE, default: local)")
	cmd.PersistentFlags().String("service-url", "", "remote dependency service URL (env: SDC_SERVICE_URL)")
	cmd.PersistentFlags().String("audit-log", "", "path to rotate the command audit log to (env: SDC_AUDIT_LOG_PATH)")
	cmd.PersistentFlags().StringP("output", "o", "", "output format: json / text (default: text)")
	cmd.PersistentFlags().String("asr-program", "", "path to the local ASR CLI binary used when --service-url is unset")
	cmd.PersistentFlags().String("asr-model", "", "path or name of the ASR model the local CLI binary should load")
}
