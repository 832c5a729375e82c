package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gitvol/gitvol/internal/config"
	"github.com/gitvol/gitvol/internal/utils"
	"github.com/gitvol/gitvol/internal/version"
)

var rootCmd = &cobra.Command{
	Use:     "gitvol",
	Short:   "Mirror a git working tree into a workspace volume",
	Version: version.Detailed(),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		// config is good, errors past this point are run failures
		cmd.SilenceUsage = true

		closeLogs, err := setupLogging(cfg.LogDir)
		if err != nil {
			return err
		}
		defer closeLogs()

		return runMirror(cmd.Context(), cfg)
	},
}

func init() {
	rootCmd.Flags().SortFlags = false
	rootCmd.Flags().StringP("repo", "r", "", "Source git repository, e.g. github.com/user/repo.git")
	rootCmd.Flags().String("repo-token", "", "Access token for the source repository")
	rootCmd.Flags().StringP("branch", "b", "", "Branch to mirror (default main)")
	rootCmd.Flags().StringP("workdir", "w", "", "Local working tree directory (default ./repo)")
	rootCmd.Flags().StringP("server", "s", "", "Workspace base URL, e.g. https://acme.cloud.databricks.com")
	rootCmd.Flags().StringP("token", "t", "", "Bearer token for the workspace files API")
	rootCmd.Flags().String("volume", "", "Destination volume path, e.g. /Volumes/main/default/sql")
	rootCmd.Flags().String("state-file", "", "Fingerprint store file (default <logdir>/.fingerprints)")
	rootCmd.Flags().String("log-dir", "", "Directory for per-run log files (default ./logs)")
	rootCmd.Flags().StringSlice("include", nil, "Only mirror paths matching these globs, e.g. '**/*.sql'")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	// .env in the working directory, same as the cron deployments expect
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("skipping .env", "error", err)
	}

	viper.BindPFlag("repo_url", cmd.Flags().Lookup("repo"))
	viper.BindPFlag("repo_token", cmd.Flags().Lookup("repo-token"))
	viper.BindPFlag("branch", cmd.Flags().Lookup("branch"))
	viper.BindPFlag("work_dir", cmd.Flags().Lookup("workdir"))
	viper.BindPFlag("server_url", cmd.Flags().Lookup("server"))
	viper.BindPFlag("token", cmd.Flags().Lookup("token"))
	viper.BindPFlag("volume_path", cmd.Flags().Lookup("volume"))
	viper.BindPFlag("state_file", cmd.Flags().Lookup("state-file"))
	viper.BindPFlag("log_dir", cmd.Flags().Lookup("log-dir"))
	viper.BindPFlag("include", cmd.Flags().Lookup("include"))

	viper.SetEnvPrefix("GITVOL")
	viper.AutomaticEnv()

	return &config.Config{
		RepoURL:      viper.GetString("repo_url"),
		RepoToken:    viper.GetString("repo_token"),
		Branch:       viper.GetString("branch"),
		WorkDir:      viper.GetString("work_dir"),
		ServerURL:    viper.GetString("server_url"),
		Token:        viper.GetString("token"),
		VolumePath:   viper.GetString("volume_path"),
		StateFile:    viper.GetString("state_file"),
		LogDir:       viper.GetString("log_dir"),
		IncludeGlobs: viper.GetStringSlice("include"),
	}, nil
}

// setupLogging wires slog to a colorized terminal handler and a timestamped
// per-run log file, both receiving every record.
func setupLogging(logDir string) (func(), error) {
	if err := utils.EnsureDir(logDir); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	logFile := filepath.Join(logDir, "run_"+time.Now().Format("20060102_150405")+".log")
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	stdoutHandler := tint.NewHandler(os.Stdout, &tint.Options{
		Level:      slog.LevelDebug,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		NoColor:    !isatty.IsTerminal(os.Stdout.Fd()),
	})

	runLog := utils.NewRunLogWriter(file)
	fileHandler := slog.NewTextHandler(runLog, &slog.HandlerOptions{
		Level: slog.LevelDebug,
		// Drop the time attribute, the run log writer stamps every line.
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			return a
		},
	})

	slog.SetDefault(slog.New(utils.NewMultiLogHandler(stdoutHandler, fileHandler)))
	slog.Info("logging to", "file", logFile)

	return func() {
		runLog.Close()
		file.Close()
	}, nil
}
