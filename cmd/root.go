package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"ibakit/internal/config"
	"ibakit/internal/log"
)

var (
	version   = "dev"
	cfgFile   string
	debugFlag bool
	cfg       config.Config
)

var rootCmd = &cobra.Command{
	Use:     "ibakit",
	Short:   "Inspect, search, and export signal catalogs from recording files",
	Long:    `ibakit loads signal catalogs from plant recording files and provides search, signal definition management, and data export from the command line.`,
	Version: version,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ~/.config/ibakit/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false,
		"enable debug logging")
}

func initConfig() {
	defaults := config.Defaults()
	viper.SetDefault("decoder", defaults.Decoder)
	viper.SetDefault("auto_reload", defaults.AutoReload)
	viper.SetDefault("watch.debounce_ms", defaults.Watch.DebounceMS)
	viper.SetDefault("search.cache_enabled", defaults.Search.CacheEnabled)
	viper.SetDefault("search.cache_ttl_seconds", defaults.Search.CacheTTLSeconds)
	viper.SetDefault("history.db_path", defaults.History.DBPath)
	viper.SetDefault("history.keep", defaults.History.Keep)
	viper.SetDefault("tracing.enabled", defaults.Tracing.Enabled)
	viper.SetDefault("tracing.exporter", defaults.Tracing.Exporter)
	viper.SetDefault("tracing.file_path", defaults.Tracing.FilePath)
	viper.SetDefault("tracing.otlp_endpoint", defaults.Tracing.OTLPEndpoint)
	viper.SetDefault("tracing.sample_rate", defaults.Tracing.SampleRate)

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Config lookup order:
		// 1. .ibakit/config.yaml (current directory)
		// 2. ~/.config/ibakit/config.yaml (user config)
		if _, err := os.Stat(".ibakit/config.yaml"); err == nil {
			viper.SetConfigFile(".ibakit/config.yaml")
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(filepath.Join(home, ".config", "ibakit"))
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		// No config file found anywhere - create default at .ibakit/config.yaml
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			defaultPath := ".ibakit/config.yaml"
			if writeErr := config.WriteDefaultConfig(defaultPath); writeErr == nil {
				viper.SetConfigFile(defaultPath)
				_ = viper.ReadInConfig()
			}
			// If write fails, just continue with defaults (no config file)
		}
	}

	_ = viper.Unmarshal(&cfg)
}

// initLogging enables the debug log when requested via flag or env var.
// Returns a cleanup func that is a no-op when logging is disabled.
func initLogging() (func(), error) {
	debug := os.Getenv("IBAKIT_DEBUG") != "" || debugFlag
	if !debug {
		return func() {}, nil
	}

	logPath := os.Getenv("IBAKIT_LOG")
	if logPath == "" {
		logPath = "debug.log"
	}

	cleanup, err := log.Init(logPath)
	if err != nil {
		return nil, fmt.Errorf("initializing logging: %w", err)
	}
	return cleanup, nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
