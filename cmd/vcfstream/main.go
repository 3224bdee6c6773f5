// Package main provides the vcfstream command-line tool.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/inodb/vcfstream/internal/region"
	"github.com/inodb/vcfstream/internal/source"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
	ExitUsage   = 2
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const configName = ".vcfstream"

// errUsage marks errors caused by bad invocation rather than bad input.
var errUsage = errors.New("usage error")

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	root := newRootCmd()
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, errUsage) {
			return ExitUsage
		}
		return ExitError
	}
	return ExitSuccess
}

func newRootCmd() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "vcfstream",
		Short: "Stream genotypes out of VCF and gVCF files",
		Long: `vcfstream decodes VCF and gVCF files (plain, gzip or block-gzip) into
genotype matrices, variant spans and merged regions.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(cfgFile)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "Config file (default: ~/.vcfstream.yaml)")
	flags.Int("threads", runtime.NumCPU(), "Block-gzip decompression threads")
	flags.String("log-level", "info", "Log level: debug, info, warn, error")
	flags.BoolP("verbose", "v", false, "Enable debug logging")
	flags.String("db", "", "DuckDB database path (default: ~/.vcfstream/vcfstream.duckdb)")

	viper.BindPFlag("threads", flags.Lookup("threads"))
	viper.BindPFlag("log.level", flags.Lookup("log-level"))
	viper.BindPFlag("verbose", flags.Lookup("verbose"))
	viper.BindPFlag("duckdb.path", flags.Lookup("db"))

	cmd.AddCommand(
		newRecordsCmd(),
		newConvertCmd(),
		newSpansCmd(),
		newRegionsCmd(),
		newStatsCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)

	return cmd
}

// initConfig loads the config file and environment overrides.
func initConfig(cfgFile string) error {
	viper.SetDefault("log.level", "info")
	viper.SetDefault("buffer.window", region.DefaultWindow)
	viper.SetDefault("regions.gap", 0)
	if home, err := os.UserHomeDir(); err == nil {
		viper.SetDefault("duckdb.path", filepath.Join(home, ".vcfstream", "vcfstream.duckdb"))
	}

	viper.SetEnvPrefix("VCFSTREAM")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(configName)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) && cfgFile == "" {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	return nil
}

// newLogger builds a stderr logger at the configured level.
func newLogger() (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if viper.GetBool("verbose") {
		level = zapcore.DebugLevel
	} else if err := level.UnmarshalText([]byte(viper.GetString("log.level"))); err != nil {
		return nil, fmt.Errorf("%w: invalid log level %q", errUsage, viper.GetString("log.level"))
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}

// sourceOptions returns the line source options from config.
func sourceOptions() ([]source.Option, error) {
	threads := viper.GetInt("threads")
	if threads < 1 {
		return nil, fmt.Errorf("%w: threads must be positive, got %d", errUsage, threads)
	}
	return []source.Option{source.WithThreads(threads)}, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "vcfstream version %s (%s) built %s\n", version, commit, date)
		},
	}
}
