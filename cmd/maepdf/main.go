package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/OAT7963/mae-pdf-processing/internal/config"
	"github.com/OAT7963/mae-pdf-processing/internal/logger"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile   string
	version   = "dev"
	appConfig *config.Config
	rootCmd   = &cobra.Command{
		Use:   "maepdf",
		Short: "Bank statement PDF to spreadsheet converter",
		Long: `maepdf reconstructs transactions from Maybank (debit card, MAE, credit card)
and CIMB statement PDFs and writes them to CSV, Excel, OFX or SQLite.

Formats are auto-detected unless --format is given. Additional formats can
be defined in YAML and loaded with --format-file.`,
		PersistentPreRunE: initConfig,
		SilenceUsage:      true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml or $HOME/.config/maepdf/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "log format (console, json)")
	rootCmd.PersistentFlags().StringSlice("format-file", nil, "YAML file defining extra statement formats (repeatable)")

	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag("format_files", rootCmd.PersistentFlags().Lookup("format-file"))

	rootCmd.AddCommand(convertCmd())
	rootCmd.AddCommand(formatsCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(versionCmd())
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log := logger.FromContext(ctx)
		log.Warn().Msg("received interrupt signal, finishing current documents")
		cancel()
	}()

	err := rootCmd.ExecuteContext(ctx)
	cancel()

	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}

func initConfig(cmd *cobra.Command, _ []string) error {
	config.SetDefaults(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home + "/.config/maepdf")
		}
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix(config.EnvPrefix)
	viper.SetEnvKeyReplacer(config.EnvKeyReplacer)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}
	appConfig = cfg

	log := setupLogging(cfg.Logging)
	cmd.SetContext(logger.WithContext(cmd.Context(), log))
	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug().Str("file", used).Msg("loaded config")
	}
	return nil
}

func setupLogging(cfg config.LoggingConfig) zerolog.Logger {
	return logger.New(logger.Options{
		Level: cfg.Level,
		JSON:  cfg.Format == "json",
	})
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "maepdf %s\n", version)
		},
	}
}
