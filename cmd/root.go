/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/allbin/serialmux/internal/logging"
	"github.com/allbin/serialmux/manager"
	"github.com/allbin/serialmux/storage"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "serialmux",
	Short: "Manage concurrent serial port sessions with a durable audit log",
	Long: `serialmux discovers serial ports, opens them with negotiated line
parameters, multiplexes reads, writes and control-line changes over a single
hardware handle per port, and records every transfer in an append-only
SQLite audit log keyed by session and device identity.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.serialmux.yaml)")
	rootCmd.PersistentFlags().String("db", "", "audit database path (default is $HOME/.local/share/serialmux/audit.db)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "console", "log format: console, json")
	rootCmd.PersistentFlags().String("log-file", "", "log file path (default logs to stderr)")
	rootCmd.PersistentFlags().Duration("poll-interval", time.Second, "modem status poll interval")

	viper.BindPFlag("db", rootCmd.PersistentFlags().Lookup("db"))
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
	viper.BindPFlag("log.file", rootCmd.PersistentFlags().Lookup("log-file"))
	viper.BindPFlag("poll_interval", rootCmd.PersistentFlags().Lookup("poll-interval"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".serialmux")
	}

	viper.SetEnvPrefix("SERIALMUX")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// setupApp builds the logger, audit store and manager the subcommands run
// against. The caller is responsible for store.Close() and logger.Sync().
func setupApp() (*manager.Manager, *storage.Store, *zap.Logger, error) {
	logger, err := logging.Setup(logging.Config{
		Level:  viper.GetString("log.level"),
		Format: viper.GetString("log.format"),
		File:   viper.GetString("log.file"),
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to set up logging: %w", err)
	}

	dbPath := viper.GetString("db")
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, nil, nil, err
		}
		dbPath = filepath.Join(home, ".local", "share", "serialmux", "audit.db")
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	store, err := storage.Open(dbPath)
	if err != nil {
		return nil, nil, nil, err
	}

	mgr := manager.New(store, manager.Options{
		PollInterval: viper.GetDuration("poll_interval"),
		Logger:       logger,
	})
	return mgr, store, logger, nil
}
