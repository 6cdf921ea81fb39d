package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "mockapi",
		Short: "MockAPI - declarative API mocking server",
		Long: `MockAPI serves synthesized HTTP responses for declaratively configured
endpoints. Rules map a method and path pattern to a templated response,
optionally with weighted variants and simulated latency, scoped per
project. Every handled request is recorded in a bounded transaction log.`,
	}
)

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: ./config.yaml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(initCmd)
}

// initConfig reads in config file and ENV variables if set
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		cwd, err := os.Getwd()
		if err != nil {
			cwd = "."
		}

		viper.AddConfigPath(cwd)
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("MOCKAPI")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// setDefaults sets the default configuration values
func setDefaults() {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	defaultDataPath := filepath.Join(cwd, "data")

	// Server defaults
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.tls.enabled", false)
	viper.SetDefault("server.tls.certFile", "")
	viper.SetDefault("server.tls.keyFile", "")
	viper.SetDefault("server.tls.autoGenerate", true)
	viper.SetDefault("server.tls.storePath", "")

	// Storage defaults
	viper.SetDefault("storage.type", "file")
	viper.SetDefault("storage.path", defaultDataPath)

	// Transaction log defaults
	viper.SetDefault("txlog.maxRecords", 1000)

	// Lookup defaults
	viper.SetDefault("lookup.entitiesFile", filepath.Join(defaultDataPath, "entities.yaml"))
	viper.SetDefault("lookup.bindings", map[string]string{"username": "user"})

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
}
