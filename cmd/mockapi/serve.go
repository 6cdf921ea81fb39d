package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hcplat/mockapi/internal/api"
	"github.com/hcplat/mockapi/internal/config"
	"github.com/hcplat/mockapi/internal/engine"
	"github.com/hcplat/mockapi/internal/lookup"
	"github.com/hcplat/mockapi/internal/stats"
	"github.com/hcplat/mockapi/internal/storage"
	"github.com/hcplat/mockapi/internal/tlsutil"
	"github.com/hcplat/mockapi/internal/txlog"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MockAPI server",
	Long: `Starts the MockAPI server.

The server will:
  - Load projects and rules from the data directory
  - Expose the admin API at /_api/
  - Serve mock responses at /{project}/{path}

Configuration is loaded from config.yaml in the current directory,
or specify a custom config file with the --config flag.`,
	RunE: runServe,
}

var (
	portFlag int
	tlsFlag  bool
)

func init() {
	serveCmd.Flags().IntVarP(&portFlag, "port", "p", 0, "Override server port")
	serveCmd.Flags().BoolVar(&tlsFlag, "tls", false, "Enable TLS (overrides config)")

	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	viper.BindPFlag("server.tls.enabled", serveCmd.Flags().Lookup("tls"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := resolveConfig()

	if cfg.Storage.Path != "" && !filepath.IsAbs(cfg.Storage.Path) {
		cwd, err := os.Getwd()
		if err == nil {
			cfg.Storage.Path = filepath.Join(cwd, cfg.Storage.Path)
		}
	}

	log := newLogger(cfg.Logging)
	log.WithField("path", cfg.Storage.Path).Info("using data directory")

	// Initialize the rule store
	var store storage.Store
	var err error
	if cfg.Storage.Type == "file" {
		store, err = storage.NewFileStore(cfg.Storage.Path)
		if err != nil {
			return fmt.Errorf("failed to initialize file storage: %w", err)
		}
	} else {
		store = storage.NewMemoryStore()
	}
	defer store.Close()

	// Entity lookup registry for template db access
	registry := lookup.NewRegistry()
	registry.Register("project", lookup.NewProjectSource(store))
	for field, model := range cfg.Lookup.Bindings {
		registry.Bind(field, model)
	}
	if cfg.Lookup.EntitiesFile != "" {
		if err := lookup.LoadEntitiesFile(cfg.Lookup.EntitiesFile, registry); err != nil {
			log.WithError(err).Warn("failed to load lookup entities")
		}
	}

	txlogService := txlog.NewService(cfg.TxLog.MaxRecords)
	collector := stats.NewCollector()
	eng := engine.New(store, txlogService, collector, registry, log)
	router := api.NewRouter(store, eng, txlogService, collector, log)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		var err error
		if cfg.Server.TLS.Enabled {
			err = serveTLS(server, addr, cfg, log)
		} else {
			log.WithField("addr", addr).Info("starting MockAPI server")
			err = server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Warn("server shutdown error")
	}

	log.Info("server stopped")
	return nil
}

// resolveConfig builds the effective configuration from viper, applying
// command line flag overrides on top.
func resolveConfig() *config.Config {
	cfg := config.Default()

	cfg.Server.Port = viper.GetInt("server.port")
	cfg.Server.Host = viper.GetString("server.host")
	cfg.Server.TLS.Enabled = viper.GetBool("server.tls.enabled")
	cfg.Server.TLS.CertFile = viper.GetString("server.tls.certFile")
	cfg.Server.TLS.KeyFile = viper.GetString("server.tls.keyFile")
	cfg.Server.TLS.AutoGenerate = viper.GetBool("server.tls.autoGenerate")
	cfg.Server.TLS.StorePath = viper.GetString("server.tls.storePath")
	cfg.Storage.Type = viper.GetString("storage.type")
	cfg.Storage.Path = viper.GetString("storage.path")
	cfg.TxLog.MaxRecords = viper.GetInt("txlog.maxRecords")
	cfg.Lookup.EntitiesFile = viper.GetString("lookup.entitiesFile")
	if bindings := viper.GetStringMapString("lookup.bindings"); len(bindings) > 0 {
		cfg.Lookup.Bindings = bindings
	}
	cfg.Logging.Level = viper.GetString("logging.level")
	cfg.Logging.Format = viper.GetString("logging.format")

	if portFlag > 0 {
		cfg.Server.Port = portFlag
	}
	if tlsFlag {
		cfg.Server.TLS.Enabled = true
	}

	return cfg
}

// serveTLS starts the server with a configured or self-signed certificate
func serveTLS(server *http.Server, addr string, cfg *config.Config, log *logrus.Logger) error {
	storePath := cfg.Server.TLS.StorePath
	if storePath == "" {
		storePath = filepath.Join(cfg.Storage.Path, "certs")
	}

	certManager := tlsutil.NewCertificateManager(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile, storePath)
	cert, err := certManager.GetCertificate(cfg.Server.TLS.AutoGenerate)
	if err != nil {
		return fmt.Errorf("failed to get TLS certificate: %w", err)
	}

	certPath, keyPath := certManager.GetCertificatePaths()
	log.WithField("cert", certPath).WithField("key", keyPath).Info("using TLS certificate")

	server.TLSConfig = &tls.Config{
		Certificates: []tls.Certificate{*cert},
		MinVersion:   tls.VersionTLS12,
	}

	log.WithField("addr", addr).Info("starting MockAPI server (TLS)")
	return server.ListenAndServeTLS("", "")
}

// newLogger builds the process logger from the logging configuration
func newLogger(cfg config.LoggingConfig) *logrus.Logger {
	log := logrus.New()

	if cfg.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	if level, err := logrus.ParseLevel(cfg.Level); err == nil {
		log.SetLevel(level)
	}

	return log
}
