package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/canopy-data/canopy/internal/api"
	"github.com/canopy-data/canopy/internal/auth"
	"github.com/canopy-data/canopy/internal/metrics"
	"github.com/canopy-data/canopy/internal/service"
	"github.com/canopy-data/canopy/pkg/config"
	"github.com/canopy-data/canopy/pkg/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the canopy data server",
	Long: `Start the canopy data server.

The server needs exactly one data source:
- --config: declarative YAML configuration (a file or a directory of files)
- --directory: serve the files found under a directory
- --demo: serve a small built-in tree for experimentation

Configuration controls tree mounts, authentication, serialization and
compression; see the examples directory for sample documents.`,
	RunE: runServe,
}

const (
	defaultGracefulTimeout = 30 * time.Second // let in-flight payload encodes finish
	serverRequestTimeout   = 30 * time.Second // encoding large array blocks takes time
	serverReadTimeout      = 10 * time.Second // enough for headers and small request bodies
	serverWriteTimeout     = 45 * time.Second // must be > serverRequestTimeout to let middleware handle timeout
	serverIdleTimeout      = 60 * time.Second // keep connections alive for reuse
)

func init() {
	serveCmd.Flags().String("config", "", "Path to a configuration file or directory of YAML documents")
	serveCmd.Flags().String("directory", "", "Serve the files found under a directory")
	serveCmd.Flags().Bool("demo", false, "Serve the built-in demo tree")
	serveCmd.Flags().String("host", "", "Interface to bind, overriding configuration")
	serveCmd.Flags().Int("port", 0, "Port to listen on, overriding configuration")
	serveCmd.Flags().Bool("public", false, "Allow anonymous access even when authentication is configured")

	for _, name := range []string{"config", "directory", "demo", "host", "port", "public"} {
		if err := viper.BindPFlag(name, serveCmd.Flags().Lookup(name)); err != nil {
			logger.Fatalf("Failed to bind %s flag: %v", name, err)
		}
	}

	serveCmd.MarkFlagsOneRequired("config", "directory", "demo")
	serveCmd.MarkFlagsMutuallyExclusive("config", "directory", "demo")
}

// buildRuntime compiles the served tree from whichever source flag was given.
func buildRuntime() (*config.Runtime, error) {
	switch {
	case viper.GetString("config") != "":
		path := viper.GetString("config")
		_, rt, err := compileConfig(path)
		if err != nil {
			return nil, err
		}
		logger.Infof("Loaded configuration from %s", path)
		return rt, nil
	case viper.GetString("directory") != "":
		dir := viper.GetString("directory")
		cfg := config.Config{
			Trees: []config.TreeSpec{{
				Path: "/",
				Tree: config.TreeFiles,
				Args: map[string]any{"directory": dir},
			}},
		}
		rt, err := config.NewBuilder().Build(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to serve directory %s: %w", dir, err)
		}
		logger.Infof("Serving files under %s", dir)
		return rt, nil
	case viper.GetBool("demo"):
		cfg := config.Config{
			Trees: []config.TreeSpec{{Path: "/", Tree: config.TreeDemo}},
		}
		rt, err := config.NewBuilder().Build(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to build demo tree: %w", err)
		}
		logger.Info("Serving the built-in demo tree")
		return rt, nil
	default:
		return nil, errors.New("no data source specified: use --config, --directory, or --demo")
	}
}

func runServe(_ *cobra.Command, _ []string) error {
	rt, err := buildRuntime()
	if err != nil {
		return err
	}

	// Listen flags override the configured server section.
	server := rt.Server
	if host := viper.GetString("host"); host != "" {
		server.Host = host
	}
	if port := viper.GetInt("port"); port != 0 {
		server.Port = port
	}
	address := net.JoinHostPort(server.Host, strconv.Itoa(server.Port))

	logger.Infof("Starting canopy data server on %s", address)

	svc := service.NewTreeService(rt.Root)

	opts := []api.ServerOption{
		api.WithMiddlewares(
			middleware.RequestID,
			middleware.RealIP,
			middleware.Recoverer,
			middleware.Timeout(serverRequestTimeout),
			api.LoggingMiddleware,
		),
		api.WithSerialization(rt.Serialization),
		api.WithQueries(rt.Queries),
		api.WithCompression(rt.Compression),
		api.WithMetrics(metrics.New()),
	}
	if len(rt.AllowOrigins) > 0 {
		opts = append(opts, api.WithCORS(rt.AllowOrigins))
	}
	if rt.Authenticator != nil {
		allowAnonymous := rt.AllowAnonymous || viper.GetBool("public")
		sessions, err := auth.NewSessions(rt.SecretKey, rt.SessionMaxAge)
		if err != nil {
			return fmt.Errorf("failed to initialize session signing: %w", err)
		}
		opts = append(opts, api.WithAuthentication(rt.Authenticator, sessions, allowAnonymous))
		logger.Infof("Authentication enabled (anonymous access: %t)", allowAnonymous)
	}

	router := api.NewServer(svc, opts...)

	httpServer := &http.Server{
		Addr:         address,
		Handler:      router,
		ReadTimeout:  serverReadTimeout,
		WriteTimeout: serverWriteTimeout,
		IdleTimeout:  serverIdleTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Infof("Server listening on %s", address)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultGracefulTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
		return err
	}

	logger.Info("Server shutdown complete")
	return nil
}
