package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"a2a-support-desk/internal/a2a"
	"a2a-support-desk/internal/config"
	"a2a-support-desk/internal/logging"
	"a2a-support-desk/internal/mcpbridge"
)

const version = "1.0.0"

var (
	cfgFile  string
	port     int
	discover []string
)

var rootCmd = &cobra.Command{
	Use:   "mcp-a2a",
	Short: "MCP server exposing the A2A client as tools",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the MCP bridge over Streamable HTTP",
	RunE:  runServe,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("mcp-a2a v%s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to agent configuration file")
	serveCmd.Flags().IntVar(&port, "port", 0, "override listen port")
	serveCmd.Flags().StringSliceVar(&discover, "discover", nil, "agent base URLs to discover at startup")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := config.LoadEnvFiles(); err != nil {
		return err
	}
	cfg, err := config.Load(cfgFile, config.WithMCPPort(port))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := a2a.NewRegistry(
		a2a.WithRegistryLogger(logger),
		a2a.WithHTTPClient(&http.Client{Timeout: cfg.Client.Timeout}),
	)
	client := a2a.NewClient(registry, cfg.Client.Timeout, logger)
	for _, address := range discover {
		if _, err := client.Discover(ctx, address); err != nil {
			logger.Warn("startup discovery failed", zap.String("address", address), zap.Error(err))
		}
	}

	bridge := mcpbridge.New(client, logger)
	addr := fmt.Sprintf("%s:%d", cfg.MCP.Host, cfg.MCP.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           bridge.Handler(version),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()
	logger.Info("mcp-a2a listening", zap.String("address", addr), zap.String("path", mcpbridge.MCPPath))

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
