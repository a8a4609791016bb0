package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"ghl-mcp/internal/config"
	"ghl-mcp/internal/ghl"
	"ghl-mcp/internal/server"
	"ghl-mcp/internal/tools"
	"ghl-mcp/internal/version"
)

const shutdownTimeout = 5 * time.Second

type rootOptions struct {
	host    string
	port    int
	envFile string
	debug   bool
}

// NewRootCommand builds the CLI. Running it without a subcommand serves HTTP.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "ghl-mcp-http",
		Short: "GoHighLevel MCP server",
		Long: `ghl-mcp-http exposes GoHighLevel CRM endpoints (contacts, opportunities, pipelines, notes,
workflow webhooks) as MCP tools over HTTP.`,
		Version:       version.GetVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return serve(ctx, cfg)
		},
	}

	rootCmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "Optional dotenv file read before the environment")
	rootCmd.Flags().StringVar(&opts.host, "host", "", "Override MCP_SERVER_HOST")
	rootCmd.Flags().IntVar(&opts.port, "port", 0, "Override MCP_SERVER_PORT")

	rootCmd.AddCommand(newToolsCommand())

	return rootCmd
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command, opts *rootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.envFile)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("host") {
		cfg.Host = opts.host
	}
	if cmd.Flags().Changed("port") {
		if opts.port <= 0 || opts.port > 65535 {
			return nil, &config.Error{Err: fmt.Errorf("--port out of range: %d", opts.port)}
		}
		cfg.Port = opts.port
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	if opts.debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	return cfg, nil
}

func serve(ctx context.Context, cfg *config.Config) error {
	registry := tools.Default(ghl.New(cfg, nil))
	srv := server.New(cfg, registry)

	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info().
		Str("addr", cfg.Addr()).
		Str("sub_account", cfg.SubAccountID).
		Str("api_base_url", cfg.APIBaseURL).
		Strs("allowed_origins", cfg.Origins()).
		Bool("tls", cfg.TLSEnabled()).
		Str("version", version.GetVersion()).
		Msg("Starting GHL MCP server")
	if cfg.MCPToken == "" {
		log.Warn().Msg("MCP_TOKEN not set; MCP endpoints are open. Set MCP_TOKEN to secure them.")
	}
	log.Debug().
		Bool("anthropic_api_key", cfg.AnthropicAPIKey != "").
		Bool("ngrok_authtoken", cfg.NgrokAuthToken != "").
		Str("azure_app_service_url", cfg.AzureAppServiceURL).
		Msg("Optional deployment settings")

	errCh := make(chan error, 1)
	go func() {
		if cfg.TLSEnabled() {
			errCh <- httpServer.ListenAndServeTLS(cfg.TLSCertFile, cfg.TLSKeyFile)
			return
		}
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func newToolsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "Print the tool catalog as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(server.ToolList{Tools: tools.Default(nil).List()})
		},
	}
}
