package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ironsheep/image-analyzer-mcp/internal/config"
	"github.com/ironsheep/image-analyzer-mcp/internal/server"
	"github.com/ironsheep/image-analyzer-mcp/internal/transport"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		envFile string
		debug   bool
	)

	root := &cobra.Command{
		Use:   "image-analyzer-mcp",
		Short: "MCP server that analyzes images with hosted vision models",
		Long: `image-analyzer-mcp exposes the analyze_images tool over MCP on stdin/stdout.

Configure it in your MCP client (e.g., Claude Desktop). Settings are read from
the environment and from an optional .env file:

  MODEL                     default model (azure:gpt-5.2)
  AZURE_OPENAI_ENDPOINT     Azure OpenAI / AI Foundry endpoint
  AZURE_OPENAI_API_KEY      Azure API key
  AZURE_OPENAI_API_VERSION  Azure OpenAI API version
  AZURE_OPENAI_AUTH         key or entra
  AZURE_MISTRAL_DEPLOYMENT  Mistral Document AI deployment
  OPENAI_API_KEY            OpenAI API key
  ANTHROPIC_API_KEY         Anthropic API key
  IMAGE_BASE_DIR            base directory for relative image paths
  REQUEST_TIMEOUT           per-call timeout (e.g. 2m)
  VALIDATE_URLS             check image URLs before use (true)
  MCP_DEBUG                 verbose logs and tracebacks in errors`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(envFile)
			if err != nil {
				return err
			}
			if debug {
				cfg.Debug = true
			}
			return run(cmd.Context(), cfg, os.Stdin, os.Stdout, newLogger(os.Stderr, cfg.Debug))
		},
	}

	root.SetVersionTemplate(versionText())
	root.Flags().StringVar(&envFile, "env-file", ".env", "Path to a .env file; a missing file is ignored")
	root.Flags().BoolVar(&debug, "debug", false, "Enable debug logging and tracebacks (same as MCP_DEBUG=true)")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprint(cmd.OutOrStdout(), versionText())
		},
	})

	return root
}

func versionText() string {
	return fmt.Sprintf("image-analyzer-mcp %s\n  Build time: %s\n  Git commit: %s\n", Version, BuildTime, GitCommit)
}

// newLogger writes to w, which must not be stdout: stdout carries the MCP protocol.
func newLogger(w io.Writer, debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, NoColor: true, TimeFormat: time.RFC3339}).
		Level(level).
		With().Timestamp().Logger()
}

func run(ctx context.Context, cfg config.Config, in io.Reader, out io.Writer, logger zerolog.Logger) error {
	logger.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("commit", GitCommit).
		Str("default_model", cfg.DefaultModel).
		Str("base_dir", cfg.BaseDir).
		Bool("debug", cfg.Debug).
		Msg("Image Analyzer MCP Server starting")

	transport.Version = Version

	srv, err := server.New(cfg, Version, logger)
	if err != nil {
		return err
	}
	return srv.Run(ctx, in, out)
}
