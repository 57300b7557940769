package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/zombor/invoice-check/internal/extract"
	"github.com/zombor/invoice-check/internal/history"
	"github.com/zombor/invoice-check/internal/llm"
	"github.com/zombor/invoice-check/internal/pdftext"
	"github.com/zombor/invoice-check/internal/server"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	// .env is optional; real environment variables win
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: could not load .env file: %v\n", err)
	}

	flags := ff.NewFlagSet("invoice-check")
	var (
		port          = flags.IntLong("port", 3000, "HTTP server port")
		dbPath        = flags.StringLong("db", "invoice-check.db", "Database file path")
		storagePath   = flags.StringLong("storage", "./uploads", "Storage directory for uploaded PDFs")
		cloudProvider = flags.StringLong("cloud-provider", "openai", "Cloud backend: 'openai' or 'gemini'")
		openAIKey     = flags.StringLong("openai-key", "", "OpenAI API key (or set OPENAI_API_KEY env var)")
		openAIModel   = flags.StringLong("openai-model", "gpt-4o", "OpenAI model name")
		geminiKey     = flags.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel   = flags.StringLong("gemini-model", "gemini-2.5-pro", "Google Gemini model name")
		ollamaURL     = flags.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel   = flags.StringLong("ollama-model", "mistral", "Ollama model name (e.g., mistral, llama3, qwen2.5)")
		cloudRPS      = flags.Float64Long("cloud-rps", 2, "Maximum cloud requests per second (0 disables the limit)")
		authUser      = flags.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass      = flags.StringLong("auth-pass", "", "Basic auth password (optional)")
		logLevel      = flags.StringLong("log-level", "info", "Log level: debug, info, warn or error")
		logFormat     = flags.StringLong("log-format", "text", "Log format: 'text' or 'json'")
		_             = flags.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(flags, os.Args[1:],
		ff.WithEnvVarPrefix("INVOICE_CHECK"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(flags))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if err := setupLogger(*logLevel, *logFormat); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// amounts serialize as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true

	slog.Info("Initializing database...")
	db, err := history.NewBoltDB(*dbPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	slog.Info("Initializing storage...")
	store, err := history.NewLocalStorage(*storagePath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	cloud := newCloudBackend(*cloudProvider, *openAIKey, *openAIModel, *geminiKey, *geminiModel)
	if cloud != nil {
		defer cloud.Close()
		if *cloudRPS > 0 {
			cloud = llm.Throttled(cloud, rate.NewLimiter(rate.Limit(*cloudRPS), 1))
		}
	}

	var local llm.Backend
	slog.Info("Initializing Ollama backend...", "url", *ollamaURL, "model", *ollamaModel)
	if ollama, err := llm.NewOllama(*ollamaURL, *ollamaModel); err != nil {
		slog.Warn("Failed to initialize Ollama", "error", err)
	} else {
		local = ollama
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Requests served before the probe finishes use the pattern matcher only
	availability := &extract.AvailabilityHolder{}
	go func() {
		availability.Set(extract.Probe(ctx, cloud, local))
	}()

	pipeline := extract.NewPipeline(extract.NewExtractor(availability, cloud, local))
	service := history.NewService(db, pipeline, pdftext.Extractor{}, store)

	basicAuth := server.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	}
	srv := server.NewServer(service, availability, basicAuth, version)

	addr := fmt.Sprintf(":%d", *port)
	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr), "version", version)
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	if err := srv.Start(ctx, addr); err != nil {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	slog.Info("Shutting down...")
}

// newCloudBackend builds the configured cloud backend. A missing credential is
// not fatal: the cloud tier is simply unavailable.
func newCloudBackend(provider, openAIKey, openAIModel, geminiKey, geminiModel string) llm.Backend {
	switch provider {
	case "openai":
		if openAIKey == "" {
			openAIKey = os.Getenv("OPENAI_API_KEY")
		}
		if openAIKey == "" {
			slog.Warn("No OpenAI API key configured; cloud backend disabled")
			return nil
		}
		slog.Info("Initializing OpenAI backend...", "model", openAIModel)
		b, err := llm.NewOpenAI(llm.OpenAIConfig{APIKey: openAIKey, Model: openAIModel})
		if err != nil {
			slog.Warn("Failed to initialize OpenAI", "error", err)
			return nil
		}
		return b
	case "gemini":
		if geminiKey == "" {
			geminiKey = os.Getenv("GEMINI_API_KEY")
		}
		if geminiKey == "" {
			slog.Warn("No Gemini API key configured; cloud backend disabled")
			return nil
		}
		slog.Info("Initializing Gemini backend...", "model", geminiModel)
		b, err := llm.NewGemini(geminiKey, geminiModel)
		if err != nil {
			slog.Warn("Failed to initialize Gemini", "error", err)
			return nil
		}
		return b
	default:
		slog.Error("Invalid cloud provider", "provider", provider, "valid", "openai or gemini")
		os.Exit(1)
		return nil
	}
}

// setupLogger installs the default slog handler
func setupLogger(level, format string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("parsing log level: %w", err)
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	switch format {
	case "text":
		handler = slog.NewTextHandler(os.Stderr, opts)
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	default:
		return fmt.Errorf("invalid log format %q: use 'text' or 'json'", format)
	}

	slog.SetDefault(slog.New(handler))
	return nil
}
