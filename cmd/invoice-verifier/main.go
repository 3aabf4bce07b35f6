package main

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"github.com/verifiq/invoice-verifier/internal/extraction"
	"github.com/verifiq/invoice-verifier/internal/indexing"
	"github.com/verifiq/invoice-verifier/internal/objectstore"
	"github.com/verifiq/invoice-verifier/internal/pipeline"
	"github.com/verifiq/invoice-verifier/internal/routing"
	"github.com/verifiq/invoice-verifier/internal/rules"
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

	fs := ff.NewFlagSet("invoice-verifier")
	var (
		port           = fs.IntLong("port", 8080, "HTTP server port")
		rulesDBPath    = fs.StringLong("rules-db", "invoice-rules.db", "Rule database file path")
		storagePath    = fs.StringLong("storage", "./objects", "Object storage base directory")
		approvedBucket = fs.StringLong("approved-bucket", "", "Bucket for documents that pass verification")
		approvedPrefix = fs.StringLong("approved-prefix", "approved/", "Key prefix for approved documents")
		deniedBucket   = fs.StringLong("denied-bucket", "", "Bucket for documents that fail verification")
		deniedPrefix   = fs.StringLong("denied-prefix", "declined/", "Key prefix for denied documents")
		stagingBucket  = fs.StringLong("staging-bucket", "", "Bucket for staged bulk import files")
		stagingPrefix  = fs.StringLong("staging-prefix", "opensearch", "Key prefix for staged bulk import files")
		indexEndpoint  = fs.StringLong("index-endpoint", "", "Search index base URL (optional)")
		indexName      = fs.StringLong("index-name", "invoices", "Search index name")
		indexUser      = fs.StringLong("index-user", "", "Search index basic auth username")
		indexPass      = fs.StringLong("index-pass", "", "Search index basic auth password")
		analyzerType   = fs.StringLong("analyzer", "", "Document analyzer: 'gemini' or empty to disable")
		geminiKey      = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel    = fs.StringLong("gemini-model", "gemini-2.5-pro", "Google Gemini model name")
		authUser       = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass       = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		logLevel       = fs.StringLong("log-level", "info", "Log level: debug, info, warn or error")
		showVersion    = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("INVOICE_VERIFIER"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Check version flag after parsing
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		fmt.Fprintf(os.Stderr, "invalid log level %q\n", *logLevel)
		os.Exit(1)
	}
	slog.SetLogLoggerLevel(level)

	if *approvedBucket == "" || *deniedBucket == "" || *stagingBucket == "" {
		slog.Error("Approved, denied and staging buckets are required. Set --approved-bucket, --denied-bucket and --staging-bucket")
		os.Exit(1)
	}

	// Initialize rule database
	slog.Info("Loading rule database...", "path", *rulesDBPath)
	ruleStore, err := rules.NewBoltStore(*rulesDBPath)
	if err != nil {
		slog.Error("Failed to open rule database", "error", err)
		os.Exit(1)
	}
	defer ruleStore.Close()

	ruleSet, err := rules.LoadSet(ruleStore, rules.NewRegistry())
	if err != nil {
		slog.Error("Failed to load rule set", "error", err)
		os.Exit(1)
	}
	slog.Info("Rule set loaded", "rules", ruleSet.Len())

	// Initialize object storage
	slog.Info("Initializing object storage...", "path", *storagePath)
	store, err := objectstore.NewLocalStore(*storagePath)
	if err != nil {
		slog.Error("Failed to initialize object storage", "error", err)
		os.Exit(1)
	}

	// Initialize analyzer based on type
	var analyzer extraction.Analyzer
	switch *analyzerType {
	case "gemini":
		// Get Gemini API key from flag or environment
		apiKey := *geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			slog.Error("Gemini API key is required. Set --gemini-key flag or GEMINI_API_KEY environment variable")
			os.Exit(1)
		}
		slog.Info("Initializing Gemini analyzer...", "model", *geminiModel)
		analyzer, err = extraction.NewGemini(apiKey, *geminiModel)
		if err != nil {
			slog.Error("Failed to initialize Gemini", "error", err)
			os.Exit(1)
		}
		defer analyzer.Close()
	case "":
		slog.Info("No analyzer configured, verification requires pre-extracted invoice data")
	default:
		slog.Error("Invalid analyzer type", "type", *analyzerType, "valid", "gemini")
		os.Exit(1)
	}

	// Initialize search index client
	var index indexing.Index
	if *indexEndpoint != "" {
		slog.Info("Initializing search index client...", "endpoint", *indexEndpoint, "index", *indexName)
		index, err = indexing.NewHTTPIndex(*indexEndpoint, *indexUser, *indexPass)
		if err != nil {
			slog.Error("Failed to initialize search index client", "error", err)
			os.Exit(1)
		}
	}

	manifestRouter := routing.NewRouter(store,
		routing.Destination{Bucket: *approvedBucket, KeyPrefix: *approvedPrefix},
		routing.Destination{Bucket: *deniedBucket, KeyPrefix: *deniedPrefix},
	)
	verifyRouter := routing.NewRouter(store,
		routing.Destination{Bucket: *approvedBucket},
		routing.Destination{Bucket: *deniedBucket},
	)

	orchestrator := pipeline.NewOrchestrator(store, ruleSet, manifestRouter, indexing.NewBuilder(),
		pipeline.StagingConfig{Bucket: *stagingBucket, Prefix: *stagingPrefix},
		*indexName,
	)
	verifier := pipeline.NewVerifier(store, ruleSet, verifyRouter, analyzer, index, *indexName, pipeline.NewRealTimeSource())

	// Initialize server
	basicAuth := pipeline.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	}
	server := pipeline.NewServer(orchestrator, verifier, basicAuth)

	// Start server in goroutine
	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr))
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}
