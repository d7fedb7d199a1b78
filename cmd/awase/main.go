// Package main is the Awase CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/awase/internal/blob"
	"github.com/hyperjump/awase/internal/config"
	"github.com/hyperjump/awase/internal/embedding"
	"github.com/hyperjump/awase/internal/metadata"
	"github.com/hyperjump/awase/internal/pipeline"
	"github.com/hyperjump/awase/internal/reconcile"
	"github.com/hyperjump/awase/internal/search"
	"github.com/hyperjump/awase/internal/server"
	"github.com/hyperjump/awase/internal/sparse"
	"github.com/hyperjump/awase/internal/vectorstore"
	"github.com/hyperjump/awase/internal/vectorstore/memory"
	"github.com/hyperjump/awase/internal/vectorstore/qdrant"
	"github.com/hyperjump/awase/internal/watcher"
	"github.com/hyperjump/awase/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/awase/config.yaml"

// loadConfig loads config from path. When path is the default, a
// config.yaml in the current directory wins, so running from the project
// dir uses the project's config.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	switch os.Args[1] {
	case "server":
		runServer()
	case "search":
		runSearch()
	case "upload":
		runUpload()
	case "delete":
		runDelete()
	case "sync":
		runSync()
	case "version", "--version", "-v":
		fmt.Printf("awase version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// Components holds the wired-up services behind the server.
type Components struct {
	Metadata   *metadata.Store
	Blobs      blob.Store
	Vectors    vectorstore.VectorStore
	Embedder   embedding.Embedder
	Pipeline   *pipeline.Pipeline
	Ingestor   *pipeline.Ingestor
	Search     *search.Service
	Reconciler *reconcile.Reconciler
}

func (c *Components) Close() {
	if c.Metadata != nil {
		_ = c.Metadata.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Vectors != nil {
		_ = c.Vectors.Close()
	}
}

func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	meta, err := metadata.Open(cfg.Metadata.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize metadata store: %w", err)
	}

	blobs, err := blob.NewDiskStore(cfg.Blob.RootDir)
	if err != nil {
		_ = meta.Close()
		return nil, fmt.Errorf("failed to initialize blob store: %w", err)
	}

	var vectors vectorstore.VectorStore
	if cfg.Qdrant.URL != "" {
		client, err := qdrant.New(qdrant.Config{
			URL:        cfg.Qdrant.URL,
			APIKey:     cfg.Qdrant.APIKey,
			Collection: cfg.Qdrant.Collection,
		})
		if err != nil {
			_ = meta.Close()
			return nil, fmt.Errorf("failed to initialize qdrant: %w", err)
		}
		if err := client.EnsureSchema(ctx); err != nil {
			_ = meta.Close()
			_ = client.Close()
			return nil, fmt.Errorf("failed to ensure qdrant schema: %w", err)
		}
		vectors = client
	} else {
		logger.Warn("no qdrant url configured, using in-memory vector store")
		vectors = memory.NewStore()
	}

	embedder := embedding.New(&cfg.Embedding, logger)

	encoder, err := sparse.NewEncoder(meta)
	if err != nil {
		_ = meta.Close()
		_ = vectors.Close()
		return nil, fmt.Errorf("failed to initialize sparse encoder: %w", err)
	}

	p := pipeline.New(embedder, encoder, vectors, cfg.Pipeline, logger)
	ingestor := pipeline.NewIngestor(p, blobs, meta, logger)
	searchSvc := search.NewService(embedder, encoder, vectors, cfg.Search, logger)
	reconciler := reconcile.New(meta, blobs, vectors, p, logger)

	return &Components{
		Metadata:   meta,
		Blobs:      blobs,
		Vectors:    vectors,
		Embedder:   embedder,
		Pipeline:   p,
		Ingestor:   ingestor,
		Search:     searchSvc,
		Reconciler: reconciler,
	}, nil
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	var watchSvc *watcher.Service
	if len(cfg.Watch.Directories) > 0 {
		watchSvc = watcher.NewService(cfg.Watch.Directories, cfg.Watch.Extensions, components.Ingestor, logger)
		if err := watchSvc.Start(ctx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		defer watchSvc.Stop()
	}

	srv := server.NewServer(
		components.Search,
		components.Ingestor,
		components.Reconciler,
		components.Metadata,
		&cfg.Server,
		logger,
	)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	userID := fs.String("user", "", "user id (required)")
	mode := fs.String("mode", "hybrid", "search mode: dense, sparse, or hybrid")
	limit := fs.Int("limit", 10, "number of results")
	outputJSON := fs.Bool("json", false, "print raw JSON response")
	_ = fs.Parse(os.Args[2:])

	query := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if *userID == "" || query == "" {
		fmt.Fprintln(os.Stderr, "Usage: awase search --user <id> [flags] <query>")
		os.Exit(1)
	}

	req := search.Request{UserID: *userID, Query: query, Mode: *mode, Limit: *limit}
	body, _ := json.Marshal(req)
	data, err := postJSON(*serverURL+"/api/v1/search", body)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}

	if *outputJSON {
		fmt.Println(string(data))
		return
	}
	var resp search.Response
	if err := json.Unmarshal(data, &resp); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid response: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("%d result(s) [%s, %dms]\n", resp.Total, resp.Mode, resp.QueryTime)
	for i, r := range resp.Results {
		fmt.Printf("%2d. %.4f  %s\n", i+1, r.Score, r.Title)
		if r.Text != "" {
			fmt.Printf("    %s\n", utils.Summary(r.Text, 120))
		}
	}
}

func runUpload() {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	userID := fs.String("user", "", "user id (required)")
	_ = fs.Parse(os.Args[2:])

	if *userID == "" || fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: awase upload --user <id> <file> [file...]")
		os.Exit(1)
	}

	for _, path := range fs.Args() {
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read %s: %v\n", path, err)
			os.Exit(1)
		}
		respData, err := uploadFile(*serverURL, *userID, filepath.Base(path), data)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Upload of %s failed: %v\n", path, err)
			os.Exit(1)
		}
		fmt.Printf("%s: %s\n", filepath.Base(path), string(respData))
	}
}

func runDelete() {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	userID := fs.String("user", "", "user id (required)")
	_ = fs.Parse(os.Args[2:])

	if *userID == "" || fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: awase delete --user <id> <file-name>")
		os.Exit(1)
	}

	endpoint := fmt.Sprintf("%s/api/v1/files?user_id=%s&file_name=%s",
		*serverURL, url.QueryEscape(*userID), url.QueryEscape(fs.Arg(0)))
	req, _ := http.NewRequest(http.MethodDelete, endpoint, nil)
	data, err := doRequest(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Delete failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(data))
}

func runSync() {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	userID := fs.String("user", "", "user id (required)")
	repair := fs.Bool("repair", false, "apply repairs instead of reporting")
	dryRun := fs.Bool("dry-run", true, "with --repair, plan actions without applying them")
	_ = fs.Parse(os.Args[2:])

	if *userID == "" {
		fmt.Fprintln(os.Stderr, "Usage: awase sync --user <id> [--repair [--dry-run=false]]")
		os.Exit(1)
	}

	var data []byte
	var err error
	if *repair {
		body, _ := json.Marshal(map[string]interface{}{"user_id": *userID, "dry_run": *dryRun})
		data, err = postJSON(*serverURL+"/api/v1/sync/repair", body)
	} else {
		endpoint := fmt.Sprintf("%s/api/v1/sync/report?user_id=%s", *serverURL, url.QueryEscape(*userID))
		req, _ := http.NewRequest(http.MethodGet, endpoint, nil)
		data, err = doRequest(req)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Sync failed: %v\n", err)
		os.Exit(1)
	}

	var pretty bytes.Buffer
	if json.Indent(&pretty, data, "", "  ") == nil {
		fmt.Println(pretty.String())
	} else {
		fmt.Println(string(data))
	}
}

func postJSON(endpoint string, body []byte) ([]byte, error) {
	req, err := http.NewRequest(http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return doRequest(req)
}

func uploadFile(serverURL, userID, fileName string, data []byte) ([]byte, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("user_id", userID); err != nil {
		return nil, err
	}
	fw, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(data); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPost, serverURL+"/api/v1/files", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return doRequest(req)
}

func doRequest(req *http.Request) ([]byte, error) {
	client := &http.Client{Timeout: 120 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return data, nil
}

func printUsage() {
	fmt.Println(`awase - Hybrid vector search over user files

Usage:
  awase server [flags]                 Start the HTTP server
  awase search --user <id> <query>     Search a user's documents
  awase upload --user <id> <file>...   Upload and embed files
  awase delete --user <id> <file-name> Delete a file everywhere
  awase sync --user <id> [--repair]    Reconcile the three stores
  awase version                        Show version
  awase help                           Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/awase/config.yaml)
  --debug            Enable debug logging

Client Flags (search/upload/delete/sync):
  --server string    Server URL (default: http://localhost:8080)
  --user string      User id owning the documents (required)

Search Flags:
  --mode string      dense, sparse, or hybrid (default: hybrid)
  --limit int        Number of results (default: 10)
  --json             Print the raw JSON response

Sync Flags:
  --repair           Apply repairs instead of reporting
  --dry-run          With --repair, plan without applying (default: true)

Examples:
  awase server --debug
  awase upload --user alice report.pdf notes.txt
  awase search --user alice "quarterly revenue"
  awase search --user alice --mode sparse "exact keywords"
  awase sync --user alice
  awase sync --user alice --repair --dry-run=false`)
}
