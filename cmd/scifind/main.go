// Package main is the SciFind CLI entry point.
package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/trihuynhnhut0107/SciFind/internal/config"
	"github.com/trihuynhnhut0107/SciFind/internal/ingest"
	"github.com/trihuynhnhut0107/SciFind/internal/models"
	"github.com/trihuynhnhut0107/SciFind/internal/ranker"
	"github.com/trihuynhnhut0107/SciFind/internal/search"
	"github.com/trihuynhnhut0107/SciFind/internal/server"
	"github.com/trihuynhnhut0107/SciFind/internal/store"
	"github.com/trihuynhnhut0107/SciFind/internal/suggest"
	"github.com/trihuynhnhut0107/SciFind/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/scifind/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used. Returns the config and the path that was actually loaded.
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
	case "suggest":
		runSuggest()
	case "get":
		runGet()
	case "index":
		runIndex()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("scifind version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`Usage: scifind <command> [flags]

Commands:
  server    Run the search API server
  search    Search papers via a running server
  suggest   Fetch suggestions via a running server
  get       Fetch one paper by id via a running server
  index     Ingest papers from a JSON-lines file via a running server
  status    Show server status
  version   Print version
  help      Show this help
`)
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
		zap.Bool("debug", debugMode),
	)

	paperStore, err := store.NewPaperStore(cfg.Storage.DatabasePath, cfg.Storage.BleveIndexPath)
	if err != nil {
		logger.Fatal("Failed to open paper store", zap.Error(err))
	}
	defer paperStore.Close()

	modelClient := ranker.NewClient(&cfg.Model, logger)
	engine := search.NewEngine(paperStore, modelClient, &cfg.Search, logger)
	suggester := suggest.NewAggregator(paperStore)
	ingestor := ingest.NewIngestor(paperStore, logger)

	srv := server.NewServer(engine, suggester, modelClient, paperStore, ingestor, cfg, logger)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8000", "server URL")
	limit := fs.Int("limit", 10, "results per page")
	page := fs.Int("page", 1, "page number")
	sortBy := fs.String("sort", "relevance", "sort field: relevance, date, or title")
	sortOrder := fs.String("order", "desc", "sort order: asc or desc")
	categories := fs.String("categories", "", "comma-separated category filter")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: scifind search [flags] <query>")
		os.Exit(1)
	}
	term := strings.TrimSpace(strings.Join(fs.Args(), " "))

	req := models.SearchRequest{
		SearchTerm: term,
		Page:       page,
		Limit:      limit,
		SortBy:     *sortBy,
		SortOrder:  *sortOrder,
	}
	if *categories != "" {
		req.Filters.Categories = models.SplitList(*categories)
	}

	var resp models.SearchResponse
	if err := postJSON(*serverURL+"/api/v1/papers/search", req, &resp); err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("%d results (model used: %v)\n", resp.Total, resp.ModelUsed)
	for i, r := range resp.Results {
		fmt.Printf("%2d. [%.3f] %s (%s)\n", resp.Pagination.Limit*(resp.Pagination.Page-1)+i+1,
			r.CombinedScore, r.Title, r.ID)
	}
}

func runSuggest() {
	fs := flag.NewFlagSet("suggest", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8000", "server URL")
	types := fs.String("types", "", "comma-separated suggestion types: title, category, author")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: scifind suggest [flags] <term>")
		os.Exit(1)
	}
	term := strings.TrimSpace(strings.Join(fs.Args(), " "))

	u := *serverURL + "/api/v1/suggestions?term=" + url.QueryEscape(term)
	if *types != "" {
		u += "&types=" + url.QueryEscape(*types)
	}

	var suggestions []models.Suggestion
	if err := getJSON(u, &suggestions); err != nil {
		fmt.Fprintf(os.Stderr, "Suggest failed: %v\n", err)
		os.Exit(1)
	}
	for _, s := range suggestions {
		fmt.Printf("%-10s %s (%d)\n", s.Type, s.Value, s.Count)
	}
}

func runGet() {
	fs := flag.NewFlagSet("get", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8000", "server URL")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: scifind get [flags] <paper-id>")
		os.Exit(1)
	}

	var paper models.Paper
	if err := getJSON(*serverURL+"/api/v1/papers/"+url.PathEscape(fs.Arg(0)), &paper); err != nil {
		fmt.Fprintf(os.Stderr, "Get failed: %v\n", err)
		os.Exit(1)
	}
	out, _ := json.MarshalIndent(paper, "", "  ")
	fmt.Println(string(out))
}

func runIndex() {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8000", "server URL")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: scifind index [flags] <papers.jsonl>")
		os.Exit(1)
	}

	f, err := os.Open(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Index failed: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1024*1024), 16*1024*1024)
	count := 0
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		var paper models.Paper
		if err := json.Unmarshal([]byte(raw), &paper); err != nil {
			fmt.Fprintf(os.Stderr, "line %d: parse failed: %v\n", line, err)
			os.Exit(1)
		}
		var created struct {
			ID string `json:"id"`
		}
		if err := postJSON(*serverURL+"/api/v1/papers", paper, &created); err != nil {
			fmt.Fprintf(os.Stderr, "line %d: ingest failed: %v\n", line, err)
			os.Exit(1)
		}
		count++
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Index failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Indexed %d papers\n", count)
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8000", "server URL")
	_ = fs.Parse(os.Args[2:])

	var status map[string]interface{}
	if err := getJSON(*serverURL+"/status", &status); err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}
	out, _ := json.MarshalIndent(status, "", "  ")
	fmt.Println(string(out))
}

func postJSON(u string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	resp, err := http.Post(u, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeResponse(resp, out)
}

func getJSON(u string, out interface{}) error {
	resp, err := http.Get(u)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeResponse(resp, out)
}

func decodeResponse(resp *http.Response, out interface{}) error {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
