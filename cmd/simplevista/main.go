// ABOUTME: Entry point for the simplevista console server
// ABOUTME: Serves the admin views and relays queries and chat to the n8n webhooks

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"github.com/2389/simplevista/internal/config"
	"github.com/2389/simplevista/internal/logging"
	"github.com/2389/simplevista/internal/router"
	"github.com/2389/simplevista/internal/server"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
     _                 _          _     _
 ___(_)_ __ ___  _ __ | | _____  _(_)___| |_ __ _
/ __| | '_ ' _ \| '_ \| |/ _ \ \ / / / __| __/ _' |
\__ \ | | | | | | |_) | |  __/\ V /| \__ \ || (_| |
|___/_|_| |_| |_| .__/|_|\___| \_/ |_|___/\__\__,_|
                |_|
`

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: simplevista <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve     Start the console server")
		fmt.Println("  init      Create a new config file interactively")
		fmt.Println("  health    Check server health")
		fmt.Println("  routes    List the console routes")
		os.Exit(1)
	}

	// A missing .env file is fine
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit(os.Stdin, os.Stdout)
	case "health":
		err = runHealth(ctx)
	case "routes":
		err = runRoutes(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := config.Path()

	// Print banner
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	// Version info
	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := logging.Setup(cfg.Logging, os.Stdout)

	// Startup info
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	green.Print("    ▶ ")
	fmt.Printf("Config:    %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("Database:  %s\n", cfg.Database.Path)
	if !cfg.Tailscale.Enabled {
		green.Print("    ▶ ")
		fmt.Printf("HTTP:      http://%s%s\n", cfg.Server.HTTPAddr, cfg.Server.BasePath)
	}

	// Tailscale status
	if cfg.Tailscale.Enabled {
		green.Print("    ▶ ")
		fmt.Printf("Tailscale: ")
		cyan.Print(cfg.Tailscale.Hostname)
		if cfg.Tailscale.Funnel {
			yellow.Print(" [funnel]")
		}
		if cfg.Tailscale.Ephemeral {
			gray.Print(" (ephemeral)")
		}
		fmt.Println()
	}

	green.Print("    ▶ ")
	fmt.Printf("Query:     %s\n", cfg.Backend.QueryURL)
	green.Print("    ▶ ")
	fmt.Printf("Chat:      %s\n", cfg.Backend.ChatURL)
	fmt.Println()

	logger.Info("starting simplevista",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
		"base_path", cfg.Server.BasePath,
	)

	srv, err := server.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	return srv.Run(ctx)
}

func runHealth(ctx context.Context) error {
	cfg, err := config.LoadOrDefault(config.Path())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := checkHealth(ctx, cfg.HealthURL()); err != nil {
		return err
	}

	fmt.Println("healthy")
	return nil
}

// checkHealth requires a 200 from the readiness endpoint at url.
func checkHealth(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

// runRoutes prints the sidebar and route table under the configured base path.
func runRoutes(w io.Writer) error {
	cfg, err := config.LoadOrDefault(config.Path())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	printRoutes(w, router.Default(), cfg.Server.BasePath)
	return nil
}

func printRoutes(w io.Writer, table *router.Table, base string) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tVIEW\tSIDEBAR")
	for _, route := range table.Routes() {
		label := ""
		for _, item := range table.Sidebar() {
			if item.Route == route.Path {
				label = item.Icon + " " + item.Name
				break
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", router.JoinBase(base, route.Path), route.View, label)
	}
	tw.Flush()
}

// initAnswers holds the values collected by runInit.
type initAnswers struct {
	HTTPAddr          string
	BasePath          string
	DatabasePath      string
	QueryURL          string
	ChatURL           string
	Timeout           string
	TailscaleEnabled  bool
	TailscaleHostname string
	TailscaleAuthKey  string
	TailscaleFunnel   bool
	LogLevel          string
	LogFormat         string
	MetricsEnabled    bool
}

func runInit(in io.Reader, out io.Writer) error {
	reader := bufio.NewReader(in)

	fmt.Fprintln(out, "simplevista configuration setup")
	fmt.Fprintln(out, "===============================")
	fmt.Fprintln(out)

	outputFile := prompt(reader, out, "Config file path", config.Path())

	// Check if file exists
	if _, err := os.Stat(outputFile); err == nil {
		if !isYes(prompt(reader, out, "File exists. Overwrite?", "no")) {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	var a initAnswers

	fmt.Fprintln(out, "\n--- Server Configuration ---")
	a.HTTPAddr = prompt(reader, out, "HTTP address", config.DefaultHTTPAddr)
	a.BasePath = prompt(reader, out, "Console base path", config.DefaultBasePath)

	fmt.Fprintln(out, "\n--- Database Configuration ---")
	a.DatabasePath = prompt(reader, out, "SQLite database path", filepath.Join(config.DataDir(), "simplevista.db"))

	fmt.Fprintln(out, "\n--- Backend Configuration ---")
	a.QueryURL = prompt(reader, out, "Query webhook URL", config.DefaultQueryURL)
	a.ChatURL = prompt(reader, out, "Chat webhook URL", config.DefaultChatURL)
	a.Timeout = prompt(reader, out, "Request timeout (empty for none)", "")

	fmt.Fprintln(out, "\n--- Tailscale Configuration ---")
	a.TailscaleEnabled = isYes(prompt(reader, out, "Enable Tailscale?", "no"))
	if a.TailscaleEnabled {
		a.TailscaleHostname = prompt(reader, out, "Tailscale hostname", "simplevista")
		a.TailscaleAuthKey = prompt(reader, out, "Tailscale auth key (leave empty to use TS_AUTHKEY)", "")
		a.TailscaleFunnel = isYes(prompt(reader, out, "Enable Funnel (public HTTPS)?", "no"))
	}

	fmt.Fprintln(out, "\n--- Logging Configuration ---")
	a.LogLevel = prompt(reader, out, "Log level (debug/info/warn/error)", "info")
	a.LogFormat = prompt(reader, out, "Log format (text/json)", "text")
	a.MetricsEnabled = isYes(prompt(reader, out, "Enable Prometheus metrics?", "no"))

	if err := os.MkdirAll(filepath.Dir(outputFile), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(outputFile, []byte(renderConfig(a)), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	// Catch typos before the first serve
	if _, err := config.Load(outputFile); err != nil {
		return fmt.Errorf("generated config is invalid: %w", err)
	}

	dataDir := filepath.Dir(a.DatabasePath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	fmt.Fprintf(out, "\nConfig written to %s\n", outputFile)
	fmt.Fprintf(out, "Data directory: %s\n", dataDir)
	fmt.Fprintln(out, "\nTo start the server:")
	fmt.Fprintln(out, "  simplevista serve")

	return nil
}

// renderConfig writes the answers as a YAML config file.
func renderConfig(a initAnswers) string {
	var cfg strings.Builder
	cfg.WriteString("# simplevista configuration\n")
	cfg.WriteString("# Generated by simplevista init\n\n")

	cfg.WriteString("server:\n")
	if !a.TailscaleEnabled {
		cfg.WriteString(fmt.Sprintf("  http_addr: %q\n", a.HTTPAddr))
	}
	cfg.WriteString(fmt.Sprintf("  base_path: %q\n", a.BasePath))
	cfg.WriteString("\n")

	cfg.WriteString("database:\n")
	cfg.WriteString(fmt.Sprintf("  path: %q\n", a.DatabasePath))
	cfg.WriteString("\n")

	cfg.WriteString("backend:\n")
	cfg.WriteString("  project_key: \"${SIMPLEVISTA_PROJECT_KEY}\"\n")
	cfg.WriteString(fmt.Sprintf("  query_url: %q\n", a.QueryURL))
	cfg.WriteString(fmt.Sprintf("  chat_url: %q\n", a.ChatURL))
	if a.Timeout != "" {
		cfg.WriteString(fmt.Sprintf("  timeout: %q\n", a.Timeout))
	}
	cfg.WriteString("  strict_status: false\n")
	cfg.WriteString("\n")

	cfg.WriteString("tailscale:\n")
	cfg.WriteString(fmt.Sprintf("  enabled: %t\n", a.TailscaleEnabled))
	if a.TailscaleEnabled {
		cfg.WriteString(fmt.Sprintf("  hostname: %q\n", a.TailscaleHostname))
		if a.TailscaleAuthKey != "" {
			cfg.WriteString(fmt.Sprintf("  auth_key: %q\n", a.TailscaleAuthKey))
		}
		cfg.WriteString(fmt.Sprintf("  funnel: %t\n", a.TailscaleFunnel))
	}
	cfg.WriteString("\n")

	cfg.WriteString("logging:\n")
	cfg.WriteString(fmt.Sprintf("  level: %q\n", a.LogLevel))
	cfg.WriteString(fmt.Sprintf("  format: %q\n", a.LogFormat))
	cfg.WriteString("\n")

	cfg.WriteString("metrics:\n")
	cfg.WriteString(fmt.Sprintf("  enabled: %t\n", a.MetricsEnabled))
	cfg.WriteString(fmt.Sprintf("  path: %q\n", config.DefaultMetricsPath))

	return cfg.String()
}

func isYes(s string) bool {
	s = strings.ToLower(s)
	return s == "yes" || s == "y"
}

func prompt(reader *bufio.Reader, out io.Writer, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Fprintf(out, "%s [%s]: ", question, defaultVal)
	} else {
		fmt.Fprintf(out, "%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil {
		// On EOF or error, return default
		fmt.Fprintln(out)
		return defaultVal
	}
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}
	return input
}
