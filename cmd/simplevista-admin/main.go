// ABOUTME: Admin CLI for the simplevista console
// ABOUTME: Runs queries and chat against the n8n webhooks and manages the stored admin session

package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"github.com/2389/simplevista/internal/config"
	"github.com/2389/simplevista/internal/gateway"
	"github.com/2389/simplevista/internal/logging"
	"github.com/2389/simplevista/internal/router"
	"github.com/2389/simplevista/internal/session"
	"github.com/2389/simplevista/internal/store"
)

const banner = `
     _                 _          _     _                  _           _
 ___(_)_ __ ___  _ __ | | _____  _(_)___| |_ __ _      __ _| |_ __ ___ (_)_ __
/ __| | '_ ' _ \| '_ \| |/ _ \ \ / / / __| __/ _' |___ / _' | | '_ ' _ \| | '_ \
\__ \ | | | | | | |_) | |  __/\ V /| \__ \ || (_| |___| (_| | | | | | | | | | | |
|___/_|_| |_| |_| .__/|_|\___| \_/ |_|___/\__\__,_|    \__,_|_|_| |_| |_|_|_| |_|
                |_|
`

// app carries what every command needs.
type app struct {
	cfg *config.Config
	key string
	out io.Writer
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	// A missing .env file is fine
	_ = godotenv.Load()

	cfg, err := config.LoadOrDefault(config.Path())
	if err != nil {
		color.Red("Error: loading config: %v\n", err)
		os.Exit(1)
	}
	logging.Setup(cfg.Logging, os.Stderr)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a := &app{cfg: cfg, key: getAdminUserKey(), out: os.Stdout}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "me":
		err = a.cmdMe(ctx)
	case "status":
		err = a.cmdStatus(ctx)
	case "query":
		err = a.cmdQuery(ctx, args)
	case "chat":
		err = a.cmdChat(ctx, args, os.Stdin)
	case "session":
		err = a.cmdSession(ctx, args)
	case "routes":
		err = a.cmdRoutes()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)

	cyan.Print(banner)
	fmt.Println()
	fmt.Println("Usage: simplevista-admin <command> [args]")
	fmt.Println()
	yellow.Println("Commands:")
	fmt.Println("  me                                    Show the stored admin user")
	fmt.Println("  status                                Show server health and your identity")
	fmt.Println("  query <query...>                      Run a query against the query webhook")
	fmt.Println("  chat [message...]                     Chat with the AI (REPL if no message)")
	fmt.Println("  session set --user <file> --key <key> Store an admin user record and key")
	fmt.Println("  session clear                         Remove the stored admin user and key")
	fmt.Println("  routes                                List the console routes")
	fmt.Println()
	yellow.Println("Environment:")
	fmt.Println("  SIMPLEVISTA_ADMIN_USER_KEY  Admin credential")
	fmt.Println("  SIMPLEVISTA_COOKIE          Cookie header carrying adminUserKey")
	fmt.Println("  SIMPLEVISTA_CONFIG          Config file path")
	fmt.Println()
	yellow.Println("Examples:")
	fmt.Println("  simplevista-admin session set --user admin.json --key 3f9c...")
	fmt.Println("  simplevista-admin query 'select * from clients limit 5'")
	fmt.Println("  simplevista-admin chat how many providers signed up this week?")
	fmt.Println()
}

// tokenPath returns the file holding the admin credential for CLI use.
func tokenPath() string {
	return filepath.Join(config.Dir(), "token")
}

// getAdminUserKey resolves the credential from the environment, a cookie
// header, or the token file, in that order.
func getAdminUserKey() string {
	if key := os.Getenv("SIMPLEVISTA_ADMIN_USER_KEY"); key != "" {
		return key
	}

	if cookie := os.Getenv("SIMPLEVISTA_COOKIE"); cookie != "" {
		if key := session.AdminUserKeyFromCookieHeader(cookie); key != "" {
			return key
		}
	}

	data, err := os.ReadFile(tokenPath())
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// requireKey fails commands that need the credential when none is configured.
func (a *app) requireKey() error {
	if a.key == "" {
		return fmt.Errorf("no admin key: set SIMPLEVISTA_ADMIN_USER_KEY or run 'session set'")
	}
	return nil
}

// newGateway builds a webhook client using the CLI credential.
func (a *app) newGateway() *gateway.Client {
	return gateway.New(
		gateway.Config{
			ProjectKey:   a.cfg.Backend.ProjectKey,
			QueryURL:     a.cfg.Backend.QueryURL,
			ChatURL:      a.cfg.Backend.ChatURL,
			StrictStatus: a.cfg.Backend.StrictStatus,
		},
		session.StaticCredentials(a.key),
		gateway.WithHTTPClient(&http.Client{Timeout: a.cfg.Backend.Timeout}),
		gateway.WithLogger(slog.Default().With("component", "gateway")),
	)
}

// openStorage opens the local storage namespace of the CLI credential.
func (a *app) openStorage() (*store.SQLiteStore, *store.LocalStorage, error) {
	s, err := store.NewSQLiteStore(a.cfg.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}
	return s, s.LocalStorage(a.key), nil
}

// cmdMe shows the stored admin user
func (a *app) cmdMe(ctx context.Context) error {
	if err := a.requireKey(); err != nil {
		return err
	}

	s, ls, err := a.openStorage()
	if err != nil {
		return err
	}
	defer s.Close()

	user, err := session.NewReader(ls, session.StaticCredentials(a.key)).AdminUser(ctx)
	if err != nil {
		return fmt.Errorf("reading admin user: %w", err)
	}

	printAdminUser(a.out, user)
	return nil
}

func printAdminUser(w io.Writer, user *session.AdminUser) {
	green := color.New(color.FgGreen)
	cyan := color.New(color.FgCyan)

	fmt.Fprintln(w)
	cyan.Fprintln(w, "  Admin User")
	cyan.Fprintln(w, "  ----------")
	fmt.Fprintf(w, "  ID:             %d\n", user.ID)
	fmt.Fprintf(w, "  UUID:           %s\n", user.UUID)
	fmt.Fprintf(w, "  Name:           %s\n", user.DisplayName())
	fmt.Fprintf(w, "  Email:          %s\n", user.Email)
	if user.PhoneNumber != nil {
		fmt.Fprintf(w, "  Phone:          %s\n", *user.PhoneNumber)
	} else {
		fmt.Fprintf(w, "  Phone:          (none)\n")
	}
	green.Fprintf(w, "  Role:           %s\n", user.Role)
	if user.IsActive {
		fmt.Fprintf(w, "  Active:         yes\n")
	} else {
		color.New(color.FgYellow).Fprintf(w, "  Active:         no\n")
	}
	fmt.Fprintf(w, "  Created:        %s\n", user.CreatedAt)
	fmt.Fprintln(w)
}

// cmdStatus shows server health and identity
func (a *app) cmdStatus(ctx context.Context) error {
	cyan := color.New(color.FgCyan)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	cyan.Fprint(a.out, banner)
	fmt.Fprintln(a.out)

	addr := a.cfg.ServerAddr()
	if a.cfg.Tailscale.Enabled {
		addr += " (tailscale)"
	}
	if err := checkReady(ctx, a.cfg.HealthURL()); err != nil {
		yellow.Fprintf(a.out, "  Server:   ")
		color.New(color.FgRed).Fprintf(a.out, "UNREACHABLE at %s (%v)\n", addr, err)
	} else {
		green.Fprintf(a.out, "  Server:   ")
		fmt.Fprintf(a.out, "ready at %s\n", addr)
	}

	green.Fprintf(a.out, "  Query:    ")
	fmt.Fprintln(a.out, a.cfg.Backend.QueryURL)
	green.Fprintf(a.out, "  Chat:     ")
	fmt.Fprintln(a.out, a.cfg.Backend.ChatURL)

	if a.key == "" {
		yellow.Fprintf(a.out, "  Identity: ")
		fmt.Fprintln(a.out, "(no key - set SIMPLEVISTA_ADMIN_USER_KEY)")
		fmt.Fprintln(a.out)
		return nil
	}

	s, ls, err := a.openStorage()
	if err != nil {
		return err
	}
	defer s.Close()

	user, err := session.NewReader(ls, nil).AdminUser(ctx)
	if err != nil {
		yellow.Fprintf(a.out, "  Identity: ")
		fmt.Fprintln(a.out, "(no stored admin user)")
	} else {
		green.Fprintf(a.out, "  Identity: ")
		fmt.Fprintf(a.out, "%s (%s)\n", user.DisplayName(), user.Role)
	}
	fmt.Fprintln(a.out)
	return nil
}

func checkReady(ctx context.Context, url string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}

// cmdQuery runs DoQuery and pretty-prints the result
func (a *app) cmdQuery(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: query <query...>")
	}

	result, err := a.newGateway().DoQuery(ctx, strings.Join(args, " "))
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, result, "", "  "); err != nil {
		return fmt.Errorf("formatting result: %w", err)
	}
	fmt.Fprintln(a.out, pretty.String())
	return nil
}

// cmdChat sends one message, or runs a REPL when no message is given
func (a *app) cmdChat(ctx context.Context, args []string, in io.Reader) error {
	gw := a.newGateway()

	if len(args) > 0 {
		return a.chatOnce(ctx, gw, strings.Join(args, " "))
	}
	return a.chatREPL(ctx, gw, in)
}

func (a *app) chatOnce(ctx context.Context, gw *gateway.Client, message string) error {
	resp, err := gw.SubmitChatMessage(ctx, message)
	if err != nil {
		return fmt.Errorf("chat: %w", err)
	}
	fmt.Fprintln(a.out, resp.Text)
	return nil
}

// chatREPL runs an interactive read-eval-print loop
func (a *app) chatREPL(ctx context.Context, gw *gateway.Client, in io.Reader) error {
	green := color.New(color.FgGreen)
	cyan := color.New(color.FgCyan)

	cyan.Fprintf(a.out, "Chat with %s (Ctrl+D to exit)\n\n", a.cfg.Backend.ChatURL)

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), 1024*1024) // 1MB max input
	for {
		green.Fprint(a.out, "> ")
		if !scanner.Scan() {
			// EOF (Ctrl+D) or error
			fmt.Fprintln(a.out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if err := a.chatOnce(ctx, gw, line); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			continue
		}
		fmt.Fprintln(a.out)
	}
}

// cmdSession handles session subcommands
func (a *app) cmdSession(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: session set|clear")
	}

	switch args[0] {
	case "set":
		return a.cmdSessionSet(ctx, args[1:])
	case "clear":
		return a.cmdSessionClear(ctx)
	default:
		return fmt.Errorf("unknown session subcommand: %s (use set, clear)", args[0])
	}
}

// cmdSessionSet stores an admin user record under a key and remembers the key
func (a *app) cmdSessionSet(ctx context.Context, args []string) error {
	var userFile, key string

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--user", "-u":
			if i+1 >= len(args) {
				return fmt.Errorf("--user requires a value")
			}
			userFile = args[i+1]
			i++
		case "--key", "-k":
			if i+1 >= len(args) {
				return fmt.Errorf("--key requires a value")
			}
			key = args[i+1]
			i++
		default:
			return fmt.Errorf("unknown argument: %s", args[i])
		}
	}

	if userFile == "" {
		return fmt.Errorf("--user is required")
	}
	if key == "" {
		key = a.key
	}
	if key == "" {
		return fmt.Errorf("--key is required")
	}

	data, err := os.ReadFile(userFile)
	if err != nil {
		return fmt.Errorf("reading user file: %w", err)
	}

	a.key = key
	s, ls, err := a.openStorage()
	if err != nil {
		return err
	}
	defer s.Close()

	if err := session.NewWriter(ls).SaveRaw(ctx, data); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(tokenPath()), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(tokenPath(), []byte(key), 0600); err != nil {
		return fmt.Errorf("writing token file: %w", err)
	}

	green := color.New(color.FgGreen)
	green.Fprintf(a.out, "  ✓ Stored admin user from %s\n", userFile)
	green.Fprintf(a.out, "  ✓ Saved key: %s\n", tokenPath())
	return nil
}

// cmdSessionClear removes the stored admin user and the saved key
func (a *app) cmdSessionClear(ctx context.Context) error {
	if err := a.requireKey(); err != nil {
		return err
	}

	s, ls, err := a.openStorage()
	if err != nil {
		return err
	}
	defer s.Close()

	if err := session.NewWriter(ls).Clear(ctx); err != nil {
		return fmt.Errorf("clearing admin user: %w", err)
	}

	if err := os.Remove(tokenPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing token file: %w", err)
	}

	color.New(color.FgGreen).Fprintln(a.out, "  ✓ Session cleared")
	return nil
}

// cmdRoutes prints the sidebar navigation
func (a *app) cmdRoutes() error {
	cyan := color.New(color.FgCyan)
	fmt.Fprintln(a.out)
	cyan.Fprintln(a.out, "  Console Routes")
	cyan.Fprintln(a.out, "  --------------")

	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	for _, item := range router.Default().Sidebar() {
		fmt.Fprintf(w, "  %s %s\t%s\n", item.Icon, item.Name, router.JoinBase(a.cfg.Server.BasePath, item.Route))
	}
	w.Flush()
	fmt.Fprintln(a.out)
	return nil
}
