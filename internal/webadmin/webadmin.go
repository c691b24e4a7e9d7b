// ABOUTME: Admin web UI package for simplevista
// ABOUTME: Serves the routed console views and the query/chat API over the gateway client

package webadmin

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/cors"

	"github.com/2389/simplevista/internal/gateway"
	"github.com/2389/simplevista/internal/router"
	"github.com/2389/simplevista/internal/session"
	"github.com/2389/simplevista/internal/store"
)

// chatHistoryLimit is how many transcript lines the home view shows.
const chatHistoryLimit = 50

// Gateway is the subset of the webhook client used by the UI.
type Gateway interface {
	DoQuery(ctx context.Context, query string) (json.RawMessage, error)
	SubmitChatMessage(ctx context.Context, message string) (*gateway.ChatResponse, error)
}

// Store holds per-browser local storage and chat transcripts.
type Store interface {
	store.ChatStore
	LocalStorage(namespace string) *store.LocalStorage
}

// Config holds admin UI configuration
type Config struct {
	// BasePath is the URL prefix the console is served under, e.g. "/simplevista/"
	BasePath string

	// AllowedOrigins lists origins permitted to call the JSON API cross-site
	AllowedOrigins []string
}

// NewConfig holds all dependencies for creating an Admin
type NewConfig struct {
	Gateway Gateway
	Store   Store
	Routes  *router.Table
	Config  Config
	Logger  *slog.Logger
}

// Admin handles the console routes
type Admin struct {
	gateway   Gateway
	store     Store
	routes    *router.Table
	config    Config
	logger    *slog.Logger
	templates *templates
}

// New creates a new Admin handler
func New(cfg NewConfig) *Admin {
	if cfg.Routes == nil {
		cfg.Routes = router.Default()
	}
	if cfg.Config.BasePath == "" {
		cfg.Config.BasePath = router.DefaultBasePath
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Admin{
		gateway:   cfg.Gateway,
		store:     cfg.Store,
		routes:    cfg.Routes,
		config:    cfg.Config,
		logger:    logger.With("component", "webadmin"),
		templates: mustParseTemplates(),
	}
}

// BasePath returns the normalized base path, always with a trailing slash.
func (a *Admin) BasePath() string {
	return router.JoinBase(a.config.BasePath, "/")
}

// path joins a relative path onto the base path.
func (a *Admin) path(rel string) string {
	return a.BasePath() + strings.TrimPrefix(rel, "/")
}

// RegisterRoutes registers all console routes on the given mux
func (a *Admin) RegisterRoutes(mux *http.ServeMux) {
	base := a.BasePath()

	// Routed views
	for _, route := range a.routes.Routes() {
		pattern := "GET " + router.JoinBase(base, route.Path)
		if route.Path == "/" {
			pattern += "{$}"
		}
		mux.Handle(pattern, a.withCredentials(a.handleView(route.View)))
	}

	// Everything else under the base path is unknown
	mux.Handle("GET "+base, a.withCredentials(http.HandlerFunc(a.handleNotFound)))

	// Static assets
	static, _ := fs.Sub(staticFS, "static")
	mux.Handle("GET "+a.path("static/"), http.StripPrefix(a.path("static/"), http.FileServerFS(static)))

	// HTML partials (htmx)
	mux.Handle("POST "+a.path("chat/send"), a.requireCSRF(a.withCredentials(http.HandlerFunc(a.handleChatSend))))
	mux.Handle("POST "+a.path("query/run"), a.requireCSRF(a.withCredentials(http.HandlerFunc(a.handleQueryRun))))

	// JSON API
	withCORS := a.corsMiddleware()
	mux.Handle("POST "+a.path("api/query"), withCORS(a.protectAPI(a.withCredentials(http.HandlerFunc(a.handleAPIQuery)))))
	mux.Handle("POST "+a.path("api/chat"), withCORS(a.protectAPI(a.withCredentials(http.HandlerFunc(a.handleAPIChat)))))
	mux.Handle("OPTIONS "+a.path("api/"), withCORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})))
}

// corsMiddleware builds the CORS handler for the JSON API.
// With no allowed origins the API stays same-origin only.
func (a *Admin) corsMiddleware() func(http.Handler) http.Handler {
	if len(a.config.AllowedOrigins) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   a.config.AllowedOrigins,
		AllowedMethods:   []string{http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}

// withCredentials copies the adminUserKey cookie into the request context
func (a *Admin) withCredentials(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := strings.Join(r.Header.Values("Cookie"), "; ")
		key := session.AdminUserKeyFromCookieHeader(header)
		next.ServeHTTP(w, r.WithContext(session.WithAdminUserKey(r.Context(), key)))
	})
}

// reader returns the identity reader for the browser that sent r
func (a *Admin) reader(r *http.Request) *session.Reader {
	key := session.AdminUserKeyFromContext(r.Context())
	return session.NewReader(a.store.LocalStorage(key), session.ContextCredentials{})
}

// currentAdmin reads the stored admin user, or nil when the record is unreadable
func (a *Admin) currentAdmin(r *http.Request) *session.AdminUser {
	user, err := a.reader(r).AdminUser(r.Context())
	if err != nil {
		a.logger.Debug("no readable admin user", "error", err)
		return nil
	}
	return user
}

// handleView renders one routed view
func (a *Admin) handleView(view router.View) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r = a.ensureCSRFToken(w, r)
		data := a.pageData(r, view)
		if view == router.Home {
			data.Chat = chatLog{Lines: a.chatHistory(r)}
		}
		a.render(w, http.StatusOK, view, data)
	})
}

// handleNotFound renders the 404 page for unknown paths under the base
func (a *Admin) handleNotFound(w http.ResponseWriter, r *http.Request) {
	data := a.pageData(r, "")
	data.Title = "Not Found"
	a.render(w, http.StatusNotFound, "", data)
}

// apiQueryRequest is the body of POST api/query
type apiQueryRequest struct {
	Query string `json:"query"`
}

// apiChatRequest is the body of POST api/chat
type apiChatRequest struct {
	Message string `json:"message"`
}

// handleAPIQuery forwards a query to the query webhook and relays its JSON reply
func (a *Admin) handleAPIQuery(w http.ResponseWriter, r *http.Request) {
	var req apiQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	result, err := a.gateway.DoQuery(r.Context(), req.Query)
	if err != nil {
		a.writeGatewayError(w, "query", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result)
}

// handleAPIChat forwards a chat message and returns the AI reply as JSON
func (a *Admin) handleAPIChat(w http.ResponseWriter, r *http.Request) {
	var req apiChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	resp, err := a.chat(r, req.Message)
	if err != nil {
		a.writeGatewayError(w, "chat", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// gatewayErrorStatus maps a gateway failure onto an HTTP status.
// Only an expired deadline is distinguished; bad replies and transport failures are 502.
func gatewayErrorStatus(err error) int {
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return http.StatusBadGateway
}

// writeGatewayError logs a failed webhook call and writes a JSON error
func (a *Admin) writeGatewayError(w http.ResponseWriter, op string, err error) {
	a.logger.Warn("webhook call failed", "op", op, "error", err)
	sendJSONError(w, gatewayErrorStatus(err), "upstream "+op+" failed")
}

// sendJSONError writes a JSON error response
func sendJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
