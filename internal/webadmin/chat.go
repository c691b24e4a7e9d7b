// ABOUTME: Chat and query handlers that return htmx partials
// ABOUTME: Persists the chat transcript per browser and renders AI replies from Markdown

package webadmin

import (
	"bytes"
	"encoding/json"
	"html/template"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/yuin/goldmark"

	"github.com/2389/simplevista/internal/gateway"
	"github.com/2389/simplevista/internal/session"
	"github.com/2389/simplevista/internal/store"
)

// chatLine is one rendered transcript entry
type chatLine struct {
	Sender string
	HTML   template.HTML
	Time   time.Time
}

// chatLog is the data for the chat partials
type chatLog struct {
	Lines []chatLine
}

// chat sends message through the gateway and records both sides of the exchange
func (a *Admin) chat(r *http.Request, message string) (*gateway.ChatResponse, error) {
	ctx := r.Context()
	namespace := session.AdminUserKeyFromContext(ctx)

	a.saveChatMessage(r, &store.ChatMessage{Namespace: namespace, Sender: store.ChatSenderAdmin, Text: message})

	resp, err := a.gateway.SubmitChatMessage(ctx, message)
	if err != nil {
		return nil, err
	}

	a.saveChatMessage(r, &store.ChatMessage{Namespace: namespace, Sender: store.ChatSenderAI, Text: resp.Text})
	return resp, nil
}

// saveChatMessage records a transcript line; browsers without a credential keep no history
func (a *Admin) saveChatMessage(r *http.Request, msg *store.ChatMessage) {
	if msg.Namespace == "" {
		return
	}
	if err := a.store.SaveChatMessage(r.Context(), msg); err != nil {
		a.logger.Error("failed to save chat message", "error", err)
	}
}

// chatHistory loads the recent transcript of the requesting browser
func (a *Admin) chatHistory(r *http.Request) []chatLine {
	namespace := session.AdminUserKeyFromContext(r.Context())
	if namespace == "" {
		return nil
	}

	messages, err := a.store.ListChatMessages(r.Context(), namespace, chatHistoryLimit)
	if err != nil {
		a.logger.Error("failed to load chat history", "error", err)
		return nil
	}

	lines := make([]chatLine, 0, len(messages))
	for _, m := range messages {
		lines = append(lines, a.renderChatLine(m.Sender, m.Text, m.CreatedAt))
	}
	return lines
}

// renderChatLine converts AI text from Markdown; admin text is shown verbatim
func (a *Admin) renderChatLine(sender, text string, at time.Time) chatLine {
	line := chatLine{Sender: sender, Time: at}
	if sender != store.ChatSenderAI {
		line.HTML = template.HTML(template.HTMLEscapeString(text))
		return line
	}

	var htmlBuf bytes.Buffer
	if err := goldmark.Convert([]byte(text), &htmlBuf); err != nil {
		a.logger.Error("failed to convert markdown", "error", err)
		line.HTML = template.HTML(template.HTMLEscapeString(text))
		return line
	}
	line.HTML = template.HTML(htmlBuf.String())
	return line
}

// handleChatSend sends the form's message and returns the exchange (htmx partial)
func (a *Admin) handleChatSend(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	message := strings.TrimSpace(r.FormValue("message"))
	if message == "" {
		http.Error(w, "Message required", http.StatusBadRequest)
		return
	}

	now := time.Now()
	lines := []chatLine{a.renderChatLine(store.ChatSenderAdmin, message, now)}

	resp, err := a.chat(r, message)
	if err != nil {
		a.logger.Warn("webhook call failed", "op", "chat", "error", err)
		a.renderPartial(w, gatewayErrorStatus(err), "chat_error", chatLog{Lines: lines})
		return
	}

	lines = append(lines, a.renderChatLine(store.ChatSenderAI, resp.Text, now))
	a.renderPartial(w, http.StatusOK, "chat_messages", chatLog{Lines: lines})
}

// queryResult is the data for the query result partial
type queryResult struct {
	Columns []string
	Rows    [][]string
	Raw     string
}

// handleQueryRun runs the form's query and renders the reply (htmx partial)
func (a *Admin) handleQueryRun(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}

	raw, err := a.gateway.DoQuery(r.Context(), r.FormValue("query"))
	if err != nil {
		a.logger.Warn("webhook call failed", "op", "query", "error", err)
		a.renderPartial(w, gatewayErrorStatus(err), "query_error", nil)
		return
	}

	a.renderPartial(w, http.StatusOK, "query_result", buildQueryResult(raw))
}

// buildQueryResult tabulates an array of objects; any other shape is shown as indented JSON
func buildQueryResult(raw json.RawMessage) queryResult {
	var rows []map[string]any
	if err := json.Unmarshal(raw, &rows); err != nil || len(rows) == 0 {
		var pretty bytes.Buffer
		if err := json.Indent(&pretty, raw, "", "  "); err != nil {
			return queryResult{Raw: string(raw)}
		}
		return queryResult{Raw: pretty.String()}
	}

	seen := map[string]bool{}
	var columns []string
	for _, row := range rows {
		for k := range row {
			if !seen[k] {
				seen[k] = true
				columns = append(columns, k)
			}
		}
	}
	sort.Strings(columns)

	result := queryResult{Columns: columns, Rows: make([][]string, len(rows))}
	for i, row := range rows {
		cells := make([]string, len(columns))
		for j, col := range columns {
			cells[j] = formatCell(row[col])
		}
		result.Rows[i] = cells
	}
	return result
}

func formatCell(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
