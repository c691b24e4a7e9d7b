// Package webadmin provides the browser console for simplevista.
//
// # Overview
//
// The console serves one page per entry of the router table under a base path
// (default "/simplevista/"), each with the sidebar navigation and the name of the
// stored admin user. The home view hosts the chat assistant; the data views
// (admin users, users, clients, providers) host a query box.
//
// # Routes
//
//	GET  {base}                 home view (chat)
//	GET  {base}users            users view, likewise clients, providers, admin-users
//	GET  {base}static/...       embedded stylesheet
//	POST {base}chat/send        form "message" → chat lines (htmx partial)
//	POST {base}query/run        form "query" → result table (htmx partial)
//	POST {base}api/query        {"query": "..."} → webhook JSON, verbatim
//	POST {base}api/chat         {"message": "..."} → {"id", "type", "text", "timestamp"}
//
// Any other GET under the base renders a 404 page.
//
// # Identity
//
// Every route runs behind a middleware that copies the adminUserKey cookie into
// the request context. The gateway client reads the credential from there, and the
// cookie value also selects the browser's local storage namespace, from which the
// stored admin user is read. An unreadable record renders as "unknown admin".
//
// # Errors
//
// Malformed API bodies are rejected with 400. Failed webhook calls map to 502, or
// 504 when the request deadline expired. Errors are returned as {"error": "..."}.
//
// # CORS
//
// The JSON API honours server.allowed_origins through go-chi/cors, including
// preflight requests.
//
// # Templates
//
// Templates use Go's html/template and are embedded with //go:embed. AI chat
// replies are rendered from Markdown with goldmark; raw HTML in replies is not passed
// through.
package webadmin
