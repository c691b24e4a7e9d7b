// Package gateway is the client for the n8n webhooks that back the admin console.
//
// # Overview
//
// A Client exposes the two remote operations the console uses:
//
//   - DoQuery posts {"query": q} to the query webhook and returns the decoded JSON
//   - SubmitChatMessage posts {"message": m} to the chat webhook and returns a ChatResponse
//
// Both go through a single private doFetch helper that merges the caller's body
// with the fixed project key and the admin credential:
//
//	{"query": "...", "projectKey": "<project key>", "adminUserKey": "<cookie value or empty>"}
//
// The credential is read per call from the Client's session.CredentialSource. When no
// credential is present the field is sent as an empty string, never omitted.
//
// # Errors
//
// Transport failures are returned wrapped, so errors.Is works against the cause.
// A body that is not JSON, or a chat reply that fails its schema, yields a *DecodeError.
// Non-2xx responses are decoded like any other response unless Config.StrictStatus is set,
// in which case a *StatusError is returned instead.
//
// # Retries and timeouts
//
// There are none. Each operation issues exactly one POST; deadlines come from the
// caller's context or from the configured HTTP client.
//
// # Observability
//
// Every call is logged at debug level with a per-call ID, the endpoint, the response
// status and the duration. The credential is never logged. When Metrics are attached,
// each call is counted by operation and outcome and its latency observed.
package gateway
