// Package config handles configuration loading for simplevista.
//
// # Overview
//
// Configuration is loaded from YAML or TOML files with environment variable
// expansion. Empty fields receive defaults and the result is validated.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from SIMPLEVISTA_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/simplevista/config.yaml
//  3. ~/.config/simplevista/config.yaml
//
// Files ending in .toml are decoded as TOML; anything else as YAML. When no
// file exists, LoadOrDefault returns Default().
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	backend:
//	  project_key: "${SIMPLEVISTA_PROJECT_KEY}"
//
// Unset variables expand to the empty string, which then picks up the default.
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	backend:
//	  timeout: "30s"
//
// A zero timeout means webhook calls are bounded only by the request context.
//
// # Sections
//
//	server:
//	  http_addr: "localhost:8080"
//	  base_path: "/simplevista/"
//	  allowed_origins: ["https://admin.example.com"]
//	tailscale:
//	  enabled: false
//	  hostname: "simplevista"
//	database:
//	  path: "~/.local/share/simplevista/simplevista.db"
//	backend:
//	  project_key: "0c2d1184a2d57952e266b0810d683ad7"
//	  query_url: "https://n8n.ridaflows.com/webhook/endpoint"
//	  chat_url: "https://n8n.ridaflows.com/webhook/ratatouille-chat"
//	  strict_status: false
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//	metrics:
//	  enabled: false
//	  path: "/metrics"
package config
