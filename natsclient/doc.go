// Package natsclient manages a single core NATS connection.
//
// Connect retries the initial dial with backoff; after that the nats.go
// client reconnects on its own and Client tracks the resulting status,
// reporting every transition through slog and an optional health callback.
// JetStream is not used: records are published fire-and-forget.
package natsclient
