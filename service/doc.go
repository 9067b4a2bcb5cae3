// Package service assembles a running pitwall process from one
// config.Config: the UDP gateway, the distribution hub and its WebSocket
// server, the optional upload pipeline and NATS mirror, and the ops HTTP
// server exposing /metrics, /health and /snapshot.
//
// Shutdown runs producer first: the gateway stops reading, then the hub,
// upload pipeline and mirror drain what they hold. The upload pipeline
// gives every open batch one final attempt.
package service
