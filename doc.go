// Package pitwall receives F1 game UDP telemetry from one or more simulator
// rigs and redistributes it.
//
// Each rig sends datagrams to its own UDP port. The gateway decodes them
// (2024 and 2025 packet formats), tracks per-rig liveness and session
// context, and hands normalized records to three consumers:
//
//   - hub: live distribution to WebSocket subscribers on a fixed tick,
//     with per-subscriber drop-oldest queues and join snapshots.
//   - upload: size/age/count batching to HTTP collector endpoints with
//     bearer tokens and exponential backoff.
//   - mirror: optional republishing of records to NATS subjects.
//
// The service package wires them together behind cmd/pitwall, and
// cmd/pitwall-sim generates synthetic traffic for load testing.
package pitwall
