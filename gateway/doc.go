// Package gateway runs one UDP receive loop per configured source.
//
// Each loop decodes datagrams with a per-source packet.Decoder, tracks the
// source's SessionContext and liveness state, and hands enriched Records to
// every registered Publisher. Publishers must not block: the loop never waits
// on downstream consumers, and a bad datagram is counted and skipped.
//
// Liveness follows INACTIVE -> ACTIVE on the first decoded record,
// ACTIVE -> STALE after the stale timeout without records, and
// STALE -> ACTIVE on the next record. A source whose socket fails to bind is
// FAILED for the life of the gateway; other sources are unaffected.
//
// SessionContext is owned by its loop. Other goroutines read immutable
// SessionSummary snapshots through Gateway.Session.
package gateway
