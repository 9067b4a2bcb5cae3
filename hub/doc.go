// Package hub fans gateway records out to live subscribers.
//
// Sources publish into a per-source drop-oldest input queue. On every tick
// the hub drains it and, per source, either forwards the records as they
// arrived or, when a source produced more than the coalesce threshold within
// the tick, sends one snapshot holding the latest record of each packet type.
// Status records are always forwarded individually.
//
// Each Subscriber owns a bounded drop-oldest queue: a slow reader loses its
// oldest messages and never holds up the hub or other subscribers. A new
// subscriber first receives a snapshot of every ACTIVE source its filter
// matches.
//
// Server exposes subscribers over WebSocket.
package hub
