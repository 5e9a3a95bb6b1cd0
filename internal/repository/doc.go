// Package repository defines the persistence interfaces for waypoint.
//
// KVStore is the durable string get/set/remove contract the endpoint cache and
// the manual override are stored through. HistoryStore keeps the hosts that
// passed a health check, newest first, so the static host list can be ranked
// by how recently each entry worked.
//
// # Implementations
//
// The sqlite subpackage persists both to a single SQLite file (WAL mode) that
// survives process restarts. The memory subpackage is a map-backed Store used
// in tests and when no database path is configured.
package repository
