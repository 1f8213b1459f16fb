// Package journal persists navigation events.
//
// A Recorder turns engine events into Entries and groups them into trips:
// each SignalStarted opens a trip with a fresh id and the next terminal
// signal closes it. Entries go to a Store, either the SQLite store used in
// production or the in-memory store used in tests and database-less runs.
package journal
