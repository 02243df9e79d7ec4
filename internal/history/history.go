// Package history provides storage backends for run records.
//
// Every backend implements api.RunHistory. The in-memory store is the
// default; the SQLite and Postgres stores persist records across process
// restarts and share one schema shape.
package history
