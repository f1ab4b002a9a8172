// Package core provides editing sessions over the grid engine.
//
// This package has no UI or transport dependencies. It can be used by web
// handlers, CLI tools, or tests without modification.
//
// # Architecture
//
//   - Table Definitions: registered at init time, each names its columns,
//     row schema, identity column and database mapping.
//   - Service: the entry point for all operations (open, edit, paste, save).
//   - Session: one engine table plus a mutex. The engine is single-threaded;
//     the session lock serializes every call into it.
//
// # Table Registry
//
// Tables are registered at init time using [Register]:
//
//	core.Register(TableDefinition{
//	    Info: TableInfo{Key: "vocabulary", Group: "Vocabulary", Label: "Words"},
//	    Columns: []grid.Column{
//	        {ID: "id", Type: grid.CellNumber, ReadOnly: true},
//	        {ID: "term", Type: grid.CellText, Required: true},
//	    },
//	    IdentityColumn: "id",
//	})
//
// # Saving
//
// [Service.Save] prepares the save under the session lock, releases the lock
// while the [Store] call runs, then finishes the save under the lock again.
// Edits made in between stay dirty. Concurrent saves across sessions are
// bounded by a [SaveLimiter].
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - GRID001-GRID008: Engine errors (validation, read-only, missing rows)
//   - SES001-SES006: Session errors (expired, busy, paste too large)
//   - DB001-DB009: Database errors (duplicates, constraints, connections)
//   - REQ001-REQ003: Request errors (cancelled, timeout, malformed)
package core
