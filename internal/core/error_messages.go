package core

// # Error Codes Reference
//
// This file maps technical errors to user-facing messages with codes for
// support reference. Users quote the code; support looks it up here.
//
// # Grid Errors (GRID001-GRID099)
//
//	GRID001 - Table misconfigured: no column or row schema
//	          Patterns: "no column schema or row schema"
//	GRID002 - Invalid rows: some rows failed validation
//	          Patterns: "rows failed validation"
//	GRID003 - Nothing to save
//	          Patterns: "no unsaved changes"
//	GRID004 - Save in progress
//	          Patterns: "save already in progress"
//	GRID005 - Read-only column
//	          Patterns: "column is read-only"
//	GRID006 - Identity column missing
//	          Patterns: "identity column not found"
//	GRID007 - Row not found
//	          Patterns: "row not found"
//	GRID008 - Column not found
//	          Patterns: "column not found"
//
// # Session Errors (SES001-SES099)
//
//	SES001 - Session expired or closed
//	         Patterns: "session not found"
//	SES002 - Too many saves in progress
//	         Patterns: "too many saves"
//	SES003 - Paste too large
//	         Patterns: "paste too large"
//	SES004 - Refresh needs an edit session
//	         Patterns: "requires an edit session"
//	SES005 - Unknown table
//	         Patterns: "unknown table"
//	SES006 - Invalid mode
//	         Patterns: "invalid mode"
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Duplicate key           Patterns: "duplicate key"
//	DB002 - Unique constraint       Patterns: "unique constraint", "violates unique"
//	DB003 - Foreign key             Patterns: "foreign key constraint", "violates foreign key"
//	DB004 - Connection refused      Patterns: "connection refused"
//	DB005 - Connection reset        Patterns: "connection reset"
//	DB006 - Timeout                 Patterns: "timeout"
//	DB007 - Deadlock                Patterns: "deadlock"
//	DB008 - Check constraint        Patterns: "violates check constraint"
//	DB009 - Record has no identity  Patterns: "missing identity"
//
// # Request Errors (REQ001-REQ099)
//
//	REQ001 - Request cancelled      Patterns: "context canceled"
//	REQ002 - Request timed out      Patterns: "context deadline exceeded"
//	REQ003 - Malformed request      Patterns: "invalid request body"
//
// # Default Error (ERR000)
//
// Fallback when no pattern matches. Check the application logs for the
// original technical error.
//
// Patterns are matched case-insensitively with strings.Contains. The first
// match wins, so specific patterns come before general ones.

import "strings"

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // What happened (user-friendly)
	Action  string `json:"action"`  // What to do about it
	Code    string `json:"code"`    // Error code for support reference
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// =========================================================================
	// Grid Errors (GRID001-GRID008)
	// =========================================================================
	{
		pattern: "no column schema or row schema",
		msg: UserMessage{
			Message: "This table is not configured for editing",
			Action:  "Contact support",
			Code:    "GRID001",
		},
	},
	{
		pattern: "rows failed validation",
		msg: UserMessage{
			Message: "Some rows have invalid values",
			Action:  "Fix the highlighted cells and save again",
			Code:    "GRID002",
		},
	},
	{
		pattern: "no unsaved changes",
		msg: UserMessage{
			Message: "There is nothing to save",
			Action:  "Edit or paste some rows first",
			Code:    "GRID003",
		},
	},
	{
		pattern: "save already in progress",
		msg: UserMessage{
			Message: "A save is already running for this table",
			Action:  "Wait for it to finish",
			Code:    "GRID004",
		},
	},
	{
		pattern: "column is read-only",
		msg: UserMessage{
			Message: "This column cannot be edited",
			Action:  "Edit a different column",
			Code:    "GRID005",
		},
	},
	{
		pattern: "identity column not found",
		msg: UserMessage{
			Message: "Rows cannot be matched without an ID column",
			Action:  "Click a cell before pasting to paste by position",
			Code:    "GRID006",
		},
	},
	{
		pattern: "row not found",
		msg: UserMessage{
			Message: "That row no longer exists",
			Action:  "Reload the table and try again",
			Code:    "GRID007",
		},
	},
	{
		pattern: "column not found",
		msg: UserMessage{
			Message: "That column does not exist",
			Action:  "Reload the table and try again",
			Code:    "GRID008",
		},
	},

	// =========================================================================
	// Session Errors (SES001-SES006)
	// =========================================================================
	{
		pattern: "session not found",
		msg: UserMessage{
			Message: "Editing session not found",
			Action:  "The session may have expired. Open the table again",
			Code:    "SES001",
		},
	},
	{
		pattern: "too many saves",
		msg: UserMessage{
			Message: "The system is busy saving other tables",
			Action:  "Please wait a moment and try again",
			Code:    "SES002",
		},
	},
	{
		pattern: "paste too large",
		msg: UserMessage{
			Message: "The pasted text is too large",
			Action:  "Paste fewer rows at a time",
			Code:    "SES003",
		},
	},
	{
		pattern: "requires an edit session",
		msg: UserMessage{
			Message: "Only tables opened for editing can be refreshed",
			Action:  "Open the table in edit mode",
			Code:    "SES004",
		},
	},
	{
		pattern: "unknown table",
		msg: UserMessage{
			Message: "Unknown table",
			Action:  "Pick a table from the list",
			Code:    "SES005",
		},
	},
	{
		pattern: "invalid mode",
		msg: UserMessage{
			Message: "Unknown editing mode",
			Action:  "Use create or edit",
			Code:    "SES006",
		},
	},

	// =========================================================================
	// Database Errors (DB001-DB009)
	// =========================================================================
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "A record with this ID already exists",
			Action:  "Remove the duplicate rows and save again",
			Code:    "DB001",
		},
	},
	{
		pattern: "unique constraint",
		msg: UserMessage{
			Message: "This value must be unique but already exists",
			Action:  "Check for duplicate entries",
			Code:    "DB002",
		},
	},
	{
		pattern: "violates unique",
		msg: UserMessage{
			Message: "A duplicate value was found",
			Action:  "Review your data for duplicate key values",
			Code:    "DB002",
		},
	},
	{
		pattern: "foreign key constraint",
		msg: UserMessage{
			Message: "Referenced record does not exist",
			Action:  "Create the referenced record first",
			Code:    "DB003",
		},
	},
	{
		pattern: "violates foreign key",
		msg: UserMessage{
			Message: "Referenced record does not exist",
			Action:  "Create the referenced record first",
			Code:    "DB003",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Save fewer rows at a time or try again later",
			Code:    "DB006",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB007",
		},
	},
	{
		pattern: "violates check constraint",
		msg: UserMessage{
			Message: "A value is outside the range the database accepts",
			Action:  "Review the edited values",
			Code:    "DB008",
		},
	},
	{
		pattern: "missing identity",
		msg: UserMessage{
			Message: "A row has no ID and cannot be updated",
			Action:  "Discard the row's changes and reload",
			Code:    "DB009",
		},
	},

	// =========================================================================
	// Request Errors (REQ001-REQ003)
	// =========================================================================
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "REQ001",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Please try again",
			Code:    "REQ002",
		},
	},
	{
		pattern: "invalid request body",
		msg: UserMessage{
			Message: "The request could not be read",
			Action:  "Reload the page and try again",
			Code:    "REQ003",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// It returns the first pattern match, or the ERR000 fallback.
//
// Example:
//
//	msg := MapError(fmt.Errorf("save: %w", grid.ErrInvalidRows))
//	// msg.Code == "GRID002"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// IsUserFacing reports whether err matches a known pattern (not ERR000).
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
