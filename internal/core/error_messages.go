package core

// error_messages.go maps technical errors to user-facing messages with a
// support code. Users quote the code; support looks it up here.
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large
//	FILE002 - Unsupported file type (only PDF, text, CSV, XLSX and XLS)
//	FILE003 - Empty file
//	FILE004 - No file in the request
//	FILE005 - Stored file could not be read
//
// # Upload Errors (UPL001-UPL099)
//
//	UPL001 - Upload not found
//	UPL002 - System busy, queue full
//	UPL003 - Upload already being processed
//	UPL004 - Request cancelled
//	UPL005 - Request timed out
//	UPL006 - Service shutting down
//
// # Request Errors (REQ001-REQ099)
//
//	REQ001 - Malformed identifier
//	REQ002 - Malformed form submission
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Connection refused
//	DB002 - Connection reset
//	DB003 - Deadlock
//
// # Default Error (ERR000)
//
// Fallback when nothing matches. Check the server log for the request id.
//
// Sentinel errors are matched with errors.Is first. Errors from drivers
// carry no sentinel, so they fall back to case-insensitive substring
// patterns; the first match wins.

import (
	"context"
	"errors"
	"strings"

	"github.com/JonMunkholm/journalimport/internal/blob"
	"github.com/JonMunkholm/journalimport/internal/intake"
	"github.com/JonMunkholm/journalimport/internal/journal"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

var (
	// ErrNoFile is returned by the HTTP layer when a submission has no file part.
	ErrNoFile = errors.New("no file provided")

	// ErrInvalidID is returned for path or form identifiers that are not UUIDs.
	ErrInvalidID = errors.New("invalid identifier")

	// ErrBadForm is returned when a multipart form cannot be parsed.
	ErrBadForm = errors.New("malformed form submission")
)

type sentinelMessage struct {
	err error
	msg UserMessage
}

var sentinelMessages = []sentinelMessage{
	{intake.ErrFileTooLarge, UserMessage{
		Message: "File exceeds the maximum upload size",
		Action:  "Split the file into smaller files and upload them separately",
		Code:    "FILE001",
	}},
	{intake.ErrUnsupportedType, UserMessage{
		Message: "This file type is not supported",
		Action:  "Upload a PDF, plain text, CSV, XLSX or XLS file",
		Code:    "FILE002",
	}},
	{intake.ErrEmptyFile, UserMessage{
		Message: "The uploaded file is empty",
		Action:  "Choose a file that contains journal data",
		Code:    "FILE003",
	}},
	{ErrNoFile, UserMessage{
		Message: "No file was selected",
		Action:  "Choose a file to upload",
		Code:    "FILE004",
	}},
	{blob.ErrNotFound, UserMessage{
		Message: "The stored file could not be found",
		Action:  "Upload the file again",
		Code:    "FILE005",
	}},
	{journal.ErrNotFound, UserMessage{
		Message: "Upload not found",
		Action:  "Check the upload id or start a new upload",
		Code:    "UPL001",
	}},
	{ErrTooManyUploads, UserMessage{
		Message: "Too many uploads in progress",
		Action:  "Please wait a moment and try again",
		Code:    "UPL002",
	}},
	{ErrAlreadyScheduled, UserMessage{
		Message: "This upload is already being processed",
		Action:  "Poll the upload status for progress",
		Code:    "UPL003",
	}},
	{journal.ErrNotPending, UserMessage{
		Message: "This upload is already being processed",
		Action:  "Poll the upload status for progress",
		Code:    "UPL003",
	}},
	{context.Canceled, UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "UPL004",
	}},
	{context.DeadlineExceeded, UserMessage{
		Message: "Request timed out",
		Action:  "Try a smaller file or check your connection",
		Code:    "UPL005",
	}},
	{ErrDispatcherClosed, UserMessage{
		Message: "The service is restarting",
		Action:  "Please try again in a few moments",
		Code:    "UPL006",
	}},
	{ErrInvalidID, UserMessage{
		Message: "The identifier is not valid",
		Action:  "Use the id returned when the upload was created",
		Code:    "REQ001",
	}},
	{ErrBadForm, UserMessage{
		Message: "The form submission could not be read",
		Action:  "Submit the file as multipart/form-data in a field named \"file\"",
		Code:    "REQ002",
	}},
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	{"connection refused", UserMessage{
		Message: "Unable to connect to database",
		Action:  "Please try again in a few moments",
		Code:    "DB001",
	}},
	{"connection reset", UserMessage{
		Message: "Database connection was interrupted",
		Action:  "Please try again",
		Code:    "DB002",
	}},
	{"deadlock", UserMessage{
		Message: "Database was busy with conflicting operations",
		Action:  "Please try again",
		Code:    "DB003",
	}},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Returns an empty UserMessage for nil.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, sm := range sentinelMessages {
		if errors.Is(err, sm.err) {
			return sm.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}
