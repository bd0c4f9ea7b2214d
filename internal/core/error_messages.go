package core

// error_messages.go maps errors to user-facing messages with a remediation
// hint and a code for support reference.
//
// # Error Codes Reference
//
//	IN001  - Not a backup: the file is not a valid Samsung Pass export
//	         Action: Check that you selected the .spass file exported by Samsung Pass
//	CR001  - Decryption failed: wrong password or corrupted file
//	         Action: Re-enter the master password, then re-export the backup if it still fails
//	ND001  - No data: the backup decrypted but contained nothing recognisable
//	         Action: Check the backup in Samsung Pass; it may be empty
//	SC001  - Schema error: the schema file is invalid
//	         Action: Fix the schema file named by SCHEMA_PATH or unset it
//	GA001  - Invalid migration URI
//	GA002  - Corrupt migration payload
//	GA003  - Migration payload without accounts
//	FILE001 - File too large
//	FILE004 - No file provided
//	UPL002 - System busy: too many decryptions in progress
//	UPL004 / UPL005 - Request cancelled / timed out
//	ERR000 - Unknown error: check the application log
//
// Sentinel errors are matched first with errors.Is. Remaining errors fall
// back to case-insensitive substring patterns; the first match wins.

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Oracipher/Unsealer/internal/gauth"
	"github.com/Oracipher/Unsealer/internal/schema"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorTarget maps a sentinel error to its user message.
type errorTarget struct {
	target error
	msg    UserMessage
}

var errorTargets = []errorTarget{
	{
		target: ErrInputFormat,
		msg: UserMessage{
			Message: "The file is not a valid Samsung Pass backup",
			Action:  "Check that you selected the .spass file exported by Samsung Pass",
			Code:    "IN001",
		},
	},
	{
		target: ErrCrypto,
		msg: UserMessage{
			Message: "Decryption failed: the password is wrong or the file is corrupted",
			Action:  "Re-enter your master password carefully; if it still fails, export the backup again",
			Code:    "CR001",
		},
	},
	{
		target: ErrNoData,
		msg: UserMessage{
			Message: "The backup was decrypted but contained no usable data",
			Action:  "Check the backup contents in Samsung Pass; it may be empty",
			Code:    "ND001",
		},
	},
	{
		target: schema.ErrInvalidSchema,
		msg: UserMessage{
			Message: "The table schema definition is invalid",
			Action:  "Fix the file named by SCHEMA_PATH or unset it to use the built-in schemas",
			Code:    "SC001",
		},
	},
	{
		target: gauth.ErrInvalidURI,
		msg: UserMessage{
			Message: "This is not a Google Authenticator export link",
			Action:  "Use the otpauth-migration://offline?data=... link from the export QR code",
			Code:    "GA001",
		},
	},
	{
		target: gauth.ErrMalformedPayload,
		msg: UserMessage{
			Message: "The export link data is damaged",
			Action:  "Scan the export QR code again",
			Code:    "GA002",
		},
	},
	{
		target: gauth.ErrNoAccounts,
		msg: UserMessage{
			Message: "The export link contains no accounts",
			Action:  "Select at least one account when exporting from Google Authenticator",
			Code:    "GA003",
		},
	},
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns covers errors that have no sentinel (transport and context).
var errorPatterns = []errorPattern{
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "File exceeds the maximum size limit",
			Action:  "Samsung Pass backups are small; check that you selected the right file",
			Code:    "FILE001",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a .spass backup file",
			Code:    "FILE004",
		},
	},
	{
		pattern: "too many concurrent decryptions",
		msg: UserMessage{
			Message: "System is busy decrypting other backups",
			Action:  "Please wait a moment and try again",
			Code:    "UPL002",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "UPL004",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Please try again",
			Code:    "UPL005",
		},
	},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again; details are in the application log",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, et := range errorTargets {
		if errors.Is(err, et.target) {
			return et.msg
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

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError wraps a technical error with its user-facing message.
type UserError struct {
	UserMessage
	Err error
}

func (e *UserError) Error() string {
	return e.Message
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError wraps err with the message MapError picks for it.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{UserMessage: MapError(err), Err: err}
}
