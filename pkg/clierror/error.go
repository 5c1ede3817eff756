// Package clierror provides structured errors for CLI output with codes,
// exit codes, and remediation hints.
package clierror

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/Fran-cois/TrustNoCorpo/pkg/identity"
	"github.com/Fran-cois/TrustNoCorpo/pkg/ledger"
	"github.com/Fran-cois/TrustNoCorpo/pkg/provenance"
)

// Exit codes. Scripts branch on these, so they are stable.
const (
	ExitSuccess   = 0 // Operation completed successfully
	ExitGeneral   = 1 // Unknown/unhandled error
	ExitMisuse    = 2 // Wrong password, missing setup, bad input
	ExitIntegrity = 3 // Tamper detected, corrupt data, key mismatch
	ExitNotFound  = 4 // Resource doesn't exist
)

// Error codes (strings) for programmatic error handling
const (
	CodeNotInitialized      = "NOT_INITIALIZED"
	CodeAlreadyExists       = "ALREADY_EXISTS"
	CodeCorruptIdentity     = "CORRUPT_IDENTITY"
	CodeInvalidMnemonic     = "INVALID_MNEMONIC"
	CodeKeyFileMismatch     = "KEY_FILE_MISMATCH"
	CodeTagMismatch         = "TAG_MISMATCH"
	CodeDecryptFailed       = "DECRYPT_FAILED"
	CodeWrongPassword       = "WRONG_PASSWORD"
	CodeNotProtected        = "NOT_PROTECTED"
	CodeAlreadyProtected    = "ALREADY_PROTECTED"
	CodeUnsupportedDocument = "UNSUPPORTED_DOCUMENT"
	CodeInvalidToken        = "INVALID_TOKEN"
	CodeNotFound            = "NOT_FOUND"
	CodeInternalError       = "INTERNAL_ERROR"
)

// CLIError represents a structured error for CLI output.
type CLIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Hint      string `json:"hint,omitempty"`
	Retryable bool   `json:"retryable"`
	ExitCode  int    `json:"-"` // Not serialized, used for os.Exit
}

// Error implements the error interface.
func (e *CLIError) Error() string {
	return e.Message
}

// NotInitialized creates an error for commands that need an identity
// before one exists.
func NotInitialized() *CLIError {
	return &CLIError{
		Code:      CodeNotInitialized,
		Message:   "no identity configured",
		Hint:      "Run 'tnc init' to create one",
		Retryable: false,
		ExitCode:  ExitMisuse,
	}
}

// AlreadyExists creates an error when a resource already exists.
func AlreadyExists(resource, name string) *CLIError {
	return &CLIError{
		Code:      CodeAlreadyExists,
		Message:   fmt.Sprintf("%s '%s' already exists", resource, name),
		Hint:      "Pass --force to replace it, or remove it first",
		Retryable: false,
		ExitCode:  ExitMisuse,
	}
}

// CorruptIdentity creates an error for an unreadable identity file.
func CorruptIdentity() *CLIError {
	return &CLIError{
		Code:      CodeCorruptIdentity,
		Message:   "identity file is corrupt or unreadable",
		Hint:      "Restore from backup, or recover with 'tnc keys import-mnemonic'",
		Retryable: false,
		ExitCode:  ExitIntegrity,
	}
}

// InvalidMnemonic creates an error for a recovery phrase that fails
// checksum validation.
func InvalidMnemonic() *CLIError {
	return &CLIError{
		Code:      CodeInvalidMnemonic,
		Message:   "recovery phrase is not valid",
		Hint:      "Check word order and spelling; the phrase is 24 words",
		Retryable: false,
		ExitCode:  ExitMisuse,
	}
}

// KeyFileMismatch creates an error when the ledger key file does not
// open the ledger it is paired with.
func KeyFileMismatch() *CLIError {
	return &CLIError{
		Code:      CodeKeyFileMismatch,
		Message:   "encryption key file does not match this ledger",
		Hint:      "Restore the original key file; entries cannot be read without it",
		Retryable: false,
		ExitCode:  ExitIntegrity,
	}
}

// TagMismatch creates an error for a ledger entry whose authentication
// tag no longer matches its ciphertext.
func TagMismatch(buildID string) *CLIError {
	return &CLIError{
		Code:      CodeTagMismatch,
		Message:   fmt.Sprintf("entry '%s' failed integrity verification", buildID),
		Retryable: false,
		ExitCode:  ExitIntegrity,
	}
}

// DecryptFailed creates an error for a ledger entry that cannot be
// decrypted.
func DecryptFailed(buildID string) *CLIError {
	return &CLIError{
		Code:      CodeDecryptFailed,
		Message:   fmt.Sprintf("entry '%s' could not be decrypted", buildID),
		Retryable: false,
		ExitCode:  ExitIntegrity,
	}
}

// WrongPassword creates an error for a password that does not open the
// target.
func WrongPassword() *CLIError {
	return &CLIError{
		Code:      CodeWrongPassword,
		Message:   "wrong password",
		Retryable: true,
		ExitCode:  ExitMisuse,
	}
}

// NotProtected creates an error for unprotecting a file that is not a
// protected container.
func NotProtected() *CLIError {
	return &CLIError{
		Code:      CodeNotProtected,
		Message:   "document is not protected",
		Retryable: false,
		ExitCode:  ExitMisuse,
	}
}

// AlreadyProtected creates an error for protecting an already protected
// file.
func AlreadyProtected() *CLIError {
	return &CLIError{
		Code:      CodeAlreadyProtected,
		Message:   "document is already protected",
		Hint:      "Unprotect it first if you need to re-seal under a new password",
		Retryable: false,
		ExitCode:  ExitMisuse,
	}
}

// UnsupportedDocument creates an error for input the codec refuses to
// rewrite.
func UnsupportedDocument(reason string) *CLIError {
	msg := "unsupported document"
	if reason != "" {
		msg = fmt.Sprintf("unsupported document: %s", reason)
	}
	return &CLIError{
		Code:      CodeUnsupportedDocument,
		Message:   msg,
		Retryable: false,
		ExitCode:  ExitMisuse,
	}
}

// InvalidToken creates an error for a recipient token the embed channels
// cannot carry.
func InvalidToken(token string) *CLIError {
	return &CLIError{
		Code:      CodeInvalidToken,
		Message:   fmt.Sprintf("invalid recipient token '%s'", token),
		Hint:      "Tokens may contain letters, digits, and . _ @ -",
		Retryable: false,
		ExitCode:  ExitMisuse,
	}
}

// NotFound creates an error when a resource doesn't exist.
func NotFound(resource, name string) *CLIError {
	return &CLIError{
		Code:      CodeNotFound,
		Message:   fmt.Sprintf("%s '%s' not found", resource, name),
		Hint:      "Check with 'tnc list'",
		Retryable: false,
		ExitCode:  ExitNotFound,
	}
}

// InternalError creates an error for unexpected internal errors.
func InternalError(err error) *CLIError {
	msg := "an unexpected internal error occurred"
	if err != nil {
		msg = fmt.Sprintf("internal error: %s", err.Error())
	}
	return &CLIError{
		Code:      CodeInternalError,
		Message:   msg,
		Retryable: false,
		ExitCode:  ExitGeneral,
	}
}

// FromError maps an error onto a structured CLI error. Sentinel errors
// from the identity, ledger, and provenance packages keep their stable
// codes; anything else becomes an internal error.
func FromError(err error) *CLIError {
	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return cliErr
	}

	switch {
	case errors.Is(err, identity.ErrNotInitialized):
		return NotInitialized()
	case errors.Is(err, identity.ErrAlreadyExists):
		return AlreadyExists("identity", "identity.json")
	case errors.Is(err, identity.ErrCorruptIdentity):
		return CorruptIdentity()
	case errors.Is(err, identity.ErrInvalidMnemonic):
		return InvalidMnemonic()
	case errors.Is(err, identity.ErrWrongPassword),
		errors.Is(err, provenance.ErrWrongPassword):
		return WrongPassword()
	case errors.Is(err, ledger.ErrKeyFileMismatch):
		return KeyFileMismatch()
	case errors.Is(err, ledger.ErrTagMismatch):
		e := TagMismatch("")
		e.Message = err.Error()
		return e
	case errors.Is(err, ledger.ErrDecryptFailed):
		e := DecryptFailed("")
		e.Message = err.Error()
		return e
	case errors.Is(err, ledger.ErrNotFound):
		e := NotFound("", "")
		e.Message = err.Error()
		return e
	case errors.Is(err, provenance.ErrNotProtected):
		return NotProtected()
	case errors.Is(err, provenance.ErrAlreadyProtected):
		return AlreadyProtected()
	case errors.Is(err, provenance.ErrUnsupportedDocument):
		return UnsupportedDocument(err.Error())
	case errors.Is(err, provenance.ErrInvalidToken):
		e := InvalidToken("")
		e.Message = err.Error()
		return e
	default:
		return InternalError(err)
	}
}

// FormatError returns the error formatted for the given output format.
// Supported formats: "json" for JSON output, anything else for human-readable table format.
func FormatError(err *CLIError, outputFormat string) string {
	if outputFormat == "json" {
		data, jsonErr := json.MarshalIndent(err, "", "  ")
		if jsonErr != nil {
			// Fallback to simple JSON if marshaling fails
			return fmt.Sprintf(`{"code":"%s","message":"%s"}`, err.Code, err.Message)
		}
		return string(data)
	}

	// Human-readable table format
	output := fmt.Sprintf("Error [%s]: %s", err.Code, err.Message)
	if err.Hint != "" {
		output += fmt.Sprintf("\nHint: %s", err.Hint)
	}
	return output
}

// PrintError prints the error to stderr in the appropriate format.
func PrintError(err *CLIError, outputFormat string) {
	fmt.Fprintln(os.Stderr, FormatError(err, outputFormat))
}
