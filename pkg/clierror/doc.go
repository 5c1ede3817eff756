// Package clierror provides structured error handling for CLI commands.
//
// CLI errors include an exit code, user-facing message, and optional
// troubleshooting hints. This separates internal error details from
// what gets displayed to users, and FromError maps the sentinel errors
// of the identity, ledger, and provenance packages onto stable codes
// scripts can match on.
package clierror
