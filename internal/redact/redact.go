// Package redact removes credentials, tokens and contact details from strings
// before they are logged or returned in error responses. Provider errors and
// store errors can echo connection strings, OAuth tokens, recipient email
// addresses and phone numbers; none of those may reach a log line verbatim.
package redact

import "regexp"

// Constants for redaction placeholders
const (
	RedactedPathPlaceholder       = "[REDACTED_PATH]"
	RedactedCredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	RedactedKeyPlaceholder        = "[REDACTED_KEY]"
	RedactedTokenPlaceholder      = "[REDACTED_TOKEN]"
	RedactedEmailPlaceholder      = "[REDACTED_EMAIL]"
	RedactedPhonePlaceholder      = "[REDACTED_PHONE]"
)

type rule struct {
	re          *regexp.Regexp
	replacement string
}

// rules are applied in order; earlier rules see the unmodified input.
var rules = []rule{
	// Database connection strings with user info
	{regexp.MustCompile(`(?i)(postgres(?:ql)?|mysql|db|database)://[^@\s]+@`), RedactedCredentialPlaceholder},
	// Authorization header values
	{regexp.MustCompile(`(?i)\bbearer\s+[A-Za-z0-9_\-.~+/=]{8,}`), "Bearer " + RedactedTokenPlaceholder},
	// JWTs
	{regexp.MustCompile(`eyJ[a-zA-Z0-9_-]+\.eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`), "[REDACTED_JWT]"},
	// Google OAuth access tokens
	{regexp.MustCompile(`\bya29\.[A-Za-z0-9_\-.]+`), RedactedTokenPlaceholder},
	// Meta business access tokens
	{regexp.MustCompile(`\bEAA[A-Za-z0-9]{20,}`), RedactedTokenPlaceholder},
	// Passwords
	{regexp.MustCompile(`(?i)(password|passwd|pwd)([=:\s]?['"]?)[^'"&\s]{3,}`), RedactedCredentialPlaceholder},
	// Keys and secrets in key=value form
	{regexp.MustCompile(
		`(?i)(api[_-]?key|access[_-]?token|refresh[_-]?token|client[_-]?secret|secret)(['"\s:=]+)[A-Za-z0-9_\-.~+/]{8,}`,
	), RedactedKeyPlaceholder},
	// Email addresses
	{regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`), RedactedEmailPlaceholder},
	// E.164 phone numbers
	{regexp.MustCompile(`\+\d{7,15}\b`), RedactedPhonePlaceholder},
	// File paths
	{regexp.MustCompile(`(/[\w.-]+){2,}`), RedactedPathPlaceholder},
	// Stack trace fragments
	{regexp.MustCompile(`(?:goroutine \d+|panic:)[\s\S]*?(\n\t.*)+`), "[STACK_TRACE_REDACTED]"},
}

// String redacts sensitive information from the input string
func String(input string) string {
	if input == "" {
		return input
	}
	result := input
	for _, r := range rules {
		result = r.re.ReplaceAllString(result, r.replacement)
	}
	return result
}

// Error redacts sensitive information from an error's Error() output
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}
