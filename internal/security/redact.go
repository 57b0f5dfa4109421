package security

import (
	"net/http"
	"regexp"
	"strings"
)

// sensitiveHeaderKeywords identifies HTTP headers whose values must never
// reach logs or audit records unredacted.
var sensitiveHeaderKeywords = []string{
	"authorization",
	"token",
	"key",
	"secret",
	"password",
	"credential",
	"api-key",
	"cookie",
}

// piiPatterns are the configured PII patterns redaction must eliminate from
// audit payloads (spec §8: "the output string contains no substring that
// matches any configured PII pattern"). Out of scope per spec §1 to author
// a full PII-detection engine; this covers the common structured forms.
var piiPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b[\w.+-]+@[\w-]+\.[\w.-]+\b`),                 // email
	regexp.MustCompile(`\b\d{3}[-.\s]?\d{2}[-.\s]?\d{4}\b`),            // SSN-shaped
	regexp.MustCompile(`\b(?:\d[ -]*?){13,16}\b`),                      // card-number-shaped
}

// Redactor removes sensitive header values and PII-shaped substrings before
// content is logged or persisted to the audit trail.
type Redactor struct {
	sensitiveKeywords []string
	patterns          []*regexp.Regexp
}

func NewRedactor() *Redactor {
	return &Redactor{sensitiveKeywords: sensitiveHeaderKeywords, patterns: piiPatterns}
}

func (r *Redactor) IsSensitiveHeader(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range r.sensitiveKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// RedactHeaderValue masks a single header value, preserving just enough of
// the shape to be useful in a log line without leaking the secret.
func (r *Redactor) RedactHeaderValue(name, value string) string {
	if !r.IsSensitiveHeader(name) {
		return value
	}
	if strings.HasPrefix(value, "Bearer ") {
		return "Bearer ***"
	}
	if len(value) > 8 {
		return value[:4] + "***" + value[len(value)-4:]
	}
	return "***"
}

// RedactHeaders returns a safe-to-log copy of an http.Header.
func (r *Redactor) RedactHeaders(headers http.Header) map[string]string {
	out := make(map[string]string, len(headers))
	for name, values := range headers {
		if len(values) == 0 {
			continue
		}
		out[name] = r.RedactHeaderValue(name, values[0])
	}
	return out
}

// RedactText scrubs PII-shaped substrings out of free text before it is
// written to an audit entry or log line.
func (r *Redactor) RedactText(text string) string {
	out := text
	for _, p := range r.patterns {
		out = p.ReplaceAllString(out, "[redacted]")
	}
	return out
}
