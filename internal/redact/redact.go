// Package redact masks personal data and secrets in rendered report text.
package redact

import (
	"fmt"
	"regexp"
	"strings"
)

// Supported redaction kinds.
const (
	KindEmail = "email"
	KindPhone = "phone"
	KindToken = "token"
)

type rule struct {
	kind        string
	pattern     *regexp.Regexp
	replacement string
}

// rules run in this order regardless of how kinds were requested.
var rules = []rule{
	{KindEmail, regexp.MustCompile(`(?i)[A-Z0-9._%+-]+@[A-Z0-9.-]+\.[A-Z]{2,}`), "[REDACTED_EMAIL]"},
	{KindPhone, regexp.MustCompile(`\b(?:\+?\d{1,3}[\s-]?)?(?:\(?\d{2,4}\)?[\s-]?)?\d{3,4}[\s-]?\d{3,4}\b`), "[REDACTED_PHONE]"},
	{KindToken, regexp.MustCompile(`(?i)\b(?:Bearer\s+|token[:=])?[A-F0-9]{20,}\b`), "[REDACTED_TOKEN]"},
}

// Redactor masks the configured kinds. A nil Redactor masks nothing.
type Redactor struct {
	active []rule
}

// New builds a Redactor for kinds. Unknown kinds are rejected.
func New(kinds []string) (*Redactor, error) {
	wanted := make(map[string]bool, len(kinds))
	for _, kind := range kinds {
		kind = strings.ToLower(strings.TrimSpace(kind))
		if kind == "" {
			continue
		}
		if !Known(kind) {
			return nil, fmt.Errorf("unknown redaction kind %q", kind)
		}
		wanted[kind] = true
	}

	r := &Redactor{}
	for _, candidate := range rules {
		if wanted[candidate.kind] {
			r.active = append(r.active, candidate)
		}
	}
	return r, nil
}

// Known reports whether kind is a supported redaction kind.
func Known(kind string) bool {
	for _, candidate := range rules {
		if candidate.kind == kind {
			return true
		}
	}
	return false
}

// Mask returns s with every configured kind replaced by its placeholder.
func (r *Redactor) Mask(s string) string {
	if r == nil {
		return s
	}
	for _, active := range r.active {
		s = active.pattern.ReplaceAllLiteralString(s, active.replacement)
	}
	return s
}

// Kinds lists the active kinds in application order.
func (r *Redactor) Kinds() []string {
	if r == nil {
		return nil
	}
	kinds := make([]string, 0, len(r.active))
	for _, active := range r.active {
		kinds = append(kinds, active.kind)
	}
	return kinds
}
