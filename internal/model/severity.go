package model

import (
	"fmt"
	"strings"
)

// Severity is the canonical log severity. Stored lowercase so filter
// comparisons never depend on the casing a device happened to send.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Severities lists the canonical values in ascending order of urgency.
var Severities = []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

// ParseSeverity maps a raw payload value onto the canonical enum.
// Matching is case-insensitive; anything outside the four values is an error.
func ParseSeverity(raw string) (Severity, error) {
	s := Severity(strings.ToLower(strings.TrimSpace(raw)))
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return s, nil
	}
	return "", fmt.Errorf("invalid severity %q", raw)
}

func (s Severity) String() string { return string(s) }
