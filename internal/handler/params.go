package handler

import (
	"fmt"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
)

// PrincipalKey is the echo context key the auth middleware stores the
// authenticated principal under. The backend treats it as opaque and uses it
// for audit logging only.
const PrincipalKey = "principal"

// principalFrom returns the request principal, or "anonymous".
func principalFrom(c echo.Context) string {
	if p, ok := c.Get(PrincipalKey).(string); ok && p != "" {
		return p
	}
	return "anonymous"
}

// timeParamLayouts accepts the formats clients send for window bounds.
// Layouts without a zone are read as UTC.
var timeParamLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// timeParam parses an optional time query parameter. Absent → (nil, nil).
func timeParam(c echo.Context, name string) (*time.Time, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range timeParamLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			u := t.UTC()
			return &u, nil
		}
	}
	return nil, fmt.Errorf("invalid %s %q", name, raw)
}

// intParam parses an optional int query parameter, returning fallback when
// absent or unparseable.
func intParam(c echo.Context, name string, fallback int) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
