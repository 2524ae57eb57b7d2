package http

import (
	"net/http"
	apperrors "stylo/pkg/errors"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

func RequiredQuery(r *http.Request, name string) (string, error) {
	value := strings.TrimSpace(r.URL.Query().Get(name))
	if value == "" {
		return "", apperrors.InvalidInput("missing required query parameter: " + name)
	}
	return value, nil
}

func OptionalQuery(r *http.Request, name string) string {
	return strings.TrimSpace(r.URL.Query().Get(name))
}

// DateQuery parses a YYYY-MM-DD query parameter. An empty value yields the
// zero time and no error when the parameter is optional.
func DateQuery(r *http.Request, name string, required bool) (time.Time, error) {
	value := OptionalQuery(r, name)
	if value == "" {
		if required {
			return time.Time{}, apperrors.InvalidInput("missing required query parameter: " + name)
		}
		return time.Time{}, nil
	}
	parsed, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, apperrors.InvalidInput("invalid " + name + " parameter, expected YYYY-MM-DD: " + value)
	}
	return parsed, nil
}
