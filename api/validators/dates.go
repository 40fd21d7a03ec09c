package validators

import (
	"net/http"
	"strings"
	"time"

	pkgerrors "github.com/coursekit-app/coursekit-backend/pkg/errors"
)

const dateLayout = "2006-01-02"

const defaultRangeDays = 30

// ResolveDateRange reads the from/to query parameters as YYYY-MM-DD dates.
// Both present: the inclusive range they name. Both absent: the trailing
// defaultRangeDays window ending yesterday. Only one present is an error.
func ResolveDateRange(r *http.Request, now time.Time) (time.Time, time.Time, error) {
	query := r.URL.Query()
	from := strings.TrimSpace(query.Get("from"))
	to := strings.TrimSpace(query.Get("to"))

	if from == "" && to == "" {
		end := dayStart(now).AddDate(0, 0, -1)
		return end.AddDate(0, 0, -(defaultRangeDays - 1)), end, nil
	}
	if from == "" || to == "" {
		return time.Time{}, time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "from and to must be provided together")
	}

	return parseRange(from, to)
}

// RequireDateRange reads the from/to query parameters as YYYY-MM-DD dates.
// Both bounds are mandatory; absence of either is a client error.
func RequireDateRange(r *http.Request) (time.Time, time.Time, error) {
	query := r.URL.Query()
	from := strings.TrimSpace(query.Get("from"))
	to := strings.TrimSpace(query.Get("to"))

	if from == "" || to == "" {
		return time.Time{}, time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "from and to are required")
	}
	return parseRange(from, to)
}

func parseRange(from, to string) (time.Time, time.Time, error) {
	start, err := ParseDate(from)
	if err != nil {
		return time.Time{}, time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid from date").WithDetails(map[string]any{"field": "from"})
	}
	end, err := ParseDate(to)
	if err != nil {
		return time.Time{}, time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid to date").WithDetails(map[string]any{"field": "to"})
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "to must not be before from")
	}
	return start, end, nil
}

// ParseDate parses a YYYY-MM-DD string as a UTC midnight instant.
func ParseDate(value string) (time.Time, error) {
	parsed, err := time.Parse(dateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, err
	}
	return parsed.UTC(), nil
}

func dayStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
