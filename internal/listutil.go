package internal

import (
	"net/http"
	"strconv"
	"strings"

	"transport-vendor-api/internal/models"
)

const maxListLimit = 500

// parseListParams reads q, limit and offset. Without a limit every vendor is
// returned; a limit above maxListLimit is capped.
func parseListParams(r *http.Request) models.ListFilter {
	values := r.URL.Query()

	limit := 0
	if s := strings.TrimSpace(values.Get("limit")); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			if v > maxListLimit {
				v = maxListLimit
			}
			limit = v
		}
	}

	offset := 0
	if s := strings.TrimSpace(values.Get("offset")); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			offset = v
		}
	}

	return models.ListFilter{
		Query:  strings.TrimSpace(values.Get("q")),
		Limit:  limit,
		Offset: offset,
	}
}

// parseID reads the {id} URL parameter. ok is false for anything that is not
// a positive integer.
func parseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
