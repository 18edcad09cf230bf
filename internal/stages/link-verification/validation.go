package linkverification

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"candidate-interview/internal/common/validation"
)

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"link"},
		Properties: map[string]validation.Property{
			"link": {
				Type:        "string",
				Description: "Interview link or its query string",
				MinLength:   intPtr(1),
				MaxLength:   intPtr(2048),
			},
		},
		AdditionalProperties: false,
	}
}

// ParseJobID extracts a positive numeric job id from a full link, a path
// with a query ("/interview?job_id=42") or a bare query ("job_id=42").
func ParseJobID(link, param string) (int64, error) {
	link = strings.TrimSpace(link)
	if link == "" {
		return 0, fmt.Errorf("link is empty")
	}

	query := link
	if u, err := url.Parse(link); err == nil && (u.Scheme != "" || strings.Contains(link, "?")) {
		query = u.RawQuery
	}
	query = strings.TrimPrefix(query, "?")

	values, err := url.ParseQuery(query)
	if err != nil {
		return 0, fmt.Errorf("link query is malformed: %w", err)
	}

	raw := strings.TrimSpace(values.Get(param))
	if raw == "" {
		return 0, fmt.Errorf("%s is missing", param)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s %q is not numeric", param, raw)
	}
	if id <= 0 {
		return 0, fmt.Errorf("%s must be positive", param)
	}
	return id, nil
}

func intPtr(i int) *int {
	return &i
}
