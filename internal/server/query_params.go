package server

import (
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
)

const (
	defaultSyncLimit = 50
	maxSyncLimit     = 250
)

func parseSellerID(value string) (int64, error) {
	trimmed := strings.TrimSpace(value)
	if id, err := snowflake.ParseString(trimmed); err == nil && id > 0 {
		return id.Int64(), nil
	}
	return 0, ErrInvalidRequest
}

func parseLimit(value string) (int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return defaultSyncLimit, nil
	}
	parsed, err := strconv.Atoi(trimmed)
	if err != nil || parsed <= 0 {
		return 0, ErrInvalidRequest
	}
	if parsed > maxSyncLimit {
		parsed = maxSyncLimit
	}
	return parsed, nil
}

// language picks the lang query parameter, then Accept-Language.
func language(query, header string) string {
	if q := strings.TrimSpace(query); q != "" {
		return q
	}
	header = strings.TrimSpace(header)
	if i := strings.IndexAny(header, ",;-"); i >= 0 {
		header = header[:i]
	}
	return strings.ToLower(header)
}
