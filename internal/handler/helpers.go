package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// userIDHeader scopes every capture route to a caller identity.
const userIDHeader = "X-User-ID"

// userID extracts the caller identity, writing a 401 when the header is
// missing. Callers must return when ok is false.
func userID(c *gin.Context) (string, bool) {
	uid := strings.TrimSpace(c.GetHeader(userIDHeader))
	if uid == "" {
		Error(c, http.StatusUnauthorized, "missing "+userIDHeader+" header", nil)
		return "", false
	}
	return uid, true
}

func idParam(c *gin.Context, key string) uint64 {
	val := strings.TrimSpace(c.Param(key))
	if val == "" {
		return 0
	}
	id, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return 0
	}
	return id
}

func intQuery(c *gin.Context, key string, def int) int {
	if val := c.Query(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return def
}

func boolQueryPtr(c *gin.Context, key string) *bool {
	if val := c.Query(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return &b
		}
	}
	return nil
}

func strQueryPtr(c *gin.Context, key string) *string {
	if val := strings.TrimSpace(c.Query(key)); val != "" {
		return &val
	}
	return nil
}

func timeQueryPtr(c *gin.Context, key string) *time.Time {
	if val := strings.TrimSpace(c.Query(key)); val != "" {
		if ts, err := time.Parse(time.RFC3339, val); err == nil {
			t := ts.UTC()
			return &t
		}
	}
	return nil
}

func parseOrder(value string, allow map[string]string) string {
	key := strings.TrimSpace(strings.ToLower(value))
	if key == "" {
		return ""
	}
	if mapped, ok := allow[key]; ok {
		return mapped
	}
	return ""
}

func paginationMeta(limit, offset int, total int64) map[string]any {
	if limit <= 0 {
		limit = 0
	}
	if offset < 0 {
		offset = 0
	}
	hasNext := int64(offset+limit) < total
	return map[string]any{
		"limit":    limit,
		"offset":   offset,
		"total":    total,
		"has_next": hasNext,
	}
}

func boolPtr(v bool) *bool { return &v }
