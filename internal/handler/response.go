package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"nftmarket/internal/service"
)

type apiResponse struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    any            `json:"data,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
}

func Ok(c *gin.Context, data any, meta map[string]any) {
	c.JSON(http.StatusOK, apiResponse{
		Code:    0,
		Message: "ok",
		Data:    data,
		Meta:    meta,
	})
}

func Error(c *gin.Context, status int, message string, meta map[string]any) {
	c.JSON(status, apiResponse{
		Code:    status,
		Message: message,
		Meta:    meta,
	})
}

// serviceError maps service errors onto HTTP statuses.
func serviceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound), errors.Is(err, service.ErrUnknownCollection):
		Error(c, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, service.ErrInvalidQuery):
		Error(c, http.StatusBadRequest, err.Error(), nil)
	default:
		Error(c, http.StatusBadGateway, err.Error(), nil)
	}
}

func intQuery(c *gin.Context, key string, def int) int {
	if val := c.Query(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return def
}

func int64QueryPtr(c *gin.Context, key string) *int64 {
	if val := strings.TrimSpace(c.Query(key)); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			return &i
		}
	}
	return nil
}

func boolQueryPtr(c *gin.Context, key string) *bool {
	if val := c.Query(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return &b
		}
	}
	return nil
}

func int64Param(c *gin.Context, key string) (int64, bool) {
	v, err := strconv.ParseInt(strings.TrimSpace(c.Param(key)), 10, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

// splitList parses comma separated path values, dropping blanks and duplicates.
func splitList(raw string) []string {
	out := []string{}
	seen := map[string]struct{}{}
	for _, item := range strings.Split(raw, ",") {
		val := strings.TrimSpace(item)
		if val == "" {
			continue
		}
		if _, ok := seen[val]; ok {
			continue
		}
		seen[val] = struct{}{}
		out = append(out, val)
	}
	return out
}
