package service

import (
	"encoding/json"
	"strings"

	"gorm.io/datatypes"
)

func mustJSON(v any) datatypes.JSON {
	payload, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON([]byte("{}"))
	}
	return datatypes.JSON(payload)
}

func strPtr(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
