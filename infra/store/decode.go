package store

import (
	"encoding/json"
	"fmt"

	"shopfloor-planner/core/model"
)

// decodeAllowedProducts accepts the two JSONB shapes found in the wild:
// a bare array of SKUs, or an object {"skus": [...]}. NULL and an absent
// "skus" key both mean the line is unrestricted.
func decodeAllowedProducts(raw []byte) (model.AllowedProducts, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return model.UnrestrictedProducts(), nil
	}
	var skus []string
	if err := json.Unmarshal(raw, &skus); err == nil {
		return model.ExplicitProducts(skus), nil
	}
	var obj struct {
		SKUs []string `json:"skus"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return model.AllowedProducts{}, fmt.Errorf("unexpected shape: %w", err)
	}
	if obj.SKUs == nil {
		return model.UnrestrictedProducts(), nil
	}
	return model.ExplicitProducts(obj.SKUs), nil
}

// decodeChangeoverMatrix decodes a "FROM->TO": minutes object. NULL means
// the line has no matrix and falls back to the default changeover.
func decodeChangeoverMatrix(raw []byte) (model.ChangeoverMatrix, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var m map[string]float64
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("unexpected shape: %w", err)
	}
	return model.ChangeoverMatrix(m), nil
}
