package model

import (
	"fmt"

	"github.com/google/uuid"
)

// Production line statuses.
const (
	LineStatusActive   = "active"
	LineStatusInactive = "inactive"
)

// DefaultChangeoverMinutes applies when a line has no changeover matrix.
const DefaultChangeoverMinutes = 30.0

// AllowedProducts restricts which product SKUs a line may run. The zero
// value is unrestricted; the variant is decided once when the line is
// loaded so callers never inspect raw JSON shapes.
type AllowedProducts struct {
	restricted bool
	skus       map[string]struct{}
}

// UnrestrictedProducts returns an allow-list that accepts every SKU.
func UnrestrictedProducts() AllowedProducts {
	return AllowedProducts{}
}

// ExplicitProducts returns an allow-list restricted to the given SKUs.
func ExplicitProducts(skus []string) AllowedProducts {
	set := make(map[string]struct{}, len(skus))
	for _, s := range skus {
		set[s] = struct{}{}
	}
	return AllowedProducts{restricted: true, skus: set}
}

// Allows reports whether the SKU may run on a line with this allow-list.
func (a AllowedProducts) Allows(sku string) bool {
	if !a.restricted {
		return true
	}
	_, ok := a.skus[sku]
	return ok
}

// Restricted reports whether the allow-list limits SKUs at all.
func (a AllowedProducts) Restricted() bool { return a.restricted }

// ChangeoverMatrix maps directed "FROM->TO" SKU pairs to changeover
// minutes. The "default" key provides a per-line fallback. A nil matrix
// means the line has no configured changeover data.
type ChangeoverMatrix map[string]float64

// Minutes returns the changeover time between two products. Switching from
// nothing, or between identical SKUs, costs zero. Lookup order is the
// directed pair, the reversed pair, the matrix default and finally
// DefaultChangeoverMinutes.
func (m ChangeoverMatrix) Minutes(fromSKU, toSKU string) float64 {
	if fromSKU == "" || fromSKU == toSKU {
		return 0
	}
	if m != nil {
		if v, ok := m[fmt.Sprintf("%s->%s", fromSKU, toSKU)]; ok {
			return v
		}
		if v, ok := m[fmt.Sprintf("%s->%s", toSKU, fromSKU)]; ok {
			return v
		}
		if v, ok := m["default"]; ok {
			return v
		}
	}
	return DefaultChangeoverMinutes
}

// ProductionLine is a manufacturing line tasks get assigned to.
type ProductionLine struct {
	ID         uuid.UUID
	Name       string
	Status     string
	Allowed    AllowedProducts
	Changeover ChangeoverMatrix
}

// Active reports whether the line may receive new jobs.
func (l ProductionLine) Active() bool { return l.Status == LineStatusActive }

// Allows reports whether the product SKU may run on this line.
func (l ProductionLine) Allows(sku string) bool { return l.Allowed.Allows(sku) }

// ChangeoverMinutes returns the changeover time between two SKUs on this line.
func (l ProductionLine) ChangeoverMinutes(fromSKU, toSKU string) float64 {
	return l.Changeover.Minutes(fromSKU, toSKU)
}
