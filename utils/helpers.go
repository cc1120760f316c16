package utils

import (
	"strings"
	"time"
)

func IsValidRole(role string) bool {
	switch role {
	case "user", "admin", "manager":
		return true
	default:
		return false
	}
}

func IsValidOrderStatus(status string) bool {
	switch status {
	case "pending", "processing", "shipped", "delivered", "cancelled":
		return true
	default:
		return false
	}
}

func IsValidTrendMetric(metric string) bool {
	switch metric {
	case "visits", "sales", "revenue", "conversion", "users":
		return true
	default:
		return false
	}
}

func IsValidProductSort(field string) bool {
	switch field {
	case "name", "price", "stock", "averageRating", "createdAt":
		return true
	default:
		return false
	}
}

// ParseDate accepts RFC3339 timestamps as well as plain YYYY-MM-DD dates,
// which is what the admin panel's date pickers send.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

// NormalizeTags splits a comma separated tag string, trims whitespace and
// drops empties. Always returns a non-nil slice.
func NormalizeTags(raw string) []string {
	tags := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		if tag := strings.TrimSpace(part); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
