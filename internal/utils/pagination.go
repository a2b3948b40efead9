// Package utils provides small, generic helper functions used across
// different layers of the application. These utilities are independent
// of domain or business logic.
package utils

import "strconv"

// AtoiDefault converts a string to an int using strconv.Atoi.
// If the string is empty or cannot be parsed as an integer,
// it returns the provided default value instead.
//
// Example:
//
//	n := utils.AtoiDefault("42", 0) // returns 42
//	n = utils.AtoiDefault("", 10)   // returns 10
//	n = utils.AtoiDefault("x", 5)   // returns 5
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// ClampPagination parses raw page and page size query values. Page defaults
// to 1 and is at least 1; size defaults to defSize and is bounded to
// [1, maxSize].
func ClampPagination(rawPage, rawSize string, defSize, maxSize int) (page, size int) {
	page = AtoiDefault(rawPage, 1)
	if page < 1 {
		page = 1
	}
	size = AtoiDefault(rawSize, defSize)
	if size < 1 {
		size = 1
	}
	if size > maxSize {
		size = maxSize
	}
	return page, size
}

// TotalPages returns how many pages of size hold total items.
func TotalPages(total int64, size int) int {
	if size <= 0 {
		return 0
	}
	return int((total + int64(size) - 1) / int64(size))
}

// PageOffset returns the index of the first item of page, or false when the
// page starts past the last of total items. Huge page numbers cannot
// overflow into a negative offset.
func PageOffset(page, size int, total int64) (int, bool) {
	if page < 1 || size < 1 || total <= 0 {
		return 0, false
	}
	if int64(page-1) >= int64(TotalPages(total, size)) {
		return 0, false
	}
	return (page - 1) * size, true
}
