package util

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// Pagination defaults
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	// Keeps (page-1)*size well inside int range
	MaxPage = 100000
)

// ParseInt parses a string to an integer, returning defaultValue if parsing fails
func ParseInt(s string, defaultValue int) int {
	if val, err := strconv.Atoi(s); err == nil {
		return val
	}
	return defaultValue
}

// NormalizePage clamps page to [1, MaxPage] and size to [1, MaxPageSize]
func NormalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	if size < 1 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return page, size
}

// Offset returns the row offset for a normalised page
func Offset(page, size int) int {
	page, size = NormalizePage(page, size)
	return (page - 1) * size
}

// PageFromQuery reads ?page= and ?page_size= from the request
func PageFromQuery(c *gin.Context) (int, int) {
	return NormalizePage(
		ParseInt(c.Query("page"), 1),
		ParseInt(c.Query("page_size"), DefaultPageSize),
	)
}
