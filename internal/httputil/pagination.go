package httputil

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	defaultPaginationLimit = 50
	maxPaginationLimit     = 100
)

var (
	errInvalidOffset = errors.New("invalid offset parameter: must be a non-negative integer")
	errInvalidLimit  = errors.New("invalid limit parameter: must be between 1 and 100")
)

// ParsePagination reads the offset and limit query parameters for list
// endpoints. Offset defaults to 0, limit to 50 with a ceiling of 100.
func ParsePagination(c *gin.Context) (offset, limit int, err error) {
	offset, err = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		return 0, 0, errInvalidOffset
	}

	limit, err = strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPaginationLimit)))
	if err != nil || limit < 1 || limit > maxPaginationLimit {
		return 0, 0, errInvalidLimit
	}

	return offset, limit, nil
}
