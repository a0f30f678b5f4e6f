package utils

import (
	"fmt"
	"strconv"
)

// ParseNodeID parses a node id taken from a URL path segment.
func ParseNodeID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid node id %q", raw)
	}
	return id, nil
}
