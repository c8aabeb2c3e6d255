package filesend

import (
	"errors"
	"strconv"
	"strings"
)

var (
	// ErrUnsatisfiable means the range lies wholly outside the content.
	ErrUnsatisfiable = errors.New("range not satisfiable")
	// ErrMalformedRange means the header is not a byte range we understand; it is ignored.
	ErrMalformedRange = errors.New("malformed range")
)

// ParseRange resolves the first range of a "bytes=" Range header against size.
// It returns inclusive offsets with end clamped to size-1.
//
//	bytes=a-b   a..min(b, size-1)
//	bytes=a-    a..size-1
//	bytes=-n    the last n bytes
func ParseRange(header string, size int64) (start, end int64, err error) {
	rng, ok := strings.CutPrefix(strings.TrimSpace(header), "bytes=")
	if !ok {
		return 0, 0, ErrMalformedRange
	}
	first, _, _ := strings.Cut(rng, ",")
	first = strings.TrimSpace(first)

	from, to, ok := strings.Cut(first, "-")
	if !ok {
		return 0, 0, ErrMalformedRange
	}
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)

	if from == "" {
		n, err := strconv.ParseInt(to, 10, 64)
		if err != nil || n < 0 {
			return 0, 0, ErrMalformedRange
		}
		if n == 0 || size == 0 {
			return 0, 0, ErrUnsatisfiable
		}
		if n > size {
			n = size
		}
		return size - n, size - 1, nil
	}

	start, err = strconv.ParseInt(from, 10, 64)
	if err != nil || start < 0 {
		return 0, 0, ErrMalformedRange
	}
	end = size - 1
	if to != "" {
		end, err = strconv.ParseInt(to, 10, 64)
		if err != nil || end < start {
			return 0, 0, ErrMalformedRange
		}
	}
	if start >= size {
		return 0, 0, ErrUnsatisfiable
	}
	if end > size-1 {
		end = size - 1
	}
	return start, end, nil
}
