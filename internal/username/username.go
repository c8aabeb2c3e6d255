// Package username turns admin input into the URL-safe key used in public links.
package username

import (
	"errors"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// MaxLength matches the documents.username column width.
const MaxLength = 100

var (
	ErrEmpty    = errors.New("username is empty after normalisation")
	ErrTooLong  = errors.New("username is too long")
	ErrReserved = errors.New("username is reserved")
)

var (
	disallowed = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

	// reserved collide with fixed routes or well-known files.
	reserved = map[string]struct{}{
		"admin":       {},
		"pdf":         {},
		"viewer":      {},
		"static":      {},
		"health":      {},
		"healthz":     {},
		"metrics":     {},
		"favicon.ico": {},
		"robots.txt":  {},
		"sitemap.xml": {},
	}
)

// Normalize folds raw to ASCII, joins whitespace runs with '_', drops every
// character outside [A-Za-z0-9_.-], trims leading and trailing '.' and '_',
// and lowercases the result.
func Normalize(raw string) (string, error) {
	s := asciiFold(raw)
	s = strings.NewReplacer("/", " ", `\`, " ").Replace(s)
	s = strings.Join(strings.Fields(s), "_")
	s = disallowed.ReplaceAllString(s, "")
	s = strings.Trim(s, "._")
	s = strings.ToLower(s)

	if s == "" {
		return "", ErrEmpty
	}
	if len(s) > MaxLength {
		return "", ErrTooLong
	}
	return s, nil
}

// NormalizeNew is Normalize plus the reserved-name check applied when a username is created.
func NormalizeNew(raw string) (string, error) {
	s, err := Normalize(raw)
	if err != nil {
		return "", err
	}
	if IsReserved(s) {
		return "", ErrReserved
	}
	return s, nil
}

// IsReserved reports whether s would shadow a fixed route.
func IsReserved(s string) bool {
	_, ok := reserved[strings.ToLower(s)]
	return ok
}

// asciiFold decomposes with NFKD and drops the non-ASCII remainder,
// so "José" becomes "Jose" and "Ёлка" disappears entirely.
func asciiFold(s string) string {
	var b strings.Builder
	for _, r := range norm.NFKD.String(s) {
		if r <= unicode.MaxASCII {
			b.WriteRune(r)
		}
	}
	return b.String()
}
