package core

import (
	"strings"
	"time"
)

var NowFunc = time.Now // mockable

// Now returns the current UTC time from NowFunc.
func Now() time.Time {
	return NowFunc().UTC()
}

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// UniqueStrings returns the non-blank values of ss in first-seen order, without duplicates.
func UniqueStrings(ss []string) []string {
	seen := make(map[string]bool, len(ss))
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		s = CleanString(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
