// Package rules contains the detector implementations for the reference
// community. Each detector validates its configuration eagerly in the
// constructor and is read-only over the items it evaluates.
package rules

import (
	"regexp"
	"strings"
)

var urlRegex = regexp.MustCompile(`https?://[^\s<>()"']+`)

func extractURLs(raw string) []string {
	return dedupeStrings(urlRegex.FindAllString(raw, -1))
}

func dedupeStrings(in []string) []string {
	var ret []string
	seen := make(map[string]bool)
	for _, v := range in {
		if !seen[v] {
			ret = append(ret, v)
			seen[v] = true
		}
	}
	return ret
}

func containsFold(list []string, val string) bool {
	for _, v := range list {
		if strings.EqualFold(v, val) {
			return true
		}
	}
	return false
}
