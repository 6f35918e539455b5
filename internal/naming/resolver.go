// Package naming assigns unique display names to files entering the queue.
package naming

import (
	"strconv"
	"strings"
)

// Resolve returns candidate unchanged if it is not in use. Otherwise it
// appends " (copy N)" before the extension, with the lowest N >= 1 that
// yields an unused name.
//
// The caller must add the returned name to inUse before resolving the next
// candidate of the same batch.
func Resolve(candidate string, inUse map[string]struct{}) string {
	if _, taken := inUse[candidate]; !taken {
		return candidate
	}

	stem, ext := candidate, ""
	if i := strings.LastIndexByte(candidate, '.'); i >= 0 {
		stem, ext = candidate[:i], candidate[i:]
	}

	for n := 1; ; n++ {
		name := stem + " (copy " + strconv.Itoa(n) + ")" + ext
		if _, taken := inUse[name]; !taken {
			return name
		}
	}
}

// ResolveAll resolves a batch of candidates against inUse, recording every
// assigned name in inUse as it goes.
func ResolveAll(candidates []string, inUse map[string]struct{}) []string {
	names := make([]string, 0, len(candidates))
	for _, c := range candidates {
		name := Resolve(c, inUse)
		inUse[name] = struct{}{}
		names = append(names, name)
	}
	return names
}
