package normalize

import "strings"

// SplitCategories splits a category summary such as "Cafe, Coffee shop" into
// names, dropping empty segments. Names are not trimmed beyond the ", "
// separator so that lookups stay exact.
func SplitCategories(summary string) []string {
	if summary == "" {
		return nil
	}
	var names []string
	for _, name := range strings.Split(summary, separator) {
		if name == "" {
			continue
		}
		names = append(names, name)
	}
	return names
}
