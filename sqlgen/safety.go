package sqlgen

import "strings"

// mutationKeywords are matched as plain substrings of the lowercased
// statement. The check is deliberately coarse: a false positive costs
// one retry attempt, a false negative costs data.
var mutationKeywords = []string{"insert", "update", "delete"}

// IsDangerous reports whether the statement may mutate data. It must be
// consulted before the statement reaches the database.
func IsDangerous(query string) bool {
	lowered := strings.ToLower(query)
	for _, kw := range mutationKeywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}
