package subscription

import "strings"

// filterKeywords keeps entries whose title contains at least one keyword,
// case-insensitively.
func filterKeywords(entries []normalizedEntry, keywords []string) []normalizedEntry {
	lowered := make([]string, len(keywords))
	for i, k := range keywords {
		lowered[i] = strings.ToLower(k)
	}

	out := make([]normalizedEntry, 0, len(entries))
	for _, e := range entries {
		title := strings.ToLower(e.Title)
		for _, k := range lowered {
			if k == "" {
				continue
			}
			if strings.Contains(title, k) {
				out = append(out, e)
				break
			}
		}
	}
	return out
}
