package providers

import "strings"

// SelectModel picks a model from the available list: the first priority entry
// contained in an available model name wins, otherwise the first available
// model is used. Returns "" when nothing is available.
func SelectModel(available []string, priority []string) string {
	for _, preferred := range priority {
		for _, name := range available {
			if strings.Contains(strings.ToLower(name), strings.ToLower(preferred)) {
				return name
			}
		}
	}
	if len(available) > 0 {
		return available[0]
	}
	return ""
}
