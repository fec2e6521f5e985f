package fs

import "strings"

// splitPath tokenizes a slash-separated path into immutable component
// slices, replacing the destructive strtok-based tokenizer the original
// Nachos source uses. Leading, trailing,
// and repeated slashes are ignored, so "/a/b/c", "a/b/c", and "a//b/c/"
// all yield ["a", "b", "c"].
func splitPath(path string) []string {
	parts := strings.Split(path, "/")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
