package util

import "strings"

// SanitizeText trims whitespace and strips angle brackets from free text
// before storage. Consumers still encode on output; this only blocks
// trivial markup injection.
func SanitizeText(s string) string {
	s = strings.ReplaceAll(s, "<", "")
	s = strings.ReplaceAll(s, ">", "")
	return strings.TrimSpace(s)
}

// FilterAttachmentURLs keeps only http(s) URLs and caps the list at max
// entries. Excess and non-http entries are dropped silently rather than
// failing the submission.
func FilterAttachmentURLs(urls []string, max int) []string {
	var out []string
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
			out = append(out, u)
		}
		if len(out) == max {
			break
		}
	}
	return out
}
