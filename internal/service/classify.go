package service

import "regexp"

// bitlinkPatterns recognise inputs that already are short links. All are
// anchored at the start of the input and case-sensitive.
var bitlinkPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^https?://bit\.ly/`),
	regexp.MustCompile(`^https?://[a-zA-Z0-9-]+\.ly/`),
	regexp.MustCompile(`^bit\.ly/`),
	regexp.MustCompile(`^[a-zA-Z0-9-]+\.ly/`),
}

// IsBitlink reports whether input should be treated as an existing bitlink
// (analytics) rather than a long URL (shorten)
func IsBitlink(input string) bool {
	for _, pattern := range bitlinkPatterns {
		if pattern.MatchString(input) {
			return true
		}
	}
	return false
}
