package recorder

import "regexp"

func mustCompileUsername() *regexp.Regexp {
	return regexp.MustCompile(`^[A-Za-z0-9_]{3,25}$`)
}
