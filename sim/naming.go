package sim

import (
	"fmt"
	"strings"
)

// Named defines an object with name.
type Named interface {
	Name() string
}

// NameMustBeValid panics if the name is not valid. A valid name is a sequence
// of CamelCase tokens separated by dots. Each token can be followed by square
// brackets with a number in between, like "Token[0]". Numbers can also serve
// as tokens.
func NameMustBeValid(name string) {
	if name == "" {
		panic("name must not be empty")
	}

	tokens := strings.Split(name, ".")
	for _, token := range tokens {
		tokenMustBeValid(token)
	}
}

func tokenMustBeValid(token string) {
	if token == "" {
		panic("name must not include empty tokens")
	}

	base, indices := splitIndices(token)
	baseMustBeValid(base)

	for _, index := range indices {
		indexMustBeValid(index)
	}
}

func splitIndices(token string) (base string, indices []string) {
	bracket := strings.Index(token, "[")
	if bracket < 0 {
		return token, nil
	}

	base = token[:bracket]
	rest := token[bracket:]

	for rest != "" {
		if rest[0] != '[' {
			panic(invalidNameError(token))
		}

		closing := strings.Index(rest, "]")
		if closing < 0 {
			panic(invalidNameError(token))
		}

		indices = append(indices, rest[1:closing])
		rest = rest[closing+1:]
	}

	return base, indices
}

func baseMustBeValid(base string) {
	if base == "" {
		panic(invalidNameError(base))
	}

	if isDigits(base) {
		return
	}

	if base[0] < 'A' || base[0] > 'Z' {
		panic(invalidNameError(base))
	}

	for i := 1; i < len(base); i++ {
		c := base[i]
		if !isLetter(c) && !isDigit(c) {
			panic(invalidNameError(base))
		}
	}
}

func indexMustBeValid(index string) {
	if index == "" || !isDigits(index) {
		panic(invalidNameError(index))
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}

	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}

	return true
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func invalidNameError(part string) string {
	return fmt.Sprintf(
		"name must be CamelCase tokens separated by dots, optionally "+
			"followed by indices like [0], but %q is not", part)
}
