// Package naming builds and checks the hierarchical names of configured
// components, such as "System.HMCDev.MemCtrl[5]".
package naming

import (
	"fmt"
	"strconv"
	"strings"
)

// A Name is a hierarchical name that includes a series of tokens separated
// by dots.
type Name struct {
	Tokens []NameToken
}

// NameToken is a token of a name.
type NameToken struct {
	ElemName string
	Index    []int
}

// ParseName parses a name string.
func ParseName(sname string) (Name, error) {
	tokens := strings.Split(sname, ".")
	name := Name{Tokens: make([]NameToken, len(tokens))}

	for i, token := range tokens {
		t, err := parseNameToken(token)
		if err != nil {
			return Name{}, err
		}

		name.Tokens[i] = t
	}

	return name, nil
}

func parseNameToken(token string) (NameToken, error) {
	if err := bracketsMustMatch(token); err != nil {
		return NameToken{}, err
	}

	ts := strings.Split(token, "[")
	elemName := ts[0]

	indices := make([]int, len(ts)-1)
	for i := 1; i < len(ts); i++ {
		if !strings.HasSuffix(ts[i], "]") {
			return NameToken{}, fmt.Errorf("index of %s is malformed", token)
		}

		index, err := strconv.Atoi(ts[i][0 : len(ts[i])-1])
		if err != nil {
			return NameToken{}, fmt.Errorf("name index must be integer")
		}

		indices[i-1] = index
	}

	return NameToken{ElemName: elemName, Index: indices}, nil
}

func bracketsMustMatch(name string) error {
	openBracketCount := 0

	for _, c := range name {
		switch c {
		case '[':
			openBracketCount++
		case ']':
			openBracketCount--
			if openBracketCount < 0 {
				return fmt.Errorf("name brackets must match")
			}
		}
	}

	if openBracketCount != 0 {
		return fmt.Errorf("name brackets must match")
	}

	return nil
}

// ValidateName checks that a name follows the naming convention:
//  1. Elements are separated by dots, e.g. "A.B.C". "A.B." is not valid.
//  2. Elements must not be empty. "A..B" is not valid.
//  3. Elements are capitalized CamelCase. "A.b" is not valid.
//  4. Elements in a series use square brackets, e.g. "A.MemCtrl[3]".
func ValidateName(name string) error {
	n, err := ParseName(name)
	if err != nil {
		return fmt.Errorf("name %q is not valid: %w", name, err)
	}

	for _, token := range n.Tokens {
		if err := validateToken(token); err != nil {
			return fmt.Errorf("name %q is not valid: %w", name, err)
		}
	}

	return nil
}

// NameMustBeValid panics if the name does not follow the naming convention.
func NameMustBeValid(name string) {
	if err := ValidateName(name); err != nil {
		panic(err)
	}
}

func validateToken(token NameToken) error {
	if token.ElemName == "" {
		return fmt.Errorf("name element must not be empty")
	}

	for _, c := range []string{"_", "\"", "'", "-", " "} {
		if strings.Contains(token.ElemName, c) {
			return fmt.Errorf("name element must not contain %q", c)
		}
	}

	if token.ElemName[0] < 'A' || token.ElemName[0] > 'Z' {
		return fmt.Errorf("name element must start with a capital letter")
	}

	return nil
}

// BuildName builds a name from a parent name and an element name.
func BuildName(parentName, elementName string) string {
	if parentName == "" {
		return elementName
	}

	return parentName + "." + elementName
}

// BuildNameWithIndex builds the name of an element in a series.
func BuildNameWithIndex(parentName, elementName string, index int) string {
	return BuildName(parentName, elementName+"["+strconv.Itoa(index)+"]")
}
