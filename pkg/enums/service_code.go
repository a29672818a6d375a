package enums

import "fmt"

// ServiceCode identifies the kind of reading a client booked.
type ServiceCode string

const (
	ServiceCodeTarot      ServiceCode = "tarot"
	ServiceCodeCoffee     ServiceCode = "coffee"
	ServiceCodeAstro      ServiceCode = "astro"
	ServiceCodeHealing    ServiceCode = "healing"
	ServiceCodeDirectCall ServiceCode = "direct_call"
)

var validServiceCodes = []ServiceCode{
	ServiceCodeTarot,
	ServiceCodeCoffee,
	ServiceCodeAstro,
	ServiceCodeHealing,
	ServiceCodeDirectCall,
}

// String implements fmt.Stringer.
func (s ServiceCode) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ServiceCode.
func (s ServiceCode) IsValid() bool {
	for _, candidate := range validServiceCodes {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseServiceCode converts raw input into a ServiceCode.
func ParseServiceCode(value string) (ServiceCode, error) {
	for _, candidate := range validServiceCodes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid service code %q", value)
}
