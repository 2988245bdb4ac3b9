package utils

import (
	"fmt"
)

// ValidatePayer validates a payer identifier: an 11-digit national identity
// number or a 9-digit organisation number, both carrying modulus-11 check
// digits.
func ValidatePayer(payer string) error {
	digits, err := toDigits(payer)
	if err != nil {
		return err
	}

	switch len(digits) {
	case 9:
		return validateOrganisationNumber(digits)
	case 11:
		return validateNationalIdentityNumber(digits)
	default:
		return fmt.Errorf("payer must be 9 or 11 digits, got %d", len(digits))
	}
}

func toDigits(s string) ([]int, error) {
	if s == "" {
		return nil, fmt.Errorf("payer is required")
	}
	digits := make([]int, 0, len(s))
	for _, r := range s {
		if r < '0' || r > '9' {
			return nil, fmt.Errorf("payer must contain digits only")
		}
		digits = append(digits, int(r-'0'))
	}
	return digits, nil
}

var (
	orgWeights  = []int{3, 2, 7, 6, 5, 4, 3, 2}
	nin1Weights = []int{3, 7, 6, 1, 8, 9, 4, 5, 2}
	nin2Weights = []int{5, 4, 3, 2, 7, 6, 5, 4, 3, 2}
)

func validateOrganisationNumber(digits []int) error {
	if checkDigit(digits, orgWeights) != digits[8] {
		return fmt.Errorf("invalid organisation number check digit")
	}
	return nil
}

func validateNationalIdentityNumber(digits []int) error {
	if checkDigit(digits, nin1Weights) != digits[9] {
		return fmt.Errorf("invalid national identity number check digit")
	}
	if checkDigit(digits, nin2Weights) != digits[10] {
		return fmt.Errorf("invalid national identity number check digit")
	}
	return nil
}

// checkDigit computes the modulus-11 check digit over the weighted prefix.
// A remainder that would need check digit 10 makes the number invalid; -1 is
// returned so the comparison always fails.
func checkDigit(digits, weights []int) int {
	sum := 0
	for i, w := range weights {
		sum += digits[i] * w
	}
	rem := sum % 11
	switch rem {
	case 0:
		return 0
	case 1:
		return -1
	default:
		return 11 - rem
	}
}
