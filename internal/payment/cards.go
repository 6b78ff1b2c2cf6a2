// Package payment simulates a card gateway against a fixed table of test numbers.
package payment

import (
	"errors"
	"regexp"
	"strings"
)

var (
	ErrCardDigits = errors.New("card number must contain only digits")
	ErrCardLength = errors.New("invalid card number length")
	ErrExpiry     = errors.New("expiry must be in MM/YY or MM/YYYY format")
	ErrCVV        = errors.New("CVV must be 3 or 4 digits")
)

var expiryPattern = regexp.MustCompile(`^\d{2}/(\d{2}|\d{4})$`)

type testCard struct {
	brand    string
	declined bool
	reason   string
}

var testCards = map[string]testCard{
	"4242424242424242": {brand: "Visa"},
	"5555555555554444": {brand: "Mastercard"},
	"378282246310005":  {brand: "American Express"},
	"6011111111111117": {brand: "Discover"},

	"4000000000000002": {brand: "Visa", declined: true, reason: "Card declined"},
	"4000000000009995": {brand: "Visa", declined: true, reason: "Insufficient funds"},
	"4000000000000069": {brand: "Visa", declined: true, reason: "Card expired"},
	"4000000000000127": {brand: "Visa", declined: true, reason: "Invalid CVV"},
}

// NormalizeCardNumber strips spaces and dashes and checks for 13-19 digits.
func NormalizeCardNumber(number string) (string, error) {
	card := strings.NewReplacer(" ", "", "-", "").Replace(number)
	if card == "" || !digitsOnly(card) {
		return "", ErrCardDigits
	}
	if len(card) < 13 || len(card) > 19 {
		return "", ErrCardLength
	}
	return card, nil
}

func ValidateExpiry(expiry string) error {
	if !expiryPattern.MatchString(expiry) {
		return ErrExpiry
	}
	return nil
}

func ValidateCVV(cvv string) error {
	if len(cvv) < 3 || len(cvv) > 4 || !digitsOnly(cvv) {
		return ErrCVV
	}
	return nil
}

// Brand infers the card network from the number prefix.
func Brand(number string) string {
	switch {
	case strings.HasPrefix(number, "4"):
		return "Visa"
	case hasAnyPrefix(number, "51", "52", "53", "54", "55"):
		return "Mastercard"
	case hasAnyPrefix(number, "34", "37"):
		return "American Express"
	case strings.HasPrefix(number, "6011"):
		return "Discover"
	}
	return "Unknown"
}

func LastFour(number string) string {
	if len(number) <= 4 {
		return number
	}
	return number[len(number)-4:]
}

func digitsOnly(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
