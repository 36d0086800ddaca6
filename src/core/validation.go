package main

import (
	"regexp"
	"strings"
	"unicode"
)

// Request validation. These checks gate what enters the ledger; the state
// machine guards in bounties.go/hunters.go assume fields have already passed
// through here.

var accountRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_\-\.]{0,63}$`)

// IsValidAccount checks an account identifier's format
func IsValidAccount(account string) bool {
	return accountRegex.MatchString(account)
}

// Field length limits
const (
	MaxDigestLength      = 64
	MaxDescriptionLength = 4096
)

// ValidateStringField checks for max length and control characters
func ValidateStringField(s string, maxLength int) bool {
	if len(s) > maxLength {
		return false
	}
	for _, r := range s {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			return false
		}
	}
	return true
}

// XSSCheck rejects angle brackets in user-supplied text. Harmless on the
// ledger itself, but keeps stored text safe for off-chain display.
func XSSCheck(s string) bool {
	return !strings.ContainsAny(s, "<>")
}

// IsValidCategory checks a bounty category value
func IsValidCategory(category BountyCategory) bool {
	switch category {
	case CategoryDevelopment, CategoryDesign, CategoryDocument:
		return true
	}
	return false
}

// IsValidRemark checks a bounty remark value
func IsValidRemark(remark BountyRemark) bool {
	switch remark {
	case RemarkBad, RemarkNotGood, RemarkFine, RemarkGood, RemarkPerfect:
		return true
	}
	return false
}

// IsValidCurrency checks a currency identifier value
func IsValidCurrency(currency CurrencyId) bool {
	switch currency {
	case CurrencyNative, CurrencyUSDT, CurrencyAUSD, CurrencyDOT:
		return true
	}
	return false
}

// ValidateCreateRequest runs every format check a bounty creation needs
func ValidateCreateRequest(creator string, currency CurrencyId, payment uint64, digest string, category BountyCategory) string {
	if !IsValidAccount(creator) {
		return "invalid creator account"
	}
	if !IsValidCurrency(currency) {
		return "invalid currency"
	}
	if payment == 0 {
		return "payment must be positive"
	}
	if digest != "" && !IsValidDigest(digest) {
		return "invalid content digest"
	}
	if !XSSCheck(digest) {
		return "digest contains forbidden characters"
	}
	if !IsValidCategory(category) {
		return "invalid category"
	}
	return ""
}
