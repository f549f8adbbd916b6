package sync

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"pocketledger/internal/provider"
)

// CategoryLabel derives the budgeting label for a provider transaction. The
// structured personal-finance category wins when present; otherwise the first
// element of the legacy hierarchy is used. Returns "" for an uncategorized
// transaction, which stays unlinked.
func CategoryLabel(txn provider.Transaction) string {
	if txn.PersonalFinanceCategory != nil && txn.PersonalFinanceCategory.Primary != "" {
		return titleCase(txn.PersonalFinanceCategory.Primary)
	}
	if len(txn.Category) > 0 {
		return titleCase(txn.Category[0])
	}
	return ""
}

// titleCase turns a provider label like "FOOD_AND_DRINK" into "Food And
// Drink". Labels already in display form pass through unchanged.
func titleCase(label string) string {
	words := strings.FieldsFunc(label, func(r rune) bool {
		return r == '_' || r == ' '
	})
	for i, w := range words {
		lower := strings.ToLower(w)
		first, size := utf8.DecodeRuneInString(lower)
		words[i] = string(unicode.ToUpper(first)) + lower[size:]
	}
	return strings.Join(words, " ")
}
