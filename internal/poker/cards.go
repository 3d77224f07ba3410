package poker

import "strconv"

// Card is one value from the estimation deck.
type Card string

const (
	CardUnknown Card = "?"
	CardBreak   Card = "☕"
)

// Deck is the ordered card catalogue offered to voters.
var Deck = []Card{"0", "1", "2", "3", "5", "8", "13", "21", CardUnknown, CardBreak}

// IsCard reports whether value is in the Deck.
func IsCard(value string) bool {
	for _, card := range Deck {
		if string(card) == value {
			return true
		}
	}
	return false
}

// Numeric returns the integer value of the card. The unknown and break
// cards are not numeric.
func (c Card) Numeric() (int, bool) {
	n, err := strconv.Atoi(string(c))
	if err != nil {
		return 0, false
	}
	return n, true
}
