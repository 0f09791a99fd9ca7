package domain

// Character is the content of a single cell. The alphabet is A-Z plus the
// digraph IJ, which counts as one letter in Swedish-style crosswords.
type Character uint8

const (
	None Character = 0
	A    Character = 1
	I    Character = 9
	J    Character = 10
	Z    Character = 26
	IJ   Character = 27
)

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// CharacterFromKey maps a typed letter key ('A'..'Z') to a Character.
// Any other rune maps to None.
func CharacterFromKey(key rune) Character {
	if key >= 'a' && key <= 'z' {
		key -= 'a' - 'A'
	}
	if key < 'A' || key > 'Z' {
		return None
	}
	return Character(key-'A') + 1
}

// EncodeCharacter renders a Character as its wire value: a single upper case
// letter, "ij" for the digraph, or the empty string for None.
func EncodeCharacter(c Character) string {
	switch {
	case c == None:
		return ""
	case c == IJ:
		return "ij"
	case c >= A && c <= Z:
		return alphabet[c-1 : c]
	default:
		return ""
	}
}

// DecodeCharacter parses a wire value back into a Character.
// Unrecognized values are coerced to None instead of rejected, so a record
// written by a newer revision still loads.
func DecodeCharacter(s string) Character {
	switch {
	case s == "":
		return None
	case s == "ij":
		return IJ
	case len(s) == 1 && s[0] >= 'A' && s[0] <= 'Z':
		return Character(s[0]-'A') + 1
	default:
		return None
	}
}

func (c Character) String() string {
	if c == None {
		return "·"
	}
	return EncodeCharacter(c)
}
