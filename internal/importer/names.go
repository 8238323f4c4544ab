package importer

import (
	"encoding/binary"
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Character name limits.
const (
	MinNameLen = 2
	MaxNameLen = 15
)

// itemIDSpace namespaces the name-based UUIDs item ids are derived from.
var itemIDSpace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("d2s:item-id"))

// ValidateName checks a character name: 2 to 15 ASCII letters with at most
// one '-' or '_', which may not be the first or last character.
func ValidateName(name string) error {
	if len(name) < MinNameLen || len(name) > MaxNameLen {
		return fmt.Errorf("name %q must be %d-%d characters", name, MinNameLen, MaxNameLen)
	}
	separators := 0
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z'):
		case c == '-' || c == '_':
			if i == 0 || i == len(name)-1 {
				return fmt.Errorf("name %q may not start or end with %q", name, c)
			}
			separators++
		default:
			return fmt.Errorf("name %q contains invalid character %q", name, c)
		}
	}
	if separators > 1 {
		return fmt.Errorf("name %q may contain at most one '-' or '_'", name)
	}
	return nil
}

// FoldOwner maps a personalization name onto the 7-bit alphabet the save
// format stores: accented letters lose their marks ("Zoë" becomes "Zoe").
//
// Postcondition: the result is pure ASCII, or an error names the first rune
// that has no ASCII fold.
func FoldOwner(owner string) (string, error) {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, owner)
	if err != nil {
		return "", fmt.Errorf("folding owner %q: %w", owner, err)
	}
	if i := strings.IndexFunc(folded, func(r rune) bool { return r > unicode.MaxASCII }); i >= 0 {
		r := []rune(folded[i:])[0]
		return "", fmt.Errorf("owner %q: %q has no 7-bit form", owner, r)
	}
	return folded, nil
}

// DeriveItemID returns a stable 32-bit item id for the item at path inside
// the named character's submission.
//
// Postcondition: equal (character, path) pairs always yield the same id.
func DeriveItemID(character, path string) uint32 {
	u := uuid.NewSHA1(itemIDSpace, []byte(character+"/"+path))
	return binary.BigEndian.Uint32(u[:4])
}
