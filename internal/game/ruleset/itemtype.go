package ruleset

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ItemTypes classifies base item type codes.
type ItemTypes struct {
	armor    map[string]bool
	shields  map[string]bool
	weapons  map[string]bool
	tomes    map[string]bool
	quantity map[string]bool
}

type itemTypesFile struct {
	Armor    []string `yaml:"armor"`
	Shields  []string `yaml:"shields"`
	Weapons  []string `yaml:"weapons"`
	Tomes    []string `yaml:"tomes"`
	Quantity []string `yaml:"quantity"`
}

func baseCode(code string) string {
	return strings.TrimRight(code, " ")
}

// IsArmorOrShield reports whether the type carries a defense value.
func (t *ItemTypes) IsArmorOrShield(code string) bool {
	c := baseCode(code)
	return t.armor[c] || t.shields[c]
}

// IsNonMisc reports whether the type is a weapon, armor or shield and so
// carries durability.
func (t *ItemTypes) IsNonMisc(code string) bool {
	c := baseCode(code)
	return t.armor[c] || t.shields[c] || t.weapons[c]
}

// IsTome reports whether the type is a tome.
func (t *ItemTypes) IsTome(code string) bool {
	return t.tomes[baseCode(code)]
}

// HasQuantity reports whether the type is stackable.
func (t *ItemTypes) HasQuantity(code string) bool {
	return t.quantity[baseCode(code)]
}

// ParseItemTypes parses and validates an item type document.
//
// Postcondition: returns a classifier or an error listing every invalid code.
func ParseItemTypes(data []byte) (*ItemTypes, error) {
	var f itemTypesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing item types: %w", err)
	}
	var errs []error
	set := func(group string, codes []string) map[string]bool {
		m := make(map[string]bool, len(codes))
		for _, c := range codes {
			if len(c) != 3 {
				errs = append(errs, fmt.Errorf("%s: type code %q must be 3 characters", group, c))
				continue
			}
			m[c] = true
		}
		return m
	}
	t := &ItemTypes{
		armor:    set("armor", f.Armor),
		shields:  set("shields", f.Shields),
		weapons:  set("weapons", f.Weapons),
		tomes:    set("tomes", f.Tomes),
		quantity: set("quantity", f.Quantity),
	}
	for c := range t.armor {
		if t.shields[c] || t.weapons[c] {
			errs = append(errs, fmt.Errorf("type code %q is listed in more than one equipment group", c))
		}
	}
	for c := range t.shields {
		if t.weapons[c] {
			errs = append(errs, fmt.Errorf("type code %q is listed in more than one equipment group", c))
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("item type validation failed: %w", errors.Join(errs...))
	}
	return t, nil
}

// LoadItemTypes reads an item type document from path.
//
// Precondition: path names a readable YAML file.
func LoadItemTypes(path string) (*ItemTypes, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading item types %s: %w", path, err)
	}
	t, err := ParseItemTypes(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// DefaultItemTypes returns the built-in item type classifier.
func DefaultItemTypes() (*ItemTypes, error) {
	data, err := embedded.ReadFile("data/item_types.yaml")
	if err != nil {
		return nil, fmt.Errorf("reading embedded item types: %w", err)
	}
	return ParseItemTypes(data)
}
