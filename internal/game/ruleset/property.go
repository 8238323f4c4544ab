// Package ruleset holds the static lookup tables the save encoder consults:
// magical property widths and biases, and item type classification.
package ruleset

import (
	"embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed data/*.yaml
var embedded embed.FS

// MaxPropertyID is the highest property id a property list may carry. The
// 9-bit id 0x1FF is reserved as the list terminator.
const MaxPropertyID = 254

// MaxPropertyWidth bounds the value field width of a single property.
const MaxPropertyWidth = 32

// Stat describes how a property value is stored.
type Stat struct {
	ID    int    `yaml:"id"`
	Name  string `yaml:"name"`
	Width uint   `yaml:"width"`
	Bias  int64  `yaml:"bias"`
}

// PropertyIDError reports a property id outside [0, MaxPropertyID].
type PropertyIDError struct {
	ID int
}

func (e *PropertyIDError) Error() string {
	return fmt.Sprintf("ruleset: property id %d does not exist (valid 0-%d)", e.ID, MaxPropertyID)
}

// UndefinedPropertyError reports an id inside [0, MaxPropertyID] that the
// table has no entry for. Its width is unknown, so it cannot be written.
type UndefinedPropertyError struct {
	ID int
}

func (e *UndefinedPropertyError) Error() string {
	return fmt.Sprintf("ruleset: property id %d has no table entry", e.ID)
}

// PropertyTable maps every property id 0..MaxPropertyID to its Stat.
type PropertyTable struct {
	stats [MaxPropertyID + 1]Stat
}

type propertyFile struct {
	Properties []Stat `yaml:"properties"`
}

// Lookup returns the Stat of id.
//
// Postcondition: returns a defined Stat, a *PropertyIDError when id is out of
// range, or an *UndefinedPropertyError when the table has no entry for id.
func (t *PropertyTable) Lookup(id int) (Stat, error) {
	if id < 0 || id > MaxPropertyID {
		return Stat{}, &PropertyIDError{ID: id}
	}
	s := t.stats[id]
	if s.Name == "" {
		return Stat{}, &UndefinedPropertyError{ID: id}
	}
	return s, nil
}

// ByName returns the Stat whose name is name.
func (t *PropertyTable) ByName(name string) (Stat, bool) {
	for _, s := range t.stats {
		if s.Name != "" && s.Name == name {
			return s, true
		}
	}
	return Stat{}, false
}

// Defined returns the Stats that have a table entry, in id order.
func (t *PropertyTable) Defined() []Stat {
	var out []Stat
	for _, s := range t.stats {
		if s.Name != "" {
			out = append(out, s)
		}
	}
	return out
}

// ParsePropertyTable parses and validates a property table document.
//
// Postcondition: returns a complete table or an error listing every invalid entry.
func ParsePropertyTable(data []byte) (*PropertyTable, error) {
	var f propertyFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing property table: %w", err)
	}
	t := &PropertyTable{}
	for i := range t.stats {
		t.stats[i].ID = i
	}
	var errs []error
	seen := make(map[int]bool, len(f.Properties))
	for _, s := range f.Properties {
		switch {
		case s.ID < 0 || s.ID > MaxPropertyID:
			errs = append(errs, &PropertyIDError{ID: s.ID})
			continue
		case seen[s.ID]:
			errs = append(errs, fmt.Errorf("property %d defined more than once", s.ID))
			continue
		case s.Name == "":
			errs = append(errs, fmt.Errorf("property %d: name must not be empty", s.ID))
		case s.Width == 0:
			errs = append(errs, fmt.Errorf("property %d: width must be at least 1", s.ID))
		case s.Width > MaxPropertyWidth:
			errs = append(errs, fmt.Errorf("property %d: width %d exceeds %d", s.ID, s.Width, MaxPropertyWidth))
		}
		seen[s.ID] = true
		t.stats[s.ID] = s
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("property table validation failed: %w", errors.Join(errs...))
	}
	return t, nil
}

// LoadPropertyTable reads a property table from path.
//
// Precondition: path names a readable YAML file.
func LoadPropertyTable(path string) (*PropertyTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading property table %s: %w", path, err)
	}
	t, err := ParsePropertyTable(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// DefaultPropertyTable returns the built-in property table.
//
// Postcondition: never fails for the embedded data; a failure is a build defect.
func DefaultPropertyTable() (*PropertyTable, error) {
	data, err := embedded.ReadFile("data/properties.yaml")
	if err != nil {
		return nil, fmt.Errorf("reading embedded property table: %w", err)
	}
	return ParsePropertyTable(data)
}
