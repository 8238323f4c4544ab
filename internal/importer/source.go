package importer

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Document is a character submission: the character header plus the items
// it carries. Its YAML tags are the on-disk schema of a submission file.
type Document struct {
	Name      string    `yaml:"name"`
	Class     string    `yaml:"class"`
	Level     int       `yaml:"level"`
	Gold      int       `yaml:"gold,omitempty"`
	StashGold int       `yaml:"stash_gold,omitempty"`
	Items     []ItemDoc `yaml:"items,omitempty"`
}

// ItemDoc describes one item. Sockets lists the items filling its sockets in
// write order; a non-empty list implies the socketed flag.
type ItemDoc struct {
	Code       string       `yaml:"code"`
	Identified *bool        `yaml:"identified,omitempty"`
	Socketed   bool         `yaml:"socketed,omitempty"`
	Ethereal   bool         `yaml:"ethereal,omitempty"`
	Location   int          `yaml:"location,omitempty"`
	EquipSlot  int          `yaml:"equip_slot,omitempty"`
	X          int          `yaml:"x,omitempty"`
	Y          int          `yaml:"y,omitempty"`
	Store      int          `yaml:"store,omitempty"`
	Extended   *ExtendedDoc `yaml:"extended,omitempty"`
	Sockets    []ItemDoc    `yaml:"sockets,omitempty"`
}

// ExtendedDoc is the extended payload of a non-simple item. Optional fields
// are pointers; a present field sets its flag.
type ExtendedDoc struct {
	ID                *uint32       `yaml:"id,omitempty"`
	Level             int           `yaml:"level"`
	Quality           QualityDoc    `yaml:"quality"`
	ImageType         *int          `yaml:"image_type,omitempty"`
	ExpansionProperty *int          `yaml:"expansion_property,omitempty"`
	QualityData       *int          `yaml:"quality_data,omitempty"`
	Runeword          *int          `yaml:"runeword,omitempty"`
	Owner             string        `yaml:"owner,omitempty"`
	IdentifyAsTome    bool          `yaml:"identify_as_tome,omitempty"`
	Defense           int           `yaml:"defense,omitempty"`
	MaxDurability     int           `yaml:"max_durability,omitempty"`
	CurrentDurability int           `yaml:"current_durability,omitempty"`
	Sockets           int           `yaml:"sockets,omitempty"`
	Quantity          int           `yaml:"quantity,omitempty"`
	Properties        []PropertyDoc `yaml:"properties,omitempty"`
	SetBonuses        []PropertyDoc `yaml:"set_bonuses,omitempty"`
}

// QualityDoc selects a quality tier and carries the identifiers of that tier.
// Fields that do not belong to the tier must be left unset.
type QualityDoc struct {
	Tier       string `yaml:"tier"`
	Prefix     int    `yaml:"prefix,omitempty"`
	Suffix     int    `yaml:"suffix,omitempty"`
	SetID      int    `yaml:"set_id,omitempty"`
	UniqueID   int    `yaml:"unique_id,omitempty"`
	FirstWord  int    `yaml:"first_word,omitempty"`
	SecondWord int    `yaml:"second_word,omitempty"`
	Prefixes   []int  `yaml:"prefixes,omitempty"`
	Suffixes   []int  `yaml:"suffixes,omitempty"`
}

// PropertyDoc names a property by numeric id or by stat name. Exactly one of
// ID and Stat must be given.
type PropertyDoc struct {
	ID    *int   `yaml:"id,omitempty"`
	Stat  string `yaml:"stat,omitempty"`
	Value int64  `yaml:"value"`
}

// Source loads character submissions.
//
// Precondition: path must name a submission in the source's format.
// Postcondition: returns a non-nil Document, or a non-nil error.
type Source interface {
	Load(path string) (*Document, error)
}

// YAMLSource reads submissions written as YAML documents.
type YAMLSource struct{}

// NewYAMLSource returns a Source for YAML submissions.
func NewYAMLSource() *YAMLSource { return &YAMLSource{} }

// Load reads and parses the YAML submission at path.
func (s *YAMLSource) Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	doc, err := ParseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// ParseDocument parses a YAML submission. Unknown keys are rejected so that
// misspelled optional fields are not silently dropped.
func ParseDocument(data []byte) (*Document, error) {
	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}
	return &doc, nil
}
