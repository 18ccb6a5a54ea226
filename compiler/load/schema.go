package load

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Bundle is one self-contained collection of definitions loaded from a
// single source (a file, an embedded asset, a reader).
type Bundle struct {
	// Source names where the bundle was loaded from.
	Source string `json:"source,omitempty"`
	// Definitions in the order they appear in the source.
	Definitions []*Definition `json:"definitions,omitempty"`
}

// Definition is a StructureDefinition reduced to what the hierarchy
// builder needs: a name, a kind classifier and its element sequence.
type Definition struct {
	ID          string     `json:"id,omitempty"`
	URL         string     `json:"url,omitempty"`
	Name        string     `json:"name,omitempty"`
	Type        string     `json:"type,omitempty"`
	Kind        string     `json:"kind,omitempty"`
	Abstract    bool       `json:"abstract,omitempty"`
	BaseDef     string     `json:"baseDefinition,omitempty"`
	Description string     `json:"description,omitempty"`
	Elements    []*Element `json:"-"`
}

// Element is one raw ElementDefinition record as found in the snapshot
// (or differential) of a StructureDefinition. Pointers distinguish an
// absent value from its zero value.
type Element struct {
	ID               string     `json:"id,omitempty"`
	Path             *string    `json:"path,omitempty"`
	Short            string     `json:"short,omitempty"`
	Definition       string     `json:"definition,omitempty"`
	Comment          string     `json:"comment,omitempty"`
	Min              *int       `json:"min,omitempty"`
	Max              *string    `json:"max,omitempty"`
	Type             []*TypeRef `json:"type,omitempty"`
	ContentReference string     `json:"contentReference,omitempty"`
	ValueSet         string     `json:"valueSet,omitempty"`
	Binding          *Binding   `json:"binding,omitempty"`
}

// TypeRef is one entry of an element's type list.
type TypeRef struct {
	Code          string     `json:"code,omitempty"`
	TargetProfile Canonicals `json:"targetProfile,omitempty"`
	Profile       Canonicals `json:"profile,omitempty"`
}

// Binding associates an element with a value set.
type Binding struct {
	Strength    string       `json:"strength,omitempty"`
	Description string       `json:"description,omitempty"`
	ValueSet    string       `json:"valueSet,omitempty"`
	Extension   []*Extension `json:"extension,omitempty"`
}

// Extension is a FHIR extension entry. Only string values are modeled.
type Extension struct {
	URL         string `json:"url,omitempty"`
	ValueString string `json:"valueString,omitempty"`
}

// Canonicals is a list of canonical URLs. STU3 encodes a single URL as a
// string where R4 and later use an array; both decode to the same list.
type Canonicals []string

// UnmarshalJSON implements json.Unmarshaler.
func (c *Canonicals) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*c = nil
		return nil
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*c = Canonicals{s}
		return nil
	case len(b) > 0 && b[0] == '[':
		var l []string
		if err := json.Unmarshal(b, &l); err != nil {
			return err
		}
		*c = l
		return nil
	default:
		return fmt.Errorf("canonical: unexpected JSON %s", b)
	}
}

// DisplayName returns the name the definition is known by: its name,
// else its type, else its id.
func (d *Definition) DisplayName() string {
	switch {
	case d.Name != "":
		return d.Name
	case d.Type != "":
		return d.Type
	default:
		return d.ID
	}
}

// PathString returns the element path or the empty string.
func (e *Element) PathString() string {
	if e.Path == nil {
		return ""
	}
	return *e.Path
}
