// Package naming turns FHIR identifiers into Go identifiers and file names.
package naming

import (
	"go/token"
	"strings"
	"unicode"

	"github.com/go-openapi/inflect"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// acronyms are words rendered in upper case inside Go identifiers.
var acronyms = map[string]struct{}{
	"api":  {},
	"cda":  {},
	"html": {},
	"http": {},
	"id":   {},
	"json": {},
	"oid":  {},
	"uri":  {},
	"url":  {},
	"uuid": {},
	"xml":  {},
}

// ChoiceSuffix marks a FHIR choice element (value[x]).
const ChoiceSuffix = "[x]"

// Pascal returns the exported Go identifier for a FHIR name.
//
//	Pascal("generalPractitioner") == "GeneralPractitioner"
//	Pascal("linkId")              == "LinkID"
//	Pascal("value[x]")            == "Value"
//	Pascal("us-core-race")        == "UsCoreRace"
func Pascal(s string) string {
	var b strings.Builder
	for _, w := range words(strings.TrimSuffix(s, ChoiceSuffix)) {
		lw := strings.ToLower(w)
		switch _, ok := acronyms[lw]; {
		case ok:
			b.WriteString(strings.ToUpper(w))
		case w == lw:
			b.WriteString(cases.Title(language.English).String(w))
		default:
			b.WriteString(upperFirst(w))
		}
	}
	id := b.String()
	if id == "" {
		return "X"
	}
	if !token.IsIdentifier(id) {
		id = "X" + id
	}
	return id
}

// TypeName joins the Pascal-cased segments of a structural path.
//
//	TypeName("Patient", "contact") == "PatientContact"
func TypeName(segments ...string) string {
	var b strings.Builder
	for _, s := range segments {
		b.WriteString(Pascal(s))
	}
	return b.String()
}

// TypeNameOf is TypeName over a dotted path.
func TypeNameOf(path string) string {
	return TypeName(strings.Split(path, ".")...)
}

// ChoiceName returns the JSON name of one typed variant of a choice element.
//
//	ChoiceName("value[x]", "dateTime") == "valueDateTime"
func ChoiceName(name, code string) string {
	return strings.TrimSuffix(name, ChoiceSuffix) + upperFirst(code)
}

// IsChoice reports whether name is a choice element name.
func IsChoice(name string) bool {
	return strings.HasSuffix(name, ChoiceSuffix)
}

// FileName returns the Go file name for a type.
func FileName(name string) string {
	base := inflect.Underscore(name)
	if strings.HasSuffix(base, "_test") {
		base += "_"
	}
	return base + ".go"
}

// Receiver returns the method receiver name for a type: the lower-cased
// initials of its words.
//
//	Receiver("PatientContact") == "pc"
func Receiver(typ string) string {
	rs := []rune(strings.TrimLeft(typ, "[]*0123456789"))
	var b strings.Builder
	for i, r := range rs {
		if !unicode.IsUpper(r) && i > 0 {
			continue
		}
		prevLower := i > 0 && unicode.IsLower(rs[i-1])
		nextLower := i+1 < len(rs) && unicode.IsLower(rs[i+1])
		if i == 0 || prevLower || nextLower {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	name := b.String()
	if name == "" {
		return "x"
	}
	if token.Lookup(name).IsKeyword() {
		return "_" + name
	}
	return name
}

// words splits s on non-alphanumerics and on lower-to-upper transitions.
func words(s string) []string {
	var (
		out []string
		cur []rune
	)
	flush := func() {
		if len(cur) > 0 {
			out = append(out, string(cur))
			cur = cur[:0]
		}
	}
	for i, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			flush()
			continue
		}
		if unicode.IsUpper(r) && i > 0 && len(cur) > 0 {
			last := cur[len(cur)-1]
			if unicode.IsLower(last) || unicode.IsDigit(last) {
				flush()
			}
		}
		cur = append(cur, r)
	}
	flush()
	return out
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	rs := []rune(s)
	rs[0] = unicode.ToUpper(rs[0])
	return string(rs)
}
