package mrz

import (
	"strings"
	"time"
)

// Identity is the person data decoded from one MRZ. Fields that could not be
// decoded are left empty, and BirthDate stays nil rather than holding a
// placeholder date.
type Identity struct {
	DocumentType   DocumentType `json:"document_type"`
	DocumentCode   string       `json:"document_code,omitempty"`
	DocumentNumber string       `json:"document_number,omitempty"`

	FirstName  string     `json:"first_name"`
	LastName   string     `json:"last_name"`
	BirthDate  *time.Time `json:"birth_date,omitempty"`
	Sex        string     `json:"sex,omitempty"`
	ExpiryDate *time.Time `json:"expiry_date,omitempty"`

	// BirthDateAmbiguous is set when the two-digit birth year fits two
	// centuries under the pivot policy; the operator has to confirm it.
	BirthDateAmbiguous bool `json:"birth_date_ambiguous,omitempty"`

	Nationality      string `json:"nationality"`
	NationalityCode  string `json:"nationality_code,omitempty"`
	IssuingState     string `json:"issuing_state"`
	IssuingStateCode string `json:"issuing_state_code,omitempty"`

	Checks Verification `json:"checks"`
}

// ChecksumsValid reports whether every embedded check digit matched.
func (id *Identity) ChecksumsValid() bool {
	return id.Checks.Valid()
}

// Project decodes the fields of raw according to layout. It does not fail:
// unreadable sub-fields are returned empty so that a human can fill them in.
func Project(layout Layout, raw string, opts Options) Identity {
	opts = opts.withDefaults()
	raw = Normalize(raw)

	last, first := SplitNames(layout.FieldSafe(raw, layout.Names))

	id := Identity{
		DocumentType:     layout.Type,
		DocumentCode:     strings.Trim(layout.FieldSafe(raw, layout.DocumentCode), string(Filler)),
		DocumentNumber:   strings.Trim(layout.FieldSafe(raw, layout.DocumentNumber), string(Filler)),
		FirstName:        first,
		LastName:         last,
		Sex:              parseSex(layout.FieldSafe(raw, layout.Sex)),
		NationalityCode:  CleanCode(layout.FieldSafe(raw, layout.Nationality)),
		IssuingStateCode: CleanCode(layout.FieldSafe(raw, layout.IssuerCountry)),
		Checks:           layout.Verify(raw),
	}
	id.Nationality = ResolveCountry(id.NationalityCode)
	id.IssuingState = ResolveCountry(id.IssuingStateCode)

	if birth, ambiguous, ok := ParseDate(layout.FieldSafe(raw, layout.BirthDate), opts.CenturyPivot); ok {
		id.BirthDate = &birth
		id.BirthDateAmbiguous = ambiguous
	}
	if expiry, _, ok := ParseDate(layout.FieldSafe(raw, layout.ExpiryDate), ExpiryPivot); ok {
		id.ExpiryDate = &expiry
	}

	return id
}

// SplitNames splits an MRZ name field at the first double filler into surname
// and given names. Single fillers become spaces. Without a separator the whole
// field is the surname.
func SplitNames(field string) (last, first string) {
	idx := strings.Index(field, "<<")
	if idx < 0 {
		return cleanName(field), ""
	}
	return cleanName(field[:idx]), cleanName(field[idx+2:])
}

func cleanName(s string) string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == Filler || r == ' '
	})
	return strings.Join(parts, " ")
}

func parseSex(s string) string {
	switch s {
	case "M", "F":
		return s
	case "X", string(Filler):
		return "X"
	default:
		return ""
	}
}

// ParseDate decodes a YYMMDD field, choosing the century with pivot. ok is
// false for non-digit input or dates that do not exist in the calendar.
func ParseDate(field string, pivot CenturyPivot) (date time.Time, ambiguous bool, ok bool) {
	if len(field) != 6 {
		return time.Time{}, false, false
	}
	for i := 0; i < len(field); i++ {
		if field[i] < '0' || field[i] > '9' {
			return time.Time{}, false, false
		}
	}

	yy := int(field[0]-'0')*10 + int(field[1]-'0')
	month := time.Month(int(field[2]-'0')*10 + int(field[3]-'0'))
	day := int(field[4]-'0')*10 + int(field[5]-'0')
	year, ambiguous := pivot(yy, month, day)

	date = time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes overflow (e.g. 31 April); reject those.
	if date.Year() != year || date.Month() != month || date.Day() != day {
		return time.Time{}, false, false
	}
	return date, ambiguous, true
}
