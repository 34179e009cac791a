package mrz

import (
	"fmt"
	"strings"
)

var checkWeights = [3]int{7, 3, 1}

// Checksum computes the ICAO 9303 check digit of text. The 7-3-1 weight cycle
// is rotated left by startWeight positions before use. Letters count as 10-35,
// digits as their value, and every other character (including the filler) as 0.
func Checksum(text string, startWeight int) int {
	k := ((startWeight % 3) + 3) % 3
	sum, i := 0, 0
	for _, r := range strings.ToUpper(text) {
		sum += charValue(r) * checkWeights[(i+k)%3]
		i++
	}
	return sum % 10
}

func charValue(r rune) int {
	switch {
	case r >= '0' && r <= '9':
		return int(r - '0')
	case r >= 'A' && r <= 'Z':
		return int(r-'A') + 10
	default:
		return 0
	}
}

// CheckResult is the outcome of comparing one embedded check digit with the
// value computed from its field.
type CheckResult struct {
	Field    string `json:"field"`
	Expected int    `json:"expected"`
	Computed int    `json:"computed"`
	Valid    bool   `json:"valid"`
}

// Verification collects the check digit results of one MRZ.
type Verification struct {
	Checks []CheckResult `json:"checks"`
}

// Valid reports whether every check digit matched.
func (v Verification) Valid() bool {
	for _, c := range v.Checks {
		if !c.Valid {
			return false
		}
	}
	return len(v.Checks) > 0
}

// Failed returns the names of the fields whose check digit did not match.
func (v Verification) Failed() []string {
	var failed []string
	for _, c := range v.Checks {
		if !c.Valid {
			failed = append(failed, c.Field)
		}
	}
	return failed
}

// Check returns the result for field, if it was verified.
func (v Verification) Check(field string) (CheckResult, bool) {
	for _, c := range v.Checks {
		if c.Field == field {
			return c, true
		}
	}
	return CheckResult{}, false
}

// Verify recomputes every check digit embedded in raw. It never fails; fields
// that cannot be read are reported as mismatches.
func (l Layout) Verify(raw string) Verification {
	var composite strings.Builder
	for _, pos := range l.Composite {
		composite.WriteString(l.FieldSafe(raw, pos))
	}

	return Verification{Checks: []CheckResult{
		l.check("document_number", l.FieldSafe(raw, l.DocumentNumber), l.FieldSafe(raw, l.DocumentNumberCheck)),
		l.check("birth_date", l.FieldSafe(raw, l.BirthDate), l.FieldSafe(raw, l.BirthDateCheck)),
		l.check("expiry_date", l.FieldSafe(raw, l.ExpiryDate), l.FieldSafe(raw, l.ExpiryDateCheck)),
		l.check("composite", composite.String(), l.FieldSafe(raw, l.CompositeCheck)),
	}}
}

func (l Layout) check(field, value, digit string) CheckResult {
	computed := Checksum(value, 0)
	expected := -1
	if len(digit) == 1 {
		switch c := digit[0]; {
		case c >= '0' && c <= '9':
			expected = int(c - '0')
		case c == Filler:
			expected = 0
		}
	}
	return CheckResult{
		Field:    field,
		Expected: expected,
		Computed: computed,
		Valid:    expected == computed,
	}
}

// ChecksumError is returned by Parse in strict mode when check digits disagree.
type ChecksumError struct {
	Fields []string
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("mrz: check digit mismatch in %s", strings.Join(e.Fields, ", "))
}
