// Package mrz decodes ICAO 9303 machine-readable zones of ID cards (TD1),
// travel documents (TD2) and passports (TD3).
//
// Everything in this package is a pure function of its input and the static
// layout and country tables, so it can be called concurrently without locking.
package mrz

// Parse normalizes candidate, classifies it and decodes it. It returns
// ErrUnrecognizedFormat when no layout matches. With StrictChecksums set, a
// check digit mismatch yields both the decoded identity and a *ChecksumError.
func Parse(candidate string, opts Options) (*Identity, error) {
	raw := Normalize(candidate)
	layout, err := Classify(raw)
	if err != nil {
		return nil, err
	}

	id := Project(layout, raw, opts)
	if opts.StrictChecksums && !id.Checks.Valid() {
		return &id, &ChecksumError{Fields: id.Checks.Failed()}
	}
	return &id, nil
}

// ParseMRZ decodes candidate with default options, returning nil when the
// format is not recognized.
func ParseMRZ(candidate string) *Identity {
	id, err := Parse(candidate, DefaultOptions())
	if err != nil {
		return nil
	}
	return id
}
