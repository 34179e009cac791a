package mrz

// Filler is the MRZ padding and separator character.
const Filler = '<'

// DocumentType identifies one of the ICAO 9303 MRZ formats
type DocumentType int

const (
	// TD1 is the three-line, 30 column ID card format
	TD1 DocumentType = iota + 1
	// TD2 is the two-line, 36 column travel document format
	TD2
	// TD3 is the two-line, 44 column passport format
	TD3
)

func (t DocumentType) String() string {
	switch t {
	case TD1:
		return "TD1"
	case TD2:
		return "TD2"
	case TD3:
		return "TD3"
	default:
		return "unknown"
	}
}

// MarshalText encodes the type by its ICAO designation.
func (t DocumentType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText decodes an ICAO designation; anything else is the zero type.
func (t *DocumentType) UnmarshalText(text []byte) error {
	switch string(text) {
	case "TD1":
		*t = TD1
	case "TD2":
		*t = TD2
	case "TD3":
		*t = TD3
	default:
		*t = 0
	}
	return nil
}

// Position addresses one field inside a fixed-width MRZ.
// Row and columns are 1-based; End is inclusive.
type Position struct {
	Row   int
	Start int
	End   int
}

// Len returns the number of characters covered by the position.
func (p Position) Len() int {
	return p.End - p.Start + 1
}

// Layout describes the geometry of one MRZ document type.
type Layout struct {
	Type      DocumentType
	RowLength int
	RowCount  int

	IssuerCountry  Position
	Names          Position
	BirthDate      Position
	BirthDateCheck Position
	Nationality    Position

	DocumentCode        Position
	DocumentNumber      Position
	DocumentNumberCheck Position
	Sex                 Position
	ExpiryDate          Position
	ExpiryDateCheck     Position
	CompositeCheck      Position

	// Composite lists the ranges whose concatenation is covered by CompositeCheck.
	Composite []Position
}

// Length is the total number of characters of a well-formed MRZ of this layout.
func (l Layout) Length() int {
	return l.RowLength * l.RowCount
}

// Positions returns every single field position of the layout, keyed by field name.
func (l Layout) Positions() map[string]Position {
	return map[string]Position{
		"issuer_country":        l.IssuerCountry,
		"names":                 l.Names,
		"birth_date":            l.BirthDate,
		"birth_date_check":      l.BirthDateCheck,
		"nationality":           l.Nationality,
		"document_code":         l.DocumentCode,
		"document_number":       l.DocumentNumber,
		"document_number_check": l.DocumentNumberCheck,
		"sex":                   l.Sex,
		"expiry_date":           l.ExpiryDate,
		"expiry_date_check":     l.ExpiryDateCheck,
		"composite_check":       l.CompositeCheck,
	}
}

var (
	// IDCard is the TD1 layout (30 x 3).
	IDCard = Layout{
		Type:      TD1,
		RowLength: 30,
		RowCount:  3,

		IssuerCountry:  Position{1, 3, 5},
		Names:          Position{3, 1, 30},
		BirthDate:      Position{2, 1, 6},
		BirthDateCheck: Position{2, 7, 7},
		Nationality:    Position{2, 16, 18},

		DocumentCode:        Position{1, 1, 2},
		DocumentNumber:      Position{1, 6, 14},
		DocumentNumberCheck: Position{1, 15, 15},
		Sex:                 Position{2, 8, 8},
		ExpiryDate:          Position{2, 9, 14},
		ExpiryDateCheck:     Position{2, 15, 15},
		CompositeCheck:      Position{2, 30, 30},
		Composite: []Position{
			{1, 6, 30},
			{2, 1, 7},
			{2, 9, 15},
			{2, 19, 29},
		},
	}

	// TravelDocument is the TD2 layout (36 x 2).
	TravelDocument = Layout{
		Type:      TD2,
		RowLength: 36,
		RowCount:  2,

		IssuerCountry:  Position{1, 3, 5},
		Names:          Position{1, 6, 36},
		BirthDate:      Position{2, 14, 19},
		BirthDateCheck: Position{2, 20, 20},
		Nationality:    Position{2, 11, 13},

		DocumentCode:        Position{1, 1, 2},
		DocumentNumber:      Position{2, 1, 9},
		DocumentNumberCheck: Position{2, 10, 10},
		Sex:                 Position{2, 21, 21},
		ExpiryDate:          Position{2, 22, 27},
		ExpiryDateCheck:     Position{2, 28, 28},
		CompositeCheck:      Position{2, 36, 36},
		Composite: []Position{
			{2, 1, 10},
			{2, 14, 20},
			{2, 22, 35},
		},
	}

	// Passport is the TD3 layout (44 x 2).
	Passport = Layout{
		Type:      TD3,
		RowLength: 44,
		RowCount:  2,

		IssuerCountry:  Position{1, 3, 5},
		Names:          Position{1, 6, 44},
		BirthDate:      Position{2, 14, 19},
		BirthDateCheck: Position{2, 20, 20},
		Nationality:    Position{2, 11, 13},

		DocumentCode:        Position{1, 1, 2},
		DocumentNumber:      Position{2, 1, 9},
		DocumentNumberCheck: Position{2, 10, 10},
		Sex:                 Position{2, 21, 21},
		ExpiryDate:          Position{2, 22, 27},
		ExpiryDateCheck:     Position{2, 28, 28},
		CompositeCheck:      Position{2, 44, 44},
		Composite: []Position{
			{2, 1, 10},
			{2, 14, 20},
			{2, 22, 43},
		},
	}
)

// Layouts lists the supported layouts in classification order.
func Layouts() []Layout {
	return []Layout{Passport, TravelDocument, IDCard}
}
