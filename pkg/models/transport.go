package models

import (
	"time"

	"go-disaster-id-scan/internal/capture"
	"go-disaster-id-scan/internal/mrz"
	"go-disaster-id-scan/internal/repository"
	"go-disaster-id-scan/internal/scanner"
	"go-disaster-id-scan/pkg/validation"
)

// ParseRequest decodes MRZ text typed in or recognized on the client
type ParseRequest struct {
	Text            string `json:"text" binding:"required"`
	StrictChecksums bool   `json:"strict_checksums,omitempty"`
	// CenturyPivot, when set, replaces the age-based century choice for
	// birth years: years below the pivot are 20xx, the rest 19xx.
	CenturyPivot *int `json:"century_pivot,omitempty" binding:"omitempty,min=0,max=99"`
}

// ScanURLRequest asks the service to fetch and scan a remote frame
type ScanURLRequest struct {
	URL         string `json:"url" binding:"required,url"`
	ExpectedMRZ string `json:"expected_mrz,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Details string `json:"details,omitempty"`
	// Result holds a decode that failed verification, for operator review.
	Result *ScanResponse `json:"result,omitempty"`
}

// ScanResponse carries a decoded identity for operator review. Nothing is
// stored until the operator registers it.
type ScanResponse struct {
	Identity          *mrz.Identity          `json:"identity"`
	Candidate         string                 `json:"candidate"`
	Strategy          string                 `json:"strategy,omitempty"`
	Confidence        float64                `json:"confidence,omitempty"`
	Quality           *capture.Assessment    `json:"quality,omitempty"`
	Accuracy          *scanner.Accuracy      `json:"accuracy,omitempty"`
	Registrant        *repository.Registrant `json:"registrant_draft"`
	Timestamp         string                 `json:"timestamp"`
	ProcessingTimeSec float64                `json:"processing_time_sec"`
}

// RegistrantRequest is the editable registration form. Dates are
// YYYY-MM-DD or DD.MM.YYYY.
type RegistrantRequest struct {
	FirstName          string `json:"first_name"`
	LastName           string `json:"last_name"`
	DateOfBirth        string `json:"date_of_birth"`
	Nationality        string `json:"nationality"`
	Residence          string `json:"residence"`
	PlaceOfCatastrophe string `json:"place_of_catastrophe"`
	PlaceOfShelter     string `json:"place_of_shelter"`
	DateOfCatastrophe  string `json:"date_of_catastrophe"`
	DocumentType       string `json:"document_type"`
	DocumentNumber     string `json:"document_number"`
	ChecksumsValid     bool   `json:"checksums_valid"`
}

// ToRegistrant converts the form, validating its dates.
func (r RegistrantRequest) ToRegistrant() (*repository.Registrant, error) {
	birth, err := validation.ParseDate("date_of_birth", r.DateOfBirth)
	if err != nil {
		return nil, err
	}
	catastrophe, err := validation.ParseDate("date_of_catastrophe", r.DateOfCatastrophe)
	if err != nil {
		return nil, err
	}

	return &repository.Registrant{
		FirstName:          r.FirstName,
		LastName:           r.LastName,
		DateOfBirth:        birth,
		Nationality:        r.Nationality,
		Residence:          r.Residence,
		PlaceOfCatastrophe: r.PlaceOfCatastrophe,
		PlaceOfShelter:     r.PlaceOfShelter,
		DateOfCatastrophe:  catastrophe,
		DocumentType:       r.DocumentType,
		DocumentNumber:     r.DocumentNumber,
		ChecksumsValid:     r.ChecksumsValid,
	}, nil
}

// RegistrantResponse is a stored registrant with its list label
type RegistrantResponse struct {
	*repository.Registrant
	DisplayName string `json:"display_name"`
}

// NewRegistrantResponse wraps r for output
func NewRegistrantResponse(r *repository.Registrant) RegistrantResponse {
	return RegistrantResponse{Registrant: r, DisplayName: r.DisplayName()}
}

// RegistrantListResponse lists registrants in registration order
type RegistrantListResponse struct {
	Registrants []RegistrantResponse `json:"registrants"`
	Count       int                  `json:"count"`
}

// HealthResponse reports service liveness
type HealthResponse struct {
	Status    string    `json:"status"`
	OCREngine string    `json:"ocr_engine"`
	Timestamp time.Time `json:"timestamp"`
}
