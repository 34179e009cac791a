package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go-disaster-id-scan/internal/mrz"
)

// Registrant is one person registered at a shelter. Any field may be empty:
// data is taken from damaged documents or entered by hand under pressure.
type Registrant struct {
	ID          string     `json:"id"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
	Nationality string     `json:"nationality"`
	// Residence is the state the person lives in; from a document it is the
	// issuing state.
	Residence          string     `json:"residence"`
	PlaceOfCatastrophe string     `json:"place_of_catastrophe"`
	PlaceOfShelter     string     `json:"place_of_shelter"`
	DateOfCatastrophe  *time.Time `json:"date_of_catastrophe,omitempty"`
	RegisteredAt       time.Time  `json:"registered_at"`

	DocumentType   string `json:"document_type,omitempty"`
	DocumentNumber string `json:"document_number,omitempty"`
	ChecksumsValid bool   `json:"checksums_valid"`
}

// FromIdentity prefills a registrant from a decoded MRZ.
func FromIdentity(id *mrz.Identity) *Registrant {
	return &Registrant{
		FirstName:      id.FirstName,
		LastName:       id.LastName,
		DateOfBirth:    id.BirthDate,
		Nationality:    id.Nationality,
		Residence:      id.IssuingState,
		DocumentType:   id.DocumentType.String(),
		DocumentNumber: id.DocumentNumber,
		ChecksumsValid: id.ChecksumsValid(),
	}
}

// DisplayName formats the registrant for selection lists.
func (r *Registrant) DisplayName() string {
	return fmt.Sprintf("%s, %s #%s", r.LastName, r.FirstName, r.ID)
}

// Validate requires at least one name so a registration can be found again.
func (r *Registrant) Validate() error {
	if strings.TrimSpace(r.FirstName) == "" && strings.TrimSpace(r.LastName) == "" {
		return fmt.Errorf("%w: first or last name is required", ErrInvalidRegistrant)
	}
	if r.DateOfBirth != nil && r.DateOfBirth.After(time.Now()) {
		return fmt.Errorf("%w: date of birth is in the future", ErrInvalidRegistrant)
	}
	return nil
}

// RegistrantRepository defines the interface for registrant persistence
type RegistrantRepository interface {
	// Create assigns an ID and registration time when unset and stores r
	Create(ctx context.Context, r *Registrant) error

	// Get retrieves a registrant by ID
	Get(ctx context.Context, id string) (*Registrant, error)

	// Update replaces the stored registrant with the same ID
	Update(ctx context.Context, r *Registrant) error

	// Delete removes a registrant by ID
	Delete(ctx context.Context, id string) error

	// List returns all registrants ordered by registration time
	List(ctx context.Context) ([]*Registrant, error)

	// Ping checks that the store is reachable
	Ping(ctx context.Context) error

	Close() error
}
