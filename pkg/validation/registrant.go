package validation

import (
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "go-disaster-id-scan/internal/errors"
)

// DateLayouts are the accepted input formats for hand-entered dates.
var DateLayouts = []string{"2006-01-02", "02.01.2006"}

// ValidateRegistrantID checks that id is a UUID as assigned on registration.
func ValidateRegistrantID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperrors.NewValidationError("invalid registrant ID", err)
	}
	return nil
}

// ParseDate accepts ISO dates and the German day.month.year form used on
// the shelter forms. An empty string yields nil.
func ParseDate(field, value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	for _, layout := range DateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return &t, nil
		}
	}
	return nil, apperrors.NewValidationError("invalid date", nil).
		WithDetails(field + " must be YYYY-MM-DD or DD.MM.YYYY")
}
