// Package ward holds the guardian-side rules for registering a ward and
// collecting the self-diagnosis survey.
package ward

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"yeoneunal/internal/api"
)

// Validation errors. All are returned before any request is sent.
var (
	ErrMissingField      = errors.New("required field missing")
	ErrInvalidGender     = errors.New("gender must be male or female")
	ErrInvalidRelation   = errors.New("unknown relationship")
	ErrBirthDateInFuture = errors.New("birth date is in the future")
	ErrInvalidBirthDate  = errors.New("birth date must be YYYY-MM-DD")
)

// Genders accepted by the backend.
var Genders = []string{"male", "female"}

// Relationships a guardian can have to a ward.
var Relationships = []string{"parent", "grandparent", "spouse", "relative", "other"}

// BirthDateLayout is the accepted birth date format.
const BirthDateLayout = "2006-01-02"

// Registration is the data collected when adding a ward.
type Registration struct {
	Name         string
	Gender       string
	BirthDate    string
	Relationship string
	Phone        string
}

// Validate checks required fields and enumerations against now.
func (r Registration) Validate(now time.Time) error {
	switch {
	case strings.TrimSpace(r.Name) == "":
		return fmt.Errorf("%w: name", ErrMissingField)
	case r.Gender == "":
		return fmt.Errorf("%w: gender", ErrMissingField)
	case r.BirthDate == "":
		return fmt.Errorf("%w: birth date", ErrMissingField)
	case r.Relationship == "":
		return fmt.Errorf("%w: relationship", ErrMissingField)
	}
	if !contains(Genders, r.Gender) {
		return fmt.Errorf("%w: %q", ErrInvalidGender, r.Gender)
	}
	if !contains(Relationships, r.Relationship) {
		return fmt.Errorf("%w: %q", ErrInvalidRelation, r.Relationship)
	}
	birth, err := r.Birth()
	if err != nil {
		return err
	}
	if birth.After(now) {
		return ErrBirthDateInFuture
	}
	return nil
}

// Birth parses BirthDate as a local calendar date.
func (r Registration) Birth() (time.Time, error) {
	t, err := time.ParseInLocation(BirthDateLayout, strings.TrimSpace(r.BirthDate), time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidBirthDate, r.BirthDate)
	}
	return t, nil
}

// AgeAt returns whole years between birth and now, one less when the
// birthday has not yet come around this year.
func AgeAt(birth, now time.Time) int {
	age := now.Year() - birth.Year()
	if now.Month() < birth.Month() || (now.Month() == birth.Month() && now.Day() < birth.Day()) {
		age--
	}
	if age < 0 {
		return 0
	}
	return age
}

// NewWardInput validates the registration and builds the creation request.
func NewWardInput(guardianID int64, r Registration, diagnosis api.DiagnosisPayload, now time.Time) (api.WardInput, error) {
	if err := r.Validate(now); err != nil {
		return api.WardInput{}, err
	}
	birth, _ := r.Birth()
	return api.WardInput{
		GuardianID:   guardianID,
		Name:         strings.TrimSpace(r.Name),
		Age:          AgeAt(birth, now),
		Gender:       r.Gender,
		Phone:        strings.TrimSpace(r.Phone),
		Relationship: r.Relationship,
		Diagnosis:    diagnosis,
	}, nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
