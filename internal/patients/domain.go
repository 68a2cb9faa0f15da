// Package patients registers personal records for new patients.
package patients

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/medportal/medportal/internal/backend"
)

// registerNumber is two Mongolian Cyrillic letters followed by eight digits.
var registerNumber = regexp.MustCompile(`^[А-ӨЁҮЖ]{2}\d{8}$`)

// DetailInput is the personal record form shared by patient registration and
// the profile page.
type DetailInput struct {
	SisiID         string `validate:"required"`
	FirstName      string `validate:"required,max=100"`
	LastName       string `validate:"required,max=100"`
	RegisterNumber string `validate:"required,regno"`
	PhoneNumber    string `validate:"required,len=8,numeric"`
	University     string `validate:"required,max=200"`
	CourseYear     int    `validate:"min=1,max=7"`
}

// FieldMessages maps validator failures of DetailInput to message keys.
var FieldMessages = map[string]string{
	"SisiID.required":         "Please enter your login name.",
	"FirstName.required":      "Please enter a first name.",
	"LastName.required":       "Please enter a last name.",
	"RegisterNumber.required": "Invalid register number (example: ФБ99112233).",
	"RegisterNumber.regno":    "Invalid register number (example: ФБ99112233).",
	"PhoneNumber.required":    "Phone number must be 8 digits.",
	"PhoneNumber.len":         "Phone number must be 8 digits.",
	"PhoneNumber.numeric":     "Phone number must be 8 digits.",
	"University.required":     "Please enter a university.",
	"CourseYear.min":          "Course year must be between 1 and 7.",
	"CourseYear.max":          "Course year must be between 1 and 7.",
}

// NewValidator returns a validator that knows the regno tag.
func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("regno", func(fl validator.FieldLevel) bool {
		return registerNumber.MatchString(fl.Field().String())
	})
	return v
}

// ParseCourseYear reads the course year field. Unparseable input becomes 0,
// which fails validation.
func ParseCourseYear(raw string) int {
	year, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0
	}
	return year
}

// Record converts the form into the user-detail service payload.
func (in DetailInput) Record() backend.UserDetail {
	return backend.UserDetail{
		SisiID:         in.SisiID,
		FirstName:      in.FirstName,
		LastName:       in.LastName,
		RegisterNumber: in.RegisterNumber,
		PhoneNumber:    in.PhoneNumber,
		University:     in.University,
		CourseYear:     in.CourseYear,
	}
}

// InputFromRecord fills the form from a stored record.
func InputFromRecord(d *backend.UserDetail) DetailInput {
	if d == nil {
		return DetailInput{}
	}
	return DetailInput{
		SisiID:         d.SisiID,
		FirstName:      d.FirstName,
		LastName:       d.LastName,
		RegisterNumber: d.RegisterNumber,
		PhoneNumber:    d.PhoneNumber,
		University:     d.University,
		CourseYear:     d.CourseYear,
	}
}
