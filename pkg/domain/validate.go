package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError reports one field that failed client-side checks. Validation
// happens before any request is sent.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Validator is implemented by entities with form-level rules.
type Validator interface {
	Validate() error
}

// Validate runs the record's rules when it has any.
func Validate(record any) error {
	if v, ok := record.(Validator); ok {
		return v.Validate()
	}
	return nil
}

// IsValidationError reports whether err carries at least one ValidationError.
func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

type checks []error

func (c *checks) required(field, value string) {
	if strings.TrimSpace(value) == "" {
		*c = append(*c, ValidationError{Field: field, Reason: "is required"})
	}
}

func (c *checks) nonNegative(field string, value float64) {
	if value < 0 {
		*c = append(*c, ValidationError{Field: field, Reason: "must not be negative"})
	}
}

func (c *checks) date(field string, value Date) {
	if value.IsZero() {
		*c = append(*c, ValidationError{Field: field, Reason: "is required"})
	}
}

func (c *checks) ordered(field string, start, end Date) {
	if !start.IsZero() && !end.IsZero() && end.Compare(start) < 0 {
		*c = append(*c, ValidationError{Field: field, Reason: "must not be before the start date"})
	}
}

func (c checks) err() error { return errors.Join(c...) }

// Validate implements Validator.
func (r Resident) Validate() error {
	var c checks
	c.required("Firstname", r.Firstname)
	c.required("Lastname", r.Lastname)
	c.date("Birthdate", r.Birthdate)
	c.nonNegative("MonthlyIncome", r.MonthlyIncome)
	return c.err()
}

// Validate implements Validator.
func (y Youth) Validate() error {
	var c checks
	c.required("Firstname", y.Firstname)
	c.required("Lastname", y.Lastname)
	c.date("Birthdate", y.Birthdate)
	if y.InSchoolYouth && y.OutOfSchoolYouth {
		c = append(c, ValidationError{Field: "OutOfSchoolYouth", Reason: "cannot be set together with InSchoolYouth"})
	}
	return c.err()
}

// Validate implements Validator.
func (i Income) Validate() error {
	var c checks
	c.required("Type", i.Type)
	c.nonNegative("Amount", i.Amount)
	c.date("DateReceived", i.DateReceived)
	return c.err()
}

// Validate implements Validator.
func (e Expense) Validate() error {
	var c checks
	c.required("Type", e.Type)
	c.nonNegative("Amount", e.Amount)
	c.date("DateIssued", e.DateIssued)
	return c.err()
}

// Validate implements Validator.
func (b Blotter) Validate() error {
	var c checks
	c.required("Complainant", b.Complainant)
	c.required("Incident", b.Incident)
	c.date("DateReported", b.DateReported)
	return c.err()
}

// Validate implements Validator.
func (ct Certificate) Validate() error {
	var c checks
	c.required("Name", ct.Name)
	c.required("Type", ct.Type)
	c.nonNegative("Amount", ct.Amount)
	return c.err()
}

// Validate implements Validator.
func (g GovDoc) Validate() error {
	var c checks
	c.required("Title", g.Title)
	c.required("Type", g.Type)
	return c.err()
}

// Validate implements Validator.
func (l Logbook) Validate() error {
	var c checks
	c.required("Name", l.Name)
	c.date("Date", l.Date)
	return c.err()
}

// Validate implements Validator.
func (p ProgramProject) Validate() error {
	var c checks
	c.required("Name", p.Name)
	c.nonNegative("Budget", p.Budget)
	c.ordered("EndDate", p.StartDate, p.EndDate)
	return c.err()
}

// Validate implements Validator.
func (h Household) Validate() error {
	var c checks
	c.required("HouseholdNumber", h.HouseholdNumber)
	c.required("Head", h.Head)
	if h.Members < 0 {
		c = append(c, ValidationError{Field: "Members", Reason: "must not be negative"})
	}
	c.nonNegative("MonthlyIncome", h.MonthlyIncome)
	return c.err()
}

// Validate implements Validator.
func (o Official) Validate() error {
	var c checks
	c.required("Name", o.Name)
	c.required("Position", o.Position)
	c.ordered("TermEnd", o.TermStart, o.TermEnd)
	return c.err()
}

// Validate implements Validator.
func (s Settings) Validate() error {
	var c checks
	c.required("Barangay", s.Barangay)
	c.required("Municipality", s.Municipality)
	return c.err()
}
