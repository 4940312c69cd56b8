package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestFieldsKeepsNumbersAndDatesCanonical(t *testing.T) {
	fields, err := Fields(Income{ID: 1234567, Type: "Rental", Amount: 100, DateReceived: NewDate(2024, time.March, 2)})
	if err != nil {
		t.Fatalf("fields: %v", err)
	}
	if n, ok := fields["ID"].(json.Number); !ok || n.String() != "1234567" {
		t.Fatalf("ID should stay an exact json.Number, got %#v", fields["ID"])
	}
	if fields["DateReceived"] != "2024-03-02" {
		t.Fatalf("date should flatten to canonical string, got %#v", fields["DateReceived"])
	}
	if fields["ORNumber"] != "" {
		t.Fatalf("empty optional string should be present and empty, got %#v", fields["ORNumber"])
	}
}

func TestFromFieldsRejectsUnknownAndMistyped(t *testing.T) {
	got, err := FromFields[Expense](map[string]any{"ID": 3, "Type": "Gas", "Amount": json.Number("12.5"), "DateIssued": "2024-01-05"})
	if err != nil {
		t.Fatalf("from fields: %v", err)
	}
	if got.ID != 3 || got.Amount != 12.5 || got.DateIssued.String() != "2024-01-05" {
		t.Fatalf("unexpected record %+v", got)
	}
	if _, err := FromFields[Expense](map[string]any{"Nope": 1}); err == nil {
		t.Fatalf("expected unknown field error")
	}
	if _, err := FromFields[Expense](map[string]any{"Amount": "lots"}); err == nil {
		t.Fatalf("expected type error")
	}
}

func TestValidateCollectsEveryFieldError(t *testing.T) {
	err := Validate(Youth{InSchoolYouth: true, OutOfSchoolYouth: true})
	if err == nil {
		t.Fatalf("expected validation failure")
	}
	if !IsValidationError(err) {
		t.Fatalf("expected ValidationError in chain, got %T", err)
	}
	var fields []string
	for _, e := range err.(interface{ Unwrap() []error }).Unwrap() {
		var ve ValidationError
		if errors.As(e, &ve) {
			fields = append(fields, ve.Field)
		}
	}
	if len(fields) != 4 {
		t.Fatalf("expected 4 field errors, got %v", fields)
	}
	if err := Validate(Settings{Barangay: "San Isidro", Municipality: "Tanay"}); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if err := Validate(struct{}{}); err != nil {
		t.Fatalf("records without rules always pass: %v", err)
	}
	bad := ProgramProject{Name: "Road", StartDate: NewDate(2024, 5, 1), EndDate: NewDate(2024, 4, 1)}
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected ordering error")
	}
}
