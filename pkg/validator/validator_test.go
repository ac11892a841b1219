package validator

import (
	"errors"
	"testing"
)

type sample struct {
	Capacity *int   `json:"capacity" validate:"required,min=0"`
	Level    string `json:"level,omitempty" validate:"omitempty,oneof=DEBUG INFO"`
}

func TestValidateStruct_ReportsJSONNames(t *testing.T) {
	n := -1
	err := ValidateStruct(&sample{Capacity: &n, Level: "LOUD"})
	if err == nil {
		t.Fatalf("expected validation error")
	}

	got := TranslateError(err)
	if got["capacity"] != "min=0" {
		t.Fatalf("expected capacity min=0, got %v", got)
	}
	if got["level"] != "oneof=DEBUG INFO" {
		t.Fatalf("expected level oneof, got %v", got)
	}
}

func TestValidateStruct_Required(t *testing.T) {
	got := TranslateError(ValidateStruct(&sample{}))
	if got["capacity"] != "required" {
		t.Fatalf("expected capacity required, got %v", got)
	}
}

func TestTranslateError_NonValidationError(t *testing.T) {
	if got := TranslateError(errors.New("boom")); len(got) != 0 {
		t.Fatalf("expected empty map, got %v", got)
	}
	if got := TranslateError(nil); len(got) != 0 {
		t.Fatalf("expected empty map, got %v", got)
	}
}
