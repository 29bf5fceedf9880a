package errors

import (
	"testing"
)

func TestValidationError(t *testing.T) {
	err := NewValidationError("grade", "must be a grade between 2 and 5", 7)

	if err.Field != "grade" {
		t.Errorf("Expected field to be 'grade', got '%s'", err.Field)
	}

	if err.Message != "must be a grade between 2 and 5" {
		t.Errorf("Expected message to be 'must be a grade between 2 and 5', got '%s'", err.Message)
	}

	if err.Value != 7 {
		t.Errorf("Expected value to be 7, got '%v'", err.Value)
	}

	expected := "validation error on field 'grade': must be a grade between 2 and 5"
	if err.Error() != expected {
		t.Errorf("Expected error message to be '%s', got '%s'", expected, err.Error())
	}
}

func TestValidationErrors(t *testing.T) {
	var errs ValidationErrors
	if errs.Error() != "validation failed" {
		t.Errorf("Expected 'validation failed' for empty errors, got '%s'", errs.Error())
	}

	errs = append(errs, *NewValidationError("field1", "message1", nil))
	expected := "validation failed: field1 message1"
	if errs.Error() != expected {
		t.Errorf("Expected '%s' for single error, got '%s'", expected, errs.Error())
	}

	errs = append(errs, *NewValidationError("field2", "message2", nil))
	expected = "validation failed: 2 field errors"
	if errs.Error() != expected {
		t.Errorf("Expected '%s' for multiple errors, got '%s'", expected, errs.Error())
	}
}

func TestNewValidationErrorWithRule(t *testing.T) {
	err := NewValidationErrorWithRule("score", "is required", "required", nil)

	if err.Rule != "required" {
		t.Errorf("Expected rule to be 'required', got '%s'", err.Rule)
	}

	if err.Field != "score" {
		t.Errorf("Expected field to be 'score', got '%s'", err.Field)
	}
}
