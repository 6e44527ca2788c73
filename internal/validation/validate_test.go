package validation

import (
	"errors"
	"strings"
	"testing"
)

type signup struct {
	Name     string `json:"name" validate:"required,notblank,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

func TestStruct_Valid(t *testing.T) {
	err := Struct(signup{Name: "Alice", Email: "alice@example.com", Password: "hunter2hunter2"})
	if err != nil {
		t.Errorf("expected valid, got %v", err)
	}
}

func TestStruct_FieldErrors(t *testing.T) {
	tests := []struct {
		name      string
		in        signup
		wantField string
		wantMsg   string
	}{
		{"missing name", signup{Email: "a@example.com", Password: "hunter2hunter2"}, "name", "is required"},
		{"blank name", signup{Name: "   ", Email: "a@example.com", Password: "hunter2hunter2"}, "name", "is required"},
		{"bad email", signup{Name: "A", Email: "not-an-email", Password: "hunter2hunter2"}, "email", "must be a valid email address"},
		{"short password", signup{Name: "A", Email: "a@example.com", Password: "short"}, "password", "must be at least 8 characters"},
		{"long password", signup{Name: "A", Email: "a@example.com", Password: strings.Repeat("p", 73)}, "password", "must be at most 72 characters"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := Struct(tc.in)

			var verr *Error
			if !errors.As(err, &verr) {
				t.Fatalf("expected *Error, got %v", err)
			}
			if len(verr.Fields) != 1 {
				t.Fatalf("expected one field error, got %+v", verr.Fields)
			}
			if verr.Fields[0].Field != tc.wantField || verr.Fields[0].Message != tc.wantMsg {
				t.Errorf("got %+v", verr.Fields[0])
			}
		})
	}
}

func TestStruct_AllFieldsReported(t *testing.T) {
	err := Struct(signup{})

	var verr *Error
	if !errors.As(err, &verr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if len(verr.Fields) != 3 {
		t.Errorf("expected 3 field errors, got %d", len(verr.Fields))
	}
	if !strings.Contains(err.Error(), "email is required") {
		t.Errorf("unexpected message: %s", err.Error())
	}
}
