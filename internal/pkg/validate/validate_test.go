package validate

import (
	"strings"
	"testing"
)

type signupLike struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

func TestStructReportsJSONFieldName(t *testing.T) {
	err := Struct(signupLike{Email: "not-an-email", Password: "longenough"})
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if !strings.HasPrefix(err.Error(), "email:") {
		t.Fatalf("unexpected message: %q", err.Error())
	}

	if err := Struct(signupLike{Email: "ann@example.com", Password: "longenough"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRequired(t *testing.T) {
	if Required("  ") {
		t.Fatalf("blank must not satisfy Required")
	}
	if !Required("x") {
		t.Fatalf("non-blank must satisfy Required")
	}
}
