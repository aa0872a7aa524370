package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized},
		{code: CodeForbidden, status: http.StatusForbidden},
		{code: CodeNotFound, status: http.StatusNotFound},
		{code: CodeConflict, status: http.StatusConflict},
		{code: CodeStateConflict, status: http.StatusUnprocessableEntity, detailsOK: true},
		{code: CodeInternal, status: http.StatusInternalServerError, retryable: true},
		{code: CodeDependency, status: http.StatusBadGateway, retryable: true, detailsOK: true},
		{code: CodeUnreachable, status: http.StatusServiceUnavailable, retryable: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage == "" {
			t.Fatalf("code %s has no public message", tt.code)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing foo")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}
	base.WithDetails(map[string]string{"foo": "is required"})
	if got := FieldErrors(base); got["foo"] != "is required" {
		t.Fatalf("field errors not preserved: %v", got)
	}

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConflict, cause, "ctx")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if !Is(fmt.Errorf("outer: %w", wrapped), CodeConflict) {
		t.Fatalf("Is should see through fmt wrapping")
	}
}

func TestUserMessage(t *testing.T) {
	if got := UserMessage(New(CodeStateConflict, "Product out of stock")); got != "Product out of stock" {
		t.Fatalf("expected backend message, got %q", got)
	}
	if got := UserMessage(New(CodeUnauthorized, "token expired")); got != MetadataFor(CodeUnauthorized).PublicMessage {
		t.Fatalf("expected public unauthorized message, got %q", got)
	}
	if got := UserMessage(Wrap(CodeUnreachable, stdErrors.New("dial tcp"), "")); got != MetadataFor(CodeUnreachable).PublicMessage {
		t.Fatalf("expected connectivity message, got %q", got)
	}
	if got := UserMessage(stdErrors.New("plain")); got != "plain" {
		t.Fatalf("expected plain message, got %q", got)
	}
	if UserMessage(nil) != "" {
		t.Fatalf("nil error should render empty")
	}
}

type statusErr struct{ status int }

func (s statusErr) Error() string   { return "status" }
func (s statusErr) StatusCode() int { return s.status }

func TestDumpCollectsChainAndStatus(t *testing.T) {
	err := Wrap(CodeForbidden, statusErr{status: http.StatusForbidden}, "no entry")
	d := Dump(err)
	if d.Code != CodeForbidden {
		t.Fatalf("unexpected code %s", d.Code)
	}
	if d.HTTPStatus != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", d.HTTPStatus)
	}
	if len(d.Chain) != 2 {
		t.Fatalf("expected two chain entries, got %v", d.Chain)
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
}
