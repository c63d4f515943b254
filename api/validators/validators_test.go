package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	pkgerrors "github.com/Piotrek1987/ds-online-shop/pkg/errors"
)

type sampleBody struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

func TestDecodeJSONBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.co","password":"longenough"}`))
	var body sampleBody
	if err := DecodeJSONBody(req, &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Email != "a@b.co" {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestDecodeJSONBodyReportsFieldErrors(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"nope","password":"short"}`))
	var body sampleBody
	err := DecodeJSONBody(req, &body)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, ok := typed.Details().(map[string]string)
	if !ok {
		t.Fatalf("unexpected details %T", typed.Details())
	}
	if details["email"] != "must be a valid email" || details["password"] != "must be at least 8" {
		t.Fatalf("unexpected details %v", details)
	}
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.co","password":"longenough","admin":true}`))
	var body sampleBody
	err := DecodeJSONBody(req, &body)
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, _ := pkgerrors.As(err).Details().(map[string]string)
	if details["admin"] != "is not allowed" {
		t.Fatalf("expected the unknown field to be named, got %v", details)
	}
}

func TestDecodeJSONBodyMalformedInput(t *testing.T) {
	tests := []struct {
		name string
		body string
		msg  string
	}{
		{name: "empty", body: "", msg: "request body is required"},
		{name: "truncated", body: `{"email":`, msg: "request body is not valid JSON"},
		{name: "two objects", body: `{"email":"a@b.co","password":"longenough"}{}`, msg: "request body must contain a single JSON object"},
		{name: "wrong type", body: `{"email":5,"password":"longenough"}`, msg: "invalid request body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var body sampleBody
			typed := pkgerrors.As(DecodeJSONBody(req, &body))
			if typed == nil || typed.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", typed)
			}
			if typed.Message() != tt.msg {
				t.Fatalf("expected %q, got %q", tt.msg, typed.Message())
			}
		})
	}
}

func TestDecodeJSONBodyTooLarge(t *testing.T) {
	big := `{"email":"a@b.co","password":"` + strings.Repeat("x", maxBodyBytes) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(big))
	var body sampleBody
	typed := pkgerrors.As(DecodeJSONBody(req, &body))
	if typed == nil || typed.Message() != "request body is too large" {
		t.Fatalf("expected size error, got %v", typed)
	}
}

func TestParsePathID(t *testing.T) {
	r := chi.NewRouter()
	var got int
	var gotErr error
	r.Get("/items/{itemId}", func(w http.ResponseWriter, req *http.Request) {
		got, gotErr = ParsePathID(req, "itemId")
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/12", nil))
	if gotErr != nil || got != 12 {
		t.Fatalf("expected 12, got %d err=%v", got, gotErr)
	}

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/abc", nil))
	if !pkgerrors.IsCode(gotErr, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", gotErr)
	}
}

func TestSanitizeString(t *testing.T) {
	if got := SanitizeString("  hello  ", 3); got != "hel" {
		t.Fatalf("unexpected %q", got)
	}
	if got := SanitizeString(" x ", 0); got != "x" {
		t.Fatalf("unexpected %q", got)
	}
	if got := SanitizeString("Käse\x00\n", 3); got != "Käs" {
		t.Fatalf("expected rune-safe cut without control chars, got %q", got)
	}
}
