package responses

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	pkgerrors "github.com/Piotrek1987/ds-online-shop/pkg/errors"
	"github.com/Piotrek1987/ds-online-shop/pkg/logger"
	"github.com/Piotrek1987/ds-online-shop/pkg/types"
)

func decodeError(t *testing.T, w *httptest.ResponseRecorder) types.APIError {
	t.Helper()
	var body types.ErrorEnvelope
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	return body.Error
}

func TestWriteSuccessWrapsData(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSuccess(w, map[string]string{"hello": "world"})

	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("status=%d content-type=%q", w.Code, w.Header().Get("Content-Type"))
	}
	var body types.SuccessEnvelope
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode success envelope: %v", err)
	}
	if body.Data.(map[string]any)["hello"] != "world" {
		t.Fatalf("unexpected payload %v", body.Data)
	}

	created := httptest.NewRecorder()
	WriteSuccessStatus(created, http.StatusCreated, map[string]int{"id": 1})
	if created.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", created.Code)
	}
}

func TestWriteErrorRendering(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		status      int
		code        pkgerrors.Code
		message     string
		withDetails bool
		retryable   bool
	}{
		{
			name:        "validation keeps message and details",
			err:         pkgerrors.New(pkgerrors.CodeValidation, "bad input").WithDetails(map[string]string{"field": "email"}),
			status:      http.StatusBadRequest,
			code:        pkgerrors.CodeValidation,
			message:     "bad input",
			withDetails: true,
		},
		{
			name:      "decline is retryable",
			err:       fmt.Errorf("checkout: %w", pkgerrors.New(pkgerrors.CodeDeclined, "payment was declined, please try again")),
			status:    http.StatusPaymentRequired,
			code:      pkgerrors.CodeDeclined,
			message:   "payment was declined, please try again",
			retryable: true,
		},
		{
			name:    "details hidden when code forbids them",
			err:     pkgerrors.New(pkgerrors.CodeNotFound, "no such item").WithDetails("item-9"),
			status:  http.StatusNotFound,
			code:    pkgerrors.CodeNotFound,
			message: "no such item",
		},
		{
			name:      "untyped errors become internal",
			err:       errors.New("boom"),
			status:    http.StatusInternalServerError,
			code:      pkgerrors.CodeInternal,
			message:   "internal server error",
			retryable: true,
		},
		{
			name:      "dependency message is never shown",
			err:       pkgerrors.New(pkgerrors.CodeDependency, "redis at 10.0.0.3 refused"),
			status:    http.StatusServiceUnavailable,
			code:      pkgerrors.CodeDependency,
			message:   "dependency unavailable",
			retryable: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(context.Background(), logger.Nop(), w, tt.err)

			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d", w.Code, tt.status)
			}
			got := decodeError(t, w)
			if got.Code != string(tt.code) || got.Message != tt.message {
				t.Fatalf("unexpected error %+v", got)
			}
			if (got.Details != nil) != tt.withDetails {
				t.Fatalf("details = %v, want present=%v", got.Details, tt.withDetails)
			}
			if got.Retryable != tt.retryable {
				t.Fatalf("retryable = %v, want %v", got.Retryable, tt.retryable)
			}
		})
	}
}

func TestWriteErrorEchoesRequestID(t *testing.T) {
	w := httptest.NewRecorder()
	w.Header().Set(RequestIDHeader, "req-77")
	WriteError(context.Background(), nil, w, pkgerrors.New(pkgerrors.CodeNotFound, "no such item"))

	if got := decodeError(t, w); got.RequestID != "req-77" {
		t.Fatalf("expected request id in error body, got %+v", got)
	}
}

func TestWriteErrorNilIsInternal(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(context.Background(), nil, w, nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
}
