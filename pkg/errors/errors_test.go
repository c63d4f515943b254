package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

func TestEveryCodeHasMetadata(t *testing.T) {
	codes := []Code{
		CodeValidation, CodeUnauthorized, CodeForbidden, CodeNotFound, CodeConflict,
		CodeStateConflict, CodeIdempotency, CodeRateLimit, CodeDeclined, CodeInternal, CodeDependency,
	}
	for _, code := range codes {
		meta, ok := metadataByCode[code]
		if !ok {
			t.Fatalf("code %s has no metadata", code)
		}
		if meta.HTTPStatus < 400 || meta.PublicMessage == "" {
			t.Fatalf("code %s has incomplete metadata %+v", code, meta)
		}
		// Server-side failures are always worth a retry; client mistakes are
		// not, except a declined card.
		wantRetry := meta.HTTPStatus >= http.StatusInternalServerError || code == CodeDeclined
		if meta.Retryable != wantRetry {
			t.Fatalf("code %s retryable=%v", code, meta.Retryable)
		}
	}
}

func TestMetadataForStatuses(t *testing.T) {
	for code, status := range map[Code]int{
		CodeValidation:    http.StatusBadRequest,
		CodeStateConflict: http.StatusUnprocessableEntity,
		CodeIdempotency:   http.StatusConflict,
		CodeDeclined:      http.StatusPaymentRequired,
		CodeRateLimit:     http.StatusTooManyRequests,
		CodeDependency:    http.StatusServiceUnavailable,
		"NOT_A_CODE":      http.StatusInternalServerError,
	} {
		if got := MetadataFor(code).HTTPStatus; got != status {
			t.Fatalf("%s: status %d, want %d", code, got, status)
		}
	}
}

func TestWrapKeepsCauseAndDetails(t *testing.T) {
	cause := stdErrors.New("connection refused")
	err := Wrap(CodeDependency, cause, "clear cart").WithDetails(map[string]string{"store": "redis"})

	if !stdErrors.Is(err, cause) {
		t.Fatal("Wrap must keep the cause in the chain")
	}
	if err.Code() != CodeDependency || err.Message() != "clear cart" || err.Details() == nil {
		t.Fatalf("unexpected error %+v", err)
	}
	if got := err.Error(); got != "DEPENDENCY_ERROR: clear cart: connection refused" {
		t.Fatalf("Error() = %q", got)
	}
	if got := New(CodeNotFound, "item not found").Error(); got != "NOT_FOUND: item not found" {
		t.Fatalf("Error() = %q", got)
	}
}

func TestNilErrorIsSafe(t *testing.T) {
	var e *Error
	if e.Code() != CodeInternal || e.Error() != "" || e.Unwrap() != nil || e.WithDetails("x") != nil {
		t.Fatal("nil *Error accessors must not panic")
	}
}

func TestCodeLookupAcrossChain(t *testing.T) {
	nested := fmt.Errorf("checkout: %w", Wrap(CodeDependency, New(CodeConflict, "order id already used"), "append order"))

	if !IsCode(nested, CodeConflict) || !IsCode(nested, CodeDependency) {
		t.Fatal("every code in the chain should match")
	}
	if IsCode(nested, CodeNotFound) || IsCode(stdErrors.New("plain"), CodeInternal) {
		t.Fatal("unexpected code match")
	}
	if got := As(nested); got == nil || got.Code() != CodeDependency {
		t.Fatalf("As must return the outermost *Error, got %v", got)
	}
	if As(nil) != nil || As(stdErrors.New("plain")) != nil {
		t.Fatal("As should return nil without an *Error")
	}
}

func TestDump(t *testing.T) {
	d := Dump(fmt.Errorf("outer: %w", Wrap(CodeDependency, stdErrors.New("disk full"), "append order")))
	if d.Code != CodeDependency || len(d.Chain) != 3 || d.PGCode != "" {
		t.Fatalf("unexpected dump %+v", d)
	}
	if Dump(nil).TopMessage != "" {
		t.Fatal("nil dump should be empty")
	}
}

func TestDumpReadsPostgresDrivers(t *testing.T) {
	pgx := Dump(Wrap(CodeConflict, &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key", TableName: "users"}, "email already registered"))
	if pgx.PGCode != "23505" || pgx.PGConstraint != "users_email_key" {
		t.Fatalf("expected pgx details, got %+v", pgx)
	}
	fields := pgx.LogFields()
	if fields["pg_table"] != "users" || fields["error_code"] != string(CodeConflict) {
		t.Fatalf("unexpected log fields %v", fields)
	}
	if _, ok := fields["pg_column"]; ok {
		t.Fatalf("empty pg fields must be omitted: %v", fields)
	}

	pqDump := Dump(fmt.Errorf("insert order: %w", &pq.Error{Code: "23505", Constraint: "orders_order_id_key"}))
	if pqDump.PGConstraint != "orders_order_id_key" {
		t.Fatalf("expected lib/pq details, got %+v", pqDump)
	}
}
