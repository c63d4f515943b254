package square

import (
	"encoding/json"
	"errors"
	"net/http"

	sq "github.com/square/square-go-sdk"
	sqcore "github.com/square/square-go-sdk/core"

	pkgerrors "github.com/Piotrek1987/ds-online-shop/pkg/errors"
)

var statusCodes = map[int]pkgerrors.Code{
	http.StatusBadRequest:          pkgerrors.CodeValidation,
	http.StatusUnauthorized:        pkgerrors.CodeUnauthorized,
	http.StatusPaymentRequired:     pkgerrors.CodeDeclined,
	http.StatusForbidden:           pkgerrors.CodeForbidden,
	http.StatusNotFound:            pkgerrors.CodeNotFound,
	http.StatusConflict:            pkgerrors.CodeConflict,
	http.StatusUnprocessableEntity: pkgerrors.CodeStateConflict,
	http.StatusTooManyRequests:     pkgerrors.CodeRateLimit,
}

// mapError classifies an SDK failure. The error bodies Square returns win
// over the HTTP status: a card decline arrives as a 400 with
// PAYMENT_METHOD_ERROR and must surface as a decline.
func mapError(err error) error {
	var apiErr *sqcore.APIError
	if !errors.As(err, &apiErr) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "square request failed")
	}
	return pkgerrors.Wrap(codeForErrors(apiErr.StatusCode, apiErrors(apiErr)), err, "square charge failed")
}

func codeForErrors(status int, errs []sq.Error) pkgerrors.Code {
	for _, e := range errs {
		switch {
		case e.Code == sq.ErrorCodeIdempotencyKeyReused:
			return pkgerrors.CodeIdempotency
		case e.Category == sq.ErrorCategoryPaymentMethodError:
			return pkgerrors.CodeDeclined
		case e.Category == sq.ErrorCategoryAuthenticationError:
			return pkgerrors.CodeUnauthorized
		}
	}
	return codeForStatus(status)
}

func codeForStatus(status int) pkgerrors.Code {
	if code, ok := statusCodes[status]; ok {
		return code
	}
	if status >= 400 && status < 500 {
		return pkgerrors.CodeValidation
	}
	return pkgerrors.CodeDependency
}

// apiErrors decodes the {"errors": [...]} body the SDK keeps as the wrapped
// error's text.
func apiErrors(apiErr *sqcore.APIError) []sq.Error {
	inner := apiErr.Unwrap()
	if inner == nil {
		return nil
	}
	var body struct {
		Errors []sq.Error `json:"errors"`
	}
	if err := json.Unmarshal([]byte(inner.Error()), &body); err != nil {
		return nil
	}
	return body.Errors
}
