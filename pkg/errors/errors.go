package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation        Code = "VALIDATION_ERROR"
	CodeInvalidQty        Code = "INVALID_QTY"
	CodeInvalidTransition Code = "INVALID_TRANSITION"

	CodeItemNotFound        Code = "ITEM_NOT_FOUND"
	CodeLotNotFound         Code = "LOT_NOT_FOUND"
	CodeReservationNotFound Code = "RESERVATION_NOT_FOUND"

	CodeInsufficientStock        Code = "INSUFFICIENT_STOCK"
	CodeNoQCApprovedLot          Code = "NO_QC_APPROVED_LOT"
	CodeReservationAlreadyIssued Code = "RESERVATION_ALREADY_ISSUED"
	CodeDuplicateLotCode         Code = "DUPLICATE_LOT_CODE"
	CodeDuplicateItemCode        Code = "DUPLICATE_ITEM_CODE"

	CodeIdempotency Code = "IDEMPOTENCY_KEY_REUSED"
	CodeTxConflict  Code = "TX_CONFLICT"
	CodeInternal    Code = "INTERNAL_ERROR"
	CodeDependency  Code = "DEPENDENCY_ERROR"
)

type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

var metadataByCode = map[Code]Metadata{
	CodeValidation: {
		HTTPStatus:     http.StatusBadRequest,
		Retryable:      false,
		PublicMessage:  "validation failed",
		DetailsAllowed: true,
	},
	CodeInvalidQty: {
		HTTPStatus:     http.StatusBadRequest,
		Retryable:      false,
		PublicMessage:  "quantity must be positive",
		DetailsAllowed: true,
	},
	CodeInvalidTransition: {
		HTTPStatus:     http.StatusUnprocessableEntity,
		Retryable:      false,
		PublicMessage:  "state transition disallowed",
		DetailsAllowed: true,
	},
	CodeItemNotFound: {
		HTTPStatus:     http.StatusNotFound,
		Retryable:      false,
		PublicMessage:  "item not found",
		DetailsAllowed: false,
	},
	CodeLotNotFound: {
		HTTPStatus:     http.StatusNotFound,
		Retryable:      false,
		PublicMessage:  "lot not found",
		DetailsAllowed: false,
	},
	CodeReservationNotFound: {
		HTTPStatus:     http.StatusNotFound,
		Retryable:      false,
		PublicMessage:  "reservation not found",
		DetailsAllowed: false,
	},
	CodeInsufficientStock: {
		HTTPStatus:     http.StatusConflict,
		Retryable:      false,
		PublicMessage:  "insufficient stock",
		DetailsAllowed: true,
	},
	CodeNoQCApprovedLot: {
		HTTPStatus:     http.StatusConflict,
		Retryable:      false,
		PublicMessage:  "no QC-approved lot available",
		DetailsAllowed: true,
	},
	CodeReservationAlreadyIssued: {
		HTTPStatus:     http.StatusConflict,
		Retryable:      false,
		PublicMessage:  "reservation is no longer open",
		DetailsAllowed: true,
	},
	CodeDuplicateLotCode: {
		HTTPStatus:     http.StatusConflict,
		Retryable:      false,
		PublicMessage:  "lot code already exists",
		DetailsAllowed: true,
	},
	CodeDuplicateItemCode: {
		HTTPStatus:     http.StatusConflict,
		Retryable:      false,
		PublicMessage:  "item code already exists",
		DetailsAllowed: true,
	},
	CodeIdempotency: {
		HTTPStatus:     http.StatusConflict,
		Retryable:      false,
		PublicMessage:  "idempotency key reused",
		DetailsAllowed: true,
	},
	CodeTxConflict: {
		HTTPStatus:     http.StatusConflict,
		Retryable:      true,
		PublicMessage:  "transaction conflict, retry the operation",
		DetailsAllowed: false,
	},
	CodeInternal: {
		HTTPStatus:     http.StatusInternalServerError,
		Retryable:      true,
		PublicMessage:  "internal server error",
		DetailsAllowed: false,
	},
	CodeDependency: {
		HTTPStatus:     http.StatusServiceUnavailable,
		Retryable:      true,
		PublicMessage:  "dependency unavailable",
		DetailsAllowed: true,
	},
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// IsRetryable reports whether the caller may retry the failed operation
// unmodified (transient conflicts, not domain rejections).
func IsRetryable(err error) bool {
	typed := As(err)
	if typed == nil {
		return false
	}
	return MetadataFor(typed.Code()).Retryable
}
