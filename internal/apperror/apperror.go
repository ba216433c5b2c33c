package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindBusiness
	KindGateway
)

// Error codes surfaced to API clients.
const (
	CodeInvalidAmount          = "INVALID_AMOUNT"
	CodeInvalidCardDetails     = "INVALID_CARD_DETAILS"
	CodeInvalidEmail           = "INVALID_EMAIL"
	CodeInvalidPaymentMethod   = "INVALID_PAYMENT_METHOD"
	CodeInvalidCurrency        = "INVALID_CURRENCY"
	CodeInvalidRequest         = "INVALID_REQUEST"
	CodeNotFound               = "NOT_FOUND"
	CodeInvalidStatus          = "INVALID_STATUS"
	CodeEmptyCart              = "EMPTY_CART"
	CodePaymentNotCompleted    = "PAYMENT_NOT_COMPLETED"
	CodeConcurrentModification = "CONCURRENT_MODIFICATION"
	CodeCheckoutInProgress     = "CHECKOUT_IN_PROGRESS"
	CodeGatewayError           = "GATEWAY_ERROR"
	CodeRefundFailed           = "REFUND_FAILED"
	CodeInternal               = "INTERNAL_ERROR"
)

type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Validation(code, message string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: message}
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Code: CodeNotFound, Message: message}
}

func Business(code, message string) *Error {
	return &Error{Kind: KindBusiness, Code: code, Message: message}
}

// Gateway reports a decline or failure coming back from the payment gateway.
func Gateway(code, message string) *Error {
	return &Error{Kind: KindGateway, Code: code, Message: message}
}

func Internal(message string, err error) *Error {
	return &Error{Kind: KindInternal, Code: CodeInternal, Message: message, Err: err}
}

// As extracts an *Error from the chain. Errors of any other type are reported
// as internal.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("Internal server error", err)
}

func Code(err error) string {
	if e := As(err); e != nil {
		return e.Code
	}
	return ""
}

func HTTPStatus(err error) int {
	e := As(err)
	if e == nil {
		return http.StatusOK
	}
	switch e.Kind {
	case KindValidation, KindBusiness, KindGateway:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
