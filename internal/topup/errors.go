package topup

import "errors"

var (
	ErrGatewayUnavailable = errors.New("payment gateway not configured")
	ErrInvalidAmount      = errors.New("invalid top-up amount")
	ErrMissingFields      = errors.New("missing payment fields")
	ErrSignatureMismatch  = errors.New("payment signature mismatch")
	ErrPaymentNotCaptured = errors.New("payment not captured")
	ErrOrderMismatch      = errors.New("payment order mismatch")
	ErrAmountUnverified   = errors.New("payment amount could not be verified")
	ErrForeignPayment     = errors.New("payment credited to another user")
)
