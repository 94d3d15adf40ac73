package domain

import "errors"

var (
	// ErrMissingData indicates that a required price, profile or estimate series is empty or absent.
	ErrMissingData = errors.New("missing data")

	// ErrInvalidInput indicates out-of-range numeric parameters detected before running a calculator.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnresolvedCurrencyPair indicates a conversion between currencies absent from the rate table.
	ErrUnresolvedCurrencyPair = errors.New("unresolved currency pair")
)
