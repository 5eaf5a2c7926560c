package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrAlreadyResolved     = errors.New("market already resolved")
	ErrNoSymbol            = errors.New("no known token symbol in question")
	ErrNoTarget            = errors.New("no parseable target in question")
	ErrProviderUnavailable = errors.New("price data provider unavailable")
	ErrLockHeld            = errors.New("lock already held")
)
