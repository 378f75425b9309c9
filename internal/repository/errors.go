package repository

import "errors"

var (
	ErrAliasKeyExhausted = errors.New("could not allocate a unique alias key")
)
