package security

import "errors"

var (
	// ErrEmptyIdentity 本端标识为空
	ErrEmptyIdentity = errors.New("security: empty local identity")

	// ErrTLSDisabled 未启用 TLS
	ErrTLSDisabled = errors.New("security: tls disabled")
)
