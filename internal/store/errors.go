package store

import "errors"

var (
	// ErrInvalidID 标识为空或包含保留字符 '/'
	ErrInvalidID = errors.New("store: invalid identifier")

	// ErrRuleObjectMismatch 规则的对象标识与目标对象不符
	ErrRuleObjectMismatch = errors.New("store: rule object does not match")
)
