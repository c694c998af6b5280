package tag

import (
	"errors"
	"fmt"

	"github.com/robert-malhotra/go-msbt/msbp"
)

// Errors
var (
	ErrUnresolvedTagName     = errors.New("unresolved tag name")
	ErrUnresolvedEnumLiteral = msbp.ErrUnresolvedEnumLiteral
	ErrTagSyntax             = errors.New("invalid tag syntax")
)

// Error reports a tag that could not be encoded.
type Error struct {
	Tag string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("tag %q: %v", e.Tag, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
