package attr

import (
	"errors"
	"fmt"

	"github.com/robert-malhotra/go-msbt/msbp"
)

// Errors
var (
	ErrUnresolvedAttributeName = errors.New("unresolved attribute name")
	ErrUnresolvedEnumLiteral   = msbp.ErrUnresolvedEnumLiteral
	ErrAttributeWidthMismatch  = errors.New("attribute blocks differ in width")
	ErrMalformedTable          = errors.New("malformed attribute table")
)

// WidthMismatchError reports two messages whose raw attribute blocks have
// different sizes.
type WidthMismatchError struct {
	First       string
	FirstWidth  int
	Second      string
	SecondWidth int
}

func (e *WidthMismatchError) Error() string {
	return fmt.Sprintf("%v: %q has %d bytes, %q has %d",
		ErrAttributeWidthMismatch, e.First, e.FirstWidth, e.Second, e.SecondWidth)
}

func (e *WidthMismatchError) Unwrap() error {
	return ErrAttributeWidthMismatch
}
