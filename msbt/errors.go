package msbt

import (
	"errors"
	"fmt"

	"github.com/robert-malhotra/go-msbt/internal/attr"
	"github.com/robert-malhotra/go-msbt/internal/section"
	"github.com/robert-malhotra/go-msbt/internal/tag"
	"github.com/robert-malhotra/go-msbt/msbp"
)

// Errors
var (
	ErrNotMessageFile   = errors.New("not a message file")
	ErrMalformedSection = section.ErrMalformedSection
	ErrUnknownSection   = section.ErrUnknownSection
	ErrDuplicateKey     = errors.New("duplicate message key")
	ErrInvalidKey       = errors.New("message key is not a numeric id")

	ErrUnresolvedTagName       = tag.ErrUnresolvedTagName
	ErrUnresolvedEnumLiteral   = msbp.ErrUnresolvedEnumLiteral
	ErrTagSyntax               = tag.ErrTagSyntax
	ErrUnresolvedAttributeName = attr.ErrUnresolvedAttributeName
	ErrAttributeWidthMismatch  = attr.ErrAttributeWidthMismatch
)

// TagError reports a tag in message text that could not be encoded.
type TagError = tag.Error

// WidthMismatchError reports two messages whose raw attribute blocks differ
// in size.
type WidthMismatchError = attr.WidthMismatchError

// MessageError attaches the message key to an encoding failure.
type MessageError struct {
	Key string
	Err error
}

func (e *MessageError) Error() string {
	return fmt.Sprintf("message %q: %v", e.Key, e.Err)
}

func (e *MessageError) Unwrap() error {
	return e.Err
}
