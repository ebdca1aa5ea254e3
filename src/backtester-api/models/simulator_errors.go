package models

import (
	"errors"
	"fmt"
)

var MalformedInputErr = fmt.Errorf("malformed input")
var IndexOutOfRangeErr = fmt.Errorf("index out of range")
var InvalidThresholdOrderingErr = fmt.Errorf("invalid threshold ordering")
var InvalidStakeErr = fmt.Errorf("invalid stake")
var RangeErr = fmt.Errorf("invalid range")
var NonPositiveEntryPriceErr = fmt.Errorf("entry price must be positive")

type ValidationErrorKind string

const (
	ValidationErrorMalformedInput           ValidationErrorKind = "MalformedInput"
	ValidationErrorIndexOutOfRange          ValidationErrorKind = "IndexOutOfRange"
	ValidationErrorInvalidThresholdOrdering ValidationErrorKind = "InvalidThresholdOrdering"
	ValidationErrorInvalidStake             ValidationErrorKind = "InvalidStake"
	ValidationErrorRange                    ValidationErrorKind = "RangeError"
)

var validationErrorKinds = []struct {
	err  error
	kind ValidationErrorKind
}{
	{MalformedInputErr, ValidationErrorMalformedInput},
	{IndexOutOfRangeErr, ValidationErrorIndexOutOfRange},
	{InvalidThresholdOrderingErr, ValidationErrorInvalidThresholdOrdering},
	{InvalidStakeErr, ValidationErrorInvalidStake},
	{RangeErr, ValidationErrorRange},
}

// ClassifyValidationError reports which caller-input failure err wraps, if any.
func ClassifyValidationError(err error) (ValidationErrorKind, bool) {
	for _, v := range validationErrorKinds {
		if errors.Is(err, v.err) {
			return v.kind, true
		}
	}

	return "", false
}
