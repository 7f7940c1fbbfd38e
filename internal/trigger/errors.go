package trigger

import (
	"errors"
	"fmt"
	"regexp"
)

var nameRe = regexp.MustCompile(`^\w+$`)

// ErrInvalidName reports a registry name that fails ^\w+$.
var ErrInvalidName = errors.New("trigger: invalid name")

// ErrDuplicateName reports registering a name that already exists.
var ErrDuplicateName = errors.New("trigger: duplicate name")

// ErrUnknownName reports an operation against a name the registry does not
// hold (used where the caller needs to distinguish "no-op" from "removed").
var ErrUnknownName = errors.New("trigger: unknown name")

func validateName(name string) error {
	if !nameRe.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
