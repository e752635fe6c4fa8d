package store

import (
	"errors"
	"fmt"
)

var ErrDuplicateID = errors.New("duplicate task id")

type NotFoundError struct {
	Kind string
	ID   string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}
