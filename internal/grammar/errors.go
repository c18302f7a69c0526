package grammar

import (
	"errors"
	"fmt"
)

// ErrMissingBase is wrapped when no base template was supplied
var ErrMissingBase = errors.New("base template is missing")

// AssemblyError is fatal for one regeneration cycle. It points at a packaging
// defect (missing or corrupt base template) rather than at user input.
type AssemblyError struct {
	Stage string
	Err   error
}

func (e *AssemblyError) Error() string {
	return fmt.Sprintf("grammar assembly failed (%s): %v", e.Stage, e.Err)
}

func (e *AssemblyError) Unwrap() error {
	return e.Err
}
