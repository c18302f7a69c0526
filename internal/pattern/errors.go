package pattern

import "fmt"

// InvalidPatternError names a key pattern that could not be compiled and its
// configured index. Compilation continues with the remaining patterns.
type InvalidPatternError struct {
	Index   int
	Pattern string
	Err     error
}

func (e *InvalidPatternError) Error() string {
	return fmt.Sprintf("invalid key pattern #%d %q: %v", e.Index, e.Pattern, e.Err)
}

func (e *InvalidPatternError) Unwrap() error {
	return e.Err
}
