package lib

import "fmt"

// WrapError adds a sentinel error on top of the underlying cause so both
// can be matched with errors.Is.
func WrapError(outer error, inner error) error {
	return fmt.Errorf("%w: %w", outer, inner)
}
