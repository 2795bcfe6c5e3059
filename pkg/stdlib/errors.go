package stdlib

import "fmt"

func argErr(method, format string, args ...any) error {
	return fmt.Errorf("%s: %w: %s", method, ErrArgs, fmt.Sprintf(format, args...))
}
