package schema

import (
	"errors"
	"fmt"
)

// ErrStructural marks input that cannot be processed at all: missing tables,
// missing required columns, or a grid without a usable header row.
var ErrStructural = errors.New("structural input error")

// StructuralError describes which table failed validation and why.
type StructuralError struct {
	Table  string
	Reason string
}

func (e *StructuralError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("%s: %s", ErrStructural, e.Reason)
	}
	return fmt.Sprintf("%s: table %q: %s", ErrStructural, e.Table, e.Reason)
}

// Is reports ErrStructural as the sentinel for every StructuralError.
func (e *StructuralError) Is(target error) bool {
	return target == ErrStructural
}

// Structuralf builds a StructuralError with a formatted reason.
func Structuralf(table, format string, args ...any) error {
	return &StructuralError{Table: table, Reason: fmt.Sprintf(format, args...)}
}
