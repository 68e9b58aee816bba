package schema

import (
	"errors"
	"fmt"
)

// Error represents a schema fault: an unknown entity type or field name
// referenced at definition or access time. These are programmer errors
// and are surfaced immediately rather than tolerated.
type Error struct {
	Entity  string
	Field   string
	Message string
}

func (e *Error) Error() string {
	switch {
	case e.Entity != "" && e.Field != "":
		return fmt.Sprintf("schema: %s.%s: %s", e.Entity, e.Field, e.Message)
	case e.Entity != "":
		return fmt.Sprintf("schema: %s: %s", e.Entity, e.Message)
	default:
		return fmt.Sprintf("schema: %s", e.Message)
	}
}

// IsSchemaError reports whether err is (or wraps) a schema fault.
func IsSchemaError(err error) bool {
	var se *Error
	return errors.As(err, &se)
}
