package transpile

import (
	"errors"
	"fmt"
)

// ErrNoFetchEquivalent is returned for statements FetchXML cannot express.
var ErrNoFetchEquivalent = errors.New("statement has no FetchXML equivalent")

// Error is a statement that parses but cannot be translated to FetchXML.
type Error struct {
	Message string
}

func (e *Error) Error() string {
	return "transpile error: " + e.Message
}

func errorf(format string, args ...any) *Error {
	return &Error{Message: fmt.Sprintf(format, args...)}
}

// Common error messages
const (
	ErrUnknownQualifier  = "unknown table or alias %q"
	ErrDuplicateAlias    = "table alias %q is used more than once"
	ErrUngroupedColumn   = "column %s must appear in GROUP BY or be used in an aggregate function"
	ErrWildcardAggregate = "* cannot be combined with aggregate functions or GROUP BY"
	ErrJoinKeys          = "join condition of %s must compare a column of %s with a column of a table joined before it"
	ErrOrderAggregate    = "ORDER BY %s must reference a grouped column or an aggregate alias"
)
