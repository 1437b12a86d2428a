package ast

import "github.com/cockroachdb/errors"

// MaxResults bounds both the filtered row count of an ungrouped query and
// the group count of a grouped one.
const MaxResults = 5000

var (
	// ErrInvalidQuery marks every grammar or semantic violation.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrResultTooLarge marks queries whose result exceeds MaxResults.
	ErrResultTooLarge = errors.New("result too large")
)

// Invalidf builds an error marked as ErrInvalidQuery.
func Invalidf(format string, args ...any) error {
	return errors.Mark(errors.Newf(format, args...), ErrInvalidQuery)
}

// TooLarge builds an error marked as ErrResultTooLarge.
func TooLarge(what string, n int) error {
	err := errors.Newf("%s exceeds %d (got at least %d)", what, MaxResults, n)
	err = errors.WithHint(err, "narrow the WHERE clause or the GROUP keys")
	return errors.Mark(err, ErrResultTooLarge)
}

// Kind returns a short name for the error kind: "InvalidQuery",
// "ResultTooLarge" or "" for anything else.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrInvalidQuery):
		return "InvalidQuery"
	case errors.Is(err, ErrResultTooLarge):
		return "ResultTooLarge"
	default:
		return ""
	}
}
