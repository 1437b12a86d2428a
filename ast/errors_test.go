package ast

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func TestErrorKinds(t *testing.T) {
	invalid := Invalidf("bad key %q", "x")
	require.True(t, errors.Is(invalid, ErrInvalidQuery))
	require.False(t, errors.Is(invalid, ErrResultTooLarge))
	require.Equal(t, `bad key "x"`, invalid.Error())
	require.Equal(t, "InvalidQuery", Kind(invalid))
	require.Equal(t, "InvalidQuery", Kind(errors.Wrap(invalid, "validate")))

	large := TooLarge("group count", MaxResults+1)
	require.True(t, errors.Is(large, ErrResultTooLarge))
	require.Equal(t, "ResultTooLarge", Kind(large))
	require.Contains(t, large.Error(), "5001")
	require.NotEmpty(t, errors.FlattenHints(large))

	require.Equal(t, "", Kind(errors.New("boom")))
	require.Equal(t, "", Kind(nil))
}

func TestTokenNumericOnly(t *testing.T) {
	for _, tok := range []Token{Max, Min, Avg, Sum} {
		require.True(t, tok.NumericOnly(), tok)
	}
	require.False(t, Count.NumericOnly())
}
