package numeric

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := Parse(s)
	require.NoError(t, err)
	return d
}

func TestParseRejectsMalformedInput(t *testing.T) {
	for _, input := range []string{"", "abc", "1.2.3", "--1", "1,5"} {
		_, err := Parse(input)
		require.Error(t, err, "input %q", input)

		var parseErr *ParseError
		require.True(t, errors.As(err, &parseErr))
		require.Equal(t, input, parseErr.Input)
	}
}

func TestMulExact(t *testing.T) {
	tests := []struct {
		a, b, want string
	}{
		{"0.015", "200", "3"},
		{"0.1", "0.2", "0.02"},
		{"2", "0.015", "0.03"},
		{"0", "123.456", "0"},
	}

	for _, tt := range tests {
		got := Mul(mustParse(t, tt.a), mustParse(t, tt.b))
		require.True(t, got.Equal(mustParse(t, tt.want)),
			"%s * %s = %s, want %s", tt.a, tt.b, got, tt.want)
	}
}

func TestDivByZero(t *testing.T) {
	_, err := Div(mustParse(t, "1"), decimal.Zero)
	require.ErrorIs(t, err, ErrDivisionByZero)
}

func TestDivTruncatesNonTerminatingExpansion(t *testing.T) {
	got, err := Div(mustParse(t, "1"), mustParse(t, "3"))
	require.NoError(t, err)
	require.Equal(t, "0.33333333", got.String())
}

func TestDivRoundTripWithinPrecision(t *testing.T) {
	// divide(multiply(a,b), b) == a for values representable at DivPrecision
	tests := []struct{ a, b string }{
		{"0.015", "200"},
		{"1.5", "3"},
		{"0.00000001", "2"},
		{"123456.789", "0.5"},
	}

	for _, tt := range tests {
		a, b := mustParse(t, tt.a), mustParse(t, tt.b)
		got, err := Div(Mul(a, b), b)
		require.NoError(t, err)
		require.True(t, got.Equal(a), "roundtrip %s via %s gave %s", tt.a, tt.b, got)
	}
}

func TestAddMonotonic(t *testing.T) {
	pairs := []struct{ a, b string }{
		{"0", "0"},
		{"1.5", "0"},
		{"0.00000001", "0.00000001"},
		{"999999", "0.1"},
	}

	for _, tt := range pairs {
		a, b := mustParse(t, tt.a), mustParse(t, tt.b)
		cmp := Compare(Add(a, b), a)
		require.GreaterOrEqual(t, cmp, 0, "add(%s,%s) compared below %s", tt.a, tt.b, tt.a)
	}
}

func TestTruncateFloorsTowardZero(t *testing.T) {
	got := Truncate(mustParse(t, "1.99999999"), 4)
	require.True(t, got.Equal(mustParse(t, "1.9999")), "got %s", got)

	// never rounds up: a displayed amount must stay spendable
	got = Truncate(mustParse(t, "0.00009999"), 4)
	require.True(t, got.IsZero(), "got %s", got)
}

func TestCompareTotalOrder(t *testing.T) {
	require.Equal(t, -1, Compare(mustParse(t, "1"), mustParse(t, "2")))
	require.Equal(t, 0, Compare(mustParse(t, "1.10"), mustParse(t, "1.1")))
	require.Equal(t, 1, Compare(mustParse(t, "-1"), mustParse(t, "-2")))
}

func TestFormatTrimsTrailingZeros(t *testing.T) {
	require.Equal(t, "3", Format(mustParse(t, "3.00000000")))
	require.Equal(t, "0.015", Format(mustParse(t, "0.0150")))
}

func TestStringHelpers(t *testing.T) {
	sum, err := AddStrings("0.1", "0.2")
	require.NoError(t, err)
	require.Equal(t, "0.3", sum)

	prod, err := MulStrings("0.015", "200")
	require.NoError(t, err)
	require.Equal(t, "3", prod)

	quot, err := DivStrings("3", "200")
	require.NoError(t, err)
	require.Equal(t, "0.015", quot)

	_, err = DivStrings("1", "0")
	require.ErrorIs(t, err, ErrDivisionByZero)

	cmp, err := CompareStrings("0.3", "0.30")
	require.NoError(t, err)
	require.Equal(t, 0, cmp)
}
