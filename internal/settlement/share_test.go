package settlement

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeShare(t *testing.T) {
	price := func(v string) decimal.NullDecimal {
		return decimal.NullDecimal{Decimal: decimal.RequireFromString(v), Valid: true}
	}

	cases := []struct {
		name    string
		total   decimal.NullDecimal
		divisor int
		want    string
		err     error
	}{
		{name: "even split", total: price("100"), divisor: 4, want: "25.00"},
		{name: "rounds half away from zero", total: price("100"), divisor: 3, want: "33.33"},
		{name: "half cent rounds up", total: price("0.05"), divisor: 2, want: "0.03"},
		{name: "unset price", total: decimal.NullDecimal{}, divisor: 2, err: ErrPriceNotSet},
		{name: "zero price", total: price("0"), divisor: 2, err: ErrPriceNotSet},
		{name: "negative price", total: price("-10"), divisor: 2, err: ErrPriceNotSet},
		{name: "no divisor", total: price("100"), divisor: 0, err: ErrNoParticipants},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ComputeShare(tc.total, tc.divisor)
			if tc.err != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tc.err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.StringFixed(2))
		})
	}
}
