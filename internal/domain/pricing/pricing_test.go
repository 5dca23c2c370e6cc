package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func thresholdCalc(taxRate, fee, threshold string) *Calculator {
	return NewCalculator(dec(taxRate), FreeOverThreshold{
		FlatFee:   dec(fee),
		Threshold: dec(threshold),
	})
}

func TestCompute_ThresholdPolicyUnderThreshold(t *testing.T) {
	// Cart: 2 x 1000.00, flat fee 500 under a 5000 threshold, 10% tax.
	calc := thresholdCalc("0.10", "500", "5000")

	sum, err := calc.Compute([]LineItem{
		{ProductID: "a", UnitPrice: dec("1000"), Quantity: 2},
	}, ShippingStandard, decimal.Zero)

	require.NoError(t, err)
	assert.True(t, dec("2000.00").Equal(sum.Subtotal), "subtotal: %s", sum.Subtotal)
	assert.True(t, dec("200.00").Equal(sum.Tax), "tax: %s", sum.Tax)
	assert.True(t, dec("500.00").Equal(sum.Shipping), "shipping: %s", sum.Shipping)
	assert.True(t, dec("2700.00").Equal(sum.Total), "total: %s", sum.Total)
	assert.Equal(t, 2, sum.ItemsCount)
}

func TestCompute_ThresholdPolicyFreeShipping(t *testing.T) {
	calc := thresholdCalc("0.10", "500", "5000")

	sum, err := calc.Compute([]LineItem{
		{ProductID: "a", UnitPrice: dec("3000"), Quantity: 2},
	}, ShippingExpress, decimal.Zero)

	require.NoError(t, err)
	assert.True(t, sum.Shipping.IsZero())
	assert.True(t, dec("6600.00").Equal(sum.Total))
}

func TestCompute_MethodTable(t *testing.T) {
	calc := NewCalculator(dec("0.10"), MethodTable{
		Express:   dec("15.00"),
		Overnight: dec("30.00"),
	})
	items := []LineItem{{ProductID: "a", UnitPrice: dec("10.00"), Quantity: 1}}

	cases := []struct {
		method ShippingMethod
		fee    string
	}{
		{ShippingStandard, "0"},
		{ShippingExpress, "15.00"},
		{ShippingOvernight, "30.00"},
	}
	for _, tc := range cases {
		sum, err := calc.Compute(items, tc.method, decimal.Zero)
		require.NoError(t, err)
		assert.True(t, dec(tc.fee).Equal(sum.Shipping), "method %s", tc.method)
	}
}

func TestCompute_UnknownMethod(t *testing.T) {
	calc := thresholdCalc("0.10", "5.00", "50.00")
	items := []LineItem{{ProductID: "a", UnitPrice: dec("10.00"), Quantity: 1}}

	_, err := calc.Compute(items, ShippingMethod("carrier-pigeon"), decimal.Zero)
	require.ErrorIs(t, err, ErrUnknownShippingMethod)
}

func TestCompute_EmptyItemsZeroSummary(t *testing.T) {
	calc := thresholdCalc("0.10", "5.00", "50.00")

	sum, err := calc.Compute(nil, ShippingStandard, decimal.Zero)

	require.NoError(t, err)
	assert.True(t, sum.Subtotal.IsZero())
	assert.True(t, sum.Total.IsZero())
	assert.Equal(t, 0, sum.ItemsCount)
}

func TestCompute_TotalClampedAtZero(t *testing.T) {
	calc := thresholdCalc("0.10", "0", "0")

	sum, err := calc.Compute([]LineItem{
		{ProductID: "a", UnitPrice: dec("10.00"), Quantity: 1},
	}, ShippingStandard, dec("999.00"))

	require.NoError(t, err)
	assert.True(t, sum.Total.IsZero())
	assert.True(t, dec("999.00").Equal(sum.Discount))
}

func TestCompute_NegativeDiscountIgnored(t *testing.T) {
	calc := thresholdCalc("0.10", "0", "0")

	sum, err := calc.Compute([]LineItem{
		{ProductID: "a", UnitPrice: dec("10.00"), Quantity: 1},
	}, ShippingStandard, dec("-5.00"))

	require.NoError(t, err)
	assert.True(t, sum.Discount.IsZero())
	assert.True(t, dec("11.00").Equal(sum.Total))
}

func TestCompute_RoundingPerField(t *testing.T) {
	// 3 x 0.333 = 0.999 -> 1.00 after rounding; tax 8% of 1.00 = 0.08.
	calc := thresholdCalc("0.08", "0", "0")

	sum, err := calc.Compute([]LineItem{
		{ProductID: "a", UnitPrice: dec("0.333"), Quantity: 3},
	}, ShippingStandard, decimal.Zero)

	require.NoError(t, err)
	assert.True(t, dec("1.00").Equal(sum.Subtotal), "subtotal: %s", sum.Subtotal)
	assert.True(t, dec("0.08").Equal(sum.Tax), "tax: %s", sum.Tax)
	assert.True(t, dec("1.08").Equal(sum.Total), "total: %s", sum.Total)
}

func TestCompute_TotalIdentity(t *testing.T) {
	calc := thresholdCalc("0.10", "5.00", "50.00")

	items := []LineItem{
		{ProductID: "a", UnitPrice: dec("19.99"), Quantity: 3},
		{ProductID: "b", UnitPrice: dec("4.50"), Quantity: 1},
	}
	sum, err := calc.Compute(items, ShippingStandard, dec("2.00"))
	require.NoError(t, err)

	want := sum.Subtotal.Add(sum.Tax).Add(sum.Shipping).Sub(sum.Discount).Round(2)
	assert.True(t, want.Equal(sum.Total))
	assert.False(t, sum.Total.IsNegative())
}
