package billing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotelapi/internal/apperr"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func ptr[T any](v T) *T { return &v }

func order(untaxed, tax string) Ledger {
	return Ledger{OrderUntaxed: dec(untaxed), OrderTax: dec(tax), OrderTotal: dec(untaxed).Add(dec(tax))}
}

func TestPlanAdvance_PercentageSplitsTaxAndSumsToAmount(t *testing.T) {
	l := order("100", "18")
	p, err := PlanAdvance(l, MethodPercentage, ptr(dec("33")), false)
	require.NoError(t, err)
	assert.Equal(t, KindDownPayment, p.Kind)
	assert.Equal(t, "38.94", p.Total.String())
	assert.True(t, p.Untaxed.Add(p.Tax).Equal(p.Total))
	assert.Equal(t, "33", p.Untaxed.String())
}

func TestPlanAdvance_Rejections(t *testing.T) {
	l := order("100", "0")
	l.DownPayments = dec("80")

	cases := []struct {
		name   string
		method Method
		amount *decimal.Decimal
		want   string
	}{
		{"unknown method", "weekly", nil, "advance_payment_method"},
		{"percentage missing", MethodPercentage, nil, "(porcentaje)"},
		{"percentage zero", MethodPercentage, ptr(dec("0")), "mayor a 0"},
		{"percentage over", MethodPercentage, ptr(dec("101")), "menor o igual a 100"},
		{"fixed missing", MethodFixed, nil, "(monto fijo)"},
		{"fixed negative", MethodFixed, ptr(dec("-5")), "mayor a 0"},
		{"fixed over remaining", MethodFixed, ptr(dec("25")), "excede el monto pendiente por facturar (20.00)"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := PlanAdvance(l, tc.method, tc.amount, false)
			require.Error(t, err)
			assert.True(t, apperr.Is(err, apperr.KindValidation))
			assert.Contains(t, err.Error(), tc.want)
		})
	}

	p, err := PlanAdvance(l, MethodFixed, ptr(dec("20")), false)
	require.NoError(t, err)
	assert.Equal(t, "20", p.Total.String())
	assert.True(t, p.Tax.IsZero())
}

func TestPlanFinal_DeductsPendingDownPayments(t *testing.T) {
	l := order("200", "36")
	l.DownPayments = dec("50")

	p, err := PlanFinal(l, true)
	require.NoError(t, err)
	assert.Equal(t, KindFinal, p.Kind)
	assert.Equal(t, "50", p.Deducted.String())
	assert.Equal(t, "186", p.Total.String())
	assert.True(t, p.Untaxed.Add(p.Tax).Equal(p.Total))

	kept, err := PlanFinal(l, false)
	require.NoError(t, err)
	assert.True(t, kept.Deducted.IsZero())
	assert.Equal(t, "236", kept.Total.String())
}

func TestPlanFinal_FullyInvoiced(t *testing.T) {
	l := order("100", "0")
	l.FinalGross = dec("100")
	_, err := PlanFinal(l, true)
	assert.ErrorContains(t, err, "facturada por completo")

	p, err := PlanAdvance(l, MethodDelivered, nil, true)
	assert.Error(t, err)
	assert.Equal(t, Plan{}, p)
}

func TestLedgerAmounts(t *testing.T) {
	l := order("100", "18")
	l.DownPayments = dec("30")
	l.FinalGross = dec("118")
	l.Deducted = dec("30")
	l.Paid = dec("50")

	assert.Equal(t, "0", l.Pending().String())
	assert.Equal(t, "118", l.Invoiced().String())
	assert.True(t, l.ToInvoice().IsZero())
	assert.Equal(t, "68", l.Residual().String())

	l.Paid = dec("200")
	assert.True(t, l.Residual().IsZero())
}
