package billing

import (
	"github.com/shopspring/decimal"

	"hotelapi/internal/apperr"
)

type Method string

const (
	MethodDelivered  Method = "delivered"
	MethodPercentage Method = "percentage"
	MethodFixed      Method = "fixed"
)

var methodLabels = []struct {
	Value Method
	Label string
}{
	{MethodDelivered, "Factura regular"},
	{MethodPercentage, "Anticipo (porcentaje)"},
	{MethodFixed, "Anticipo (monto fijo)"},
}

const (
	KindDownPayment = "down_payment"
	KindFinal       = "final"
)

const currencyScale int32 = 2

var hundred = decimal.NewFromInt(100)

// Ledger is what a sale order amounts to and what was already invoiced
// against it.
type Ledger struct {
	OrderUntaxed decimal.Decimal
	OrderTax     decimal.Decimal
	OrderTotal   decimal.Decimal

	DownPayments decimal.Decimal
	// FinalGross is the sum of final invoices before deductions.
	FinalGross decimal.Decimal
	Deducted   decimal.Decimal
	Paid       decimal.Decimal
}

// Pending is the down payment amount not yet deducted by a final invoice.
func (l Ledger) Pending() decimal.Decimal {
	return l.DownPayments.Sub(l.Deducted)
}

// Invoiced is the sum of every posted invoice total.
func (l Ledger) Invoiced() decimal.Decimal {
	return l.DownPayments.Add(l.FinalGross).Sub(l.Deducted)
}

// ToInvoice is the part of the order no invoice covers yet.
func (l Ledger) ToInvoice() decimal.Decimal {
	d := l.OrderTotal.Sub(l.FinalGross).Sub(l.Pending())
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// Residual is what the customer still owes on the order.
func (l Ledger) Residual() decimal.Decimal {
	d := l.OrderTotal.Sub(l.Paid)
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// Plan is one invoice to create.
type Plan struct {
	Kind     string
	Untaxed  decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
	Deducted decimal.Decimal
}

// split divides a tax-included amount in the order's untaxed/tax ratio. The
// rounding delta lands on the tax share so both parts sum to amount.
func (l Ledger) split(amount decimal.Decimal) (untaxed, tax decimal.Decimal) {
	amount = amount.Round(currencyScale)
	if !l.OrderTotal.IsPositive() || l.OrderTax.IsZero() {
		return amount, decimal.Zero
	}
	untaxed = amount.Mul(l.OrderUntaxed).Div(l.OrderTotal).Round(currencyScale)
	return untaxed, amount.Sub(untaxed)
}

// PlanAdvance computes the invoice an advance payment request produces.
// Percentages apply against the order total, not the remaining amount.
func PlanAdvance(l Ledger, method Method, amount *decimal.Decimal, deduct bool) (Plan, error) {
	switch method {
	case MethodDelivered:
		return PlanFinal(l, deduct)
	case MethodPercentage:
		if amount == nil {
			return Plan{}, apperr.Validation(`Debe especificar "amount" (porcentaje) para el anticipo.`)
		}
		if !amount.IsPositive() || amount.GreaterThan(hundred) {
			return Plan{}, apperr.Validation("El porcentaje del anticipo debe ser mayor a 0 y menor o igual a 100")
		}
		return l.downPayment(l.OrderTotal.Mul(*amount).Div(hundred))
	case MethodFixed:
		if amount == nil {
			return Plan{}, apperr.Validation(`Debe especificar "amount" (monto fijo) para el anticipo.`)
		}
		if !amount.IsPositive() {
			return Plan{}, apperr.Validation("El monto del anticipo debe ser mayor a 0")
		}
		return l.downPayment(*amount)
	default:
		return Plan{}, apperr.Validation(`advance_payment_method debe ser "percentage", "fixed" o "delivered".`)
	}
}

func (l Ledger) downPayment(amount decimal.Decimal) (Plan, error) {
	amount = amount.Round(currencyScale)
	if !amount.IsPositive() {
		return Plan{}, apperr.Validation("El monto del anticipo debe ser mayor a 0")
	}
	remaining := l.ToInvoice()
	if amount.GreaterThan(remaining) {
		return Plan{}, apperr.Validationf("El anticipo (%s) excede el monto pendiente por facturar (%s)",
			amount.StringFixed(2), remaining.StringFixed(2))
	}
	untaxed, tax := l.split(amount)
	return Plan{Kind: KindDownPayment, Untaxed: untaxed, Tax: tax, Total: amount}, nil
}

// PlanFinal invoices what no final invoice covers yet, optionally deducting
// the pending down payments.
func PlanFinal(l Ledger, deduct bool) (Plan, error) {
	gross := l.OrderTotal.Sub(l.FinalGross).Round(currencyScale)
	if !gross.IsPositive() {
		return Plan{}, apperr.Validation("La orden de venta ya fue facturada por completo")
	}
	p := Plan{Kind: KindFinal}
	if deduct {
		p.Deducted = decimal.Min(l.Pending(), gross)
		if p.Deducted.IsNegative() {
			p.Deducted = decimal.Zero
		}
	}
	p.Total = gross.Sub(p.Deducted)
	p.Untaxed, p.Tax = l.split(p.Total)
	return p, nil
}
