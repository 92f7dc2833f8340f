package documents

import "github.com/shopspring/decimal"

// TaxRate is the fixed VAT surcharge applied to every line item.
var TaxRate = decimal.RequireFromString("0.15")

// CalculateLineTotals derives subtotal, tax and total for one priced line.
func CalculateLineTotals(unitPrice, quantity decimal.Decimal) (subtotal, taxAmount, total decimal.Decimal) {
	subtotal = unitPrice.Mul(quantity)
	taxAmount = subtotal.Mul(TaxRate)
	total = subtotal.Add(taxAmount)
	return
}

// ComputeLineItemTotals returns a copy of items with the derived fields
// overwritten. Negative prices or quantities are not rejected here.
func ComputeLineItemTotals(items []LineItem) []LineItem {
	out := make([]LineItem, len(items))
	for i, item := range items {
		item.Subtotal, item.TaxAmount, item.Total = CalculateLineTotals(item.UnitPrice, item.Quantity)
		out[i] = item
	}
	return out
}

// ComputeOverallTotals sums each derived field across the annotated items.
func ComputeOverallTotals(items []LineItem) Breakdown {
	annotated := ComputeLineItemTotals(items)
	totals := Totals{Subtotal: decimal.Zero, TaxAmount: decimal.Zero, Total: decimal.Zero}
	for _, item := range annotated {
		totals.Subtotal = totals.Subtotal.Add(item.Subtotal)
		totals.TaxAmount = totals.TaxAmount.Add(item.TaxAmount)
		totals.Total = totals.Total.Add(item.Total)
	}
	return Breakdown{Totals: totals, Items: annotated}
}
