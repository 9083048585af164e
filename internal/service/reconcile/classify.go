package reconcile

import "github.com/mesabook/cuadre/internal/cuadre"

// Classify derives the reconciliation view for one Z report from its invoices
// and adjustments. It is pure: no store access, no side effects, and the same
// inputs always yield the same item. All arithmetic happens in integer minor
// units (cents).
//
// State precedence, first match wins:
//  1. a pending reason parks the day as pendiente, regardless of difference
//  2. zero difference on an untouched report -> cuadrado_auto
//  3. zero difference after manual edits -> cuadrado_manual
//  4. nonzero difference with no adjustments yet -> propuesta
//  5. otherwise -> descuadre
func Classify(z cuadre.ZReport, invoices []cuadre.Invoice, adjustments []cuadre.Adjustment) cuadre.ReconciliationItem {
	var invoiced int64
	for _, inv := range invoices {
		invoiced += inv.AmountMinor()
	}
	var adjusted int64
	for _, a := range adjustments {
		adjusted += a.SignedMinor()
	}
	declared := z.DeclaredMinor()
	diff := invoiced + adjusted - declared

	var state cuadre.State
	switch {
	case z.PendingReason != "":
		state = cuadre.StatePendiente
	case diff == 0 && !z.ManuallyTouched:
		state = cuadre.StateCuadradoAuto
	case diff == 0:
		state = cuadre.StateCuadradoManual
	case len(adjustments) == 0:
		state = cuadre.StatePropuesta
	default:
		state = cuadre.StateDescuadre
	}

	return cuadre.ReconciliationItem{
		ZReport:         z,
		Date:            z.Date,
		InvoiceCount:    len(invoices),
		InvoicedMinor:   invoiced,
		AdjustedMinor:   adjusted,
		DeclaredMinor:   declared,
		DifferenceMinor: diff,
		State:           state,
		PendingReason:   z.PendingReason,
		AutoExpand:      state == cuadre.StateDescuadre || state == cuadre.StatePropuesta,
	}
}
