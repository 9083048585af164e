package cuadre

import (
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/mesabook/cuadre/internal/meta"
)

// Currency is the single currency the engine reconciles in.
const Currency = "EUR"

// AssociationKind records how an invoice ended up assigned to a Z report.
type AssociationKind string

const (
	// AssociationAuto means the invoice was matched to its Z report by the system.
	AssociationAuto AssociationKind = "auto"
	// AssociationManual means an operator relocated or attached the invoice.
	AssociationManual AssociationKind = "manual"
	// AssociationNone means the invoice has no Z report yet (orphan).
	AssociationNone AssociationKind = "none"
)

// AdjustmentKind classifies a manual correction against a Z report.
type AdjustmentKind string

const (
	AdjustmentPositive AdjustmentKind = "positive"
	AdjustmentNegative AdjustmentKind = "negative"
	// AdjustmentComment carries no amount; it only documents the day.
	AdjustmentComment AdjustmentKind = "comment"
)

// Valid reports whether k is a known adjustment kind.
func (k AdjustmentKind) Valid() bool {
	switch k {
	case AdjustmentPositive, AdjustmentNegative, AdjustmentComment:
		return true
	}
	return false
}

// State is the derived reconciliation classification of a trading day.
// It is a pure function of the persisted facts and is never stored.
type State string

const (
	// StatePendiente is the manual override: an operator parked the day with a reason.
	StatePendiente State = "pendiente"
	// StatePropuesta means the difference is nonzero and nothing manual happened yet.
	StatePropuesta State = "propuesta"
	// StateCuadradoAuto means the day balanced without any manual edit.
	StateCuadradoAuto State = "cuadrado_auto"
	// StateCuadradoManual means the day balanced after manual edits.
	StateCuadradoManual State = "cuadrado_manual"
	// StateDescuadre means the difference is nonzero despite manual edits.
	StateDescuadre State = "descuadre"
)

// StatusFilter selects a subset of reconciliation states for listing.
type StatusFilter string

const (
	FilterTodos      StatusFilter = "todos"
	FilterPendientes StatusFilter = "pendientes"
	FilterCuadrados  StatusFilter = "cuadrados"
	FilterDescuadres StatusFilter = "descuadres"
)

// Valid reports whether f is a known filter. The empty filter means todos.
func (f StatusFilter) Valid() bool {
	switch f {
	case "", FilterTodos, FilterPendientes, FilterCuadrados, FilterDescuadres:
		return true
	}
	return false
}

// Matches reports whether a state passes the filter.
func (f StatusFilter) Matches(st State) bool {
	switch f {
	case "", FilterTodos:
		return true
	case FilterPendientes:
		return st == StateDescuadre || st == StatePropuesta || st == StatePendiente
	case FilterCuadrados:
		return st == StateCuadradoAuto || st == StateCuadradoManual
	case FilterDescuadres:
		return st == StateDescuadre
	}
	return false
}

// Invoice is an immutable point-of-sale receipt. The Z report assignment is
// the only field the engine ever mutates, via relocation.
type Invoice struct {
	ID            uuid.UUID
	Date          time.Time // trading date, midnight UTC
	IssuedAt      time.Time
	Amount        money.Amount
	PaymentMethod string
	Table         string
	ZReportID     *uuid.UUID
	Association   AssociationKind
	// Metadata holds extra attributes carried over from the POS.
	Metadata meta.Metadata `json:"metadata,omitempty"`
}

// AmountMinor returns the invoice amount in minor units (cents).
func (i Invoice) AmountMinor() int64 {
	m, _ := i.Amount.MinorUnits()
	return m
}

// ZReport is the end-of-day register closing document. The declared total is
// ground truth and is never mutated. Confirmed, PendingReason and
// ManuallyTouched are the persisted facts that classification derives from.
type ZReport struct {
	ID            uuid.UUID
	Date          time.Time
	DeclaredTotal money.Amount
	DocumentRef   string
	// Confirmed is the operator's explicit sign-off.
	Confirmed bool
	// PendingReason, when non-empty, parks the day as pendiente.
	PendingReason string
	// ManuallyTouched is set once any adjustment or relocation hits this report.
	// It stays set even if the edits are later undone.
	ManuallyTouched bool
}

// DeclaredMinor returns the declared total in minor units.
func (z ZReport) DeclaredMinor() int64 {
	m, _ := z.DeclaredTotal.MinorUnits()
	return m
}

// Adjustment is a manual correction entered against a Z report. Adjustments
// are never updated in place; correcting one means delete and recreate, which
// keeps an audit trail via creation timestamps.
type Adjustment struct {
	ID          uuid.UUID
	ZReportID   uuid.UUID
	Date        time.Time
	Kind        AdjustmentKind
	Amount      money.Amount // magnitude; the sign is implied by Kind
	Description string
	Metadata    meta.Metadata `json:"metadata,omitempty"`
	CreatedAt   time.Time
}

// SignedMinor returns the adjustment's contribution to the day's total in
// minor units. Comments contribute zero.
func (a Adjustment) SignedMinor() int64 {
	m, _ := a.Amount.MinorUnits()
	switch a.Kind {
	case AdjustmentPositive:
		return m
	case AdjustmentNegative:
		return -m
	}
	return 0
}

// ReconciliationItem is the derived view joining one Z report with its
// invoices and adjustments. It is recomputed on every read, never stored.
type ReconciliationItem struct {
	ZReport         ZReport
	Date            time.Time
	InvoiceCount    int
	InvoicedMinor   int64
	AdjustedMinor   int64
	DeclaredMinor   int64
	DifferenceMinor int64
	State           State
	PendingReason   string
	// AutoExpand flags items that need operator attention; the workspace
	// loads their details eagerly.
	AutoExpand bool
}

// AmountFromMinor builds an exact EUR amount from minor units.
func AmountFromMinor(minor int64) money.Amount {
	amt, _ := money.NewAmountFromMinorUnits(Currency, minor)
	return amt
}

// TradingDate truncates t to the trading date it belongs to (midnight UTC).
func TradingDate(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseTradingDate parses a YYYY-MM-DD trading date.
func ParseTradingDate(s string) (time.Time, error) {
	return time.Parse(time.DateOnly, s)
}
