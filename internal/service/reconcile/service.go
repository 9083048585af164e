package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mesabook/cuadre/internal/cuadre"
	"github.com/mesabook/cuadre/internal/errs"
	"github.com/mesabook/cuadre/internal/meta"
)

// Repo defines the read operations the workspace needs.
type Repo interface {
	// ZReportsInRange returns Z reports with trading dates in [from, to], date asc.
	ZReportsInRange(ctx context.Context, from, to time.Time) ([]cuadre.ZReport, error)
	ZReportByID(ctx context.Context, id uuid.UUID) (cuadre.ZReport, error)
	InvoicesForZReport(ctx context.Context, zreportID uuid.UUID) ([]cuadre.Invoice, error)
	AdjustmentsForZReport(ctx context.Context, zreportID uuid.UUID) ([]cuadre.Adjustment, error)
	InvoiceByID(ctx context.Context, id uuid.UUID) (cuadre.Invoice, error)
	// OrphanInvoices returns invoices on date with no Z report assignment.
	OrphanInvoices(ctx context.Context, date time.Time) ([]cuadre.Invoice, error)
	// AdjacentInvoices returns invoices on date assigned to some other Z report.
	AdjacentInvoices(ctx context.Context, date time.Time, excludeZReportID uuid.UUID) ([]cuadre.Invoice, error)
	// AvailableZReports returns candidate relocation targets on date.
	AvailableZReports(ctx context.Context, date time.Time, excludeZReportID uuid.UUID) ([]cuadre.ZReport, error)
}

// Writer defines the mutations the workspace dispatches. Mutations persist
// facts only (adjustment rows, assignment pointers, dispositions); the
// classification is recomputed from those facts on the next read, which keeps
// the displayed state self-healing when the underlying invoice set changes.
// CreateAdjustment and ReassignInvoice also mark the affected Z reports as
// manually touched.
type Writer interface {
	CreateAdjustment(ctx context.Context, a cuadre.Adjustment) (cuadre.Adjustment, error)
	// DeleteAdjustment returns errs.ErrNotFound when the id does not exist.
	DeleteAdjustment(ctx context.Context, id uuid.UUID) error
	ReassignInvoice(ctx context.Context, invoiceID, zreportID uuid.UUID) error
	SetConfirmed(ctx context.Context, zreportID uuid.UUID) error
	// SetPendingReason with an empty reason clears the pending disposition.
	SetPendingReason(ctx context.Context, zreportID uuid.UUID, reason string) error
}

// AdjustmentInput carries the caller-supplied fields for a new adjustment.
// AmountMinor is a magnitude; the sign is implied by Kind. It is ignored for
// comments.
type AdjustmentInput struct {
	ZReportID   uuid.UUID
	Kind        cuadre.AdjustmentKind
	AmountMinor int64
	Description string
	Metadata    meta.Metadata
}

// Detail is the eagerly loaded view of one reconciliation item.
type Detail struct {
	Item        cuadre.ReconciliationItem
	Invoices    []cuadre.Invoice
	Adjustments []cuadre.Adjustment
}

// Relocation reports the recomputed items on both sides of an invoice move.
// Source is nil when the invoice was an orphan.
type Relocation struct {
	Source *cuadre.ReconciliationItem
	Target cuadre.ReconciliationItem
}

// Service is the reconciliation workspace: it lists classified items for a
// date range and dispatches the mutation operations, reloading the affected
// items after each confirmed mutation so a stale read never masks newer facts.
type Service interface {
	List(ctx context.Context, from, to time.Time, filter cuadre.StatusFilter) ([]cuadre.ReconciliationItem, error)
	Item(ctx context.Context, zreportID uuid.UUID) (cuadre.ReconciliationItem, error)
	Detail(ctx context.Context, zreportID uuid.UUID) (Detail, error)
	Confirm(ctx context.Context, zreportID uuid.UUID) (cuadre.ReconciliationItem, error)
	MarkPending(ctx context.Context, zreportID uuid.UUID, reason string) (cuadre.ReconciliationItem, error)
	ClearPending(ctx context.Context, zreportID uuid.UUID) (cuadre.ReconciliationItem, error)
	CreateAdjustment(ctx context.Context, in AdjustmentInput) (cuadre.Adjustment, cuadre.ReconciliationItem, error)
	DeleteAdjustment(ctx context.Context, adjustmentID uuid.UUID) error
	RelocateInvoice(ctx context.Context, invoiceID, targetZReportID uuid.UUID) (Relocation, error)
	AttachInvoices(ctx context.Context, zreportID uuid.UUID, invoiceIDs []uuid.UUID) (cuadre.ReconciliationItem, error)
	OrphanInvoices(ctx context.Context, zreportID uuid.UUID) ([]cuadre.Invoice, error)
	AdjacentInvoices(ctx context.Context, zreportID uuid.UUID) ([]cuadre.Invoice, error)
	RelocationTargets(ctx context.Context, zreportID uuid.UUID) ([]cuadre.ZReport, error)
}

type service struct {
	repo   Repo
	writer Writer
	now    func() time.Time
}

func New(repo Repo, writer Writer) Service {
	return &service{repo: repo, writer: writer, now: func() time.Time { return time.Now().UTC() }}
}

// List loads Z reports in [from, to], classifies each, orders by trading date
// ascending and applies the status filter as a pure post-filter.
func (s *service) List(ctx context.Context, from, to time.Time, filter cuadre.StatusFilter) ([]cuadre.ReconciliationItem, error) {
	if !filter.Valid() {
		return nil, fmt.Errorf("%w: unknown status filter %q", errs.ErrInvalid, filter)
	}
	from, to = cuadre.TradingDate(from), cuadre.TradingDate(to)
	if to.Before(from) {
		return nil, fmt.Errorf("%w: date range is inverted", errs.ErrInvalid)
	}
	zs, err := s.repo.ZReportsInRange(ctx, from, to)
	if err != nil {
		return nil, err
	}
	items := make([]cuadre.ReconciliationItem, 0, len(zs))
	for _, z := range zs {
		item, err := s.classifyZReport(ctx, z)
		if err != nil {
			return nil, err
		}
		if filter.Matches(item.State) {
			items = append(items, item)
		}
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Date.Before(items[j].Date) })
	return items, nil
}

// Item reloads and reclassifies a single reconciliation item.
func (s *service) Item(ctx context.Context, zreportID uuid.UUID) (cuadre.ReconciliationItem, error) {
	z, err := s.repo.ZReportByID(ctx, zreportID)
	if err != nil {
		return cuadre.ReconciliationItem{}, err
	}
	return s.classifyZReport(ctx, z)
}

// Detail returns the item with its invoices and adjustments loaded.
func (s *service) Detail(ctx context.Context, zreportID uuid.UUID) (Detail, error) {
	z, err := s.repo.ZReportByID(ctx, zreportID)
	if err != nil {
		return Detail{}, err
	}
	invoices, err := s.repo.InvoicesForZReport(ctx, z.ID)
	if err != nil {
		return Detail{}, err
	}
	adjustments, err := s.repo.AdjustmentsForZReport(ctx, z.ID)
	if err != nil {
		return Detail{}, err
	}
	return Detail{Item: Classify(z, invoices, adjustments), Invoices: invoices, Adjustments: adjustments}, nil
}

// Confirm records the operator's sign-off. It is permitted for a propuesta,
// or once a manual fix has already zeroed the difference. Confirm persists no
// classification: state stays a pure recomputation.
func (s *service) Confirm(ctx context.Context, zreportID uuid.UUID) (cuadre.ReconciliationItem, error) {
	item, err := s.Item(ctx, zreportID)
	if err != nil {
		return cuadre.ReconciliationItem{}, err
	}
	switch item.State {
	case cuadre.StatePropuesta, cuadre.StateCuadradoManual:
	default:
		return cuadre.ReconciliationItem{}, fmt.Errorf("%w: confirm requires propuesta or a zeroed difference, state is %s", errs.ErrNotAllowed, item.State)
	}
	if err := s.writer.SetConfirmed(ctx, zreportID); err != nil {
		return cuadre.ReconciliationItem{}, err
	}
	return s.Item(ctx, zreportID)
}

// MarkPending parks a descuadre with a reason. The blank-reason check runs
// before any store mutation.
func (s *service) MarkPending(ctx context.Context, zreportID uuid.UUID, reason string) (cuadre.ReconciliationItem, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return cuadre.ReconciliationItem{}, errs.ErrBlankReason
	}
	item, err := s.Item(ctx, zreportID)
	if err != nil {
		return cuadre.ReconciliationItem{}, err
	}
	if item.State != cuadre.StateDescuadre {
		return cuadre.ReconciliationItem{}, fmt.Errorf("%w: mark-pending requires descuadre, state is %s", errs.ErrNotAllowed, item.State)
	}
	if err := s.writer.SetPendingReason(ctx, zreportID, reason); err != nil {
		return cuadre.ReconciliationItem{}, err
	}
	return s.Item(ctx, zreportID)
}

// ClearPending removes the pending disposition; the next read re-derives the
// state from the remaining facts.
func (s *service) ClearPending(ctx context.Context, zreportID uuid.UUID) (cuadre.ReconciliationItem, error) {
	if _, err := s.repo.ZReportByID(ctx, zreportID); err != nil {
		return cuadre.ReconciliationItem{}, err
	}
	if err := s.writer.SetPendingReason(ctx, zreportID, ""); err != nil {
		return cuadre.ReconciliationItem{}, err
	}
	return s.Item(ctx, zreportID)
}

// CreateAdjustment validates the input, persists the adjustment and returns
// the recomputed item. Permitted in any state.
func (s *service) CreateAdjustment(ctx context.Context, in AdjustmentInput) (cuadre.Adjustment, cuadre.ReconciliationItem, error) {
	if !in.Kind.Valid() {
		return cuadre.Adjustment{}, cuadre.ReconciliationItem{}, fmt.Errorf("%w: %q", errs.ErrInvalidKind, in.Kind)
	}
	amountMinor := in.AmountMinor
	if in.Kind == cuadre.AdjustmentComment {
		amountMinor = 0
	} else if amountMinor <= 0 {
		return cuadre.Adjustment{}, cuadre.ReconciliationItem{}, errs.ErrInvalidAmount
	}
	if err := in.Metadata.Validate(); err != nil {
		return cuadre.Adjustment{}, cuadre.ReconciliationItem{}, fmt.Errorf("%w: %s", errs.ErrInvalid, err)
	}
	z, err := s.repo.ZReportByID(ctx, in.ZReportID)
	if err != nil {
		return cuadre.Adjustment{}, cuadre.ReconciliationItem{}, err
	}
	adj := cuadre.Adjustment{
		ID:          uuid.New(),
		ZReportID:   z.ID,
		Date:        z.Date,
		Kind:        in.Kind,
		Amount:      cuadre.AmountFromMinor(amountMinor),
		Description: in.Description,
		Metadata:    in.Metadata.Clone(),
		CreatedAt:   s.now(),
	}
	created, err := s.writer.CreateAdjustment(ctx, adj)
	if err != nil {
		return cuadre.Adjustment{}, cuadre.ReconciliationItem{}, err
	}
	item, err := s.Item(ctx, z.ID)
	if err != nil {
		return cuadre.Adjustment{}, cuadre.ReconciliationItem{}, err
	}
	return created, item, nil
}

// DeleteAdjustment removes an adjustment. Deleting an id that is already gone
// is a no-op so retried requests stay safe.
func (s *service) DeleteAdjustment(ctx context.Context, adjustmentID uuid.UUID) error {
	err := s.writer.DeleteAdjustment(ctx, adjustmentID)
	if errors.Is(err, errs.ErrNotFound) {
		return nil
	}
	return err
}

// RelocateInvoice moves an invoice to a Z report on the same trading date and
// returns the recomputed items on both sides. Relocating to the invoice's
// current Z report is a no-op.
func (s *service) RelocateInvoice(ctx context.Context, invoiceID, targetZReportID uuid.UUID) (Relocation, error) {
	inv, err := s.repo.InvoiceByID(ctx, invoiceID)
	if err != nil {
		return Relocation{}, err
	}
	target, err := s.repo.ZReportByID(ctx, targetZReportID)
	if err != nil {
		return Relocation{}, err
	}
	if !cuadre.TradingDate(inv.Date).Equal(cuadre.TradingDate(target.Date)) {
		return Relocation{}, errs.ErrDateMismatch
	}
	sourceID := inv.ZReportID
	alreadyThere := sourceID != nil && *sourceID == target.ID
	if !alreadyThere {
		if err := s.writer.ReassignInvoice(ctx, inv.ID, target.ID); err != nil {
			return Relocation{}, err
		}
	}
	out := Relocation{}
	if sourceID != nil && *sourceID != target.ID {
		src, err := s.Item(ctx, *sourceID)
		if err != nil {
			return Relocation{}, err
		}
		out.Source = &src
	}
	out.Target, err = s.Item(ctx, target.ID)
	if err != nil {
		return Relocation{}, err
	}
	return out, nil
}

// AttachInvoices is the batch form of relocation for orphan or adjacent
// invoices. All invoices are validated against the target's trading date
// before any assignment is written.
func (s *service) AttachInvoices(ctx context.Context, zreportID uuid.UUID, invoiceIDs []uuid.UUID) (cuadre.ReconciliationItem, error) {
	target, err := s.repo.ZReportByID(ctx, zreportID)
	if err != nil {
		return cuadre.ReconciliationItem{}, err
	}
	invoices := make([]cuadre.Invoice, 0, len(invoiceIDs))
	for _, id := range invoiceIDs {
		inv, err := s.repo.InvoiceByID(ctx, id)
		if err != nil {
			return cuadre.ReconciliationItem{}, err
		}
		if !cuadre.TradingDate(inv.Date).Equal(cuadre.TradingDate(target.Date)) {
			return cuadre.ReconciliationItem{}, fmt.Errorf("invoice %s: %w", inv.ID, errs.ErrDateMismatch)
		}
		invoices = append(invoices, inv)
	}
	for _, inv := range invoices {
		if inv.ZReportID != nil && *inv.ZReportID == target.ID {
			continue
		}
		if err := s.writer.ReassignInvoice(ctx, inv.ID, target.ID); err != nil {
			return cuadre.ReconciliationItem{}, err
		}
	}
	return s.Item(ctx, target.ID)
}

// OrphanInvoices lists unassigned invoices on the Z report's trading date,
// used to populate the "add invoice" workflow.
func (s *service) OrphanInvoices(ctx context.Context, zreportID uuid.UUID) ([]cuadre.Invoice, error) {
	z, err := s.repo.ZReportByID(ctx, zreportID)
	if err != nil {
		return nil, err
	}
	return s.repo.OrphanInvoices(ctx, z.Date)
}

// AdjacentInvoices lists invoices assigned to other Z reports on the same
// trading date, used to populate the "move invoice" workflow.
func (s *service) AdjacentInvoices(ctx context.Context, zreportID uuid.UUID) ([]cuadre.Invoice, error) {
	z, err := s.repo.ZReportByID(ctx, zreportID)
	if err != nil {
		return nil, err
	}
	return s.repo.AdjacentInvoices(ctx, z.Date, z.ID)
}

// RelocationTargets lists the other Z reports of the same trading date.
func (s *service) RelocationTargets(ctx context.Context, zreportID uuid.UUID) ([]cuadre.ZReport, error) {
	z, err := s.repo.ZReportByID(ctx, zreportID)
	if err != nil {
		return nil, err
	}
	return s.repo.AvailableZReports(ctx, z.Date, z.ID)
}

// classifyZReport loads the facts for one Z report and runs the calculator.
func (s *service) classifyZReport(ctx context.Context, z cuadre.ZReport) (cuadre.ReconciliationItem, error) {
	invoices, err := s.repo.InvoicesForZReport(ctx, z.ID)
	if err != nil {
		return cuadre.ReconciliationItem{}, err
	}
	adjustments, err := s.repo.AdjustmentsForZReport(ctx, z.ID)
	if err != nil {
		return cuadre.ReconciliationItem{}, err
	}
	return Classify(z, invoices, adjustments), nil
}
