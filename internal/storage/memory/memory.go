package memory

// Package memory provides a simple in-memory implementation used for development and tests.
// It keeps code paths easy to follow while allowing us to plug in a real DB later.
import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mesabook/cuadre/internal/cuadre"
	"github.com/mesabook/cuadre/internal/errs"
	"github.com/mesabook/cuadre/internal/slug"
)

// Store is an in-memory implementation of the repo+writer used by the
// reconciliation workspace. It is guarded by an RWMutex for concurrent
// reads/writes.
type Store struct {
	mu          sync.RWMutex
	zreports    map[uuid.UUID]cuadre.ZReport
	invoices    map[uuid.UUID]cuadre.Invoice
	adjustments map[uuid.UUID]cuadre.Adjustment
}

// New constructs an empty in-memory store.
func New() *Store {
	return &Store{
		zreports:    make(map[uuid.UUID]cuadre.ZReport),
		invoices:    make(map[uuid.UUID]cuadre.Invoice),
		adjustments: make(map[uuid.UUID]cuadre.Adjustment),
	}
}

// Seed helpers for local dev/tests. Trading dates are normalized and payment
// methods coerced to slugs at this boundary, not in the calculator.
func (s *Store) SeedZReport(z cuadre.ZReport) {
	z.Date = cuadre.TradingDate(z.Date)
	s.mu.Lock()
	s.zreports[z.ID] = z
	s.mu.Unlock()
}

func (s *Store) SeedInvoice(inv cuadre.Invoice) {
	inv.Date = cuadre.TradingDate(inv.Date)
	inv.PaymentMethod = slug.Slugify(inv.PaymentMethod)
	if inv.ZReportID == nil {
		inv.Association = cuadre.AssociationNone
	} else if inv.Association == "" {
		inv.Association = cuadre.AssociationAuto
	}
	s.mu.Lock()
	s.invoices[inv.ID] = inv
	s.mu.Unlock()
}

func (s *Store) SeedAdjustment(a cuadre.Adjustment) {
	a.Date = cuadre.TradingDate(a.Date)
	s.mu.Lock()
	s.adjustments[a.ID] = a
	if z, ok := s.zreports[a.ZReportID]; ok {
		z.ManuallyTouched = true
		s.zreports[z.ID] = z
	}
	s.mu.Unlock()
}

func (s *Store) Reset() {
	s.mu.Lock()
	s.zreports = map[uuid.UUID]cuadre.ZReport{}
	s.invoices = map[uuid.UUID]cuadre.Invoice{}
	s.adjustments = map[uuid.UUID]cuadre.Adjustment{}
	s.mu.Unlock()
}

// ZReportsInRange implements reconcile.Repo. Results are ordered by trading
// date asc, then document reference for a stable listing.
func (s *Store) ZReportsInRange(_ context.Context, from, to time.Time) ([]cuadre.ZReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]cuadre.ZReport, 0)
	for _, z := range s.zreports {
		if z.Date.Before(from) || z.Date.After(to) {
			continue
		}
		out = append(out, z)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].DocumentRef < out[j].DocumentRef
	})
	return out, nil
}

// ZReportByID implements reconcile.Repo.
func (s *Store) ZReportByID(_ context.Context, id uuid.UUID) (cuadre.ZReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	z, ok := s.zreports[id]
	if !ok {
		return cuadre.ZReport{}, errs.ErrNotFound
	}
	return z, nil
}

// InvoicesForZReport returns the invoices assigned to a Z report, ordered by
// issue time.
func (s *Store) InvoicesForZReport(_ context.Context, zreportID uuid.UUID) ([]cuadre.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]cuadre.Invoice, 0)
	for _, inv := range s.invoices {
		if inv.ZReportID != nil && *inv.ZReportID == zreportID {
			out = append(out, inv)
		}
	}
	sortInvoices(out)
	return out, nil
}

// AdjustmentsForZReport returns adjustments ordered by creation time, so the
// audit trail reads in the order corrections were entered.
func (s *Store) AdjustmentsForZReport(_ context.Context, zreportID uuid.UUID) ([]cuadre.Adjustment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]cuadre.Adjustment, 0)
	for _, a := range s.adjustments {
		if a.ZReportID == zreportID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// InvoiceByID implements reconcile.Repo.
func (s *Store) InvoiceByID(_ context.Context, id uuid.UUID) (cuadre.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inv, ok := s.invoices[id]
	if !ok {
		return cuadre.Invoice{}, errs.ErrNotFound
	}
	return inv, nil
}

// OrphanInvoices returns unassigned invoices on the trading date.
func (s *Store) OrphanInvoices(_ context.Context, date time.Time) ([]cuadre.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]cuadre.Invoice, 0)
	for _, inv := range s.invoices {
		if inv.ZReportID == nil && inv.Date.Equal(date) {
			out = append(out, inv)
		}
	}
	sortInvoices(out)
	return out, nil
}

// AdjacentInvoices returns invoices on the date assigned to another Z report.
func (s *Store) AdjacentInvoices(_ context.Context, date time.Time, excludeZReportID uuid.UUID) ([]cuadre.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]cuadre.Invoice, 0)
	for _, inv := range s.invoices {
		if inv.ZReportID != nil && *inv.ZReportID != excludeZReportID && inv.Date.Equal(date) {
			out = append(out, inv)
		}
	}
	sortInvoices(out)
	return out, nil
}

// AvailableZReports returns the other Z reports of the trading date.
func (s *Store) AvailableZReports(_ context.Context, date time.Time, excludeZReportID uuid.UUID) ([]cuadre.ZReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]cuadre.ZReport, 0)
	for _, z := range s.zreports {
		if z.ID != excludeZReportID && z.Date.Equal(date) {
			out = append(out, z)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DocumentRef < out[j].DocumentRef })
	return out, nil
}

// CreateAdjustment implements reconcile.Writer. The owning Z report is marked
// manually touched in the same critical section.
func (s *Store) CreateAdjustment(_ context.Context, a cuadre.Adjustment) (cuadre.Adjustment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	z, ok := s.zreports[a.ZReportID]
	if !ok {
		return cuadre.Adjustment{}, errs.ErrNotFound
	}
	s.adjustments[a.ID] = a
	z.ManuallyTouched = true
	s.zreports[z.ID] = z
	return a, nil
}

// DeleteAdjustment implements reconcile.Writer.
func (s *Store) DeleteAdjustment(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.adjustments[id]; !ok {
		return errs.ErrNotFound
	}
	delete(s.adjustments, id)
	return nil
}

// ReassignInvoice moves the invoice's Z report pointer, flips its association
// to manual and marks both sides of the move as touched.
func (s *Store) ReassignInvoice(_ context.Context, invoiceID, zreportID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invoices[invoiceID]
	if !ok {
		return errs.ErrNotFound
	}
	target, ok := s.zreports[zreportID]
	if !ok {
		return errs.ErrNotFound
	}
	if inv.ZReportID != nil {
		if src, ok := s.zreports[*inv.ZReportID]; ok {
			src.ManuallyTouched = true
			s.zreports[src.ID] = src
		}
	}
	zid := target.ID
	inv.ZReportID = &zid
	inv.Association = cuadre.AssociationManual
	s.invoices[inv.ID] = inv
	target.ManuallyTouched = true
	s.zreports[target.ID] = target
	return nil
}

// SetConfirmed implements reconcile.Writer.
func (s *Store) SetConfirmed(_ context.Context, zreportID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	z, ok := s.zreports[zreportID]
	if !ok {
		return errs.ErrNotFound
	}
	z.Confirmed = true
	s.zreports[z.ID] = z
	return nil
}

// SetPendingReason implements reconcile.Writer.
func (s *Store) SetPendingReason(_ context.Context, zreportID uuid.UUID, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	z, ok := s.zreports[zreportID]
	if !ok {
		return errs.ErrNotFound
	}
	z.PendingReason = reason
	s.zreports[z.ID] = z
	return nil
}

func sortInvoices(invs []cuadre.Invoice) {
	sort.Slice(invs, func(i, j int) bool {
		if !invs[i].IssuedAt.Equal(invs[j].IssuedAt) {
			return invs[i].IssuedAt.Before(invs[j].IssuedAt)
		}
		return invs[i].ID.String() < invs[j].ID.String()
	})
}
