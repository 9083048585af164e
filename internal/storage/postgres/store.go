package postgres

// Package postgres provides a pgx-backed storage implementation that satisfies
// the repo and writer interfaces used by the reconciliation workspace.
//
// It is intentionally small and explicit. Migrations that create the expected
// schema live under db/migrations. This package focuses on mapping between the
// domain entities and SQL rows and running the necessary statements/transactions.

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mesabook/cuadre/internal/cuadre"
	"github.com/mesabook/cuadre/internal/errs"
	"github.com/mesabook/cuadre/internal/meta"
	"github.com/mesabook/cuadre/internal/slug"
)

// Store holds a pgx connection pool and implements the read/write interfaces
// used by the reconciliation workspace. All methods are safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// Open establishes a pgx pool using the provided connection string.
func Open(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Close releases the underlying pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ready pings the pool to verify connectivity.
func (s *Store) Ready(ctx context.Context) error { return s.pool.Ping(ctx) }

// SeedDev inserts one demo trading day (a Z report with two matching invoices
// and one orphan) for quick local testing.
func (s *Store) SeedDev(ctx context.Context) (cuadre.ZReport, []cuadre.Invoice, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return cuadre.ZReport{}, nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	date := cuadre.TradingDate(time.Now())
	z := cuadre.ZReport{ID: uuid.New(), Date: date, DeclaredTotal: cuadre.AmountFromMinor(8500), DocumentRef: "Z-0001"}
	if _, err := tx.Exec(ctx, `
		insert into zreports (id, date, declared_total_minor, document_ref, confirmed, pending_reason, manually_touched)
		values ($1,$2,$3,$4,false,'',false)
	`, z.ID, z.Date, z.DeclaredMinor(), z.DocumentRef); err != nil {
		return cuadre.ZReport{}, nil, err
	}
	zid := z.ID
	invs := []cuadre.Invoice{
		{ID: uuid.New(), Date: date, IssuedAt: date.Add(13 * time.Hour), Amount: cuadre.AmountFromMinor(5200), PaymentMethod: "tarjeta", Table: "M3", ZReportID: &zid, Association: cuadre.AssociationAuto},
		{ID: uuid.New(), Date: date, IssuedAt: date.Add(14 * time.Hour), Amount: cuadre.AmountFromMinor(3300), PaymentMethod: "efectivo", Table: "M7", ZReportID: &zid, Association: cuadre.AssociationAuto},
		{ID: uuid.New(), Date: date, IssuedAt: date.Add(15 * time.Hour), Amount: cuadre.AmountFromMinor(1800), PaymentMethod: "Bizum", Association: cuadre.AssociationNone},
	}
	for _, inv := range invs {
		if err := insertInvoice(ctx, tx, inv); err != nil {
			return cuadre.ZReport{}, nil, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return cuadre.ZReport{}, nil, err
	}
	return z, invs, nil
}

// --- Z report reads ---

const zreportCols = `id, date, declared_total_minor, document_ref, confirmed, pending_reason, manually_touched`

func scanZReport(row pgx.Row) (cuadre.ZReport, error) {
	var z cuadre.ZReport
	var declaredMinor int64
	if err := row.Scan(&z.ID, &z.Date, &declaredMinor, &z.DocumentRef, &z.Confirmed, &z.PendingReason, &z.ManuallyTouched); err != nil {
		return cuadre.ZReport{}, err
	}
	z.Date = cuadre.TradingDate(z.Date)
	z.DeclaredTotal = cuadre.AmountFromMinor(declaredMinor)
	return z, nil
}

// ZReportsInRange returns Z reports with trading dates in [from, to], date asc.
func (s *Store) ZReportsInRange(ctx context.Context, from, to time.Time) ([]cuadre.ZReport, error) {
	rows, err := s.pool.Query(ctx, `
		select `+zreportCols+`
		from zreports
		where date >= $1 and date <= $2
		order by date asc, document_ref asc
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]cuadre.ZReport, 0)
	for rows.Next() {
		z, err := scanZReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, z)
	}
	return out, rows.Err()
}

// ZReportByID fetches a single Z report.
func (s *Store) ZReportByID(ctx context.Context, id uuid.UUID) (cuadre.ZReport, error) {
	z, err := scanZReport(s.pool.QueryRow(ctx, `select `+zreportCols+` from zreports where id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return cuadre.ZReport{}, errs.ErrNotFound
	}
	return z, err
}

// AvailableZReports returns the other Z reports of the trading date.
func (s *Store) AvailableZReports(ctx context.Context, date time.Time, excludeZReportID uuid.UUID) ([]cuadre.ZReport, error) {
	rows, err := s.pool.Query(ctx, `
		select `+zreportCols+`
		from zreports
		where date = $1 and id <> $2
		order by document_ref asc
	`, date, excludeZReportID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]cuadre.ZReport, 0)
	for rows.Next() {
		z, err := scanZReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, z)
	}
	return out, rows.Err()
}

// --- Invoice reads ---

const invoiceCols = `id, date, issued_at, amount_minor, payment_method, table_ref, zreport_id, association, metadata`

func scanInvoice(row pgx.Row) (cuadre.Invoice, error) {
	var inv cuadre.Invoice
	var amountMinor int64
	var mdBytes []byte
	if err := row.Scan(&inv.ID, &inv.Date, &inv.IssuedAt, &amountMinor, &inv.PaymentMethod, &inv.Table, &inv.ZReportID, &inv.Association, &mdBytes); err != nil {
		return cuadre.Invoice{}, err
	}
	inv.Date = cuadre.TradingDate(inv.Date)
	inv.Amount = cuadre.AmountFromMinor(amountMinor)
	if len(mdBytes) > 0 {
		var m meta.Metadata
		if err := m.UnmarshalJSON(mdBytes); err == nil {
			inv.Metadata = m
		}
	}
	return inv, nil
}

func (s *Store) queryInvoices(ctx context.Context, sql string, args ...any) ([]cuadre.Invoice, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]cuadre.Invoice, 0)
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

// InvoicesForZReport returns the invoices assigned to a Z report, issue time asc.
func (s *Store) InvoicesForZReport(ctx context.Context, zreportID uuid.UUID) ([]cuadre.Invoice, error) {
	return s.queryInvoices(ctx, `
		select `+invoiceCols+`
		from invoices
		where zreport_id = $1
		order by issued_at asc, id asc
	`, zreportID)
}

// InvoiceByID fetches a single invoice.
func (s *Store) InvoiceByID(ctx context.Context, id uuid.UUID) (cuadre.Invoice, error) {
	inv, err := scanInvoice(s.pool.QueryRow(ctx, `select `+invoiceCols+` from invoices where id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return cuadre.Invoice{}, errs.ErrNotFound
	}
	return inv, err
}

// OrphanInvoices returns unassigned invoices on the trading date.
func (s *Store) OrphanInvoices(ctx context.Context, date time.Time) ([]cuadre.Invoice, error) {
	return s.queryInvoices(ctx, `
		select `+invoiceCols+`
		from invoices
		where date = $1 and zreport_id is null
		order by issued_at asc, id asc
	`, date)
}

// AdjacentInvoices returns invoices on the date assigned to another Z report.
func (s *Store) AdjacentInvoices(ctx context.Context, date time.Time, excludeZReportID uuid.UUID) ([]cuadre.Invoice, error) {
	return s.queryInvoices(ctx, `
		select `+invoiceCols+`
		from invoices
		where date = $1 and zreport_id is not null and zreport_id <> $2
		order by issued_at asc, id asc
	`, date, excludeZReportID)
}

// --- Adjustment reads ---

// AdjustmentsForZReport returns adjustments ordered by creation time.
func (s *Store) AdjustmentsForZReport(ctx context.Context, zreportID uuid.UUID) ([]cuadre.Adjustment, error) {
	rows, err := s.pool.Query(ctx, `
		select id, zreport_id, date, kind, amount_minor, description, metadata, created_at
		from adjustments
		where zreport_id = $1
		order by created_at asc, id asc
	`, zreportID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]cuadre.Adjustment, 0)
	for rows.Next() {
		var a cuadre.Adjustment
		var amountMinor int64
		var mdBytes []byte
		if err := rows.Scan(&a.ID, &a.ZReportID, &a.Date, &a.Kind, &amountMinor, &a.Description, &mdBytes, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.Date = cuadre.TradingDate(a.Date)
		a.Amount = cuadre.AmountFromMinor(amountMinor)
		if len(mdBytes) > 0 {
			var m meta.Metadata
			if err := m.UnmarshalJSON(mdBytes); err == nil {
				a.Metadata = m
			}
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// --- Writes ---

// CreateAdjustment inserts the adjustment row and marks the owning Z report as
// manually touched in one transaction.
func (s *Store) CreateAdjustment(ctx context.Context, a cuadre.Adjustment) (cuadre.Adjustment, error) {
	if err := a.Metadata.Validate(); err != nil {
		return cuadre.Adjustment{}, err
	}
	md, _ := a.Metadata.MarshalStableJSON()
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return cuadre.Adjustment{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	amountMinor, _ := a.Amount.MinorUnits()
	if _, err := tx.Exec(ctx, `
		insert into adjustments (id, zreport_id, date, kind, amount_minor, description, metadata, created_at)
		values ($1,$2,$3,$4,$5,$6,$7,$8)
	`, a.ID, a.ZReportID, a.Date, a.Kind, amountMinor, a.Description, md, a.CreatedAt); err != nil {
		return cuadre.Adjustment{}, err
	}
	if err := markTouched(ctx, tx, a.ZReportID); err != nil {
		return cuadre.Adjustment{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return cuadre.Adjustment{}, err
	}
	return a, nil
}

// DeleteAdjustment removes an adjustment row; errs.ErrNotFound when absent.
func (s *Store) DeleteAdjustment(ctx context.Context, id uuid.UUID) error {
	ct, err := s.pool.Exec(ctx, `delete from adjustments where id = $1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// ReassignInvoice moves the invoice's Z report pointer, flips its association
// to manual and marks both sides of the move as touched, all in one transaction.
func (s *Store) ReassignInvoice(ctx context.Context, invoiceID, zreportID uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	var sourceID *uuid.UUID
	err = tx.QueryRow(ctx, `select zreport_id from invoices where id = $1 for update`, invoiceID).Scan(&sourceID)
	if errors.Is(err, pgx.ErrNoRows) {
		return errs.ErrNotFound
	}
	if err != nil {
		return err
	}
	ct, err := tx.Exec(ctx, `
		update invoices set zreport_id = $1, association = $2 where id = $3
	`, zreportID, cuadre.AssociationManual, invoiceID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	if err := markTouched(ctx, tx, zreportID); err != nil {
		return err
	}
	if sourceID != nil && *sourceID != zreportID {
		if err := markTouched(ctx, tx, *sourceID); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// SetConfirmed records the operator's sign-off.
func (s *Store) SetConfirmed(ctx context.Context, zreportID uuid.UUID) error {
	ct, err := s.pool.Exec(ctx, `update zreports set confirmed = true where id = $1`, zreportID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// SetPendingReason sets or clears the pending disposition.
func (s *Store) SetPendingReason(ctx context.Context, zreportID uuid.UUID, reason string) error {
	ct, err := s.pool.Exec(ctx, `update zreports set pending_reason = $1 where id = $2`, reason, zreportID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// markTouched flags the Z report as manually edited within the given tx.
func markTouched(ctx context.Context, tx pgx.Tx, zreportID uuid.UUID) error {
	ct, err := tx.Exec(ctx, `update zreports set manually_touched = true where id = $1`, zreportID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// insertInvoice inserts an invoice row; payment methods are coerced to slugs
// at this boundary.
func insertInvoice(ctx context.Context, tx pgx.Tx, inv cuadre.Invoice) error {
	md, _ := inv.Metadata.MarshalStableJSON()
	minor, _ := inv.Amount.MinorUnits()
	_, err := tx.Exec(ctx, `
		insert into invoices (id, date, issued_at, amount_minor, payment_method, table_ref, zreport_id, association, metadata)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, inv.ID, inv.Date, inv.IssuedAt, minor, slug.Slugify(inv.PaymentMethod), inv.Table, inv.ZReportID, inv.Association, md)
	return err
}
