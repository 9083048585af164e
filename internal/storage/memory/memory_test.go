package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mesabook/cuadre/internal/cuadre"
	"github.com/mesabook/cuadre/internal/errs"
)

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := cuadre.ParseTradingDate(s)
	if err != nil {
		t.Fatalf("parse date: %v", err)
	}
	return d
}

func TestSeedNormalization(t *testing.T) {
	s := New()
	date := mustDate(t, "2025-03-10")

	z := cuadre.ZReport{ID: uuid.New(), Date: date.Add(18 * time.Hour), DeclaredTotal: cuadre.AmountFromMinor(100), DocumentRef: "Z-0001"}
	s.SeedZReport(z)
	got, err := s.ZReportByID(context.Background(), z.ID)
	if err != nil {
		t.Fatalf("zreport by id: %v", err)
	}
	if !got.Date.Equal(date) {
		t.Fatalf("trading date not normalized: %v", got.Date)
	}

	inv := cuadre.Invoice{ID: uuid.New(), Date: date, IssuedAt: date.Add(13 * time.Hour), Amount: cuadre.AmountFromMinor(100), PaymentMethod: "Tarjeta Visa"}
	s.SeedInvoice(inv)
	stored, err := s.InvoiceByID(context.Background(), inv.ID)
	if err != nil {
		t.Fatalf("invoice by id: %v", err)
	}
	if stored.PaymentMethod != "tarjeta_visa" {
		t.Fatalf("payment method not slugged: %q", stored.PaymentMethod)
	}
	if stored.Association != cuadre.AssociationNone {
		t.Fatalf("orphan association = %q, want none", stored.Association)
	}
}

func TestReadOrdering(t *testing.T) {
	s := New()
	ctx := context.Background()
	date := mustDate(t, "2025-03-10")

	z := cuadre.ZReport{ID: uuid.New(), Date: date, DeclaredTotal: cuadre.AmountFromMinor(0), DocumentRef: "Z-0002"}
	z2 := cuadre.ZReport{ID: uuid.New(), Date: date, DeclaredTotal: cuadre.AmountFromMinor(0), DocumentRef: "Z-0001"}
	s.SeedZReport(z)
	s.SeedZReport(z2)

	zs, err := s.ZReportsInRange(ctx, date, date)
	if err != nil {
		t.Fatalf("in range: %v", err)
	}
	if len(zs) != 2 || zs[0].DocumentRef != "Z-0001" {
		t.Fatalf("unexpected order: %+v", zs)
	}

	// invoices come back in issue order regardless of insert order
	zid := z.ID
	late := cuadre.Invoice{ID: uuid.New(), Date: date, IssuedAt: date.Add(20 * time.Hour), Amount: cuadre.AmountFromMinor(100), PaymentMethod: "efectivo", ZReportID: &zid}
	early := cuadre.Invoice{ID: uuid.New(), Date: date, IssuedAt: date.Add(9 * time.Hour), Amount: cuadre.AmountFromMinor(200), PaymentMethod: "efectivo", ZReportID: &zid}
	s.SeedInvoice(late)
	s.SeedInvoice(early)
	invs, err := s.InvoicesForZReport(ctx, z.ID)
	if err != nil {
		t.Fatalf("invoices: %v", err)
	}
	if len(invs) != 2 || invs[0].ID != early.ID {
		t.Fatalf("unexpected invoice order: %+v", invs)
	}
}

func TestWritesMarkTouched(t *testing.T) {
	s := New()
	ctx := context.Background()
	date := mustDate(t, "2025-03-10")

	src := cuadre.ZReport{ID: uuid.New(), Date: date, DeclaredTotal: cuadre.AmountFromMinor(0), DocumentRef: "Z-0001"}
	dst := cuadre.ZReport{ID: uuid.New(), Date: date, DeclaredTotal: cuadre.AmountFromMinor(0), DocumentRef: "Z-0002"}
	s.SeedZReport(src)
	s.SeedZReport(dst)
	sid := src.ID
	inv := cuadre.Invoice{ID: uuid.New(), Date: date, IssuedAt: date.Add(13 * time.Hour), Amount: cuadre.AmountFromMinor(100), PaymentMethod: "efectivo", ZReportID: &sid}
	s.SeedInvoice(inv)

	if err := s.ReassignInvoice(ctx, inv.ID, dst.ID); err != nil {
		t.Fatalf("reassign: %v", err)
	}
	for _, id := range []uuid.UUID{src.ID, dst.ID} {
		z, err := s.ZReportByID(ctx, id)
		if err != nil || !z.ManuallyTouched {
			t.Fatalf("zreport %s not touched: %+v err=%v", id, z, err)
		}
	}
	moved, _ := s.InvoiceByID(ctx, inv.ID)
	if moved.Association != cuadre.AssociationManual {
		t.Fatalf("association = %q, want manual", moved.Association)
	}

	a := cuadre.Adjustment{ID: uuid.New(), ZReportID: dst.ID, Date: date, Kind: cuadre.AdjustmentPositive, Amount: cuadre.AmountFromMinor(50), CreatedAt: time.Now().UTC()}
	if _, err := s.CreateAdjustment(ctx, a); err != nil {
		t.Fatalf("create adjustment: %v", err)
	}
	if err := s.DeleteAdjustment(ctx, a.ID); err != nil {
		t.Fatalf("delete adjustment: %v", err)
	}
	if err := s.DeleteAdjustment(ctx, a.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("second delete: want ErrNotFound, got %v", err)
	}
}
