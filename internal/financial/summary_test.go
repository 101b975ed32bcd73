package financial

import (
	"context"
	"testing"
	"time"

	"dealership-backend/internal/commission"
	"dealership-backend/internal/models"
	"dealership-backend/internal/rules"
	"dealership-backend/internal/testutil"
)

func TestSummarizeMonth(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	testutil.CreateFlatRule(t, db, "FLAT", "200.00")
	admin := testutil.CreateUser(t, db, "admin", models.RoleAdmin)
	ali := testutil.CreateUser(t, db, "ali", models.RoleSalesperson)
	zeynep := testutil.CreateUser(t, db, "zeynep", models.RoleSalesperson)
	act := commission.Actor{ID: admin.ID, Role: admin.Role}

	svc := commission.NewService(db, rules.NewStore(db))
	create := func(id, seller uint, date string) models.SaleCommission {
		sale := testutil.CreateSale(t, db, id, seller, "10000.00", "1000.00", "sedan", date)
		c, err := svc.CreateFromSale(ctx, sale, 0)
		if err != nil {
			t.Fatalf("CreateFromSale: %v", err)
		}
		return c
	}

	paid := create(1, ali.ID, "2025-03-03")
	approved := create(2, ali.ID, "2025-03-04")
	pending := create(3, zeynep.ID, "2025-03-20")
	rejected := create(4, zeynep.ID, "2025-03-21")
	create(5, zeynep.ID, "2025-04-02") // başka ay

	if _, err := svc.ApproveAndPay(ctx, paid.ID, act); err != nil {
		t.Fatalf("ApproveAndPay: %v", err)
	}
	if _, err := svc.Adjust(ctx, approved.ID, testutil.Dec("50.00"), "extra", act); err != nil {
		t.Fatalf("Adjust: %v", err)
	}
	if _, err := svc.Approve(ctx, approved.ID, act); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if _, err := svc.Reject(ctx, rejected.ID, "duplicate", act); err != nil {
		t.Fatalf("Reject: %v", err)
	}
	_ = pending

	now := time.Now()
	got, err := Summarize(ctx, db, 2025, 3, now)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}

	want := map[models.CommissionStatus]string{
		models.CommissionStatusPaid:     "200.00",
		models.CommissionStatusApproved: "250.00",
		models.CommissionStatusPending:  "200.00",
		models.CommissionStatusRejected: "200.00",
	}
	if len(got.ByStatus) != len(want) {
		t.Fatalf("by status = %+v", got.ByStatus)
	}
	for _, st := range got.ByStatus {
		if st.Count != 1 || !st.Total.Equal(testutil.Dec(want[st.Status])) {
			t.Fatalf("status %s = %d/%s, want 1/%s", st.Status, st.Count, st.Total, want[st.Status])
		}
	}

	// ödeme ve düzeltme şimdi yapıldı, Mart'ta değil
	if !got.PaidInMonth.IsZero() || !got.AdjustmentsTotal.IsZero() {
		t.Fatalf("paid/adjustments in March = %s/%s", got.PaidInMonth, got.AdjustmentsTotal)
	}
	if !got.OutstandingTotal.Equal(testutil.Dec("250.00")) {
		t.Fatalf("outstanding = %s", got.OutstandingTotal)
	}
	// vade satış tarihi + 30 gün, çoktan geçti
	if got.OverdueCount != 1 {
		t.Fatalf("overdue = %d, want 1", got.OverdueCount)
	}

	if len(got.BySalesperson) != 2 {
		t.Fatalf("by salesperson = %+v", got.BySalesperson)
	}
	a, z := got.BySalesperson[0], got.BySalesperson[1]
	if a.UserID != ali.ID || a.Commissions != 2 || !a.Earned.Equal(testutil.Dec("450.00")) || !a.Paid.Equal(testutil.Dec("200.00")) {
		t.Fatalf("ali = %+v", a)
	}
	if z.UserID != zeynep.ID || z.Commissions != 1 || !z.Pending.Equal(testutil.Dec("200.00")) || !z.Earned.IsZero() {
		t.Fatalf("zeynep = %+v", z)
	}

	current, err := Summarize(ctx, db, now.Year(), int(now.Month()), now)
	if err != nil {
		t.Fatalf("Summarize current: %v", err)
	}
	if !current.PaidInMonth.Equal(testutil.Dec("200.00")) || !current.AdjustmentsTotal.Equal(testutil.Dec("50.00")) {
		t.Fatalf("current month paid/adjustments = %s/%s", current.PaidInMonth, current.AdjustmentsTotal)
	}
}
