package commission

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"dealership-backend/internal/events"
	"dealership-backend/internal/models"
	"dealership-backend/internal/rules"
	"dealership-backend/internal/testutil"

	"gorm.io/gorm"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Type, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	db      *gorm.DB
	svc     *Service
	pub     *recordingPublisher
	admin   models.User
	manager models.User
	finance models.User
	seller  models.User
}

func (f fixture) as(u models.User) Actor {
	return Actor{ID: u.ID, Role: u.Role}
}

// newFixture seeds one flat rule paying flatAmount, or no rule when empty.
func newFixture(t *testing.T, flatAmount string) fixture {
	t.Helper()

	db := testutil.NewDB(t)
	if flatAmount != "" {
		testutil.CreateFlatRule(t, db, "FLAT", flatAmount)
	}

	pub := &recordingPublisher{}
	return fixture{
		db:      db,
		svc:     NewService(db, rules.NewStore(db), WithPublisher(pub)),
		pub:     pub,
		admin:   testutil.CreateUser(t, db, "admin", models.RoleAdmin),
		manager: testutil.CreateUser(t, db, "manager", models.RoleManager),
		finance: testutil.CreateUser(t, db, "finance", models.RoleFinance),
		seller:  testutil.CreateUser(t, db, "seller", models.RoleSalesperson),
	}
}

func (f fixture) createCommission(t *testing.T, saleID uint) models.SaleCommission {
	t.Helper()

	sale := testutil.CreateSale(t, f.db, saleID, f.seller.ID, "20000.00", "3000.00", "sedan", "2025-03-10")
	c, err := f.svc.CreateFromSale(context.Background(), sale, 0)
	if err != nil {
		t.Fatalf("CreateFromSale: %v", err)
	}
	return c
}

func (f fixture) reload(t *testing.T, id uint) models.SaleCommission {
	t.Helper()

	var c models.SaleCommission
	if err := f.db.First(&c, id).Error; err != nil {
		t.Fatalf("reload #%d: %v", id, err)
	}
	return c
}

func (f fixture) ledger(t *testing.T, id uint) []models.CommissionAdjustment {
	t.Helper()

	var rows []models.CommissionAdjustment
	if err := f.db.Where("commission_id = ?", id).Order("id asc").Find(&rows).Error; err != nil {
		t.Fatalf("ledger #%d: %v", id, err)
	}
	return rows
}

func (f fixture) auditCount(t *testing.T, id uint, action models.AuditAction) int64 {
	t.Helper()

	var n int64
	f.db.Model(&models.AuditLog{}).
		Where("entity_type = ? AND entity_id = ? AND action = ?", "sale_commission", id, action).
		Count(&n)
	return n
}

// checkAmounts: final = calculated + adjustment, adjustment = ledger toplamı
func (f fixture) checkAmounts(t *testing.T, id uint) {
	t.Helper()

	c := f.reload(t, id)
	if !c.FinalAmount.Equal(c.CalculatedAmount.Add(c.ManualAdjustment)) {
		t.Fatalf("final %s != calculated %s + adjustment %s", c.FinalAmount, c.CalculatedAmount, c.ManualAdjustment)
	}

	sum := testutil.Dec("0")
	for _, a := range f.ledger(t, id) {
		sum = sum.Add(a.DeltaAmount)
	}
	if !c.ManualAdjustment.Equal(sum) {
		t.Fatalf("adjustment %s != ledger sum %s", c.ManualAdjustment, sum)
	}
}

// barrier blocks every load until n loads have happened.
func barrier(n int32) func(models.SaleCommission) {
	var loads int32
	release := make(chan struct{})
	return func(models.SaleCommission) {
		if atomic.AddInt32(&loads, 1) == n {
			close(release)
		}
		<-release
	}
}

func TestCreateFromSaleStoresPendingCommission(t *testing.T) {
	f := newFixture(t, "1000.00")
	c := f.createCommission(t, 1)

	if c.Status != models.CommissionStatusPending || c.Paid {
		t.Fatalf("status = %s paid = %v, want pending/false", c.Status, c.Paid)
	}
	if !c.CalculatedAmount.Equal(testutil.Dec("1000.00")) || !c.FinalAmount.Equal(testutil.Dec("1000.00")) {
		t.Fatalf("amounts = %s/%s", c.CalculatedAmount, c.FinalAmount)
	}
	if c.PaymentDueDate == nil || !c.PaymentDueDate.Equal(testutil.Date("2025-04-09")) {
		t.Fatalf("payment due date = %v, want 2025-04-09", c.PaymentDueDate)
	}
	if got := f.auditCount(t, c.ID, models.AuditActionCreate); got != 1 {
		t.Fatalf("create audit entries = %d, want 1", got)
	}
	if types := f.pub.types(); len(types) != 1 || types[0] != events.CommissionCreated {
		t.Fatalf("events = %v", types)
	}
}

func TestAdjustApprovePayLifecycle(t *testing.T) {
	f := newFixture(t, "1000.00")
	ctx := context.Background()
	c := f.createCommission(t, 1)

	adjusted, err := f.svc.Adjust(ctx, c.ID, testutil.Dec("-100.00"), "price renegotiated", f.as(f.manager))
	if err != nil {
		t.Fatalf("Adjust: %v", err)
	}
	if !adjusted.FinalAmount.Equal(testutil.Dec("900.00")) || !adjusted.ManualAdjustment.Equal(testutil.Dec("-100.00")) {
		t.Fatalf("after adjust final = %s adjustment = %s", adjusted.FinalAmount, adjusted.ManualAdjustment)
	}

	approved, err := f.svc.Approve(ctx, c.ID, f.as(f.manager))
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if approved.Status != models.CommissionStatusApproved || approved.ApprovedAt == nil {
		t.Fatalf("after approve = %+v", approved)
	}

	paid, err := f.svc.Pay(ctx, c.ID, f.as(f.finance))
	if err != nil {
		t.Fatalf("Pay: %v", err)
	}
	if paid.Status != models.CommissionStatusPaid || !paid.Paid || paid.PaidAt == nil {
		t.Fatalf("after pay = %+v", paid)
	}
	if !paid.PaidAt.After(*paid.ApprovedAt) {
		t.Fatalf("paid_at %v not after approved_at %v", paid.PaidAt, paid.ApprovedAt)
	}
	if !paid.FinalAmount.Equal(testutil.Dec("900.00")) {
		t.Fatalf("final = %s, want 900.00", paid.FinalAmount)
	}
	f.checkAmounts(t, c.ID)

	want := []events.Type{events.CommissionCreated, events.CommissionAdjusted, events.CommissionApproved, events.CommissionPaid}
	got := f.pub.types()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events = %v, want %v", got, want)
		}
	}
}

func TestConcurrentApproveSucceedsOnce(t *testing.T) {
	f := newFixture(t, "500.00")
	c := f.createCommission(t, 1)
	f.svc.onLoad = barrier(2)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Approve(context.Background(), c.ID, f.as(f.manager))
		}(i)
	}
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrConcurrentModification):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || conflicts != 1 {
		t.Fatalf("ok = %d conflicts = %d, want 1/1", ok, conflicts)
	}

	if got := f.reload(t, c.ID); got.Status != models.CommissionStatusApproved {
		t.Fatalf("status = %s, want approved", got.Status)
	}
	if got := f.auditCount(t, c.ID, models.AuditActionApprove); got != 1 {
		t.Fatalf("approve audit entries = %d, want 1", got)
	}
}

func TestConcurrentPayAtMostOnce(t *testing.T) {
	f := newFixture(t, "750.00")
	ctx := context.Background()
	c := f.createCommission(t, 1)
	if _, err := f.svc.Approve(ctx, c.ID, f.as(f.manager)); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	const n = 8
	f.svc.onLoad = barrier(n)

	var wg sync.WaitGroup
	var paid int32
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Pay(ctx, c.ID, f.as(f.finance))
			if err == nil {
				atomic.AddInt32(&paid, 1)
				return
			}
			if !errors.Is(err, ErrConcurrentModification) && !errors.Is(err, ErrAlreadyPaid) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if paid != 1 {
		t.Fatalf("successful payments = %d, want 1", paid)
	}
	if got := f.auditCount(t, c.ID, models.AuditActionPay); got != 1 {
		t.Fatalf("pay audit entries = %d, want 1", got)
	}
}

func TestPayTwiceReturnsAlreadyPaid(t *testing.T) {
	f := newFixture(t, "750.00")
	ctx := context.Background()
	c := f.createCommission(t, 1)

	first, err := f.svc.ApproveAndPay(ctx, c.ID, f.as(f.admin))
	if err != nil {
		t.Fatalf("ApproveAndPay: %v", err)
	}

	again, err := f.svc.Pay(ctx, c.ID, f.as(f.finance))
	if !errors.Is(err, ErrAlreadyPaid) {
		t.Fatalf("second Pay err = %v, want ErrAlreadyPaid", err)
	}
	if again.PaidAt == nil || !again.PaidAt.Equal(*first.PaidAt) {
		t.Fatalf("paid_at changed: %v -> %v", first.PaidAt, again.PaidAt)
	}
	if got := f.auditCount(t, c.ID, models.AuditActionPay); got != 1 {
		t.Fatalf("pay audit entries = %d, want 1", got)
	}
	if got := f.auditCount(t, c.ID, models.AuditActionApprove); got != 1 {
		t.Fatalf("approve audit entries = %d, want 1", got)
	}
}

func TestRejectRequiresReason(t *testing.T) {
	f := newFixture(t, "1000.00")
	c := f.createCommission(t, 1)

	for _, reason := range []string{"", "   "} {
		if _, err := f.svc.Reject(context.Background(), c.ID, reason, f.as(f.manager)); !errors.Is(err, ErrValidation) {
			t.Fatalf("Reject(%q) err = %v, want ErrValidation", reason, err)
		}
	}
	if got := f.reload(t, c.ID); got.Status != models.CommissionStatusPending {
		t.Fatalf("status = %s, want pending", got.Status)
	}
}

func TestPayPendingIsInvalidTransition(t *testing.T) {
	f := newFixture(t, "1000.00")
	c := f.createCommission(t, 1)

	if _, err := f.svc.Pay(context.Background(), c.ID, f.as(f.finance)); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("Pay err = %v, want ErrInvalidTransition", err)
	}
	got := f.reload(t, c.ID)
	if got.Status != models.CommissionStatusPending || got.PaidAt != nil || got.Paid {
		t.Fatalf("after failed pay = %+v", got)
	}
}

func TestAdjustTwiceAppendsLedger(t *testing.T) {
	f := newFixture(t, "1000.00")
	ctx := context.Background()
	c := f.createCommission(t, 1)

	if _, err := f.svc.Adjust(ctx, c.ID, testutil.Dec("50.00"), "bonus", f.as(f.manager)); err != nil {
		t.Fatalf("Adjust +50: %v", err)
	}
	got, err := f.svc.Adjust(ctx, c.ID, testutil.Dec("-20.00"), "correction", f.as(f.manager))
	if err != nil {
		t.Fatalf("Adjust -20: %v", err)
	}

	if !got.FinalAmount.Equal(testutil.Dec("1030.00")) {
		t.Fatalf("final = %s, want 1030.00", got.FinalAmount)
	}
	if n := len(f.ledger(t, c.ID)); n != 2 {
		t.Fatalf("ledger events = %d, want 2", n)
	}
	f.checkAmounts(t, c.ID)
}

func TestConcurrentAdjustmentsAreAllApplied(t *testing.T) {
	f := newFixture(t, "1000.00")
	c := f.createCommission(t, 1)

	const n = 5
	f.svc.onLoad = barrier(n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.svc.Adjust(context.Background(), c.ID, testutil.Dec("10.10"), "spiff", f.as(f.manager)); err != nil {
				t.Errorf("Adjust: %v", err)
			}
		}()
	}
	wg.Wait()

	got := f.reload(t, c.ID)
	if !got.FinalAmount.Equal(testutil.Dec("1050.50")) {
		t.Fatalf("final = %s, want 1050.50", got.FinalAmount)
	}
	if len(f.ledger(t, c.ID)) != n {
		t.Fatalf("ledger events = %d, want %d", len(f.ledger(t, c.ID)), n)
	}
	f.checkAmounts(t, c.ID)
}

func TestAdjustRejectsNegativeFinalAmount(t *testing.T) {
	f := newFixture(t, "100.00")
	ctx := context.Background()
	c := f.createCommission(t, 1)

	if _, err := f.svc.Adjust(ctx, c.ID, testutil.Dec("-100.01"), "too much", f.as(f.manager)); !errors.Is(err, ErrValidation) {
		t.Fatalf("Adjust err = %v, want ErrValidation", err)
	}
	if len(f.ledger(t, c.ID)) != 0 {
		t.Fatal("failed adjustment left a ledger event")
	}

	// tam sıfıra inmek geçerli
	got, err := f.svc.Adjust(ctx, c.ID, testutil.Dec("-100.00"), "void", f.as(f.manager))
	if err != nil {
		t.Fatalf("Adjust to zero: %v", err)
	}
	if !got.FinalAmount.IsZero() {
		t.Fatalf("final = %s, want 0", got.FinalAmount)
	}
}

func TestAdjustValidatesInput(t *testing.T) {
	f := newFixture(t, "100.00")
	c := f.createCommission(t, 1)

	cases := []struct {
		name          string
		delta         string
		justification string
	}{
		{"empty justification", "10.00", "  "},
		{"zero delta", "0", "nothing"},
		{"rounds to zero", "0.001", "nothing"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Adjust(context.Background(), c.ID, testutil.Dec(tc.delta), tc.justification, f.as(f.manager))
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("err = %v, want ErrValidation", err)
			}
		})
	}
}

func TestTerminalStatesAreFinal(t *testing.T) {
	f := newFixture(t, "1000.00")
	ctx := context.Background()

	paid := f.createCommission(t, 1)
	if _, err := f.svc.ApproveAndPay(ctx, paid.ID, f.as(f.admin)); err != nil {
		t.Fatalf("ApproveAndPay: %v", err)
	}
	rejected := f.createCommission(t, 2)
	if _, err := f.svc.Reject(ctx, rejected.ID, "duplicate deal", f.as(f.manager)); err != nil {
		t.Fatalf("Reject: %v", err)
	}

	for _, id := range []uint{paid.ID, rejected.ID} {
		if _, err := f.svc.Approve(ctx, id, f.as(f.manager)); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("#%d Approve err = %v", id, err)
		}
		if _, err := f.svc.Reject(ctx, id, "late", f.as(f.manager)); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("#%d Reject err = %v", id, err)
		}
		if _, err := f.svc.Adjust(ctx, id, testutil.Dec("5"), "late", f.as(f.manager)); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("#%d Adjust err = %v", id, err)
		}
	}
	if _, err := f.svc.Pay(ctx, rejected.ID, f.as(f.finance)); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Pay rejected err = %v", err)
	}

	if got := f.reload(t, paid.ID); got.Status != models.CommissionStatusPaid {
		t.Fatalf("paid commission moved to %s", got.Status)
	}
	got := f.reload(t, rejected.ID)
	if got.Status != models.CommissionStatusRejected || got.RejectionReason != "duplicate deal" {
		t.Fatalf("rejected commission = %+v", got)
	}
}

func TestApprovedCannotBeAdjusted(t *testing.T) {
	f := newFixture(t, "1000.00")
	ctx := context.Background()
	c := f.createCommission(t, 1)
	if _, err := f.svc.Approve(ctx, c.ID, f.as(f.manager)); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	if _, err := f.svc.Adjust(ctx, c.ID, testutil.Dec("5"), "late", f.as(f.manager)); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("Adjust err = %v, want ErrInvalidTransition", err)
	}
}

func TestRolesAndSelfApproval(t *testing.T) {
	f := newFixture(t, "1000.00")
	ctx := context.Background()
	c := f.createCommission(t, 1)

	if _, err := f.svc.Approve(ctx, c.ID, f.as(f.seller)); !errors.Is(err, ErrForbidden) {
		t.Errorf("seller Approve err = %v", err)
	}
	if _, err := f.svc.Approve(ctx, c.ID, f.as(f.finance)); !errors.Is(err, ErrForbidden) {
		t.Errorf("finance Approve err = %v", err)
	}
	if _, err := f.svc.Adjust(ctx, c.ID, testutil.Dec("5"), "x", f.as(f.seller)); !errors.Is(err, ErrForbidden) {
		t.Errorf("seller Adjust err = %v", err)
	}
	if _, err := f.svc.Approve(ctx, c.ID, f.as(f.manager)); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if _, err := f.svc.Pay(ctx, c.ID, f.as(f.manager)); !errors.Is(err, ErrForbidden) {
		t.Errorf("manager Pay err = %v", err)
	}

	// satış yapan yönetici kendi komisyonunu onaylayamaz
	sale := testutil.CreateSale(t, f.db, 2, f.manager.ID, "20000.00", "3000.00", "sedan", "2025-03-11")
	own, err := f.svc.CreateFromSale(ctx, sale, 0)
	if err != nil {
		t.Fatalf("CreateFromSale: %v", err)
	}
	if _, err := f.svc.Approve(ctx, own.ID, f.as(f.manager)); !errors.Is(err, ErrForbidden) {
		t.Errorf("self Approve err = %v", err)
	}
	if _, err := f.svc.Adjust(ctx, own.ID, testutil.Dec("5"), "x", f.as(f.manager)); !errors.Is(err, ErrForbidden) {
		t.Errorf("self Adjust err = %v", err)
	}
	if _, err := f.svc.Approve(ctx, own.ID, f.as(f.admin)); err != nil {
		t.Errorf("admin Approve: %v", err)
	}
}

func TestDuplicateAndRecreateAfterReject(t *testing.T) {
	f := newFixture(t, "1000.00")
	ctx := context.Background()
	c := f.createCommission(t, 1)

	var sale models.Sale
	f.db.First(&sale, 1)
	if _, err := f.svc.CreateFromSale(ctx, sale, 0); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("second CreateFromSale err = %v, want ErrDuplicate", err)
	}
	if _, err := f.svc.Recreate(ctx, 1, f.as(f.manager)); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("Recreate over live commission err = %v, want ErrDuplicate", err)
	}

	if _, err := f.svc.Reject(ctx, c.ID, "wrong rule", f.as(f.manager)); err != nil {
		t.Fatalf("Reject: %v", err)
	}
	gaps, err := f.svc.Gaps(ctx)
	if err != nil {
		t.Fatalf("Gaps: %v", err)
	}
	if len(gaps) != 1 || gaps[0].ID != 1 {
		t.Fatalf("gaps = %+v, want sale #1", gaps)
	}

	if _, err := f.svc.Recreate(ctx, 1, f.as(f.seller)); !errors.Is(err, ErrForbidden) {
		t.Fatalf("seller Recreate err = %v", err)
	}
	again, err := f.svc.Recreate(ctx, 1, f.as(f.manager))
	if err != nil {
		t.Fatalf("Recreate: %v", err)
	}
	if again.ID == c.ID || again.Status != models.CommissionStatusPending {
		t.Fatalf("recreated = %+v", again)
	}
	if gaps, _ := f.svc.Gaps(ctx); len(gaps) != 0 {
		t.Fatalf("gaps after recreate = %+v", gaps)
	}
	if _, err := f.svc.Recreate(ctx, 99, f.as(f.manager)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Recreate missing sale err = %v", err)
	}
}

func TestNoApplicableRuleLeavesGap(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()

	sale := testutil.CreateSale(t, f.db, 7, f.seller.ID, "15000.00", "900.00", "truck", "2025-05-01")
	if _, err := f.svc.CreateFromSale(ctx, sale, 0); !errors.Is(err, rules.ErrNoApplicableRule) {
		t.Fatalf("CreateFromSale err = %v, want ErrNoApplicableRule", err)
	}

	var n int64
	f.db.Model(&models.SaleCommission{}).Count(&n)
	if n != 0 {
		t.Fatalf("commissions = %d, want 0", n)
	}
	var stored models.Sale
	if err := f.db.First(&stored, 7).Error; err != nil || stored.Status != models.SaleStatusCompleted {
		t.Fatalf("sale affected: %+v %v", stored, err)
	}

	gaps, err := f.svc.Gaps(ctx)
	if err != nil || len(gaps) != 1 || gaps[0].ID != 7 {
		t.Fatalf("gaps = %+v err = %v", gaps, err)
	}
	if types := f.pub.types(); len(types) != 1 || types[0] != events.CommissionGap {
		t.Fatalf("events = %v", types)
	}
}

func TestCreateFromCancelledSaleFails(t *testing.T) {
	f := newFixture(t, "1000.00")
	sale := testutil.CreateSale(t, f.db, 3, f.seller.ID, "20000.00", "3000.00", "sedan", "2025-03-10")
	sale.Status = models.SaleStatusCancelled

	if _, err := f.svc.CreateFromSale(context.Background(), sale, 0); !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestGetReturnsLedgerAndHistory(t *testing.T) {
	f := newFixture(t, "1000.00")
	ctx := context.Background()
	c := f.createCommission(t, 1)

	f.svc.Adjust(ctx, c.ID, testutil.Dec("25.00"), "accessories", f.as(f.manager))
	f.svc.Approve(ctx, c.ID, f.as(f.manager))

	d, err := f.svc.Get(ctx, c.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if d.Sale.ID != 1 || d.Rule.Code != "FLAT" {
		t.Fatalf("detail sale/rule = %d/%s", d.Sale.ID, d.Rule.Code)
	}
	if !d.LedgerTotal().Equal(d.Commission.ManualAdjustment) {
		t.Fatalf("ledger total %s != adjustment %s", d.LedgerTotal(), d.Commission.ManualAdjustment)
	}
	if len(d.History) != 3 {
		t.Fatalf("history entries = %d, want 3", len(d.History))
	}
	if d.History[0].Action != models.AuditActionApprove || d.History[0].UserName != "manager" {
		t.Fatalf("latest history = %+v", d.History[0])
	}

	if _, err := f.svc.Get(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get missing err = %v", err)
	}
}

func TestListFilters(t *testing.T) {
	f := newFixture(t, "1000.00")
	ctx := context.Background()
	a := f.createCommission(t, 1)
	f.createCommission(t, 2)
	f.svc.Approve(ctx, a.ID, f.as(f.manager))

	st := models.CommissionStatusApproved
	rows, err := f.svc.List(ctx, Filter{Status: &st})
	if err != nil || len(rows) != 1 || rows[0].ID != a.ID {
		t.Fatalf("approved = %+v err = %v", rows, err)
	}

	rows, _ = f.svc.List(ctx, Filter{UserID: &f.seller.ID})
	if len(rows) != 2 {
		t.Fatalf("by user = %d, want 2", len(rows))
	}

	future := time.Now().Add(time.Hour)
	rows, _ = f.svc.List(ctx, Filter{From: &future})
	if len(rows) != 0 {
		t.Fatalf("from future = %d, want 0", len(rows))
	}
}
