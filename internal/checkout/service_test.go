package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Piotrek1987/ds-online-shop/internal/cart"
	"github.com/Piotrek1987/ds-online-shop/internal/catalog"
	"github.com/Piotrek1987/ds-online-shop/internal/orders"
	"github.com/Piotrek1987/ds-online-shop/internal/payments"
	pkgerrors "github.com/Piotrek1987/ds-online-shop/pkg/errors"
	"github.com/Piotrek1987/ds-online-shop/pkg/logger"
	"github.com/Piotrek1987/ds-online-shop/pkg/metrics"
	shopredis "github.com/Piotrek1987/ds-online-shop/pkg/redis"
)

const sid = "session-1"

var customer = Customer{UserID: 1, Email: "ann@example.com"}

var validForm = PaymentForm{
	Name:    "Ann",
	Email:   "ann@example.com",
	Address: "1 Main St",
	Card:    "1234567890123456",
}

type stubCatalog map[int]catalog.Item

func (s stubCatalog) Lookup(id int) (catalog.Item, bool) {
	item, ok := s[id]
	return item, ok
}

var testCatalog = stubCatalog{
	1: {ID: 1, Name: "Lager", Description: "Pale", Price: 500, Category: "Drinks", Subcategory: "Beer"},
	3: {ID: 3, Name: "Cheese", Price: 1200, Category: "Food"},
	4: {ID: 4, Name: "Sticker", Price: 0, Category: "Merch"},
}

type memoryLog struct {
	mu        sync.Mutex
	orders    []orders.Order
	err       error
	conflicts int
}

func (l *memoryLog) Append(_ context.Context, o orders.Order) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return l.err
	}
	if l.conflicts > 0 {
		l.conflicts--
		return pkgerrors.New(pkgerrors.CodeConflict, "order id already used")
	}
	l.orders = append(l.orders, o)
	return nil
}

type failingClearStore struct {
	*cart.MemoryStore
}

func (failingClearStore) Clear(context.Context, string) error {
	return errors.New("redis down")
}

type stubRecorder struct {
	outcomes []string
	totals   []int64
}

func (r *stubRecorder) IncCheckout(outcome string)    { r.outcomes = append(r.outcomes, outcome) }
func (r *stubRecorder) ObserveOrderTotal(cents int64) { r.totals = append(r.totals, cents) }

type fixture struct {
	svc      Service
	carts    cart.Store
	log      *memoryLog
	recorder *stubRecorder
}

func newFixture(t *testing.T, authorizer payments.Authorizer, carts cart.Store) *fixture {
	t.Helper()
	if carts == nil {
		carts = cart.NewMemoryStore()
	}
	log := &memoryLog{}
	recorder := &stubRecorder{}
	ids := []string{"id000001", "id000002", "id000003", "id000004"}
	var next int
	svc, err := NewService(ServiceParams{
		Carts:      carts,
		Catalog:    testCatalog,
		Orders:     log,
		Authorizer: authorizer,
		Hosted:     payments.LocalHosted{},
		Guard:      newTestRedis(t),
		Metrics:    recorder,
		Logger:     logger.Nop(),
		Currency:   "usd",
		SuccessURL: "http://shop.test/api/v1/checkout/success",
		CancelURL:  "http://shop.test/api/v1/cart",
		Now:        func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) },
		NewOrderID: func() string {
			id := ids[next%len(ids)]
			next++
			return id
		},
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return &fixture{svc: svc, carts: carts, log: log, recorder: recorder}
}

func (f *fixture) fillCart(t *testing.T, ids ...int) {
	t.Helper()
	ctx := context.Background()
	c, err := f.carts.Load(ctx, sid)
	if err != nil {
		t.Fatalf("load cart: %v", err)
	}
	for _, id := range ids {
		c.Add(id)
	}
	if err := f.carts.Save(ctx, sid, c); err != nil {
		t.Fatalf("save cart: %v", err)
	}
}

func (f *fixture) cartEmpty(t *testing.T) bool {
	t.Helper()
	c, err := f.carts.Load(context.Background(), sid)
	if err != nil {
		t.Fatalf("load cart: %v", err)
	}
	return c.IsEmpty()
}

func TestCheckoutRecordsOrderAndClearsCart(t *testing.T) {
	f := newFixture(t, payments.Always(), nil)
	f.fillCart(t, 1, 1, 3)

	res, err := f.svc.Checkout(context.Background(), sid, customer, validForm)
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if res.Attempt.State != StateRecorded || res.Attempt.OrderID != "id000001" {
		t.Fatalf("unexpected attempt %+v", res.Attempt)
	}
	if res.Order == nil || res.Order.Total != 2200 || res.Order.User != customer.Email {
		t.Fatalf("unexpected order %+v", res.Order)
	}
	if len(f.log.orders) != 1 || f.log.orders[0].OrderID != "id000001" {
		t.Fatalf("expected exactly one appended order, got %+v", f.log.orders)
	}
	if len(f.log.orders[0].Items) != 2 || f.log.orders[0].Items[0].Subtotal != 1000 {
		t.Fatalf("unexpected order lines %+v", f.log.orders[0].Items)
	}
	if !f.cartEmpty(t) {
		t.Fatal("expected cart to be cleared")
	}
	if len(f.recorder.outcomes) != 1 || f.recorder.outcomes[0] != metrics.OutcomeRecorded {
		t.Fatalf("unexpected outcomes %v", f.recorder.outcomes)
	}
	if len(f.recorder.totals) != 1 || f.recorder.totals[0] != 2200 {
		t.Fatalf("unexpected totals %v", f.recorder.totals)
	}
}

func TestCheckoutEmptyCart(t *testing.T) {
	f := newFixture(t, payments.Always(), nil)

	res, err := f.svc.Checkout(context.Background(), sid, customer, validForm)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict || typed.Message() != emptyCartMessage {
		t.Fatalf("expected empty cart error, got %v", err)
	}
	if res.Attempt.State != StateRejected || res.Attempt.Reason != ReasonEmptyCart || res.Order != nil {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(f.log.orders) != 0 {
		t.Fatal("empty cart must never produce an order")
	}
}

func TestCheckoutCardFormat(t *testing.T) {
	cases := map[string]bool{
		"1234567890123456":  true,
		"123":               false,
		"abcd123456789012":  false,
		"12345678901234567": false,
		"１２３４５６７８９０１２３４５６": false,
	}
	for card, want := range cases {
		if got := ValidCardNumber(card); got != want {
			t.Fatalf("ValidCardNumber(%q) = %v want %v", card, got, want)
		}
	}

	f := newFixture(t, payments.Always(), nil)
	f.fillCart(t, 1)
	form := validForm
	form.Card = "abcd123456789012"

	res, err := f.svc.Checkout(context.Background(), sid, customer, form)
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if res.Attempt.Reason != ReasonInvalidCard {
		t.Fatalf("expected invalid_card, got %+v", res.Attempt)
	}
	if f.cartEmpty(t) || len(f.log.orders) != 0 {
		t.Fatal("rejected checkout must keep the cart and record nothing")
	}
}

func TestCheckoutMissingFields(t *testing.T) {
	f := newFixture(t, payments.Always(), nil)
	f.fillCart(t, 1)

	res, err := f.svc.Checkout(context.Background(), sid, customer, PaymentForm{Card: "1234567890123456"})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, _ := typed.Details().(map[string]string)
	for _, field := range []string{"name", "email", "address"} {
		if _, ok := details[field]; !ok {
			t.Fatalf("expected %s in details %v", field, details)
		}
	}
	if res.Attempt.State != StateRejected || res.Attempt.Reason != ReasonInvalidCard {
		t.Fatalf("unexpected attempt %+v", res.Attempt)
	}
}

func TestCheckoutAcceptsAnyNonEmptyEmail(t *testing.T) {
	f := newFixture(t, payments.Always(), nil)
	f.fillCart(t, 1)
	form := validForm
	form.Email = "ann at home"

	res, err := f.svc.Checkout(context.Background(), sid, customer, form)
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if res.Attempt.State != StateRecorded || len(f.log.orders) != 1 {
		t.Fatalf("expected a recorded order, got %+v", res.Attempt)
	}
	if f.log.orders[0].Email != "ann at home" {
		t.Fatalf("expected the email to be kept as entered, got %q", f.log.orders[0].Email)
	}
}

func TestCheckoutFreeCartSkipsAuthorizer(t *testing.T) {
	f := newFixture(t, payments.Never(), nil)
	f.fillCart(t, 4, 4)

	res, err := f.svc.Checkout(context.Background(), sid, customer, validForm)
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if res.Attempt.State != StateRecorded || res.Order == nil || res.Order.Total != 0 {
		t.Fatalf("expected a recorded free order, got %+v", res.Attempt)
	}
	if len(f.log.orders) != 1 || !f.cartEmpty(t) {
		t.Fatal("free checkout must record one order and clear the cart")
	}
}

func TestCheckoutDeclinedKeepsCart(t *testing.T) {
	f := newFixture(t, payments.Never(), nil)
	f.fillCart(t, 3)

	res, err := f.svc.Checkout(context.Background(), sid, customer, validForm)
	if !pkgerrors.IsCode(err, pkgerrors.CodeDeclined) {
		t.Fatalf("expected PAYMENT_DECLINED, got %v", err)
	}
	if res.Attempt.State != StateRejected || res.Attempt.Reason != ReasonDeclined {
		t.Fatalf("unexpected attempt %+v", res.Attempt)
	}
	if f.cartEmpty(t) || len(f.log.orders) != 0 {
		t.Fatal("declined checkout must keep the cart and record nothing")
	}
	if f.recorder.outcomes[0] != metrics.OutcomeDeclined {
		t.Fatalf("unexpected outcome %v", f.recorder.outcomes)
	}
}

func TestCheckoutAppendFailureKeepsCart(t *testing.T) {
	f := newFixture(t, payments.Always(), nil)
	f.fillCart(t, 1)
	f.log.err = errors.New("disk full")

	res, err := f.svc.Checkout(context.Background(), sid, customer, validForm)
	if !pkgerrors.IsCode(err, pkgerrors.CodeInternal) {
		t.Fatalf("expected INTERNAL, got %v", err)
	}
	if res.Attempt.State != StateRejected {
		t.Fatalf("unexpected attempt %+v", res.Attempt)
	}
	if f.cartEmpty(t) {
		t.Fatal("cart must survive a failed append")
	}
}

func TestCheckoutRetriesTakenOrderID(t *testing.T) {
	f := newFixture(t, payments.Always(), nil)
	f.fillCart(t, 1)
	f.log.conflicts = 1

	res, err := f.svc.Checkout(context.Background(), sid, customer, validForm)
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if res.Order.OrderID != "id000002" || f.log.orders[0].OrderID != "id000002" {
		t.Fatalf("expected retried id, got %+v", res.Order)
	}
}

func TestCheckoutClearFailureStillRecords(t *testing.T) {
	f := newFixture(t, payments.Always(), failingClearStore{MemoryStore: cart.NewMemoryStore()})
	f.fillCart(t, 1)

	res, err := f.svc.Checkout(context.Background(), sid, customer, validForm)
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if res.Attempt.State != StateRecorded || len(f.log.orders) != 1 {
		t.Fatalf("order must stand when clearing fails, got %+v", res)
	}
}

func TestCheckoutUniqueOrderIDsAcrossAttempts(t *testing.T) {
	f := newFixture(t, payments.Always(), nil)
	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		f.fillCart(t, 1)
		res, err := f.svc.Checkout(context.Background(), sid, customer, validForm)
		if err != nil {
			t.Fatalf("checkout %d: %v", i, err)
		}
		if seen[res.Order.OrderID] {
			t.Fatalf("duplicate order id %s", res.Order.OrderID)
		}
		seen[res.Order.OrderID] = true
	}
	if len(f.log.orders) != 3 {
		t.Fatalf("expected 3 orders, got %d", len(f.log.orders))
	}
}

func TestSummary(t *testing.T) {
	f := newFixture(t, payments.Always(), nil)
	if _, err := f.svc.Summary(context.Background(), sid); !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected empty cart error, got %v", err)
	}
	f.fillCart(t, 1, 3)
	view, err := f.svc.Summary(context.Background(), sid)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if view.Total != 1700 {
		t.Fatalf("expected 1700, got %d", view.Total)
	}
}

func TestHostedSessionFlowIsIdempotent(t *testing.T) {
	f := newFixture(t, payments.Always(), nil)
	ctx := context.Background()

	if _, err := f.svc.CreateHostedSession(ctx, sid, customer); !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected empty cart error, got %v", err)
	}

	f.fillCart(t, 1, 3)
	sess, err := f.svc.CreateHostedSession(ctx, sid, customer)
	if err != nil {
		t.Fatalf("create hosted session: %v", err)
	}
	if sess.ID == "" || sess.URL == "" {
		t.Fatalf("unexpected session %+v", sess)
	}
	if f.cartEmpty(t) {
		t.Fatal("creating a hosted session must not clear the cart")
	}

	first, err := f.svc.CompleteHostedSession(ctx, sid, sess.ID)
	if err != nil || !first {
		t.Fatalf("first callback: first=%v err=%v", first, err)
	}
	if !f.cartEmpty(t) {
		t.Fatal("expected cart cleared after success callback")
	}

	f.fillCart(t, 1)
	again, err := f.svc.CompleteHostedSession(ctx, sid, sess.ID)
	if err != nil || again {
		t.Fatalf("repeat callback: first=%v err=%v", again, err)
	}
	if f.cartEmpty(t) {
		t.Fatal("repeat callback must not clear a cart filled afterwards")
	}

	if _, err := f.svc.CompleteHostedSession(ctx, sid, " "); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for missing token, got %v", err)
	}
}

func TestHostedWithoutProvider(t *testing.T) {
	svc, err := NewService(ServiceParams{
		Carts:      cart.NewMemoryStore(),
		Catalog:    testCatalog,
		Orders:     &memoryLog{},
		Authorizer: payments.Always(),
		Logger:     logger.Nop(),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if _, err := svc.CreateHostedSession(context.Background(), sid, customer); !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected DEPENDENCY, got %v", err)
	}
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	if _, err := NewService(ServiceParams{}); err == nil {
		t.Fatal("expected error")
	}
	_, err := NewService(ServiceParams{
		Carts:      cart.NewMemoryStore(),
		Catalog:    testCatalog,
		Orders:     &memoryLog{},
		Authorizer: payments.Always(),
		Logger:     logger.Nop(),
		Hosted:     payments.LocalHosted{},
	})
	if err == nil {
		t.Fatal("expected error for hosted checkout without guard")
	}
}

func TestAttemptTransitions(t *testing.T) {
	a := newAttempt()
	a.record("x")
	if a.State != StatePending {
		t.Fatalf("record before authorize must not advance, got %s", a.State)
	}
	a.authorize()
	a.record("x")
	if a.State != StateRecorded || a.OrderID != "x" {
		t.Fatalf("unexpected attempt %+v", a)
	}
	a.reject(ReasonDeclined)
	if a.State != StateRecorded {
		t.Fatal("recorded attempt must not be rejected afterwards")
	}
}

func newTestRedis(t *testing.T) *shopredis.Client {
	t.Helper()
	client, err := shopredis.NewInMemory()
	if err != nil {
		t.Fatalf("start embedded redis: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}
