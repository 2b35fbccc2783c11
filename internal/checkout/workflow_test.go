package checkout

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polycycle/internal/auth"
	"polycycle/internal/cart"
	"polycycle/internal/order"
)

// fakeOrders records Create calls; the rest of the interface is unused here.
type fakeOrders struct {
	created []*order.Order
	failErr error
}

func (f *fakeOrders) Create(_ context.Context, userID uuid.UUID, items order.LineItems, customer order.Customer, notes string) (*order.Order, error) {
	if f.failErr != nil {
		return nil, f.failErr
	}
	o := &order.Order{
		ID:       uuid.New(),
		UserID:   userID,
		Status:   order.StatusPending,
		Items:    items,
		Total:    items.Total(),
		Customer: customer,
		Notes:    notes,
	}
	f.created = append(f.created, o)
	return o, nil
}

func (f *fakeOrders) Get(context.Context, uuid.UUID) (*order.Order, error)        { return nil, nil }
func (f *fakeOrders) ListByUser(context.Context, uuid.UUID) ([]*order.Order, error) { return nil, nil }
func (f *fakeOrders) ListAll(context.Context) ([]*order.Order, error)             { return nil, nil }
func (f *fakeOrders) UpdateStatus(context.Context, uuid.UUID, order.Status) (*order.Order, error) {
	return nil, nil
}
func (f *fakeOrders) AttachShipping(context.Context, uuid.UUID, order.Shipping) (*order.Order, error) {
	return nil, nil
}
func (f *fakeOrders) AttachRefund(context.Context, uuid.UUID, order.Refund) (*order.Order, error) {
	return nil, nil
}
func (f *fakeOrders) Stats(context.Context) (*order.Stats, error) { return nil, nil }

type fakeNotifier struct {
	calls int
	err   error
}

func (f *fakeNotifier) OrderPlaced(context.Context, uuid.UUID, string, decimal.Decimal) error {
	f.calls++
	return f.err
}

func testSession() *auth.Session {
	return &auth.Session{User: &auth.User{ID: uuid.New(), Email: "buyer@example.com"}}
}

func filledCart(t *testing.T) *cart.Cart {
	t.Helper()
	c := &cart.Cart{}
	require.NoError(t, c.Add(cart.ProductSnapshot{
		ProductID: uuid.New(),
		Name:      "HDPE Pellets",
		SKU:       "HDPE-001",
		Price:     decimal.RequireFromString("120.50"),
	}, "green", 2))
	require.NoError(t, c.Add(cart.ProductSnapshot{
		ProductID: uuid.New(),
		Name:      "PET Flakes",
		SKU:       "PET-002",
		Price:     decimal.RequireFromString("89.99"),
	}, "clear", 1))
	return c
}

func validForm() Form {
	return Form{
		Name:       "Dana Reyes",
		Email:      "dana@example.com",
		Phone:      "+212600000000",
		Street:     "12 Rue des Usines",
		City:       "Casablanca",
		PostalCode: "20250",
		Country:    "MA",
	}
}

func TestSubmitCreatesPendingOrderAndClearsCart(t *testing.T) {
	orders := &fakeOrders{}
	notifier := &fakeNotifier{}
	w := NewWorkflow(orders, notifier, slog.Default())

	session := testSession()
	c := filledCart(t)

	o, fields, err := w.Submit(context.Background(), session, c, validForm())
	require.NoError(t, err)
	require.Nil(t, fields)
	require.NotNil(t, o)

	require.Len(t, orders.created, 1)
	assert.Equal(t, order.StatusPending, o.Status)
	assert.Equal(t, session.User.ID, o.UserID)
	assert.Len(t, o.Items, 2)
	assert.True(t, o.Total.Equal(decimal.RequireFromString("330.99")), "got %s", o.Total)

	assert.Empty(t, c.Items(), "cart must be cleared after a successful order")
	assert.Equal(t, 1, notifier.calls)
}

func TestSubmitAccumulatesAllFieldErrors(t *testing.T) {
	orders := &fakeOrders{}
	w := NewWorkflow(orders, &fakeNotifier{}, slog.Default())

	c := filledCart(t)
	form := validForm()
	form.Name = ""
	form.Email = "not-an-address"
	form.City = ""

	o, fields, err := w.Submit(context.Background(), testSession(), c, form)
	require.NoError(t, err)
	assert.Nil(t, o)

	require.NotNil(t, fields)
	assert.Contains(t, fields, "name")
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields, "city")
	assert.NotContains(t, fields, "street")

	assert.Empty(t, orders.created, "no order may exist for an invalid form")
	assert.Equal(t, 3, c.Count(), "cart survives a failed validation")
}

func TestSubmitKeepsCartWhenPersistenceFails(t *testing.T) {
	orders := &fakeOrders{failErr: errors.New("connection refused")}
	notifier := &fakeNotifier{}
	w := NewWorkflow(orders, notifier, slog.Default())

	c := filledCart(t)

	o, fields, err := w.Submit(context.Background(), testSession(), c, validForm())
	require.ErrorIs(t, err, ErrSubmitFailed)
	assert.Nil(t, o)
	assert.Nil(t, fields)

	assert.Equal(t, 3, c.Count(), "cart survives a failed submission for retry")
	assert.Zero(t, notifier.calls)
}

func TestSubmitRejectsEmptyCart(t *testing.T) {
	w := NewWorkflow(&fakeOrders{}, &fakeNotifier{}, slog.Default())

	_, _, err := w.Submit(context.Background(), testSession(), &cart.Cart{}, validForm())
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestSubmitRequiresSession(t *testing.T) {
	w := NewWorkflow(&fakeOrders{}, &fakeNotifier{}, slog.Default())

	_, _, err := w.Submit(context.Background(), nil, filledCart(t), validForm())
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestSubmitSucceedsWhenNotifierFails(t *testing.T) {
	orders := &fakeOrders{}
	notifier := &fakeNotifier{err: errors.New("notification store down")}
	w := NewWorkflow(orders, notifier, slog.Default())

	c := filledCart(t)

	o, fields, err := w.Submit(context.Background(), testSession(), c, validForm())
	require.NoError(t, err)
	require.Nil(t, fields)
	require.NotNil(t, o)
	assert.Empty(t, c.Items())
}

func TestValidateFormStateIsOptional(t *testing.T) {
	w := NewWorkflow(&fakeOrders{}, &fakeNotifier{}, slog.Default())

	form := validForm()
	form.State = ""
	assert.Nil(t, w.ValidateForm(form))
}
