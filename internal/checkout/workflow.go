package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"polycycle/internal/auth"
	"polycycle/internal/cart"
	"polycycle/internal/order"
)

var (
	ErrNotAuthenticated = errors.New("checkout requires an authenticated session")
	ErrEmptyCart        = errors.New("cart is empty")
	ErrSubmitFailed     = errors.New("failed to process order, please try again")
)

// Form is the shipping/contact block the customer fills in. Every rule here
// is a required-ness rule; violations accumulate rather than short-circuit.
type Form struct {
	Name       string `json:"name" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	Phone      string `json:"phone" validate:"required"`
	Street     string `json:"street" validate:"required"`
	City       string `json:"city" validate:"required"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code" validate:"required"`
	Country    string `json:"country" validate:"required"`
	Notes      string `json:"notes"`
}

// OrderNotifier receives the new-order alert after a successful submission.
type OrderNotifier interface {
	OrderPlaced(ctx context.Context, orderID uuid.UUID, customerName string, total decimal.Decimal) error
}

// Workflow converts a populated cart into a durable order. Stock is not
// touched here: it was already debited when items entered the cart.
type Workflow struct {
	orders   order.Service
	notifier OrderNotifier
	validate *validator.Validate
	tracer   trace.Tracer
	logger   *slog.Logger
}

func NewWorkflow(orders order.Service, notifier OrderNotifier, logger *slog.Logger) *Workflow {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Key validation errors by the form's wire field names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Workflow{
		orders:   orders,
		notifier: notifier,
		validate: v,
		tracer:   otel.Tracer("polycycle/checkout"),
		logger:   logger,
	}
}

// ValidateForm returns every failed field keyed by its wire name, or nil when
// the form is complete.
func (w *Workflow) ValidateForm(form Form) map[string]string {
	err := w.validate.Struct(form)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"form": "invalid submission"}
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			fields[fe.Field()] = fmt.Sprintf("%s is required", fe.Field())
		case "email":
			fields[fe.Field()] = "must be a valid email address"
		default:
			fields[fe.Field()] = "invalid value"
		}
	}
	return fields
}

// Submit validates the form and, when it passes, writes a pending order
// snapshotted from the cart under the session's user. The cart is cleared
// only on success; on a write failure the cart and form survive for retry.
func (w *Workflow) Submit(ctx context.Context, session *auth.Session, c *cart.Cart, form Form) (*order.Order, map[string]string, error) {
	ctx, span := w.tracer.Start(ctx, "checkout.submit")
	defer span.End()

	if session == nil {
		return nil, nil, ErrNotAuthenticated
	}
	span.SetAttributes(attribute.String("user.id", session.User.ID.String()))

	items := c.Items()
	if len(items) == 0 {
		return nil, nil, ErrEmptyCart
	}

	if fields := w.ValidateForm(form); fields != nil {
		span.SetAttributes(attribute.Int("validation.failures", len(fields)))
		return nil, fields, nil
	}

	lines := make(order.LineItems, len(items))
	for i, it := range items {
		lines[i] = order.LineItem{
			ProductID:     it.ProductID,
			Name:          it.Name,
			SKU:           it.SKU,
			SelectedColor: it.SelectedColor,
			Quantity:      it.Quantity,
			Price:         it.Price,
		}
	}

	customer := order.Customer{
		Name:       form.Name,
		Email:      form.Email,
		Phone:      form.Phone,
		Street:     form.Street,
		City:       form.City,
		State:      form.State,
		PostalCode: form.PostalCode,
		Country:    form.Country,
	}

	o, err := w.orders.Create(ctx, session.User.ID, lines, customer, form.Notes)
	if err != nil {
		w.logger.Error("order submission failed", "user_id", session.User.ID, "error", err)
		return nil, nil, fmt.Errorf("%w: %v", ErrSubmitFailed, err)
	}
	span.SetAttributes(
		attribute.String("order.id", o.ID.String()),
		attribute.String("order.total", o.Total.String()),
	)

	if w.notifier != nil {
		if err := w.notifier.OrderPlaced(ctx, o.ID, customer.Name, o.Total); err != nil {
			w.logger.Warn("order notification failed", "order_id", o.ID, "error", err)
		}
	}

	c.Clear()
	return o, nil, nil
}
