package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shoplite/shoplite-api/internal/domain"
	"github.com/shoplite/shoplite-api/internal/repo/postgres"
	"github.com/shoplite/shoplite-api/pkg/config"
	"github.com/shoplite/shoplite-api/pkg/events"
	"github.com/shoplite/shoplite-api/pkg/logger"
)

const (
	notifyQueued = "queued"
	notifyFailed = "failed"
	notifySkip   = "skipped"
)

type OrderService struct {
	orders postgres.OrdersRepo
	users  postgres.UsersRepo
	bus    events.Publisher
	cfg    *config.Config
}

func NewOrderService(orders postgres.OrdersRepo, users postgres.UsersRepo, bus events.Publisher, cfg *config.Config) *OrderService {
	return &OrderService{orders: orders, users: users, bus: bus, cfg: cfg}
}

// Create places an order. Inventory is checked and decremented atomically with
// the order insert. The confirmation emails are queued afterwards; a queue
// failure never fails the order.
func (s *OrderService) Create(ctx context.Context, userID int64, req *domain.CreateOrderRequest) (*domain.Order, *domain.NotificationStatus, error) {
	if len(req.Items) == 0 {
		return nil, nil, domain.Errorf(domain.KindInvalid, "Order must contain at least one item")
	}
	for _, it := range req.Items {
		if it.Quantity <= 0 {
			return nil, nil, domain.Errorf(domain.KindInvalid, "Item quantity must be positive")
		}
	}
	if req.ShippingAddress.Empty() {
		return nil, nil, domain.Errorf(domain.KindInvalid, "Shipping address is required")
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = domain.DefaultPaymentMethod
	}

	order, err := s.orders.CreateWithItems(ctx, userID, req)
	if err != nil {
		if domain.KindOf(err) != domain.KindInternal {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("failed to create order: %w", err)
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		logger.ErrorContext(ctx, "failed to load user for order", "error", err, "user_id", userID)
	}
	if user != nil {
		order.User = user.Info()
	}

	if err := s.bus.Publish(ctx, events.OrderCreated, events.OrderCreatedEvent{
		OrderID:     order.ID,
		UserID:      userID,
		TotalAmount: order.TotalAmount,
		ItemCount:   len(order.Items),
		CreatedAt:   order.CreatedAt,
	}); err != nil {
		logger.ErrorContext(ctx, "failed to publish order created event", "error", err, "order_id", order.ID)
	}

	notif := s.queueOrderEmails(ctx, order, user)
	return order, notif, nil
}

func (s *OrderService) queueOrderEmails(ctx context.Context, order *domain.Order, user *domain.User) *domain.NotificationStatus {
	status := &domain.NotificationStatus{CustomerEmail: notifySkip, AdminEmail: notifySkip}

	var customer *events.CustomerEmail
	if user != nil {
		customer = &events.CustomerEmail{Name: user.Name, Email: user.Email, Phone: user.Phone}
	}
	mail := orderEmail(order)

	if user != nil {
		status.CustomerEmail = notifyQueued
		if err := s.bus.Publish(ctx, events.NotifySend, events.NotifySendEvent{
			MessageID: uuid.NewString(),
			Kind:      events.NotifyOrderConfirmation,
			To:        user.Email,
			ToName:    user.Name,
			Order:     mail,
			Customer:  customer,
		}); err != nil {
			logger.ErrorContext(ctx, "failed to queue confirmation email", "error", err, "order_id", order.ID)
			status.CustomerEmail = notifyFailed
		}
	}

	if s.cfg.Email.AdminEmail != "" {
		status.AdminEmail = notifyQueued
		if err := s.bus.Publish(ctx, events.NotifySend, events.NotifySendEvent{
			MessageID: uuid.NewString(),
			Kind:      events.NotifyAdminOrderAlert,
			To:        s.cfg.Email.AdminEmail,
			Order:     mail,
			Customer:  customer,
		}); err != nil {
			logger.ErrorContext(ctx, "failed to queue admin alert", "error", err, "order_id", order.ID)
			status.AdminEmail = notifyFailed
		}
	}

	return status
}

func orderEmail(o *domain.Order) *events.OrderEmail {
	items := make([]events.OrderEmailItem, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, events.OrderEmailItem{Name: it.Name, Price: it.Price, Quantity: it.Quantity})
	}
	return &events.OrderEmail{
		ID:          o.ID,
		TotalAmount: o.TotalAmount,
		Status:      string(o.Status),
		Items:       items,
		ShippingAddress: events.AddressEmail{
			Street:  o.ShippingAddress.Street,
			City:    o.ShippingAddress.City,
			State:   o.ShippingAddress.State,
			ZipCode: o.ShippingAddress.ZipCode,
			Country: o.ShippingAddress.Country,
		},
	}
}

func (s *OrderService) ListMine(ctx context.Context, userID int64) ([]domain.Order, error) {
	orders, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// Get returns an order to its owner or to an admin.
func (s *OrderService) Get(ctx context.Context, id, userID int64, isAdmin bool) (*domain.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	if order == nil {
		return nil, domain.Errorf(domain.KindNotFound, "Order not found")
	}
	if !isAdmin && !order.IsOwner(userID) {
		return nil, domain.Errorf(domain.KindForbidden, "Not authorized to view this order")
	}
	return order, nil
}

// ListAll pages through every order, optionally filtered by status.
func (s *OrderService) ListAll(ctx context.Context, page, limit int, statusFilter string) ([]domain.Order, *domain.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}
	offset := (page - 1) * limit

	var (
		orders []domain.Order
		total  int64
		err    error
	)
	if statusFilter != "" {
		status, ok := domain.ParseOrderStatus(statusFilter)
		if !ok {
			return nil, nil, domain.Errorf(domain.KindInvalid, "Invalid status: %s", statusFilter)
		}
		orders, err = s.orders.ListByStatus(ctx, status, limit, offset)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to list orders: %w", err)
		}
		total, err = s.orders.CountByStatus(ctx, status)
	} else {
		orders, err = s.orders.List(ctx, limit, offset)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to list orders: %w", err)
		}
		total, err = s.orders.Count(ctx)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to count orders: %w", err)
	}

	pages := int((total + int64(limit) - 1) / int64(limit))
	return orders, &domain.Pagination{Page: page, Limit: limit, Total: total, Pages: pages}, nil
}

// UpdateStatus is the admin transition. Moving into cancelled restores the
// items' inventory exactly once.
func (s *OrderService) UpdateStatus(ctx context.Context, id int64, newStatus string) (*domain.Order, error) {
	status, ok := domain.ParseOrderStatus(newStatus)
	if !ok {
		return nil, domain.Errorf(domain.KindInvalid, "Invalid status: %s", newStatus)
	}

	before, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	if before == nil {
		return nil, domain.Errorf(domain.KindNotFound, "Order not found")
	}

	order, err := s.orders.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}
	if order == nil {
		return nil, domain.Errorf(domain.KindNotFound, "Order not found")
	}

	if before.Status != order.Status {
		if err := s.bus.Publish(ctx, events.OrderStatusChanged, events.OrderStatusChangedEvent{
			OrderID:   order.ID,
			OldStatus: string(before.Status),
			NewStatus: string(order.Status),
			ChangedAt: time.Now(),
		}); err != nil {
			logger.ErrorContext(ctx, "failed to publish status change", "error", err, "order_id", order.ID)
		}
	}

	return order, nil
}

// Cancel is the customer path. Only the owner may cancel, and only while the
// order is still pending.
func (s *OrderService) Cancel(ctx context.Context, id, userID int64) (*domain.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	if order == nil {
		return nil, domain.Errorf(domain.KindNotFound, "Order not found")
	}
	if !order.IsOwner(userID) {
		return nil, domain.Errorf(domain.KindForbidden, "Not authorized to cancel this order")
	}
	if !order.CanCancelByOwner() {
		return nil, domain.Errorf(domain.KindInvalid, "Only pending orders can be cancelled")
	}

	ok, err := s.orders.CancelPending(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel order: %w", err)
	}
	if !ok {
		// Lost the race against a concurrent transition.
		return nil, domain.Errorf(domain.KindInvalid, "Only pending orders can be cancelled")
	}

	if err := s.bus.Publish(ctx, events.OrderCanceled, events.OrderCanceledEvent{
		OrderID:    id,
		UserID:     userID,
		Reason:     "cancelled by customer",
		CanceledAt: time.Now(),
	}); err != nil {
		logger.ErrorContext(ctx, "failed to publish cancellation", "error", err, "order_id", id)
	}

	return s.orders.GetByID(ctx, id)
}
