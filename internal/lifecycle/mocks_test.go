package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"vkitchen_back_end/internal/models"
	"vkitchen_back_end/internal/orders"
	"vkitchen_back_end/internal/payments"
	"vkitchen_back_end/internal/realtime"

	"github.com/gocql/gocql"
)

var (
	errMockNotFound = errors.New("not found")
	errMockStripe   = errors.New("stripe unavailable")
)

// --- order store ---

type mockOrderStore struct {
	mu     sync.Mutex
	orders map[string]*models.Order
	saves  int
	getErr error // injected lookup failure, distinct from a missing row
}

func newMockOrderStore() *mockOrderStore {
	return &mockOrderStore{orders: make(map[string]*models.Order)}
}

func (m *mockOrderStore) Insert(ctx context.Context, o *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *o
	m.orders[o.ID.String()] = &cp
	return nil
}

func (m *mockOrderStore) Save(ctx context.Context, o *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	cp := *o
	m.orders[o.ID.String()] = &cp
	return nil
}

func (m *mockOrderStore) GetByID(ctx context.Context, id string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	o, ok := m.orders[id]
	if !ok {
		return nil, orders.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrderStore) GetByPaymentIntent(ctx context.Context, intentID string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	for _, o := range m.orders {
		if o.PaymentIntentID == intentID {
			cp := *o
			return &cp, nil
		}
	}
	return nil, orders.ErrNotFound
}

// --- notification store ---

type mockNotifStore struct {
	mu       sync.Mutex
	inserted []models.Notification
}

func (m *mockNotifStore) Insert(ctx context.Context, n *models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inserted = append(m.inserted, *n)
	return nil
}

func (m *mockNotifStore) CountUnread(ctx context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, n := range m.inserted {
		if n.UserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (m *mockNotifStore) byType(typ models.NotificationType) []models.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Notification
	for _, n := range m.inserted {
		if n.Type == typ {
			out = append(out, n)
		}
	}
	return out
}

// --- event store ---

type mockEventStore struct {
	mu        sync.Mutex
	claimed   map[string]*models.WebhookEvent
	finalized map[string]models.WebhookOutcome
}

func newMockEventStore() *mockEventStore {
	return &mockEventStore{
		claimed:   make(map[string]*models.WebhookEvent),
		finalized: make(map[string]models.WebhookOutcome),
	}
}

func (m *mockEventStore) Claim(ctx context.Context, ev *models.WebhookEvent) (*models.WebhookEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prior, ok := m.claimed[ev.EventID]; ok {
		cp := *prior
		return &cp, nil
	}
	cp := *ev
	m.claimed[ev.EventID] = &cp
	return nil, nil
}

func (m *mockEventStore) Finalize(ctx context.Context, eventID string, outcome models.WebhookOutcome, orderID, errText string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finalized[eventID] = outcome
	if ev, ok := m.claimed[eventID]; ok {
		ev.Outcome = outcome
		ev.OrderID = orderID
		ev.Error = errText
	}
	return nil
}

// --- catalog ---

type mockCatalog struct {
	dishes map[string]*models.Dish
}

func newMockCatalog(dishes ...*models.Dish) *mockCatalog {
	m := &mockCatalog{dishes: make(map[string]*models.Dish)}
	for _, d := range dishes {
		m.dishes[d.ID.String()] = d
	}
	return m
}

func (m *mockCatalog) GetDish(ctx context.Context, id string) (*models.Dish, error) {
	d, ok := m.dishes[id]
	if !ok {
		return nil, errMockNotFound
	}
	return d, nil
}

// --- payment provider ---

type mockPayments struct {
	mu          sync.Mutex
	intents     int
	refunds     []string
	failRefund  bool
	failIntent  bool
	lastIntent  map[string]string
	lastRefund  map[string]string
	refundCalls int
}

func (m *mockPayments) CreateIntent(amount int64, currency string, metadata map[string]string) (*payments.Intent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failIntent {
		return nil, errMockStripe
	}
	m.intents++
	m.lastIntent = metadata
	return &payments.Intent{
		ID:           fmt.Sprintf("pi_test_%d", m.intents),
		ClientSecret: fmt.Sprintf("pi_test_%d_secret", m.intents),
		Amount:       amount,
		Status:       "requires_payment_method",
		Metadata:     metadata,
	}, nil
}

func (m *mockPayments) CreateRefund(intentID, reason string, metadata map[string]string) (*payments.Refund, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refundCalls++
	if m.failRefund {
		return nil, errMockStripe
	}
	m.refunds = append(m.refunds, intentID)
	m.lastRefund = metadata
	return &payments.Refund{ID: fmt.Sprintf("re_test_%d", len(m.refunds)), Status: "succeeded"}, nil
}

// --- publisher ---

type mockPublisher struct {
	mu       sync.Mutex
	toUser   []realtime.Event
	toRole   []realtime.Event
	toOrder  []realtime.Event
	lastRole string
}

func (m *mockPublisher) RouteToUser(userID string, ev realtime.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.toUser = append(m.toUser, ev)
}

func (m *mockPublisher) RouteToRole(role string, ev realtime.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastRole = role
	m.toRole = append(m.toRole, ev)
}

func (m *mockPublisher) RouteToOrder(orderID string, ev realtime.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.toOrder = append(m.toOrder, ev)
}

func (m *mockPublisher) userEvents(typ string) []realtime.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []realtime.Event
	for _, ev := range m.toUser {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

// --- mailer ---

type mockMailer struct {
	mu            sync.Mutex
	placedAlerts  int
	cancelAlerts  int
	statusUpdates int
	confirmations int
}

func (m *mockMailer) SendOrderPlacedAlert(o *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.placedAlerts++
	return nil
}

func (m *mockMailer) SendCancellationAlert(o *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelAlerts++
	return nil
}

func (m *mockMailer) SendStatusUpdate(o *models.Order, status models.OrderStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statusUpdates++
	return nil
}

func (m *mockMailer) SendOrderConfirmation(o *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.confirmations++
	return nil
}

// --- number generators ---

type seqNumbers struct {
	mu     sync.Mutex
	prefix string
	n      int
}

func (g *seqNumbers) Next(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s%06d", g.prefix, g.n), nil
}

// --- fixture ---

type fixture struct {
	c      *Coordinator
	store  *mockOrderStore
	notifs *mockNotifStore
	events *mockEventStore
	pay    *mockPayments
	pub    *mockPublisher
	mail   *mockMailer
	menu   *mockCatalog
}

var fixedNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func newFixture(dishes ...*models.Dish) *fixture {
	f := &fixture{
		store:  newMockOrderStore(),
		notifs: &mockNotifStore{},
		events: newMockEventStore(),
		pay:    &mockPayments{},
		pub:    &mockPublisher{},
		mail:   &mockMailer{},
		menu:   newMockCatalog(dishes...),
	}
	f.c = New(&Coordinator{
		Orders:        f.store,
		Notifications: f.notifs,
		Events:        f.events,
		Menu:          f.menu,
		Payments:      f.pay,
		Hub:           f.pub,
		Mail:          f.mail,
		OrderNumbers:  &seqNumbers{prefix: "VK-"},
		EventNumbers:  &seqNumbers{prefix: "VKT-"},
	})
	f.c.now = func() time.Time { return fixedNow }
	return f
}

func testDish(name string, price float64) *models.Dish {
	return &models.Dish{
		ID:        gocql.TimeUUID(),
		Name:      name,
		Category:  "mains",
		Price:     price,
		Available: true,
	}
}

func (f *fixture) settle() {
	f.c.Effects.Wait()
}
