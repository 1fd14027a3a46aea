package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shoplite/shoplite-api/internal/domain"
	"github.com/shoplite/shoplite-api/internal/http/handlers"
	"github.com/shoplite/shoplite-api/internal/service"
	"github.com/shoplite/shoplite-api/pkg/auth"
	"github.com/shoplite/shoplite-api/pkg/config"
	"github.com/shoplite/shoplite-api/pkg/events"
)

const testSecret = "test-secret"

// ---------- Mocks ----------

type mockUsersRepo struct {
	mu     sync.Mutex
	nextID int64
	users  map[string]*domain.User // lower(email) -> user
}

func newMockUsersRepo() *mockUsersRepo {
	return &mockUsersRepo{nextID: 1, users: make(map[string]*domain.User)}
}

func (m *mockUsersRepo) Create(_ context.Context, name, email, hash, phone, role string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := &domain.User{
		ID: m.nextID, Role: role, Name: name, Email: email, Phone: phone,
		PasswordHash: hash, CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	m.nextID++
	m.users[strings.ToLower(email)] = u
	return u, nil
}

func (m *mockUsersRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[strings.ToLower(email)]; ok {
		return u, nil
	}
	return nil, nil
}

func (m *mockUsersRepo) FindByID(_ context.Context, id int64) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, nil
}

type mockOTPRepo struct {
	mu      sync.Mutex
	nextID  int64
	records []*domain.OTP
}

func newMockOTPRepo() *mockOTPRepo { return &mockOTPRepo{nextID: 1} }

func (m *mockOTPRepo) Create(_ context.Context, email, codeHash string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, &domain.OTP{
		ID: m.nextID, Email: email, CodeHash: codeHash,
		ExpiresAt: expiresAt, CreatedAt: time.Now(),
	})
	m.nextID++
	return nil
}

func (m *mockOTPRepo) FindLatestByEmail(_ context.Context, email string) (*domain.OTP, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.records) - 1; i >= 0; i-- {
		if strings.EqualFold(m.records[i].Email, email) {
			return m.records[i], nil
		}
	}
	return nil, nil
}

func (m *mockOTPRepo) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.records {
		if r.ID == id {
			m.records = append(m.records[:i], m.records[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *mockOTPRepo) DeleteExpired(context.Context) (int64, error) { return 0, nil }

// expireLatest backdates the newest record for an email.
func (m *mockOTPRepo) expireLatest(email string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.records) - 1; i >= 0; i-- {
		if strings.EqualFold(m.records[i].Email, email) {
			m.records[i].ExpiresAt = time.Now().Add(-time.Minute)
			return
		}
	}
}

type mockOrdersRepo struct {
	mu       sync.Mutex
	nextID   int64
	products map[int64]*domain.Product
	orders   map[int64]*domain.Order
	users    *mockUsersRepo
}

func newMockOrdersRepo(users *mockUsersRepo) *mockOrdersRepo {
	return &mockOrdersRepo{
		nextID:   1,
		products: make(map[int64]*domain.Product),
		orders:   make(map[int64]*domain.Order),
		users:    users,
	}
}

func (m *mockOrdersRepo) addProduct(id int64, name string, price int64, inventory int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[id] = &domain.Product{ID: id, Name: name, Price: price, Inventory: inventory}
}

func (m *mockOrdersRepo) inventory(id int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.products[id].Inventory
}

func (m *mockOrdersRepo) CreateWithItems(_ context.Context, userID int64, req *domain.CreateOrderRequest) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var (
		total int64
		items []domain.OrderItem
	)
	for _, it := range req.Items {
		p, ok := m.products[it.ProductID]
		if !ok {
			return nil, domain.Errorf(domain.KindNotFound, "Product not found: %d", it.ProductID)
		}
		if p.Inventory < it.Quantity {
			return nil, domain.Errorf(domain.KindInvalid, "Insufficient inventory for product: %s", p.Name)
		}
		total += p.Price * int64(it.Quantity)
		items = append(items, domain.OrderItem{
			ProductID: p.ID, Name: p.Name, Price: p.Price, Quantity: it.Quantity,
		})
	}
	for _, it := range items {
		m.products[it.ProductID].Inventory -= it.Quantity
	}

	o := &domain.Order{
		ID: m.nextID, UserID: userID, Items: items,
		ShippingAddress: req.ShippingAddress, TotalAmount: total,
		Status: domain.OrderPending, PaymentMethod: req.PaymentMethod, Notes: req.Notes,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	m.nextID++
	m.orders[o.ID] = o
	return o, nil
}

func (m *mockOrdersRepo) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	m.mu.Lock()
	o, ok := m.orders[id]
	m.mu.Unlock()
	if !ok {
		return nil, nil
	}
	cp := *o
	if u, _ := m.users.FindByID(ctx, o.UserID); u != nil {
		cp.User = u.Info()
	}
	return &cp, nil
}

func (m *mockOrdersRepo) ListByUser(_ context.Context, userID int64) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (m *mockOrdersRepo) List(_ context.Context, limit, offset int) ([]domain.Order, error) {
	return m.page(nil, limit, offset), nil
}

func (m *mockOrdersRepo) ListByStatus(_ context.Context, status domain.OrderStatus, limit, offset int) ([]domain.Order, error) {
	return m.page(&status, limit, offset), nil
}

func (m *mockOrdersRepo) page(status *domain.OrderStatus, limit, offset int) []domain.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []domain.Order
	for _, o := range m.orders {
		if status != nil && o.Status != *status {
			continue
		}
		all = append(all, *o)
	}
	sortNewestFirst(all)
	if offset >= len(all) {
		return []domain.Order{}
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end]
}

func (m *mockOrdersRepo) Count(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.orders)), nil
}

func (m *mockOrdersRepo) CountByStatus(_ context.Context, status domain.OrderStatus) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, o := range m.orders {
		if o.Status == status {
			n++
		}
	}
	return n, nil
}

func (m *mockOrdersRepo) UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) (*domain.Order, error) {
	m.mu.Lock()
	o, ok := m.orders[id]
	if !ok {
		m.mu.Unlock()
		return nil, nil
	}
	if status == domain.OrderCancelled && o.Status != domain.OrderCancelled {
		m.restoreLocked(o)
	}
	o.Status = status
	o.UpdatedAt = time.Now()
	m.mu.Unlock()
	return m.GetByID(ctx, id)
}

func (m *mockOrdersRepo) CancelPending(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok || o.Status != domain.OrderPending {
		return false, nil
	}
	o.Status = domain.OrderCancelled
	o.UpdatedAt = time.Now()
	m.restoreLocked(o)
	return true, nil
}

func (m *mockOrdersRepo) restoreLocked(o *domain.Order) {
	for _, it := range o.Items {
		if p, ok := m.products[it.ProductID]; ok {
			p.Inventory += it.Quantity
		}
	}
}

func sortNewestFirst(os []domain.Order) {
	sort.Slice(os, func(i, j int) bool { return os[i].ID > os[j].ID })
}

// mockProductsRepo shares the product map with mockOrdersRepo so order flows
// and catalog management see the same inventory.
type mockProductsRepo struct {
	orders *mockOrdersRepo
}

func (m *mockProductsRepo) Create(_ context.Context, name string, price int64, inventory int) (*domain.Product, error) {
	m.orders.mu.Lock()
	defer m.orders.mu.Unlock()
	var id int64 = 1
	for pid := range m.orders.products {
		if pid >= id {
			id = pid + 1
		}
	}
	p := &domain.Product{
		ID: id, Name: name, Price: price, Inventory: inventory,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	m.orders.products[id] = p
	return p, nil
}

func (m *mockProductsRepo) FindByID(_ context.Context, id int64) (*domain.Product, error) {
	m.orders.mu.Lock()
	defer m.orders.mu.Unlock()
	p, ok := m.orders.products[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *mockProductsRepo) List(_ context.Context, limit, offset int) ([]domain.Product, error) {
	m.orders.mu.Lock()
	defer m.orders.mu.Unlock()
	var ids []int64
	for id := range m.orders.products {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var out []domain.Product
	for i, id := range ids {
		if i < offset {
			continue
		}
		if len(out) >= limit {
			break
		}
		out = append(out, *m.orders.products[id])
	}
	return out, nil
}

func (m *mockProductsRepo) Update(_ context.Context, id int64, name string, price int64) (*domain.Product, error) {
	m.orders.mu.Lock()
	defer m.orders.mu.Unlock()
	p, ok := m.orders.products[id]
	if !ok {
		return nil, nil
	}
	p.Name, p.Price, p.UpdatedAt = name, price, time.Now()
	cp := *p
	return &cp, nil
}

func (m *mockProductsRepo) SetInventory(_ context.Context, id int64, inventory int) (*domain.Product, error) {
	m.orders.mu.Lock()
	defer m.orders.mu.Unlock()
	p, ok := m.orders.products[id]
	if !ok {
		return nil, nil
	}
	p.Inventory, p.UpdatedAt = inventory, time.Now()
	cp := *p
	return &cp, nil
}

func (m *mockProductsRepo) Delete(_ context.Context, id int64) (bool, error) {
	m.orders.mu.Lock()
	defer m.orders.mu.Unlock()
	if _, ok := m.orders.products[id]; !ok {
		return false, nil
	}
	delete(m.orders.products, id)
	return true, nil
}

type mockBus struct {
	mu        sync.Mutex
	published []events.Message
	failAll   bool
}

func (b *mockBus) Publish(_ context.Context, subject string, data interface{}) error {
	if b.failAll {
		return context.DeadlineExceeded
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, events.Message{Subject: subject, Data: payload, Timestamp: time.Now()})
	return nil
}

func (b *mockBus) Close() error { return nil }

// lastOTP returns the code from the newest OTP notification for email.
func (b *mockBus) lastOTP(email string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.published) - 1; i >= 0; i-- {
		if b.published[i].Subject != events.NotifySend {
			continue
		}
		var evt events.NotifySendEvent
		if json.Unmarshal(b.published[i].Data, &evt) != nil {
			continue
		}
		if evt.Kind == events.NotifyOTP && strings.EqualFold(evt.To, email) {
			return evt.OTPCode
		}
	}
	return ""
}

func (b *mockBus) countKind(kind string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, msg := range b.published {
		if msg.Subject != events.NotifySend {
			continue
		}
		var evt events.NotifySendEvent
		if json.Unmarshal(msg.Data, &evt) == nil && evt.Kind == kind {
			n++
		}
	}
	return n
}

// ---------- Test setup ----------

type testEnv struct {
	server *httptest.Server
	users  *mockUsersRepo
	otps   *mockOTPRepo
	orders *mockOrdersRepo
	bus    *mockBus
	cfg    *config.Config
}

func setupTestServer(t *testing.T) *testEnv {
	t.Helper()

	cfg := &config.Config{}
	cfg.Auth.JWTSecret = testSecret
	cfg.Auth.TokenTTL = time.Hour
	cfg.Auth.OTPTTL = 5 * time.Minute
	cfg.Auth.BootstrapAdminEmail = "admin@example.com"
	cfg.Email.AdminEmail = "orders@example.com"

	users := newMockUsersRepo()
	otps := newMockOTPRepo()
	orders := newMockOrdersRepo(users)
	bus := &mockBus{}

	authSvc := service.NewAuthService(users, otps, bus, cfg)
	orderSvc := service.NewOrderService(orders, users, bus, cfg)
	productSvc := service.NewProductService(&mockProductsRepo{orders: orders})
	h := handlers.New(authSvc, orderSvc, productSvc, cfg)

	server := httptest.NewServer(h.Routes(nil))
	t.Cleanup(server.Close)

	return &testEnv{server: server, users: users, otps: otps, orders: orders, bus: bus, cfg: cfg}
}

// newUser creates an account directly and returns its bearer token.
func (e *testEnv) newUser(t *testing.T, email, role string) (*domain.User, string) {
	t.Helper()
	u, err := e.users.Create(context.Background(), "Test User", email, "unused-hash", "+15550000000", role)
	if err != nil {
		t.Fatal(err)
	}
	token, err := auth.NewAccessToken(u.ID, u.Email, u.Role, testSecret, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	return u, token
}

// ---------- HTTP helpers ----------

type envelope struct {
	Success       bool                       `json:"success"`
	Data          json.RawMessage            `json:"data"`
	Message       string                     `json:"message"`
	Code          string                     `json:"code"`
	Count         *int                       `json:"count"`
	Pagination    *domain.Pagination         `json:"pagination"`
	Notifications *domain.NotificationStatus `json:"notifications"`
}

func doJSON(t *testing.T, method, url, token string, body interface{}, expectedStatus int) *envelope {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}

	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != expectedStatus {
		t.Fatalf("%s %s: expected status %d, got %d", method, url, expectedStatus, resp.StatusCode)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("%s %s: failed to decode body: %v", method, url, err)
	}
	return &env
}

func decodeData(t *testing.T, env *envelope, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(env.Data, out); err != nil {
		t.Fatalf("failed to decode data: %v", err)
	}
}
