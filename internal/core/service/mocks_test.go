package service

import (
	"context"
	"errors"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/oakmart/storefront/internal/core/domain"
	"github.com/oakmart/storefront/internal/port"
)

// mockState is the in-memory database behind mockStore.
type mockState struct {
	carts      map[string]*domain.Cart       // by user id
	cartItems  map[string][]domain.CartItem  // by cart id
	products   map[string]*domain.Product    // by product id
	orders     map[string]*domain.Order      // by order id
	orderItems map[string][]domain.OrderItem // by order id
	ledger     []domain.StockLedgerEntry
}

func newMockState() *mockState {
	return &mockState{
		carts:      make(map[string]*domain.Cart),
		cartItems:  make(map[string][]domain.CartItem),
		products:   make(map[string]*domain.Product),
		orders:     make(map[string]*domain.Order),
		orderItems: make(map[string][]domain.OrderItem),
	}
}

func (st *mockState) clone() *mockState {
	cp := newMockState()
	for k, v := range st.carts {
		c := *v
		cp.carts[k] = &c
	}
	for k, v := range st.cartItems {
		cp.cartItems[k] = append([]domain.CartItem(nil), v...)
	}
	for k, v := range st.products {
		p := *v
		cp.products[k] = &p
	}
	for k, v := range st.orders {
		o := *v
		cp.orders[k] = &o
	}
	for k, v := range st.orderItems {
		cp.orderItems[k] = append([]domain.OrderItem(nil), v...)
	}
	cp.ledger = append([]domain.StockLedgerEntry(nil), st.ledger...)
	return cp
}

// mockStore runs each transaction under one mutex and restores a snapshot on
// error, mirroring the all-or-nothing contract of the real store.
type mockStore struct {
	mu    sync.Mutex
	state *mockState

	// onDecrement runs before each conditional decrement; tests use it to
	// simulate a concurrent checkout winning between validation and
	// reservation.
	onDecrement func(st *mockState, productID string)

	failInsertOrder bool
}

func newMockStore() *mockStore {
	return &mockStore{state: newMockState()}
}

func (m *mockStore) RunInTransaction(ctx context.Context, fn func(tx port.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.state.clone()
	if err := fn(&mockTx{store: m}); err != nil {
		m.state = snapshot
		return err
	}
	return nil
}

func (m *mockStore) OrderByNumber(ctx context.Context, orderNumber string) (*domain.Order, []domain.OrderItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.state.orders {
		if o.OrderNumber == orderNumber {
			cp := *o
			return &cp, append([]domain.OrderItem(nil), m.state.orderItems[o.ID]...), nil
		}
	}
	return nil, nil, nil
}

func (m *mockStore) Product(ctx context.Context, productID string) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.state.products[productID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *mockStore) seedProduct(p domain.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := p
	m.state.products[p.ID] = &cp
}

func (m *mockStore) seedCart(userID, cartID string, items ...domain.CartItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.carts[userID] = &domain.Cart{ID: cartID, UserID: userID}
	m.state.cartItems[cartID] = append([]domain.CartItem(nil), items...)
}

func (m *mockStore) stock(productID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.products[productID].Stock
}

func (m *mockStore) cartSize(cartID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.state.cartItems[cartID])
}

func (m *mockStore) ledgerEntries() []domain.StockLedgerEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.StockLedgerEntry(nil), m.state.ledger...)
}

func (m *mockStore) orderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.state.orders)
}

type mockTx struct {
	store *mockStore
}

func (t *mockTx) CartForUser(ctx context.Context, userID string) (*domain.Cart, error) {
	c, ok := t.store.state.carts[userID]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (t *mockTx) CartItems(ctx context.Context, cartID string) ([]domain.CartItem, error) {
	return append([]domain.CartItem(nil), t.store.state.cartItems[cartID]...), nil
}

func (t *mockTx) Product(ctx context.Context, productID string) (*domain.Product, error) {
	p, ok := t.store.state.products[productID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (t *mockTx) DecrementStock(ctx context.Context, productID string, qty int) (bool, int, error) {
	if t.store.onDecrement != nil {
		t.store.onDecrement(t.store.state, productID)
	}
	p, ok := t.store.state.products[productID]
	if !ok || p.Stock < qty {
		stock := 0
		if ok {
			stock = p.Stock
		}
		return false, stock, nil
	}
	p.Stock -= qty
	return true, p.Stock, nil
}

func (t *mockTx) IncrementStock(ctx context.Context, productID string, qty int) (int, error) {
	p, ok := t.store.state.products[productID]
	if !ok {
		return 0, errors.New("no such product")
	}
	p.Stock += qty
	return p.Stock, nil
}

func (t *mockTx) AppendLedgerEntry(ctx context.Context, entry domain.StockLedgerEntry) error {
	t.store.state.ledger = append(t.store.state.ledger, entry)
	return nil
}

func (t *mockTx) InsertOrder(ctx context.Context, order domain.Order, items []domain.OrderItem) error {
	if t.store.failInsertOrder {
		return errors.New("simulated insert failure")
	}
	t.store.state.orders[order.ID] = &order
	t.store.state.orderItems[order.ID] = append([]domain.OrderItem(nil), items...)
	return nil
}

func (t *mockTx) DeleteCartItems(ctx context.Context, cartID string) error {
	delete(t.store.state.cartItems, cartID)
	return nil
}

func (t *mockTx) OrderByNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	for _, o := range t.store.state.orders {
		if o.OrderNumber == orderNumber {
			cp := *o
			return &cp, nil
		}
	}
	return nil, nil
}

func (t *mockTx) OrderItems(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	return append([]domain.OrderItem(nil), t.store.state.orderItems[orderID]...), nil
}

func (t *mockTx) TransitionOrderStatus(ctx context.Context, orderID string, from []domain.OrderStatus, to domain.OrderStatus) (bool, error) {
	o, ok := t.store.state.orders[orderID]
	if !ok {
		return false, nil
	}
	for _, s := range from {
		if o.Status == s {
			o.Status = to
			return true, nil
		}
	}
	return false, nil
}

// Mock CacheRepository (idempotency only)
type mockCacheRepo struct {
	mu   sync.Mutex
	keys map[string]bool
}

func newMockCacheRepo() *mockCacheRepo {
	return &mockCacheRepo{keys: make(map[string]bool)}
}

func (m *mockCacheRepo) SetIdempotency(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keys[key] {
		return false, nil
	}
	m.keys[key] = true
	return true, nil
}

func (m *mockCacheRepo) ReleaseIdempotency(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, key)
	return nil
}

// Mock CouponService with a fixed amount per coupon id
type mockCouponService struct {
	discounts map[string]decimal.Decimal
}

func (m *mockCouponService) Discount(ctx context.Context, couponID string, subtotal decimal.Decimal) (decimal.Decimal, error) {
	if d, ok := m.discounts[couponID]; ok {
		return d, nil
	}
	return decimal.Zero, nil
}

// Mock AddressService that accepts everything unless told otherwise
type mockAddressService struct {
	denied map[string]bool
}

func (m *mockAddressService) AddressBelongsTo(ctx context.Context, addressID, userID string) (bool, error) {
	return !m.denied[addressID], nil
}

// Mock Notifier counting deliveries
type mockNotifier struct {
	mu    sync.Mutex
	sent  int
	fail  bool
	last  domain.Order
	items int
}

func (m *mockNotifier) OrderConfirmed(ctx context.Context, order domain.Order, items []domain.OrderItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("broker unavailable")
	}
	m.sent++
	m.last = order
	m.items = len(items)
	return nil
}
