package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/aq2208/gstore-api/internal/entity"
)

// memStore backs the product, order and user fakes. WithinTx snapshots it and
// restores the snapshot when fn fails, which is enough to observe atomicity.
type memStore struct {
	txMu     sync.Mutex // transactions run one at a time
	mu       sync.Mutex
	products map[int64]entity.Product
	orders   map[int64]entity.Order
	users    map[int64]entity.User
	nextID   int64

	failSaveOnce error // returned by the next OrderRepo.Save, then cleared
	failAdjustID int64 // AdjustStock on this product fails
	failUpdateID int64 // ProductRepo.Update on this product fails
}

func newMemStore() *memStore {
	return &memStore{
		products: map[int64]entity.Product{},
		orders:   map[int64]entity.Order{},
		users:    map[int64]entity.User{},
	}
}

func (s *memStore) id() int64 { s.nextID++; return s.nextID }

func (s *memStore) addProduct(name, price string, stock int, cat entity.Category) entity.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := entity.Product{ID: s.id(), Name: name, Category: cat, Price: decimal.RequireFromString(price), Stock: stock}
	s.products[p.ID] = p
	return p
}

func (s *memStore) addUser(username, email string) entity.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := entity.User{ID: s.id(), Username: username, Email: email}
	s.users[u.ID] = u
	return u
}

func (s *memStore) product(id int64) entity.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[id]
}

func (s *memStore) countOrders(pred func(entity.Order) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, o := range s.orders {
		if pred(o) {
			n++
		}
	}
	return n
}

func cloneOrder(o entity.Order) entity.Order {
	o.Lines = append([]entity.OrderLine(nil), o.Lines...)
	for i := range o.Lines {
		o.Lines[i].Product = nil
	}
	return o
}

// --- TxManager ---

type memTx struct{ s *memStore }

func (t memTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t.s.txMu.Lock()
	defer t.s.txMu.Unlock()

	t.s.mu.Lock()
	products := make(map[int64]entity.Product, len(t.s.products))
	for k, v := range t.s.products {
		products[k] = v
	}
	orders := make(map[int64]entity.Order, len(t.s.orders))
	for k, v := range t.s.orders {
		orders[k] = cloneOrder(v)
	}
	t.s.mu.Unlock()

	if err := fn(ctx); err != nil {
		t.s.mu.Lock()
		t.s.products = products
		t.s.orders = orders
		t.s.mu.Unlock()
		return err
	}
	return nil
}

// --- ProductRepo ---

type memProducts struct{ s *memStore }

func (r memProducts) GetByID(_ context.Context, id int64) (*entity.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok {
		return nil, entity.ErrProductNotFound
	}
	return &p, nil
}

func (r memProducts) GetByIDForUpdate(ctx context.Context, id int64) (*entity.Product, error) {
	return r.GetByID(ctx, id)
}

func (r memProducts) List(_ context.Context, f ProductFilter) ([]*entity.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*entity.Product{}
	for _, p := range r.s.products {
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		if f.Name != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(f.Name)) {
			continue
		}
		p := p
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memProducts) Create(_ context.Context, p *entity.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p.ID = r.s.id()
	r.s.products[p.ID] = *p
	return nil
}

func (r memProducts) Update(_ context.Context, p *entity.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.products[p.ID]; !ok {
		return entity.ErrProductNotFound
	}
	if p.ID == r.s.failUpdateID {
		return errors.New("update product: connection reset")
	}
	r.s.products[p.ID] = *p
	return nil
}

func (r memProducts) AdjustStock(_ context.Context, id int64, delta int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if id == r.s.failAdjustID {
		return errors.New("adjust stock: connection reset")
	}
	p, ok := r.s.products[id]
	if !ok {
		return entity.ErrProductNotFound
	}
	if p.Stock+delta < 0 {
		return entity.ErrInsufficientStock
	}
	p.Stock += delta
	r.s.products[id] = p
	return nil
}

func (r memProducts) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.products[id]; !ok {
		return entity.ErrProductNotFound
	}
	delete(r.s.products, id)
	return nil
}

func (r memProducts) TopCategoryForUser(_ context.Context, userID int64) (entity.Category, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	qty := map[entity.Category]int{}
	for _, o := range r.s.orders {
		if o.UserID != userID {
			continue
		}
		for _, l := range o.Lines {
			qty[r.s.products[l.ProductID].Category] += l.Quantity
		}
	}
	var best entity.Category
	for c, n := range qty {
		if best == "" || n > qty[best] {
			best = c
		}
	}
	return best, best != "", nil
}

// --- OrderRepo ---

type memOrders struct{ s *memStore }

func (r memOrders) hydrate(o entity.Order) *entity.Order {
	o = cloneOrder(o)
	for i := range o.Lines {
		if p, ok := r.s.products[o.Lines[i].ProductID]; ok {
			p := p
			o.Lines[i].Product = &p
		}
	}
	if u, ok := r.s.users[o.UserID]; ok {
		info := u.Info()
		o.Owner = &info
	}
	return &o
}

func (r memOrders) FindCart(_ context.Context, userID int64) (*entity.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, o := range r.s.orders {
		if o.UserID == userID && o.IsShoppingCart {
			return r.hydrate(o), nil
		}
	}
	return nil, entity.ErrNoActiveCart
}

func (r memOrders) GetPlaced(_ context.Context, id int64) (*entity.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[id]
	if !ok || o.IsShoppingCart {
		return nil, entity.ErrOrderNotFound
	}
	return r.hydrate(o), nil
}

func (r memOrders) list(pred func(entity.Order) bool) []*entity.Order {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*entity.Order{}
	for _, o := range r.s.orders {
		if pred(o) {
			out = append(out, r.hydrate(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (r memOrders) ListPlaced(context.Context) ([]*entity.Order, error) {
	return r.list(func(o entity.Order) bool { return !o.IsShoppingCart }), nil
}

func (r memOrders) ListPlacedByUser(_ context.Context, userID int64) ([]*entity.Order, error) {
	return r.list(func(o entity.Order) bool { return !o.IsShoppingCart && o.UserID == userID }), nil
}

func (r memOrders) Save(_ context.Context, o *entity.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failSaveOnce; err != nil {
		r.s.failSaveOnce = nil
		return err
	}
	if o.IsShoppingCart {
		for id, other := range r.s.orders {
			if id != o.ID && other.UserID == o.UserID && other.IsShoppingCart {
				return fmt.Errorf("%w: open cart exists", entity.ErrConflict)
			}
		}
	}
	if o.ID == 0 {
		o.ID = r.s.id()
	}
	r.s.orders[o.ID] = cloneOrder(*o)
	return nil
}

func (r memOrders) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.orders, id)
	return nil
}

func (r memOrders) UpdateStatusIf(_ context.Context, id int64, from, to entity.Status) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[id]
	if !ok || o.IsShoppingCart || o.Status != from {
		return false, nil
	}
	o.Status = to
	r.s.orders[id] = o
	return true, nil
}

// --- UserRepo ---

type memUsers struct{ s *memStore }

func (r memUsers) GetByID(_ context.Context, id int64) (*entity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, entity.ErrUserNotFound
	}
	return &u, nil
}

func (r memUsers) GetByUsername(_ context.Context, username string) (*entity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Username == username {
			u := u
			return &u, nil
		}
	}
	return nil, entity.ErrUserNotFound
}

func (r memUsers) Create(_ context.Context, u *entity.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, other := range r.s.users {
		if other.Username == u.Username {
			return entity.ErrDuplicateUsername
		}
	}
	u.ID = r.s.id()
	r.s.users[u.ID] = *u
	return nil
}

func (r memUsers) AddRole(_ context.Context, userID int64, role string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u := r.s.users[userID]
	if !u.HasRole(role) {
		u.Roles = append(u.Roles, role)
	}
	r.s.users[userID] = u
	return nil
}

func (r memUsers) RemoveRole(_ context.Context, userID int64, role string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u := r.s.users[userID]
	kept := u.Roles[:0]
	for _, have := range u.Roles {
		if have != role {
			kept = append(kept, have)
		}
	}
	u.Roles = kept
	r.s.users[userID] = u
	return nil
}

// --- small collaborators ---

type noLock struct{}

func (noLock) Lock(context.Context, string) (func(), error) { return func() {}, nil }

type failingLock struct{ err error }

func (l failingLock) Lock(context.Context, string) (func(), error) { return nil, l.err }

type recordingNotifier struct {
	mu   sync.Mutex
	sent []Notification
	err  error
}

func (n *recordingNotifier) Notify(_ context.Context, msg Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, msg)
	return nil
}

type memCache struct {
	mu sync.Mutex
	m  map[string]string
}

func (c *memCache) SetStatus(_ context.Context, id, status string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.m == nil {
		c.m = map[string]string{}
	}
	c.m[id] = status
	return nil
}

func (c *memCache) GetStatus(_ context.Context, id string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.m[id]
	return s, ok, nil
}

type memIdem struct {
	mu     sync.Mutex
	locks  map[string]bool
	values map[string]string
}

func newMemIdem() *memIdem { return &memIdem{locks: map[string]bool{}, values: map[string]string{}} }

func (m *memIdem) TryLock(_ context.Context, scope, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[scope+key] {
		return false, nil
	}
	m.locks[scope+key] = true
	return true, nil
}

func (m *memIdem) Release(_ context.Context, scope, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, scope+key)
	return nil
}

func (m *memIdem) Remember(_ context.Context, scope, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[scope+key] = value
	return nil
}

func (m *memIdem) Recall(_ context.Context, scope, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[scope+key]
	return v, ok, nil
}

type memFiles struct {
	saved   []string
	deleted []string
}

func (f *memFiles) Save(_ context.Context, _ []byte, _, ext, container, name string) (string, error) {
	ref := "http://files.test/" + container + "/" + name + ext
	f.saved = append(f.saved, ref)
	return ref, nil
}

func (f *memFiles) Delete(_ context.Context, ref, _ string) error {
	f.deleted = append(f.deleted, ref)
	return nil
}
