package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/minebank/bank-service/internal/models"
)

// DefaultBankBalance seeds the capital pool of a fresh store.
const DefaultBankBalance = 50000.0

// MemoryStore keeps the whole ledger in a mutex-guarded snapshot. Write
// transactions run against a copy of the snapshot and swap it in on
// success, so a failed transaction leaves no partial mutation behind.
type MemoryStore struct {
	mu   sync.RWMutex
	snap *snapshot
}

type snapshot struct {
	resources map[string]*models.Resource
	clients   map[string]*models.Client
	users     map[string]*models.User
	deposits  map[int64]*models.Deposit
	credits   map[int64]*models.Credit
	history   []*models.PriceHistoryEntry
	bank      float64

	nextResource int64
	nextClient   int64
	nextUser     int64
	nextDeposit  int64
	nextCredit   int64
	nextHistory  int64
}

// NewMemoryStore returns an empty store with the default bank balance.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snap: &snapshot{
		resources: map[string]*models.Resource{},
		clients:   map[string]*models.Client{},
		users:     map[string]*models.User{},
		deposits:  map[int64]*models.Deposit{},
		credits:   map[int64]*models.Credit{},
		bank:      DefaultBankBalance,
	}}
}

func (s *snapshot) clone() *snapshot {
	c := &snapshot{
		resources:    make(map[string]*models.Resource, len(s.resources)),
		clients:      make(map[string]*models.Client, len(s.clients)),
		users:        make(map[string]*models.User, len(s.users)),
		deposits:     make(map[int64]*models.Deposit, len(s.deposits)),
		credits:      make(map[int64]*models.Credit, len(s.credits)),
		history:      make([]*models.PriceHistoryEntry, len(s.history)),
		bank:         s.bank,
		nextResource: s.nextResource,
		nextClient:   s.nextClient,
		nextUser:     s.nextUser,
		nextDeposit:  s.nextDeposit,
		nextCredit:   s.nextCredit,
		nextHistory:  s.nextHistory,
	}
	for k, v := range s.resources {
		cp := *v
		c.resources[k] = &cp
	}
	for k, v := range s.clients {
		cp := *v
		c.clients[k] = &cp
	}
	for k, v := range s.users {
		cp := *v
		c.users[k] = &cp
	}
	for k, v := range s.deposits {
		cp := *v
		c.deposits[k] = &cp
	}
	for k, v := range s.credits {
		cp := *v
		c.credits[k] = &cp
	}
	copy(c.history, s.history)
	return c
}

// Update runs fn against a copy of the snapshot and commits it on success.
func (s *MemoryStore) Update(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	work := s.snap.clone()
	if err := fn(&memTx{snap: work}); err != nil {
		return err
	}
	s.snap = work
	return nil
}

// View runs fn against the current snapshot under a read lock.
func (s *MemoryStore) View(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(&memTx{snap: s.snap})
}

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }

type memTx struct {
	snap *snapshot
}

func (t *memTx) Resource(name string) (*models.Resource, error) {
	r, ok := t.snap.resources[name]
	if !ok {
		return nil, ErrNotFound
	}
	return r, nil
}

func (t *memTx) Resources() ([]*models.Resource, error) {
	out := make([]*models.Resource, 0, len(t.snap.resources))
	for _, r := range t.snap.resources {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memTx) CreateResource(r *models.Resource) error {
	if _, ok := t.snap.resources[r.Name]; ok {
		return ErrDuplicateResource
	}
	t.snap.nextResource++
	r.ID = t.snap.nextResource
	t.snap.resources[r.Name] = r
	return nil
}

func (t *memTx) SaveResource(r *models.Resource) error {
	if _, ok := t.snap.resources[r.Name]; !ok {
		return ErrNotFound
	}
	t.snap.resources[r.Name] = r
	return nil
}

func (t *memTx) DeleteResource(name string) error {
	if _, ok := t.snap.resources[name]; !ok {
		return ErrNotFound
	}
	delete(t.snap.resources, name)
	return nil
}

func (t *memTx) Client(name string) (*models.Client, error) {
	c, ok := t.snap.clients[name]
	if !ok {
		return nil, ErrNotFound
	}
	return c, nil
}

func (t *memTx) Clients() ([]*models.Client, error) {
	out := make([]*models.Client, 0, len(t.snap.clients))
	for _, c := range t.snap.clients {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memTx) CreateClient(c *models.Client) error {
	if _, ok := t.snap.clients[c.Name]; ok {
		return ErrDuplicateClient
	}
	t.snap.nextClient++
	c.ID = t.snap.nextClient
	t.snap.clients[c.Name] = c
	return nil
}

func (t *memTx) SaveClient(c *models.Client) error {
	if _, ok := t.snap.clients[c.Name]; !ok {
		return ErrNotFound
	}
	t.snap.clients[c.Name] = c
	return nil
}

func (t *memTx) DeleteClient(name string) error {
	if _, ok := t.snap.clients[name]; !ok {
		return ErrNotFound
	}
	delete(t.snap.clients, name)
	return nil
}

func (t *memTx) BankBalance() (float64, error) { return t.snap.bank, nil }

func (t *memTx) SetBankBalance(balance float64) error {
	t.snap.bank = balance
	return nil
}

func (t *memTx) CreateDeposit(d *models.Deposit) error {
	t.snap.nextDeposit++
	d.ID = t.snap.nextDeposit
	t.snap.deposits[d.ID] = d
	return nil
}

func (t *memTx) Deposit(id int64) (*models.Deposit, error) {
	d, ok := t.snap.deposits[id]
	if !ok {
		return nil, ErrNotFound
	}
	return d, nil
}

func (t *memTx) DepositsByClient(name string) ([]*models.Deposit, error) {
	var out []*models.Deposit
	for _, d := range t.snap.deposits {
		if d.ClientName == name {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memTx) ActiveDeposits() ([]*models.Deposit, error) {
	var out []*models.Deposit
	for _, d := range t.snap.deposits {
		if d.IsActive {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memTx) SaveDeposit(d *models.Deposit) error {
	if _, ok := t.snap.deposits[d.ID]; !ok {
		return ErrNotFound
	}
	t.snap.deposits[d.ID] = d
	return nil
}

func (t *memTx) CreateCredit(c *models.Credit) error {
	t.snap.nextCredit++
	c.ID = t.snap.nextCredit
	t.snap.credits[c.ID] = c
	return nil
}

func (t *memTx) Credit(id int64) (*models.Credit, error) {
	c, ok := t.snap.credits[id]
	if !ok {
		return nil, ErrNotFound
	}
	return c, nil
}

func (t *memTx) CreditsByClient(name string) ([]*models.Credit, error) {
	var out []*models.Credit
	for _, c := range t.snap.credits {
		if c.ClientName == name {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memTx) ActiveCredits() ([]*models.Credit, error) {
	var out []*models.Credit
	for _, c := range t.snap.credits {
		if c.IsActive {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memTx) SaveCredit(c *models.Credit) error {
	if _, ok := t.snap.credits[c.ID]; !ok {
		return ErrNotFound
	}
	t.snap.credits[c.ID] = c
	return nil
}

func (t *memTx) AddPriceHistory(e *models.PriceHistoryEntry) error {
	t.snap.nextHistory++
	e.ID = t.snap.nextHistory
	t.snap.history = append(t.snap.history, e)
	return nil
}

func (t *memTx) PriceHistory(resource string, limit int) ([]*models.PriceHistoryEntry, error) {
	var out []*models.PriceHistoryEntry
	for i := len(t.snap.history) - 1; i >= 0 && len(out) < limit; i-- {
		if t.snap.history[i].ResourceName == resource {
			out = append(out, t.snap.history[i])
		}
	}
	return out, nil
}

func (t *memTx) UserByLogin(login string) (*models.User, error) {
	u, ok := t.snap.users[login]
	if !ok {
		return nil, ErrNotFound
	}
	return u, nil
}

func (t *memTx) CreateUser(u *models.User) error {
	if _, ok := t.snap.users[u.Login]; ok {
		return ErrDuplicateUser
	}
	t.snap.nextUser++
	u.ID = t.snap.nextUser
	t.snap.users[u.Login] = u
	return nil
}
