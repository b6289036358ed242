package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"billing-service/internal/domain"
	"billing-service/internal/provider"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// fakeStore backs the in-memory repositories. One store-wide mutex is held
// for the lifetime of a fake transaction, mirroring the row-lock
// serialization the pgx repositories get from SELECT FOR UPDATE. Writes made
// inside a transaction record undo closures; Rollback replays them.
type fakeStore struct {
	mu          sync.Mutex
	wallets     map[string]*domain.Wallet
	txns        []*domain.Transaction
	refs        map[string]bool
	subs        map[string]*domain.Subscription
	withdrawals []*domain.WithdrawalRequest
	logs        []*domain.PaymentLog
	logKeys     map[string]bool
	nextTxID    int64
	nextWallet  int
	nextWD      int

	failWithdrawalInsert bool

	undo []func()
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		wallets: make(map[string]*domain.Wallet),
		refs:    make(map[string]bool),
		subs:    make(map[string]*domain.Subscription),
		logKeys: make(map[string]bool),
	}
}

func (s *fakeStore) addWallet(userID, currency string, balance decimal.Decimal) *domain.Wallet {
	s.nextWallet++
	w := &domain.Wallet{
		ID:        fmt.Sprintf("wal-%d", s.nextWallet),
		UserID:    userID,
		Currency:  currency,
		Balance:   balance,
		UpdatedAt: time.Now(),
	}
	s.wallets[w.ID] = w
	return w
}

func (s *fakeStore) balance(walletID string) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wallets[walletID].Balance
}

type fakeTx struct {
	pgx.Tx
	store *fakeStore
	done  bool
}

func (t *fakeTx) Commit(ctx context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.store.undo = nil
	t.store.mu.Unlock()
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	for i := len(t.store.undo) - 1; i >= 0; i-- {
		t.store.undo[i]()
	}
	t.store.undo = nil
	t.store.mu.Unlock()
	return nil
}

func cloneWallet(w *domain.Wallet) *domain.Wallet {
	c := *w
	return &c
}

type fakeWalletRepo struct{ s *fakeStore }

func (r *fakeWalletRepo) BeginTx(ctx context.Context) (pgx.Tx, error) {
	r.s.mu.Lock()
	return &fakeTx{store: r.s}, nil
}

func (r *fakeWalletRepo) GetByID(ctx context.Context, walletID string) (*domain.Wallet, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w, ok := r.s.wallets[walletID]
	if !ok {
		return nil, &domain.NotFoundError{Entity: "wallet", Ref: walletID}
	}
	return cloneWallet(w), nil
}

func (r *fakeWalletRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, walletID string) (*domain.Wallet, error) {
	w, ok := r.s.wallets[walletID]
	if !ok {
		return nil, &domain.NotFoundError{Entity: "wallet", Ref: walletID}
	}
	return cloneWallet(w), nil
}

func (r *fakeWalletRepo) EnsureForUpdate(ctx context.Context, tx pgx.Tx, userID, currency string) (*domain.Wallet, error) {
	for _, w := range r.s.wallets {
		if w.UserID == userID && w.Currency == currency {
			return cloneWallet(w), nil
		}
	}
	w := r.s.addWallet(userID, currency, decimal.Zero)
	id := w.ID
	r.s.undo = append(r.s.undo, func() { delete(r.s.wallets, id) })
	return cloneWallet(w), nil
}

func (r *fakeWalletRepo) UpdateBalance(ctx context.Context, tx pgx.Tx, walletID string, balance decimal.Decimal) error {
	w, ok := r.s.wallets[walletID]
	if !ok {
		return &domain.NotFoundError{Entity: "wallet", Ref: walletID}
	}
	prev := w.Balance
	r.s.undo = append(r.s.undo, func() { w.Balance = prev })
	w.Balance = balance
	w.Version++
	return nil
}

func (r *fakeWalletRepo) ListByUser(ctx context.Context, userID string) ([]*domain.Wallet, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.Wallet
	for _, w := range r.s.wallets {
		if w.UserID == userID {
			out = append(out, cloneWallet(w))
		}
	}
	return out, nil
}

type fakeTransactionRepo struct{ s *fakeStore }

func (r *fakeTransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	if r.s.refs[t.ReferenceID] {
		return domain.ErrDuplicateReference
	}
	r.s.nextTxID++
	t.ID = r.s.nextTxID
	t.CreatedAt = time.Now()
	entry := *t
	r.s.txns = append(r.s.txns, &entry)
	r.s.refs[t.ReferenceID] = true
	ref := t.ReferenceID
	r.s.undo = append(r.s.undo, func() {
		r.s.txns = r.s.txns[:len(r.s.txns)-1]
		delete(r.s.refs, ref)
	})
	return nil
}

func (r *fakeTransactionRepo) GetByGatewayPaymentID(ctx context.Context, gatewayPaymentID string) (*domain.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.txns {
		if t.GatewayPaymentID != nil && *t.GatewayPaymentID == gatewayPaymentID {
			entry := *t
			return &entry, nil
		}
	}
	return nil, &domain.NotFoundError{Entity: "transaction", Ref: gatewayPaymentID}
}

func (r *fakeTransactionRepo) ListByWallet(ctx context.Context, walletID string, limit int) ([]*domain.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.Transaction
	for _, t := range r.s.txns {
		if t.WalletID == walletID {
			entry := *t
			out = append(out, &entry)
		}
	}
	return out, nil
}

func (r *fakeTransactionRepo) UpdateStatus(ctx context.Context, id int64, status domain.TransactionStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.txns {
		if t.ID == id {
			t.Status = status
			return nil
		}
	}
	return &domain.NotFoundError{Entity: "transaction", Ref: fmt.Sprintf("%d", id)}
}

type fakeSubscriptionRepo struct{ s *fakeStore }

func (r *fakeSubscriptionRepo) Upsert(ctx context.Context, sub *domain.Subscription) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sub.UpdatedAt = time.Now()
	copied := *sub
	r.s.subs[sub.UserID] = &copied
	return nil
}

func (r *fakeSubscriptionRepo) GetByUserID(ctx context.Context, userID string) (*domain.Subscription, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sub, ok := r.s.subs[userID]
	if !ok {
		return nil, &domain.NotFoundError{Entity: "subscription", Ref: userID}
	}
	copied := *sub
	return &copied, nil
}

func (r *fakeSubscriptionRepo) SetPaymentStatus(ctx context.Context, gatewaySubscriptionID string, status domain.SubscriptionPaymentStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, sub := range r.s.subs {
		if sub.GatewaySubscriptionID != nil && *sub.GatewaySubscriptionID == gatewaySubscriptionID {
			sub.PaymentStatus = status
			return nil
		}
	}
	return &domain.NotFoundError{Entity: "subscription", Ref: gatewaySubscriptionID}
}

func (r *fakeSubscriptionRepo) ExtendPeriod(ctx context.Context, gatewaySubscriptionID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, sub := range r.s.subs {
		if sub.GatewaySubscriptionID != nil && *sub.GatewaySubscriptionID == gatewaySubscriptionID {
			cycle := domain.CycleMonthly
			if sub.BillingCycle != nil {
				cycle = *sub.BillingCycle
			}
			sub.EndDate = domain.CycleEnd(sub.EndDate, cycle)
			sub.PaymentStatus = domain.SubPaymentActive
			return nil
		}
	}
	return &domain.NotFoundError{Entity: "subscription", Ref: gatewaySubscriptionID}
}

type fakeWithdrawalRepo struct{ s *fakeStore }

func (r *fakeWithdrawalRepo) Create(ctx context.Context, tx pgx.Tx, wr *domain.WithdrawalRequest) error {
	if r.s.failWithdrawalInsert {
		return fmt.Errorf("simulated withdrawal insert failure")
	}
	r.s.nextWD++
	wr.ID = fmt.Sprintf("wd-%d", r.s.nextWD)
	wr.CreatedAt = time.Now()
	wr.UpdatedAt = wr.CreatedAt
	copied := *wr
	r.s.withdrawals = append(r.s.withdrawals, &copied)
	r.s.undo = append(r.s.undo, func() {
		r.s.withdrawals = r.s.withdrawals[:len(r.s.withdrawals)-1]
	})
	return nil
}

func (r *fakeWithdrawalRepo) CountPending(ctx context.Context, userID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	count := 0
	for _, wr := range r.s.withdrawals {
		if wr.UserID == userID && wr.Status == domain.WithdrawalPending {
			count++
		}
	}
	return count, nil
}

func (r *fakeWithdrawalRepo) ListByUser(ctx context.Context, userID string) ([]*domain.WithdrawalRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.WithdrawalRequest
	for _, wr := range r.s.withdrawals {
		if wr.UserID == userID {
			copied := *wr
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeWithdrawalRepo) UpdateStatus(ctx context.Context, id string, status domain.WithdrawalStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, wr := range r.s.withdrawals {
		if wr.ID == id {
			wr.Status = status
			return nil
		}
	}
	return &domain.NotFoundError{Entity: "withdrawal request", Ref: id}
}

type fakePaymentLogRepo struct{ s *fakeStore }

func (r *fakePaymentLogRepo) Insert(ctx context.Context, log *domain.PaymentLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := string(log.EventType) + ":" + log.GatewayEventID
	if r.s.logKeys[key] {
		return domain.ErrDuplicateEvent
	}
	r.s.logKeys[key] = true
	log.ID = int64(len(r.s.logs) + 1)
	log.ReceivedAt = time.Now()
	copied := *log
	r.s.logs = append(r.s.logs, &copied)
	return nil
}

func (r *fakePaymentLogRepo) ListByPaymentID(ctx context.Context, gatewayPaymentID string) ([]*domain.PaymentLog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.PaymentLog
	for _, l := range r.s.logs {
		if l.GatewayPaymentID != nil && *l.GatewayPaymentID == gatewayPaymentID {
			copied := *l
			out = append(out, &copied)
		}
	}
	return out, nil
}

type fakeGateway struct {
	mu         sync.Mutex
	orderCalls int
	subCalls   int
	lastOrder  *provider.OrderRequest
	lastSub    *provider.SubscriptionRequest
	orderErr   error
	subErr     error
}

func (g *fakeGateway) GetName() string { return "fake" }

func (g *fakeGateway) CreateOrder(ctx context.Context, req *provider.OrderRequest) (*provider.OrderResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.orderCalls++
	g.lastOrder = req
	if g.orderErr != nil {
		return nil, g.orderErr
	}
	return &provider.OrderResponse{
		OrderID:     fmt.Sprintf("order_%d", g.orderCalls),
		AmountMinor: req.AmountMinor,
		Currency:    req.Currency,
		Status:      "created",
	}, nil
}

func (g *fakeGateway) CreateSubscription(ctx context.Context, req *provider.SubscriptionRequest) (*provider.SubscriptionResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.subCalls++
	g.lastSub = req
	if g.subErr != nil {
		return nil, g.subErr
	}
	return &provider.SubscriptionResponse{
		SubscriptionID: fmt.Sprintf("sub_%d", g.subCalls),
		ShortURL:       "https://gw.test/checkout/abc",
		Status:         "created",
	}, nil
}

type fakeDirectory struct {
	users map[string]*domain.DirectoryUser
}

func (d *fakeDirectory) LookupByEmail(ctx context.Context, email string) (*domain.DirectoryUser, error) {
	u, ok := d.users[email]
	if !ok {
		return nil, &domain.NotFoundError{Entity: "user", Ref: email}
	}
	return u, nil
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []string
	fail bool
}

func (m *fakeMailer) Send(to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return fmt.Errorf("smtp unavailable")
	}
	m.sent = append(m.sent, to)
	return nil
}
