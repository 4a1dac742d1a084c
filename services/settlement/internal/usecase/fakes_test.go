package usecase_test

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	domainErrors "github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/errors"
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/event"
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/model"
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/provider"
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/repository"
)

// memWallets is an in-memory WalletRepository. The mutex plays the part of
// the row lock.
type memWallets struct {
	mu      sync.Mutex
	wallets map[uuid.UUID]*model.Wallet
	entries []model.WalletTransaction
	postErr error
}

func newMemWallets() *memWallets {
	return &memWallets{wallets: map[uuid.UUID]*model.Wallet{}}
}

func (r *memWallets) FindByFarmer(_ context.Context, farmerID uuid.UUID) (*model.Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[farmerID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *w
	return &cp, nil
}

func (r *memWallets) Post(ctx context.Context, params model.EntryParams, defaultCurrency string) (*repository.EntryResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	// A database driver refuses work on a cancelled context.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.postErr != nil {
		return nil, r.postErr
	}

	w, ok := r.wallets[params.FarmerID]
	if !ok {
		if params.Type != model.EntryTypeDeposit {
			return nil, domainErrors.NewInsufficientBalanceError(params.Amount, decimal.Zero)
		}
		w = model.NewWallet(params.FarmerID, defaultCurrency, time.Now())
	}

	if params.Reference != "" {
		for _, e := range r.entries {
			if e.Reference != params.Reference {
				continue
			}
			if e.WalletID != w.ID {
				return nil, repository.ErrDuplicate
			}
			return &repository.EntryResult{Wallet: *w, Transaction: e, Duplicate: true}, nil
		}
	}

	next := *w
	entry, err := model.PostEntry(&next, params, time.Now())
	if err != nil {
		return nil, err
	}
	r.wallets[params.FarmerID] = &next
	r.entries = append(r.entries, *entry)
	return &repository.EntryResult{Wallet: next, Transaction: *entry}, nil
}

func (r *memWallets) GetTransaction(_ context.Context, id uuid.UUID) (*model.WalletTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.ID == id {
			cp := e
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memWallets) ListTransactions(_ context.Context, walletID uuid.UUID, f repository.TransactionFilter) ([]model.WalletTransaction, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []model.WalletTransaction
	for i := len(r.entries) - 1; i >= 0; i-- {
		e := r.entries[i]
		if e.WalletID != walletID || (f.Type != nil && e.Type != *f.Type) {
			continue
		}
		matched = append(matched, e)
	}
	total := int64(len(matched))
	if f.Offset >= len(matched) {
		return nil, total, nil
	}
	end := f.Offset + f.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[f.Offset:end], total, nil
}

func (r *memWallets) SumEntries(_ context.Context, walletID uuid.UUID) (decimal.Decimal, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sum := decimal.Zero
	var n int64
	for _, e := range r.entries {
		if e.WalletID == walletID {
			sum = sum.Add(e.Delta())
			n++
		}
	}
	return sum, n, nil
}

func (r *memWallets) ListWallets(_ context.Context, offset, limit int) ([]model.Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := make([]model.Wallet, 0, len(r.wallets))
	for _, w := range r.wallets {
		all = append(all, *w)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID.String() < all[j].ID.String() })
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (r *memWallets) balance(farmerID uuid.UUID) decimal.Decimal {
	r.mu.Lock()
	defer r.mu.Unlock()
	if w, ok := r.wallets[farmerID]; ok {
		return w.Balance
	}
	return decimal.Zero
}

func (r *memWallets) entryCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// seed credits a farmer directly, bypassing the service.
func (r *memWallets) seed(farmerID uuid.UUID, amount decimal.Decimal, currency string) {
	_, err := r.Post(context.Background(), model.EntryParams{
		FarmerID: farmerID,
		Type:     model.EntryTypeDeposit,
		Amount:   amount,
		Currency: currency,
	}, currency)
	if err != nil {
		panic(err)
	}
}

// inlineTransactor runs fn without a real transaction.
type inlineTransactor struct{}

func (inlineTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// trackingTransactor reports whether a transaction is open.
type trackingTransactor struct {
	mu     sync.Mutex
	active bool
}

func (t *trackingTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	t.setActive(true)
	defer t.setActive(false)
	return fn(ctx)
}

func (t *trackingTransactor) setActive(v bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active = v
}

func (t *trackingTransactor) isActive() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

// txAwareSink records events, counts those published while a transaction was
// open and optionally fails every publish.
type txAwareSink struct {
	recordingSink
	tx       *trackingTransactor
	err      error
	duringTx int
}

func (s *txAwareSink) Publish(ctx context.Context, evt event.Event) error {
	if s.tx.isActive() {
		s.mu.Lock()
		s.duringTx++
		s.mu.Unlock()
	}
	_ = s.recordingSink.Publish(ctx, evt)
	return s.err
}

type memTips struct {
	mu        sync.Mutex
	tips      map[string]*model.Tip
	updateErr error
}

func newMemTips() *memTips {
	return &memTips{tips: map[string]*model.Tip{}}
}

func (r *memTips) Create(_ context.Context, tip *model.Tip) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *tip
	r.tips[tip.Reference] = &cp
	return nil
}

func (r *memTips) Update(_ context.Context, tip *model.Tip) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	if _, ok := r.tips[tip.Reference]; !ok {
		return repository.ErrNotFound
	}
	cp := *tip
	r.tips[tip.Reference] = &cp
	return nil
}

func (r *memTips) GetByReference(_ context.Context, reference string) (*model.Tip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tips {
		if t.Reference == reference || (t.ProcessorReference != "" && t.ProcessorReference == reference) {
			cp := *t
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memTips) LockByReference(ctx context.Context, reference string) (*model.Tip, error) {
	return r.GetByReference(ctx, reference)
}

type memPayments struct {
	mu       sync.Mutex
	payments map[uuid.UUID]*model.PaymentTransaction
}

func newMemPayments() *memPayments {
	return &memPayments{payments: map[uuid.UUID]*model.PaymentTransaction{}}
}

func (r *memPayments) Create(_ context.Context, p *model.PaymentTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.payments[p.ID] = &cp
	return nil
}

func (r *memPayments) GetByID(_ context.Context, id uuid.UUID) (*model.PaymentTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *memPayments) UpdateIfStatus(_ context.Context, p *model.PaymentTransaction, expected model.PaymentStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.payments[p.ID]
	if !ok || cur.Status != expected {
		return false, nil
	}
	cp := *p
	r.payments[p.ID] = &cp
	return true, nil
}

func (r *memPayments) ListByFarmer(_ context.Context, farmerID uuid.UUID, offset, limit int) ([]model.PaymentTransaction, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.PaymentTransaction
	for _, p := range r.payments {
		if p.FarmerID == farmerID {
			out = append(out, *p)
		}
	}
	total := int64(len(out))
	if offset >= len(out) {
		return nil, total, nil
	}
	if offset+limit < len(out) {
		out = out[:offset+limit]
	}
	return out[offset:], total, nil
}

type memPayouts struct {
	mu      sync.Mutex
	payouts map[uuid.UUID]*model.Payout
}

func newMemPayouts() *memPayouts {
	return &memPayouts{payouts: map[uuid.UUID]*model.Payout{}}
}

func (r *memPayouts) Create(_ context.Context, p *model.Payout) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.payouts[p.ID] = &cp
	return nil
}

func (r *memPayouts) GetByID(_ context.Context, id uuid.UUID) (*model.Payout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payouts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *memPayouts) UpdateIfStatus(ctx context.Context, p *model.Payout, expected model.PayoutStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return false, err
	}
	cur, ok := r.payouts[p.ID]
	if !ok || cur.Status != expected {
		return false, nil
	}
	cp := *p
	r.payouts[p.ID] = &cp
	return true, nil
}

func (r *memPayouts) ListByFarmer(_ context.Context, farmerID uuid.UUID, offset, limit int) ([]model.Payout, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Payout
	for _, p := range r.payouts {
		if p.FarmerID == farmerID {
			out = append(out, *p)
		}
	}
	return out, int64(len(out)), nil
}

func (r *memPayouts) ListUnsettled(_ context.Context, limit int) ([]model.Payout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Payout
	for _, p := range r.payouts {
		if p.Status == model.PayoutStatusProcessing || p.NeedsReconciliation {
			out = append(out, *p)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

type memWebhookEvents struct {
	mu     sync.Mutex
	events map[string]*model.WebhookEvent
}

func newMemWebhookEvents() *memWebhookEvents {
	return &memWebhookEvents{events: map[string]*model.WebhookEvent{}}
}

func (r *memWebhookEvents) Record(_ context.Context, evt *model.WebhookEvent) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.events[evt.EventKey]; ok {
		cur.Deliveries++
		return false, nil
	}
	cp := *evt
	r.events[evt.EventKey] = &cp
	return true, nil
}

func (r *memWebhookEvents) MarkStatus(_ context.Context, key string, status model.WebhookEventStatus, errMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.events[key]
	if !ok {
		return repository.ErrNotFound
	}
	cur.Status = status
	cur.Error = errMsg
	return nil
}

func (r *memWebhookEvents) get(key string) *model.WebhookEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[key]
}

// directory serves farmers, lots and assessments from maps.
type directory struct {
	farmers     map[uuid.UUID]*model.Farmer
	lots        map[uuid.UUID]*model.Lot
	assessments map[uuid.UUID][]model.QualityAssessment
}

func newDirectory() *directory {
	return &directory{
		farmers:     map[uuid.UUID]*model.Farmer{},
		lots:        map[uuid.UUID]*model.Lot{},
		assessments: map[uuid.UUID][]model.QualityAssessment{},
	}
}

func (d *directory) addFarmer(phone string, certs ...string) *model.Farmer {
	f := &model.Farmer{ID: uuid.New(), Name: "Grace Nakato", Phone: phone, Certifications: certs}
	d.farmers[f.ID] = f
	return f
}

func (d *directory) addLot(farmerID uuid.UUID, code string) *model.Lot {
	l := &model.Lot{ID: uuid.New(), FarmerID: farmerID, Code: code}
	d.lots[l.ID] = l
	return l
}

func (d *directory) GetFarmer(_ context.Context, id uuid.UUID) (*model.Farmer, error) {
	f, ok := d.farmers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return f, nil
}

func (d *directory) GetLot(_ context.Context, id uuid.UUID) (*model.Lot, error) {
	l, ok := d.lots[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return l, nil
}

func (d *directory) RecentAssessments(_ context.Context, lotID uuid.UUID, limit int) ([]model.QualityAssessment, error) {
	a := d.assessments[lotID]
	if len(a) > limit {
		a = a[:limit]
	}
	return a, nil
}

// recordingSink keeps every published event.
type recordingSink struct {
	mu     sync.Mutex
	events []event.Event
}

func (s *recordingSink) Publish(_ context.Context, evt event.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, evt)
	return nil
}

func (s *recordingSink) ofType(evtType string) []event.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []event.Event
	for _, e := range s.events {
		if e.Type == evtType {
			out = append(out, e)
		}
	}
	return out
}

// MockPayoutRail is a mock implementation of provider.PayoutRail
type MockPayoutRail struct {
	mock.Mock
}

func (m *MockPayoutRail) Name() string { return "mock" }

func (m *MockPayoutRail) SendPayout(ctx context.Context, req *provider.PayoutRequest) (*provider.PayoutResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.PayoutResult), args.Error(1)
}

func (m *MockPayoutRail) PayoutStatus(ctx context.Context, reference string) (*provider.PayoutResult, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.PayoutResult), args.Error(1)
}

// MockCheckoutProvider is a mock implementation of provider.CheckoutProvider
type MockCheckoutProvider struct {
	mock.Mock
}

func (m *MockCheckoutProvider) Name() provider.ProviderType { return provider.ProviderTypeHosted }

func (m *MockCheckoutProvider) CreateCheckout(ctx context.Context, req *provider.CheckoutRequest) (*provider.CheckoutSession, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.CheckoutSession), args.Error(1)
}

func (m *MockCheckoutProvider) ParseWebhook(payload []byte, headers http.Header) (*provider.WebhookEvent, error) {
	args := m.Called(payload, headers)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.WebhookEvent), args.Error(1)
}

// reverseCipher is a reversible stand-in for the AES service.
type reverseCipher struct{}

func (reverseCipher) Encrypt(plaintext string) (string, string, error) {
	r := []rune(plaintext)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r), "iv", nil
}

func (c reverseCipher) Decrypt(ciphertext, _ string) (string, error) {
	out, _, err := c.Encrypt(ciphertext)
	return out, err
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func hasPrefix(s, prefix string) bool {
	return strings.HasPrefix(s, prefix)
}
