package application

import (
	"context"
	"errors"
	"net/url"
	"sort"
	"sync"
	"time"

	"shopify-support-chat/internal/domain"
	"shopify-support-chat/internal/ports"
)

type fakeProvider struct {
	mu            sync.Mutex
	exchangeCalls int
	lastCode      string
	grant         *ports.TokenGrant
	exchangeErr   error
	signatureOK   bool
}

func (p *fakeProvider) AuthorizeURL(shop, state string) string {
	q := url.Values{}
	q.Set("client_id", "client-123")
	q.Set("state", state)
	return "https://" + shop + "/admin/oauth/authorize?" + q.Encode()
}

func (p *fakeProvider) ExchangeCode(ctx context.Context, shop, code string) (*ports.TokenGrant, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.exchangeCalls++
	p.lastCode = code
	if p.exchangeErr != nil {
		return nil, p.exchangeErr
	}
	return p.grant, nil
}

func (p *fakeProvider) VerifyCallback(url.Values) bool { return p.signatureOK }

func (p *fakeProvider) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exchangeCalls
}

type fakeStateStore struct {
	mu       sync.Mutex
	attempts map[string]*domain.AuthorizationAttempt
	sessions map[string]string
	now      func() time.Time
}

func newFakeStateStore() *fakeStateStore {
	return &fakeStateStore{
		attempts: map[string]*domain.AuthorizationAttempt{},
		sessions: map[string]string{},
		now:      time.Now,
	}
}

func (s *fakeStateStore) Save(ctx context.Context, a *domain.AuthorizationAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.SessionID != "" {
		if prev, ok := s.sessions[a.SessionID]; ok {
			delete(s.attempts, prev)
		}
		s.sessions[a.SessionID] = a.State
	}
	c := *a
	s.attempts[a.State] = &c
	return nil
}

func (s *fakeStateStore) Consume(ctx context.Context, state string) (*domain.AuthorizationAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attempts[state]
	if !ok {
		return nil, nil
	}
	delete(s.attempts, state)
	if a.Expired(s.now()) {
		return nil, nil
	}
	return a, nil
}

func (s *fakeStateStore) only() *domain.AuthorizationAttempt {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.attempts {
		return a
	}
	return nil
}

type fakeShopStore struct {
	mu      sync.Mutex
	records map[string]*domain.ShopRecord
	putErr  error
}

func newFakeShopStore() *fakeShopStore {
	return &fakeShopStore{records: map[string]*domain.ShopRecord{}}
}

func (s *fakeShopStore) Put(ctx context.Context, r *domain.ShopRecord) error {
	if s.putErr != nil {
		return s.putErr
	}
	if r.AccessToken == "" {
		return domain.ErrEmptyAccessToken
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[r.ShopDomain] = r.Clone()
	return nil
}

func (s *fakeShopStore) Get(ctx context.Context, shop string) (*domain.ShopRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records[shop].Clone(), nil
}

func (s *fakeShopStore) List(ctx context.Context) ([]*domain.ShopRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.ShopRecord, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ShopDomain < out[j].ShopDomain })
	return out, nil
}

type fakeStorefront struct {
	mu        sync.Mutex
	shopCalls int
	err       error
	name      string

	// When set, GetShop signals started and waits for release.
	started chan struct{}
	release chan struct{}
}

func (f *fakeStorefront) GetShop(ctx context.Context, shop, token string) (*ports.StorefrontShop, error) {
	f.mu.Lock()
	f.shopCalls++
	name := f.name
	started, release := f.started, f.release
	f.mu.Unlock()
	if started != nil {
		started <- struct{}{}
		<-release
	}
	if name == "" {
		name = "My Store"
	}
	if f.err != nil {
		return nil, f.err
	}
	return &ports.StorefrontShop{Name: name, PrimaryDomain: "mystore.com", Currency: "EUR"}, nil
}

func (f *fakeStorefront) ListProducts(ctx context.Context, shop, token string, limit int) ([]ports.StorefrontProduct, error) {
	if f.err != nil {
		return nil, f.err
	}
	stock := 4
	return []ports.StorefrontProduct{{Title: "Mug", Price: "12.50", Stock: &stock}, {Title: "Sticker"}}, nil
}

func (f *fakeStorefront) setName(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.name = name
}

func (f *fakeStorefront) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.shopCalls
}

type fakeCompletion struct {
	mu       sync.Mutex
	reply    string
	err      error
	messages []domain.ChatMessage
}

func (f *fakeCompletion) Complete(ctx context.Context, messages []domain.ChatMessage) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = messages
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

type recordingMetrics struct {
	mu          sync.Mutex
	transitions []domain.FlowState
	outcomes    []string
	chat        []string
	exchanges   int
}

func (m *recordingMetrics) FlowTransition(s domain.FlowState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitions = append(m.transitions, s)
}

func (m *recordingMetrics) OAuthOutcome(o string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, o)
}

func (m *recordingMetrics) ObserveExchange(time.Duration, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exchanges++
}

func (m *recordingMetrics) ChatOutcome(o string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chat = append(m.chat, o)
}

var errBoom = errors.New("boom")
