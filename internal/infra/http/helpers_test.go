package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"backoffice/internal/config"
	"backoffice/internal/domain"
	"backoffice/internal/infra/auth/rbac"
	"backoffice/internal/infra/cachemem"
	"backoffice/internal/infra/ratelimit"
	"backoffice/internal/infra/tokens"
	"backoffice/internal/usecase"

	"github.com/gin-gonic/gin"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type plainHasher struct{}

func (plainHasher) Hash(secret []byte) (string, error) { return "h:" + string(secret), nil }

func (plainHasher) Compare(hash string, secret []byte) error {
	if hash != "h:"+string(secret) {
		return domain.ErrInvalidCredentials
	}
	return nil
}

type staticValidator struct{ code string }

func (v staticValidator) Validate(secret, code string) bool {
	return code != "" && code == v.code
}

type fakeBrokers struct {
	mu      sync.Mutex
	brokers map[string]*domain.Broker
}

func newFakeBrokers() *fakeBrokers {
	return &fakeBrokers{brokers: make(map[string]*domain.Broker)}
}

func (f *fakeBrokers) add(id, slug, host string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.brokers[id] = &domain.Broker{ID: id, Slug: slug, Domain: host, Status: domain.BrokerActive}
}

func (f *fakeBrokers) FindActiveByHostCandidate(_ context.Context, candidate string) (*domain.Broker, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, broker := range f.brokers {
		if broker.Status != domain.BrokerActive {
			continue
		}
		if broker.Slug == candidate || strings.Contains(broker.Domain, candidate) {
			copied := *broker
			return &copied, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeBrokers) Create(_ context.Context, broker *domain.Broker) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if broker.ID == "" {
		broker.ID = "broker-" + broker.Slug
	}
	if broker.Status == "" {
		broker.Status = domain.BrokerActive
	}
	copied := *broker
	f.brokers[broker.ID] = &copied
	return nil
}

func (f *fakeBrokers) GetByID(_ context.Context, id string) (*domain.Broker, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	broker, ok := f.brokers[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *broker
	return &copied, nil
}

func (f *fakeBrokers) List(_ context.Context) ([]domain.Broker, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Broker, 0, len(f.brokers))
	for _, broker := range f.brokers {
		out = append(out, *broker)
	}
	return out, nil
}

func (f *fakeBrokers) UpdateStatus(_ context.Context, id string, status domain.BrokerStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	broker, ok := f.brokers[id]
	if !ok {
		return domain.ErrNotFound
	}
	broker.Status = status
	return nil
}

type fakeUsers struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: make(map[string]*domain.User)}
}

func (f *fakeUsers) add(user domain.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := user
	f.users[user.ID] = &copied
}

func (f *fakeUsers) FindByEmail(_ context.Context, brokerID, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.BrokerID == brokerID && user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeUsers) FindByID(_ context.Context, id string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (f *fakeUsers) Create(_ context.Context, user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if user.ID == "" {
		user.ID = "user-" + user.Email
	}
	copied := *user
	f.users[user.ID] = &copied
	return nil
}

func (f *fakeUsers) ListByBroker(_ context.Context, brokerID string, roles ...domain.Role) ([]domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.User
	for _, user := range f.users {
		if user.BrokerID != brokerID {
			continue
		}
		if len(roles) > 0 {
			match := false
			for _, role := range roles {
				if user.Role == role {
					match = true
				}
			}
			if !match {
				continue
			}
		}
		out = append(out, *user)
	}
	return out, nil
}

func (f *fakeUsers) mutate(id string, fn func(*domain.User)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	fn(user)
	return nil
}

func (f *fakeUsers) UpdatePassword(_ context.Context, id, hash string) error {
	return f.mutate(id, func(u *domain.User) { u.PasswordHash = hash })
}

func (f *fakeUsers) UpdateStatus(_ context.Context, id string, status domain.UserStatus) error {
	return f.mutate(id, func(u *domain.User) { u.Status = status })
}

func (f *fakeUsers) UpdateKYCStatus(_ context.Context, id string, status domain.KYCStatus) error {
	return f.mutate(id, func(u *domain.User) { u.KYCStatus = status })
}

func (f *fakeUsers) UpdateTwoFactor(_ context.Context, id, secret string, enabled bool, hashes []string) error {
	return f.mutate(id, func(u *domain.User) {
		u.TwoFactorSecret = secret
		u.TwoFactorEnabled = enabled
		u.BackupCodeHashes = hashes
	})
}

type memSessions struct {
	mu   sync.Mutex
	rows map[string]domain.Session
	now  func() time.Time
}

func newMemSessions(now func() time.Time) *memSessions {
	return &memSessions{rows: make(map[string]domain.Session), now: now}
}

func (s *memSessions) Create(_ context.Context, session domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[session.Token] = session
	return nil
}

func (s *memSessions) FindLive(_ context.Context, token string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.rows[token]
	if !ok || !session.ExpiresAt.After(s.now()) {
		return nil, domain.ErrSessionRevoked
	}
	copied := session
	return &copied, nil
}

func (s *memSessions) DeleteByToken(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, token)
	return nil
}

func (s *memSessions) DeleteAllForUser(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for token, session := range s.rows {
		if session.UserID == userID {
			delete(s.rows, token)
		}
	}
	return nil
}

func (s *memSessions) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

type fakeAccounts struct {
	mu       sync.Mutex
	accounts map[string]*domain.TradingAccount
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{accounts: make(map[string]*domain.TradingAccount)}
}

func (f *fakeAccounts) Create(_ context.Context, account *domain.TradingAccount) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if account.ID == "" {
		account.ID = "acct-" + account.UserID
	}
	if account.Status == "" {
		account.Status = domain.AccountActive
	}
	copied := *account
	f.accounts[account.ID] = &copied
	return nil
}

func (f *fakeAccounts) GetByID(_ context.Context, id string) (*domain.TradingAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *account
	return &copied, nil
}

func (f *fakeAccounts) ListByUser(_ context.Context, userID string) ([]domain.TradingAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.TradingAccount
	for _, account := range f.accounts {
		if account.UserID == userID {
			out = append(out, *account)
		}
	}
	return out, nil
}

func (f *fakeAccounts) ListByBroker(_ context.Context, brokerID string) ([]domain.TradingAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.TradingAccount
	for _, account := range f.accounts {
		if account.BrokerID == brokerID {
			out = append(out, *account)
		}
	}
	return out, nil
}

func (f *fakeAccounts) UpdateStatus(_ context.Context, id string, status domain.AccountStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[id]
	if !ok {
		return domain.ErrNotFound
	}
	account.Status = status
	return nil
}

func (f *fakeAccounts) AdjustBalance(_ context.Context, id string, delta float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[id]
	if !ok {
		return domain.ErrNotFound
	}
	account.Balance += delta
	return nil
}

type fakeTransactions struct {
	mu  sync.Mutex
	txs map[string]*domain.Transaction
}

func newFakeTransactions() *fakeTransactions {
	return &fakeTransactions{txs: make(map[string]*domain.Transaction)}
}

func (f *fakeTransactions) Create(_ context.Context, tx *domain.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if tx.ID == "" {
		tx.ID = "tx-" + tx.AccountID
	}
	if tx.Status == "" {
		tx.Status = domain.TxPending
	}
	copied := *tx
	f.txs[tx.ID] = &copied
	return nil
}

func (f *fakeTransactions) GetByID(_ context.Context, id string) (*domain.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tx, ok := f.txs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *tx
	return &copied, nil
}

func (f *fakeTransactions) ListByUser(_ context.Context, userID string) ([]domain.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Transaction
	for _, tx := range f.txs {
		if tx.UserID == userID {
			out = append(out, *tx)
		}
	}
	return out, nil
}

func (f *fakeTransactions) ListByBroker(_ context.Context, brokerID string, status domain.TransactionStatus) ([]domain.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Transaction
	for _, tx := range f.txs {
		if tx.BrokerID != brokerID {
			continue
		}
		if status != "" && tx.Status != status {
			continue
		}
		out = append(out, *tx)
	}
	return out, nil
}

func (f *fakeTransactions) Review(_ context.Context, id string, status domain.TransactionStatus, note string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	tx, ok := f.txs[id]
	if !ok || tx.Status != domain.TxPending {
		return domain.ErrNotFound
	}
	tx.Status = status
	tx.Note = note
	return nil
}

type fakeKYC struct {
	mu   sync.Mutex
	docs map[string]*domain.KYCDocument
}

func newFakeKYC() *fakeKYC {
	return &fakeKYC{docs: make(map[string]*domain.KYCDocument)}
}

func (f *fakeKYC) Create(_ context.Context, doc *domain.KYCDocument) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if doc.ID == "" {
		doc.ID = "doc-" + doc.UserID
	}
	if doc.Status == "" {
		doc.Status = domain.DocPending
	}
	copied := *doc
	f.docs[doc.ID] = &copied
	return nil
}

func (f *fakeKYC) GetByID(_ context.Context, id string) (*domain.KYCDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *doc
	return &copied, nil
}

func (f *fakeKYC) ListByUser(_ context.Context, userID string) ([]domain.KYCDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.KYCDocument
	for _, doc := range f.docs {
		if doc.UserID == userID {
			out = append(out, *doc)
		}
	}
	return out, nil
}

func (f *fakeKYC) ListPendingByBroker(_ context.Context, brokerID string) ([]domain.KYCDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.KYCDocument
	for _, doc := range f.docs {
		if doc.BrokerID == brokerID && doc.Status == domain.DocPending {
			out = append(out, *doc)
		}
	}
	return out, nil
}

func (f *fakeKYC) Review(_ context.Context, id string, status domain.DocumentStatus, note string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok || doc.Status != domain.DocPending {
		return domain.ErrNotFound
	}
	doc.Status = status
	doc.ReviewNote = note
	return nil
}

type fakeTickets struct {
	mu      sync.Mutex
	tickets map[string]*domain.Ticket
	replies map[string][]domain.TicketReply
}

func newFakeTickets() *fakeTickets {
	return &fakeTickets{
		tickets: make(map[string]*domain.Ticket),
		replies: make(map[string][]domain.TicketReply),
	}
}

func (f *fakeTickets) Create(_ context.Context, ticket *domain.Ticket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ticket.ID == "" {
		ticket.ID = "ticket-" + ticket.Subject
	}
	if ticket.Status == "" {
		ticket.Status = domain.TicketOpen
	}
	copied := *ticket
	f.tickets[ticket.ID] = &copied
	return nil
}

func (f *fakeTickets) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ticket, ok := f.tickets[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *ticket
	return &copied, nil
}

func (f *fakeTickets) ListByUser(_ context.Context, userID string) ([]domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Ticket
	for _, ticket := range f.tickets {
		if ticket.UserID == userID {
			out = append(out, *ticket)
		}
	}
	return out, nil
}

func (f *fakeTickets) ListByBroker(_ context.Context, brokerID string) ([]domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Ticket
	for _, ticket := range f.tickets {
		if ticket.BrokerID == brokerID {
			out = append(out, *ticket)
		}
	}
	return out, nil
}

func (f *fakeTickets) AddReply(_ context.Context, reply *domain.TicketReply) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ticket, ok := f.tickets[reply.TicketID]
	if !ok {
		return domain.ErrNotFound
	}
	if reply.ID == "" {
		reply.ID = "reply-" + reply.TicketID
	}
	f.replies[reply.TicketID] = append(f.replies[reply.TicketID], *reply)
	if reply.FromStaff {
		ticket.Status = domain.TicketAnswered
	} else {
		ticket.Status = domain.TicketOpen
	}
	return nil
}

func (f *fakeTickets) ListReplies(_ context.Context, ticketID string) ([]domain.TicketReply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.TicketReply(nil), f.replies[ticketID]...), nil
}

func (f *fakeTickets) Close(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ticket, ok := f.tickets[id]
	if !ok {
		return domain.ErrNotFound
	}
	ticket.Status = domain.TicketClosed
	return nil
}

type fakeAuditLog struct {
	mu     sync.Mutex
	events []domain.AuditEvent
}

func (f *fakeAuditLog) Append(_ context.Context, event domain.AuditEvent) (domain.AuditEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return event, nil
}

func (f *fakeAuditLog) ListByBroker(_ context.Context, brokerID string, limit int) ([]domain.AuditEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.AuditEvent
	for _, event := range f.events {
		if event.BrokerID == brokerID {
			out = append(out, event)
		}
	}
	return out, nil
}

func (f *fakeAuditLog) byAction(action string) []domain.AuditEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.AuditEvent
	for _, event := range f.events {
		if event.Action == action {
			out = append(out, event)
		}
	}
	return out
}

type testEnv struct {
	server   *Server
	clock    *testClock
	tokens   *tokens.Provider
	brokers  *fakeBrokers
	users    *fakeUsers
	sessions *memSessions
	accounts *fakeAccounts
	txs      *fakeTransactions
	kyc      *fakeKYC
	tickets  *fakeTickets
	audit    *fakeAuditLog
}

const (
	testBrokerID  = "broker-1"
	testBrokerTwo = "broker-2"
)

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	clock := newTestClock()
	provider := tokens.NewProvider("test-secret", 24*time.Hour, 5*time.Minute, 30*time.Minute).WithClock(clock.Now)

	brokers := newFakeBrokers()
	brokers.add(testBrokerID, "broker1", "broker1.example.com")
	brokers.add(testBrokerTwo, "primary", "primary.example.com")

	users := newFakeUsers()
	sessions := newMemSessions(clock.Now)
	accounts := newFakeAccounts()
	txs := newFakeTransactions()
	kyc := newFakeKYC()
	tickets := newFakeTickets()
	audit := &fakeAuditLog{}

	hasher := plainHasher{}
	validator := staticValidator{code: "246810"}

	gate := &usecase.Gate{Verifier: provider, Sessions: sessions, Roles: rbac.NewAuthorizer()}
	login := &usecase.Login{Users: users, Sessions: sessions, Tokens: provider, Hasher: hasher, TwoFactor: validator}

	cfg := config.Config{
		DefaultBrokerSlug: "primary",
		RateLimit: config.RateLimitConfig{
			Requests: 5,
			Window:   time.Minute,
		},
	}
	limiter := ratelimit.NewMemoryLimiter(ratelimit.MemoryLimiterConfig{Now: clock.Now})

	server := NewServerWithDeps(cfg, ServerDeps{
		Gate:           gate,
		Login:          login,
		Register:       &usecase.Register{Users: users, Hasher: hasher},
		ChangePassword: &usecase.ChangePassword{Users: users, Sessions: sessions, Hasher: hasher},
		ForceReset:     &usecase.ForcePasswordReset{Users: users, Sessions: sessions, Hasher: hasher},
		Forgot:         &usecase.ForgotPassword{Users: users, Tokens: provider},
		Reset:          &usecase.ResetPassword{Users: users, Sessions: sessions, Tokens: provider, Hasher: hasher},
		TwoFactor: &usecase.TwoFactorSetup{
			Users:     users,
			Secrets:   staticSecrets{},
			TwoFactor: validator,
			Hasher:    hasher,
			NewCodes:  func(n int) ([]string, error) { return []string{"backup-1"}, nil },
		},
		Brokers:      brokers,
		Users:        users,
		Sessions:     sessions,
		Accounts:     accounts,
		Transactions: txs,
		KYC:          kyc,
		Tickets:      tickets,
		Audit:        usecase.NewAuditEmitter(audit),
		AuditLog:     audit,
		RateLimiter:  limiter,
		BrokerCache:  cachemem.NewBrokerCache(time.Minute),
	})

	return &testEnv{
		server:   server,
		clock:    clock,
		tokens:   provider,
		brokers:  brokers,
		users:    users,
		sessions: sessions,
		accounts: accounts,
		txs:      txs,
		kyc:      kyc,
		tickets:  tickets,
		audit:    audit,
	}
}

type staticSecrets struct{}

func (staticSecrets) GenerateSecret(email string) (string, string, error) {
	return "secret", "otpauth://totp/test", nil
}

func (e *testEnv) seedUser(id string, role domain.Role, email string) domain.User {
	user := domain.User{
		ID:           id,
		BrokerID:     testBrokerID,
		Email:        email,
		PasswordHash: "h:password1",
		Role:         role,
		Status:       domain.UserActive,
		KYCStatus:    domain.KYCPending,
	}
	e.users.add(user)
	return user
}

// loginAs opens a real session the way the login flow does.
func (e *testEnv) loginAs(t *testing.T, user domain.User) string {
	t.Helper()
	token, expiresAt, err := e.tokens.IssueSession(user)
	if err != nil {
		t.Fatalf("issue session: %v", err)
	}
	err = e.sessions.Create(context.Background(), domain.Session{
		Token:     token,
		UserID:    user.ID,
		ExpiresAt: expiresAt,
		CreatedAt: e.clock.Now(),
	})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	return token
}

type requestOpts struct {
	host  string
	token string
	addr  string
	slug  string
}

func (e *testEnv) do(t *testing.T, method, path string, body any, opts requestOpts) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if opts.host != "" {
		req.Host = opts.host
	} else {
		req.Host = "broker1.example.com"
	}
	if opts.token != "" {
		req.Header.Set("Authorization", "Bearer "+opts.token)
	}
	if opts.addr != "" {
		req.RemoteAddr = opts.addr
	}
	if opts.slug != "" {
		req.Header.Set(headerBrokerSlug, opts.slug)
	}
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return out
}

func dataField(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	body := decodeBody(t, rec)
	data, ok := body["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected data object, got %q", rec.Body.String())
	}
	return data
}
