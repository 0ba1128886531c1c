package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"vaquita/internal/domain"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

func cloneEvent(e *domain.Event) *domain.Event {
	c := *e
	c.Participants = append([]domain.Participant(nil), e.Participants...)
	c.Attachments = append([]domain.Attachment{}, e.Attachments...)
	return &c
}

// fakeEventRepo is an in-memory EventRepository for tests.
type fakeEventRepo struct {
	mu         sync.Mutex
	byID       map[string]*domain.Event
	createErr  error
	getErr     error
	closeErr   error
	reopenErr  error
	claimErr   error
	countErr   error
	createCall int
	reopened   []string
	// ledger, when set, has its settlement for an event reverted by Reopen.
	ledger *fakeBalanceRepo
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{byID: make(map[string]*domain.Event)}
}

func (f *fakeEventRepo) put(e *domain.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[e.ID] = cloneEvent(e)
}

func (f *fakeEventRepo) get(id string) *domain.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.byID[id]
	if !ok {
		return nil
	}
	return cloneEvent(e)
}

func (f *fakeEventRepo) Create(ctx context.Context, e *domain.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCall++
	if f.createErr != nil {
		return f.createErr
	}
	if e.ID == "" {
		return fmt.Errorf("missing id")
	}
	f.byID[e.ID] = cloneEvent(e)
	return nil
}

func (f *fakeEventRepo) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if e := f.get(id); e != nil {
		return e, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeEventRepo) Close(ctx context.Context, id, payerID, paymentMethod string, paidAt time.Time) (*domain.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closeErr != nil {
		return nil, f.closeErr
	}
	e, ok := f.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if e.Status != domain.StatusOpen {
		return nil, domain.ErrInvalidState
	}
	e.Status = domain.StatusClosed
	e.PayerID = payerID
	if payerID == "" {
		e.PayerID = e.CreatorID
	}
	e.PaymentMethod = paymentMethod
	e.PaidAt = &paidAt
	e.UpdatedAt = paidAt
	return cloneEvent(e), nil
}

func (f *fakeEventRepo) Reopen(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reopenErr != nil {
		return f.reopenErr
	}
	e, ok := f.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	e.Status = domain.StatusOpen
	e.PayerID = ""
	e.PaidAt = nil
	e.SettledAt = nil
	if f.ledger != nil {
		f.ledger.revert(id)
	}
	f.reopened = append(f.reopened, id)
	return nil
}

func (f *fakeEventRepo) ClaimSuccessor(ctx context.Context, id, nextID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.claimErr != nil {
		return false, f.claimErr
	}
	e, ok := f.byID[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if e.NextEventID != "" {
		return false, nil
	}
	e.NextEventID = nextID
	return true, nil
}

func (f *fakeEventRepo) ReleaseSuccessor(ctx context.Context, id, nextID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e, ok := f.byID[id]; ok && e.NextEventID == nextID {
		e.NextEventID = ""
	}
	return nil
}

func (f *fakeEventRepo) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeEventRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byID)
}

func (f *fakeEventRepo) CountAttachments(ctx context.Context, id string) (int, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	e := f.get(id)
	if e == nil {
		return 0, domain.ErrNotFound
	}
	return len(e.Attachments), nil
}

// join appends p if absent and rebalances fractions. Callers hold no lock.
func (f *fakeEventRepo) join(eventID string, p domain.Participant, at time.Time) ([]domain.Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.byID[eventID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if e.Status != domain.StatusOpen {
		return nil, domain.ErrInvalidState
	}
	for _, existing := range e.Participants {
		if existing.UserID == p.UserID {
			return nil, domain.ErrAlreadyMember
		}
	}
	e.Participants = domain.SplitEqually(append(e.Participants, p))
	e.UpdatedAt = at
	return append([]domain.Participant(nil), e.Participants...), nil
}

// fakeBalanceRepo is an in-memory BalanceRepository with all-or-nothing settlement.
type fakeBalanceRepo struct {
	mu       sync.Mutex
	byKey    map[string]*domain.Balance
	settled  map[string]bool
	applied  map[string][]domain.Accrual
	applyErr error
	listErr  error
}

func newFakeBalanceRepo() *fakeBalanceRepo {
	return &fakeBalanceRepo{
		byKey:   make(map[string]*domain.Balance),
		settled: make(map[string]bool),
		applied: make(map[string][]domain.Accrual),
	}
}

func (f *fakeBalanceRepo) ApplySettlement(ctx context.Context, eventID string, accruals []domain.Accrual, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.applyErr != nil {
		return f.applyErr
	}
	if f.settled[eventID] {
		return domain.ErrAlreadySettled
	}
	f.settled[eventID] = true
	f.applied[eventID] = append([]domain.Accrual(nil), accruals...)
	for _, a := range accruals {
		b, ok := f.byKey[a.Key.String()]
		if !ok {
			b = domain.NewBalance(a.Key, at)
			f.byKey[a.Key.String()] = b
		}
		b.Apply(a, at)
	}
	return nil
}

// revert undoes the settlement of eventID and clears its marker.
func (f *fakeBalanceRepo) revert(eventID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.applied[eventID] {
		if b, ok := f.byKey[a.Key.String()]; ok {
			b.Saldo = b.Saldo.Sub(a.Delta)
		}
	}
	delete(f.applied, eventID)
	delete(f.settled, eventID)
}

func (f *fakeBalanceRepo) ListByUser(ctx context.Context, userID string, params domain.PaginationParams) ([]*domain.Balance, int, error) {
	if f.listErr != nil {
		return nil, 0, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Balance
	for _, b := range f.byKey {
		if b.UserA == userID || b.UserB == userID {
			c := *b
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	total := len(out)
	start := params.Offset()
	if start > total {
		start = total
	}
	end := start + params.PageSize
	if end > total {
		end = total
	}
	return out[start:end], total, nil
}

func (f *fakeBalanceRepo) balance(x, y string, c domain.Currency) *domain.Balance {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.byKey[domain.NewBalanceKey(x, y, c).String()]
	if !ok {
		return nil
	}
	cp := *b
	return &cp
}

// fakeInvitationRepo is an in-memory InvitationRepository. Redeem is
// serialized so it behaves like the atomic store operation.
type fakeInvitationRepo struct {
	mu        sync.Mutex
	byToken   map[string]*domain.Invitation
	events    *fakeEventRepo
	createErr error
	redeemErr error
}

func newFakeInvitationRepo(events *fakeEventRepo) *fakeInvitationRepo {
	return &fakeInvitationRepo{byToken: make(map[string]*domain.Invitation), events: events}
}

func (f *fakeInvitationRepo) Create(ctx context.Context, inv *domain.Invitation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	c := *inv
	f.byToken[inv.Token] = &c
	return nil
}

func (f *fakeInvitationRepo) GetByToken(ctx context.Context, token string) (*domain.Invitation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.byToken[token]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := *inv
	return &c, nil
}

func (f *fakeInvitationRepo) Redeem(ctx context.Context, req domain.JoinRequest) ([]domain.Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.redeemErr != nil {
		return nil, f.redeemErr
	}
	inv, ok := f.byToken[req.Token]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if err := inv.Usable(req.At); err != nil {
		return nil, err
	}
	participants, err := f.events.join(req.EventID, req.Participant, req.At)
	if err != nil {
		return nil, err
	}
	inv.Uses++
	return participants, nil
}

func (f *fakeInvitationRepo) uses(token string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byToken[token].Uses
}

// fakeUserRepo is an in-memory UserRepository.
type fakeUserRepo struct {
	byID map[string]*domain.User
	err  error
}

func newFakeUserRepo(users ...*domain.User) *fakeUserRepo {
	f := &fakeUserRepo{byID: make(map[string]*domain.User)}
	for _, u := range users {
		f.byID[u.ID] = u
	}
	return f
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return u, nil
}

type sentNotification struct {
	userID string
	n      domain.Notification
}

// fakeNotifier records every notification.
type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (f *fakeNotifier) Send(ctx context.Context, userID string, n domain.Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentNotification{userID: userID, n: n})
}

func (f *fakeNotifier) recipients() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, s := range f.sent {
		out = append(out, s.userID)
	}
	return out
}

// fakeAudit records entries synchronously.
type fakeAudit struct {
	mu      sync.Mutex
	entries []domain.AuditEntry
}

func (f *fakeAudit) Log(e domain.AuditEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, e)
}

func (f *fakeAudit) ofType(t string) []domain.AuditEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.AuditEntry
	for _, e := range f.entries {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// fakeTokens yields tok-1, tok-2, ...
type fakeTokens struct {
	mu  sync.Mutex
	n   int
	err error
}

func (f *fakeTokens) Generate() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.n++
	return fmt.Sprintf("tok-%d", f.n), nil
}

// fakeStorage is an in-memory FileStorage.
type fakeStorage struct {
	paths     map[string]bool
	deleted   []string
	deleteErr error
	listErr   error
}

func newFakeStorage(paths ...string) *fakeStorage {
	f := &fakeStorage{paths: make(map[string]bool)}
	for _, p := range paths {
		f.paths[p] = true
	}
	return f
}

func (f *fakeStorage) Delete(ctx context.Context, path string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.paths, path)
	f.deleted = append(f.deleted, path)
	return nil
}

func (f *fakeStorage) List(ctx context.Context, prefix string) ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []string
	for p := range f.paths {
		if strings.HasPrefix(p, prefix) {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out, nil
}

// fakePushTokenRepo is an in-memory PushTokenRepository.
type fakePushTokenRepo struct {
	byUser    map[string]string
	getErr    error
	upsertErr error
}

func (f *fakePushTokenRepo) Upsert(ctx context.Context, userID, token string) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	if f.byUser == nil {
		f.byUser = make(map[string]string)
	}
	f.byUser[userID] = token
	return nil
}

func (f *fakePushTokenRepo) GetByUserID(ctx context.Context, userID string) (string, error) {
	if f.getErr != nil {
		return "", f.getErr
	}
	t, ok := f.byUser[userID]
	if !ok {
		return "", domain.ErrNotFound
	}
	return t, nil
}

// fakePushSender records deliveries.
type fakePushSender struct {
	endpoints []string
	err       error
}

func (f *fakePushSender) Send(ctx context.Context, endpoint string, n domain.Notification) error {
	if f.err != nil {
		return f.err
	}
	f.endpoints = append(f.endpoints, endpoint)
	return nil
}

// fakeEmailService records notification emails.
type fakeEmailService struct {
	sent []*domain.NotificationEmailData
	err  error
}

func (f *fakeEmailService) SendNotification(ctx context.Context, data *domain.NotificationEmailData) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, data)
	return nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
