package controllers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"vaquita/internal/delivery/http/helpers"
	"vaquita/internal/domain"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

type fakeEventService struct {
	createErr  error
	getErr     error
	closeErr   error
	event      *domain.Event
	lastCreate domain.CreateEventInput
	lastGetID  string
	lastCaller string
	lastPayer  string
	lastMethod string
}

func (f *fakeEventService) CreateEvent(ctx context.Context, in domain.CreateEventInput) (*domain.Event, error) {
	f.lastCreate = in
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &domain.Event{ID: "ev-1", Token: "abc123defg", Title: in.Title, CreatorID: in.CreatorID}, nil
}

func (f *fakeEventService) GetEvent(ctx context.Context, eventID, callerID string) (*domain.Event, error) {
	f.lastGetID, f.lastCaller = eventID, callerID
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.event, nil
}

func (f *fakeEventService) CloseEvent(ctx context.Context, eventID, callerID, payerID, paymentMethod string) (*domain.Event, error) {
	f.lastGetID, f.lastCaller, f.lastPayer, f.lastMethod = eventID, callerID, payerID, paymentMethod
	if f.closeErr != nil {
		return nil, f.closeErr
	}
	return f.event, nil
}

func (f *fakeEventService) HandleEventWrite(ctx context.Context, before, after *domain.Event) error {
	return nil
}

func (f *fakeEventService) SpawnNext(ctx context.Context, original *domain.Event) (*domain.Event, error) {
	return nil, nil
}

type fakeInvitationService struct {
	res       *domain.JoinResult
	err       error
	lastToken string
	lastUser  string
}

func (f *fakeInvitationService) Redeem(ctx context.Context, token, requesterID string) (*domain.JoinResult, error) {
	f.lastToken, f.lastUser = token, requesterID
	return f.res, f.err
}

type fakeBalanceService struct {
	balances   []*domain.Balance
	total      int
	err        error
	lastUser   string
	lastParams domain.PaginationParams
}

func (f *fakeBalanceService) Settle(ctx context.Context, event *domain.Event) ([]domain.Share, error) {
	return nil, nil
}

func (f *fakeBalanceService) ListForUser(ctx context.Context, userID string, params domain.PaginationParams) ([]*domain.Balance, int, error) {
	f.lastUser, f.lastParams = userID, params
	return f.balances, f.total, f.err
}

type fakePushTokenService struct {
	err       error
	lastUser  string
	lastToken string
}

func (f *fakePushTokenService) Register(ctx context.Context, userID, token string) error {
	f.lastUser, f.lastToken = userID, token
	return f.err
}

type fakeAttachmentValidator struct {
	verdict domain.Verdict
	err     error
	last    domain.FileObject
}

func (f *fakeAttachmentValidator) Validate(ctx context.Context, obj domain.FileObject) (domain.Verdict, error) {
	f.last = obj
	return f.verdict, f.err
}

// decodeEnvelope decodes the response envelope and, when data is non-nil,
// re-decodes the data field into it.
func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder, data any) helpers.APIResponse {
	t.Helper()
	var envelope helpers.APIResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&envelope), "response must be a JSON envelope")
	if data != nil && envelope.Data != nil {
		raw, err := json.Marshal(envelope.Data)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, data))
	}
	return envelope
}
