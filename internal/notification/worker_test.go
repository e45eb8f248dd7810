package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"predictive-maintenance-backend/config"
	"predictive-maintenance-backend/internal/model"
)

// mockSender is a mock implementation of the NotificationSender interface.
type mockSender struct {
	SendFunc func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// Send calls the mock SendFunc.
func (m *mockSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return m.SendFunc(payload, sub, options)
}

type mockStore struct {
	mu      sync.Mutex
	subs    map[int64][]model.PushSubscription
	deleted []string
}

func (m *mockStore) SubscriptionsForMachine(ctx context.Context, machineID int64) ([]model.PushSubscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.subs[machineID], nil
}

func (m *mockStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, endpoint)
	return nil
}

func (m *mockStore) Deleted() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.deleted...)
}

type recorder struct {
	mu      sync.Mutex
	results map[string][]error
}

func (r *recorder) AlertDelivered(channel string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.results == nil {
		r.results = make(map[string][]error)
	}
	r.results[channel] = append(r.results[channel], err)
}

func response(status int) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(bytes.NewBufferString(""))}
}

var vapid = &webpush.Options{VAPIDPublicKey: "pub", VAPIDPrivateKey: "priv"}

func TestWorkerPool_Dispatch(t *testing.T) {
	wp := NewWorkerPool(1, &mockStore{}, vapid, nil)

	assert.True(t, wp.Dispatch(Alert{MachineID: 123, Status: model.StatusWarning}))

	select {
	case job := <-wp.jobs:
		assert.Equal(t, int64(123), job.MachineID)
	case <-time.After(1 * time.Second):
		t.Fatal("timed out waiting for job to be dispatched")
	}
}

func TestWorkerPool_DispatchDropsWhenFull(t *testing.T) {
	wp := NewWorkerPool(1, &mockStore{}, vapid, nil)
	for i := 0; i < cap(wp.jobs); i++ {
		require.True(t, wp.Dispatch(Alert{MachineID: int64(i)}))
	}
	assert.False(t, wp.Dispatch(Alert{MachineID: 999}))
}

func TestWorkerPool_WebPush(t *testing.T) {
	store := &mockStore{subs: map[int64][]model.PushSubscription{
		101: {
			{Endpoint: "https://push.example/all", P256DH: "k1", Auth: "a1"},
			{Endpoint: "https://push.example/critical", P256DH: "k2", Auth: "a2", CriticalOnly: true},
		},
		102: {
			{Endpoint: "https://push.example/expired", P256DH: "k3", Auth: "a3"},
		},
	}}

	testCases := []struct {
		name          string
		alert         Alert
		status        int
		expectedSends []string
		expectDeleted []string
	}{
		{
			name:          "warning skips critical-only subscribers",
			alert:         Alert{MachineID: 101, MachineName: "press-1", Status: model.StatusWarning, Reason: "health 45"},
			status:        http.StatusCreated,
			expectedSends: []string{"https://push.example/all"},
		},
		{
			name:          "critical reaches everyone",
			alert:         Alert{MachineID: 101, MachineName: "press-1", Status: model.StatusCritical, Reason: "health 12"},
			status:        http.StatusCreated,
			expectedSends: []string{"https://push.example/all", "https://push.example/critical"},
		},
		{
			name:          "gone subscription is deleted",
			alert:         Alert{MachineID: 102, Status: model.StatusCritical},
			status:        http.StatusGone,
			expectedSends: []string{"https://push.example/expired"},
			expectDeleted: []string{"https://push.example/expired"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			store.deleted = nil
			wp := NewWorkerPool(1, store, vapid, nil)

			var sent []string
			wp.sender = &mockSender{
				SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
					var p pushPayload
					require.NoError(t, json.Unmarshal(payload, &p))
					assert.Equal(t, tc.alert.Title(), p.Title)
					assert.Equal(t, tc.alert.Status, p.Status)
					sent = append(sent, sub.Endpoint)
					return response(tc.status), nil
				},
			}

			wp.deliver(context.Background(), tc.alert)

			assert.Equal(t, tc.expectedSends, sent)
			assert.Equal(t, tc.expectDeleted, store.Deleted())
		})
	}
}

func TestWorkerPool_NoVAPIDSkipsPush(t *testing.T) {
	store := &mockStore{subs: map[int64][]model.PushSubscription{1: {{Endpoint: "https://push.example/x"}}}}
	wp := NewWorkerPool(1, store, nil, nil)
	wp.sender = &mockSender{SendFunc: func([]byte, *webpush.Subscription, *webpush.Options) (*http.Response, error) {
		t.Fatal("push must not be attempted without VAPID keys")
		return nil, nil
	}}
	wp.deliver(context.Background(), Alert{MachineID: 1, Status: model.StatusCritical})
}

func TestWorkerPool_Webhooks(t *testing.T) {
	var mu sync.Mutex
	var received []Alert
	var tokens []string
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var a Alert
		if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		mu.Lock()
		received = append(received, a)
		tokens = append(tokens, r.Header.Get("X-Token"))
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ok.Close()
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer failing.Close()

	rec := &recorder{}
	wp := NewWorkerPool(1, &mockStore{}, nil, []config.WebhookConfig{
		{URL: ok.URL, Headers: map[string]string{"X-Token": "abc"}},
		{URL: failing.URL},
	})
	wp.SetRecorder(rec)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wp.Start(ctx)

	score := 25.0
	wp.Dispatch(Alert{MachineID: 7, MachineName: "kiln", Status: model.StatusCritical, Previous: model.StatusWarning, HealthScore: &score})

	require.Eventually(t, func() bool {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		return len(rec.results["webhook"]) == 2
	}, 5*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 1)
	assert.Equal(t, int64(7), received[0].MachineID)
	assert.Equal(t, model.StatusCritical, received[0].Status)
	assert.Equal(t, model.StatusWarning, received[0].Previous)
	assert.Equal(t, []string{"abc"}, tokens)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.NoError(t, rec.results["webhook"][0])
	assert.Error(t, rec.results["webhook"][1])
}

func TestWorkerPool_SendErrorIsRecorded(t *testing.T) {
	store := &mockStore{subs: map[int64][]model.PushSubscription{5: {{Endpoint: "https://push.example/down"}}}}
	rec := &recorder{}
	wp := NewWorkerPool(1, store, vapid, nil)
	wp.SetRecorder(rec)
	wp.sender = &mockSender{SendFunc: func([]byte, *webpush.Subscription, *webpush.Options) (*http.Response, error) {
		return nil, errors.New("connection refused")
	}}

	wp.deliver(context.Background(), Alert{MachineID: 5, Status: model.StatusCritical})

	require.Len(t, rec.results["webpush"], 1)
	assert.Error(t, rec.results["webpush"][0])
	assert.Empty(t, store.Deleted())
}

func TestAlert_Title(t *testing.T) {
	assert.Equal(t, "Machine press-1 is critical", Alert{MachineName: "press-1", Status: model.StatusCritical}.Title())
	assert.Equal(t, "Machine #9 is warning", Alert{MachineID: 9, Status: model.StatusWarning}.Title())
}
