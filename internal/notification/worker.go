package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/go-resty/resty/v2"

	"predictive-maintenance-backend/config"
	"predictive-maintenance-backend/internal/model"
)

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// SubscriptionStore is the slice of the store the pool needs.
type SubscriptionStore interface {
	SubscriptionsForMachine(ctx context.Context, machineID int64) ([]model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
}

// Recorder observes delivery outcomes. Channel is "webpush" or "webhook".
type Recorder interface {
	AlertDelivered(channel string, err error)
}

// WorkerPool manages a pool of workers for delivering alerts.
type WorkerPool struct {
	size     int
	jobs     chan Alert
	store    SubscriptionStore
	webpush  *webpush.Options
	sender   NotificationSender
	webhooks []config.WebhookConfig
	client   *resty.Client
	recorder Recorder
}

// NewWorkerPool creates a new worker pool. webpushOptions may be nil, in
// which case only webhooks are used.
func NewWorkerPool(size int, s SubscriptionStore, webpushOptions *webpush.Options, webhooks []config.WebhookConfig) *WorkerPool {
	return &WorkerPool{
		size:     size,
		jobs:     make(chan Alert, size*16),
		store:    s,
		webpush:  webpushOptions,
		sender:   &WebPushSender{},
		webhooks: webhooks,
		client:   resty.New().SetTimeout(10 * time.Second),
	}
}

// SetRecorder installs an observer for delivery outcomes.
func (wp *WorkerPool) SetRecorder(r Recorder) {
	wp.recorder = r
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Printf("Worker %d started", id)
	for {
		select {
		case alert := <-wp.jobs:
			log.Printf("Worker %d delivering %s alert for machine %d", id, alert.Status, alert.MachineID)
			wp.deliver(ctx, alert)
		case <-ctx.Done():
			log.Printf("Worker %d shutting down", id)
			return
		}
	}
}

// Dispatch queues an alert. It never blocks; when the queue is full the
// alert is dropped and false is returned.
func (wp *WorkerPool) Dispatch(alert Alert) bool {
	select {
	case wp.jobs <- alert:
		return true
	default:
		log.Printf("Alert queue full, dropping %s alert for machine %d", alert.Status, alert.MachineID)
		return false
	}
}

func (wp *WorkerPool) deliver(ctx context.Context, alert Alert) {
	wp.sendPush(ctx, alert)
	for _, hook := range wp.webhooks {
		wp.record("webhook", wp.postWebhook(ctx, hook, alert))
	}
}

func (wp *WorkerPool) record(channel string, err error) {
	if err != nil {
		log.Printf("Alert delivery via %s failed: %v", channel, err)
	}
	if wp.recorder != nil {
		wp.recorder.AlertDelivered(channel, err)
	}
}

// sendPush fetches subscriptions and sends notifications for the alert's machine.
func (wp *WorkerPool) sendPush(ctx context.Context, alert Alert) {
	if wp.webpush == nil || wp.webpush.VAPIDPrivateKey == "" {
		return
	}
	subscriptions, err := wp.store.SubscriptionsForMachine(ctx, alert.MachineID)
	if err != nil {
		log.Printf("Error fetching subscriptions for machine %d: %v", alert.MachineID, err)
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	payload, err := json.Marshal(pushPayload{
		Title:     alert.Title(),
		Body:      alert.Reason,
		MachineID: alert.MachineID,
		Status:    alert.Status,
	})
	if err != nil {
		log.Printf("Error encoding push payload: %v", err)
		return
	}

	for _, sub := range subscriptions {
		if sub.CriticalOnly && alert.Status != model.StatusCritical {
			continue
		}
		wp.record("webpush", wp.sendNotification(ctx, sub, payload))
	}
}

// sendNotification sends a single web push notification.
func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) error {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		return fmt.Errorf("send to %s: %w", sub.Endpoint, err)
	}
	defer resp.Body.Close()

	// Handle expired subscriptions
	if resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound {
		log.Printf("Subscription for endpoint %s is expired. Deleting.", sub.Endpoint)
		if err := wp.store.DeleteSubscription(ctx, sub.Endpoint); err != nil {
			log.Printf("Failed to delete expired subscription %s: %v", sub.Endpoint, err)
		}
		return nil
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("push service answered %d for %s", resp.StatusCode, sub.Endpoint)
	}
	return nil
}

func (wp *WorkerPool) postWebhook(ctx context.Context, hook config.WebhookConfig, alert Alert) error {
	resp, err := wp.client.R().
		SetContext(ctx).
		SetHeaders(hook.Headers).
		SetHeader("Content-Type", "application/json").
		SetBody(alert).
		Post(hook.URL)
	if err != nil {
		return fmt.Errorf("post %s: %w", hook.URL, err)
	}
	if resp.IsError() {
		return fmt.Errorf("webhook %s answered %s", hook.URL, resp.Status())
	}
	return nil
}
