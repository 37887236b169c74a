// Package webhooks posts run notifications to an external endpoint.
package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"cacheplan/internal/config"
	"cacheplan/internal/metrics"
)

type delivery struct {
	EventType string
	Payload   []byte
	Attempts  int
}

// Worker delivers queued events one at a time, retrying with exponential
// backoff until MaxAttempts is reached.
type Worker struct {
	URL         string
	Secret      string
	HTTP        *http.Client
	MaxAttempts int
	Log         *logrus.Entry

	queue   chan delivery
	backoff func(attempts int) time.Duration
}

func NewWorker(cfg config.Webhook, log *logrus.Entry) *Worker {
	max := cfg.MaxAttempts
	if max <= 0 {
		max = 10
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Worker{
		URL:         cfg.URL,
		Secret:      cfg.Secret,
		HTTP:        &http.Client{Timeout: 5 * time.Second},
		MaxAttempts: max,
		Log:         log,
		queue:       make(chan delivery, 256),
		backoff:     nextBackoff,
	}
}

// Enqueue schedules an event. It reports false when the queue is full.
func (w *Worker) Enqueue(eventType string, data any) bool {
	payload := map[string]any{
		"id":   "evt_" + uuid.New().String(),
		"type": eventType,
		"ts":   time.Now().UTC().Format(time.RFC3339),
		"data": data,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		w.Log.WithError(err).Warn("webhook payload")
		return false
	}
	select {
	case w.queue <- delivery{EventType: eventType, Payload: body}:
		return true
	default:
		metrics.WebhookDeliveries.WithLabelValues(eventType, "dropped").Inc()
		return false
	}
}

// Start processes the queue until ctx is done.
func (w *Worker) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case d := <-w.queue:
				w.process(ctx, d)
			}
		}
	}()
}

func (w *Worker) process(ctx context.Context, d delivery) {
	for {
		code, latency, err := w.deliverOnce(ctx, d)
		status := "success"
		if err != nil {
			status = "failed"
		}
		metrics.WebhookDeliveries.WithLabelValues(d.EventType, status).Inc()
		metrics.WebhookLatency.WithLabelValues(d.EventType, status).Observe(float64(latency.Milliseconds()))
		if err == nil {
			return
		}
		d.Attempts++
		log := w.Log.WithFields(logrus.Fields{"event": d.EventType, "attempts": d.Attempts, "code": code})
		if d.Attempts >= w.MaxAttempts {
			log.WithError(err).Error("webhook delivery failed permanently")
			return
		}
		log.WithError(err).Warn("webhook delivery failed, retrying")
		select {
		case <-ctx.Done():
			return
		case <-time.After(w.backoff(d.Attempts)):
		}
	}
}

func (w *Worker) deliverOnce(ctx context.Context, d delivery) (int, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(d.Payload))
	if err != nil {
		return 0, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-Type", d.EventType)
	req.Header.Set("X-Attempt", strconv.Itoa(d.Attempts+1))
	if w.Secret != "" {
		req.Header.Set("X-Signature", SignHMAC(w.Secret, d.Payload))
	}
	start := time.Now()
	resp, err := w.HTTP.Do(req)
	latency := time.Since(start)
	if err != nil {
		return 0, latency, err
	}
	_ = resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, latency, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return resp.StatusCode, latency, nil
}

func nextBackoff(attempts int) time.Duration {
	if attempts < 0 {
		attempts = 0
	}
	if attempts > 10 {
		attempts = 10
	}
	base := time.Second * time.Duration(1<<attempts)
	if base > time.Hour {
		base = time.Hour
	}
	return base
}
