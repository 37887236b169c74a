package webhooks

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cacheplan/internal/config"
)

type received struct {
	body    []byte
	sig     string
	event   string
	attempt string
}

func newReceiver(t *testing.T, failFirst int) (*httptest.Server, func() []received) {
	t.Helper()
	var (
		mu   sync.Mutex
		got  []received
		hits int
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		defer mu.Unlock()
		hits++
		got = append(got, received{body: b, sig: r.Header.Get("X-Signature"), event: r.Header.Get("X-Event-Type"), attempt: r.Header.Get("X-Attempt")})
		if hits <= failFirst {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)
	return srv, func() []received {
		mu.Lock()
		defer mu.Unlock()
		return append([]received(nil), got...)
	}
}

func newTestWorker(url string, maxAttempts int) *Worker {
	logger, _ := test.NewNullLogger()
	w := NewWorker(config.Webhook{URL: url, Secret: "shh", MaxAttempts: maxAttempts}, logrus.NewEntry(logger))
	w.backoff = func(int) time.Duration { return time.Millisecond }
	return w
}

func TestWorkerDeliversSignedPayload(t *testing.T) {
	srv, got := newReceiver(t, 0)
	w := newTestWorker(srv.URL, 3)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	require.True(t, w.Enqueue("run.completed", map[string]any{"runId": "r1", "score": 42}))
	require.Eventually(t, func() bool { return len(got()) == 1 }, 2*time.Second, 10*time.Millisecond)

	r := got()[0]
	assert.Equal(t, "run.completed", r.event)
	assert.Equal(t, "1", r.attempt)
	assert.True(t, VerifyHMAC("shh", r.body, r.sig))
	assert.Contains(t, string(r.body), `"runId":"r1"`)
}

func TestWorkerRetriesThenSucceeds(t *testing.T) {
	srv, got := newReceiver(t, 2)
	w := newTestWorker(srv.URL, 5)
	w.process(context.Background(), delivery{EventType: "run.completed", Payload: []byte(`{}`)})
	calls := got()
	require.Len(t, calls, 3)
	assert.Equal(t, "3", calls[2].attempt)
}

func TestWorkerGivesUp(t *testing.T) {
	srv, got := newReceiver(t, 100)
	w := newTestWorker(srv.URL, 2)
	w.process(context.Background(), delivery{EventType: "run.completed", Payload: []byte(`{}`)})
	assert.Len(t, got(), 2)
}

func TestEnqueueDropsWhenFull(t *testing.T) {
	w := newTestWorker("http://127.0.0.1:0", 1)
	for i := 0; i < cap(w.queue); i++ {
		require.True(t, w.Enqueue("run.completed", i))
	}
	assert.False(t, w.Enqueue("run.completed", "overflow"))
}

func TestNextBackoff(t *testing.T) {
	assert.Equal(t, time.Second, nextBackoff(-1))
	assert.Equal(t, 4*time.Second, nextBackoff(2))
	assert.Equal(t, 1024*time.Second, nextBackoff(50))
}

func TestSignature(t *testing.T) {
	sig := SignHMAC("k", []byte("body"))
	assert.True(t, VerifyHMAC("k", []byte("body"), sig))
	assert.False(t, VerifyHMAC("k", []byte("other"), sig))
	assert.False(t, VerifyHMAC("k", []byte("body"), "not-hex"))
}
