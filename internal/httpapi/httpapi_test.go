package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solid-gateway/internal/message"
	"solid-gateway/internal/notify"
	"solid-gateway/internal/status"
)

type failingDatabase struct{}

func (failingDatabase) Store(context.Context, string) error { return errors.New("disk full") }
func (failingDatabase) GetAll(context.Context) ([]string, error) { return nil, errors.New("disk full") }

type stubChannel struct {
	label string
	err   error
}

func (c stubChannel) Send(context.Context, string) error { return c.err }
func (c stubChannel) Type() string { return c.label }

type fakeEnqueuer struct {
	payloads [][]byte
	err      error
}

func (e *fakeEnqueuer) Enqueue(_ context.Context, payload []byte) error {
	e.payloads = append(e.payloads, payload)
	return e.err
}

func (e *fakeEnqueuer) Close() {}

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func init() {
	gin.SetMode(gin.TestMode)
}

func newProcessor(database message.Database) *message.Processor {
	return message.NewProcessor(message.NewLogger(io.Discard), database, message.NewDisplay(io.Discard))
}

func newManager(channels ...notify.Channel) *notify.Manager {
	manager := notify.NewManager()
	for _, channel := range channels {
		manager.AddChannel(channel)
	}
	return manager
}

func perform(t *testing.T, router http.Handler, method, target, body string) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	request := httptest.NewRequest(method, target, reader)
	request.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)

	var response envelope
	if recorder.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	}
	return recorder.Code, response
}

func TestMessages_ProcessAndList(t *testing.T) {
	router := NewRouter(Dependencies{
		Processor: newProcessor(message.NewMemoryDatabase()),
		Notifier:  newManager(),
	})

	code, response := perform(t, router, http.MethodPost, "/v1/messages", `{"content":"Hello","sender":"alice"}`)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"accepted":true,"outcome":"accepted"}`, string(response.Data))

	code, response = perform(t, router, http.MethodPost, "/v1/messages", `{"content":"","sender":"bob"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "invalid input", response.Msg)
	assert.JSONEq(t, `{"accepted":false,"outcome":"rejected"}`, string(response.Data))

	code, response = perform(t, router, http.MethodGet, "/v1/messages", "")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"records":["Hello from alice"],"count":1}`, string(response.Data))
}

func TestMessages_StorageFailure(t *testing.T) {
	router := NewRouter(Dependencies{Processor: newProcessor(failingDatabase{}), Notifier: newManager()})

	code, response := perform(t, router, http.MethodPost, "/v1/messages", `{"content":"Hello","sender":"alice"}`)
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.JSONEq(t, `{"accepted":false,"outcome":"storage_failed"}`, string(response.Data))

	code, _ = perform(t, router, http.MethodGet, "/v1/messages", "")
	assert.Equal(t, http.StatusInternalServerError, code)
}

func TestMessages_BadJSON(t *testing.T) {
	router := NewRouter(Dependencies{Processor: newProcessor(message.NewMemoryDatabase()), Notifier: newManager()})

	code, _ := perform(t, router, http.MethodPost, "/v1/messages", `{`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestNotify_Sync(t *testing.T) {
	router := NewRouter(Dependencies{
		Processor: newProcessor(message.NewMemoryDatabase()),
		Notifier:  newManager(stubChannel{label: "Email"}, stubChannel{label: "SMS", err: errors.New("offline")}),
	})

	code, response := perform(t, router, http.MethodPost, "/v1/notify?mode=sync", `{"message":"Hello everyone!"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "partial failure", response.Msg)

	var data struct {
		Mode    string          `json:"mode"`
		Results []notify.Result `json:"results"`
	}
	require.NoError(t, json.Unmarshal(response.Data, &data))
	assert.Equal(t, ModeSync, data.Mode)
	require.Len(t, data.Results, 2)
	assert.Equal(t, notify.StatusSuccess, data.Results[0].Status)
	assert.Equal(t, "SMS", data.Results[1].Channel)
	assert.Equal(t, notify.StatusFailed, data.Results[1].Status)
}

func TestNotify_Async(t *testing.T) {
	enqueuer := &fakeEnqueuer{}
	router := NewRouter(Dependencies{
		Processor: newProcessor(message.NewMemoryDatabase()),
		Notifier:  newManager(stubChannel{label: "Email"}),
		Enqueuer:  enqueuer,
	})

	code, response := perform(t, router, http.MethodPost, "/v1/notify?mode=async", `{"message":"queued"}`)
	require.Equal(t, http.StatusAccepted, code)

	var data struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(response.Data, &data))
	require.Len(t, enqueuer.payloads, 1)

	decoded, err := notify.DecodeEnvelope(enqueuer.payloads[0])
	require.NoError(t, err)
	assert.Equal(t, data.ID, decoded.ID)
	assert.Equal(t, "queued", decoded.Message)
}

func TestNotify_AsyncDefaultAndErrors(t *testing.T) {
	enqueuer := &fakeEnqueuer{}
	router := NewRouter(Dependencies{
		Processor:    newProcessor(message.NewMemoryDatabase()),
		Notifier:     newManager(),
		Enqueuer:     enqueuer,
		AsyncDefault: true,
	})

	code, _ := perform(t, router, http.MethodPost, "/v1/notify", `{"message":"x"}`)
	assert.Equal(t, http.StatusAccepted, code)

	enqueuer.err = errors.New("nsqd down")
	code, _ = perform(t, router, http.MethodPost, "/v1/notify?mode=async", `{"message":"x"}`)
	assert.Equal(t, http.StatusInternalServerError, code)

	code, _ = perform(t, router, http.MethodPost, "/v1/notify?mode=later", `{"message":"x"}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = perform(t, router, http.MethodPost, "/v1/notify", `{"message":""}`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestNotify_StatusLifecycle(t *testing.T) {
	tracker := status.NewTracker(status.NewMemoryStore())
	router := NewRouter(Dependencies{
		Processor: newProcessor(message.NewMemoryDatabase()),
		Notifier:  newManager(stubChannel{label: "Email"}),
		Enqueuer:  &fakeEnqueuer{},
		Statuses:  tracker,
	})

	code, response := perform(t, router, http.MethodPost, "/v1/notify?mode=async", `{"message":"queued"}`)
	require.Equal(t, http.StatusAccepted, code)

	var accepted struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(response.Data, &accepted))

	code, response = perform(t, router, http.MethodGet, "/v1/notify/"+accepted.ID, "")
	require.Equal(t, http.StatusOK, code)

	var deliveryStatus status.DeliveryStatus
	require.NoError(t, json.Unmarshal(response.Data, &deliveryStatus))
	assert.Equal(t, status.StateQueued, deliveryStatus.State)
	assert.Equal(t, "queued", deliveryStatus.Message)

	code, _ = perform(t, router, http.MethodGet, "/v1/notify/unknown", "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestNotify_EnqueueFailureMarksStatusFailed(t *testing.T) {
	tracker := status.NewTracker(status.NewMemoryStore())
	enqueuer := &fakeEnqueuer{err: errors.New("nsqd down")}
	router := NewRouter(Dependencies{
		Processor: newProcessor(message.NewMemoryDatabase()),
		Notifier:  newManager(stubChannel{label: "Email"}),
		Enqueuer:  enqueuer,
		Statuses:  tracker,
	})

	code, _ := perform(t, router, http.MethodPost, "/v1/notify?mode=async", `{"message":"lost"}`)
	require.Equal(t, http.StatusInternalServerError, code)
	require.Len(t, enqueuer.payloads, 1)

	sent, err := notify.DecodeEnvelope(enqueuer.payloads[0])
	require.NoError(t, err)

	code, response := perform(t, router, http.MethodGet, "/v1/notify/"+sent.ID, "")
	require.Equal(t, http.StatusOK, code)

	var deliveryStatus status.DeliveryStatus
	require.NoError(t, json.Unmarshal(response.Data, &deliveryStatus))
	assert.Equal(t, status.StateFailed, deliveryStatus.State)
	assert.Equal(t, "nsqd down", deliveryStatus.Error)
	assert.Equal(t, "lost", deliveryStatus.Message)
}

func TestNotify_StatusDisabled(t *testing.T) {
	router := NewRouter(Dependencies{Processor: newProcessor(message.NewMemoryDatabase()), Notifier: newManager()})

	code, _ := perform(t, router, http.MethodGet, "/v1/notify/abc", "")
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestNotify_AsyncWithoutQueue(t *testing.T) {
	router := NewRouter(Dependencies{Processor: newProcessor(message.NewMemoryDatabase()), Notifier: newManager()})

	code, _ := perform(t, router, http.MethodPost, "/v1/notify?mode=async", `{"message":"x"}`)
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestChannels(t *testing.T) {
	router := NewRouter(Dependencies{
		Processor: newProcessor(message.NewMemoryDatabase()),
		Notifier:  newManager(stubChannel{label: "Email"}, stubChannel{label: "SMS"}),
	})

	code, response := perform(t, router, http.MethodGet, "/v1/channels", "")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"channels":["Email","SMS"]}`, string(response.Data))
}

func TestHealth(t *testing.T) {
	healthy := NewRouter(Dependencies{
		Processor:    newProcessor(message.NewMemoryDatabase()),
		Notifier:     newManager(),
		HealthChecks: map[string]HealthCheck{"redis": func(context.Context) error { return nil }},
	})
	code, response := perform(t, healthy, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"status":"ok","components":{"redis":"ok"}}`, string(response.Data))

	degraded := NewRouter(Dependencies{
		Processor:    newProcessor(message.NewMemoryDatabase()),
		Notifier:     newManager(),
		HealthChecks: map[string]HealthCheck{"mysql": func(context.Context) error { return errors.New("refused") }},
	})
	code, _ = perform(t, degraded, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestMetricsRouteAndCORS(t *testing.T) {
	router := NewRouter(Dependencies{
		Processor: newProcessor(message.NewMemoryDatabase()),
		Notifier:  newManager(),
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("solid_up 1\n"))
		}),
	})

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, "solid_up 1\n", recorder.Body.String())
	assert.Equal(t, "*", recorder.Header().Get("Access-Control-Allow-Origin"))

	recorder = httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodOptions, "/v1/notify", bytes.NewReader(nil)))
	assert.Equal(t, http.StatusNoContent, recorder.Code)
}
