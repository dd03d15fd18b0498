package http_test

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/tether"
	tetherhttp "github.com/aretw0/tether/pkg/adapters/http"
	"github.com/aretw0/tether/pkg/adapters/memory"
	"github.com/aretw0/tether/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counterState struct {
	Counter int    `mapstructure:"counter"`
	Value   string `mapstructure:"value"`
}

var (
	increment = tether.CreatePureAction("incrementCounter", func(set tether.Setter[counterState]) error {
		return set.Update(func(prev counterState) domain.Fields {
			return domain.Fields{"counter": prev.Counter + 1}
		})
	})
	fail = tether.CreatePureAction("fail", func(set tether.Setter[counterState]) error {
		return errors.New("nope")
	})
)

func newProvider(t *testing.T, opts ...tether.Option) *tether.Provider[counterState] {
	t.Helper()
	store, err := tether.CreateStore(counterState{}, tether.WithName("http"))
	require.NoError(t, err)

	opts = append(opts, tether.WithJournal(memory.NewJournal()))
	p := store.NewProvider(opts...)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func actions(p *tether.Provider[counterState]) map[string]tetherhttp.ActionFunc {
	return map[string]tetherhttp.ActionFunc{
		"incrementCounter": func(ctx context.Context, _ json.RawMessage) error {
			return p.Dispatch(ctx, increment())
		},
		"fail": func(ctx context.Context, _ json.RawMessage) error {
			return p.Dispatch(ctx, fail())
		},
	}
}

func TestGetState(t *testing.T) {
	p := newProvider(t)
	require.NoError(t, p.Dispatch(context.Background(), increment()))
	handler := tetherhttp.NewHandler(p)

	req := httptest.NewRequest("GET", "/state", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp tetherhttp.StateResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, p.ID(), resp.StoreID)
	assert.Equal(t, uint64(1), resp.Version)
	assert.EqualValues(t, 1, resp.State["counter"])
	assert.Equal(t, "", resp.State["value"])
}

func TestDispatchAndJournal(t *testing.T) {
	p := newProvider(t)
	handler := tetherhttp.NewHandler(p, tetherhttp.WithActions(actions(p)))

	for range 2 {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest("POST", "/actions/incrementCounter", nil))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
	assert.Equal(t, 2, p.Get().Counter)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("POST", "/actions/fail", nil))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("POST", "/actions/unknown", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/actions", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var records []domain.ActionRecord
	require.NoError(t, json.NewDecoder(w.Body).Decode(&records))
	require.Len(t, records, 3)
	assert.Equal(t, domain.OutcomeCommitted, records[0].Outcome)
	assert.Equal(t, domain.OutcomeFailed, records[2].Outcome)
}

func TestDispatch_ConcurrentRequestsGetTheirOwnOutcome(t *testing.T) {
	p := newProvider(t)

	entered := make(chan struct{})
	release := make(chan struct{})
	slow := tether.CreatePureAction("slow", func(set tether.Setter[counterState]) error {
		close(entered)
		<-release
		return set.Update(func(prev counterState) domain.Fields {
			return domain.Fields{"counter": prev.Counter + 1}
		})
	})
	routes := actions(p)
	routes["slow"] = func(ctx context.Context, _ json.RawMessage) error {
		return p.Dispatch(ctx, slow())
	}
	handler := tetherhttp.NewHandler(p, tetherhttp.WithActions(routes))

	slowResp := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest("POST", "/actions/slow", nil))
		slowResp <- w
	}()
	<-entered

	failResp := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest("POST", "/actions/fail", nil))
		failResp <- w
	}()
	incResp := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		assert.Eventually(t, func() bool { return p.Pending() == 1 }, time.Second, time.Millisecond)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest("POST", "/actions/incrementCounter", nil))
		incResp <- w
	}()

	require.Eventually(t, func() bool { return p.Pending() == 2 }, time.Second, time.Millisecond)
	close(release)

	w := <-slowResp
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = <-failResp
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "nope")

	// The state returned already holds the request's own commit.
	w = <-incResp
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp tetherhttp.StateResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.EqualValues(t, 2, resp.State["counter"])
	assert.Equal(t, uint64(2), resp.Version)
}

func TestDispatchAfterClose(t *testing.T) {
	p := newProvider(t)
	handler := tetherhttp.NewHandler(p, tetherhttp.WithActions(actions(p)))
	require.NoError(t, p.Close())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("POST", "/actions/incrementCounter", nil))
	assert.Equal(t, http.StatusGone, w.Code)
}

func TestMetricsAndInfo(t *testing.T) {
	p := newProvider(t)
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("tether_commits_total 0\n"))
	})
	handler := tetherhttp.NewHandler(p, tetherhttp.WithMetrics(metrics))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	assert.Contains(t, w.Body.String(), "tether_commits_total")

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/info", nil))
	assert.Contains(t, w.Body.String(), tether.Version)
}

func TestSubscribeEvents_WatchFilter(t *testing.T) {
	streams := tetherhttp.NewStreamManager()
	p := newProvider(t, tether.WithLifecycleHooks(streams.Hooks()))
	srv := httptest.NewServer(tetherhttp.NewHandler(p, tetherhttp.WithStreams(streams)))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, "GET", srv.URL+"/events?watch=counter", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: ping\n", line)

	// Wait for subscription to register
	require.Eventually(t, func() bool { return streams.Subscribers(p.ID()) == 1 }, time.Second, 10*time.Millisecond)

	// Filtered out: only value changes
	require.NoError(t, p.Dispatch(ctx, tether.CreateAction("updateValue",
		func(_ context.Context, v string, set tether.Setter[counterState]) error {
			return set.Set(domain.Fields{"value": v})
		})("foo")))
	require.NoError(t, p.Dispatch(ctx, increment()))

	var data string
	for data == "" {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "data: {") {
			data = strings.TrimPrefix(strings.TrimSpace(line), "data: ")
		}
	}

	var msg tetherhttp.CommitMessage
	require.NoError(t, json.Unmarshal([]byte(data), &msg))
	assert.Equal(t, uint64(2), msg.Version)
	assert.EqualValues(t, 1, msg.Changed["counter"])
	assert.NotContains(t, msg.Changed, "value")
}
