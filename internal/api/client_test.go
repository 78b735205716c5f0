package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	method      string
	path        string
	query       string
	contentType string
	requestID   string
	body        []byte
}

type recorder struct {
	mu    sync.Mutex
	calls []recorded
}

func (r *recorder) add(c recorded) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, c)
}

func (r *recorder) all() []recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recorded(nil), r.calls...)
}

func newBackend(t *testing.T, register func(r *mux.Router)) (*Client, *recorder) {
	t.Helper()
	rec := &recorder{}
	r := mux.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			body, _ := io.ReadAll(req.Body)
			rec.add(recorded{
				method:      req.Method,
				path:        req.URL.Path,
				query:       req.URL.RawQuery,
				contentType: req.Header.Get("Content-Type"),
				requestID:   req.Header.Get("X-Request-ID"),
				body:        body,
			})
			next.ServeHTTP(w, req)
		})
	})
	register(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	c, err := New(srv.URL + "/")
	require.NoError(t, err)
	return c, rec
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestBriefingHitsDayPath(t *testing.T) {
	c, rec := newBackend(t, func(r *mux.Router) {
		r.HandleFunc("/briefing/{day}", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, map[string]string{"text": "recap for " + mux.Vars(req)["day"], "type": mux.Vars(req)["day"]})
		}).Methods(http.MethodGet)
	})

	b, err := c.Briefing(context.Background(), Yesterday)
	require.NoError(t, err)
	assert.Equal(t, "recap for yesterday", b.Text)
	assert.Equal(t, "yesterday", b.Type)

	b, err = c.Briefing(context.Background(), Today)
	require.NoError(t, err)
	assert.Equal(t, "recap for today", b.Text)

	calls := rec.all()
	require.Len(t, calls, 2)
	assert.Equal(t, "/briefing/yesterday", calls[0].path)
	assert.Equal(t, http.MethodGet, calls[0].method)
	assert.Equal(t, "application/json", calls[0].contentType)
	assert.NotEmpty(t, calls[0].requestID)
	assert.NotEqual(t, calls[0].requestID, calls[1].requestID)
}

func TestBriefingRejectsUnknownDay(t *testing.T) {
	c, rec := newBackend(t, func(r *mux.Router) {})
	_, err := c.Briefing(context.Background(), Day("tomorrow"))
	require.Error(t, err)
	assert.Empty(t, rec.all())
}

func TestCommandPostsJSONBody(t *testing.T) {
	c, rec := newBackend(t, func(r *mux.Router) {
		r.HandleFunc("/command", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, map[string]any{
				"command_id": 7,
				"parsed_command": map[string]string{
					"action": "open_app", "app": "gmail", "url": "https://gmail.com", "description": "Opening Gmail",
				},
				"result": "Opening Gmail",
			})
		}).Methods(http.MethodPost)
	})

	res, err := c.Command(context.Background(), "Open Gmail")
	require.NoError(t, err)
	assert.Equal(t, "Opening Gmail", res.Result)
	assert.EqualValues(t, 7, res.CommandID)
	require.NotNil(t, res.ParsedCommand)
	assert.Equal(t, "https://gmail.com", res.ParsedCommand.URL)

	calls := rec.all()
	require.Len(t, calls, 1)
	var sent CommandRequest
	require.NoError(t, json.Unmarshal(calls[0].body, &sent))
	assert.Equal(t, "Open Gmail", sent.Command)
}

func TestNon2xxIsStatusError(t *testing.T) {
	c, _ := newBackend(t, func(r *mux.Router) {
		r.HandleFunc("/status", func(w http.ResponseWriter, req *http.Request) {
			http.Error(w, `{"detail":"no such table: threads"}`, http.StatusInternalServerError)
		})
	})

	_, err := c.Status(context.Background())
	require.Error(t, err)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusInternalServerError, se.Code)
	assert.True(t, IsStatus(err, http.StatusInternalServerError))
	assert.NotContains(t, err.Error(), "no such table")
}

func TestTransportFailureIsWrapped(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c, err := New(base)
	require.NoError(t, err)
	_, err = c.Health(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)
}

func TestMalformedBodyIsDecodeError(t *testing.T) {
	c, _ := newBackend(t, func(r *mux.Router) {
		r.HandleFunc("/briefing/today", func(w http.ResponseWriter, req *http.Request) {
			_, _ = w.Write([]byte("<html>oops</html>"))
		})
	})
	_, err := c.Briefing(context.Background(), Today)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDecode)
}

func TestTimeoutIsTransportError(t *testing.T) {
	block := make(chan struct{})
	c, _ := newBackend(t, func(r *mux.Router) {
		r.HandleFunc("/health", func(w http.ResponseWriter, req *http.Request) {
			select {
			case <-block:
			case <-req.Context().Done():
			}
		})
	})
	defer close(block)
	WithTimeout(50 * time.Millisecond)(c)

	_, err := c.Health(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)
}

func TestEventsAcceptsRowsAndQuery(t *testing.T) {
	c, rec := newBackend(t, func(r *mux.Router) {
		r.HandleFunc("/events", func(w http.ResponseWriter, req *http.Request) {
			_, _ = w.Write([]byte(`{"events":[[3,"Slack","deploy done","2026-10-14 09:30:00",null],{"id":2,"source":"Gmail","content":"invoice","timestamp":"2026-10-14T08:00:00Z"}],"count":2}`))
		})
	})

	list, err := c.Events(context.Background(), 5, "Slack")
	require.NoError(t, err)
	require.Len(t, list.Events, 2)
	assert.Equal(t, "[2026-10-14 09:30:00] Slack: deploy done", list.Events[0].String())
	assert.EqualValues(t, 2, list.Events[1].ID)

	ts, err := list.Events[0].Time()
	require.NoError(t, err)
	assert.Equal(t, 9, ts.Hour())

	calls := rec.all()
	require.Len(t, calls, 1)
	assert.Equal(t, "limit=5&source=Slack", calls[0].query)
}

func TestThreadsPassThrough(t *testing.T) {
	c, _ := newBackend(t, func(r *mux.Router) {
		r.HandleFunc("/threads", func(w http.ResponseWriter, req *http.Request) {
			_, _ = w.Write([]byte(`{"threads":[{"title":"Q3 planning"},[1,"vendor"]],"count":2}`))
		})
	})
	list, err := c.Threads(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, list.Count)
	assert.JSONEq(t, `{"title":"Q3 planning"}`, string(list.Threads[0]))
}

func TestNewValidatesURL(t *testing.T) {
	for _, raw := range []string{"", "localhost:8000", "ftp://host", "http://"} {
		_, err := New(raw)
		assert.Error(t, err, raw)
	}
	c, err := New(" http://localhost:8000/ ")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000", c.BaseURL())
}
