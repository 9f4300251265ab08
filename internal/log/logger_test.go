package log

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"":      slog.LevelInfo,
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestNew_TagsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelInfo, Component: ComponentStorage, Output: &buf})
	l.Info("opened")
	assert.Contains(t, buf.String(), "component=storage")
	assert.Equal(t, ComponentStorage, l.Component())

	buf.Reset()
	l.WithFields(NewFields().WithOperation(OpCreate).WithUser(7)).Info("stored")
	assert.Contains(t, buf.String(), "operation=create")
	assert.Contains(t, buf.String(), "user_id=7")
}

func TestValidationHook(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelDebug, Output: &buf})
	h := ValidationHook(l)

	h("due_date", "31", errors.New("value out of range"))
	assert.Contains(t, buf.String(), "field rejected")
	assert.Contains(t, buf.String(), "field=due_date")
	assert.Contains(t, buf.String(), "component=validate")

	buf.Reset()
	h("name", `"rent"`, nil)
	assert.Contains(t, buf.String(), "field accepted")
}

func TestValidationHook_QuietAtInfo(t *testing.T) {
	var buf bytes.Buffer
	h := ValidationHook(New(Config{Level: slog.LevelInfo, Output: &buf}))
	h("name", "rent", nil)
	assert.Empty(t, buf.String())
}

func TestMiddleware(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelInfo, Output: &buf})

	var fromCtx *Logger
	handler := middleware.RequestID(Middleware(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fromCtx = FromContext(r.Context())
		w.WriteHeader(http.StatusTeapot)
	})))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/expenses", nil))

	require.NotNil(t, fromCtx)
	assert.Equal(t, ComponentHTTP, fromCtx.Component())
	assert.Contains(t, buf.String(), "request rejected")
	assert.Contains(t, buf.String(), "status_code=418")
	assert.Contains(t, buf.String(), "path=/api/expenses")
	assert.Contains(t, buf.String(), "request_id=")
	assert.Contains(t, buf.String(), "operation=read")
}

func TestOperationFor(t *testing.T) {
	tests := map[string]string{
		http.MethodGet:    OpRead,
		http.MethodHead:   OpRead,
		http.MethodPost:   OpCreate,
		http.MethodPut:    OpUpdate,
		http.MethodPatch:  OpUpdate,
		http.MethodDelete: OpDelete,
	}
	for method, want := range tests {
		assert.Equal(t, want, operationFor(method), method)
	}
}

func TestFields_WithError(t *testing.T) {
	f := NewFields().WithOperation(OpPublish).WithEntity(3).WithError(nil, ErrorTypeNetwork)
	assert.NotContains(t, f, FieldError)
	assert.NotContains(t, f, FieldErrorType)

	f.WithError(errors.New("connection refused"), ErrorTypeNetwork)
	assert.Equal(t, "connection refused", f[FieldError])
	assert.Equal(t, ErrorTypeNetwork, f[FieldErrorType])
	assert.Len(t, f.Args(), 8)
}
