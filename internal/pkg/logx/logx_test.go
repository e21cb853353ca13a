package logx

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnonymizeIP(t *testing.T) {
	tests := map[string]string{
		"203.0.113.54:4312":      "203.0.113.0",
		"203.0.113.54":           "203.0.113.0",
		"[::1]:8080":             "127.0.0.1",
		"2001:db8:1:2:3:4:5:6":   "2001:db8:1:2::",
		"not-an-ip":              "unknown_ip",
		"[2001:db8::ff]:9000":    "2001:db8::",
		"127.0.0.1:1":            "127.0.0.1",
	}

	for in, want := range tests {
		assert.Equal(t, want, AnonymizeIP(in), in)
	}
}

func TestRequestLogger_WritesStatusLine(t *testing.T) {
	var buf bytes.Buffer
	InitGlobalLogger(false)
	SetOutput(&buf)

	h := RequestLogger()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Contains(t, buf.String(), `"status":418`)
	assert.Contains(t, buf.String(), `"component":"http"`)
	assert.Contains(t, buf.String(), `"level":"warn"`)
}

func TestInfo_OddFieldCountIsDropped(t *testing.T) {
	var buf bytes.Buffer
	InitGlobalLogger(false)
	SetOutput(&buf)

	Info("hello", "only-key")

	assert.Contains(t, buf.String(), "odd number of fields")
	assert.Contains(t, buf.String(), `"message":"hello"`)
}
