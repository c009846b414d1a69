package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JonMunkholm/sheetjoin/internal/config"
	"github.com/stretchr/testify/assert"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(r.RemoteAddr))
	})
}

func TestTrustedRealIP(t *testing.T) {
	tests := []struct {
		name    string
		trusted []string
		remote  string
		headers map[string]string
		want    string
	}{
		{
			name:    "no trusted proxies ignores header",
			remote:  "10.0.0.1:1234",
			headers: map[string]string{"X-Real-IP": "1.2.3.4"},
			want:    "10.0.0.1:1234",
		},
		{
			name:    "trusted cidr uses X-Real-IP",
			trusted: []string{"10.0.0.0/8"},
			remote:  "10.0.0.1:1234",
			headers: map[string]string{"X-Real-IP": "1.2.3.4"},
			want:    "1.2.3.4",
		},
		{
			name:    "trusted single address",
			trusted: []string{"127.0.0.1"},
			remote:  "127.0.0.1:80",
			headers: map[string]string{"X-Real-IP": "5.6.7.8"},
			want:    "5.6.7.8",
		},
		{
			name:    "first forwarded hop",
			trusted: []string{"10.0.0.0/8"},
			remote:  "10.1.2.3:1234",
			headers: map[string]string{"X-Forwarded-For": "9.9.9.9, 10.1.1.1"},
			want:    "9.9.9.9",
		},
		{
			name:    "untrusted source keeps remote addr",
			trusted: []string{"10.0.0.0/8"},
			remote:  "192.168.1.5:1234",
			headers: map[string]string{"X-Real-IP": "1.2.3.4"},
			want:    "192.168.1.5:1234",
		},
		{
			name:    "invalid header value ignored",
			trusted: []string{"10.0.0.0/8"},
			remote:  "10.0.0.1:1234",
			headers: map[string]string{"X-Real-IP": "not-an-ip"},
			want:    "10.0.0.1:1234",
		},
		{
			name:    "invalid trusted entry skipped",
			trusted: []string{"bogus", " 10.0.0.0/8 "},
			remote:  "10.0.0.1:1234",
			headers: map[string]string{"X-Real-IP": "1.2.3.4"},
			want:    "1.2.3.4",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()

			TrustedRealIP(tt.trusted)(okHandler()).ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Body.String())
		})
	}
}

func TestAPIKeyAuth(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.SecurityConfig
		key      string
		wantCode int
		wantErr  string
	}{
		{"disabled", config.SecurityConfig{}, "", http.StatusOK, ""},
		{"missing key", config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"k1"}}, "", http.StatusUnauthorized, CodeMissingKey},
		{"wrong key", config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"k1"}}, "nope", http.StatusForbidden, CodeInvalidKey},
		{"second key", config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"k1", "k2"}}, "k2", http.StatusOK, ""},
		{"no keys configured", config.SecurityConfig{RequireAPIKey: true}, "k1", http.StatusForbidden, CodeInvalidKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
			if tt.key != "" {
				req.Header.Set("X-API-Key", tt.key)
			}
			rec := httptest.NewRecorder()

			APIKeyAuth(&tt.cfg)(okHandler()).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantErr, rec.Header().Get("X-Error-Code"))
			if tt.wantErr != "" {
				assert.Contains(t, rec.Body.String(), `"code":"`+tt.wantErr+`"`)
			}
		})
	}
}

func TestLogger_RecordsStatusAndBytes(t *testing.T) {
	var captured *responseWriter
	h := Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = w.(*responseWriter)
		w.WriteHeader(http.StatusTeapot)
		w.WriteHeader(http.StatusOK) // ignored
		w.Write([]byte("hello"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, http.StatusTeapot, captured.status)
	assert.Equal(t, int64(5), captured.bytes)
}
