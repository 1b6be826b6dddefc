package pricewatch

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func postJSON(t *testing.T, handler http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	router := NewRouter()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestTriggerRejectsInvalidJSON(t *testing.T) {
	w := postJSON(t, NewRouter(), "/crawler/full", "{not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTriggerValidatesRequiredFields(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"missing competitor", `{"baseUrl":"https://x","tenantId":"t","mongoUri":"m","database":"d"}`, "competitorId"},
		{"missing baseUrl", `{"competitorId":"c","tenantId":"t","mongoUri":"m","database":"d"}`, "baseUrl"},
		{"missing tenant", `{"competitorId":"c","baseUrl":"https://x","mongoUri":"m","database":"d"}`, "tenantId"},
		{"missing mongoUri", `{"competitorId":"c","baseUrl":"https://x","tenantId":"t","database":"d"}`, "mongoUri"},
		{"missing database", `{"competitorId":"c","baseUrl":"https://x","tenantId":"t","mongoUri":"m"}`, "database"},
	}

	router := NewRouter()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := postJSON(t, router, "/crawler/refresh", tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), tc.want)
		})
	}
}

func TestTriggerUnknownModeIs404(t *testing.T) {
	w := postJSON(t, NewRouter(), "/crawler/turbo", `{}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
