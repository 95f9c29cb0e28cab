package testutils

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"

	"github.com/go-chi/chi/v5"
)

// WithChiURLParams puts path parameters into the chi route context so a
// handler can be called directly, without going through the router.
func WithChiURLParams(req *http.Request, params map[string]string) *http.Request {
	chiCtx := chi.NewRouteContext()
	for k, v := range params {
		chiCtx.URLParams.Add(k, v)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, chiCtx))
}

// NewRouteRequest builds a test request carrying the given chi path parameters.
func NewRouteRequest(method, target string, body io.Reader, params map[string]string) *http.Request {
	return WithChiURLParams(httptest.NewRequest(method, target, body), params)
}
