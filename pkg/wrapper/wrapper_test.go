package wrapper

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

var errMissing = errors.New("missing")

type upstreamError struct{}

func (upstreamError) Error() string   { return "upstream down" }
func (upstreamError) StatusCode() int { return http.StatusBadGateway }

func TestResponseFromError(t *testing.T) {
	statuses := []ErrorStatus{{Err: errMissing, Code: http.StatusNotFound}}

	cases := []struct {
		name string
		err  error
		code int
	}{
		{"sentinel", errMissing, http.StatusNotFound},
		{"wrapped sentinel", fmt.Errorf("facility x: %w", errMissing), http.StatusNotFound},
		{"status coder", fmt.Errorf("beacon: %w", upstreamError{}), http.StatusBadGateway},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := ResponseFromError(tc.err, statuses...)
			if res.Code != tc.code || res.Success || res.Message != tc.err.Error() {
				t.Fatalf("unexpected result %+v", res)
			}
		})
	}
}
