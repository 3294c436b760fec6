package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRespondErrorMapsSentinels(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("%w: dev-9", ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: bad month", ErrValidation), http.StatusBadRequest},
		{fmt.Errorf("%w: dial tcp 10.0.0.5:5432", ErrUnavailable), http.StatusServiceUnavailable},
		{fmt.Errorf("%w: gotenberg", ErrUpstream), http.StatusBadGateway},
		{ErrTimeout, http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		RespondError(rec, tc.err)
		require.Equal(t, tc.status, rec.Code, tc.err.Error())
		require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		var problem ProblemDetail
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
		require.Equal(t, tc.status, problem.Status)
		require.NotContains(t, problem.Detail, "10.0.0.5")
	}
}
