package topology

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hachrisjordan/award-itin-engine/internal/apperror"
	"github.com/hachrisjordan/award-itin-engine/internal/config"
)

func TestCreateFullRoutePath_ParsesRoutes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/create-full-route-path", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"routes": [
				{"waypoints": ["HAN", "SGN", "BKK"], "all1": ["OW"], "all2": ["OW"]}
			],
			"queryParamsArr": ["HAN-BKK"]
		}`))
	}))
	defer srv.Close()

	c := New(config.CollaboratorConfig{BaseURL: srv.URL, Timeout: 5 * time.Second})
	res, err := c.CreateFullRoutePath(context.Background(), Request{Origin: "HAN", Destination: "BKK", MaxStop: 1})
	require.NoError(t, err)
	require.Len(t, res.Routes, 1)
	assert.Equal(t, []string{"HAN", "SGN", "BKK"}, res.Routes[0].Waypoints)
	assert.Equal(t, []string{"OW"}, res.Routes[0].All1)
}

func TestCreateFullRoutePath_UpstreamErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`boom`))
	}))
	defer srv.Close()

	c := New(config.CollaboratorConfig{BaseURL: srv.URL, Timeout: 5 * time.Second, Retries: 1})
	_, err := c.CreateFullRoutePath(context.Background(), Request{Origin: "HAN", Destination: "BKK"})
	require.Error(t, err)
	appErr, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, apperror.KindUpstreamUnavailable, appErr.Kind)
}
