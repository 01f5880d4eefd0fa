package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Berkaniis/survey-tool/internal/domain"
	"github.com/Berkaniis/survey-tool/internal/service/template"
)

func newTestServer() *Server {
	return NewServer(NewHandlers(
		&stubWaves{wave: &domain.SendWave{ID: "wave-1"}},
		&stubTemplates{rendered: &template.Rendered{Subject: "Hi", Body: "x"}},
		&stubCampaigns{},
		stubProvider{connected: true},
	))
}

func TestServerListenAndServeTakesAddr(t *testing.T) {
	srv := newTestServer()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe("127.0.0.1:0") }()

	deadline := time.Now().Add(2 * time.Second)
	for srv.Addr() == "" && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	require.NotEmpty(t, srv.Addr(), "listener never bound")

	resp, err := http.Get("http://" + srv.Addr() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))
	assert.ErrorIs(t, <-errCh, http.ErrServerClosed)
}

func TestServerShutdownBeforeListen(t *testing.T) {
	srv := newTestServer()

	require.NoError(t, srv.Shutdown(context.Background()))
	assert.ErrorIs(t, srv.ListenAndServe("127.0.0.1:0"), http.ErrServerClosed)
}
