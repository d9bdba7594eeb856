package server

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/authkeeper/internal/mocks"
)

func TestHTTPServer_StartStop(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	sl := mocks.NewSecurityLayer(t)
	sl.On("Listen", "tcp", "addr").Return(listener, nil).Once()

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "ok")
	})
	s := NewHTTPServer(handler, "addr")
	assert.Equal(t, "addr", s.Address())

	errCh := make(chan error, 1)
	go func() { errCh <- s.Start(sl) }()

	url := fmt.Sprintf("http://%s/", listener.Addr().String())
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return string(body) == "ok"
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, s.Stop(context.Background()))
	require.NoError(t, <-errCh)
}

func TestHTTPServer_StartListenError(t *testing.T) {
	sl := mocks.NewSecurityLayer(t)
	sl.On("Listen", "tcp", "addr").Return(nil, assert.AnError).Once()

	err := NewHTTPServer(http.NotFoundHandler(), "addr").Start(sl)
	require.ErrorIs(t, err, assert.AnError)
}
