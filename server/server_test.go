// File: server/server_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestServerHTTP1RoundTrip(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Test", "yes")
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("hello"))
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := New(Config{Handler: handler})
	go srv.Serve(ln)
	defer srv.Close()

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))
	_, err = conn.Write([]byte("GET / HTTP/1.1\r\nHost: localhost\r\nConnection: close\r\n\r\n"))
	require.NoError(t, err)

	out, err := io.ReadAll(conn)
	require.NoError(t, err)
	require.Contains(t, string(out), "418")
	require.Contains(t, string(out), "hello")
	require.Contains(t, string(out), "X-Test: yes")
}

func TestSingleConnListenerServesThenBlocks(t *testing.T) {
	c1, c2 := net.Pipe()
	defer c2.Close()
	ln := newSingleConnListener(c1)

	got, err := ln.Accept()
	require.NoError(t, err)
	require.Equal(t, c1, got)

	ln.Close()
	_, err = ln.Accept()
	require.ErrorIs(t, err, http.ErrServerClosed)
}
