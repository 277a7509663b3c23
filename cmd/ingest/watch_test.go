package main

import (
	"bytes"
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatLine(t *testing.T) {
	assert.Equal(t, "not json", formatLine([]byte("not json"), true))
	assert.Equal(t, `{"type":"batch_started"}`, formatLine([]byte(`{"type":"batch_started"}`), false))
	assert.Equal(t, "{\n  \"type\": \"batch_started\"\n}", formatLine([]byte(`{"type":"batch_started"}`), true))
}

func TestFollowPrintsLines(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		_, _ = conn.Write([]byte("{\"type\":\"file_processed\"}\nplain\n"))
		conn.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var out bytes.Buffer
	err = follow(ctx, ln.Addr().String(), false, &out)
	require.Error(t, err)
	assert.Equal(t, "{\"type\":\"file_processed\"}\nplain\n", out.String())
}
