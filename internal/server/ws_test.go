package server

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finagent-pro/finagent/internal/agent"
	"github.com/finagent-pro/finagent/internal/config"
)

func dialAnalyzeWS(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/analyze"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrames(t *testing.T, conn *websocket.Conn) []StreamMessage {
	t.Helper()
	var frames []StreamMessage
	for {
		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		var msg StreamMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return frames
		}
		frames = append(frames, msg)
		if msg.Type == "complete" || msg.Type == "error" {
			return frames
		}
	}
}

func TestAnalyzeWS(t *testing.T) {
	analyzer := &stubAnalyzer{result: &agent.Analysis{
		Query:    "Analyze TSLA",
		Response: "Tesla is volatile.",
		Model:    "claude-3-5-sonnet-20241022",
	}}
	srv := New(config.Default(), analyzer, nil, nil, nil)
	ts := httptest.NewServer(srv.createRouter())
	defer ts.Close()

	conn := dialAnalyzeWS(t, ts)
	require.NoError(t, conn.WriteJSON(AnalyzeRequest{Query: "Analyze TSLA"}))

	frames := readFrames(t, conn)
	require.NotEmpty(t, frames)

	final := frames[len(frames)-1]
	assert.Equal(t, "complete", final.Type)
	assert.Equal(t, "Tesla is volatile.", final.Response)
	assert.Equal(t, "claude-3-5-sonnet-20241022", final.Model)

	var streamed strings.Builder
	for _, f := range frames[:len(frames)-1] {
		assert.Equal(t, "token", f.Type)
		streamed.WriteString(f.Content)
	}
	assert.Equal(t, "Tesla is volatile.", streamed.String())
}

func TestAnalyzeWSEmptyQuery(t *testing.T) {
	srv := New(config.Default(), &stubAnalyzer{}, nil, nil, nil)
	ts := httptest.NewServer(srv.createRouter())
	defer ts.Close()

	conn := dialAnalyzeWS(t, ts)
	require.NoError(t, conn.WriteJSON(AnalyzeRequest{Query: "  "}))

	frames := readFrames(t, conn)
	require.Len(t, frames, 1)
	assert.Equal(t, "error", frames[0].Type)
	assert.Contains(t, frames[0].Message, "empty")
}

func TestAnalyzeWSInvalidFrame(t *testing.T) {
	srv := New(config.Default(), &stubAnalyzer{}, nil, nil, nil)
	ts := httptest.NewServer(srv.createRouter())
	defer ts.Close()

	conn := dialAnalyzeWS(t, ts)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))

	frames := readFrames(t, conn)
	require.Len(t, frames, 1)
	assert.Equal(t, "error", frames[0].Type)
}
