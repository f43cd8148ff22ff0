package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/llm-chat/backend/internal/service/gateway"
	"github.com/zhouzirui/llm-chat/backend/internal/service/provider"
	"github.com/zhouzirui/llm-chat/backend/pkg/completion"
)

type chunkProvider struct {
	chunks []string
	err    error
}

func (p chunkProvider) Kind() provider.Kind { return provider.KindCloudflare }

func (p chunkProvider) Complete(ctx context.Context, req completion.Request) (*completion.Response, error) {
	return completion.NewResponse(req.Model, strings.Join(p.chunks, "")), nil
}

func (p chunkProvider) Stream(ctx context.Context, req completion.Request, onDelta provider.DeltaFunc) error {
	for _, c := range p.chunks {
		if err := onDelta(c); err != nil {
			return err
		}
	}
	return p.err
}

type incoming struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func dial(t *testing.T, p provider.Provider) *websocket.Conn {
	t.Helper()

	r := chi.NewRouter()
	New(gateway.NewService(provider.NewRegistry(provider.KindCloudflare, p), nil, 0)).RegisterRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	var hello incoming
	require.NoError(t, conn.ReadJSON(&hello))
	require.Equal(t, TypeConnected, hello.Type)
	return conn
}

func TestWebSocketStreamsDeltas(t *testing.T) {
	conn := dial(t, chunkProvider{chunks: []string{"hi ", "there"}})

	require.NoError(t, conn.WriteJSON(completion.Request{Prompt: "hello"}))

	var deltas []string
	for {
		var msg incoming
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type == TypeDone {
			var done struct {
				Content string `json:"content"`
			}
			require.NoError(t, json.Unmarshal(msg.Data, &done))
			assert.Equal(t, "hi there", done.Content)
			break
		}
		require.Equal(t, TypeDelta, msg.Type)
		var delta completion.Delta
		require.NoError(t, json.Unmarshal(msg.Data, &delta))
		deltas = append(deltas, delta.Content)
	}

	assert.Equal(t, []string{"hi ", "there"}, deltas)
}

func TestWebSocketReportsErrors(t *testing.T) {
	conn := dial(t, chunkProvider{err: errors.New("upstream reset")})

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	var msg incoming
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, TypeError, msg.Type)

	require.NoError(t, conn.WriteJSON(completion.Request{Prompt: "hello"}))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, TypeError, msg.Type)
	assert.Contains(t, string(msg.Data), "upstream reset")
}
