package chatclient_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/llm-chat/backend/internal/handler"
	"github.com/zhouzirui/llm-chat/backend/internal/model/recipe"
	chatService "github.com/zhouzirui/llm-chat/backend/internal/service/chat"
	"github.com/zhouzirui/llm-chat/backend/internal/service/gateway"
	"github.com/zhouzirui/llm-chat/backend/internal/service/provider"
	"github.com/zhouzirui/llm-chat/backend/pkg/chatclient"
	"github.com/zhouzirui/llm-chat/backend/pkg/completion"
)

type fakeProvider struct {
	chunks []string
	err    error
}

func (fakeProvider) Kind() provider.Kind { return provider.KindOpenAI }

func (p fakeProvider) Complete(ctx context.Context, req completion.Request) (*completion.Response, error) {
	if p.err != nil {
		return nil, p.err
	}
	return completion.NewResponse(req.Model, strings.Join(p.chunks, "")), nil
}

func (p fakeProvider) Stream(ctx context.Context, req completion.Request, onDelta provider.DeltaFunc) error {
	for _, c := range p.chunks {
		if err := onDelta(c); err != nil {
			return err
		}
	}
	return p.err
}

func newGateway(t *testing.T, p provider.Provider) http.Handler {
	t.Helper()
	chats := chatService.NewService()
	gw := gateway.NewService(provider.NewRegistry(provider.KindOpenAI, p), chats, 0)
	return handler.NewRouter(gw, chats, recipe.NewMemoryStore(recipe.Seed()))
}

func serve(t *testing.T, h http.Handler) string {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestSendHelloOverGraphQL(t *testing.T) {
	url := serve(t, newGateway(t, fakeProvider{chunks: []string{"hi there"}}))
	client := chatclient.New(url)

	reply, err := client.Send(context.Background(), "hello", chatclient.DefaultParams())
	require.NoError(t, err)
	assert.Equal(t, "hi there", reply)

	st := client.Store().Snapshot()
	require.Len(t, st.Messages, 2)
	assert.Equal(t, "user", st.Messages[0].Role)
	assert.Equal(t, "hello", st.Messages[0].Text)
	assert.Equal(t, "assistant", st.Messages[1].Role)
	assert.Equal(t, "hi there", st.Messages[1].Text)
	assert.False(t, st.Loading)
	assert.Empty(t, st.Error)
}

func TestSendFallsBackToREST(t *testing.T) {
	gw := newGateway(t, fakeProvider{chunks: []string{"from rest"}})
	var graphqlCalls atomic.Int32
	url := serve(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/graphql" {
			graphqlCalls.Add(1)
			http.Error(w, "down for maintenance", http.StatusInternalServerError)
			return
		}
		gw.ServeHTTP(w, r)
	}))

	client := chatclient.New(url)
	reply, err := client.Send(context.Background(), "hello", chatclient.DefaultParams())
	require.NoError(t, err)
	assert.Equal(t, "from rest", reply)
	assert.Equal(t, int32(1), graphqlCalls.Load())
	assert.Len(t, client.Store().Snapshot().Messages, 2)
}

type stubTransport struct {
	name  string
	calls atomic.Int32
	fn    func(ctx context.Context) (*completion.Response, error)
}

func (s *stubTransport) Name() string { return s.name }

func (s *stubTransport) Complete(ctx context.Context, req completion.Request) (*completion.Response, error) {
	s.calls.Add(1)
	return s.fn(ctx)
}

func TestSendAllTransportsFail(t *testing.T) {
	first := &stubTransport{name: "graphql", fn: func(context.Context) (*completion.Response, error) {
		return nil, errors.New("connection refused")
	}}
	second := &stubTransport{name: "rest", fn: func(context.Context) (*completion.Response, error) {
		return &completion.Response{}, nil
	}}

	client := chatclient.New("http://unused", chatclient.WithTransports(first, second))
	_, err := client.Send(context.Background(), "hello", chatclient.DefaultParams())
	require.ErrorIs(t, err, chatclient.ErrAllTransportsFailed)
	assert.Contains(t, err.Error(), "graphql: connection refused")
	assert.Contains(t, err.Error(), "rest: "+completion.ErrEmptyChoices.Error())

	st := client.Store().Snapshot()
	require.Len(t, st.Messages, 1)
	assert.Equal(t, "user", st.Messages[0].Role)
	assert.Equal(t, err.Error(), st.Error)
	assert.False(t, st.Loading)
}

func TestSendSharesTimeoutBudget(t *testing.T) {
	slow := &stubTransport{name: "graphql", fn: func(ctx context.Context) (*completion.Response, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	next := &stubTransport{name: "rest", fn: func(context.Context) (*completion.Response, error) {
		return completion.NewResponse("m", "too late"), nil
	}}

	client := chatclient.New("http://unused",
		chatclient.WithTransports(slow, next),
		chatclient.WithTimeout(50*time.Millisecond),
	)

	start := time.Now()
	_, err := client.Send(context.Background(), "hello", chatclient.DefaultParams())
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, int32(0), next.calls.Load(), "exhausted budget must not start another transport")
	assert.NotEmpty(t, client.Store().Snapshot().Error)
}

func TestSendStreaming(t *testing.T) {
	url := serve(t, newGateway(t, fakeProvider{chunks: []string{"hi", " ", "there"}}))

	var deltas []string
	client := chatclient.New(url, chatclient.WithOnDelta(func(content string) {
		deltas = append(deltas, content)
	}))

	text, err := client.SendStreaming(context.Background(), "hello", chatclient.DefaultParams())
	require.NoError(t, err)
	assert.Equal(t, "hi there", text)
	assert.Equal(t, text, strings.Join(deltas, ""))

	st := client.Store().Snapshot()
	require.Len(t, st.Messages, 2)
	assert.Equal(t, "hi there", st.Messages[1].Text)
	assert.False(t, st.Messages[1].Streaming)
	assert.False(t, st.Loading)
	assert.Empty(t, st.StreamingID)
}

func TestSendStreamingNon2xxDiscardsPlaceholder(t *testing.T) {
	url := serve(t, newGateway(t, fakeProvider{chunks: []string{"unused"}}))
	client := chatclient.New(url)

	params := chatclient.DefaultParams()
	params.Model.Provider = "bard"

	_, err := client.SendStreaming(context.Background(), "hello", params)

	var statusErr *chatclient.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadRequest, statusErr.Status)

	st := client.Store().Snapshot()
	require.Len(t, st.Messages, 1)
	assert.NotEmpty(t, st.Error)
	assert.False(t, st.Loading)
}

func TestSendStreamingErrorEventReturnsPartial(t *testing.T) {
	url := serve(t, newGateway(t, fakeProvider{chunks: []string{"partial "}, err: errors.New("upstream reset")}))
	client := chatclient.New(url)

	_, err := client.SendStreaming(context.Background(), "hello", chatclient.DefaultParams())

	var streamErr *chatclient.StreamError
	require.ErrorAs(t, err, &streamErr)
	assert.Equal(t, "partial ", streamErr.Partial)

	st := client.Store().Snapshot()
	require.Len(t, st.Messages, 1, "failed stream must not leave a partial assistant message")
	assert.Contains(t, st.Error, "upstream reset")
}

func TestSendStreamingStopsAtDone(t *testing.T) {
	url := serve(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"content\": \"done\"}\n\n")
		fmt.Fprint(w, "data: {broken\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
		fmt.Fprint(w, "data: {\"content\": \" and more\"}\n\n")
	}))
	client := chatclient.New(url)

	text, err := client.SendStreaming(context.Background(), "hello", chatclient.DefaultParams())
	require.NoError(t, err)
	assert.Equal(t, "done", text)
}

func TestSendStreamingTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := chatclient.New(url)
	_, err := client.SendStreaming(context.Background(), "hello", chatclient.DefaultParams())
	require.Error(t, err)

	st := client.Store().Snapshot()
	require.Len(t, st.Messages, 1)
	assert.NotEmpty(t, st.Error)
}

func TestListRecipesAndModels(t *testing.T) {
	url := serve(t, newGateway(t, fakeProvider{}))
	client := chatclient.New(url)

	recipes, err := client.ListRecipes(context.Background())
	require.NoError(t, err)
	require.Len(t, recipes, len(recipe.Seed()))
	assert.Equal(t, "fix-grammar", recipes[0].ID)

	models, err := client.Models(context.Background())
	require.NoError(t, err)
	for _, m := range models {
		assert.Equal(t, "openai", m.Provider)
	}
	assert.Len(t, models, 2)
}

func TestClear(t *testing.T) {
	url := serve(t, newGateway(t, fakeProvider{chunks: []string{"hi"}}))
	client := chatclient.New(url)

	_, err := client.Send(context.Background(), "hello", chatclient.DefaultParams())
	require.NoError(t, err)

	client.Clear()
	st := client.Store().Snapshot()
	assert.Empty(t, st.Messages)
	assert.Empty(t, st.Error)
	assert.Empty(t, st.InputText)
}

type arkProvider struct{ fakeProvider }

func (arkProvider) Kind() provider.Kind { return provider.KindArk }

func TestResolveModel(t *testing.T) {
	ark := completion.Model{ID: "ep-123", Name: "Doubao", Provider: "ark", MaxTokens: 4096}
	chats := chatService.NewService()
	registry := provider.NewRegistry(provider.KindOpenAI, fakeProvider{}, arkProvider{})
	gw := gateway.NewService(registry, chats, 0, gateway.WithModels(ark))
	client := chatclient.New(serve(t, handler.NewRouter(gw, chats, recipe.NewMemoryStore(nil))))

	m, err := client.ResolveModel(context.Background(), "ep-123")
	require.NoError(t, err)
	assert.Equal(t, ark, m)

	m, err = client.ResolveModel(context.Background(), "gpt-4")
	require.NoError(t, err)
	assert.Equal(t, "openai", m.Provider)

	_, err = client.ResolveModel(context.Background(), "nope")
	assert.ErrorIs(t, err, chatclient.ErrUnknownModel)
}

func TestResolveModelOfflineUsesCatalog(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	client := chatclient.New(srv.URL)

	m, err := client.ResolveModel(context.Background(), "gpt-4")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4", m.ID)
}
