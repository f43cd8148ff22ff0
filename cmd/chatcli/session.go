package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/zhouzirui/llm-chat/backend/pkg/chatclient"
	"github.com/zhouzirui/llm-chat/backend/pkg/completion"
)

const helpText = `Commands:
  /clear            clear the conversation
  /recipes          list prompt recipes
  /use <id>         apply a recipe to the next message
  /models           list models available on the server
  /model <id>       switch model
  /temp <0-1>       set temperature
  /tokens <n>       set max tokens
  /stream [on|off]  turn streaming on or off, toggle without argument
  /params           show current parameters
  /reset            restore default parameters
  /exit             quit`

// session is the REPL state on top of the client library.
type session struct {
	out       io.Writer
	client    *chatclient.Client
	params    chatclient.Params
	streaming bool
	recipe    *chatclient.Recipe
}

func newSession(out io.Writer, serverURL string, params chatclient.Params, streaming bool) *session {
	s := &session{out: out, params: params, streaming: streaming}
	s.client = chatclient.New(serverURL, chatclient.WithOnDelta(func(content string) {
		fmt.Fprint(s.out, content)
	}))
	return s
}

// handle runs one line of input and reports whether the REPL should continue.
func (s *session) handle(ctx context.Context, input string) bool {
	if strings.HasPrefix(input, "/") {
		return s.command(ctx, input)
	}
	s.send(ctx, input)
	return true
}

func (s *session) send(ctx context.Context, text string) {
	params := s.params
	if s.recipe != nil {
		text = s.recipe.Render(text)
		var available []completion.Model
		if s.recipe.Model != "" {
			// 服务端可能提供内置目录之外的模型
			available, _ = s.client.Models(ctx)
		}
		params = params.ApplyRecipe(*s.recipe, available...)
		s.recipe = nil
	}

	fmt.Fprint(s.out, boldCyan("assistant> "))
	if s.streaming {
		_, err := s.client.SendStreaming(ctx, text, params)
		fmt.Fprintln(s.out)
		if err != nil {
			s.reportError(err)
		}
		return
	}

	reply, err := s.client.Send(ctx, text, params)
	if err != nil {
		fmt.Fprintln(s.out)
		s.reportError(err)
		return
	}
	fmt.Fprintln(s.out, reply)
}

func (s *session) reportError(err error) {
	var streamErr *chatclient.StreamError
	if errors.As(err, &streamErr) && streamErr.Partial != "" {
		fmt.Fprintln(s.out, faint(fmt.Sprintf("(discarded %d characters of partial reply)", len(streamErr.Partial))))
	}
	fmt.Fprintln(s.out, red("error: "+err.Error()))
	s.client.Store().ClearError()
}

func (s *session) command(ctx context.Context, input string) bool {
	name, arg, _ := strings.Cut(strings.TrimPrefix(input, "/"), " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "exit", "quit":
		return false
	case "help":
		fmt.Fprintln(s.out, helpText)
	case "clear":
		s.client.Clear()
		s.recipe = nil
		fmt.Fprintln(s.out, faint("conversation cleared"))
	case "recipes":
		recipes, err := s.client.ListRecipes(ctx)
		if err != nil {
			fmt.Fprintln(s.out, red("error: "+err.Error()))
			break
		}
		for _, r := range recipes {
			fmt.Fprintf(s.out, "  %s  %s\n", boldGreen(r.ID), r.Description)
		}
	case "use":
		s.useRecipe(ctx, arg)
	case "models":
		models, err := s.client.Models(ctx)
		if err != nil {
			fmt.Fprintln(s.out, red("error: "+err.Error()))
			break
		}
		for _, m := range models {
			fmt.Fprintf(s.out, "  %s  (%s, %d tokens)\n", boldGreen(m.ID), m.Provider, m.MaxTokens)
		}
	case "model":
		m, err := s.client.ResolveModel(ctx, arg)
		if err != nil {
			fmt.Fprintln(s.out, red(err.Error()))
			break
		}
		s.params.SetModel(m)
		fmt.Fprintf(s.out, "model set to %s\n", boldCyan(m.ID))
	case "temp":
		v, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			fmt.Fprintln(s.out, red("usage: /temp <0-1>"))
			break
		}
		s.params.SetTemperature(v)
		fmt.Fprintf(s.out, "temperature set to %.2f\n", s.params.Temperature)
	case "tokens":
		v, err := strconv.Atoi(arg)
		if err != nil {
			fmt.Fprintln(s.out, red("usage: /tokens <n>"))
			break
		}
		s.params.SetMaxTokens(v)
		fmt.Fprintf(s.out, "max tokens set to %d\n", s.params.MaxTokens)
	case "stream":
		switch strings.ToLower(arg) {
		case "":
			s.streaming = !s.streaming
		case "on":
			s.streaming = true
		case "off":
			s.streaming = false
		default:
			fmt.Fprintln(s.out, red("usage: /stream [on|off]"))
			return true
		}
		fmt.Fprintf(s.out, "streaming %v\n", s.streaming)
	case "params":
		fmt.Fprintf(s.out, "model=%s provider=%s temperature=%.2f max_tokens=%d\nsystem: %s\n",
			s.params.Model.ID, s.params.Model.Provider, s.params.Temperature, s.params.MaxTokens, s.params.SystemPrompt)
	case "reset":
		s.params.Reset()
		fmt.Fprintln(s.out, faint("parameters reset"))
	default:
		fmt.Fprintln(s.out, red("unknown command /"+name+", try /help"))
	}
	return true
}

func (s *session) useRecipe(ctx context.Context, id string) {
	recipes, err := s.client.ListRecipes(ctx)
	if err != nil {
		fmt.Fprintln(s.out, red("error: "+err.Error()))
		return
	}
	for i := range recipes {
		if recipes[i].ID == id {
			s.recipe = &recipes[i]
			fmt.Fprintf(s.out, "next message uses %s\n", boldGreen(recipes[i].Title))
			return
		}
	}
	fmt.Fprintln(s.out, red("unknown recipe: "+id))
}
