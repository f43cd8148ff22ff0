// Command chatcli is a terminal front end for the chat gateway.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/peterh/liner"

	"github.com/zhouzirui/llm-chat/backend/pkg/chatclient"
	"github.com/zhouzirui/llm-chat/backend/pkg/completion"
)

var (
	serverURL    = flag.String("server", envOrDefault("CHAT_SERVER_URL", "http://localhost:8080"), "Gateway base URL")
	modelID      = flag.String("model", "", "Model id, defaults to gpt-3.5-turbo")
	temperature  = flag.Float64("temp", completion.DefaultTemperature, "Temperature for sampling")
	maxTokens    = flag.Int("max-tokens", 0, "Maximum number of tokens to generate")
	systemPrompt = flag.String("system", completion.DefaultSystemPrompt, "System prompt")
	stream       = flag.Bool("stream", true, "Stream replies over SSE")
)

var (
	boldGreen = color.New(color.FgGreen, color.Bold).SprintFunc()
	boldCyan  = color.New(color.FgCyan, color.Bold).SprintFunc()
	red       = color.New(color.FgRed).SprintFunc()
	faint     = color.New(color.Faint).SprintFunc()
)

func main() {
	flag.Parse()

	params := chatclient.DefaultParams()
	if *modelID != "" {
		m, ok := completion.FindModel(*modelID)
		if !ok {
			fmt.Fprintln(os.Stderr, red("unknown model: "+*modelID))
			os.Exit(2)
		}
		params.SetModel(m)
	}
	params.SetTemperature(*temperature)
	if *maxTokens > 0 {
		params.SetMaxTokens(*maxTokens)
	}
	params.SetSystemPrompt(*systemPrompt)

	s := newSession(os.Stdout, *serverURL, params, *stream)

	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	historyFile := filepath.Join(os.TempDir(), "llm-chat_history")
	if f, err := os.Open(historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.OpenFile(historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
		line.Close()
	}()

	fmt.Println(boldGreen("LLM Chat"))
	fmt.Printf("Server: %s  Model: %s  Streaming: %v\n", *serverURL, boldCyan(params.Model.ID), *stream)
	fmt.Println(faint("Type /help for commands, /exit or Ctrl+D to quit."))
	fmt.Println()

	for {
		input, err := line.Prompt("you> ")
		if err != nil {
			// Ctrl+C / Ctrl+D
			fmt.Println()
			return
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		// 发送期间 Ctrl+C 只取消当前请求
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		keepGoing := s.handle(ctx, input)
		stop()
		if !keepGoing {
			return
		}
	}
}

func envOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
