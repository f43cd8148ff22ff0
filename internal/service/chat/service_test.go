package chat_test

import (
	"context"
	"errors"
	"testing"

	model "github.com/zhouzirui/llm-chat/backend/internal/model/chat"
	chat "github.com/zhouzirui/llm-chat/backend/internal/service/chat"
)

func TestServiceGetSession(t *testing.T) {
	svc := chat.NewService()
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, "  weekend plans ")
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	got, err := svc.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetSession err: %v", err)
	}

	if got.ID != session.ID {
		t.Fatalf("unexpected session ID: got %s want %s", got.ID, session.ID)
	}
	if got.Title != "weekend plans" {
		t.Fatalf("unexpected title: got %q", got.Title)
	}
}

func TestServiceGetSessionNotFound(t *testing.T) {
	svc := chat.NewService()
	ctx := context.Background()

	if _, err := svc.GetSession(ctx, "missing"); !errors.Is(err, chat.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestServiceTranscriptIsAppendOrdered(t *testing.T) {
	svc := chat.NewService()
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, "")
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	for _, msg := range []model.Message{
		{SessionID: session.ID, Role: "user", Content: "hello"},
		{SessionID: session.ID, Role: "assistant", Content: "hi there"},
	} {
		if _, err := svc.SaveMessage(ctx, msg); err != nil {
			t.Fatalf("SaveMessage err: %v", err)
		}
	}

	transcript, err := svc.LoadTranscript(ctx, session.ID)
	if err != nil {
		t.Fatalf("LoadTranscript err: %v", err)
	}
	if len(transcript) != 2 || transcript[0].Content != "hello" || transcript[1].Content != "hi there" {
		t.Fatalf("unexpected transcript: %+v", transcript)
	}
	if transcript[0].ID == "" || transcript[0].CreatedAt.IsZero() {
		t.Fatal("expected id and timestamp to be assigned")
	}

	if err := svc.ClearTranscript(ctx, session.ID); err != nil {
		t.Fatalf("ClearTranscript err: %v", err)
	}
	transcript, _ = svc.LoadTranscript(ctx, session.ID)
	if len(transcript) != 0 {
		t.Fatalf("expected empty transcript, got %d", len(transcript))
	}
}

func TestServiceSaveMessageValidation(t *testing.T) {
	svc := chat.NewService()
	ctx := context.Background()
	session, _ := svc.CreateSession(ctx, "")

	if _, err := svc.SaveMessage(ctx, model.Message{SessionID: session.ID, Role: "robot", Content: "x"}); !errors.Is(err, chat.ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
	if _, err := svc.SaveMessage(ctx, model.Message{SessionID: session.ID, Role: "user"}); !errors.Is(err, chat.ErrEmptyContent) {
		t.Fatalf("expected ErrEmptyContent, got %v", err)
	}
	if _, err := svc.SaveMessage(ctx, model.Message{SessionID: "missing", Role: "user", Content: "x"}); !errors.Is(err, chat.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}
