package recipe

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestMemoryStoreAddAssignsCustomID(t *testing.T) {
	store := NewMemoryStore(Seed())

	added, err := store.Add(Recipe{Title: "Translate", Prompt: "Translate to French: "})
	if err != nil {
		t.Fatalf("Add err: %v", err)
	}
	if len(added.ID) <= len("custom-") || added.ID[:7] != "custom-" {
		t.Fatalf("unexpected id %q", added.ID)
	}

	if got := len(store.List()); got != len(Seed())+1 {
		t.Fatalf("expected %d recipes, got %d", len(Seed())+1, got)
	}
}

func TestMemoryStoreAddRejectsInvalid(t *testing.T) {
	store := NewMemoryStore(nil)

	if _, err := store.Add(Recipe{Prompt: "x"}); !errors.Is(err, ErrTitleRequired) {
		t.Fatalf("expected ErrTitleRequired, got %v", err)
	}
	hot := 1.5
	if _, err := store.Add(Recipe{Title: "x", Prompt: "y", Temperature: &hot}); err == nil {
		t.Fatal("expected temperature validation error")
	}
}

func TestMemoryStoreUpdatePartial(t *testing.T) {
	store := NewMemoryStore(Seed())
	title := "Grammar Police"

	updated, err := store.Update("fix-grammar", Patch{Title: &title})
	if err != nil {
		t.Fatalf("Update err: %v", err)
	}
	if updated.Title != title {
		t.Fatalf("expected title %q, got %q", title, updated.Title)
	}
	if updated.Prompt != Seed()[0].Prompt {
		t.Fatalf("prompt should be unchanged, got %q", updated.Prompt)
	}

	empty := ""
	if _, err := store.Update("fix-grammar", Patch{Prompt: &empty}); !errors.Is(err, ErrPromptRequired) {
		t.Fatalf("expected ErrPromptRequired, got %v", err)
	}
	if _, err := store.Update("missing", Patch{Title: &title}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreDeleteAndReset(t *testing.T) {
	store := NewMemoryStore(Seed())

	if err := store.Delete("summarize"); err != nil {
		t.Fatalf("Delete err: %v", err)
	}
	if _, ok := store.FindByID("summarize"); ok {
		t.Fatal("recipe should be gone")
	}
	if err := store.Delete("summarize"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	store.Reset()
	if _, ok := store.FindByID("summarize"); !ok {
		t.Fatal("reset should restore defaults")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recipes.toml")
	doc := `
[[recipes]]
id = "haiku"
title = "Haiku"
description = "Answer as a haiku"
prompt = "Reply with a haiku about: "
model = "gpt-4"
temperature = 0.9
max_tokens = 60
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	recipes, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile err: %v", err)
	}
	if len(recipes) != 1 {
		t.Fatalf("expected 1 recipe, got %d", len(recipes))
	}
	r := recipes[0]
	if r.Model != "gpt-4" || r.Temperature == nil || *r.Temperature != 0.9 || r.MaxTokens == nil || *r.MaxTokens != 60 {
		t.Fatalf("unexpected recipe %+v", r)
	}
	if got := r.Render("autumn"); got != "Reply with a haiku about: autumn" {
		t.Fatalf("unexpected render %q", got)
	}
}

func TestLoadFileRejectsDuplicates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recipes.toml")
	doc := "[[recipes]]\nid = \"a\"\ntitle = \"A\"\nprompt = \"a\"\n[[recipes]]\nid = \"a\"\ntitle = \"B\"\nprompt = \"b\"\n"
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	if _, err := LoadFile(path); err == nil {
		t.Fatal("expected duplicate id error")
	}
}
