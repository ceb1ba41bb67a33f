package chat

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		text   string
		want   string
		wantOK bool
	}{
		{"/open_gate", "open_gate", true},
		{"/open_gate@citofono_bot", "open_gate", true},
		{"  /PingAll now", "pingall", true},
		{"open_gate", "", false},
		{"/", "", false},
		{"/@bot", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, ok := ParseCommand(tt.text)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ParseCommand(%q): got (%q, %v), want (%q, %v)", tt.text, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestChunk(t *testing.T) {
	if got := Chunk("short", 10); len(got) != 1 || got[0] != "short" {
		t.Errorf("short text: got %q", got)
	}

	got := Chunk(strings.Repeat("a", 25), 10)
	if len(got) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(got))
	}
	if len(got[2]) != 5 {
		t.Errorf("last chunk: got %d chars, want 5", len(got[2]))
	}

	// Multi-byte runes are never split.
	got = Chunk(strings.Repeat("è", 5), 2)
	if len(got) != 3 || got[0] != "èè" {
		t.Errorf("rune chunks: got %q", got)
	}
}

func TestReportChunksLongText(t *testing.T) {
	f := NewFake()
	text := strings.Repeat("x", MaxMessageLen*2+1)

	if err := Report(context.Background(), f, "admin", text); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sent := f.SentTo("admin")
	if len(sent) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(sent))
	}
	for i, m := range sent {
		if !m.Options.Silent {
			t.Errorf("message %d should be silent", i)
		}
		if m.Options.Buttons {
			t.Errorf("message %d should not carry buttons", i)
		}
	}
}

func TestReportStopsOnFailure(t *testing.T) {
	f := NewFake()
	f.SendErrors["admin"] = errors.New("offline")

	err := Report(context.Background(), f, "admin", "boom")
	if !errors.Is(err, ErrDelivery) {
		t.Errorf("expected ErrDelivery, got %v", err)
	}
}

func TestFakeHandlesAreUnique(t *testing.T) {
	f := NewFake()
	ctx := context.Background()

	a, _ := f.Send(ctx, "1", "hi", SendOptions{})
	b, _ := f.Send(ctx, "1", "hi", SendOptions{})
	if a == b {
		t.Errorf("handles should differ, both %+v", a)
	}
}

func TestFakeEditError(t *testing.T) {
	f := NewFake()
	ctx := context.Background()
	h, _ := f.Send(ctx, "1", "hi", SendOptions{})
	f.EditErrors[h] = errors.New("message to edit not found")

	if err := f.Edit(ctx, h, "bye"); !errors.Is(err, ErrDelivery) {
		t.Errorf("expected ErrDelivery, got %v", err)
	}
	if len(f.Edits()) != 0 {
		t.Error("failed edit should not be recorded")
	}
}
