package transcript

import (
	"strings"
	"testing"
	"time"

	"github.com/Zuo-Peng/adk-session-viewer/internal/session"
)

func textEvent(id, author string, ts float64, text string) session.Event {
	return session.Event{
		ID:        id,
		Author:    author,
		Timestamp: ts,
		Content:   session.Content{Parts: []session.Part{session.TextPart{Text: text}}},
	}
}

func TestOrderStable(t *testing.T) {
	events := []session.Event{
		textEvent("c", "writer", 3, "c"),
		textEvent("a1", "user", 1, "a1"),
		textEvent("b", "writer", 2, "b"),
		textEvent("a2", "writer", 1, "a2"),
		textEvent("a3", "user", 1, "a3"),
	}
	got := Order(events)
	want := []string{"a1", "a2", "a3", "b", "c"}
	for i, ev := range got {
		if ev.ID != want[i] {
			t.Fatalf("position %d: got %s, want %s (full order %v)", i, ev.ID, want[i], ids(got))
		}
	}
	if events[0].ID != "c" {
		t.Fatal("Order must not modify its input")
	}
	for i := 1; i < len(got); i++ {
		if got[i].Timestamp < got[i-1].Timestamp {
			t.Fatalf("order not non-decreasing at %d", i)
		}
	}
}

func TestOrderEmpty(t *testing.T) {
	if got := Order(nil); len(got) != 0 {
		t.Fatalf("expected empty, got %v", got)
	}
}

func TestRenderBlocks(t *testing.T) {
	events := []session.Event{
		textEvent("e2", "writer", 1700000002, "answer"),
		textEvent("e1", "user", 1700000001, "question"),
	}
	out, blocks := Render(events, Options{Width: 80, Location: time.UTC})
	if !strings.Contains(out, "Session Start") {
		t.Fatalf("expected session start marker:\n%s", out)
	}
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(blocks))
	}
	if blocks[0].EventID != "e1" || blocks[0].Index != 1 || blocks[0].Selectable {
		t.Fatalf("first block should be the user event and not selectable: %+v", blocks[0])
	}
	if blocks[1].EventID != "e2" || blocks[1].Index != 0 || !blocks[1].Selectable {
		t.Fatalf("second block should be the agent event and selectable: %+v", blocks[1])
	}
	if blocks[1].Start < blocks[0].End {
		t.Fatalf("blocks overlap: %+v", blocks)
	}

	lines := strings.Split(out, "\n")
	for _, blk := range blocks {
		span := strings.Join(lines[blk.Start:blk.End], "\n")
		want := map[string]string{"e1": "question", "e2": "answer"}[blk.EventID]
		if !strings.Contains(span, want) {
			t.Fatalf("block %s does not cover its text %q:\n%s", blk.EventID, want, span)
		}
	}
}

func TestRenderHighlightsOnlySelected(t *testing.T) {
	events := []session.Event{
		textEvent("e1", "writer", 1, "first"),
		textEvent("e2", "writer", 2, "second"),
	}
	out, blocks := Render(events, Options{Width: 80, Location: time.UTC, Selection: 1, HasSelection: true})
	lines := strings.Split(out, "\n")
	first := strings.Join(lines[blocks[0].Start:blocks[0].End], "\n")
	second := strings.Join(lines[blocks[1].Start:blocks[1].End], "\n")
	if strings.Contains(first, "┏") {
		t.Fatal("unselected event should not be highlighted")
	}
	if !strings.Contains(second, "┏") {
		t.Fatalf("selected event should be highlighted:\n%s", second)
	}
}

func TestRenderUserEventNeverHighlighted(t *testing.T) {
	events := []session.Event{textEvent("u1", "user", 1, "hi")}
	out, _ := Render(events, Options{Width: 80, Location: time.UTC, Selection: 0, HasSelection: true})
	if strings.Contains(out, "┏") {
		t.Fatal("user events are not selectable and must not be highlighted")
	}
}

func TestBlockAt(t *testing.T) {
	blocks := []Block{{EventID: "a", Start: 2, End: 6}, {EventID: "b", Start: 7, End: 9}}
	if blk, ok := BlockAt(blocks, 5); !ok || blk.EventID != "a" {
		t.Fatalf("line 5: %+v %v", blk, ok)
	}
	if _, ok := BlockAt(blocks, 6); ok {
		t.Fatal("line 6 is the blank separator")
	}
	if blk, ok := BlockAt(blocks, 7); !ok || blk.EventID != "b" {
		t.Fatalf("line 7: %+v %v", blk, ok)
	}
}

func TestNextSkipsUserBlocks(t *testing.T) {
	blocks := []Block{
		{Index: 0, EventID: "u1"},
		{Index: 1, EventID: "a1", Selectable: true},
		{Index: 2, EventID: "u2"},
		{Index: 3, EventID: "a2", Selectable: true},
	}
	tests := []struct {
		cur  int
		dir  int
		want string
	}{
		{-1, 1, "a1"},
		{-1, -1, "a2"},
		{1, 1, "a2"},
		{3, 1, "a1"},
		{1, -1, "a2"},
		{3, -1, "a1"},
	}
	for _, tt := range tests {
		blk, ok := Next(blocks, tt.cur, tt.dir)
		if !ok || blk.EventID != tt.want {
			t.Errorf("Next(%d, %d) = %q, want %q", tt.cur, tt.dir, blk.EventID, tt.want)
		}
	}
	if _, ok := Next([]Block{{EventID: "u1"}}, -1, 1); ok {
		t.Fatal("expected no selectable block")
	}
}

func ids(events []session.Event) []string {
	out := make([]string, len(events))
	for i, ev := range events {
		out[i] = ev.ID
	}
	return out
}

func TestNextVisitsEventsWithSameID(t *testing.T) {
	events := []session.Event{
		textEvent("", "writer", 1, "first"),
		textEvent("", "writer", 2, "second"),
	}
	_, blocks := Render(events, Options{Width: 80, Location: time.UTC})
	blk, ok := Next(blocks, 0, 1)
	if !ok || blk.Index != 1 {
		t.Fatalf("Next from event 0 = %+v %v, want event 1", blk, ok)
	}
	if blk, ok := Find(blocks, 1); !ok || blk.Index != 1 {
		t.Fatalf("Find(1) = %+v %v", blk, ok)
	}
}
