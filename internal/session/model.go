package session

import "encoding/json"

// UserAuthor is the author tag of events written by the human side of the
// conversation. Every other author string is an agent.
const UserAuthor = "user"

type Session struct {
	ID             string
	AppName        string
	UserID         string
	State          map[string]any
	Events         []Event
	LastUpdateTime float64
	Extra          map[string]any // top-level members not modeled above

	members map[string]json.RawMessage // top-level members as read
}

type Event struct {
	ID           string
	Timestamp    float64 // seconds or milliseconds since epoch, see render.FormatTime
	Author       string
	Content      Content
	ModelVersion string
	Usage        *UsageMetadata
	Extra        map[string]any // event members not modeled above

	raw json.RawMessage
}

type Content struct {
	Role             string
	Parts            []Part
	ThoughtSignature string
}

type UsageMetadata struct {
	PromptTokenCount     int  `json:"promptTokenCount"`
	CandidatesTokenCount int  `json:"candidatesTokenCount"`
	TotalTokenCount      int  `json:"totalTokenCount"`
	ThoughtsTokenCount   *int `json:"thoughtsTokenCount,omitempty"`
}

type FunctionCall struct {
	ID   string         `json:"id,omitempty"`
	Name string         `json:"name,omitempty"`
	Args map[string]any `json:"args,omitempty"`
}

type FunctionResponse struct {
	ID       string         `json:"id,omitempty"`
	Name     string         `json:"name,omitempty"`
	Response map[string]any `json:"response,omitempty"`
}

type InlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

// Part is one unit of an event's content. The concrete type is one of
// TextPart, FunctionCallPart, FunctionResponsePart, InlineDataPart or
// UnknownPart.
type Part interface {
	isPart()
}

type TextPart struct {
	Text string
}

type FunctionCallPart struct {
	Call FunctionCall
}

type FunctionResponsePart struct {
	Response FunctionResponse
}

type InlineDataPart struct {
	Data InlineData
}

// UnknownPart holds a part with no recognised payload.
type UnknownPart struct {
	Raw json.RawMessage
}

func (TextPart) isPart()             {}
func (FunctionCallPart) isPart()     {}
func (FunctionResponsePart) isPart() {}
func (InlineDataPart) isPart()       {}
func (UnknownPart) isPart()          {}

// IsUser reports whether the event was authored by the user.
func (e Event) IsUser() bool {
	return e.Author == UserAuthor
}

// Raw returns the event exactly as it appeared in the source document, or
// nil for events built in code. Callers must not modify it.
func (e Event) Raw() json.RawMessage {
	return e.raw
}

// Event returns the event with the given id.
func (s *Session) Event(id string) (Event, bool) {
	if s == nil {
		return Event{}, false
	}
	for _, ev := range s.Events {
		if ev.ID == id {
			return ev, true
		}
	}
	return Event{}, false
}
