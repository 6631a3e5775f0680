package session

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

var sessionKeys = map[string]bool{
	"id": true, "appName": true, "userId": true, "state": true, "events": true, "lastUpdateTime": true,
}

var eventKeys = map[string]bool{
	"id": true, "timestamp": true, "author": true, "content": true, "modelVersion": true, "usageMetadata": true,
}

// Parse decodes a session document. Only the presence of an "events" list
// is required; other members are decoded when their type matches and kept
// verbatim either way.
func Parse(data []byte) (*Session, error) {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(data, &members); err != nil {
		var probe any
		if jerr := json.Unmarshal(data, &probe); jerr != nil {
			return nil, &FormatError{Msg: "invalid JSON", Err: jerr}
		}
		return nil, &FormatError{Msg: "invalid session format: 'events' array missing"}
	}

	rawEvents, ok := members["events"]
	if !ok || !isArray(rawEvents) {
		return nil, &FormatError{Msg: "invalid session format: 'events' array missing"}
	}
	var items []json.RawMessage
	if err := json.Unmarshal(rawEvents, &items); err != nil {
		return nil, &FormatError{Msg: "invalid session format: 'events' array unreadable", Err: err}
	}

	s := &Session{members: members}
	decodeMember(members, "id", &s.ID)
	decodeMember(members, "appName", &s.AppName)
	decodeMember(members, "userId", &s.UserID)
	decodeMember(members, "state", &s.State)
	decodeMember(members, "lastUpdateTime", &s.LastUpdateTime)
	s.Extra = extraMembers(members, sessionKeys)

	s.Events = make([]Event, 0, len(items))
	for i, item := range items {
		ev, err := parseEvent(item)
		if err != nil {
			return nil, &FormatError{Msg: fmt.Sprintf("invalid event at index %d", i), Err: err}
		}
		s.Events = append(s.Events, ev)
	}
	return s, nil
}

func parseEvent(raw json.RawMessage) (Event, error) {
	ev := Event{raw: raw}

	var members map[string]json.RawMessage
	if err := json.Unmarshal(raw, &members); err != nil {
		// not an object; keep it for the raw view only
		return ev, nil
	}
	decodeMember(members, "id", &ev.ID)
	decodeMember(members, "timestamp", &ev.Timestamp)
	decodeMember(members, "author", &ev.Author)
	decodeMember(members, "modelVersion", &ev.ModelVersion)
	if u, ok := members["usageMetadata"]; ok && !isNull(u) {
		var usage UsageMetadata
		if err := json.Unmarshal(u, &usage); err == nil {
			ev.Usage = &usage
		}
	}
	ev.Extra = extraMembers(members, eventKeys)

	if c, ok := members["content"]; ok {
		content, err := parseContent(c)
		if err != nil {
			return ev, fmt.Errorf("event %q: %w", ev.ID, err)
		}
		ev.Content = content
	}
	return ev, nil
}

func parseContent(raw json.RawMessage) (Content, error) {
	var c Content
	var members map[string]json.RawMessage
	if err := json.Unmarshal(raw, &members); err != nil {
		return c, nil
	}
	decodeMember(members, "role", &c.Role)
	decodeMember(members, "thoughtSignature", &c.ThoughtSignature)

	var parts []json.RawMessage
	decodeMember(members, "parts", &parts)
	c.Parts = make([]Part, 0, len(parts))
	for i, p := range parts {
		part, err := parsePart(p)
		if err != nil {
			return c, fmt.Errorf("part %d: %w", i, err)
		}
		c.Parts = append(c.Parts, part)
	}
	return c, nil
}

// parsePart picks the single populated variant of a part. A part with no
// populated variant is kept as UnknownPart; more than one is an error.
func parsePart(raw json.RawMessage) (Part, error) {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(raw, &members); err != nil {
		return UnknownPart{Raw: raw}, nil
	}

	var found []Part
	var names []string

	var text string
	decodeMember(members, "text", &text)
	if text != "" {
		found = append(found, TextPart{Text: text})
		names = append(names, "text")
	}
	if v, ok := members["functionCall"]; ok && !isNull(v) {
		var fc FunctionCall
		decodeObject(v, map[string]any{"id": &fc.ID, "name": &fc.Name, "args": &fc.Args})
		found = append(found, FunctionCallPart{Call: fc})
		names = append(names, "functionCall")
	}
	if v, ok := members["functionResponse"]; ok && !isNull(v) {
		var fr FunctionResponse
		decodeObject(v, map[string]any{"id": &fr.ID, "name": &fr.Name, "response": &fr.Response})
		found = append(found, FunctionResponsePart{Response: fr})
		names = append(names, "functionResponse")
	}
	if v, ok := members["inlineData"]; ok && !isNull(v) {
		var d InlineData
		decodeObject(v, map[string]any{"mimeType": &d.MimeType, "data": &d.Data})
		found = append(found, InlineDataPart{Data: d})
		names = append(names, "inlineData")
	}

	switch len(found) {
	case 0:
		return UnknownPart{Raw: raw}, nil
	case 1:
		return found[0], nil
	default:
		return nil, fmt.Errorf("ambiguous part: %s are all set", strings.Join(names, ", "))
	}
}

func decodeMember(members map[string]json.RawMessage, key string, dst any) {
	if raw, ok := members[key]; ok {
		_ = json.Unmarshal(raw, dst)
	}
}

func decodeObject(raw json.RawMessage, fields map[string]any) {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(raw, &members); err != nil {
		return
	}
	for key, dst := range fields {
		decodeMember(members, key, dst)
	}
}

func extraMembers(members map[string]json.RawMessage, known map[string]bool) map[string]any {
	var extra map[string]any
	for key, raw := range members {
		if known[key] {
			continue
		}
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			continue
		}
		if extra == nil {
			extra = make(map[string]any)
		}
		extra[key] = v
	}
	return extra
}

func isArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
