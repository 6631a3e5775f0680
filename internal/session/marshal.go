package session

import (
	"bytes"
	"encoding/json"
)

// MarshalJSON writes the session back out. Members read from a document are
// reproduced unchanged.
func (s Session) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(s.members)+1)
	if s.members != nil {
		for k, v := range s.members {
			out[k] = v
		}
	} else {
		for k, v := range s.Extra {
			out[k] = v
		}
		out["id"] = s.ID
		out["appName"] = s.AppName
		out["userId"] = s.UserID
		out["state"] = s.State
		out["lastUpdateTime"] = s.LastUpdateTime
	}
	events := s.Events
	if events == nil {
		events = []Event{}
	}
	out["events"] = events
	return marshal(out)
}

// MarshalJSON returns the source bytes of a parsed event; events built in
// code are encoded from their fields.
func (e Event) MarshalJSON() ([]byte, error) {
	if e.raw != nil {
		return e.raw, nil
	}
	out := make(map[string]any, len(e.Extra)+6)
	for k, v := range e.Extra {
		out[k] = v
	}
	out["id"] = e.ID
	out["timestamp"] = e.Timestamp
	out["author"] = e.Author
	content := map[string]any{"parts": partsOrEmpty(e.Content.Parts)}
	if e.Content.Role != "" {
		content["role"] = e.Content.Role
	}
	if e.Content.ThoughtSignature != "" {
		content["thoughtSignature"] = e.Content.ThoughtSignature
	}
	out["content"] = content
	if e.ModelVersion != "" {
		out["modelVersion"] = e.ModelVersion
	}
	if e.Usage != nil {
		out["usageMetadata"] = e.Usage
	}
	return marshal(out)
}

func partsOrEmpty(parts []Part) []Part {
	if parts == nil {
		return []Part{}
	}
	return parts
}

func (p TextPart) MarshalJSON() ([]byte, error) {
	return marshal(map[string]string{"text": p.Text})
}

func (p FunctionCallPart) MarshalJSON() ([]byte, error) {
	return marshal(map[string]FunctionCall{"functionCall": p.Call})
}

func (p FunctionResponsePart) MarshalJSON() ([]byte, error) {
	return marshal(map[string]FunctionResponse{"functionResponse": p.Response})
}

func (p InlineDataPart) MarshalJSON() ([]byte, error) {
	return marshal(map[string]InlineData{"inlineData": p.Data})
}

func (p UnknownPart) MarshalJSON() ([]byte, error) {
	if len(p.Raw) == 0 {
		return []byte("{}"), nil
	}
	return p.Raw, nil
}

// marshal is json.Marshal without HTML escaping, so text written back out
// keeps <, > and & as they were.
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
