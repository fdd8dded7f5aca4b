package proxy

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	llmclient "docchat/internal/llmClient"
)

var ErrMalformedMessage = errors.New("proxy: malformed message")

// wireMessage accepts both shapes browsers send: the UI form
// {id, role, parts:[{type:"text", text}]} and the plain {role, content}
// form, where content is a string or a list of parts.
type wireMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
	Parts   []wirePart      `json:"parts"`
}

type wirePart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ConvertMessages maps raw messages to provider messages, keeping order.
// Non-text parts are dropped and messages without any text are skipped.
func ConvertMessages(raw []json.RawMessage) ([]llmclient.Message, error) {
	out := make([]llmclient.Message, 0, len(raw))
	for i, r := range raw {
		var wm wireMessage
		if err := json.Unmarshal(r, &wm); err != nil {
			return nil, fmt.Errorf("%w %d: %v", ErrMalformedMessage, i, err)
		}
		role, err := llmclient.ParseRole(wm.Role)
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
		text, err := messageText(wm)
		if err != nil {
			return nil, fmt.Errorf("%w %d: %v", ErrMalformedMessage, i, err)
		}
		if text == "" {
			continue
		}
		out = append(out, llmclient.Message{Role: role, Content: text})
	}
	return out, nil
}

func messageText(wm wireMessage) (string, error) {
	content := bytes.TrimSpace(wm.Content)
	if len(content) > 0 && !bytes.Equal(content, []byte("null")) {
		var s string
		if err := json.Unmarshal(content, &s); err == nil {
			return s, nil
		}
		var parts []wirePart
		if err := json.Unmarshal(content, &parts); err != nil {
			return "", fmt.Errorf("content must be a string or a list of parts: %v", err)
		}
		return joinText(parts), nil
	}
	return joinText(wm.Parts), nil
}

func joinText(parts []wirePart) string {
	var b strings.Builder
	for _, p := range parts {
		if p.Type != "text" || p.Text == "" {
			continue
		}
		b.WriteString(p.Text)
	}
	return b.String()
}
