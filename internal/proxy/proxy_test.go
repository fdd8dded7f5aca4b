package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"testing"
	"time"

	"docchat/internal/chat"
	llmclient "docchat/internal/llmClient"
	"docchat/internal/tester"
)

func raw(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	tester.NoErr(t, err)
	return b
}

func userRequest(t *testing.T, text, doc string) chat.Request {
	return chat.Request{
		Messages:        []json.RawMessage{raw(t, map[string]any{"role": "user", "content": text})},
		DocumentContext: doc,
	}
}

func quietLogger(buf *bytes.Buffer) *log.Logger { return log.New(buf, "", 0) }

func TestSystemPrompt(t *testing.T) {
	tester.Eq(t, SystemPrompt(""), GenericPreamble)
	got := SystemPrompt("Chapter 1")
	tester.True(t, strings.HasPrefix(got, DocumentPreamble))
	tester.True(t, strings.HasSuffix(got, "Document content:\nChapter 1"))
}

func TestStreamWithoutDocumentUsesGenericPreamble(t *testing.T) {
	fake := llmclient.NewFakeClient(llmclient.FakeChunks("Hi", " there"))
	p := New(fake)

	var got []string
	err := p.Stream(context.Background(), userRequest(t, "hello", ""), func(c string) error {
		got = append(got, c)
		return nil
	})
	tester.NoErr(t, err)
	tester.Eq(t, got, []string{"Hi", " there"})

	sess, ok := fake.LastSession()
	tester.True(t, ok)
	tester.Eq(t, sess.System, "You are a helpful assistant.")
	tester.Eq(t, sess.Messages, []llmclient.Message{{Role: llmclient.RoleUser, Content: "hello"}})
}

func TestStreamTruncatesDocumentContext(t *testing.T) {
	fake := llmclient.NewFakeClient(llmclient.FakeChunks("ok"))
	p := New(fake)
	doc := strings.Repeat("a", 300_000)

	err := p.Stream(context.Background(), userRequest(t, "summarize", doc), func(string) error { return nil })
	tester.NoErr(t, err)

	sess, _ := fake.LastSession()
	tester.Eq(t, len(sess.System), len(DocumentPreamble)+chat.MaxDocumentContext)
}

func TestStreamFailureAfterChunks(t *testing.T) {
	var logs bytes.Buffer
	upstream := errors.New("connection reset by peer")
	fake := llmclient.NewFakeClient(llmclient.FakeFailAfter(upstream, "one", "two"))
	p := New(fake, WithLogger(quietLogger(&logs)))

	var got []string
	err := p.Stream(context.Background(), userRequest(t, "q", ""), func(c string) error {
		got = append(got, c)
		return nil
	})
	tester.Eq(t, got, []string{"one", "two"})

	var ue *UpstreamError
	tester.True(t, errors.As(err, &ue))
	tester.True(t, ue.Started)
	tester.ErrIs(t, err, upstream)
	tester.Contains(t, logs.String(), "connection reset by peer")
	tester.Eq(t, fake.Calls(), 1, "no retries")
}

func TestStreamFailureBeforeFirstChunk(t *testing.T) {
	var logs bytes.Buffer
	fake := llmclient.NewFakeClient(llmclient.FakeFailAfter(errors.New("invalid api key")))
	p := New(fake, WithLogger(quietLogger(&logs)))

	err := p.Stream(context.Background(), userRequest(t, "q", ""), func(string) error { return nil })
	var ue *UpstreamError
	tester.True(t, errors.As(err, &ue))
	tester.False(t, ue.Started)
	tester.Eq(t, fake.Calls(), 1)
}

func TestStreamIsBoundedByMaxDuration(t *testing.T) {
	var logs bytes.Buffer
	fake := llmclient.NewFakeClient(llmclient.FakeHang("partial"))
	p := New(fake, WithMaxDuration(50*time.Millisecond), WithLogger(quietLogger(&logs)))

	start := time.Now()
	err := p.Stream(context.Background(), userRequest(t, "q", ""), func(string) error { return nil })
	tester.True(t, time.Since(start) < 2*time.Second)
	tester.ErrIs(t, err, context.DeadlineExceeded)

	var ue *UpstreamError
	tester.True(t, errors.As(err, &ue))
	tester.True(t, ue.Started)
	tester.Contains(t, logs.String(), "exceeded 50ms")
}

func TestStreamStopsWhenSinkFails(t *testing.T) {
	var logs bytes.Buffer
	fake := llmclient.NewFakeClient(llmclient.FakeChunks("a", "b", "c"))
	p := New(fake, WithLogger(quietLogger(&logs)))
	gone := errors.New("client went away")

	n := 0
	err := p.Stream(context.Background(), userRequest(t, "q", ""), func(string) error {
		n++
		return gone
	})
	tester.ErrIs(t, err, gone)
	tester.Eq(t, n, 1)
}

func TestStreamRejectsUnknownRole(t *testing.T) {
	var logs bytes.Buffer
	fake := llmclient.NewFakeClient(nil)
	p := New(fake, WithLogger(quietLogger(&logs)))
	req := chat.Request{Messages: []json.RawMessage{raw(t, map[string]any{"role": "tool", "content": "x"})}}

	err := p.Stream(context.Background(), req, func(string) error { return nil })
	tester.ErrIs(t, err, llmclient.ErrUnknownRole)
	tester.Eq(t, fake.Calls(), 0)
}

func TestConvertMessagesShapes(t *testing.T) {
	msgs := []json.RawMessage{
		raw(t, map[string]any{"id": "1", "role": "user", "parts": []any{
			map[string]any{"type": "text", "text": "What is "},
			map[string]any{"type": "file", "url": "blob:x"},
			map[string]any{"type": "text", "text": "this?"},
		}}),
		raw(t, map[string]any{"role": "assistant", "content": "A report."}),
		raw(t, map[string]any{"role": "system", "content": []any{map[string]any{"type": "text", "text": "Be brief."}}}),
		raw(t, map[string]any{"role": "user", "parts": []any{map[string]any{"type": "step-start"}}}),
	}
	got, err := ConvertMessages(msgs)
	tester.NoErr(t, err)
	tester.Eq(t, got, []llmclient.Message{
		{Role: llmclient.RoleUser, Content: "What is this?"},
		{Role: llmclient.RoleAssistant, Content: "A report."},
		{Role: llmclient.RoleSystem, Content: "Be brief."},
	})
}

func TestConvertMessagesMalformed(t *testing.T) {
	_, err := ConvertMessages([]json.RawMessage{json.RawMessage(`"just a string"`)})
	tester.ErrIs(t, err, ErrMalformedMessage)

	_, err = ConvertMessages([]json.RawMessage{json.RawMessage(`{"role":"user","content":42}`)})
	tester.ErrIs(t, err, ErrMalformedMessage)
}
