package llmclient

import (
	"context"
	"errors"
	"testing"
	"time"

	"docchat/internal/tester"
)

func TestParseRole(t *testing.T) {
	for in, want := range map[string]Role{
		"user":       RoleUser,
		" Assistant": RoleAssistant,
		"SYSTEM":     RoleSystem,
	} {
		got, err := ParseRole(in)
		tester.NoErr(t, err, in)
		tester.Eq(t, got, want, in)
	}

	_, err := ParseRole("tool")
	tester.ErrIs(t, err, ErrUnknownRole)
}

func TestSplitSystemFoldsSystemTurns(t *testing.T) {
	sys, turns := SplitSystem(Session{
		System: "base",
		Messages: []Message{
			{Role: RoleSystem, Content: "be brief"},
			{Role: RoleUser, Content: "hi"},
			{Role: RoleAssistant, Content: "hello"},
			{Role: RoleSystem, Content: "use english"},
			{Role: RoleUser, Content: "bye"},
		},
	})
	tester.Eq(t, sys, "base\n\nbe brief\n\nuse english")
	tester.Eq(t, turns, []Message{
		{Role: RoleUser, Content: "hi"},
		{Role: RoleAssistant, Content: "hello"},
		{Role: RoleUser, Content: "bye"},
	})
}

func TestSplitSystemWithoutBase(t *testing.T) {
	sys, turns := SplitSystem(Session{Messages: []Message{{Role: RoleSystem, Content: "only"}}})
	tester.Eq(t, sys, "only")
	tester.Eq(t, len(turns), 0)
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	_, err := New(context.Background(), Config{Provider: "carrier-pigeon"})
	tester.ErrIs(t, err, ErrUnknownProvider)
}

func TestNewRequiresKeysForHostedProviders(t *testing.T) {
	_, err := New(context.Background(), Config{Provider: ProviderAnthropic})
	tester.True(t, err != nil, "anthropic without key should fail")
	_, err = New(context.Background(), Config{Provider: ProviderOpenAI})
	tester.True(t, err != nil, "openai without key should fail")
}

func TestNewBuildsOpenAICompatibleClients(t *testing.T) {
	cli, err := New(context.Background(), Config{Provider: "OpenAI", APIKey: "k", BaseURL: "http://localhost:1234/v1"})
	tester.NoErr(t, err)
	tester.Eq(t, cli.Name(), "OpenAI:"+DefaultOpenAIModel)

	cli, err = New(context.Background(), Config{Provider: ProviderGroq, APIKey: "k"})
	tester.NoErr(t, err)
	tester.Eq(t, cli.Name(), "Groq:"+DefaultGroqModel)
}

func TestFakeEchoStreamsWords(t *testing.T) {
	cli := NewFakeClient(FakeEcho())
	var got []string
	err := cli.StreamChat(context.Background(), Session{Messages: []Message{
		{Role: RoleUser, Content: "first question"},
		{Role: RoleAssistant, Content: "answer"},
		{Role: RoleUser, Content: "what is this"},
	}}, func(c string) error {
		got = append(got, c)
		return nil
	})
	tester.NoErr(t, err)
	tester.Eq(t, got, []string{"what", " is", " this"})
	tester.Eq(t, cli.Calls(), 1)
}

func TestFakeFailAfterEmitsChunksFirst(t *testing.T) {
	boom := errors.New("boom")
	cli := NewFakeClient(FakeFailAfter(boom, "a", "b"))
	var got []string
	err := cli.StreamChat(context.Background(), Session{}, func(c string) error {
		got = append(got, c)
		return nil
	})
	tester.ErrIs(t, err, boom)
	tester.Eq(t, got, []string{"a", "b"})
}

func TestFakeHangStopsOnContext(t *testing.T) {
	cli := NewFakeClient(FakeHang("x"))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := cli.StreamChat(ctx, Session{}, func(string) error { return nil })
	tester.ErrIs(t, err, context.DeadlineExceeded)
}

func TestFakeStopsWhenCallbackFails(t *testing.T) {
	closed := errors.New("closed")
	cli := NewFakeClient(FakeChunks("a", "b", "c"))
	n := 0
	err := cli.StreamChat(context.Background(), Session{}, func(string) error {
		n++
		if n == 2 {
			return closed
		}
		return nil
	})
	tester.ErrIs(t, err, closed)
	tester.Eq(t, n, 2)
}
