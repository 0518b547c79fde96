package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/parksafe/parksafe/internal/client"
	"github.com/parksafe/parksafe/internal/model"
	"github.com/parksafe/parksafe/internal/session"
	"github.com/parksafe/parksafe/internal/testutil/apitest"
	"github.com/stretchr/testify/require"
)

type memTokens struct {
	mu     sync.Mutex
	tokens map[string]string
}

func (m *memTokens) Get(server string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	token, ok := m.tokens[server]
	if !ok {
		return "", errNotSignedIn
	}
	return token, nil
}

func (m *memTokens) Set(server, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[server] = token
	return nil
}

func (m *memTokens) Delete(server string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, server)
	return nil
}

func useMemTokens(t *testing.T) *memTokens {
	t.Helper()
	store := &memTokens{tokens: map[string]string{}}
	orig := openTokens
	openTokens = func() (tokenStore, error) { return store, nil }
	t.Cleanup(func() { openTokens = orig })
	return store
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersionCmd(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	require.Contains(t, out, "parksafe dev")
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8080", cfg.Server)
	require.Equal(t, 50, cfg.MessagePageSize)
	require.Equal(t, 5, cfg.AlertLimit)
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, saveConfig(path, &cliConfig{
		Server:          "https://parksafe.example",
		Email:           "ranger@parksafe.test",
		MessagePageSize: 20,
		AlertLimit:      3,
	}))

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "https://parksafe.example", cfg.Server)
	require.Equal(t, "ranger@parksafe.test", cfg.Email)
	require.Equal(t, 20, cfg.MessagePageSize)
	require.Equal(t, 3, cfg.AlertLimit)
}

func TestLoadConfig_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0o644))

	_, err := loadConfig(path)
	require.Error(t, err)
}

func TestCommandsRequireSignIn(t *testing.T) {
	useMemTokens(t)
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")

	_, err := run(t, "--config", cfgPath, "nearby")
	require.ErrorIs(t, err, errNotSignedIn)
}

func TestCLI_EndToEnd(t *testing.T) {
	srv := apitest.NewServer(t)
	tokens := useMemTokens(t)
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	base := []string{"--config", cfgPath, "--server", srv.URL}

	// a second visitor to talk to
	bob := client.New(srv.URL)
	bobResp, err := bob.Register(context.Background(), "bob@parksafe.test", "hunter22", "Bob")
	require.NoError(t, err)
	_, err = bob.UpdateLocation(context.Background(), 35.6532, -83.5070)
	require.NoError(t, err)

	out, err := run(t, append(base, "login", "--register", "--email", "alice@parksafe.test", "--password", "hunter22", "--name", "Alice")...)
	require.NoError(t, err)
	require.Contains(t, out, "Signed in to "+srv.URL+" as Alice")
	require.NotEmpty(t, tokens.tokens[srv.URL])

	cfg, err := loadConfig(cfgPath)
	require.NoError(t, err)
	require.Equal(t, "alice@parksafe.test", cfg.Email)

	out, err = run(t, append(base, "send", "--to", bobResp.Profile.ID.String(), "meet", "at", "the", "gate")...)
	require.NoError(t, err)
	require.Contains(t, out, "Sent message")

	_, err = run(t, append(base, "send", "--to", bobResp.Profile.ID.String(), "   ")...)
	require.Error(t, err)

	out, err = run(t, append(base, "broadcast", "trail", "closed")...)
	require.NoError(t, err)
	require.Contains(t, out, "alert")

	out, err = run(t, append(base, "locate", "--lat", "35.6540", "--lng", "-83.5060")...)
	require.NoError(t, err)
	require.Contains(t, out, "📍 Alice")

	out, err = run(t, append(base, "nearby")...)
	require.NoError(t, err)
	require.Contains(t, out, "Bob")
	require.Contains(t, out, "35.65320")

	// bob's view of the same data
	bobSession, err := session.Start(context.Background(), bob, session.Config{})
	require.NoError(t, err)
	defer bobSession.Teardown()
	defer bob.Close()

	msgs := bobSession.Messages.State().Records
	require.Len(t, msgs, 2)
	require.Equal(t, model.MessageTypeEmergency, msgs[0].Type)
	require.Equal(t, "meet at the gate", msgs[1].Content)
	require.Len(t, bobSession.Alerts.State().Records, 1)

	out, err = run(t, append(base, "logout")...)
	require.NoError(t, err)
	require.Contains(t, out, "Signed out")
	require.Empty(t, tokens.tokens)
}

func TestWatch_PrintsExistingAndNewRecords(t *testing.T) {
	srv := apitest.NewServer(t)
	ctx := context.Background()

	alice := client.New(srv.URL)
	aliceResp, err := alice.Register(ctx, "alice@parksafe.test", "hunter22", "Alice")
	require.NoError(t, err)
	defer alice.Close()

	bob := client.New(srv.URL)
	_, err = bob.Register(ctx, "bob@parksafe.test", "hunter22", "Bob")
	require.NoError(t, err)
	defer bob.Close()

	_, err = bob.Write(ctx, model.TableMessages, model.SendMessageRequest{Content: "first", RecipientID: &aliceResp.Profile.ID})
	require.NoError(t, err)

	s, err := session.Start(ctx, alice, session.Config{})
	require.NoError(t, err)
	defer s.Teardown()

	out := &syncBuffer{}
	watchCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- watch(watchCtx, out, s, 10) }()

	require.Eventually(t, func() bool { return strings.Contains(out.String(), "Bob (direct): first") }, 5*time.Second, 20*time.Millisecond)

	_, err = bob.Write(ctx, model.TableMessages, model.SendMessageRequest{Content: "second", RecipientID: &aliceResp.Profile.ID})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return strings.Contains(out.String(), "Bob (direct): second") }, 5*time.Second, 20*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	require.Equal(t, 1, strings.Count(out.String(), "first"))
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWatchNearby_ReprintsOnLocationChange(t *testing.T) {
	srv := apitest.NewServer(t)
	ctx := context.Background()

	alice := client.New(srv.URL)
	_, err := alice.Register(ctx, "alice@parksafe.test", "hunter22", "Alice")
	require.NoError(t, err)
	defer alice.Close()

	bob := client.New(srv.URL)
	_, err = bob.Register(ctx, "bob@parksafe.test", "hunter22", "Bob")
	require.NoError(t, err)
	defer bob.Close()

	locations, err := session.WatchLocations(ctx, alice, time.Hour)
	require.NoError(t, err)
	defer locations.Stop()

	out := &syncBuffer{}
	watchCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- watchNearby(watchCtx, out, locations) }()

	require.Eventually(t, func() bool { return strings.Contains(out.String(), "No active visitors.") }, 5*time.Second, 20*time.Millisecond)

	_, err = bob.UpdateLocation(ctx, 35.6532, -83.5070)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return strings.Contains(out.String(), "35.65320") }, 5*time.Second, 20*time.Millisecond)
	require.Contains(t, out.String(), "Bob")

	cancel()
	require.NoError(t, <-done)
}
