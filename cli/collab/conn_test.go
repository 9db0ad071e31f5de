package collab

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ponyo877/codesh/server/adaptor"
	"github.com/ponyo877/codesh/server/domain"
	"github.com/ponyo877/codesh/server/usecase"
	"github.com/ponyo877/codesh/wire"
)

func startSyncServer(t *testing.T) string {
	t.Helper()
	a := adaptor.NewAdaptor(usecase.NewUsecase(domain.NewRegistry()))
	r := mux.NewRouter()
	r.HandleFunc("/ws", a.HandleSocket)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dialClient(t *testing.T, url string, h Handlers) *Client {
	t.Helper()
	c, err := Dial(url, 3, 10*time.Millisecond)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	c.Start(h)
	return c
}

func TestDialFailsAfterBoundedAttempts(t *testing.T) {
	start := time.Now()
	_, err := Dial("ws://127.0.0.1:1/ws", 3, 10*time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect to")
	// Two backoffs between three attempts.
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestJoinReceivesRosterThenSnapshot(t *testing.T) {
	url := startSyncServer(t)

	joined := make(chan wire.UserJoined, 1)
	snapshot := make(chan wire.SessionData, 1)
	c := dialClient(t, url, Handlers{
		OnUserJoined:  func(p wire.UserJoined) { joined <- p },
		OnSessionData: func(p wire.SessionData) { snapshot <- p },
	})

	c.Join("S")

	select {
	case p := <-joined:
		require.Len(t, p.Users, 1)
		assert.Equal(t, p.Users[0].ID, p.JoinedUser.ID)
		assert.True(t, strings.HasPrefix(p.JoinedUser.Color, "hsl("))
	case <-time.After(time.Second):
		t.Fatal("no roster broadcast")
	}

	select {
	case p := <-snapshot:
		assert.Equal(t, "", p.Code)
		assert.Equal(t, 0, p.DocumentVersion)
		assert.Nil(t, p.Language)
	case <-time.After(time.Second):
		t.Fatal("no snapshot")
	}
}

func TestEditPropagatesBetweenClients(t *testing.T) {
	url := startSyncServer(t)

	aUpdated := make(chan wire.CodeUpdated, 4)
	aJoined := make(chan wire.UserJoined, 4)
	a := dialClient(t, url, Handlers{
		OnUserJoined:  func(p wire.UserJoined) { aJoined <- p },
		OnCodeUpdated: func(p wire.CodeUpdated) { aUpdated <- p },
	})

	bUpdated := make(chan wire.CodeUpdated, 4)
	bSnapshot := make(chan wire.SessionData, 1)
	b := dialClient(t, url, Handlers{
		OnSessionData: func(p wire.SessionData) { bSnapshot <- p },
		OnCodeUpdated: func(p wire.CodeUpdated) { bUpdated <- p },
	})

	a.Join("S")
	waitFor(t, aJoined, "own join")

	b.Join("S")
	waitFor(t, bSnapshot, "snapshot for second client")
	waitFor(t, aJoined, "second client's join")

	a.SendCodeUpdate("S", "print(1)")

	// Both members receive the edit; the originator's copy is the echo.
	for name, ch := range map[string]chan wire.CodeUpdated{"originator": aUpdated, "peer": bUpdated} {
		select {
		case p := <-ch:
			assert.Equal(t, "print(1)", p.Code, name)
			assert.Equal(t, 1, p.Version, name)
		case <-time.After(time.Second):
			t.Fatalf("%s did not receive the edit", name)
		}
	}
}

func TestDisconnectAnnouncesDeparture(t *testing.T) {
	url := startSyncServer(t)

	aJoined := make(chan wire.UserJoined, 4)
	aLeft := make(chan wire.UserLeft, 1)
	a := dialClient(t, url, Handlers{
		OnUserJoined: func(p wire.UserJoined) { aJoined <- p },
		OnUserLeft:   func(p wire.UserLeft) { aLeft <- p },
	})

	bJoined := make(chan wire.UserJoined, 4)
	b := dialClient(t, url, Handlers{
		OnUserJoined: func(p wire.UserJoined) { bJoined <- p },
	})

	a.Join("S")
	waitFor(t, aJoined, "own join")
	b.Join("S")
	second := waitFor(t, aJoined, "second join")
	require.Len(t, second.Users, 2)

	// The departed member is identified by the roster delta; nothing is
	// sent by the closing client itself.
	b.Close()

	select {
	case p := <-aLeft:
		assert.Equal(t, second.JoinedUser.ID, p.UserID)
		require.Len(t, p.RemainingUsers, 1)
	case <-time.After(time.Second):
		t.Fatal("no departure broadcast")
	}
}

func waitFor[T any](t *testing.T, ch chan T, what string) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for %s", what)
		panic("unreachable")
	}
}
