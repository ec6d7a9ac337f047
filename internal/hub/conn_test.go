package hub_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parlorchat/parlor/internal/auth"
	"github.com/parlorchat/parlor/internal/domain"
	"github.com/parlorchat/parlor/internal/errmap"
	"github.com/parlorchat/parlor/internal/hub"
	"github.com/parlorchat/parlor/pkg/protocol"
)

const (
	connTestIssuer   = "parlor-auth"
	connTestAudience = "parlor-hub"
)

var connTestSecret = []byte("0123456789abcdef0123456789abcdef")

func mintToken(t *testing.T, subject string) string {
	t.Helper()
	claims := auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    connTestIssuer,
			Audience:  jwt.ClaimStrings{connTestAudience},
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(connTestSecret)
	require.NoError(t, err)
	return token
}

// allowLimiter admits every connection.
type allowLimiter struct{}

func (allowLimiter) Allow(context.Context, int64) error { return nil }

// deniedLimiter rejects every connection as rate limited.
type deniedLimiter struct{}

func (deniedLimiter) Allow(context.Context, int64) error { return domain.ErrRateLimited }

func newConnServer(t *testing.T, limiter hub.ConnectLimiter) (*httptest.Server, *testEnv) {
	t.Helper()
	env := newTestEnv(t)
	handler := hub.NewHandler(hub.HandlerConfig{
		Validator: auth.NewValidator(auth.ValidatorConfig{
			Secret:   connTestSecret,
			Issuer:   connTestIssuer,
			Audience: connTestAudience,
			Clock:    domain.RealClock{},
		}),
		Limiter: limiter,
		Router:  env.router,
		Logger:  discardLogger(),
	})
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv, env
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string, header http.Header) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	return conn
}

// readEvent reads frames until one carrying the named event arrives.
func readEvent(t *testing.T, conn *websocket.Conn, name string) protocol.Event {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	require.NoError(t, conn.SetReadDeadline(deadline))
	for {
		var ev protocol.Event
		require.NoError(t, conn.ReadJSON(&ev), "waiting for event %q", name)
		if ev.Event == name {
			return ev
		}
	}
}

// expectClose reads until the server closes the connection and returns the
// close code it sent.
func expectClose(t *testing.T, conn *websocket.Conn) int {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		_, _, err := conn.ReadMessage()
		if err == nil {
			continue
		}
		var ce *websocket.CloseError
		require.ErrorAs(t, err, &ce, "expected a close frame, got %v", err)
		return ce.Code
	}
}

func TestHandler_EndToEnd(t *testing.T) {
	t.Run("authorized client invokes a method and hears the reply", func(t *testing.T) {
		srv, _ := newConnServer(t, allowLimiter{})

		header := http.Header{"Authorization": {"Bearer " + mintToken(t, "42")}}
		conn := dial(t, wsURL(srv), header)
		defer conn.Close()

		require.NoError(t, conn.WriteJSON(protocol.Invocation{
			Method: protocol.MethodAddServer,
			Args:   rawArgs(t, map[string]any{"server": domain.Server{Name: "gophers"}}),
		}))

		ev := readEvent(t, conn, protocol.EventAddedServer)
		srvBody := bodyOf[domain.Server](t, ev)
		assert.Equal(t, "gophers", srvBody.Name)
		assert.NotZero(t, srvBody.ID)
	})

	t.Run("token accepted via query parameter", func(t *testing.T) {
		srv, _ := newConnServer(t, allowLimiter{})

		conn := dial(t, wsURL(srv)+"?access_token="+mintToken(t, "42"), nil)
		defer conn.Close()

		require.NoError(t, conn.WriteJSON(protocol.Invocation{
			Method: protocol.MethodAddServer,
			Args:   rawArgs(t, map[string]any{"server": domain.Server{Name: "gophers"}}),
		}))

		readEvent(t, conn, protocol.EventAddedServer)
	})

	t.Run("invalid token is closed with the unauthorized code", func(t *testing.T) {
		srv, _ := newConnServer(t, allowLimiter{})

		conn := dial(t, wsURL(srv), http.Header{"Authorization": {"Bearer garbage"}})
		defer conn.Close()

		assert.Equal(t, errmap.CloseUnauthorized, expectClose(t, conn))
	})

	t.Run("missing token is closed with the unauthorized code", func(t *testing.T) {
		srv, _ := newConnServer(t, allowLimiter{})

		conn := dial(t, wsURL(srv), nil)
		defer conn.Close()

		assert.Equal(t, errmap.CloseUnauthorized, expectClose(t, conn))
	})

	t.Run("rate limited connection is closed with the rate limit code", func(t *testing.T) {
		srv, _ := newConnServer(t, deniedLimiter{})

		conn := dial(t, wsURL(srv), http.Header{"Authorization": {"Bearer " + mintToken(t, "42")}})
		defer conn.Close()

		assert.Equal(t, errmap.CloseRateLimited, expectClose(t, conn))
	})

	t.Run("malformed frame is dropped, connection survives", func(t *testing.T) {
		srv, _ := newConnServer(t, allowLimiter{})

		conn := dial(t, wsURL(srv), http.Header{"Authorization": {"Bearer " + mintToken(t, "42")}})
		defer conn.Close()

		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))

		// The connection still dispatches after the bad frame.
		require.NoError(t, conn.WriteJSON(protocol.Invocation{
			Method: protocol.MethodAddServer,
			Args:   rawArgs(t, map[string]any{"server": domain.Server{Name: "gophers"}}),
		}))
		readEvent(t, conn, protocol.EventAddedServer)
	})

	t.Run("two connections of one user both receive user group events", func(t *testing.T) {
		srv, _ := newConnServer(t, allowLimiter{})
		token := mintToken(t, "42")
		header := http.Header{"Authorization": {"Bearer " + token}}

		first := dial(t, wsURL(srv), header)
		defer first.Close()
		second := dial(t, wsURL(srv), header)
		defer second.Close()

		require.NoError(t, first.WriteJSON(protocol.Invocation{
			Method: protocol.MethodUpdateMyInfo,
			Args:   rawArgs(t, map[string]any{"user": domain.User{UserName: "grace"}}),
		}))

		for _, conn := range []*websocket.Conn{first, second} {
			ev := readEvent(t, conn, protocol.EventUserUpdated)
			u := bodyOf[domain.User](t, ev)
			assert.Equal(t, "grace", u.UserName)
		}
	})

	t.Run("channel broadcast survives a member disconnecting", func(t *testing.T) {
		srv, env := newConnServer(t, allowLimiter{})
		env.servers.isSubscribedFn = func(_ context.Context, _, _ int64) (bool, error) {
			return true, nil
		}
		env.channels.getFn = func(_ context.Context, id int64) (domain.Channel, error) {
			return domain.Channel{ID: id, ServerID: 5, Name: "general"}, nil
		}

		leaver := dial(t, wsURL(srv), http.Header{"Authorization": {"Bearer " + mintToken(t, "42")}})
		stayer := dial(t, wsURL(srv), http.Header{"Authorization": {"Bearer " + mintToken(t, "43")}})
		defer stayer.Close()

		for _, conn := range []*websocket.Conn{leaver, stayer} {
			require.NoError(t, conn.WriteJSON(protocol.Invocation{
				Method: protocol.MethodAddToChannelConnection,
				Args:   rawArgs(t, map[string]any{"channelId": 7}),
			}))
			readEvent(t, conn, protocol.EventSelfAddedToChannel)
		}

		require.NoError(t, leaver.Close())

		require.NoError(t, stayer.WriteJSON(protocol.Invocation{
			Method: protocol.MethodPostChannelMessage,
			Args: rawArgs(t, map[string]any{
				"channelId": 7,
				"message":   domain.Message{Content: "still here"},
			}),
		}))

		ev := readEvent(t, stayer, protocol.EventChannelMessageReceived)
		payload := bodyOf[protocol.Payload[domain.Message]](t, ev)
		assert.Equal(t, "still here", payload.Content.Content)
	})
}
