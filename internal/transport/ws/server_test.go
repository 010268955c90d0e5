package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thegrind.cafe/internal/protocol"
	"thegrind.cafe/internal/sim/catalogs"
	"thegrind.cafe/internal/sim/rng"
	"thegrind.cafe/internal/sim/tuning"
	"thegrind.cafe/internal/sim/world"
)

func startServer(t *testing.T) (*world.World, *websocket.Conn) {
	t.Helper()
	e := world.NewEngine(catalogs.Default(), tuning.Defaults(), rng.New(1, 2))
	// Long interval: the cafe only changes through actions.
	w := world.New(world.Config{SaveID: "ws-test", TickInterval: time.Hour}, e, e.NewState(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = w.Run(ctx)
		close(done)
	}()

	srv, err := NewServer(w, nil)
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())

	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		ts.Close()
		cancel()
		<-done
	})
	return w, conn
}

func send(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(v))
}

// readType skips messages until one of the wanted type arrives.
func readType(t *testing.T, conn *websocket.Conn, typ string) []byte {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		_, msg, err := conn.ReadMessage()
		require.NoError(t, err)
		base, err := protocol.DecodeBase(msg)
		require.NoError(t, err)
		if base.Type == typ {
			return msg
		}
	}
}

func hello(t *testing.T, conn *websocket.Conn) protocol.WelcomeMsg {
	t.Helper()
	send(t, conn, protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: protocol.Version, ClientName: "test"})
	var welcome protocol.WelcomeMsg
	require.NoError(t, json.Unmarshal(readType(t, conn, protocol.TypeWelcome), &welcome))
	return welcome
}

func act(t *testing.T, conn *websocket.Conn, raw string) protocol.ResultMsg {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(raw)))
	var res protocol.ResultMsg
	require.NoError(t, json.Unmarshal(readType(t, conn, protocol.TypeResult), &res))
	return res
}

func TestServer_HandshakeAndStatePush(t *testing.T) {
	_, conn := startServer(t)

	welcome := hello(t, conn)
	assert.Equal(t, "ws-test", welcome.SaveID)
	assert.NotEmpty(t, welcome.SessionID)
	assert.Equal(t, 1000, welcome.Params.DayTicks)
	assert.Len(t, welcome.Catalogs, 5)

	var st protocol.StateMsg
	require.NoError(t, json.Unmarshal(readType(t, conn, protocol.TypeState), &st))
	assert.Equal(t, uint64(1000), st.Tick)
	assert.Contains(t, string(st.State), `"cash":500`)
}

func TestServer_ActionAppliesAndAnswers(t *testing.T) {
	w, conn := startServer(t)
	hello(t, conn)

	res := act(t, conn, `{"type":"ACTION","protocol_version":"1.0","id":"buy-1","action":"BUY_INGREDIENT","params":{"name":"Coffee grounds","packages":1}}`)
	assert.True(t, res.OK, res.Message)
	assert.Equal(t, "buy-1", res.ID)
	assert.Equal(t, 425.0, w.Snapshot().Cash)

	res = act(t, conn, `{"type":"ACTION","protocol_version":"1.0","id":"buy-2","action":"BUY_INGREDIENT","params":{"name":"Coffee grounds","packages":100}}`)
	assert.False(t, res.OK)
	assert.Equal(t, protocol.ErrRejected, res.Code)
}

func TestServer_RejectsInvalidActions(t *testing.T) {
	_, conn := startServer(t)
	hello(t, conn)

	res := act(t, conn, `{"type":"ACTION","protocol_version":"1.0","id":"x1","action":"BURN_IT_DOWN"}`)
	assert.False(t, res.OK)
	assert.Equal(t, "x1", res.ID)
	assert.Equal(t, protocol.ErrBadRequest, res.Code)

	res = act(t, conn, `{"type":"NOPE"}`)
	assert.Equal(t, protocol.ErrProtoBadRequest, res.Code)
}

func TestServer_SearchThenHire(t *testing.T) {
	w, conn := startServer(t)
	hello(t, conn)

	res := act(t, conn, `{"type":"ACTION","protocol_version":"1.0","id":"h0","action":"HIRE_EMPLOYEE","params":{"index":0}}`)
	assert.Equal(t, protocol.ErrNoCandidate, res.Code)

	res = act(t, conn, `{"type":"ACTION","protocol_version":"1.0","id":"s1","action":"SEARCH_EMPLOYEES","params":{"count":3}}`)
	require.True(t, res.OK)
	var found []world.Employee
	require.NoError(t, json.Unmarshal(res.Candidates, &found))
	require.Len(t, found, 3)

	// Give the cafe enough cash for any candidate.
	_, err := w.Apply(context.Background(), func(_ *world.Engine, st *world.State) bool {
		st.Cash = 10000
		return true
	})
	require.NoError(t, err)

	res = act(t, conn, `{"type":"ACTION","protocol_version":"1.0","id":"h1","action":"HIRE_EMPLOYEE","params":{"index":0}}`)
	require.True(t, res.OK, res.Message)
	require.Len(t, w.Snapshot().Staff, 1)
	assert.Equal(t, found[0].Name, w.Snapshot().Staff[0].Name)
}

func TestServer_SetTickInterval(t *testing.T) {
	w, conn := startServer(t)
	hello(t, conn)

	res := act(t, conn, `{"type":"ACTION","protocol_version":"1.0","id":"t1","action":"SET_TICK_INTERVAL","params":{"tick_interval_ms":500}}`)
	require.True(t, res.OK)
	assert.Eventually(t, func() bool { return w.TickInterval() == 500*time.Millisecond }, 2*time.Second, 10*time.Millisecond)
}

func TestServer_RequiresHello(t *testing.T) {
	_, conn := startServer(t)
	send(t, conn, map[string]string{"type": "ACTION"})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.ClosePolicyViolation), err.Error())
}

func TestServer_ReplayedActionIDIsNotAppliedTwice(t *testing.T) {
	w, conn := startServer(t)
	hello(t, conn)

	buy := `{"type":"ACTION","protocol_version":"1.0","id":"same","action":"BUY_INGREDIENT","params":{"name":"Coffee grounds","packages":1}}`
	first := act(t, conn, buy)
	second := act(t, conn, buy)

	assert.True(t, first.OK)
	assert.Equal(t, first, second)
	assert.Equal(t, 425.0, w.Snapshot().Cash)
}

func TestSession_AllowIsAFixedWindow(t *testing.T) {
	var s session
	now := time.Unix(100, 0)
	for i := 0; i < actionsPerWindow; i++ {
		require.True(t, s.allow(now))
	}
	assert.False(t, s.allow(now.Add(500*time.Millisecond)))
	assert.True(t, s.allow(now.Add(actionWindow)))
}
