package comms

import (
	"context"
	"encoding/json"
	"github.com/CodedInternet/gosupercar/onboard"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"sync"
	"time"
)

const (
	REMOTE_PONG_WAIT   = 2 * time.Second
	REMOTE_PING_PERIOD = REMOTE_PONG_WAIT / 2
	REMOTE_WRITE_WAIT  = time.Second
)

// RemoteSession forwards gamepad reports from one websocket client into the remote queue.
// Binary messages are raw HID reports, text messages are JSON encoded GamepadReports. The queue
// sees OPEN when the session starts and CLOSE when it ends for any reason, including a client
// that stops answering pings.
type RemoteSession struct {
	conn   *websocket.Conn
	events *onboard.Queue[onboard.RemoteEvent]
	log    *zap.SugaredLogger

	writeLock sync.Mutex
}

func NewRemoteSession(conn *websocket.Conn, events *onboard.Queue[onboard.RemoteEvent], log *zap.SugaredLogger) *RemoteSession {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &RemoteSession{conn: conn, events: events, log: log}
}

// Serve blocks until the client goes away or ctx is done.
func (rs *RemoteSession) Serve(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	rs.log.Infow("remote connected", "addr", rs.conn.RemoteAddr().String())
	rs.events.Send(onboard.RemoteEvent{Type: onboard.OPEN})
	defer func() {
		rs.events.Send(onboard.RemoteEvent{Type: onboard.CLOSE})
		rs.conn.Close()
		rs.log.Infow("remote disconnected")
	}()

	rs.conn.SetReadDeadline(time.Now().Add(REMOTE_PONG_WAIT))
	rs.conn.SetPongHandler(func(string) error {
		return rs.conn.SetReadDeadline(time.Now().Add(REMOTE_PONG_WAIT))
	})

	go rs.ping(ctx)

	for {
		mt, msg, err := rs.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				rs.log.Warnw("remote read failed", "error", err)
			}
			return
		}
		rs.conn.SetReadDeadline(time.Now().Add(REMOTE_PONG_WAIT))

		var report onboard.GamepadReport
		switch mt {
		case websocket.BinaryMessage:
			report, err = ParseGamepadReport(msg)
		case websocket.TextMessage:
			err = json.Unmarshal(msg, &report)
		default:
			continue
		}
		if err != nil {
			rs.log.Debugw("dropping report", "error", err)
			continue
		}

		if rs.events.Send(onboard.RemoteEvent{Type: onboard.INPUT, Report: report}) {
			rs.log.Debugw("remote queue full, dropped oldest event")
		}
	}
}

func (rs *RemoteSession) ping(ctx context.Context) {
	ticker := time.NewTicker(REMOTE_PING_PERIOD)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			rs.writeLock.Lock()
			rs.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(REMOTE_WRITE_WAIT))
			rs.writeLock.Unlock()
			rs.conn.Close()
			return

		case <-ticker.C:
			rs.writeLock.Lock()
			err := rs.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(REMOTE_WRITE_WAIT))
			rs.writeLock.Unlock()
			if err != nil {
				return
			}
		}
	}
}
