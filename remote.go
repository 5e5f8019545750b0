package main

import (
	"github.com/CodedInternet/gosupercar/comms"
	"github.com/go-chi/render"
	"github.com/gorilla/websocket"
	"net/http"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// RemoteHandler upgrades to a websocket carrying gamepad reports. Only one remote may drive
// the vehicle at a time.
func (s *server) RemoteHandler(w http.ResponseWriter, r *http.Request) {
	if !s.remoteLock.TryLock() {
		render.Render(w, r, ErrConflict)
		return
	}
	defer s.remoteLock.Unlock()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warnw("upgrade failed", "error", err)
		return
	}

	comms.NewRemoteSession(conn, s.remote, s.log.Named("remote")).Serve(s.ctx)
}
