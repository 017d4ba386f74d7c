package server

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/nguyentranbao-ct/agent-console/internal/dashboard"
	pkgmdw "github.com/nguyentranbao-ct/agent-console/internal/server/middleware"
	"github.com/nguyentranbao-ct/agent-console/internal/usecase"
	log "github.com/nguyentranbao-ct/agent-console/pkg/logger/logctx"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// WatchFrame is one websocket message. Exactly one of View and Error is set.
type WatchFrame struct {
	Type  string            `json:"type"`
	View  dashboard.View    `json:"view,omitempty"`
	Error *pkgmdw.ErrorBody `json:"error,omitempty"`
}

const (
	frameDashboard = "dashboard"
	frameError     = "error"
)

type WatchHandler struct {
	auth     *usecase.AuthUsecase
	console  *usecase.ConsoleUsecase
	upgrader websocket.Upgrader
}

func NewWatchHandler(auth *usecase.AuthUsecase, console *usecase.ConsoleUsecase, origins *regexp.Regexp) *WatchHandler {
	return &WatchHandler{
		auth:    auth,
		console: console,
		upgrader: websocket.Upgrader{
			HandshakeTimeout: 5 * time.Second,
			// handshakes bypass CORS
			CheckOrigin: func(r *http.Request) bool {
				return pkgmdw.OriginAllowed(origins, r.Header.Get(echo.HeaderOrigin))
			},
		},
	}
}

// watchToken prefers the Authorization header and falls back to ?token=.
func watchToken(c echo.Context) (string, error) {
	if c.Request().Header.Get(echo.HeaderAuthorization) != "" {
		return pkgmdw.BearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
	}
	return pkgmdw.BearerToken("Bearer " + c.QueryParam("token"))
}

// Watch pushes the actor's dashboard once on connect and again after every
// change in a collection the view reads. Errors before the upgrade are
// plain HTTP errors; after it they are sent as an error frame.
func (h *WatchHandler) Watch(c echo.Context) error {
	token, err := watchToken(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	claims, err := h.auth.Verify(ctx, token)
	if err != nil {
		return err
	}
	c.Set(pkgmdw.ClaimsKey, claims)

	session, err := h.console.Open(ctx, claims)
	if err != nil {
		return err
	}
	defer session.Close()

	view, err := session.Dashboard(ctx)
	if err != nil {
		return err
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade has already answered the client.
		log.Warnw(ctx, "websocket upgrade failed", "error", err)
		return nil
	}
	defer conn.Close()

	go h.readLoop(conn, cancel)

	changes := session.Changes(ctx)
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	if err := writeFrame(conn, WatchFrame{Type: frameDashboard, View: view}); err != nil {
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return nil
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return nil
			}
		case <-changes:
			view, err := session.Dashboard(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			if err != nil {
				_, body := pkgmdw.ErrorResponse(err)
				log.Warnw(ctx, "dashboard refresh failed", "error", err)
				_ = writeFrame(conn, WatchFrame{Type: frameError, Error: &body})
				return nil
			}
			if err := writeFrame(conn, WatchFrame{Type: frameDashboard, View: view}); err != nil {
				return nil
			}
		}
	}
}

// readLoop drains client frames so pongs and close frames are processed.
// Any read error ends the watch.
func (h *WatchHandler) readLoop(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func writeFrame(conn *websocket.Conn, frame WatchFrame) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(frame)
}
