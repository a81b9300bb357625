package redfish

import (
	"io"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/openbmc-project/bmcweb-core/internal/logger"
)

// StreamProvider opens the platform byte stream a console endpoint
// bridges to (a host serial port, the KVM frame source). It is an
// external collaborator; tests supply an in-memory pipe.
type StreamProvider func() (io.ReadWriteCloser, error)

// console relays a websocket to a platform stream: the gateway hands
// the authenticated socket over and this handler owns it until either
// side closes.
type console struct {
	provider StreamProvider
	upgrader websocket.Upgrader
	log      logger.FuncLog
}

// NewConsole returns the upgrade handler for one console endpoint.
func NewConsole(provider StreamProvider, log logger.FuncLog) http.Handler {
	return &console{
		provider: provider,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The session cookie plus CSRF token already gate this
			// endpoint; Origin enforcement happens before upgrade.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		log: log,
	}
}

func (h *console) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = ws.Close() }()

	stream, err := h.provider()
	if err != nil {
		h.warn("console stream unavailable", err)
		return
	}
	defer func() { _ = stream.Close() }()

	done := make(chan struct{}, 2)

	go func() {
		defer func() { done <- struct{}{} }()
		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				return
			}
			if _, err := stream.Write(data); err != nil {
				return
			}
		}
	}()

	go func() {
		defer func() { done <- struct{}{} }()
		buf := make([]byte, 4096)
		for {
			n, err := stream.Read(buf)
			if n > 0 {
				if werr := ws.WriteMessage(websocket.BinaryMessage, buf[:n]); werr != nil {
					return
				}
			}
			if err != nil {
				return
			}
		}
	}()

	<-done
}

func (h *console) warn(message string, err error) {
	if h.log == nil {
		return
	}
	if l := h.log(); l != nil {
		l.Entry(logger.WarnLevel, message).ErrorAdd(err).Log()
	}
}
