package redfish_test

import (
	"io"
	"net"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/gorilla/websocket"

	"github.com/openbmc-project/bmcweb-core/internal/router/redfish"
)

var _ = Describe("console endpoint", func() {
	It("relays bytes between the websocket and the platform stream", func() {
		near, far := net.Pipe()
		provider := func() (io.ReadWriteCloser, error) { return near, nil }

		srv := httptest.NewServer(redfish.NewConsole(provider, nil))
		defer srv.Close()
		defer func() { _ = far.Close() }()

		url := "ws" + strings.TrimPrefix(srv.URL, "http")
		ws, resp, err := websocket.DefaultDialer.Dial(url, nil)
		Expect(err).NotTo(HaveOccurred())
		defer func() { _ = ws.Close() }()
		defer func() { _ = resp.Body.Close() }()

		// client → stream
		Expect(ws.WriteMessage(websocket.BinaryMessage, []byte("help\r"))).To(Succeed())
		buf := make([]byte, 16)
		n, err := far.Read(buf)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(buf[:n])).To(Equal("help\r"))

		// stream → client
		go func() { _, _ = far.Write([]byte("ok\r\n")) }()
		_, data, err := ws.ReadMessage()
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal("ok\r\n"))
	})
})
