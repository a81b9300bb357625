package main

import (
	"io"
	"net"

	"github.com/openbmc-project/bmcweb-core/internal/authpipeline"
	"github.com/openbmc-project/bmcweb-core/internal/router/redfish"
)

// hostPAM is the seam for the platform's PAM binding. The concrete
// libpam bridge is linked in by the target image's integration layer;
// this build refuses every credential so a misconfigured deployment
// fails closed rather than open.
type hostPAM struct{}

func newHostPAM() authpipeline.Authenticator {
	return hostPAM{}
}

func (hostPAM) Authenticate(_, _ string) (authpipeline.Result, error) {
	return authpipeline.Failure, nil
}

// unixStream bridges a console websocket to the host console server's
// unix socket (obmc-console style).
func unixStream(path string) redfish.StreamProvider {
	return func() (io.ReadWriteCloser, error) {
		return net.Dial("unix", path)
	}
}
