// Command bmcwebd is the management-controller web server: the
// connection runtime and authenticated-session gateway in front of the
// BMC's Redfish API and console endpoints.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
