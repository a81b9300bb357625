package netutil_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/openbmc-project/bmcweb-core/internal/netutil"
)

func TestNetutil(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "netutil suite")
}

var _ = Describe("Ipv4VerifyIpAndGetBitcount", func() {
	It("round-trips every contiguous netmask from /1 to /31", func() {
		for bits := 1; bits <= 31; bits++ {
			mask := netutil.Ipv4MaskFromBitcount(bits)
			got, ok := netutil.Ipv4VerifyIpAndGetBitcount(mask)
			Expect(ok).To(BeTrue(), "mask %s (/%d)", mask, bits)
			Expect(got).To(Equal(bits))
		}
	})

	It("accepts the all-zeros and all-ones masks", func() {
		got, ok := netutil.Ipv4VerifyIpAndGetBitcount("0.0.0.0")
		Expect(ok).To(BeTrue())
		Expect(got).To(Equal(0))

		got, ok = netutil.Ipv4VerifyIpAndGetBitcount("255.255.255.255")
		Expect(ok).To(BeTrue())
		Expect(got).To(Equal(32))
	})

	It("rejects a non-contiguous mask", func() {
		_, ok := netutil.Ipv4VerifyIpAndGetBitcount("255.0.255.0")
		Expect(ok).To(BeFalse())
	})

	It("rejects an out-of-range octet", func() {
		_, ok := netutil.Ipv4VerifyIpAndGetBitcount("255.255.256.0")
		Expect(ok).To(BeFalse())
	})

	It("rejects a non-IP string", func() {
		_, ok := netutil.Ipv4VerifyIpAndGetBitcount("not-an-ip")
		Expect(ok).To(BeFalse())
	})
})
