package authconfig_test

import (
	"encoding/json"
	"fmt"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/openbmc-project/bmcweb-core/internal/authconfig"
	"github.com/openbmc-project/bmcweb-core/internal/mtlsmode"
)

func TestAuthConfig(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "authconfig suite")
}

var _ = Describe("Methods", func() {
	It("accepts every known mTLS parse mode value", func() {
		for _, v := range []int{0, 1, 2, 3, 100} {
			doc := fmt.Sprintf(`{"XToken":true,"MTLSCommonNameParseMode":%d}`, v)
			var m authconfig.Methods
			Expect(json.Unmarshal([]byte(doc), &m)).To(Succeed())
			Expect(int(m.MTLSCommonNameParseMode)).To(Equal(v))
		}
	})

	It("leaves the field unchanged for an out-of-range value", func() {
		m := authconfig.Methods{MTLSCommonNameParseMode: mtlsmode.UserPrincipalName}
		Expect(m.UnmarshalJSONWithLog([]byte(`{"MTLSCommonNameParseMode":7}`), nil)).To(Succeed())
		Expect(m.MTLSCommonNameParseMode).To(Equal(mtlsmode.UserPrincipalName))
	})
})
