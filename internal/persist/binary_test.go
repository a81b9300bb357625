package persist_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/openbmc-project/bmcweb-core/internal/authconfig"
	"github.com/openbmc-project/bmcweb-core/internal/persist"
	"github.com/openbmc-project/bmcweb-core/internal/session"
)

var _ = Describe("binary snapshot", func() {
	It("round-trips a document through the CBOR codec", func() {
		doc := persist.Document{
			Configuration: authconfig.Default(),
			Sessions: []persist.SessionRecord{{
				UniqueId:     "u123456789",
				SessionToken: "t1234567890123456789",
				CSRFToken:    "c1234567890123456789",
				Username:     "root",
				ClientIp:     "10.0.0.1",
			}},
		}

		raw, err := persist.EncodeBinary(doc)
		Expect(err).NotTo(HaveOccurred())

		got, err := persist.DecodeBinary(raw)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Sessions).To(HaveLen(1))
		Expect(got.Sessions[0].Username).To(Equal("root"))
		Expect(got.Configuration.TLS).To(Equal(doc.Configuration.TLS))
	})

	It("falls back to the CBOR snapshot when the JSON document is unreadable", func() {
		dir := GinkgoT().TempDir()
		path := filepath.Join(dir, "state.json")

		doc := persist.Document{
			Configuration: authconfig.Default(),
			Sessions: []persist.SessionRecord{{
				UniqueId:     "u123456789",
				SessionToken: "t1234567890123456789",
				CSRFToken:    "c1234567890123456789",
				Username:     "root",
				ClientIp:     "10.0.0.1",
			}},
		}
		Expect(persist.SaveFile(path, doc)).To(Succeed())

		// corrupt the JSON form only
		Expect(os.WriteFile(path, []byte("{torn"), 0600)).To(Succeed())

		got, sessions, err := persist.LoadFile(path, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Sessions).To(HaveLen(1))
		Expect(sessions).To(HaveLen(1))
		Expect(sessions[0].SessionType).To(Equal(session.Session))
	})
})
