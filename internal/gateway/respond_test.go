package gateway_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/openbmc-project/bmcweb-core/internal/gateway"
)

var _ = Describe("WriteJSON", func() {
	payload := map[string]interface{}{
		"Name":  "Root Service",
		"Count": 2,
	}

	It("serializes indented JSON by default", func() {
		req := httptest.NewRequest(http.MethodGet, "/redfish/v1", nil)
		rec := httptest.NewRecorder()
		gateway.WriteJSON(rec, req, http.StatusOK, payload)

		Expect(rec.Header().Get("Content-Type")).To(Equal("application/json"))
		Expect(rec.Body.String()).To(ContainSubstring("\n  \"Count\""))

		var got map[string]interface{}
		Expect(json.Unmarshal(rec.Body.Bytes(), &got)).To(Succeed())
		Expect(got).To(HaveKeyWithValue("Name", "Root Service"))
	})

	It("renders an HTML table when the client prefers HTML", func() {
		req := httptest.NewRequest(http.MethodGet, "/redfish/v1", nil)
		req.Header.Set("Accept", "text/html,application/xhtml+xml")
		rec := httptest.NewRecorder()
		gateway.WriteJSON(rec, req, http.StatusOK, payload)

		Expect(rec.Header().Get("Content-Type")).To(ContainSubstring("text/html"))
		Expect(rec.Body.String()).To(ContainSubstring("<table>"))
		Expect(rec.Body.String()).To(ContainSubstring("Root Service"))
	})

	It("never writes a body for 204", func() {
		req := httptest.NewRequest(http.MethodGet, "/redfish/v1", nil)
		rec := httptest.NewRecorder()
		gateway.WriteJSON(rec, req, http.StatusNoContent, payload)

		Expect(rec.Code).To(Equal(http.StatusNoContent))
		Expect(rec.Body.Len()).To(BeZero())
	})

	It("escapes values in the HTML rendering", func() {
		req := httptest.NewRequest(http.MethodGet, "/redfish/v1", nil)
		req.Header.Set("Accept", "text/html")
		rec := httptest.NewRecorder()
		gateway.WriteJSON(rec, req, http.StatusOK, map[string]interface{}{
			"Name": "<script>alert(1)</script>",
		})

		Expect(rec.Body.String()).NotTo(ContainSubstring("<script>"))
	})
})
