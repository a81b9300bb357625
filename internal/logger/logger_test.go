package logger_test

import (
	"bytes"
	"errors"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/openbmc-project/bmcweb-core/internal/logger"
)

func TestLogger(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "logger suite")
}

var _ = Describe("Logger", func() {
	It("writes a JSON line carrying the message, fields and error", func() {
		var buf bytes.Buffer
		l := logger.New(&buf, logger.DebugLevel)

		l.Entry(logger.WarnLevel, "cert reload failed").
			FieldAdd("hostname", "bmc-0").
			ErrorAdd(errors.New("boom")).
			Log()

		out := buf.String()
		Expect(out).To(ContainSubstring("cert reload failed"))
		Expect(out).To(ContainSubstring("bmc-0"))
		Expect(out).To(ContainSubstring("boom"))
	})

	It("Check reports whether the entry is at least as severe as the threshold", func() {
		var buf bytes.Buffer
		l := logger.New(&buf, logger.DebugLevel)

		errEntry := l.Entry(logger.ErrorLevel, "x")
		Expect(errEntry.Check(logger.WarnLevel)).To(BeTrue(), "error is more severe than warn")
		Expect(errEntry.Check(logger.PanicLevel)).To(BeFalse(), "error is less severe than panic")
	})
})
