package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/openbmc-project/bmcweb-core/errors"
)

func TestErrors(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "errors suite")
}

const (
	errTestFirst errors.CodeError = iota + errors.MinPkgRouterFacade + 50
	errTestSecond
)

func init() {
	errors.RegisterIdFctMessage(errTestFirst, func(code errors.CodeError) string {
		switch code {
		case errTestFirst:
			return "test: first failure"
		case errTestSecond:
			return "test: second failure"
		}
		return ""
	})
}

var _ = Describe("CodeError", func() {
	It("resolves registered messages by code", func() {
		Expect(errTestFirst.Message()).To(Equal("test: first failure"))
		Expect(errTestSecond.Message()).To(Equal("test: second failure"))
	})

	It("reports the unknown message for an unclaimed code", func() {
		Expect(errors.CodeError(9999).Message()).To(Equal(errors.UnknownMessage))
	})

	It("builds an error carrying its code", func() {
		err := errTestFirst.Error(nil)
		Expect(err.Code()).To(Equal(errTestFirst))
		Expect(err.HasParent()).To(BeFalse())
		Expect(err.Error()).To(Equal("test: first failure"))
	})
})

var _ = Describe("Error chaining", func() {
	It("renders parents after the message and drops nils", func() {
		cause := fmt.Errorf("file missing")
		err := errTestFirst.Error(nil, cause)

		Expect(err.HasParent()).To(BeTrue())
		Expect(err.Error()).To(Equal("test: first failure: file missing"))
	})

	It("exposes the chain to errors.Is", func() {
		cause := stderrors.New("root cause")
		err := errTestSecond.Error(cause)

		Expect(stderrors.Is(err, cause)).To(BeTrue())
	})

	It("accumulates parents added after construction", func() {
		err := errTestFirst.Error(nil)
		err.Add(fmt.Errorf("one"), nil, fmt.Errorf("two"))

		Expect(err.Error()).To(Equal("test: first failure: one: two"))
	})
})
