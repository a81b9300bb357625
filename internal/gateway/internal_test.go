package gateway

import (
	"net"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/openbmc-project/bmcweb-core/internal/timerqueue"
)

var _ = Describe("dateCache", func() {
	It("recomputes the cached string at most once per refresh window", func() {
		now := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
		cache := newDateCache(func() time.Time { return now })

		first := cache.Get()
		Expect(first).To(Equal("Fri, 01 Mar 2024 12:00:00 GMT"))

		now = now.Add(5 * time.Second)
		Expect(cache.Get()).To(Equal(first))

		now = now.Add(6 * time.Second)
		Expect(cache.Get()).To(Equal("Fri, 01 Mar 2024 12:00:11 GMT"))
	})
})

var _ = Describe("watchdog", func() {
	var (
		now    time.Time
		queue  *timerqueue.Queue
		dog    *watchdog
		track  *connTrack
		remote net.Conn
	)

	BeforeEach(func() {
		now = time.Now()
		queue = timerqueue.NewWithClock(func() time.Time { return now })
		dog = newWatchdog(queue, nil)

		var local net.Conn
		local, remote = net.Pipe()
		track = newConnTrack(local)
	})

	AfterEach(func() {
		_ = remote.Close()
	})

	It("closes the socket once the step budget is spent", func() {
		_, ok := dog.arm(track, 1)
		Expect(ok).To(BeTrue())

		now = now.Add(timerqueue.StepTimeout + time.Second)
		queue.Process(now)

		track.mu.Lock()
		closed := track.closed
		track.mu.Unlock()
		Expect(closed).To(BeTrue())

		buf := make([]byte, 1)
		_, err := remote.Read(buf)
		Expect(err).To(HaveOccurred())
	})

	It("re-arms intermediate steps without closing", func() {
		_, ok := dog.arm(track, 2)
		Expect(ok).To(BeTrue())

		now = now.Add(timerqueue.StepTimeout + time.Second)
		queue.Process(now)
		Expect(queue.Len()).To(Equal(1))

		track.mu.Lock()
		closed := track.closed
		track.mu.Unlock()
		Expect(closed).To(BeFalse())
	})

	It("disarm prevents the pending step from firing", func() {
		armed, ok := dog.arm(track, 1)
		Expect(ok).To(BeTrue())
		armed.disarm()

		now = now.Add(timerqueue.StepTimeout + time.Second)
		queue.Process(now)

		track.mu.Lock()
		closed := track.closed
		track.mu.Unlock()
		Expect(closed).To(BeFalse())
	})

	It("refuses to arm when the queue is saturated", func() {
		for i := 0; i < timerqueue.MaxSize; i++ {
			_, ok := queue.Add(func() {})
			Expect(ok).To(BeTrue())
		}
		_, ok := dog.arm(track, 1)
		Expect(ok).To(BeFalse())
	})
})
