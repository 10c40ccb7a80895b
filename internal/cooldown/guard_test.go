package cooldown_test

import (
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/steveluke1457/Mr-Bot/internal/cooldown"
)

var _ = Describe("Guard", func() {
	var (
		guard *cooldown.Guard
		t0    time.Time
	)

	BeforeEach(func() {
		guard = cooldown.NewGuard(10 * time.Second)
		t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	})

	It("allows the first action and violates a second one inside the window", func() {
		Expect(guard.Check("alice", t0)).To(Equal(cooldown.Allowed))
		Expect(guard.Check("alice", t0.Add(2*time.Second))).To(Equal(cooldown.Violated))
	})

	It("allows again once the window has elapsed", func() {
		Expect(guard.Check("alice", t0)).To(Equal(cooldown.Allowed))
		Expect(guard.Check("alice", t0.Add(10*time.Second))).To(Equal(cooldown.Allowed))
	})

	It("does not extend the window on a violation", func() {
		guard.Check("alice", t0)
		Expect(guard.Check("alice", t0.Add(9*time.Second))).To(Equal(cooldown.Violated))
		Expect(guard.Check("alice", t0.Add(10*time.Second))).To(Equal(cooldown.Allowed))
	})

	It("tracks actors independently", func() {
		Expect(guard.Check("alice", t0)).To(Equal(cooldown.Allowed))
		Expect(guard.Check("bob", t0)).To(Equal(cooldown.Allowed))
	})

	It("allows everything when disabled", func() {
		disabled := cooldown.NewGuard(0)
		Expect(disabled.Check("alice", t0)).To(Equal(cooldown.Allowed))
		Expect(disabled.Check("alice", t0)).To(Equal(cooldown.Allowed))
		Expect(disabled.Len()).To(BeZero())
	})

	It("prunes only expired records", func() {
		guard.Check("alice", t0)
		guard.Check("bob", t0.Add(5*time.Second))

		Expect(guard.Prune(t0.Add(12 * time.Second))).To(Equal(1))
		Expect(guard.Len()).To(Equal(1))
		Expect(guard.Check("bob", t0.Add(12*time.Second))).To(Equal(cooldown.Violated))
	})

	It("lets exactly one of many concurrent checks through", func() {
		var allowed atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 64; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if guard.Check("alice", t0) == cooldown.Allowed {
					allowed.Add(1)
				}
			}()
		}
		wg.Wait()
		Expect(allowed.Load()).To(Equal(int32(1)))
	})
})
