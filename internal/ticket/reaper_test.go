package ticket_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/steveluke1457/Mr-Bot/internal/model"
	"github.com/steveluke1457/Mr-Bot/internal/ticket"
	"github.com/steveluke1457/Mr-Bot/pkg/logger"
)

var _ = Describe("Reaper", func() {
	var (
		f      *fixture
		ctx    context.Context
		reaper *ticket.Reaper
		cfg    ticket.ReaperConfig
	)

	BeforeEach(func() {
		ctx = context.Background()
		f = newFixture(10 * time.Second)
		cfg = ticket.DefaultReaperConfig()
		reaper = ticket.NewReaper(f.manager, cfg, f.clock, logger.NewNop())
	})

	It("closes a ticket idle past the threshold without confirmation", func() {
		res, err := f.manager.RequestOpen(ctx, alice)
		Expect(err).NotTo(HaveOccurred())
		channelID := res.Session.ChannelID
		Expect(f.manager.Touch(channelID)).To(Succeed())

		f.clock.Advance(cfg.IdleThreshold)
		Expect(reaper.Sweep(ctx)).To(BeEmpty())

		f.clock.Advance(time.Second)
		closed := reaper.Sweep(ctx)
		Expect(closed).To(HaveLen(1))
		Expect(closed[0].ChannelID).To(Equal(channelID))
		Expect(closed[0].State).To(Equal(model.TicketClosed))

		Expect(f.plat.MessagesIn(channelID)).To(ContainElement(cfg.Notice))
		Expect(f.manager.Sessions()).To(BeEmpty())
		Expect(reaper.Sweep(ctx)).To(BeEmpty())

		f.clock.Advance(cfg.Grace)
		Eventually(f.plat.Deleted).Should(ConsistOf(channelID))
		Expect(f.events.Types()).To(ContainElement(model.EventTicketReaped))
	})

	It("keeps tickets with recent activity", func() {
		bob := model.Actor{ID: "200", Name: "bob"}

		stale, err := f.manager.RequestOpen(ctx, alice)
		Expect(err).NotTo(HaveOccurred())
		fresh, err := f.manager.RequestOpen(ctx, bob)
		Expect(err).NotTo(HaveOccurred())

		f.clock.Advance(6 * time.Hour)
		Expect(f.manager.Touch(fresh.Session.ChannelID)).To(Succeed())
		f.clock.Advance(7 * time.Hour)

		closed := reaper.Sweep(ctx)
		Expect(closed).To(HaveLen(1))
		Expect(closed[0].ChannelID).To(Equal(stale.Session.ChannelID))

		_, ok := f.manager.Session(fresh.Session.ChannelID)
		Expect(ok).To(BeTrue())
	})

	It("sweeps on every interval tick until stopped", func() {
		res, err := f.manager.RequestOpen(ctx, alice)
		Expect(err).NotTo(HaveOccurred())
		f.clock.Advance(13 * time.Hour)

		runCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go reaper.Run(runCtx)

		Expect(f.clock.BlockUntilContext(runCtx, 1)).To(Succeed())
		f.clock.Advance(cfg.Interval)

		Eventually(f.manager.Sessions).Should(BeEmpty())
		Eventually(func() []string { return f.plat.MessagesIn(res.Session.ChannelID) }).
			Should(ContainElement(cfg.Notice))

		reaper.Stop()
	})
})
