package service_test

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/steveluke1457/Mr-Bot/internal/conversation"
	"github.com/steveluke1457/Mr-Bot/internal/cooldown"
	"github.com/steveluke1457/Mr-Bot/internal/llm"
	"github.com/steveluke1457/Mr-Bot/internal/model"
	"github.com/steveluke1457/Mr-Bot/internal/platform"
	"github.com/steveluke1457/Mr-Bot/internal/platform/platformtest"
	"github.com/steveluke1457/Mr-Bot/internal/scheduler"
	"github.com/steveluke1457/Mr-Bot/internal/service"
	"github.com/steveluke1457/Mr-Bot/internal/ticket"
	"github.com/steveluke1457/Mr-Bot/pkg/logger"
)

type fixedClient struct {
	reply string
	err   error
}

func (c *fixedClient) Name() string { return "fixed" }

func (c *fixedClient) Complete(context.Context, *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if c.err != nil {
		return nil, c.err
	}
	return &llm.CompletionResponse{Content: c.reply}, nil
}

// blockingClient holds every completion until release is closed.
type blockingClient struct {
	entered chan struct{}
	release chan struct{}
}

func (c *blockingClient) Name() string { return "blocking" }

func (c *blockingClient) Complete(ctx context.Context, _ *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	c.entered <- struct{}{}
	select {
	case <-c.release:
		return &llm.CompletionResponse{Content: "done"}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

var _ = Describe("SupportService", func() {
	var (
		ctx     context.Context
		clock   *clockwork.FakeClock
		plat    *platformtest.Recorder
		client  *fixedClient
		manager *ticket.Manager
		buf     *conversation.Buffer
		svc     *service.SupportService
		alice   model.Actor
	)

	BeforeEach(func() {
		ctx = context.Background()
		clock = clockwork.NewFakeClockAt(time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC))
		plat = platformtest.NewRecorder()
		client = &fixedClient{reply: "How can I help?"}
		alice = model.Actor{ID: "100", Name: "alice"}

		sched := scheduler.NewDelayed(clock, logger.NewNop())
		DeferCleanup(sched.Stop)

		manager = ticket.NewManager(ticket.Config{
			Naming:          platform.NamePerActorID,
			Greeting:        "welcome",
			ClosingNotice:   "🔒 Ticket closed. Thank you!",
			CloseGrace:      3 * time.Second,
			SuspendDuration: 10 * time.Minute,
		}, cooldown.NewGuard(10*time.Second), plat, sched, clock, nil, logger.NewNop())

		buf = conversation.NewBuffer(conversation.DefaultConfig(), client, clock, logger.NewNop())
		svc = service.NewSupportService(service.SupportConfig{
			ChunkMaxLen:     20,
			SuspendDuration: 10 * time.Minute,
			ForceCloseGrace: 3 * time.Second,
		}, manager, buf, plat, logger.NewNop())
	})

	openTicket := func() string {
		reply := svc.OpenTicket(ctx, alice)
		Expect(reply.Content).To(Equal(service.ReplyTicketCreated))
		sess, ok := manager.SessionForOwner(alice.ID)
		Expect(ok).To(BeTrue())
		return sess.ChannelID
	}

	Describe("OpenTicket", func() {
		It("creates a ticket and reports an existing one", func() {
			openTicket()

			clock.Advance(time.Minute)
			reply := svc.OpenTicket(ctx, alice)
			Expect(reply).To(Equal(model.Reply{Content: service.ReplyAlreadyOpen, Ephemeral: true}))
		})

		It("reports the suspension on spam", func() {
			openTicket()
			clock.Advance(2 * time.Second)

			reply := svc.OpenTicket(ctx, alice)
			Expect(reply.Content).To(Equal("⛔ You were spamming tickets and have been timed out for 10 minutes."))
			Expect(reply.Ephemeral).To(BeTrue())
		})

		It("drops the conversation of a ticket closed for spam", func() {
			channelID := openTicket()
			Expect(svc.HandleMessage(ctx, model.InboundMessage{ChannelID: channelID, Author: alice, Content: "hi"})).To(Succeed())
			Expect(buf.Len()).To(Equal(1))

			clock.Advance(2 * time.Second)
			svc.OpenTicket(ctx, alice)
			Expect(buf.Len()).To(BeZero())
		})

		It("warns when the suspension could not be applied", func() {
			plat.FailSuspend(true)
			openTicket()
			clock.Advance(2 * time.Second)

			Expect(svc.OpenTicket(ctx, alice).Content).To(Equal(service.ReplySpamDegraded))
		})

		It("reports a failed channel creation", func() {
			plat.FailCreate(true)
			Expect(svc.OpenTicket(ctx, alice).Content).To(Equal(service.ReplyCreateFailed))
		})
	})

	Describe("close flow", func() {
		It("asks for confirmation, then closes", func() {
			channelID := openTicket()

			reply := svc.RequestClose(ctx, channelID)
			Expect(reply.Content).To(Equal(service.ReplyConfirmClose))
			Expect(reply.Prompt).To(Equal(model.PromptConfirmClose))

			Expect(svc.ConfirmClose(ctx, channelID)).To(Equal(model.Reply{}))
			Expect(plat.MessagesIn(channelID)).To(ContainElement("🔒 Ticket closed. Thank you!"))

			clock.Advance(3 * time.Second)
			Eventually(plat.Deleted).Should(ConsistOf(channelID))
		})

		It("cancels a pending close", func() {
			channelID := openTicket()
			svc.RequestClose(ctx, channelID)

			Expect(svc.CancelClose(ctx, channelID).Content).To(Equal(service.ReplyCloseCancelled))
			Expect(svc.ConfirmClose(ctx, channelID).Content).To(Equal(service.ReplyNoPendingClose))
		})

		Context("while a reply is being generated", func() {
			var slow *blockingClient

			BeforeEach(func() {
				slow = &blockingClient{entered: make(chan struct{}, 1), release: make(chan struct{})}
				buf = conversation.NewBuffer(conversation.DefaultConfig(), slow, clock, logger.NewNop())
				svc = service.NewSupportService(service.SupportConfig{
					ChunkMaxLen:     20,
					SuspendDuration: 10 * time.Minute,
					ForceCloseGrace: 3 * time.Second,
				}, manager, buf, plat, logger.NewNop())
			})

			closesPromptly := func(closeFn func(channelID string) model.Reply) {
				channelID := openTicket()

				handled := make(chan struct{})
				go func() {
					defer GinkgoRecover()
					defer close(handled)
					Expect(svc.HandleMessage(ctx, model.InboundMessage{ChannelID: channelID, Author: alice, Content: "hi"})).To(Succeed())
				}()
				Eventually(slow.entered).Should(Receive())

				closed := make(chan model.Reply, 1)
				go func() {
					defer GinkgoRecover()
					closed <- closeFn(channelID)
				}()
				Eventually(closed, 500*time.Millisecond).Should(Receive())

				close(slow.release)
				Eventually(handled).Should(BeClosed())
				_, ok := manager.Session(channelID)
				Expect(ok).To(BeFalse())
			}

			It("confirms a close without waiting for the reply", func() {
				closesPromptly(func(channelID string) model.Reply {
					svc.RequestClose(ctx, channelID)
					return svc.ConfirmClose(ctx, channelID)
				})
			})

			It("force-closes without waiting for the reply", func() {
				closesPromptly(func(channelID string) model.Reply {
					reply, err := svc.ForceClose(ctx, channelID, model.Actor{ID: "mod"})
					Expect(err).NotTo(HaveOccurred())
					return reply
				})
			})
		})

		It("answers outside ticket channels", func() {
			Expect(svc.RequestClose(ctx, "general").Content).To(Equal(service.ReplyNotATicket))

			reply, err := svc.ForceClose(ctx, "general", model.Actor{ID: "mod"})
			Expect(err).To(MatchError(ticket.ErrNotATicketChannel))
			Expect(reply.Content).To(Equal(service.ReplyNotATicket))
		})

		It("closes on behalf of a moderator", func() {
			channelID := openTicket()

			reply, err := svc.ForceClose(ctx, channelID, model.Actor{ID: "mod"})
			Expect(err).NotTo(HaveOccurred())
			Expect(reply.Content).To(Equal("✅ Ticket will be closed in 3 seconds..."))
			Expect(reply.Ephemeral).To(BeFalse())

			clock.Advance(3 * time.Second)
			Eventually(plat.Deleted).Should(ConsistOf(channelID))
		})
	})

	Describe("HandleMessage", func() {
		It("ignores messages outside ticket channels", func() {
			Expect(svc.HandleMessage(ctx, model.InboundMessage{ChannelID: "general", Author: alice, Content: "hi"})).To(Succeed())
			Expect(plat.Messages()).To(BeEmpty())
		})

		It("touches the session and sends the reply", func() {
			channelID := openTicket()
			clock.Advance(time.Hour)

			Expect(svc.HandleMessage(ctx, model.InboundMessage{ChannelID: channelID, Author: alice, Content: "hi"})).To(Succeed())

			sess, _ := manager.Session(channelID)
			Expect(sess.LastActivityAt).To(Equal(clock.Now()))
			Expect(plat.MessagesIn(channelID)).To(Equal([]string{"welcome", "How can I help?"}))
		})

		It("splits long replies into ordered chunks", func() {
			client.reply = strings.Join([]string{"first line", "second line", "third line"}, "\n")
			channelID := openTicket()

			Expect(svc.HandleMessage(ctx, model.InboundMessage{ChannelID: channelID, Author: alice, Content: "hi"})).To(Succeed())
			Expect(plat.MessagesIn(channelID)).To(Equal([]string{"welcome", "first line", "second line", "third line"}))
		})

		It("sends the failure text when the completion fails", func() {
			client.err = errors.New("boom")
			channelID := openTicket()

			Expect(svc.HandleMessage(ctx, model.InboundMessage{ChannelID: channelID, Author: alice, Content: "hi"})).To(Succeed())
			Expect(plat.MessagesIn(channelID)).To(ContainElement("⚠️ Sorry, I am currently unable to respond."))
		})
	})
})
