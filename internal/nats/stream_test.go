package nats_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/steveluke1457/Mr-Bot/internal/model"
	"github.com/steveluke1457/Mr-Bot/internal/nats"
)

var _ = Describe("subjects", func() {
	It("routes events by owner and type", func() {
		Expect(nats.EventSubject("100", model.EventTicketOpened)).To(Equal("tickets.100.opened"))
		Expect(nats.EventSubject("100", model.EventSpamBlocked)).To(Equal("tickets.100.spam_blocked"))
	})

	It("keeps owner ids to a single token", func() {
		Expect(nats.EventSubject("a.b*c>", model.EventTicketClosed)).To(Equal("tickets.a_b_c_.closed"))
		Expect(nats.EventSubject("", model.EventTicketClosed)).To(Equal("tickets._.closed"))
	})

	It("filters by owner or across all owners", func() {
		Expect(nats.OwnerFilter("100")).To(Equal("tickets.100.>"))
		Expect(nats.OwnerFilter("")).To(Equal("tickets.>"))
	})
})
