package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/golang-jwt/jwt/v5"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/steveluke1457/Mr-Bot/internal/handler"
	"github.com/steveluke1457/Mr-Bot/internal/middleware"
	"github.com/steveluke1457/Mr-Bot/internal/model"
	"github.com/steveluke1457/Mr-Bot/internal/scheduler"
	"github.com/steveluke1457/Mr-Bot/internal/ticket"
	"github.com/steveluke1457/Mr-Bot/pkg/logger"
)

const jwtSecret = "router-secret"

type fakeTickets struct {
	sessions []model.TicketSession
	closed   []string
	closedBy []string
	closeErr error
}

func (f *fakeTickets) Sessions() []model.TicketSession { return f.sessions }

func (f *fakeTickets) Session(channelID string) (model.TicketSession, bool) {
	for _, s := range f.sessions {
		if s.ChannelID == channelID {
			return s, true
		}
	}
	return model.TicketSession{}, false
}

func (f *fakeTickets) ForceClose(_ context.Context, channelID string, moderator model.Actor) (model.Reply, error) {
	if _, ok := f.Session(channelID); !ok {
		return model.Reply{Content: "localized not-a-ticket text", Ephemeral: true},
			fmt.Errorf("close %s: %w", channelID, ticket.ErrNotATicketChannel)
	}
	if f.closeErr != nil {
		return model.Reply{Content: "localized failure text", Ephemeral: true}, f.closeErr
	}
	f.closed = append(f.closed, channelID)
	f.closedBy = append(f.closedBy, moderator.ID)
	return model.Reply{Content: "✅ Ticket will be closed in 3 seconds..."}, nil
}

type fakeEvents struct {
	owner string
	after uint64
	limit int
	err   error
}

func (f *fakeEvents) RecentEvents(_ context.Context, ownerID string, after uint64, limit int) ([]model.TicketEvent, uint64, error) {
	f.owner, f.after, f.limit = ownerID, after, limit
	if f.err != nil {
		return nil, 0, f.err
	}
	return []model.TicketEvent{{ID: "e1", Type: model.EventTicketOpened, OwnerID: "100"}}, after + 1, nil
}

type fakeTasks []scheduler.TaskInfo

func (f fakeTasks) Pending() []scheduler.TaskInfo { return f }

type fakeJobs int

func (f fakeJobs) JobCount() int { return int(f) }

var _ = Describe("Router", func() {
	var (
		tickets   *fakeTickets
		events    *fakeEvents
		connected bool
		router    http.Handler
	)

	build := func(src handler.EventSource) http.Handler {
		return handler.NewRouter(handler.RouterConfig{
			JWTSecret:         jwtSecret,
			RateLimitRequests: 1000,
			RateLimitWindow:   time.Minute,
		}, handler.Handlers{
			Health: handler.NewHealthHandler(map[string]handler.Checker{
				"gateway": handler.CheckerFunc(func() bool { return connected }),
				"nats":    nil,
			}),
			Tickets: handler.NewTicketHandler(tickets, tickets, src, logger.NewNop()),
			Scheduled: handler.NewScheduledHandler(
				fakeTasks{{ID: 1, Name: "delete-channel:c1", Due: time.Date(2026, 1, 1, 0, 0, 3, 0, time.UTC)}},
				fakeJobs(2),
			),
		}, logger.NewNop())
	}

	BeforeEach(func() {
		connected = true
		opened := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
		tickets = &fakeTickets{sessions: []model.TicketSession{
			{ID: "t1", OwnerID: "100", ChannelID: "c1", State: model.TicketOpen, OpenedAt: opened, LastActivityAt: opened},
		}}
		events = &fakeEvents{}
		router = build(events)
	})

	bearer := func(scopes ...string) string {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, middleware.Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "mod-1",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
			Scopes: scopes,
		})
		signed, err := token.SignedString([]byte(jwtSecret))
		Expect(err).NotTo(HaveOccurred())
		return "Bearer " + signed
	}

	do := func(method, path, authorization string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, nil)
		if authorization != "" {
			req.Header.Set("Authorization", authorization)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	decode := func(rec *httptest.ResponseRecorder, v any) {
		Expect(json.Unmarshal(rec.Body.Bytes(), v)).To(Succeed())
	}

	Describe("health", func() {
		It("reports readiness from the dependency checks", func() {
			Expect(do(http.MethodGet, "/health", "").Code).To(Equal(http.StatusOK))
			Expect(do(http.MethodGet, "/ready", "").Code).To(Equal(http.StatusOK))

			connected = false
			rec := do(http.MethodGet, "/ready", "")
			Expect(rec.Code).To(Equal(http.StatusServiceUnavailable))
			Expect(rec.Body.String()).To(ContainSubstring("gateway not connected"))
		})
	})

	Describe("tickets", func() {
		It("requires authentication", func() {
			Expect(do(http.MethodGet, "/api/v1/tickets", "").Code).To(Equal(http.StatusUnauthorized))
		})

		It("lists live tickets", func() {
			rec := do(http.MethodGet, "/api/v1/tickets", bearer())
			Expect(rec.Code).To(Equal(http.StatusOK))

			var body struct {
				Tickets []map[string]any `json:"tickets"`
				Total   int              `json:"total"`
			}
			decode(rec, &body)
			Expect(body.Total).To(Equal(1))
			Expect(body.Tickets[0]).To(HaveKeyWithValue("channel_id", "c1"))
			Expect(body.Tickets[0]).To(HaveKeyWithValue("state", "open"))
		})

		It("gets one ticket", func() {
			Expect(do(http.MethodGet, "/api/v1/tickets/c1", bearer()).Code).To(Equal(http.StatusOK))
			Expect(do(http.MethodGet, "/api/v1/tickets/nope", bearer()).Code).To(Equal(http.StatusNotFound))
		})

		It("closes a ticket only with the close scope", func() {
			Expect(do(http.MethodDelete, "/api/v1/tickets/c1", bearer()).Code).To(Equal(http.StatusForbidden))

			rec := do(http.MethodDelete, "/api/v1/tickets/c1", bearer(middleware.ScopeTicketsClose))
			Expect(rec.Code).To(Equal(http.StatusAccepted))
			Expect(tickets.closed).To(Equal([]string{"c1"}))
			Expect(tickets.closedBy).To(Equal([]string{"mod-1"}))
		})

		It("answers 404 when closing an unknown channel", func() {
			rec := do(http.MethodDelete, "/api/v1/tickets/general", bearer(middleware.ScopeTicketsClose))
			Expect(rec.Code).To(Equal(http.StatusNotFound))
		})

		It("answers 500 when the close fails, whatever the reply text", func() {
			tickets.closeErr = errors.New("channel delete failed")
			rec := do(http.MethodDelete, "/api/v1/tickets/c1", bearer(middleware.ScopeTicketsClose))
			Expect(rec.Code).To(Equal(http.StatusInternalServerError))
			Expect(tickets.closed).To(BeEmpty())
		})
	})

	Describe("events", func() {
		It("passes the query to the event source", func() {
			rec := do(http.MethodGet, "/api/v1/events?owner=100&after=7&limit=10", bearer())
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(events.owner).To(Equal("100"))
			Expect(events.after).To(Equal(uint64(7)))
			Expect(events.limit).To(Equal(10))

			var body handler.EventListResponse
			decode(rec, &body)
			Expect(body.Events).To(HaveLen(1))
			Expect(body.LastSequence).To(Equal(uint64(8)))
		})

		It("rejects a malformed sequence", func() {
			Expect(do(http.MethodGet, "/api/v1/events?after=x", bearer()).Code).To(Equal(http.StatusBadRequest))
		})

		It("reports source failures", func() {
			events.err = errors.New("stream down")
			Expect(do(http.MethodGet, "/api/v1/events", bearer()).Code).To(Equal(http.StatusInternalServerError))
		})

		It("is unavailable without an event stream", func() {
			router = build(nil)
			Expect(do(http.MethodGet, "/api/v1/events", bearer()).Code).To(Equal(http.StatusServiceUnavailable))
		})
	})

	It("lists scheduled work", func() {
		rec := do(http.MethodGet, "/api/v1/scheduled", bearer())
		Expect(rec.Code).To(Equal(http.StatusOK))

		var body handler.ScheduledResponse
		decode(rec, &body)
		Expect(body.CronJobs).To(Equal(2))
		Expect(body.Pending).To(HaveLen(1))
		Expect(body.Pending[0].Name).To(Equal("delete-channel:c1"))
	})
})
