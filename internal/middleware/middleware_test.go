package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/steveluke1457/Mr-Bot/internal/middleware"
	"github.com/steveluke1457/Mr-Bot/pkg/logger"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

var _ = Describe("Logging", func() {
	It("propagates an incoming correlation id", func() {
		var seen string
		h := middleware.Logging(logger.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = middleware.GetCorrelationID(r.Context())
		}))

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("X-Correlation-ID", "abc-123")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		Expect(seen).To(Equal("abc-123"))
		Expect(rec.Header().Get("X-Correlation-ID")).To(Equal("abc-123"))
	})

	It("generates one when absent", func() {
		rec := httptest.NewRecorder()
		middleware.Logging(logger.NewNop())(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		Expect(rec.Header().Get("X-Correlation-ID")).To(HaveLen(36))
	})
})

var _ = Describe("SecurityHeaders", func() {
	It("sets the response headers", func() {
		rec := httptest.NewRecorder()
		middleware.SecurityHeaders(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		Expect(rec.Header().Get("X-Content-Type-Options")).To(Equal("nosniff"))
		Expect(rec.Header().Get("X-Frame-Options")).To(Equal("DENY"))
	})
})

var _ = Describe("RateLimit", func() {
	It("rejects requests over the limit per client", func() {
		h := middleware.RateLimit(2, time.Minute)(ok)

		do := func(remote string) int {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = remote
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			return rec.Code
		}

		Expect(do("10.0.0.1:4000")).To(Equal(http.StatusOK))
		Expect(do("10.0.0.1:4001")).To(Equal(http.StatusOK))
		Expect(do("10.0.0.1:4002")).To(Equal(http.StatusTooManyRequests))
		Expect(do("10.0.0.2:4000")).To(Equal(http.StatusOK))
	})
})

var _ = Describe("ID validation", func() {
	It("accepts platform ids", func() {
		Expect(middleware.ValidateChannelID("1234567890")).To(Succeed())
		Expect(middleware.ValidateActorID("100")).To(Succeed())
	})

	DescribeTable("rejects malformed ids",
		func(id string) {
			Expect(middleware.ValidateChannelID(id)).NotTo(Succeed())
		},
		Entry("empty", ""),
		Entry("too long", strings.Repeat("9", 65)),
		Entry("whitespace", "12 34"),
		Entry("slash", "12/34"),
		Entry("subject wildcard", "12.>"),
	)
})
