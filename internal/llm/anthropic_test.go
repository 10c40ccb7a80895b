package llm_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/anthropics/anthropic-sdk-go/option"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/steveluke1457/Mr-Bot/internal/llm"
)

type anthropicRequest struct {
	Model  string `json:"model"`
	System []struct {
		Text string `json:"text"`
	} `json:"system"`
	Messages []struct {
		Role    string `json:"role"`
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	} `json:"messages"`
}

var _ = Describe("AnthropicClient", func() {
	var (
		server   *httptest.Server
		received anthropicRequest
		client   *llm.AnthropicClient
	)

	BeforeEach(func() {
		received = anthropicRequest{}
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			Expect(r.URL.Path).To(Equal("/v1/messages"))
			Expect(json.NewDecoder(r.Body).Decode(&received)).To(Succeed())

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{
				"id": "msg_1",
				"type": "message",
				"role": "assistant",
				"model": "claude-test",
				"content": [{"type": "text", "text": " Sure. "}],
				"stop_reason": "end_turn",
				"usage": {"input_tokens": 9, "output_tokens": 2}
			}`))
		}))
		DeferCleanup(server.Close)

		var err error
		client, err = llm.NewAnthropicClient("test-key",
			option.WithBaseURL(server.URL+"/"),
			option.WithMaxRetries(0),
		)
		Expect(err).NotTo(HaveOccurred())
	})

	It("sends the system prompt separately and opens with a user turn", func() {
		resp, err := client.Complete(context.Background(), &llm.CompletionRequest{
			Model:  "claude-test",
			System: "be brief",
			Messages: []llm.ChatMessage{
				{Role: "assistant", Content: "left over from truncation"},
				{Role: "user", Content: "hello"},
				{Role: "assistant", Content: "hi"},
				{Role: "user", Content: "help"},
			},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Content).To(Equal("Sure."))
		Expect(resp.TokensIn).To(Equal(9))
		Expect(resp.StopReason).To(Equal("end_turn"))

		Expect(received.System).To(HaveLen(1))
		Expect(received.System[0].Text).To(Equal("be brief"))

		var roles, texts []string
		for _, m := range received.Messages {
			roles = append(roles, m.Role)
			texts = append(texts, m.Content[0].Text)
		}
		Expect(roles).To(Equal([]string{"user", "assistant", "user"}))
		Expect(texts).To(Equal([]string{"hello", "hi", "help"}))
	})

	It("refuses a history without a user turn", func() {
		_, err := client.Complete(context.Background(), &llm.CompletionRequest{
			Messages: []llm.ChatMessage{{Role: "assistant", Content: "hi"}},
		})
		Expect(err).To(HaveOccurred())
	})
})
