package llm

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/ahrav/go-eyereport/internal/ports"
)

// rateLimitedLLM paces requests with a token bucket shared by every client
// built from the same middleware value.
type rateLimitedLLM struct {
	next    CoreLLM
	limiter *rate.Limiter
}

// RateLimitMiddleware paces requests at limit per second with the given burst.
// A request takes one token per image it carries, and one for a text-only
// request, so a description pass over many images is paced per image. The
// weight is capped at the burst so a single request can always proceed.
func RateLimitMiddleware(limit rate.Limit, burst int) Middleware {
	limiter := rate.NewLimiter(limit, max(burst, 1))

	return func(next CoreLLM) CoreLLM {
		return &rateLimitedLLM{next: next, limiter: limiter}
	}
}

func (r *rateLimitedLLM) DoRequest(ctx context.Context, req ports.ChatRequest) (ports.ChatResponse, error) {
	n := min(max(requestImages(req), 1), r.limiter.Burst())
	if err := r.limiter.WaitN(ctx, n); err != nil {
		return ports.ChatResponse{}, fmt.Errorf("rate limit: waiting for %d token(s): %w", n, err)
	}
	return r.next.DoRequest(ctx, req)
}

func (r *rateLimitedLLM) GetModel() string { return r.next.GetModel() }

func (r *rateLimitedLLM) SetModel(m string) { r.next.SetModel(m) }

func requestImages(req ports.ChatRequest) int {
	n := 0
	for _, msg := range req.Messages {
		for _, p := range msg.Parts {
			if p.Type == ports.PartImage {
				n++
			}
		}
	}
	return n
}
