package testutils

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/ahrav/go-eyereport/internal/domain"
	"github.com/ahrav/go-eyereport/internal/ports"
)

// Default stub payloads.
const (
	StubDescription = "Fundo de olho sem alterações."
	StubReport      = `{"description":"ok","diagnosis":"normal"}`
)

// StubUsage is the usage reported by every stub call unless overridden.
var StubUsage = domain.TokenUsage{PromptTokens: 1000, CachedTokens: 200, CompletionTokens: 100}

// StubInferenceClient is a call-counting ports.InferenceClient. By default
// every description returns StubDescription and every synthesis returns
// StubReport, both with StubUsage. The hooks replace that behavior per call
// and must be safe for concurrent use.
type StubInferenceClient struct {
	DescribeFunc   func(ctx context.Context, req ports.DescribeRequest) (ports.Completion, error)
	SynthesizeFunc func(ctx context.Context, req ports.SynthesisRequest) (ports.Completion, error)

	describeCalls   atomic.Int64
	synthesizeCalls atomic.Int64

	mu                sync.Mutex
	describeRequests  []ports.DescribeRequest
	synthesisRequests []ports.SynthesisRequest
}

var _ ports.InferenceClient = (*StubInferenceClient)(nil)

// NewStubInferenceClient returns a stub with the default responses.
func NewStubInferenceClient() *StubInferenceClient {
	return &StubInferenceClient{}
}

// DescribeImage implements ports.InferenceClient.
func (s *StubInferenceClient) DescribeImage(ctx context.Context, req ports.DescribeRequest) (ports.Completion, error) {
	s.describeCalls.Add(1)
	s.mu.Lock()
	s.describeRequests = append(s.describeRequests, req)
	s.mu.Unlock()

	if s.DescribeFunc != nil {
		return s.DescribeFunc(ctx, req)
	}
	return ports.Completion{Text: StubDescription, Usage: StubUsage}, nil
}

// Synthesize implements ports.InferenceClient.
func (s *StubInferenceClient) Synthesize(ctx context.Context, req ports.SynthesisRequest) (ports.Completion, error) {
	s.synthesizeCalls.Add(1)
	s.mu.Lock()
	s.synthesisRequests = append(s.synthesisRequests, req)
	s.mu.Unlock()

	if s.SynthesizeFunc != nil {
		return s.SynthesizeFunc(ctx, req)
	}
	return ports.Completion{Text: StubReport, Usage: StubUsage}, nil
}

// DescribeCalls returns the number of DescribeImage calls.
func (s *StubInferenceClient) DescribeCalls() int { return int(s.describeCalls.Load()) }

// SynthesizeCalls returns the number of Synthesize calls.
func (s *StubInferenceClient) SynthesizeCalls() int { return int(s.synthesizeCalls.Load()) }

// TotalCalls returns the number of calls of either kind.
func (s *StubInferenceClient) TotalCalls() int { return s.DescribeCalls() + s.SynthesizeCalls() }

// SynthesisRequests returns a copy of the recorded synthesis requests in
// arrival order.
func (s *StubInferenceClient) SynthesisRequests() []ports.SynthesisRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ports.SynthesisRequest(nil), s.synthesisRequests...)
}

// DescribeRequests returns a copy of the recorded description requests in
// arrival order.
func (s *StubInferenceClient) DescribeRequests() []ports.DescribeRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ports.DescribeRequest(nil), s.describeRequests...)
}
