// Package verify uses Claude to double-check fuzzy organization-name
// matches before they join a variant group. Verification is advisory: any
// failure to get a usable answer fails open and the fuzzy match stands.
package verify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/stanse/fec-pipeline/internal/resilience"
	"github.com/stanse/fec-pipeline/pkg/anthropic"
)

const systemPrompt = `You judge whether two organization names refer to the same real-world company.

The first name is a canonical company name. The second is a name observed in FEC committee filings, possibly abbreviated, misspelled, or carrying legal suffixes.

Answer with exactly one line: YES or NO, optionally followed by a short reason after a colon. Subsidiaries and d/b/a names of the same parent count as the same company. Different companies that merely share words do not.`

// Decision is the outcome of verifying one candidate match.
type Decision struct {
	Match    bool
	Reason   string
	FailOpen bool // true when the answer was assumed, not obtained
}

// Config tunes the verifier.
type Config struct {
	Model          string
	MaxTokens      int64
	RequestsPerSec float64
	Timeout        time.Duration
	PollInterval   time.Duration
}

// DefaultConfig returns verifier settings suitable for bulk index builds.
func DefaultConfig() Config {
	return Config{
		Model:          "claude-haiku-4-5-20251001",
		MaxTokens:      64,
		RequestsPerSec: 2,
		Timeout:        20 * time.Second,
		PollInterval:   15 * time.Second,
	}
}

// Verifier asks the model whether a fuzzy match is a real match.
type Verifier struct {
	client  anthropic.Client
	cfg     Config
	limiter *rate.Limiter
	breaker *resilience.CircuitBreaker
	log     *zap.Logger
}

// NewVerifier wires a verifier around an Anthropic client.
func NewVerifier(client anthropic.Client, cfg Config) *Verifier {
	if cfg.Model == "" {
		cfg = DefaultConfig()
	}
	return &Verifier{
		client:  client,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), 1),
		breaker: resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig()),
		log:     zap.L().With(zap.String("component", "fec.verify")),
	}
}

// Verify checks whether candidate names the same company as canonical.
// Every failure mode (rate limit wait aborted, circuit open, API error,
// timeout, unparseable answer) fails open with a distinct logged reason.
func (v *Verifier) Verify(ctx context.Context, canonical, candidate string) Decision {
	if err := v.limiter.Wait(ctx); err != nil {
		return v.failOpen(canonical, candidate, "rate_limit_wait", err)
	}

	ctx, cancel := context.WithTimeout(ctx, v.cfg.Timeout)
	defer cancel()

	resp, err := resilience.ExecuteVal(ctx, v.breaker, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return v.client.CreateMessage(ctx, v.request(canonical, candidate))
	})
	if err != nil {
		reason := "api_error"
		switch {
		case eris.Is(err, resilience.ErrCircuitOpen):
			reason = "circuit_open"
		case ctx.Err() != nil:
			reason = "timeout"
		}
		return v.failOpen(canonical, candidate, reason, err)
	}

	decision, ok := parseDecision(resp)
	if !ok {
		return v.failOpen(canonical, candidate, "unparseable_response", nil)
	}

	resp.Usage.LogCost(v.cfg.Model, "verify")
	v.log.Debug("match verified",
		zap.String("canonical", canonical),
		zap.String("candidate", candidate),
		zap.Bool("match", decision.Match),
	)
	return decision
}

// VerifyBatch verifies many candidate matches through the batch API,
// polling until completion. The returned slice is index-aligned with
// pairs; entries whose result never arrives fail open.
func (v *Verifier) VerifyBatch(ctx context.Context, pairs []MatchPair) ([]Decision, error) {
	decisions := make([]Decision, len(pairs))
	for i := range decisions {
		decisions[i] = Decision{Match: true, Reason: "no batch result", FailOpen: true}
	}
	if len(pairs) == 0 {
		return decisions, nil
	}

	req := anthropic.BatchRequest{Requests: make([]anthropic.BatchRequestItem, len(pairs))}
	for i, p := range pairs {
		req.Requests[i] = anthropic.BatchRequestItem{
			CustomID: fmt.Sprintf("verify-%d", i),
			Params:   v.request(p.Canonical, p.Candidate),
		}
	}

	// Warm the prompt cache so every batch item hits the cached system
	// prompt. The primer's answer is discarded; its failure is harmless.
	if _, err := anthropic.PrimerRequest(ctx, v.client, v.request(pairs[0].Canonical, pairs[0].Candidate)); err != nil {
		v.log.Debug("primer request failed, batch proceeds uncached", zap.Error(err))
	}

	batch, err := v.client.CreateBatch(ctx, req)
	if err != nil {
		v.log.Warn("batch creation failed, failing open for all pairs", zap.Error(err))
		return decisions, nil
	}

	if _, err := anthropic.PollBatch(ctx, v.client, batch.ID, anthropic.WithPollInterval(v.cfg.PollInterval)); err != nil {
		v.log.Warn("batch polling failed, failing open for all pairs",
			zap.String("batch_id", batch.ID), zap.Error(err))
		return decisions, nil
	}

	iter, err := v.client.GetBatchResults(ctx, batch.ID)
	if err != nil {
		v.log.Warn("batch results unavailable, failing open for all pairs",
			zap.String("batch_id", batch.ID), zap.Error(err))
		return decisions, nil
	}

	results, err := anthropic.CollectBatchResults(iter)
	if err != nil {
		v.log.Warn("batch result stream ended early", zap.String("batch_id", batch.ID), zap.Error(err))
		return decisions, nil
	}

	for i := range pairs {
		resp, ok := results[fmt.Sprintf("verify-%d", i)]
		if !ok {
			continue
		}
		if d, ok := parseDecision(resp); ok {
			decisions[i] = d
		}
	}
	return decisions, nil
}

// MatchPair is one canonical/candidate pair to verify.
type MatchPair struct {
	Canonical string
	Candidate string
}

func (v *Verifier) request(canonical, candidate string) anthropic.MessageRequest {
	return anthropic.MessageRequest{
		Model:     v.cfg.Model,
		MaxTokens: v.cfg.MaxTokens,
		System:    anthropic.BuildCachedSystemBlocks(systemPrompt),
		Messages: []anthropic.Message{
			{Role: "user", Content: fmt.Sprintf("Canonical: %s\nObserved: %s", canonical, candidate)},
		},
	}
}

func (v *Verifier) failOpen(canonical, candidate, reason string, err error) Decision {
	v.log.Warn("verification unavailable, keeping fuzzy match",
		zap.String("canonical", canonical),
		zap.String("candidate", candidate),
		zap.String("reason", reason),
		zap.Error(err),
	)
	return Decision{Match: true, Reason: reason, FailOpen: true}
}

// parseDecision reads a YES/NO first token, case-insensitively, with an
// optional reason after a colon.
func parseDecision(resp *anthropic.MessageResponse) (Decision, bool) {
	var text string
	for _, b := range resp.Content {
		if b.Type == "text" {
			text = strings.TrimSpace(b.Text)
			break
		}
	}
	if text == "" {
		return Decision{}, false
	}

	verdict, reason, _ := strings.Cut(text, ":")
	switch strings.ToUpper(strings.TrimSpace(verdict)) {
	case "YES":
		return Decision{Match: true, Reason: strings.TrimSpace(reason)}, true
	case "NO":
		return Decision{Match: false, Reason: strings.TrimSpace(reason)}, true
	default:
		return Decision{}, false
	}
}
