package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/farelens/deals-cli/internal/config"
	"github.com/farelens/deals-cli/internal/model"
	"github.com/farelens/deals-cli/pkg/anthropic"
)

// errOracleFailed prefixes the sentinel carried by results whose oracle call
// failed on every attempt.
const errOracleFailed = "oracle_failed: "

const systemPrompt = `You are a travel deal analyst. You receive one package deal, evidence text scraped from its listing page, and an independent do-it-yourself cost estimate for the same trip. Respond with a single JSON object and nothing else, matching exactly this schema:

{"deal_id": string, "title": string, "url": string, "source": string, "nights": number|null, "pp_price": number|null, "package_total_for_two": number|null, "includes_flights": boolean|null, "inclusions_evidence": [string], "diy_breakdown": {"flights": {"included": boolean, "assumed_route": string, "price_total_for_two": number|null, "sources": [string]}, "hotel": {"name_or_hint": string, "nights": number|null, "price_total_for_stay": number|null, "sources": [string]}, "other": {"items": [string], "notes": string}, "diy_total_for_two": number|null}, "estimated_savings_vs_diy": {"abs": number|null, "pct": number|null}, "rating_out_of_10": number, "reasoning": string, "additional_notes": string, "citations": [string]}

Use null for any numeric value you cannot establish; never invent prices. Rating rubric: start at a baseline of 5.0, add up to +3 for evidence-backed savings versus the DIY estimate, +1 for flight-inclusive packages with clear inclusion evidence, +1 for generous inclusions (transfers, meals, credits); subtract for thin evidence, restrictive travel windows, or a package that costs more than DIY. Quote short evidence fragments in inclusions_evidence and cite the listing URL in citations.`

// Evaluator issues oracle calls sequentially with pacing and bounded
// retries.
type Evaluator struct {
	ai   anthropic.Client
	cfg  config.OracleConfig
	pace *rate.Limiter

	// sleep is injectable for deterministic retry tests.
	sleep func(context.Context, time.Duration) error
}

// NewEvaluator builds an evaluator over an Anthropic client.
func NewEvaluator(ai anthropic.Client, cfg config.OracleConfig) *Evaluator {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 2048
	}
	if cfg.PaceMillis <= 0 {
		cfg.PaceMillis = 250
	}
	every := time.Duration(cfg.PaceMillis) * time.Millisecond
	return &Evaluator{
		ai:    ai,
		cfg:   cfg,
		pace:  rate.NewLimiter(rate.Every(every), 1),
		sleep: sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// retryStep is the linear backoff increment between oracle attempts.
const retryStep = 2 * time.Second

// Evaluate runs one candidate through the oracle. A terminal failure yields
// an error-tagged result, never a Go error, so the batch always proceeds.
func (e *Evaluator) Evaluate(ctx context.Context, deal model.Deal, evidence string, est model.DiyEstimate) model.DealResult {
	payload, err := userPayload(deal, evidence, est)
	if err != nil {
		res := baseResult(deal, est)
		res.Error = errOracleFailed + err.Error()
		return res
	}

	var lastErr error
	for attempt := 1; attempt <= e.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			// Linear backoff: 2s, 4s, ...
			if err := e.sleep(ctx, time.Duration(attempt-1)*retryStep); err != nil {
				lastErr = err
				break
			}
		}
		if err := e.pace.Wait(ctx); err != nil {
			lastErr = err
			break
		}

		resp, err := e.ai.CreateMessage(ctx, anthropic.MessageRequest{
			Model:     e.cfg.Model,
			MaxTokens: e.cfg.MaxTokens,
			System:    []anthropic.SystemBlock{{Text: systemPrompt}},
			Messages:  []anthropic.Message{{Role: "user", Content: payload}},
		})
		if err != nil {
			lastErr = err
			zap.L().Warn("oracle: call failed",
				zap.String("deal", deal.ID),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			continue
		}

		resp.Usage.LogCost(e.cfg.Model, "rank")

		res := ParseResult(resp.Text())
		Backfill(&res, deal)
		if res.DiyBreakdown == nil {
			res.DiyBreakdown = &est
		}
		ApplySavings(&res, est)
		return res
	}

	res := baseResult(deal, est)
	res.Error = errOracleFailed + lastErr.Error()
	return res
}

// baseResult carries the ground-truth fields and DIY estimate for a
// candidate whose oracle call never succeeded.
func baseResult(deal model.Deal, est model.DiyEstimate) model.DealResult {
	res := model.DealResult{DiyBreakdown: &est}
	Backfill(&res, deal)
	ApplySavings(&res, est)
	return res
}

func userPayload(deal model.Deal, evidence string, est model.DiyEstimate) (string, error) {
	dealJSON, err := json.MarshalIndent(deal, "", "  ")
	if err != nil {
		return "", err
	}
	estJSON, err := json.MarshalIndent(est, "", "  ")
	if err != nil {
		return "", err
	}
	if evidence == "" {
		evidence = "(page unavailable)"
	}
	return fmt.Sprintf("DEAL:\n%s\n\nPAGE EVIDENCE:\n%s\n\nDIY ESTIMATE:\n%s\n",
		dealJSON, evidence, estJSON), nil
}
