package notify

import (
	"context"
	"time"

	"go.uber.org/zap"

	"cash-request-service/internal/logger"
	"cash-request-service/internal/observability"
)

const cleanupTimeout = 5 * time.Second

// Notification is a push addressed to a set of device tokens.
type Notification struct {
	Type    string
	Tokens  []string
	Exclude []string
	Title   string
	Body    string
	Data    map[string]string
}

// Report summarizes one dispatch.
type Report struct {
	Attempted int
	Succeeded int
	Failed    int
	Pruned    int64
	Skipped   bool
}

// Dispatcher sends notifications best-effort: nothing it does is surfaced to
// the caller as an error.
type Dispatcher struct {
	gateway Gateway
	tokens  TokenStore
	timeout time.Duration
	log     *logger.Logger
}

// NewDispatcher wires a gateway to the device registry. A nil gateway turns
// every dispatch into a logged no-op.
func NewDispatcher(gateway Gateway, tokens TokenStore, timeout time.Duration, log *logger.Logger) *Dispatcher {
	if log == nil {
		log = logger.NewNop()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{gateway: gateway, tokens: tokens, timeout: timeout, log: log.Named("push")}
}

// Dispatch sends n and prunes tokens the gateway reports as permanently dead.
func (d *Dispatcher) Dispatch(ctx context.Context, n Notification) Report {
	tokens := filterTokens(n.Tokens, n.Exclude)
	if len(tokens) == 0 {
		return Report{Skipped: true}
	}
	if d.gateway == nil {
		d.log.Debug("push gateway disabled, dropping notification",
			zap.String("type", n.Type), zap.Int("tokens", len(tokens)))
		return Report{Skipped: true}
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	data := make(map[string]string, len(n.Data)+1)
	for k, v := range n.Data {
		data[k] = v
	}
	if n.Type != "" {
		data["type"] = n.Type
	}

	report := Report{Attempted: len(tokens)}
	batch, err := d.gateway.SendMulticast(sendCtx, Message{Tokens: tokens, Title: n.Title, Body: n.Body, Data: data})
	if err != nil {
		d.log.Warn("push multicast failed",
			zap.String("type", n.Type), zap.Int("tokens", len(tokens)), zap.Error(err))
		report.Failed = len(tokens)
		observability.AddPushOutcome(n.Type, "error", report.Failed)
		return report
	}

	var stale []string
	for _, r := range batch.Results {
		if r.Success {
			report.Succeeded++
			continue
		}
		report.Failed++
		if r.Code.Permanent() {
			stale = append(stale, r.Token)
		}
	}
	observability.AddPushOutcome(n.Type, "success", report.Succeeded)
	observability.AddPushOutcome(n.Type, "failure", report.Failed)

	d.log.Info("push multicast sent",
		zap.String("type", n.Type),
		zap.Int("successes", report.Succeeded),
		zap.Int("failures", report.Failed))

	if len(stale) > 0 && d.tokens != nil {
		// Pruning gets its own budget; a slow send may have used up the first.
		cleanupCtx, cancelCleanup := context.WithTimeout(ctx, cleanupTimeout)
		defer cancelCleanup()
		cleared, err := d.tokens.ClearDeviceTokens(cleanupCtx, stale)
		if err != nil {
			d.log.Warn("stale token cleanup failed", zap.Int("tokens", len(stale)), zap.Error(err))
		} else {
			report.Pruned = cleared
			observability.AddPrunedTokens(cleared)
			d.log.Info("cleared stale device tokens", zap.Int64("cleared", cleared))
		}
	}
	return report
}

func filterTokens(tokens, exclude []string) []string {
	skip := make(map[string]struct{}, len(exclude)+len(tokens))
	for _, t := range exclude {
		if t != "" {
			skip[t] = struct{}{}
		}
	}
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t == "" {
			continue
		}
		if _, ok := skip[t]; ok {
			continue
		}
		skip[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
