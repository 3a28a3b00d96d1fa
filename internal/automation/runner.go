// Package automation evaluates campaign automation rules and applies their actions.
package automation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"campaign-automator-api/internal/domain"
	"campaign-automator-api/internal/logger"
	"campaign-automator-api/internal/metrics"
	"campaign-automator-api/internal/notify"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Mode string

const (
	ModeCheckAll  Mode = "check_all"
	ModeCheckUser Mode = "check_user"
	ModeCheckRule Mode = "check_rule"
)

const releaseTimeout = 5 * time.Second

var ErrInvalidRequest = errors.New("invalid request")

// Request selects the candidate rules of a batch. An empty Mode means check_all.
type Request struct {
	Mode   Mode       `json:"mode"`
	UserID *uuid.UUID `json:"userId,omitempty"`
	RuleID *uuid.UUID `json:"ruleId,omitempty"`
}

// Normalize fills the default mode and checks the selector the mode needs.
func (r Request) Normalize() (Request, error) {
	if r.Mode == "" {
		r.Mode = ModeCheckAll
	}
	switch r.Mode {
	case ModeCheckAll:
	case ModeCheckUser:
		if r.UserID == nil {
			return r, fmt.Errorf("%w: userId is required for %s", ErrInvalidRequest, r.Mode)
		}
	case ModeCheckRule:
		if r.RuleID == nil {
			return r, fmt.Errorf("%w: ruleId is required for %s", ErrInvalidRequest, r.Mode)
		}
	default:
		return r, fmt.Errorf("%w: unknown mode %q", ErrInvalidRequest, r.Mode)
	}
	return r, nil
}

// RuleOutcome summarises one rule in a batch.
type RuleOutcome struct {
	RuleID        uuid.UUID              `json:"ruleId"`
	Name          string                 `json:"name"`
	Status        domain.OutcomeStatus   `json:"status"`
	Reason        string                 `json:"reason,omitempty"`
	Error         string                 `json:"error,omitempty"`
	ActionResult  *domain.ActionResult   `json:"actionResult,omitempty"`
	ExecutionTime *int64                 `json:"executionTime,omitempty"`
	TriggerData   *domain.TriggerContext `json:"triggerData,omitempty"`
}

// BatchResult is returned for every batch whose candidates could be loaded.
type BatchResult struct {
	Total    int           `json:"total"`
	Executed int           `json:"executed"`
	Skipped  int           `json:"skipped"`
	Failed   int           `json:"failed"`
	Details  []RuleOutcome `json:"details"`
}

// Options tunes a Runner. Zero values fall back to sequential processing in UTC
// with no timeouts.
type Options struct {
	Concurrency  int
	RuleTimeout  time.Duration
	BatchTimeout time.Duration
	Location     *time.Location
	Now          func() time.Time
}

// Runner processes batches of rules: guard, evaluate, claim, execute, log.
type Runner struct {
	rules     RuleRepository
	evaluator *Evaluator
	executor  *Executor
	recorder  *Recorder
	metrics   *metrics.Metrics
	log       *zap.Logger
	opts      Options
}

func NewRunner(repo Repository, sink notify.Sink, m *metrics.Metrics, log *zap.Logger, opts Options) *Runner {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	log = log.With(zap.String("component", "automation"))

	return &Runner{
		rules:     repo,
		evaluator: NewEvaluator(repo, opts.Now, opts.Location),
		executor:  NewExecutor(repo, sink, opts.Now),
		recorder:  NewRecorder(repo, log),
		metrics:   m,
		log:       log,
		opts:      opts,
	}
}

// Run processes one batch. It only fails when the request is invalid or the
// candidate rules cannot be loaded; per-rule failures end up in Details.
func (r *Runner) Run(ctx context.Context, req Request) (BatchResult, error) {
	req, err := req.Normalize()
	if err != nil {
		return BatchResult{}, err
	}

	start := time.Now()
	if r.opts.BatchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.BatchTimeout)
		defer cancel()
	}

	rules, err := r.loadCandidates(ctx, req)
	if err != nil {
		r.metrics.IncRunFailure(string(req.Mode))
		r.log.Error("could not load candidate rules", zap.String("mode", string(req.Mode)), zap.Error(err))
		return BatchResult{}, err
	}

	details := make([]RuleOutcome, len(rules))
	if r.opts.Concurrency == 1 {
		for i, rule := range rules {
			details[i] = r.processRule(ctx, rule)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(r.opts.Concurrency)
		for i, rule := range rules {
			i, rule := i, rule
			g.Go(func() error {
				details[i] = r.processRule(ctx, rule)
				return nil
			})
		}
		_ = g.Wait()
	}

	result := BatchResult{Total: len(rules), Details: details}
	for _, d := range details {
		switch d.Status {
		case domain.OutcomeExecuted:
			result.Executed++
		case domain.OutcomeSkipped:
			result.Skipped++
		case domain.OutcomeFailed:
			result.Failed++
		}
		r.metrics.IncRuleOutcome(string(d.Status))
	}

	took := time.Since(start)
	r.metrics.ObserveRun(string(req.Mode), took)
	logger.LogDuration(r.log, "automation batch", took,
		zap.String("mode", string(req.Mode)),
		zap.Int("total", result.Total),
		zap.Int("executed", result.Executed),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

func (r *Runner) loadCandidates(ctx context.Context, req Request) ([]domain.AutomationRule, error) {
	switch req.Mode {
	case ModeCheckUser:
		rules, err := r.rules.GetActiveRulesForUser(ctx, *req.UserID)
		if err != nil {
			return nil, fmt.Errorf("could not load rules for user %s: %w", *req.UserID, err)
		}
		return rules, nil
	case ModeCheckRule:
		rule, err := r.rules.GetRuleByID(ctx, *req.RuleID)
		if errors.Is(err, domain.ErrRuleNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("could not load rule %s: %w", *req.RuleID, err)
		}
		if !rule.IsActive {
			return nil, nil
		}
		return []domain.AutomationRule{rule}, nil
	default:
		rules, err := r.rules.GetActiveRules(ctx)
		if err != nil {
			return nil, fmt.Errorf("could not load active rules: %w", err)
		}
		return rules, nil
	}
}

// attempt tracks how far a rule got, so a failure or panic can be undone and logged.
// Once result is set the action has happened and the claim is no longer released.
type attempt struct {
	started   time.Time
	context   *domain.TriggerContext
	claimed   bool
	claimedAt time.Time
	result    *domain.ActionResult
}

// processRule never panics and never returns an error: everything becomes an outcome.
func (r *Runner) processRule(ctx context.Context, rule domain.AutomationRule) (out RuleOutcome) {
	var at attempt
	defer func() {
		if p := recover(); p != nil {
			if at.result != nil {
				logger.WithRule(r.log, rule.ID, rule.UserID).Error("panic after action was applied", zap.Any("panic", p))
				out = executed(rule, &at)
				return
			}
			out = r.fail(ctx, rule, &at, fmt.Errorf("panic: %v", p))
		}
	}()
	return r.evaluateAndExecute(ctx, rule, &at)
}

func (r *Runner) evaluateAndExecute(ctx context.Context, rule domain.AutomationRule, at *attempt) RuleOutcome {
	log := logger.WithRule(r.log, rule.ID, rule.UserID)

	if ctx.Err() != nil {
		return skipped(rule, ReasonBatchDeadline)
	}

	now := r.opts.Now()
	if ok, reason := checkGuard(rule, now); !ok {
		log.Debug("rule skipped by guard", zap.String("reason", reason))
		return skipped(rule, reason)
	}

	if r.opts.RuleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.RuleTimeout)
		defer cancel()
	}
	at.started = time.Now()

	trigger, err := domain.ParseTrigger(rule.Trigger)
	if err != nil {
		return r.fail(ctx, rule, at, err)
	}
	action, err := domain.ParseAction(rule.Action)
	if err != nil {
		return r.fail(ctx, rule, at, err)
	}

	eval, err := r.evaluator.Evaluate(ctx, trigger, rule.UserID)
	if err != nil {
		return r.fail(ctx, rule, at, err)
	}
	if !eval.ShouldExecute {
		return skipped(rule, ReasonConditionNotMet)
	}
	at.context = eval.Context

	claimed, err := r.rules.ClaimExecution(ctx, rule.ID, now)
	if err != nil {
		return r.fail(ctx, rule, at, fmt.Errorf("could not claim execution: %w", err))
	}
	if !claimed {
		reason := r.claimLostReason(ctx, rule.ID)
		log.Info("rule not claimed", zap.String("reason", reason))
		out := skipped(rule, reason)
		out.TriggerData = at.context
		return out
	}
	at.claimed, at.claimedAt = true, now

	result, err := r.executor.Execute(ctx, rule.ID, rule.UserID, action, eval.Context)
	if err != nil {
		r.metrics.IncAction(string(action.Kind()), "failed")
		return r.fail(ctx, rule, at, err)
	}
	at.claimed, at.result = false, &result
	r.metrics.IncAction(string(action.Kind()), "success")

	took := time.Since(at.started)
	// The action already happened, so a lost log row does not change the outcome.
	_ = r.recorder.RecordSuccess(context.WithoutCancel(ctx), rule, at.context, result, took)

	log.Info("rule executed",
		zap.String("action", string(action.Kind())),
		zap.Duration("duration", took),
	)
	return executed(rule, at)
}

// claimLostReason tells a rule deactivated since the snapshot apart from one
// another run executed first.
func (r *Runner) claimLostReason(ctx context.Context, ruleID uuid.UUID) string {
	current, err := r.rules.GetRuleByID(ctx, ruleID)
	switch {
	case errors.Is(err, domain.ErrRuleNotFound):
		return ReasonInactive
	case err != nil:
		r.log.Warn("could not reload rule after lost claim", zap.String("rule_id", ruleID.String()), zap.Error(err))
		return ReasonClaimLost
	case !current.IsActive:
		return ReasonInactive
	}
	return ReasonClaimLost
}

// fail releases a held claim, writes the failed log row and builds the outcome.
func (r *Runner) fail(ctx context.Context, rule domain.AutomationRule, at *attempt, cause error) RuleOutcome {
	// Cleanup must run even when the rule or batch deadline caused the failure.
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()

	log := logger.WithRule(r.log, rule.ID, rule.UserID)

	if at.claimed {
		if err := r.rules.ReleaseExecution(cleanupCtx, rule.ID, at.claimedAt, rule.LastExecutedAt); err != nil {
			log.Error("could not release execution claim", zap.Error(err))
		}
		at.claimed = false
	}

	var took time.Duration
	if !at.started.IsZero() {
		took = time.Since(at.started)
	}
	_ = r.recorder.RecordFailure(cleanupCtx, rule, at.context, cause, took)

	log.Warn("rule failed", zap.Error(cause))
	ms := took.Milliseconds()
	return RuleOutcome{
		RuleID:        rule.ID,
		Name:          rule.Name,
		Status:        domain.OutcomeFailed,
		Error:         cause.Error(),
		ExecutionTime: &ms,
		TriggerData:   at.context,
	}
}

func executed(rule domain.AutomationRule, at *attempt) RuleOutcome {
	ms := time.Since(at.started).Milliseconds()
	return RuleOutcome{
		RuleID:        rule.ID,
		Name:          rule.Name,
		Status:        domain.OutcomeExecuted,
		ActionResult:  at.result,
		ExecutionTime: &ms,
		TriggerData:   at.context,
	}
}

func skipped(rule domain.AutomationRule, reason string) RuleOutcome {
	return RuleOutcome{
		RuleID: rule.ID,
		Name:   rule.Name,
		Status: domain.OutcomeSkipped,
		Reason: reason,
	}
}
