package price

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var resolverTracer = otel.Tracer("findly.price.resolver")

// ResolverConfig wires the resolver's collaborators.
type ResolverConfig struct {
	Rules      *RuleTable
	Classifier *Classifier
	Fallback   *FallbackMatcher

	// Estimator is optional; nil disables the external estimation tier.
	Estimator Estimator

	// MemoCapacity bounds the per-query memo cache. Zero or negative
	// disables memoization.
	MemoCapacity int

	Logger *zap.SugaredLogger
}

// Resolver turns free-text queries into price intents through three
// tiers: pattern rules, keyword fallback, external estimation. The memo
// cache is its only mutable state and the resolver is safe for
// concurrent use.
type Resolver struct {
	rules      []Rule
	classifier *Classifier
	fallback   *FallbackMatcher
	estimator  Estimator
	memo       *lru.Cache[string, Intent]
	logger     *zap.SugaredLogger
}

// NewResolver validates the wiring and builds a resolver.
func NewResolver(cfg ResolverConfig) (*Resolver, error) {
	if cfg.Rules == nil || cfg.Classifier == nil || cfg.Fallback == nil {
		return nil, fmt.Errorf("resolver requires rules, classifier and fallback matcher")
	}
	r := &Resolver{
		rules:      cfg.Rules.Rules(),
		classifier: cfg.Classifier,
		fallback:   cfg.Fallback,
		estimator:  cfg.Estimator,
		logger:     cfg.Logger,
	}
	if r.logger == nil {
		r.logger = zap.NewNop().Sugar()
	}
	if cfg.MemoCapacity > 0 {
		memo, err := lru.New[string, Intent](cfg.MemoCapacity)
		if err != nil {
			return nil, fmt.Errorf("create memo cache: %w", err)
		}
		r.memo = memo
	}
	return r, nil
}

// candidate is a rule hit awaiting winner selection.
type candidate struct {
	intent     Intent
	confidence float64
	priority   int
}

// Resolve extracts the price intent for query. It never fails: blank
// input, unparseable amounts and estimator problems all collapse to the
// no-signal intent.
func (r *Resolver) Resolve(ctx context.Context, query string) Intent {
	return r.ResolveWithEstimator(ctx, query, r.estimator)
}

// ResolveWithEstimator resolves like Resolve but runs the final tier
// through est instead of the configured estimator. Callers that stream
// estimation progress pass an estimator that forwards chunks; nil
// disables the tier for this call. Memoization and metrics behave
// exactly as in Resolve.
func (r *Resolver) ResolveWithEstimator(ctx context.Context, query string, est Estimator) Intent {
	if r.memo != nil {
		if cached, ok := r.memo.Get(query); ok {
			memoHitsTotal.Inc()
			return cached
		}
	}

	ctx, span := resolverTracer.Start(ctx, "price.resolve")
	defer span.End()

	intent, tier := r.resolve(ctx, query, est)
	span.SetAttributes(
		attribute.String("price.tier", tier),
		attribute.String("price.pattern_type", string(intent.PatternType)),
	)
	resolutionsTotal.WithLabelValues(tier).Inc()

	if r.memo != nil {
		r.memo.Add(query, intent)
	}
	return intent
}

func (r *Resolver) resolve(ctx context.Context, query string, estimator Estimator) (Intent, string) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return NoIntent(), "none"
	}

	if intent, ok := r.ResolveRules(trimmed); ok {
		r.logger.Debugf("💰 price intent %s via %q: min=%v max=%v conf=%.2f",
			intent.PatternType, intent.ExtractedText, ptrVal(intent.MinPrice), ptrVal(intent.MaxPrice), intent.Confidence)
		return intent, "pattern"
	}

	if intent, ok := r.fallback.Match(trimmed); ok {
		return intent, "fallback"
	}

	if estimator == nil {
		return NoIntent(), "none"
	}
	start := time.Now()
	est, err := estimator.EstimatePrice(ctx, trimmed)
	estimateLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		trace.SpanFromContext(ctx).RecordError(err)
		r.logger.Warnf("⚠️ price estimation failed: %v", err)
		estimateFailuresTotal.WithLabelValues("error").Inc()
		return NoIntent(), "none"
	}
	intent := IntentFromEstimate(est, nil)
	if intent.PatternType == PatternNone {
		estimateFailuresTotal.WithLabelValues("low_confidence").Inc()
		return intent, "none"
	}
	return intent, "estimate"
}

// ResolveRules runs only the deterministic pattern tier: scan every
// rule, keep the best candidate, normalize and boost. The boolean is
// false when no rule matched.
func (r *Resolver) ResolveRules(query string) (Intent, bool) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return NoIntent(), false
	}
	lowered := strings.ToLower(trimmed)
	mult := r.classifier.Classify(lowered)
	queryLen := utf8.RuneCountInString(lowered)

	var best *candidate
	for i := range r.rules {
		rule := &r.rules[i]
		groups := rule.Pattern.FindStringSubmatch(lowered)
		if groups == nil {
			continue
		}

		var minP, maxP *float64
		if rule.Min != nil {
			v, err := rule.Min(groups)
			if err != nil {
				continue
			}
			v *= mult
			minP = &v
		}
		if rule.Max != nil {
			v, err := rule.Max(groups)
			if err != nil {
				continue
			}
			v *= mult
			maxP = &v
		}

		conf := float64(utf8.RuneCountInString(groups[0])) / float64(queryLen)
		replace := best == nil || conf > best.confidence ||
			(conf == best.confidence && rule.Priority < best.priority)
		if replace {
			best = &candidate{
				intent: Intent{
					MinPrice:      minP,
					MaxPrice:      maxP,
					PatternType:   rule.Type,
					ExtractedText: groups[0],
				},
				confidence: conf,
				priority:   rule.Priority,
			}
		}
	}
	if best == nil {
		return NoIntent(), false
	}

	intent := Normalize(best.intent)
	conf := best.confidence
	switch intent.PatternType {
	case PatternExact:
		conf *= exactBoost
	case PatternRange:
		conf *= rangeBoost
	}
	intent.Confidence = clamp01(conf)
	return intent, true
}

func ptrVal(p *float64) interface{} {
	if p == nil {
		return nil
	}
	return *p
}
