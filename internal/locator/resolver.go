// internal/locator/resolver.go
package locator

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/xpathfinder/api/schemas"
	"github.com/xkilldash9x/xpathfinder/internal/config"
	"github.com/xkilldash9x/xpathfinder/internal/llmutil"
	"github.com/xkilldash9x/xpathfinder/internal/segment"
)

// ErrNotFound is returned when every segment was tried without an accepted candidate.
var ErrNotFound = errors.New("locator not found in any segment")

// Outcome classifies what happened to a single segment.
type Outcome string

const (
	// OutcomeAccepted means the candidate passed every check and ended the search.
	OutcomeAccepted Outcome = "accepted"
	// OutcomeRejected means the service answered but not with an absolute path.
	OutcomeRejected Outcome = "rejected"
	// OutcomeServiceFailure means the completion call itself failed.
	OutcomeServiceFailure Outcome = "service_failure"
	// OutcomeUnverified means the candidate had the right shape but selected
	// nothing in the document (only with existence verification on).
	OutcomeUnverified Outcome = "unverified"
)

// Attempt records the evaluation of one segment.
type Attempt struct {
	SegmentIndex int     `json:"segment_index"`
	Outcome      Outcome `json:"outcome"`
	Candidate    string  `json:"candidate,omitempty"`
	Err          error   `json:"-"`
	Error        string  `json:"error,omitempty"`
}

// Result is the outcome of a resolution. SegmentIndex is -1 until a candidate is accepted.
type Result struct {
	Found        bool      `json:"found"`
	Locator      string    `json:"locator,omitempty"`
	Canonical    string    `json:"canonical,omitempty"`
	SegmentIndex int       `json:"segment_index"`
	Attempts     []Attempt `json:"attempts"`
}

// ServiceFailures returns the attempts that failed at the completion service,
// as opposed to answers that were simply not usable.
func (r *Result) ServiceFailures() []Attempt {
	var failures []Attempt
	for _, a := range r.Attempts {
		if a.Outcome == OutcomeServiceFailure {
			failures = append(failures, a)
		}
	}
	return failures
}

func (r *Result) record(a Attempt) {
	if a.Err != nil {
		a.Error = a.Err.Error()
	}
	r.Attempts = append(r.Attempts, a)
}

// Resolver asks a completion service, one segment at a time, for an XPath
// locating a described element.
type Resolver struct {
	client schemas.LLMClient
	cfg    config.LocatorConfig
	logger *zap.Logger
}

// New creates a Resolver. The client is not owned by the Resolver and is not closed by it.
func New(client schemas.LLMClient, cfg config.LocatorConfig, logger *zap.Logger) *Resolver {
	return &Resolver{
		client: client,
		cfg:    cfg,
		logger: logger.Named("locator"),
	}
}

// ResolveDocument splits doc with the configured segment size and resolves target.
func (r *Resolver) ResolveDocument(ctx context.Context, doc string, target Target) (*Result, error) {
	segments, err := segment.Split(doc, r.cfg.MaxSegmentChars)
	if err != nil {
		return nil, fmt.Errorf("failed to segment document: %w", err)
	}
	r.logger.Debug("Document segmented",
		zap.Int("doc_chars", len(doc)),
		zap.Int("segments", len(segments)),
		zap.Int("max_segment_chars", r.cfg.MaxSegmentChars))
	return r.Resolve(ctx, segments, target)
}

// Resolve walks segments in order and returns the first acceptable candidate.
//
// A failing completion call is recorded and the walk moves on to the next
// segment. Cancellation of ctx stops the walk and is returned as-is. When no
// segment yields a locator the partially filled Result is returned together
// with ErrNotFound.
func (r *Resolver) Resolve(ctx context.Context, segments []segment.Segment, target Target) (*Result, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}

	result := &Result{SegmentIndex: -1}
	var check *verifier
	if r.cfg.VerifyExists {
		check = newVerifier(segment.Join(segments))
	}

	for _, seg := range segments {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		logger := r.logger.With(zap.Int("segment", seg.Index), zap.Int("segments", len(segments)))
		attempt := Attempt{SegmentIndex: seg.Index}

		raw, err := r.client.Generate(ctx, buildRequest(seg, len(segments), target))
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return result, ctxErr
			}
			logger.Warn("Completion request failed for segment, moving on.", zap.Error(err))
			attempt.Outcome = OutcomeServiceFailure
			attempt.Err = err
			result.record(attempt)
			continue
		}

		candidate := NormalizeCandidate(raw)
		attempt.Candidate = candidate
		if !IsAcceptable(candidate) {
			logger.Debug("Candidate rejected.", zap.String("candidate", llmutil.Truncate(candidate, 120)))
			attempt.Outcome = OutcomeRejected
			result.record(attempt)
			continue
		}

		if check != nil {
			canonical, err := check.check(candidate)
			if err != nil {
				logger.Debug("Candidate failed verification.", zap.String("candidate", candidate), zap.Error(err))
				attempt.Outcome = OutcomeUnverified
				attempt.Err = err
				result.record(attempt)
				continue
			}
			result.Canonical = canonical
		}

		attempt.Outcome = OutcomeAccepted
		result.record(attempt)
		result.Found = true
		result.Locator = candidate
		result.SegmentIndex = seg.Index
		logger.Info("Locator resolved.",
			zap.String("target", target.Description),
			zap.String("locator", candidate))
		return result, nil
	}

	r.logger.Info("No segment produced a usable locator.",
		zap.String("target", target.Description),
		zap.Int("segments", len(segments)),
		zap.Int("service_failures", len(result.ServiceFailures())))
	return result, ErrNotFound
}
