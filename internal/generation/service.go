// Package generation runs one icon request end to end: reserve a credit,
// resolve the prompt, walk the image chain, then archive or refund.
package generation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"iconforge/internal/domain"
	"iconforge/internal/infra"
	"iconforge/internal/infra/geoip"
	"iconforge/internal/providers/image"
)

// HighTrafficMessage is shown to callers when every image provider failed.
const HighTrafficMessage = "We're experiencing high traffic right now. Your credit was refunded, please try again in a moment."

// State is a step of a single request.
type State string

const (
	StateIdle           State = "idle"
	StateRejected       State = "rejected"
	StateCreditReserved State = "credit_reserved"
	StatePromptResolved State = "prompt_resolved"
	StateImageObtained  State = "image_obtained"
	StatePersisted      State = "persisted"
	StateFailed         State = "failed"
	StateCreditRefunded State = "credit_refunded"
)

type Ledger interface {
	Debit(ctx context.Context, accountKey string) (int, error)
	Refund(ctx context.Context, accountKey string) (int, error)
}

type OverrideTable interface {
	Lookup(rawText string) (domain.EnhancedPrompt, bool)
}

type Researcher interface {
	Research(ctx context.Context, rawText string) domain.EnhancedPrompt
}

type ImageChain interface {
	Generate(ctx context.Context, prompt string, flagLike bool) (*image.Result, error)
}

type Archiver interface {
	Save(ctx context.Context, accountKey, prompt string, data []byte, mime string) (*domain.Icon, error)
}

type Options struct {
	Ledger     Ledger
	Overrides  OverrideTable
	Researcher Researcher
	Chain      ImageChain
	// Archive and Usage are optional; their failures never fail a request.
	Archive Archiver
	Usage   domain.UsageRepository
	GeoIP   geoip.CountryResolver
	Logger  *infra.Logger
	// OnTransition observes every state change. Optional.
	OnTransition func(requestID string, from, to State)
	Now          func() time.Time
}

type Service struct {
	ledger       Ledger
	overrides    OverrideTable
	researcher   Researcher
	chain        ImageChain
	archive      Archiver
	usage        domain.UsageRepository
	geoip        geoip.CountryResolver
	logger       *infra.Logger
	onTransition func(string, State, State)
	now          func() time.Time
}

func New(opts Options) (*Service, error) {
	if opts.Ledger == nil || opts.Researcher == nil || opts.Chain == nil {
		return nil, errors.New("generation: ledger, researcher and chain are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.DiscardLogger()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		ledger:       opts.Ledger,
		overrides:    opts.Overrides,
		researcher:   opts.Researcher,
		chain:        opts.Chain,
		archive:      opts.Archive,
		usage:        opts.Usage,
		geoip:        opts.GeoIP,
		logger:       logger,
		onTransition: opts.OnTransition,
		now:          now,
	}, nil
}

// run tracks the state of one request.
type run struct {
	svc       *Service
	requestID string
	state     State
}

func (r *run) to(next State) {
	if r.svc.onTransition != nil {
		r.svc.onTransition(r.requestID, r.state, next)
	}
	r.svc.logger.Debug().
		Str("request_id", r.requestID).
		Str("from", string(r.state)).
		Str("to", string(next)).
		Msg("generation: state change")
	r.state = next
}

// Generate performs one request. The only errors returned are validation
// errors, domain.ErrInsufficientCredits, chain exhaustion (matching
// domain.ErrAllProvidersExhausted) and ledger storage failures.
//
// Once the credit is reserved the rest of the run ignores caller
// cancellation, so a dropped connection neither refunds nor leaves the
// ledger half-done.
func (s *Service) Generate(ctx context.Context, req domain.GenerationRequest) (*domain.GenerationOutcome, error) {
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	r := &run{svc: s, requestID: req.RequestID, state: StateIdle}
	start := s.now()

	checked, err := domain.NewGenerationRequest(req.Text, req.AccountKey)
	if err != nil {
		r.to(StateRejected)
		return nil, err
	}
	req.Text, req.AccountKey = checked.Text, checked.AccountKey

	balance, err := s.ledger.Debit(ctx, req.AccountKey)
	if err != nil {
		r.to(StateRejected)
		if errors.Is(err, domain.ErrInsufficientCredits) {
			return nil, err
		}
		return nil, fmt.Errorf("generation: reserve credit: %w", err)
	}
	r.to(StateCreditReserved)

	work := image.WithRequestID(context.WithoutCancel(ctx), req.RequestID)

	prompt := s.resolvePrompt(work, req.Text)
	r.to(StatePromptResolved)

	flagLike := image.IsFlagLike(req.Text, prompt.ImagePrompt)
	result, err := s.chain.Generate(work, prompt.ImagePrompt, flagLike)
	if err != nil {
		r.to(StateFailed)
		s.refund(work, r, req)
		return nil, err
	}
	r.to(StateImageObtained)

	outcome := &domain.GenerationOutcome{
		Image:       result.Image.Data,
		MIME:        result.Image.MIME,
		Explanation: prompt.Explanation,
		Prompt:      prompt,
		Provider:    result.Provider,
		Balance:     balance,
	}
	if s.archive != nil {
		icon, err := s.archive.Save(work, req.AccountKey, req.Text, result.Image.Data, result.Image.MIME)
		if err != nil {
			s.logger.Error().
				Err(err).
				Str("request_id", req.RequestID).
				Str("account", req.AccountKey).
				Msg("generation: archive write failed")
		} else {
			outcome.IconID = icon.ID
		}
	}
	r.to(StatePersisted)
	s.recordUsage(work, req, result.Provider, start)

	s.logger.Info().
		Str("request_id", req.RequestID).
		Str("account", req.AccountKey).
		Str("provider", result.Provider).
		Str("prompt_source", string(prompt.Source)).
		Bool("flag_like", flagLike).
		Int("attempts", len(result.Attempts)).
		Msg("generation: icon generated")
	return outcome, nil
}

// resolvePrompt consults the override table first and only falls back to the
// researcher when nothing matched.
func (s *Service) resolvePrompt(ctx context.Context, raw string) domain.EnhancedPrompt {
	if s.overrides != nil {
		if p, ok := s.overrides.Lookup(raw); ok {
			return p
		}
	}
	return s.researcher.Research(ctx, raw)
}

func (s *Service) refund(ctx context.Context, r *run, req domain.GenerationRequest) {
	balance, err := s.ledger.Refund(ctx, req.AccountKey)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("request_id", req.RequestID).
			Str("account", req.AccountKey).
			Msg("generation: refund failed; credit must be restored manually")
		return
	}
	r.to(StateCreditRefunded)
	s.logger.Warn().
		Str("request_id", req.RequestID).
		Str("account", req.AccountKey).
		Int("balance", balance).
		Msg("generation: all providers failed; credit refunded")
}

func (s *Service) recordUsage(ctx context.Context, req domain.GenerationRequest, provider string, start time.Time) {
	if s.usage == nil {
		return
	}
	now := s.now()
	event := domain.UsageEvent{
		AccountKey: req.AccountKey,
		Prompt:     req.Text,
		Provider:   provider,
		Country:    geoip.Country(s.geoip, req.ClientIP),
		LatencyMS:  now.Sub(start).Milliseconds(),
		CreatedAt:  now.UTC(),
	}
	if err := s.usage.Record(ctx, event); err != nil {
		s.logger.Warn().Err(err).Str("request_id", req.RequestID).Msg("generation: usage record failed")
	}
}
