package image

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"iconforge/internal/domain"
	"iconforge/internal/infra"
	"iconforge/internal/overrides"
)

// Provider describes one backend in the chain.
type Provider struct {
	Generator Generator
	// Priority orders providers ascending; ties keep registration order.
	Priority int
	// LayoutFaithful marks the backend moved to the front for flag requests.
	LayoutFaithful bool
	// LastResort marks the backend that must always be attempted last.
	LastResort bool
}

// Attempt is the tagged outcome of one provider call.
type Attempt struct {
	Provider string
	Prompt   string
	Duration time.Duration
	Err      error
}

// OK reports whether the attempt produced an image.
func (a Attempt) OK() bool {
	return a.Err == nil
}

// Result is the successful outcome of a chain run.
type Result struct {
	Image    *Image
	Provider string
	Attempts []Attempt
}

// ExhaustedError is returned when every provider failed. It matches
// domain.ErrAllProvidersExhausted.
type ExhaustedError struct {
	Attempts []Attempt
}

func (e *ExhaustedError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %v", a.Provider, a.Err))
	}
	return fmt.Sprintf("%s after %d attempts (%s)", domain.ErrAllProvidersExhausted, len(e.Attempts), strings.Join(parts, "; "))
}

func (e *ExhaustedError) Unwrap() error {
	return domain.ErrAllProvidersExhausted
}

type ChainOptions struct {
	Providers []Provider
	Logger    *infra.Logger
	// OnAttempt observes every attempt in order. Optional.
	OnAttempt func(Attempt)
}

// Chain runs providers one at a time in a resolved order and returns the first
// image produced.
type Chain struct {
	providers []Provider
	logger    *infra.Logger
	onAttempt func(Attempt)
}

// layoutReplacer swaps style vocabulary for accuracy vocabulary in the prompt
// sent to the layout-faithful provider on flag requests.
var layoutReplacer = strings.NewReplacer(
	"artistic", "accurate",
	"Artistic", "Accurate",
	"stylized", "precise",
	"Stylized", "Precise",
	"creative", "faithful",
	"Creative", "Faithful",
	"abstract", "geometric",
	"Abstract", "Geometric",
)

// NewChain validates the provider set. At most one provider may be marked
// LastResort; when none is, the lowest-priority provider takes that role.
func NewChain(opts ChainOptions) (*Chain, error) {
	if len(opts.Providers) == 0 {
		return nil, errors.New("image chain: at least one provider is required")
	}
	providers := make([]Provider, 0, len(opts.Providers))
	lastResort := 0
	for _, p := range opts.Providers {
		if p.Generator == nil {
			return nil, errors.New("image chain: provider without generator")
		}
		if p.LastResort {
			lastResort++
		}
		providers = append(providers, p)
	}
	if lastResort > 1 {
		return nil, errors.New("image chain: only one provider can be the last resort")
	}
	sort.SliceStable(providers, func(i, j int) bool {
		return providers[i].Priority < providers[j].Priority
	})
	if lastResort == 0 {
		providers[len(providers)-1].LastResort = true
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.DiscardLogger()
	}
	return &Chain{providers: providers, logger: logger, onAttempt: opts.OnAttempt}, nil
}

// IsFlagLike reports whether either text mentions "flag", case-insensitively.
func IsFlagLike(raw, prompt string) bool {
	return strings.Contains(overrides.Fold(raw), "flag") || strings.Contains(overrides.Fold(prompt), "flag")
}

// Order returns the providers in the order they would be attempted. Flag
// requests move the first layout-faithful provider to the front; the last
// resort always closes the list.
func (c *Chain) Order(flagLike bool) []Provider {
	ordered := make([]Provider, 0, len(c.providers))
	var last *Provider
	lead := -1
	if flagLike {
		for i, p := range c.providers {
			if p.LayoutFaithful && !p.LastResort {
				lead = i
				ordered = append(ordered, p)
				break
			}
		}
	}
	for i := range c.providers {
		p := c.providers[i]
		if i == lead {
			continue
		}
		if p.LastResort {
			last = &c.providers[i]
			continue
		}
		ordered = append(ordered, p)
	}
	if last != nil {
		ordered = append(ordered, *last)
	}
	return ordered
}

// PromptFor returns the prompt a provider receives. Only the layout-faithful
// provider on a flag request gets the substituted text.
func PromptFor(p Provider, prompt string, flagLike bool) string {
	if flagLike && p.LayoutFaithful {
		return layoutReplacer.Replace(prompt)
	}
	return prompt
}

// Generate tries each provider in order and stops at the first success. The
// only error it returns is *ExhaustedError.
func (c *Chain) Generate(ctx context.Context, prompt string, flagLike bool) (*Result, error) {
	order := c.Order(flagLike)
	attempts := make([]Attempt, 0, len(order))
	for i, p := range order {
		name := p.Generator.Name()
		text := PromptFor(p, prompt, flagLike)
		start := time.Now()
		img, err := p.Generator.Generate(ctx, text)
		if err == nil && (img == nil || len(img.Data) == 0) {
			err = errors.New("provider returned no image")
		}
		attempt := Attempt{Provider: name, Prompt: text, Duration: time.Since(start), Err: err}
		attempts = append(attempts, attempt)
		if c.onAttempt != nil {
			c.onAttempt(attempt)
		}
		if err != nil {
			c.logger.Warn().
				Err(err).
				Str("provider", name).
				Int("attempt", i+1).
				Bool("flag_like", flagLike).
				Str("request_id", RequestIDFromContext(ctx)).
				Dur("duration", attempt.Duration).
				Msg("image provider failed; trying next")
			continue
		}
		if img.MIME == "" {
			img.MIME = "image/png"
		}
		c.logger.Info().
			Str("provider", name).
			Int("attempt", i+1).
			Bool("flag_like", flagLike).
			Str("request_id", RequestIDFromContext(ctx)).
			Dur("duration", attempt.Duration).
			Msg("image provider succeeded")
		return &Result{Image: img, Provider: name, Attempts: attempts}, nil
	}
	return nil, &ExhaustedError{Attempts: attempts}
}

type requestIDKey struct{}

// WithRequestID tags ctx so provider logs can be correlated.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
