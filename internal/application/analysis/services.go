package analysis

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/bryanwahyu/jailbreak-firewall/internal/application"
	domain "github.com/bryanwahyu/jailbreak-firewall/internal/domain/analysis"
	"github.com/bryanwahyu/jailbreak-firewall/internal/domain/scoring"
)

// Service relays prompts to the scoring engine and records every outcome.
// It holds no per-request state and is safe for concurrent use.
type Service struct {
	Repo    domain.Repository
	Scorer  scoring.Client
	Archive domain.Archive // optional
	Clock   application.Clock
}

func NewService(repo domain.Repository, scorer scoring.Client, archive domain.Archive) *Service {
	return &Service{
		Repo:    repo,
		Scorer:  scorer,
		Archive: archive,
		Clock:   application.SystemClock{},
	}
}

// Analyze scores prompt and persists exactly one record for it. An unreachable engine
// is recorded with the offline sentinel; only validation and storage failures are
// returned as errors.
func (s *Service) Analyze(ctx context.Context, prompt string) (*domain.Record, error) {
	if err := validatePrompt(prompt); err != nil {
		return nil, err
	}
	start := s.Clock.Now()

	rec := &domain.Record{PromptText: prompt}
	res, err := s.Scorer.Score(ctx, prompt)
	if err != nil {
		log.Warn().Err(err).Str("engine", s.Scorer.Endpoint()).Msg("scoring engine unavailable, recording offline verdict")
		rec.Verdict = domain.VerdictEngineOffline
		rec.Recommendation = offlineRecommendation(s.Scorer.Endpoint())
	} else {
		rec.JailbreakScore = res.JailbreakScore
		rec.JailbreakCategory = res.JailbreakCategory
		rec.HarmfulnessScore = res.HarmfulnessScore
		rec.HarmfulnessCategory = res.HarmfulnessCategory
		rec.Verdict = res.Verdict
		rec.Recommendation = res.Recommendation
	}

	if err := s.Repo.Insert(ctx, rec); err != nil {
		return nil, fmt.Errorf("%w: insert security_log: %w", domain.ErrStorage, err)
	}

	if s.Archive != nil {
		if key, err := s.Archive.Put(ctx, rec); err != nil {
			log.Warn().Err(err).Int64("id", rec.ID).Msg("archive record failed")
		} else {
			log.Debug().Int64("id", rec.ID).Str("key", key).Msg("record archived")
		}
	}

	log.Info().
		Int64("id", rec.ID).
		Str("verdict", rec.Verdict).
		Float64("jailbreak_score", rec.JailbreakScore).
		Float64("harmfulness_score", rec.HarmfulnessScore).
		Dur("duration", s.Clock.Now().Sub(start)).
		Msg("prompt analyzed")
	return rec, nil
}

// List returns stored records, optionally narrowed to one category.
func (s *Service) List(ctx context.Context, f domain.Filter) ([]*domain.Record, error) {
	var (
		out []*domain.Record
		err error
	)
	switch {
	case f.JailbreakCategory != "" && f.HarmfulnessCategory != "":
		return nil, domain.ErrInvalidFilter
	case f.JailbreakCategory != "":
		out, err = s.Repo.FindByJailbreakCategory(ctx, f.JailbreakCategory)
	case f.HarmfulnessCategory != "":
		out, err = s.Repo.FindByHarmfulnessCategory(ctx, f.HarmfulnessCategory)
	default:
		out, err = s.Repo.FindAll(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: query security_log: %w", domain.ErrStorage, err)
	}
	if out == nil {
		out = []*domain.Record{}
	}
	return out, nil
}

func validatePrompt(prompt string) error {
	if strings.TrimSpace(prompt) == "" {
		return domain.ErrEmptyPrompt
	}
	if utf8.RuneCountInString(prompt) > domain.MaxPromptLength {
		return fmt.Errorf("%w: %d characters, max %d", domain.ErrPromptTooLong,
			utf8.RuneCountInString(prompt), domain.MaxPromptLength)
	}
	return nil
}

func offlineRecommendation(endpoint string) string {
	if endpoint == "" {
		return "Check if the scoring engine is running"
	}
	return "Check if the scoring engine is running at " + endpoint
}
