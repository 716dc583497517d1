package visual

import (
	"context"
	"fmt"

	"github.com/chatguard/chatguard/automod/helpers"
	"github.com/chatguard/chatguard/automod/scoring"

	"golang.org/x/sync/semaphore"
)

// Produces raw nudity scores for an image by combining the region detector with the (optional) whole-image classifier.
type Scorer struct {
	Detector  *DetectorClient
	PreScreen *PreScreenClient
	Readiness *helpers.Readiness

	sem *semaphore.Weighted
}

// `concurrency` bounds the number of images scored at once by this process.
func NewScorer(detector *DetectorClient, prescreen *PreScreenClient, concurrency int64) *Scorer {
	if concurrency <= 0 {
		concurrency = 1
	}
	s := &Scorer{
		Detector:  detector,
		PreScreen: prescreen,
		Readiness: helpers.NewReadiness(),
		sem:       semaphore.NewWeighted(concurrency),
	}
	// remote services; nothing to load in-process
	s.Readiness.MarkReady()
	return s
}

func (s *Scorer) Ready() bool {
	return s.Readiness.Ready()
}

func (s *Scorer) Score(ctx context.Context, image []byte) (scoring.ScoreMap, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer s.sem.Release(1)

	scores, err := s.Detector.Detect(ctx, image)
	if err != nil {
		return nil, err
	}
	if s.PreScreen != nil {
		p, err := s.PreScreen.PreScreenImage(ctx, image)
		if err != nil {
			return nil, fmt.Errorf("nsfw model: %w", err)
		}
		scores[scoring.NSFWModelLabel] = p
	}
	return scores, nil
}
