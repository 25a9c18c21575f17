package s3_scoring

import (
	"sort"

	"github.com/wonny/scanner/internal/contracts"
	"github.com/wonny/scanner/internal/scoringconfig"
	"github.com/wonny/scanner/pkg/logger"
)

// Scorer applies the composer to a whole run
type Scorer struct {
	composer   *Composer
	thresholds scoringconfig.TrendThresholds
	logger     *logger.Logger
}

// NewScorer creates a new scorer
func NewScorer(cfg *scoringconfig.Config, log *logger.Logger) *Scorer {
	return &Scorer{
		composer:   NewComposer(cfg),
		thresholds: cfg.Regimes.TrendThresholds,
		logger:     log.WithStage(contracts.StageScoring.ShortName()),
	}
}

// Composer returns the underlying pure composer
func (s *Scorer) Composer() *Composer {
	return s.composer
}

// ScoreAll composes every record; records and normalized must align by index
func (s *Scorer) ScoreAll(records []contracts.AssetRecord, normalized []contracts.NormalizedFactors) []contracts.ScoredAsset {
	out := make([]contracts.ScoredAsset, 0, len(records))
	regimes := make(map[contracts.Regime]int)

	for i := range records {
		regime := ResolveRegime(records[i], s.thresholds)
		regimes[regime]++

		out = append(out, contracts.ScoredAsset{
			Record:     records[i],
			Normalized: normalized[i],
			Result:     s.composer.Compose(normalized[i], regime),
		})
	}

	fields := map[string]interface{}{
		"scored":  len(out),
		"bull":    regimes[contracts.RegimeBull],
		"neutral": regimes[contracts.RegimeNeutral],
		"bear":    regimes[contracts.RegimeBear],
	}
	if top := TopN(out, 1); len(top) == 1 {
		fields["top_score"] = top[0].Result.Score
		fields["top_identifier"] = top[0].Record.Identifier
	}
	s.logger.WithFields(fields).Info("Scoring completed")

	return out
}

// TopN returns up to n assets by score (descending, identifier as tie-break)
func TopN(assets []contracts.ScoredAsset, n int) []contracts.ScoredAsset {
	ranked := make([]contracts.ScoredAsset, len(assets))
	copy(ranked, assets)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Result.Score != ranked[j].Result.Score {
			return ranked[i].Result.Score > ranked[j].Result.Score
		}
		return ranked[i].Record.Identifier < ranked[j].Record.Identifier
	})
	if n >= 0 && n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked
}
