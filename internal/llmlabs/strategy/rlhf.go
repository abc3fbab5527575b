package strategy

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/llm-labs/internal/llmlabs/config"
)

// Simulated RLHF constants: the reward-model accuracy window and the PPO
// loss/reward progression per optimization epoch.
const (
	rewardAccuracyFloor = 0.85
	rewardAccuracyRange = 0.1
	initialPPOLoss      = 0.5
	ppoLossDecay        = 0.9
	initialReward       = 0.5
	rewardStep          = 0.1
	rewardCap           = 0.95
	fallbackPPOEpochs   = 4
)

// RLHF simulates reinforcement learning from human feedback over preference
// examples: a reward-model accuracy draw followed by a PPO-style loss decay.
type RLHF struct {
	tracker

	cfg   config.RLHFConfig
	prefs []Preference
}

// NewRLHF creates an RLHF strategy for the given config.
func NewRLHF(cfg config.RLHFConfig, logger *zap.Logger) *RLHF {
	return &RLHF{
		tracker: newTracker(KindRLHF, cfg.TrainingConfig, logger),
		cfg:     cfg,
	}
}

// AddPreferenceData appends preference examples to the training set.
func (s *RLHF) AddPreferenceData(prefs ...Preference) {
	s.prefs = append(s.prefs, prefs...)
}

// PreferenceData returns the accumulated preference examples.
func (s *RLHF) PreferenceData() []Preference {
	out := make([]Preference, len(s.prefs))
	copy(out, s.prefs)
	return out
}

// Train simulates the two RLHF phases over the current preference set.
func (s *RLHF) Train(_ context.Context) *TrainingResult {
	start := time.Now()

	if err := validate(s.cfg.Model); err != nil {
		return failure(s.cfg.Model.ModelID, start, err)
	}

	if len(s.prefs) == 0 {
		return failure(s.cfg.Model.ModelID, start, &DataError{Reason: "no preference data provided"})
	}

	rewardAccuracy := rewardAccuracyFloor + s.rng.Float64()*rewardAccuracyRange

	ppoEpochs := s.cfg.PPOEpochs
	if ppoEpochs <= 0 {
		ppoEpochs = fallbackPPOEpochs
	}

	ppoLoss := initialPPOLoss
	averageReward := initialReward
	for epoch := 1; epoch <= ppoEpochs; epoch++ {
		ppoLoss *= ppoLossDecay
		averageReward = math.Min(rewardCap, averageReward+rewardStep)

		s.logger.Debug("ppo epoch finished",
			zap.Int("epoch", epoch),
			zap.Float64("ppo_loss", ppoLoss),
			zap.Float64("average_reward", averageReward),
		)
	}

	s.logger.Info("rlhf finished",
		zap.Int("preference_examples", len(s.prefs)),
		zap.Float64("reward_model_accuracy", rewardAccuracy),
		zap.Float64("average_reward", averageReward),
	)

	duration := time.Since(start)
	s.record(map[string]any{
		"preference_examples":   len(s.prefs),
		"reward_model_accuracy": rewardAccuracy,
		"ppo_epochs":            ppoEpochs,
		"clip_ratio":            s.cfg.ClipRatio,
		"final_ppo_loss":        ppoLoss,
		"average_reward":        averageReward,
	}, duration)

	return &TrainingResult{
		Success:  true,
		ModelID:  s.cfg.Model.ModelID,
		Duration: duration,
		Metrics: map[string]float64{
			"reward_model_accuracy": rewardAccuracy,
			"ppo_loss":              ppoLoss,
			"average_reward":        averageReward,
		},
		Checkpoint: fmt.Sprintf("checkpoints/%s-rlhf", s.cfg.Model.ModelID),
	}
}
