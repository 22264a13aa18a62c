package strategy

import (
	"go.uber.org/zap"

	"github.com/StatArbTrader/pairs-bot/internal/config"
	"github.com/StatArbTrader/pairs-bot/internal/position"
	"github.com/StatArbTrader/pairs-bot/internal/stats"
)

// Decision is the evaluator's verdict for one cycle.
type Decision string

const (
	Hold             Decision = "HOLD"
	EnterLongSpread  Decision = "ENTER_LONG_SPREAD"  // spread too narrow: buy A, sell B
	EnterShortSpread Decision = "ENTER_SHORT_SPREAD" // spread too wide: sell A, buy B
	Exit             Decision = "EXIT"
)

// Evaluator maps the current z-score and position mode to a trading
// decision. Entries from FLAT are gated on the cointegration verdict; in
// advisory mode a failed test only logs a warning, matching the behavior of
// older single-pair bots.
type Evaluator struct {
	entryThreshold float64
	exitThreshold  float64
	gate           config.GateMode
	logger         *zap.Logger
}

// NewEvaluator builds an evaluator from validated thresholds. The config
// layer guarantees entryThreshold > exitThreshold before this runs.
func NewEvaluator(entryThreshold, exitThreshold float64, gate config.GateMode, logger *zap.Logger) *Evaluator {
	return &Evaluator{
		entryThreshold: entryThreshold,
		exitThreshold:  exitThreshold,
		gate:           gate,
		logger:         logger,
	}
}

// Evaluate applies the decision rules in priority order. Entry is only ever
// considered when the state is FLAT; exits never consult the cointegration
// verdict.
func (e *Evaluator) Evaluate(mode position.Mode, zScore float64, verdict stats.CointegrationVerdict) Decision {
	switch mode {
	case position.LongSpread:
		if zScore >= -e.exitThreshold {
			return Exit
		}
		return Hold

	case position.ShortSpread:
		if zScore <= e.exitThreshold {
			return Exit
		}
		return Hold

	default:
		if !verdict.IsCointegrated {
			if e.gate == config.GateAdvisory {
				e.logger.Warn("pair failed cointegration test, advisory gate lets the signal proceed",
					zap.Float64("p_value", verdict.PValue),
				)
			} else {
				if zScore >= e.entryThreshold || zScore <= -e.entryThreshold {
					e.logger.Warn("entry signal suppressed: pair is not cointegrated",
						zap.Float64("z_score", zScore),
						zap.Float64("p_value", verdict.PValue),
					)
				}
				return Hold
			}
		}

		if zScore >= e.entryThreshold {
			return EnterShortSpread
		}
		if zScore <= -e.entryThreshold {
			return EnterLongSpread
		}
		return Hold
	}
}
