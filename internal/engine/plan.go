package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/torosent/volley/internal/config"
)

// ErrPlanTooLarge is returned when rate*rounds exceeds the slot limit.
var ErrPlanTooLarge = errors.New("plan exceeds request limit")

// Plan is the load shape of a run: Rate requests in each of Rounds rounds,
// with round starts at least RoundInterval apart.
type Plan struct {
	Rate          uint32
	Rounds        uint32
	RoundInterval time.Duration
}

// PlanFromConfig extracts the load shape from a validated configuration.
func PlanFromConfig(cfg *config.Config) Plan {
	return Plan{
		Rate:          uint32(cfg.Rate),
		Rounds:        uint32(cfg.Rounds),
		RoundInterval: cfg.RoundInterval,
	}
}

// Total returns Rate*Rounds.
func (p Plan) Total() uint64 {
	return uint64(p.Rate) * uint64(p.Rounds)
}

func (p Plan) validate() error {
	if total := p.Total(); total > config.MaxTotalRequests {
		return fmt.Errorf("%w: %d requests (limit %d)", ErrPlanTooLarge, total, config.MaxTotalRequests)
	}
	return nil
}

func (p Plan) interval() time.Duration {
	if p.RoundInterval <= 0 {
		return time.Second
	}
	return p.RoundInterval
}
