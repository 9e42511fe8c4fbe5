package job

import (
	"time"

	"github.com/recipebox/recipebox/logger"
	"github.com/recipebox/recipebox/util/common"
)

// Sweeper forgets rate limiter keys that have been idle for a while.
type Sweeper interface {
	Sweep(olderThan time.Duration) int
}

type LimiterSweepJob struct {
	limiter Sweeper
	idle    time.Duration
}

func NewLimiterSweepJob(limiter Sweeper, idle time.Duration) *LimiterSweepJob {
	return &LimiterSweepJob{limiter: limiter, idle: idle}
}

// Here Run is an interface method of the Job interface
func (j *LimiterSweepJob) Run() {
	defer common.Recover("limiter sweep job")
	if n := j.limiter.Sweep(j.idle); n > 0 {
		logger.Debugf("limiter sweep job forgot %d idle clients", n)
	}
}
