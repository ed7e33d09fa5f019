package sweep

import (
	"context"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/teranos/jobsweep/errors"
	"github.com/teranos/jobsweep/logger"
)

var scheduleParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ParseSchedule checks a 5-field cron expression or descriptor (@hourly, @every 15m)
func ParseSchedule(spec string) (cron.Schedule, error) {
	sched, err := scheduleParser.Parse(spec)
	if err != nil {
		return nil, errors.WithHint(
			errors.NewInvalidConfigError("invalid schedule %q: %v", spec, err),
			`use a 5-field cron expression ("*/15 * * * *") or a descriptor ("@every 15m")`,
		)
	}
	return sched, nil
}

// RunScheduled runs fn once right away and then on every tick of spec until
// ctx is done. A tick that fires while the previous run is still going is
// skipped. Errors from fn are logged and do not stop the schedule.
func RunScheduled(ctx context.Context, spec string, fn func(context.Context) error, log *zap.SugaredLogger) error {
	if log == nil {
		log = logger.ComponentLogger("sweep.schedule")
	}
	if _, err := ParseSchedule(spec); err != nil {
		return err
	}

	runOnce := func() {
		if err := fn(ctx); err != nil && ctx.Err() == nil {
			log.Errorw("Scheduled sweep failed", logger.FieldError, err.Error())
		}
	}

	cl := cronLogger{log}
	c := cron.New(
		cron.WithParser(scheduleParser),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	id, err := c.AddFunc(spec, runOnce)
	if err != nil {
		return errors.Wrap(err, "failed to register schedule")
	}

	runOnce()
	if ctx.Err() != nil {
		return nil
	}

	c.Start()
	log.Infow("Waiting for next sweep", "schedule", spec, "next", c.Entry(id).Next)

	<-ctx.Done()
	<-c.Stop().Done()
	log.Infow("Schedule stopped")
	return nil
}

// cronLogger routes cron's own messages to zap
type cronLogger struct {
	l *zap.SugaredLogger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Errorw(msg, append(keysAndValues, logger.FieldError, err.Error())...)
}
