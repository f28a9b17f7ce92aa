package jobs

import (
	"context"
	"fmt"
	"time"

	"fleet-equipment-api/pkg/logger"

	"github.com/robfig/cron/v3"
)

const scanTimeout = 5 * time.Minute

// Scanner is a job run on every scheduler tick.
type Scanner interface {
	Scan(ctx context.Context) (ScanResult, error)
}

// Scheduler runs the alert scanner on a cron schedule.
type Scheduler struct {
	cron *cron.Cron
}

// StartAlertScanSchedule registers the scanner under spec and starts the
// cron runner. An empty spec disables scanning and returns nil.
func StartAlertScanSchedule(spec string, scanner Scanner) (*Scheduler, error) {
	if spec == "" {
		logger.WithComponent("scheduler").Info("alert scanning disabled")
		return nil, nil
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(spec, func() { runScan(scanner) }); err != nil {
		return nil, fmt.Errorf("invalid alert scan schedule %q: %w", spec, err)
	}
	c.Start()

	logger.WithComponent("scheduler").WithField("schedule", spec).Info("alert scanning scheduled")
	return &Scheduler{cron: c}, nil
}

func runScan(scanner Scanner) {
	ctx, cancel := context.WithTimeout(context.Background(), scanTimeout)
	defer cancel()

	if _, err := scanner.Scan(ctx); err != nil {
		logger.WithComponent("scheduler").WithError(err).Error("alert scan failed")
	}
}

// Stop stops scheduling and waits for a running scan to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	if s == nil {
		return
	}
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}
