package scheduler

import (
	"context"
	"fmt"
	"log"

	"drive-access-service/internal/config"
	"drive-access-service/internal/services"

	"github.com/robfig/cron/v3"
)

// Scheduler drives the periodic passes: the expiry sweep, the expiry
// warning pass, and the daily digest. Each job runs under SkipIfStillRunning
// so a slow provider never stacks overlapping sweeps.
type Scheduler struct {
	cron   *cron.Cron
	grants *services.GrantService
	cfg    config.ExpiryConfig
}

func NewScheduler(grants *services.GrantService, cfg config.ExpiryConfig) *Scheduler {
	cronLogger := cron.PrintfLogger(log.Default())
	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cronLogger),
			cron.Recover(cronLogger),
		)),
		grants: grants,
		cfg:    cfg,
	}
}

// Start registers the three jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	jobs := []struct {
		name     string
		interval string
		run      func()
	}{
		{"expiry-sweep", fmt.Sprintf("@every %s", s.cfg.SweepInterval), s.runSweep},
		{"expiry-warning", fmt.Sprintf("@every %s", s.cfg.WarningInterval), s.runWarningPass},
		{"daily-digest", fmt.Sprintf("@every %s", s.cfg.DigestInterval), s.runDailyDigest},
	}

	for _, job := range jobs {
		if _, err := s.cron.AddFunc(job.interval, job.run); err != nil {
			return fmt.Errorf("failed to schedule %s: %w", job.name, err)
		}
		log.Printf("Scheduled %s every %s", job.name, job.interval)
	}

	s.cron.Start()
	log.Println("Expiry scheduler started")
	return nil
}

// Stop stops scheduling new runs and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("Expiry scheduler stopped")
}

func (s *Scheduler) runSweep() {
	if _, err := s.grants.RunSweepOnce(context.Background()); err != nil {
		log.Printf("Expiry sweep failed: %v", err)
	}
}

func (s *Scheduler) runWarningPass() {
	warned, err := s.grants.RunWarningPass(context.Background(), s.cfg.WarningWindow)
	if err != nil {
		log.Printf("Expiry warning pass failed: %v", err)
		return
	}
	if warned > 0 {
		log.Printf("Expiry warning pass: warned=%d", warned)
	}
}

func (s *Scheduler) runDailyDigest() {
	if err := s.grants.RunDailyDigest(context.Background()); err != nil {
		log.Printf("Daily digest failed: %v", err)
	}
}
