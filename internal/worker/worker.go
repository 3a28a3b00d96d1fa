package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"campaign-automator-api/internal/automation"

	"go.uber.org/zap"
)

// BatchRunner is the part of automation.Runner the worker drives.
type BatchRunner interface {
	Run(ctx context.Context, req automation.Request) (automation.BatchResult, error)
}

// Worker is de achtergrond-scheduler die periodiek alle actieve regels laat draaien.
type Worker struct {
	runner   BatchRunner
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// NewWorker ...
func NewWorker(runner BatchRunner, interval, timeout time.Duration, logger *zap.Logger) (*Worker, error) {
	if runner == nil {
		return nil, fmt.Errorf("runner mag niet nil zijn")
	}
	if interval <= 0 {
		return nil, fmt.Errorf("interval must be positive, got %s", interval)
	}
	if timeout <= 0 || timeout > interval {
		// Een cyclus mag nooit over de volgende tick heen lopen.
		timeout = interval
	}

	return &Worker{
		runner:   runner,
		interval: interval,
		timeout:  timeout,
		logger:   logger.With(zap.String("component", "worker")),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// Start lanceert de worker in een aparte goroutine
func (w *Worker) Start() {
	w.logger.Info("starting worker", zap.Duration("interval", w.interval))

	go w.run()
}

// Stop signals the loop to exit and waits for the running cycle to finish.
func (w *Worker) Stop() {
	w.once.Do(func() { close(w.stop) })
	<-w.done
}

// run is de hoofdloop
func (w *Worker) run() {
	defer close(w.done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// Draai één keer direct bij het opstarten
	w.doWork()

	for {
		select {
		case <-w.stop:
			w.logger.Info("worker stopped")
			return
		case <-ticker.C:
			w.doWork()
		}
	}
}

// doWork is de daadwerkelijke werklading
func (w *Worker) doWork() {
	w.logger.Debug("running work cycle")

	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	result, err := w.runner.Run(ctx, automation.Request{Mode: automation.ModeCheckAll})
	if err != nil {
		w.logger.Error("automation batch failed", zap.Error(err))
		return
	}

	w.logger.Info("work cycle finished",
		zap.Int("total", result.Total),
		zap.Int("executed", result.Executed),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed),
	)
}
