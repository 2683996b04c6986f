package services

import (
	"context"

	"bikerental/pkg/logger"
)

type compensation struct {
	name string
	undo func(ctx context.Context) error
}

// saga records undo steps for a multi-step workflow that has no
// cross-collection transaction. Steps run in reverse order of registration.
type saga struct {
	logger *logger.Logger
	steps  []compensation
}

func newSaga(log *logger.Logger) *saga {
	return &saga{logger: log}
}

func (s *saga) onFailure(name string, undo func(ctx context.Context) error) {
	s.steps = append(s.steps, compensation{name: name, undo: undo})
}

// compensate runs every registered step even when ctx is already cancelled
// and when earlier steps fail.
func (s *saga) compensate(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	for i := len(s.steps) - 1; i >= 0; i-- {
		step := s.steps[i]
		if err := step.undo(ctx); err != nil {
			s.logger.WithError(err).WithField("step", step.name).Error("Compensating action failed")
		}
	}
	s.steps = nil
}
