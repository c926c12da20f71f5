// Package startup brings external dependencies up in dependency order, retrying the
// whole set with fibonacci backoff until every one has started.
package startup

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
)

type StartupDependency interface {
	GetName() string
	DependsOn() []string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

type StartupStatus int

const (
	StartupStatusPending StartupStatus = iota
	StartupStatusStarted
	StartupStatusStopped
	StartupStatusFailed
)

func (s StartupStatus) String() string {
	switch s {
	case StartupStatusStarted:
		return "started"
	case StartupStatusStopped:
		return "stopped"
	case StartupStatusFailed:
		return "failed"
	default:
		return "pending"
	}
}

type Startup struct {
	dependencies map[string]StartupDependency
	order        []string
	logger       ectologger.Logger
	statuses     map[string]StartupStatus
	attempt      int
	maxAttempts  int
	backoffUnit  time.Duration
}

func NewStartup(logger ectologger.Logger, maxAttempts int) *Startup {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Startup{
		logger:       logger,
		dependencies: make(map[string]StartupDependency),
		statuses:     make(map[string]StartupStatus),
		maxAttempts:  maxAttempts,
		backoffUnit:  time.Second,
	}
}

// SetBackoffUnit changes the duration of one fibonacci step
func (s *Startup) SetBackoffUnit(d time.Duration) {
	s.backoffUnit = d
}

func (s *Startup) AddDependency(dependency StartupDependency) {
	name := dependency.GetName()
	if _, exists := s.dependencies[name]; !exists {
		s.order = append(s.order, name)
	}
	s.dependencies[name] = dependency
}

// Status reports the state of a registered dependency
func (s *Startup) Status(name string) StartupStatus {
	return s.statuses[name]
}

// Attempts is the number of attempts the last Start made
func (s *Startup) Attempts() int {
	return s.attempt
}

func (s *Startup) Start(ctx context.Context) error {
	s.attempt = 0
	var lastErr error

	a, b := 1, 1
	for s.attempt < s.maxAttempts {
		s.attempt++
		s.logger.WithField("attempt", s.attempt).Infof("Beginning startup attempt %d", s.attempt)

		success := true
		for _, name := range s.order {
			err := s.startDependency(ctx, s.dependencies[name], nil)
			if err != nil {
				s.logger.WithError(err).Errorf("Startup dependency '%s' attempt %d failed", name, s.attempt)
				lastErr = err
				success = false
				break
			}
		}

		if success {
			return nil
		}

		if s.attempt >= s.maxAttempts {
			return fmt.Errorf("startup failed after %d attempts: %w", s.attempt, lastErr)
		}

		waitTime := time.Duration(a) * s.backoffUnit
		s.logger.Infof("Retrying in %s (attempt %d/%d)", waitTime, s.attempt, s.maxAttempts)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(waitTime):
		}

		a, b = b, a+b
	}

	return nil
}

func (s *Startup) startDependency(ctx context.Context, dependency StartupDependency, visiting []string) error {
	name := dependency.GetName()
	if s.statuses[name] == StartupStatusStarted {
		return nil
	}
	for _, v := range visiting {
		if v == name {
			return fmt.Errorf("dependency cycle through '%s'", name)
		}
	}
	visiting = append(visiting, name)

	for _, dependencyName := range dependency.DependsOn() {
		upstream, ok := s.dependencies[dependencyName]
		if !ok {
			return fmt.Errorf("dependency '%s' requires unknown dependency '%s'", name, dependencyName)
		}
		if s.statuses[dependencyName] != StartupStatusStarted {
			if err := s.startDependency(ctx, upstream, visiting); err != nil {
				return err
			}
		}
	}

	s.logger.WithField("dependency", name).Infof("Starting dependency '%s'", name)
	s.statuses[name] = StartupStatusPending
	if err := dependency.Start(ctx); err != nil {
		s.statuses[name] = StartupStatusFailed
		s.logger.WithError(err).WithField("dependency", name).Errorf("Failed to start dependency '%s'", name)
		return err
	}
	s.statuses[name] = StartupStatusStarted
	return nil
}

// Stop stops started dependencies in reverse registration order, dependents first
func (s *Startup) Stop(ctx context.Context) error {
	for i := len(s.order) - 1; i >= 0; i-- {
		if err := s.stopDependency(ctx, s.dependencies[s.order[i]]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Startup) stopDependency(ctx context.Context, dependency StartupDependency) error {
	name := dependency.GetName()
	if s.statuses[name] != StartupStatusStarted {
		return nil
	}

	for _, other := range s.order {
		if s.statuses[other] != StartupStatusStarted {
			continue
		}
		for _, upstream := range s.dependencies[other].DependsOn() {
			if upstream == name {
				if err := s.stopDependency(ctx, s.dependencies[other]); err != nil {
					return err
				}
			}
		}
	}

	s.logger.WithField("dependency", name).Infof("Stopping dependency '%s'", name)
	if err := dependency.Stop(ctx); err != nil {
		s.logger.WithError(err).WithField("dependency", name).Errorf("Failed to stop dependency '%s'", name)
		return err
	}

	s.logger.WithField("dependency", name).Infof("Dependency '%s' stopped", name)
	s.statuses[name] = StartupStatusStopped
	return nil
}

// Func adapts plain functions into a StartupDependency
type Func struct {
	Name      string
	Requires  []string
	StartFunc func(ctx context.Context) error
	StopFunc  func(ctx context.Context) error
}

func (f *Func) GetName() string     { return f.Name }
func (f *Func) DependsOn() []string { return f.Requires }

func (f *Func) Start(ctx context.Context) error {
	if f.StartFunc == nil {
		return nil
	}
	return f.StartFunc(ctx)
}

func (f *Func) Stop(ctx context.Context) error {
	if f.StopFunc == nil {
		return nil
	}
	return f.StopFunc(ctx)
}
