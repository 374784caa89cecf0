package directory

import (
	"errors"
	"fmt"
)

type LoadStatus int

const (
	StatusIdle LoadStatus = iota
	StatusLoading
	StatusLoaded
	StatusErrored
)

func (s LoadStatus) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusLoaded:
		return "loaded"
	case StatusErrored:
		return "errored"
	default:
		return fmt.Sprintf("LoadStatus(%d)", int(s))
	}
}

var ErrInvalidTransition = errors.New("invalid load state transition")

// LoadState tracks idle -> loading -> loaded|errored. Leaving a terminal
// state needs an explicit Refresh.
type LoadState struct {
	status LoadStatus
	err    error
}

func (s *LoadState) Status() LoadStatus { return s.status }

// Err is the failure recorded by the last Fail.
func (s *LoadState) Err() error { return s.err }

func (s *LoadState) Begin() error {
	if s.status != StatusIdle {
		return fmt.Errorf("%w: begin from %s", ErrInvalidTransition, s.status)
	}
	s.status = StatusLoading
	return nil
}

func (s *LoadState) Refresh() error {
	if s.status != StatusLoaded && s.status != StatusErrored {
		return fmt.Errorf("%w: refresh from %s", ErrInvalidTransition, s.status)
	}
	s.status = StatusLoading
	s.err = nil
	return nil
}

func (s *LoadState) Succeed() error {
	if s.status != StatusLoading {
		return fmt.Errorf("%w: succeed from %s", ErrInvalidTransition, s.status)
	}
	s.status = StatusLoaded
	return nil
}

func (s *LoadState) Fail(err error) error {
	if s.status != StatusLoading {
		return fmt.Errorf("%w: fail from %s", ErrInvalidTransition, s.status)
	}
	s.status = StatusErrored
	s.err = err
	return nil
}

// Start moves into loading from any state that is not already loading.
func (s *LoadState) Start() error {
	if s.status == StatusIdle {
		return s.Begin()
	}
	return s.Refresh()
}
