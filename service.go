package main

import (
	"fmt"
	"time"

	"github.com/kardianos/service"
)

const serviceStopTimeout = 30 * time.Second

// program adapts the agent to service.Interface.
type program struct {
	stop chan struct{}
	done chan int
}

func newProgram() *program {
	return &program{
		stop: make(chan struct{}),
		done: make(chan int, 1),
	}
}

// Start is called by the service manager; it must not block.
func (p *program) Start(s service.Service) error {
	go func() {
		p.done <- runAgent(p.stop, false)
	}()
	return nil
}

// Stop asks the agent to tear down and waits for it.
func (p *program) Stop(s service.Service) error {
	close(p.stop)
	select {
	case code := <-p.done:
		if code != 0 {
			return fmt.Errorf("agent exited with code %d", code)
		}
		return nil
	case <-time.After(serviceStopTimeout):
		return fmt.Errorf("timeout waiting for service to stop")
	}
}

// serviceConfig returns the service definition. The installed service
// runs the binary with the "run" command.
func serviceConfig() *service.Config {
	return &service.Config{
		Name:        "sysmon",
		DisplayName: "sysmon thread monitor",
		Description: "Samples per-thread CPU and stack usage and system memory into fixed-length histories",
		Arguments:   []string{"run"},
		Option: service.KeyValue{
			"StartType": "automatic",
			"Restart":   "on-failure",
		},
	}
}

func newService(p *program) (service.Service, error) {
	s, err := service.New(p, serviceConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create service: %w", err)
	}
	return s, nil
}

// controlService runs install, uninstall, start, stop or restart.
func controlService(action string) error {
	s, err := newService(newProgram())
	if err != nil {
		return err
	}
	if err := service.Control(s, action); err != nil {
		return fmt.Errorf("service %s failed: %w", action, err)
	}
	return nil
}

// serviceStatus returns a readable service state.
func serviceStatus() (string, error) {
	s, err := newService(newProgram())
	if err != nil {
		return "", err
	}
	status, err := s.Status()
	if err != nil {
		return "", err
	}
	return statusName(status), nil
}

func statusName(status service.Status) string {
	switch status {
	case service.StatusRunning:
		return "running"
	case service.StatusStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// runService hands control to the service manager until it stops the agent.
func runService() error {
	s, err := newService(newProgram())
	if err != nil {
		return err
	}
	if err := s.Run(); err != nil {
		return fmt.Errorf("service run failed: %w", err)
	}
	return nil
}
