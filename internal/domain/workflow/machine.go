package workflow

import "fmt"

// StateMachine tracks a current status and validates transitions against the table
type StateMachine interface {
	// State returns the current status
	State() Status

	// CanFire returns true if the action is permitted from the current status
	CanFire(action Action) bool

	// Fire moves the machine to target if the action permits it from the current status
	Fire(action Action, target Status) error

	// PermittedActions returns all actions configured for the current status
	PermittedActions() []Action

	// Targets returns every status reachable in one step, in lifecycle order
	Targets() []Status
}

// stateMachine implements StateMachine
type stateMachine struct {
	current        Status
	configurations map[Status]*stateConfig
}

// State returns the current status
func (m *stateMachine) State() Status {
	return m.current
}

// CanFire returns true if the action is permitted from the current status
func (m *stateMachine) CanFire(action Action) bool {
	config, exists := m.configurations[m.current]
	if !exists {
		return false
	}
	return len(config.transitions[action]) > 0
}

// Fire moves the machine to target if the action permits it from the current status
func (m *stateMachine) Fire(action Action, target Status) error {
	config, exists := m.configurations[m.current]
	if !exists {
		return fmt.Errorf("%w: cannot fire %s from %s (no configuration)", ErrInvalidTransition, action, m.current)
	}

	for _, to := range config.transitions[action] {
		if to == target {
			m.current = target
			return nil
		}
	}

	return fmt.Errorf("%w: %s from %s to %s", ErrInvalidTransition, action, m.current, target)
}

// PermittedActions returns all actions configured for the current status
func (m *stateMachine) PermittedActions() []Action {
	config, exists := m.configurations[m.current]
	if !exists {
		return []Action{}
	}

	actions := make([]Action, 0, len(config.transitions))
	for _, a := range append(AllActions(), ActionSysteme) {
		if len(config.transitions[a]) > 0 {
			actions = append(actions, a)
		}
	}
	return actions
}

// Targets returns every status reachable in one step, in lifecycle order
func (m *stateMachine) Targets() []Status {
	config, exists := m.configurations[m.current]
	if !exists {
		return []Status{}
	}

	reachable := make(map[Status]bool)
	for _, targets := range config.transitions {
		for _, to := range targets {
			reachable[to] = true
		}
	}

	out := make([]Status, 0, len(reachable))
	for _, s := range allStatuses {
		if reachable[s] {
			out = append(out, s)
		}
	}
	return out
}
