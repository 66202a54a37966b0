package plan

import (
	"github.com/satishbabariya/godal/dalerr"
)

// Step is an op together with its rendered statements.
type Step struct {
	Op  Op
	SQL []string
	// NonTransactional is set when the backend cannot run SQL inside a
	// transaction.
	NonTransactional bool
	Destructive      bool
}

// NewStep builds a step for op.
func NewStep(op Op, sql []string, nonTransactional bool) Step {
	return Step{Op: op, SQL: sql, NonTransactional: nonTransactional, Destructive: op.Destructive()}
}

func (s Step) String() string { return s.Op.String() }

// Plan is an ordered sequence of steps. Pending holds destructive steps that
// were required but not scheduled because destructive mode was off.
type Plan struct {
	Dialect  string
	Steps    []Step
	Pending  []Step
	Warnings []string
}

// Empty reports whether the live schema already matches the model.
func (p *Plan) Empty() bool { return len(p.Steps) == 0 && len(p.Pending) == 0 }

// NonTransactional returns the scheduled steps that cannot run in a
// transaction.
func (p *Plan) NonTransactional() []Step {
	var out []Step
	for _, s := range p.Steps {
		if s.NonTransactional {
			out = append(out, s)
		}
	}
	return out
}

// Blocked returns a *dalerr.DestructiveChangeBlocked listing the pending
// steps, or nil when nothing is pending.
func (p *Plan) Blocked() error {
	if len(p.Pending) == 0 {
		return nil
	}
	pending := make([]string, len(p.Pending))
	for i, s := range p.Pending {
		pending[i] = s.String()
	}
	return &dalerr.DestructiveChangeBlocked{Pending: pending}
}

// SQL returns every scheduled statement in order.
func (p *Plan) SQL() []string {
	var out []string
	for _, s := range p.Steps {
		out = append(out, s.SQL...)
	}
	return out
}
