package models

// RiskCheck is one named admission check with its outcome.
type RiskCheck struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Reason string `json:"reason,omitempty"`
}

// RiskDecision is the ordered record of admission checks run against a
// signal. Checks short-circuit: the first failure terminates the chain, so
// at most one check in the record is failed.
type RiskDecision struct {
	Checks  []RiskCheck `json:"checks"`
	Allowed bool        `json:"allowed"`
}

// Pass appends a passing check.
func (d *RiskDecision) Pass(name string) {
	d.Checks = append(d.Checks, RiskCheck{Name: name, Passed: true})
}

// Fail appends the failing check and marks the decision as not allowed.
func (d *RiskDecision) Fail(name, reason string) {
	d.Checks = append(d.Checks, RiskCheck{Name: name, Passed: false, Reason: reason})
	d.Allowed = false
}

// FailureReasons returns the reasons of all failing checks.
func (d *RiskDecision) FailureReasons() []string {
	var reasons []string
	for _, c := range d.Checks {
		if !c.Passed {
			reasons = append(reasons, c.Reason)
		}
	}
	return reasons
}

// ExecutionState is a stage of the execution state machine.
type ExecutionState string

const (
	StateValidated       ExecutionState = "validated"
	StateRiskChecked     ExecutionState = "risk_checked"
	StateCircuitChecked  ExecutionState = "circuit_checked"
	StateApprovalChecked ExecutionState = "approval_checked"
	StatePlaced          ExecutionState = "placed"
	StateRejected        ExecutionState = "rejected"
	StatePendingApproval ExecutionState = "pending_approval"
)
