// Package report defines the composite verification report and the
// classified error kinds shared by every check in the pipeline.
package report

// Status is the outcome of a single check.
type Status int

const (
	StatusSkipped Status = iota
	StatusPassed
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPassed:
		return "passed"
	case StatusFailed:
		return "failed"
	default:
		return "skipped"
	}
}

// Well-known check names, in report order.
const (
	CheckTrustAnchor = "trust-anchor"
	CheckPublicHash  = "public-hash"
	CheckSnark       = "snark"
	CheckInclusion   = "inclusion"
	CheckSnapshot    = "snapshot" // suffixed with ":<source>" per asset source
)

// Check is one verified property. Err is nil iff Status is not StatusFailed.
type Check struct {
	Name   string
	Status Status
	Err    error
}

// Report aggregates every check of one verification run. It is created
// fresh per run and never mutated after Finish.
type Report struct {
	Checks []Check
}

// Add records a check outcome. A nil err marks the check passed.
func (r *Report) Add(name string, err error) {
	if err != nil {
		r.Checks = append(r.Checks, Check{Name: name, Status: StatusFailed, Err: err})
		return
	}
	r.Checks = append(r.Checks, Check{Name: name, Status: StatusPassed})
}

// Skip records a check that was not requested.
func (r *Report) Skip(name string) {
	r.Checks = append(r.Checks, Check{Name: name, Status: StatusSkipped})
}

// Overall is true iff every executed check passed. A report with no
// executed checks is not a pass.
func (r *Report) Overall() bool {
	executed := 0
	for _, c := range r.Checks {
		switch c.Status {
		case StatusFailed:
			return false
		case StatusPassed:
			executed++
		}
	}
	return executed > 0
}

// Failures returns the failed checks, for diagnosis.
func (r *Report) Failures() []Check {
	var out []Check
	for _, c := range r.Checks {
		if c.Status == StatusFailed {
			out = append(out, c)
		}
	}
	return out
}

// Find returns the named check, or a zero Check if absent.
func (r *Report) Find(name string) Check {
	for _, c := range r.Checks {
		if c.Name == name {
			return c
		}
	}
	return Check{}
}

// MalformedOnly is true when every failure is an input problem rather than
// a cryptographic one. CLI exit codes depend on the distinction.
func (r *Report) MalformedOnly() bool {
	failed := false
	for _, c := range r.Checks {
		if c.Status != StatusFailed {
			continue
		}
		failed = true
		if KindOf(c.Err) != KindMalformedInput {
			return false
		}
	}
	return failed
}
