package devnet

import "time"

// Phase is a step of the bootstrap. Phases advance in declaration order and never go back.
type Phase int

const (
	WaitNode Phase = iota
	WaitBackend
	WaitWalletService
	MineToMaturity
	MineExtra
	PropagateDelay
	GenerateFixtures
	SyncWallet
	CheckBalancePre
	ShieldFunds
	ResyncPostShield
	CheckBalancePost
	StartContinuousMiner
	Done
	Failed
)

var phaseNames = [...]string{ //nolint:gochecknoglobals // enum names
	"WaitNode", "WaitBackend", "WaitWalletService", "MineToMaturity", "MineExtra", "PropagateDelay",
	"GenerateFixtures", "SyncWallet", "CheckBalancePre", "ShieldFunds", "ResyncPostShield", "CheckBalancePost",
	"StartContinuousMiner", "Done", "Failed",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "Unknown"
	}

	return phaseNames[p]
}

// OutcomeKind classifies the result of a phase.
type OutcomeKind int

const (
	Success OutcomeKind = iota
	Warning
	Fatal
)

func (k OutcomeKind) String() string {
	switch k {
	case Success:
		return "success"
	case Warning:
		return "warning"
	case Fatal:
		return "fatal"
	}

	return "unknown"
}

// Outcome is the result of a phase. Err is set for Fatal outcomes and for warnings caused by an error.
type Outcome struct {
	Kind   OutcomeKind
	Reason string
	Err    error
}

func ok(reason string) Outcome { return Outcome{Kind: Success, Reason: reason} }

func warn(reason string) Outcome { return Outcome{Kind: Warning, Reason: reason} }

func warnErr(err error) Outcome { return Outcome{Kind: Warning, Reason: err.Error(), Err: err} }

func fatal(err error) Outcome { return Outcome{Kind: Fatal, Reason: err.Error(), Err: err} }

// PhaseResult records a phase run.
type PhaseResult struct {
	Phase   Phase
	Outcome Outcome
	Elapsed time.Duration
}

// Report is the result of a bootstrap run. Final is Done or Failed.
type Report struct {
	Results []PhaseResult
	Final   Phase
}

// Warnings returns the results with a Warning outcome.
func (r Report) Warnings() []PhaseResult {
	var res []PhaseResult

	for _, pr := range r.Results {
		if pr.Outcome.Kind == Warning {
			res = append(res, pr)
		}
	}

	return res
}

// Last returns the last phase that ran.
func (r Report) Last() (PhaseResult, bool) {
	if len(r.Results) == 0 {
		return PhaseResult{}, false
	}

	return r.Results[len(r.Results)-1], true
}
