package devnet

import (
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/tarancss/zecdev/lib/logging"
)

// Progress renders stage percentages. On a terminal the line is rewritten in place; otherwise a log line is emitted
// each time the percentage crosses a 10% bucket.
type Progress struct {
	mu      sync.Mutex
	out     io.Writer
	tty     bool
	log     *zap.Logger
	sampler *logging.ProgressSampler
	open    bool // a \r line is pending a newline
}

// NewProgress returns a progress renderer writing to out when tty is set, logging to log otherwise.
func NewProgress(out io.Writer, tty bool, log *zap.Logger) *Progress {
	return &Progress{out: out, tty: tty, log: log, sampler: logging.NewProgressSampler(10)}
}

// Report renders stage at pct percent.
func (p *Progress) Report(stage string, pct int) {
	if p == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.tty {
		fmt.Fprintf(p.out, "\r%s... %d%%", stage, pct)
		p.open = true

		if pct >= 100 {
			fmt.Fprintln(p.out)
			p.open = false
		}

		return
	}

	if p.sampler.ShouldLog(stage, pct) {
		p.log.Info(stage, zap.Int("percent", pct))
	}
}

// Done ends a pending terminal line.
func (p *Progress) Done() {
	if p == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.open {
		fmt.Fprintln(p.out)
		p.open = false
	}
}
