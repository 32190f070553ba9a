package prompt

import (
	"errors"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"golang.org/x/term"
)

// Returned by ReadLine when a terminating signal interrupted input. The
// variables are unexported, so code outside this package tells the four
// apart only by their message; all four mean "stop reading, the line is
// gone", as io.EOF does for a closed input.
var (
	errSignalInterrupt  = errors.New("prompt: interrupted")
	errSignalTerminated = errors.New("prompt: terminated")
	errSignalHangup     = errors.New("prompt: hangup")
	errSignalQuit       = errors.New("prompt: quit")
)

// caughtSignal values are bits in the atomic word pollSignals inspects. Using
// a bitmask rather than a channel-per-call lets multiple distinct signals
// arrive between polls without one overwriting another, mirroring readline's
// sig_atomic_t bitmap of pending signals (without needing actual
// signal-handler reentrancy restrictions -- Go's signal delivery already
// happens on an ordinary goroutine, so the atomic word here exists only to
// give the dispatch loop a single well-known point to notice a signal rather
// than reacting to one mid-command).
type caughtSignal uint32

const (
	sigNone caughtSignal = 0
	sigInt  caughtSignal = 1 << 0
	sigTerm caughtSignal = 1 << 1
	sigHup  caughtSignal = 1 << 2
	sigQuit caughtSignal = 1 << 3
)

// signalState tracks signals caught since the last poll, plus the channel
// SIGTSTP needs re-subscribed to it after signal.Reset releases it for the
// stop-and-resume dance in handleTstp.
type signalState struct {
	caught atomic.Uint32
	tstpCh chan os.Signal
}

func (s *signalState) raise(sig caughtSignal) {
	for {
		old := s.caught.Load()
		if s.caught.CompareAndSwap(old, old|uint32(sig)) {
			return
		}
	}
}

// poll returns the signals caught since the last poll and clears them.
func (s *signalState) poll() caughtSignal {
	return caughtSignal(s.caught.Swap(0))
}

// installSignals wires up SIGINT/SIGTERM/SIGHUP/SIGQUIT (recorded for
// pollSignals to notice at a safe point in the dispatch loop), SIGWINCH
// (handled immediately, same as the teacher's original inline goroutine), and
// SIGTSTP (stopped and resumed synchronously: deprep raw mode, re-raise the
// signal against ourselves so the job control semantics the shell expects
// still happen, then re-prep and force a full redraw once the process is
// continued). It returns a cleanup func to call when ReadLine returns.
func (p *Prompt) installSignals() func() {
	if p.fd == -1 {
		return func() {}
	}

	ch := make(chan os.Signal, 8)
	p.sig.tstpCh = ch
	signal.Notify(ch,
		syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGQUIT,
		syscall.SIGWINCH, syscall.SIGTSTP)

	done := make(chan struct{})
	go func() {
		for {
			select {
			case sig, ok := <-ch:
				if !ok {
					return
				}
				switch sig {
				case syscall.SIGWINCH:
					_ = p.updateSize()
				case syscall.SIGTSTP:
					p.handleTstp()
				case syscall.SIGINT:
					debugSignal("SIGINT")
					p.sig.raise(sigInt)
				case syscall.SIGTERM:
					debugSignal("SIGTERM")
					p.sig.raise(sigTerm)
				case syscall.SIGHUP:
					debugSignal("SIGHUP")
					p.sig.raise(sigHup)
				case syscall.SIGQUIT:
					debugSignal("SIGQUIT")
					p.sig.raise(sigQuit)
				}
			case <-done:
				return
			}
		}
	}()

	return func() {
		signal.Stop(ch)
		close(done)
		close(ch)
	}
}

// handleTstp deprep's the terminal, stops the process by re-raising SIGTSTP
// against itself with the signal's default disposition restored, and once
// the shell resumes us, re-preps raw mode and forces a full redraw -- the
// display was almost certainly scribbled on by whatever ran while we were
// stopped.
func (p *Prompt) handleTstp() {
	p.mu.Lock()
	saved, err := term.GetState(p.fd)
	p.mu.Unlock()
	if err != nil {
		return
	}

	_ = term.Restore(p.fd, saved)

	signal.Reset(syscall.SIGTSTP)
	_ = syscall.Kill(os.Getpid(), syscall.SIGTSTP)
	// Execution resumes here once the shell continues us; restore forwarding
	// to p.handleTstp for the next stop.
	signal.Notify(p.sig.tstpCh, syscall.SIGTSTP)

	p.mu.Lock()
	_, _ = term.MakeRaw(p.fd)
	p.mu.state.screen.invalidateLines()
	p.mu.state.screen.renderText(len(p.mu.state.screen.text))
	p.mu.state.screen.Flush(p.out)
	p.mu.Unlock()
}

// pollSignalsLocked checks for a caught terminating signal and, if one is
// pending, discards any in-progress editing state (undo list, macro
// definition, pending numeric argument) the same way readline abandons a
// partial line on SIGINT et al. It returns io.EOF-equivalent by way of a
// plain error; the caller (ReadLine) treats any non-nil error as "stop".
func (p *Prompt) pollSignalsLocked() error {
	sig := p.sig.poll()
	if sig == sigNone {
		return nil
	}
	p.mu.state.resetPartialLine()
	switch sig {
	case sigInt:
		return errSignalInterrupt
	case sigTerm:
		return errSignalTerminated
	case sigHup:
		return errSignalHangup
	case sigQuit:
		return errSignalQuit
	default:
		// Multiple signals arrived between polls; terminating wins.
		return errSignalInterrupt
	}
}

// resetPartialLine discards in-progress editing state without touching the
// rendered screen, matching readline's free_undo_list/reset-macro behavior
// when a line is abandoned mid-edit.
func (s *state) resetPartialLine() {
	s.screen.clearUndo()
	s.macro = macroState{}
	s.dispatch.reset()
	s.dispatch.resetArg()
	s.completion.reset()
	s.menu.reset()
	s.pasting = false
	s.pasteBuf = nil
}
