package emulator

import (
	"context"
)

// bridge is what the engine calls back into from its loop. Every method runs
// on the engine goroutine.
type bridge struct {
	e   *Emulator
	ctx context.Context
}

// HandleEventLoop stops the loop once cancelled, tells the engine about
// pause changes and types at most one queued command.
func (b *bridge) HandleEventLoop() bool {
	if b.cancelled() {
		return true
	}
	b.e.syncSuspension()
	b.e.injectCommand()
	return false
}

// HandleRunLoop stops the loop once cancelled and otherwise delivers drive
// bindings and settings. Configuration files are never read here.
func (b *bridge) HandleRunLoop() bool {
	if b.cancelled() {
		return true
	}
	b.e.syncDrives()
	b.e.syncSettings()
	return false
}

func (b *bridge) DidChangeEmulationState() {
	b.e.resync(b.e.eng.Shell())
}

func (b *bridge) cancelled() bool {
	if b.ctx != nil {
		select {
		case <-b.ctx.Done():
			b.e.Cancel()
		default:
		}
	}
	return b.e.IsCancelled()
}

func (e *Emulator) syncSuspension() {
	e.mu.Lock()
	want := e.interrupted
	if want == e.suspended {
		e.mu.Unlock()
		return
	}
	e.suspended = want
	e.mu.Unlock()

	e.eng.SetSuspended(want)
}

// injectCommand types the next queued command when the shell is at the
// prompt and has finished the previous one.
func (e *Emulator) injectCommand() {
	e.mu.Lock()
	if !e.atPrompt || e.awaitingPrompt {
		e.mu.Unlock()
		return
	}
	cmd, ok := e.queue.Next()
	if !ok {
		e.mu.Unlock()
		return
	}
	e.awaitingPrompt = true
	e.mu.Unlock()

	line, err := cmd.Bytes()
	if err == nil {
		err = e.eng.Execute(line)
	}
	if err != nil {
		e.log.Errorf("failed to execute %q: %v", cmd.Text, err)
		e.mu.Lock()
		e.awaitingPrompt = false
		e.mu.Unlock()
		return
	}
	e.log.Debugf("executed %q", cmd.Text)
}
