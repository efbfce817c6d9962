package keyring

import (
	"context"
	"time"

	"github.com/nous-sync/nse/pkg/errs"
)

// Phase is a rotation step. Transitions are one-way:
// generating -> reencrypting -> verifying -> completing.
type Phase string

const (
	PhaseGenerating   Phase = "generating"
	PhaseReencrypting Phase = "reencrypting"
	PhaseVerifying    Phase = "verifying"
	PhaseCompleting   Phase = "completing"
	PhaseDone         Phase = "done"
)

var order = map[Phase]Phase{
	PhaseGenerating:   PhaseReencrypting,
	PhaseReencrypting: PhaseVerifying,
	PhaseVerifying:    PhaseCompleting,
	PhaseCompleting:   PhaseDone,
}

// State is a rotation's persisted progress: which key version it is
// rotating to, which phase it is in, and the cursor a re-encryption sweep
// can resume from after a crash.
type State struct {
	KeyVersion uint32
	Phase      Phase
	Cursor     string
}

// Advance moves to the next phase in the one-way sequence. Attempting to
// advance past PhaseDone, or from an unrecognized phase, is an error.
func (s *State) Advance() error {
	next, ok := order[s.Phase]
	if !ok {
		return errs.NewRotationAbortedError("cannot advance from phase: " + string(s.Phase))
	}
	s.Phase = next
	s.Cursor = ""
	return nil
}

// ReencryptBatchFunc re-encrypts one batch starting after cursor, and
// returns the cursor to resume from plus whether the sweep is complete.
type ReencryptBatchFunc func(ctx context.Context, cursor string) (nextCursor string, done bool, err error)

// VerifyFunc checks that every node has been re-encrypted under the new
// key version before the rotation is allowed to complete.
type VerifyFunc func(ctx context.Context) error

// CompleteFunc retires the old key version once verification passes.
type CompleteFunc func(ctx context.Context) error

// Rotator drives a single key version's rotation through its phases,
// persisting State.Cursor after every batch so a crash mid-sweep resumes
// from the last completed batch rather than restarting.
type Rotator struct {
	State State

	// BatchInterval is slept between re-encryption batches, throttling
	// rotation so it does not starve foreground sync traffic. Zero
	// disables the sleep, for tests.
	BatchInterval time.Duration

	// Persist is called after every state change so callers can durably
	// store State (e.g. into pkg/localstore). Optional.
	Persist func(State)
}

// NewRotator starts a fresh rotation targeting keyVersion.
func NewRotator(keyVersion uint32) *Rotator {
	return &Rotator{
		State:         State{KeyVersion: keyVersion, Phase: PhaseGenerating},
		BatchInterval: 500 * time.Millisecond,
	}
}

// Resume rebuilds a Rotator from previously persisted state, e.g. after a
// process restart mid-rotation.
func Resume(state State) *Rotator {
	return &Rotator{State: state, BatchInterval: 500 * time.Millisecond}
}

func (r *Rotator) persist() {
	if r.Persist != nil {
		r.Persist(r.State)
	}
}

// Run drives the rotation to completion, calling reencrypt repeatedly
// until done, then verify, then complete. It resumes from r.State.Cursor
// if the Rotator was constructed via Resume mid-reencrypting.
func (r *Rotator) Run(ctx context.Context, reencrypt ReencryptBatchFunc, verify VerifyFunc, complete CompleteFunc) error {
	if r.State.Phase == PhaseGenerating {
		if err := r.State.Advance(); err != nil {
			return err
		}
		r.persist()
	}

	if r.State.Phase == PhaseReencrypting {
		for {
			select {
			case <-ctx.Done():
				r.persist()
				return ctx.Err()
			default:
			}

			next, done, err := reencrypt(ctx, r.State.Cursor)
			if err != nil {
				return errs.NewRotationAbortedError(err.Error())
			}
			r.State.Cursor = next
			r.persist()
			if done {
				break
			}
			if r.BatchInterval > 0 {
				time.Sleep(r.BatchInterval)
			}
		}
		if err := r.State.Advance(); err != nil {
			return err
		}
		r.persist()
	}

	if r.State.Phase == PhaseVerifying {
		if err := verify(ctx); err != nil {
			return errs.NewRotationAbortedError(err.Error())
		}
		if err := r.State.Advance(); err != nil {
			return err
		}
		r.persist()
	}

	if r.State.Phase == PhaseCompleting {
		if err := complete(ctx); err != nil {
			return errs.NewRotationAbortedError(err.Error())
		}
		if err := r.State.Advance(); err != nil {
			return err
		}
		r.persist()
	}

	return nil
}
