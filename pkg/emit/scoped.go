// Copyright 2025 Certen Protocol

package emit

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"
)

// Policy governs what happens when the ledger append that records an
// emission outcome itself fails — never what happens when the wrapped
// operation fails on its own terms.
type Policy int

const (
	// EmitObservability treats the emission as best-effort: if appending
	// the intent, commit, or failure event errors, the error is logged
	// and the wrapped operation's own result still stands.
	EmitObservability Policy = iota
	// EmitFate treats the emission as load-bearing: if appending the
	// intent, commit, or failure event errors, that error propagates to
	// the caller, who is expected to roll back any paired state change.
	EmitFate
)

// Scope configures one call to Execute.
type Scope struct {
	Branch    string
	ActorID   string
	TraceID   string
	Timestamp time.Time
	Payload   map[string]interface{}
	Policy    Policy
}

var defaultLog = log.New(os.Stderr, "[emit] ", log.LstdFlags)

// Execute brackets fn with an intent event on entry and exactly one
// outcome event (commit on success, failure on error) on exit,
// correlated by a single id. Nested calls to Execute each produce their
// own independent intent/outcome pair.
//
// fn receives a context it may use for its own I/O; it returns the
// payload to attach to the commit event, or an error to attach to the
// failure event.
func (e *Emitter) Execute(ctx context.Context, scope Scope, fn func(ctx context.Context) (map[string]interface{}, error)) (map[string]interface{}, error) {
	correlationID, _, err := e.EmitIntent(ctx, scope.Branch, scope.Timestamp, scope.ActorID, scope.TraceID, scope.Payload)
	if err != nil {
		if scope.Policy == EmitFate {
			return nil, fmt.Errorf("emit: intent emission failed: %w", err)
		}
		defaultLog.Printf("intent emission failed for branch %s: %v", scope.Branch, err)
		correlationID = ""
	}

	result, fnErr := fn(ctx)

	if fnErr != nil {
		if correlationID != "" {
			details := map[string]interface{}{"branch": scope.Branch}
			if _, emitErr := e.EmitFailure(ctx, scope.Branch, correlationID, scope.Timestamp, scope.ActorID, scope.TraceID, fnErr.Error(), details); emitErr != nil {
				if scope.Policy == EmitFate {
					return nil, fmt.Errorf("emit: failure emission failed after operation error %v: %w", fnErr, emitErr)
				}
				defaultLog.Printf("failure emission failed for branch %s: %v", scope.Branch, emitErr)
			}
		}
		return nil, fnErr
	}

	if correlationID != "" {
		if _, emitErr := e.EmitCommit(ctx, scope.Branch, correlationID, scope.Timestamp, scope.ActorID, scope.TraceID, result); emitErr != nil {
			if scope.Policy == EmitFate {
				return nil, fmt.Errorf("emit: commit emission failed: %w", emitErr)
			}
			defaultLog.Printf("commit emission failed for branch %s: %v", scope.Branch, emitErr)
		}
	}
	return result, nil
}
