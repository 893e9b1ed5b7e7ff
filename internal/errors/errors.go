// Package errors provides error handling for the simulator.
//
// It re-exports github.com/cockroachdb/errors so every package wraps, marks
// and inspects errors the same way:
//
//	// sentinel kind
//	var ErrDivergence = errors.New("channel model divergence")
//
//	// attach the kind to a concrete failure
//	return errors.Mark(errors.Newf("capture ber %f > 1", p), ErrDivergence)
//
//	// test for the kind anywhere up the chain
//	if errors.Is(err, channel.ErrDivergence) { ... }
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
)

// User-facing messages and details
var (
	WithHint     = crdb.WithHint
	WithHintf    = crdb.WithHintf
	WithDetail   = crdb.WithDetail
	WithDetailf  = crdb.WithDetailf
	GetAllHints  = crdb.GetAllHints
	FlattenHints = crdb.FlattenHints
)

// Error kinds and inspection
var (
	Mark      = crdb.Mark
	Is        = crdb.Is
	IsAny     = crdb.IsAny
	As        = crdb.As
	Unwrap    = crdb.Unwrap
	UnwrapAll = crdb.UnwrapAll
)
