package policy

import "github.com/dotnope/dotnope/internal/model"

// Decide is the pure decision function. It depends only on its four
// arguments; callers must not rely on any other state.
//
// Rule order (must not be changed):
//  1. main with treatMainAsUnrestricted — allow
//  2. unprotected operation class — allow
//  3. unknown caller — fail-closed unless failClosed=false
//  4. eval context — deny unless allowEval
//  5. per-package set membership
func Decide(id model.Identity, op model.Operation, variable string, p *Policy) model.Verdict {
	if p == nil {
		p = Empty()
	}
	op = model.NormalizeOperation(op)
	opts := p.Options()

	if id.Kind == model.KindMain && opts.TreatMainAsUnrestricted {
		return model.Allowed()
	}

	switch op {
	case model.OpWrite:
		if !opts.ProtectWrites {
			return model.Allowed()
		}
	case model.OpDelete:
		if !opts.ProtectDeletes {
			return model.Allowed()
		}
	case model.OpEnumerate:
		if !opts.ProtectEnumeration {
			return model.Allowed()
		}
	}

	if id.Kind == model.KindUnknown {
		if !opts.FailClosed {
			return model.Allowed()
		}
		return model.Denied(model.ReasonUnknownCaller, id, variable, op)
	}

	if id.Eval && !opts.AllowEval {
		return model.Denied(model.ReasonEvalContext, id, variable, op)
	}

	name := id.Package
	switch op {
	case model.OpRead:
		if p.MayRead(name, variable) {
			return model.Allowed()
		}
		return model.Denied(model.ReasonUnauthorizedRead, id, variable, op)

	case model.OpWrite:
		if p.MayWrite(name, variable) {
			return model.Allowed()
		}
		return model.Denied(model.ReasonUnauthorizedWrite, id, variable, op)

	case model.OpDelete:
		if p.MayDelete(name, variable) {
			return model.Allowed()
		}
		return model.Denied(model.ReasonUnauthorizedDelete, id, variable, op)

	case model.OpEnumerate:
		// Enumeration denial is expressed by key omission, never by error.
		return model.Allowed()
	}

	// Unrecognized operations fail closed.
	return model.Denied(model.ReasonUnauthorizedRead, id, variable, op)
}
