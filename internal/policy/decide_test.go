package policy

import (
	"testing"

	"github.com/dotnope/dotnope/internal/model"
)

func TestMainUnrestricted(t *testing.T) {
	p := Empty()
	for _, op := range []model.Operation{model.OpRead, model.OpWrite, model.OpDelete, model.OpEnumerate} {
		v := Decide(model.Main(), op, "AWS_SECRET", p)
		if v.Decision != model.Allow {
			t.Errorf("main %s: expected allow, got %s (%s)", op, v.Decision, v.Reason)
		}
	}
}

func TestMainRestrictedWhenOptionOff(t *testing.T) {
	opts := DefaultOptions()
	opts.TreatMainAsUnrestricted = false
	p := New(nil, opts)

	v := Decide(model.Main(), model.OpRead, "SECRET", p)
	if v.Decision != model.Deny {
		t.Error("main should be filtered like a package when treatMainAsUnrestricted=false")
	}
}

func TestUnknownCallerFailClosed(t *testing.T) {
	v := Decide(model.Unknown(), model.OpRead, "AWS_SECRET", Empty())
	if v.Decision != model.Deny || v.Reason != model.ReasonUnknownCaller {
		t.Errorf("expected UNKNOWN_CALLER deny, got %s/%s", v.Decision, v.Reason)
	}
}

func TestUnknownCallerFailOpen(t *testing.T) {
	opts := DefaultOptions()
	opts.FailClosed = false
	p := New(nil, opts)

	v := Decide(model.Unknown(), model.OpRead, "AWS_SECRET", p)
	if v.Decision != model.Allow {
		t.Errorf("failClosed=false should allow unknown callers, got %s", v.Decision)
	}
}

func TestEvalContextDenied(t *testing.T) {
	p := mustNormalize(t, map[string]any{
		"p": []any{"X"},
	})
	id := model.Package("p")
	id.Eval = true

	v := Decide(id, model.OpRead, "X", p)
	if v.Decision != model.Deny || v.Reason != model.ReasonEvalContext {
		t.Errorf("eval frame should deny even with a grant, got %s/%s", v.Decision, v.Reason)
	}
}

func TestEvalAllowedWhenOptedIn(t *testing.T) {
	p := mustNormalize(t, map[string]any{
		OptionsKey: map[string]any{"allowEval": true},
		"p":        []any{"X"},
	})
	id := model.Package("p")
	id.Eval = true

	if v := Decide(id, model.OpRead, "X", p); v.Decision != model.Allow {
		t.Errorf("allowEval=true should fall through to the package sets, got %s", v.Decision)
	}
}

func TestBlockedRead(t *testing.T) {
	v := Decide(model.Package("sketchy"), model.OpRead, "AWS_SECRET", Empty())
	if v.Decision != model.Deny {
		t.Fatal("expected deny")
	}
	if v.Reason != model.ReasonUnauthorizedRead {
		t.Errorf("expected UNAUTHORIZED_READ, got %s", v.Reason)
	}
	if v.Package != "sketchy" || v.Variable != "AWS_SECRET" || v.Op != model.OpRead {
		t.Errorf("deny must carry package/variable/operation, got %+v", v)
	}
}

func TestAllowedReadDeniedWrite(t *testing.T) {
	p := mustNormalize(t, map[string]any{
		"cfg": map[string]any{"allowed": []any{"NODE_ENV"}},
	})
	id := model.Package("cfg")

	if v := Decide(id, model.OpRead, "NODE_ENV", p); v.Decision != model.Allow {
		t.Errorf("read NODE_ENV should allow, got %s", v.Decision)
	}
	v := Decide(id, model.OpWrite, "NODE_ENV", p)
	if v.Decision != model.Deny || v.Op != model.OpWrite {
		t.Errorf("write NODE_ENV should deny with operation=write, got %+v", v)
	}
}

func TestMembershipAndDescriptorMapToRead(t *testing.T) {
	p := mustNormalize(t, map[string]any{
		"cfg": []any{"NODE_ENV"},
	})
	id := model.Package("cfg")

	for _, op := range []model.Operation{"membership", "descriptor"} {
		if v := Decide(id, op, "NODE_ENV", p); v.Decision != model.Allow {
			t.Errorf("%s should map to read and allow, got %s", op, v.Decision)
		}
		if v := Decide(id, op, "SECRET", p); v.Reason != model.ReasonUnauthorizedRead {
			t.Errorf("%s denial should carry UNAUTHORIZED_READ, got %s", op, v.Reason)
		}
	}
}

func TestUnprotectedOperationClasses(t *testing.T) {
	cases := []struct {
		name string
		opts map[string]any
		op   model.Operation
	}{
		{"writes", map[string]any{"protectWrites": false}, model.OpWrite},
		{"deletes", map[string]any{"protectDeletes": false}, model.OpDelete},
		{"enumeration", map[string]any{"protectEnumeration": false}, model.OpEnumerate},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := mustNormalize(t, map[string]any{OptionsKey: tc.opts})
			if v := Decide(model.Package("p"), tc.op, "X", p); v.Decision != model.Allow {
				t.Errorf("unprotected %s should allow, got %s", tc.op, v.Decision)
			}
			// Reads stay mediated regardless.
			if v := Decide(model.Package("p"), model.OpRead, "X", p); v.Decision != model.Deny {
				t.Error("read should remain mediated")
			}
		})
	}
}

func TestEnumerateNeverErrorsForPackages(t *testing.T) {
	v := Decide(model.Package("p"), model.OpEnumerate, "", Empty())
	if v.Decision != model.Allow {
		t.Error("enumeration denial is key omission, not an error")
	}
}

func TestDecideDeterministic(t *testing.T) {
	p := mustNormalize(t, map[string]any{
		"p": map[string]any{"allowed": []any{"A"}, "canWrite": []any{"B"}},
	})
	id := model.Package("p")
	first := Decide(id, model.OpWrite, "A", p)
	for i := 0; i < 100; i++ {
		if got := Decide(id, model.OpWrite, "A", p); got != first {
			t.Fatalf("Decide is not deterministic: %+v vs %+v", got, first)
		}
	}
}

func TestNilPolicyFailsClosed(t *testing.T) {
	if v := Decide(model.Package("p"), model.OpRead, "X", nil); v.Decision != model.Deny {
		t.Error("nil policy must behave as the empty fail-closed policy")
	}
	if v := Decide(model.Main(), model.OpRead, "X", nil); v.Decision != model.Allow {
		t.Error("main stays unrestricted under the default options")
	}
}
