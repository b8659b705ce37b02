package dotnope

import (
	"errors"

	"github.com/dotnope/dotnope/internal/model"
)

// Stable error codes carried by denials and control errors.
const (
	ErrUnauthorized     = model.CodeUnauthorized
	ErrUnknownCaller    = model.CodeUnknownCaller
	ErrEvalContext      = model.CodeEvalContext
	ErrDeprecated       = model.CodeDeprecated
	ErrIntegrity        = model.CodeIntegrity
	ErrInvalidToken     = model.CodeInvalidToken
	ErrAlreadyInstalled = model.CodeAlreadyInstalled
)

// AccessError describes a denied environment access.
type AccessError struct {
	Code      string
	Package   string
	Variable  string
	Operation string
	Reason    string
}

func (e *AccessError) Error() string {
	return e.Code + ": " + e.Package + " denied " + e.Operation + " of " + e.Variable
}

// AsAccessError extracts the structured denial from an error returned
// by a mediated operation.
func AsAccessError(err error) (*AccessError, bool) {
	var ae *model.AccessError
	if !errors.As(err, &ae) {
		return nil, false
	}
	return &AccessError{
		Code:      ae.Code,
		Package:   ae.Package,
		Variable:  ae.Variable,
		Operation: string(ae.Op),
		Reason:    ae.Reason,
	}, true
}

// CodeOf returns the stable code of any dotnope error, or "".
func CodeOf(err error) string {
	var ae *model.AccessError
	if errors.As(err, &ae) {
		return ae.Code
	}
	var ce *model.ControlError
	if errors.As(err, &ce) {
		return ce.Code
	}
	var ie *model.IntegrityError
	if errors.As(err, &ie) {
		return ErrIntegrity
	}
	return ""
}
