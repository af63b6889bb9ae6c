package workflow

import (
	"errors"
	"fmt"
	"strings"

	"komunitas/pendataan/internal/model"
)

var (
	ErrInvalidTransition = errors.New("invalid current state")
	ErrMissingReason     = errors.New("missing rejection reason")
	ErrForbidden         = errors.New("forbidden")
	ErrUnknownTarget     = errors.New("unknown target status")
)

type Event string

const (
	EventSubmit Event = "submit"
	EventVerify Event = "verify"
	EventReject Event = "reject"
)

// Rule is one row of the status transition table.
type Rule struct {
	From  model.Status
	Event Event
	To    model.Status

	AdminOnly          bool
	RequiresReason     bool
	RequiresValidation bool
	ClearsReason       bool
	RecordsVerifier    bool
}

var table = []Rule{
	{From: model.StatusDraft, Event: EventSubmit, To: model.StatusSubmitted, RequiresValidation: true},
	{From: model.StatusSubmitted, Event: EventVerify, To: model.StatusVerified, AdminOnly: true, ClearsReason: true, RecordsVerifier: true},
	{From: model.StatusSubmitted, Event: EventReject, To: model.StatusRejected, AdminOnly: true, RequiresReason: true, RecordsVerifier: true},
	{From: model.StatusVerified, Event: EventReject, To: model.StatusRejected, AdminOnly: true, RequiresReason: true, RecordsVerifier: true},
}

// Rules returns a copy of the transition table.
func Rules() []Rule {
	return append([]Rule(nil), table...)
}

// EventFor maps a requested target status to the event that reaches it.
func EventFor(target model.Status) (Event, error) {
	switch target {
	case model.StatusSubmitted:
		return EventSubmit, nil
	case model.StatusVerified:
		return EventVerify, nil
	case model.StatusRejected:
		return EventReject, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownTarget, target)
	}
}

// Check runs the preconditions that do not depend on the stored record:
// the actor's role and the rejection reason. Callers run it before loading
// anything.
func Check(target model.Status, role model.Role, reason string) (Event, error) {
	event, err := EventFor(target)
	if err != nil {
		return "", err
	}
	adminOnly, requiresReason := false, false
	for _, rule := range table {
		if rule.Event != event {
			continue
		}
		adminOnly = adminOnly || rule.AdminOnly
		requiresReason = requiresReason || rule.RequiresReason
	}
	if adminOnly && role != model.RoleAdmin {
		return "", ErrForbidden
	}
	if requiresReason && strings.TrimSpace(reason) == "" {
		return "", ErrMissingReason
	}
	return event, nil
}

// Plan resolves the rule for moving a record from current to target.
func Plan(current, target model.Status, role model.Role, reason string) (Rule, error) {
	event, err := Check(target, role, reason)
	if err != nil {
		return Rule{}, err
	}
	for _, rule := range table {
		if rule.From == current && rule.Event == event {
			return rule, nil
		}
	}
	return Rule{}, fmt.Errorf("%w: cannot %s a %s submission", ErrInvalidTransition, event, current)
}

// Editable reports whether a non-admin owner may still change the record.
func Editable(status model.Status) bool {
	return status == model.StatusDraft || status == model.StatusSubmitted
}
