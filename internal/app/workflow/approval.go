// Package workflow holds the approval state machines shared by event registrations
// and team memberships.
package workflow

import (
	"fmt"

	"github.com/yigit/ekklesia/internal/app/models"
	"github.com/yigit/ekklesia/internal/pkg/apperrors"
)

// Action triggers a status transition
type Action string

const (
	ActionApprove        Action = "approve"
	ActionReject         Action = "reject"
	ActionRequestRemoval Action = "request_removal"
	ActionRequest        Action = "request"
)

// Transition is one allowed edge of a machine
type Transition[S ~string] struct {
	From   S
	Action Action
	To     S
}

// Machine validates status transitions for one kind of approval record
type Machine[S ~string] struct {
	name  string
	edges map[S]map[Action]S
}

// NewMachine builds a machine from its allowed transitions
func NewMachine[S ~string](name string, transitions ...Transition[S]) *Machine[S] {
	m := &Machine[S]{name: name, edges: make(map[S]map[Action]S)}
	for _, t := range transitions {
		if m.edges[t.From] == nil {
			m.edges[t.From] = make(map[Action]S)
		}
		m.edges[t.From][t.Action] = t.To
	}
	return m
}

// Next returns the status reached from `from` by action, or ErrInvalidTransition
func (m *Machine[S]) Next(from S, action Action) (S, error) {
	if to, ok := m.edges[from][action]; ok {
		return to, nil
	}
	var zero S
	return zero, apperrors.NewCustomError(
		apperrors.ErrInvalidTransition,
		fmt.Sprintf("cannot %s a %s %s", action, from, m.name),
	)
}

// Can reports whether action is allowed from status
func (m *Machine[S]) Can(from S, action Action) bool {
	_, ok := m.edges[from][action]
	return ok
}

// Registrations governs event registrations
var Registrations = NewMachine("registration",
	Transition[models.RegistrationStatus]{models.RegistrationPending, ActionApprove, models.RegistrationApproved},
	Transition[models.RegistrationStatus]{models.RegistrationPending, ActionReject, models.RegistrationRejected},
)

// Memberships governs team memberships. A rejected member may ask again.
var Memberships = NewMachine("membership",
	Transition[models.MembershipStatus]{models.MembershipPending, ActionApprove, models.MembershipApproved},
	Transition[models.MembershipStatus]{models.MembershipPending, ActionReject, models.MembershipRejected},
	Transition[models.MembershipStatus]{models.MembershipApproved, ActionRequestRemoval, models.MembershipRemovalRequested},
	Transition[models.MembershipStatus]{models.MembershipRejected, ActionRequest, models.MembershipPending},
)

// PromotionOnApproval is the minimum global role of a profile with an approved team membership.
const PromotionOnApproval = models.RoleStaff

// PromotedRole returns the global role a profile holds after one of its memberships is approved
func PromotedRole(current models.Role) models.Role {
	if current.AtLeast(PromotionOnApproval) {
		return current
	}
	return PromotionOnApproval
}
