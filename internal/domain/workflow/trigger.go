package workflow

import (
	"fmt"
	"strings"
)

// Action represents an actor-invoked operation that can cause a status transition
type Action string

const (
	ActionSoumettre       Action = "SOUMETTRE"
	ActionAnnuler         Action = "ANNULER"
	ActionValider         Action = "VALIDER"
	ActionRejeter         Action = "REJETER"
	ActionRemonter        Action = "REMONTER"
	ActionRetourner       Action = "RETOURNER"
	ActionDecaisser       Action = "DECAISSER"
	ActionRegulariser     Action = "REGULARISER"
	ActionPrendreEnCharge Action = "PRENDRE_EN_CHARGE"

	// ActionSysteme covers transitions driven by back-office jobs rather than
	// by an actor. It is never parsed from user input.
	ActionSysteme Action = "SYSTEME"
)

var userActions = []Action{
	ActionSoumettre,
	ActionAnnuler,
	ActionValider,
	ActionRejeter,
	ActionRemonter,
	ActionRetourner,
	ActionDecaisser,
	ActionRegulariser,
	ActionPrendreEnCharge,
}

// AllActions returns the actions an actor may invoke, in a stable order
func AllActions() []Action {
	return append([]Action(nil), userActions...)
}

// ParseAction converts a raw value into a user action
func ParseAction(raw string) (Action, error) {
	a := Action(strings.ToUpper(strings.TrimSpace(raw)))
	if !a.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, raw)
	}
	return a, nil
}

// IsValid reports whether the action is one an actor may invoke
func (a Action) IsValid() bool {
	for _, u := range userActions {
		if u == a {
			return true
		}
	}
	return false
}

// String returns the string representation of the action
func (a Action) String() string {
	return string(a)
}
