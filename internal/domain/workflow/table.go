package workflow

// forcingBuilder holds the single declaration of the forcing request lifecycle.
// REJETEE, REGULARISEE and ANNULEE are terminal and have no outgoing transitions.
var forcingBuilder = newForcingBuilder()

// legalTargets is derived once from forcingBuilder and never mutated
var legalTargets = func() map[Status][]Status {
	table := make(map[Status][]Status, len(allStatuses))
	for _, s := range allStatuses {
		table[s] = forcingBuilder.Build(s).Targets()
	}
	return table
}()

func newForcingBuilder() StateMachineBuilder {
	b := NewBuilder()

	b.Configure(StatusBrouillon).
		Permit(ActionSoumettre, StatusEnAttenteConseiller).
		Permit(ActionSysteme, StatusEnvoyee).
		Permit(ActionAnnuler, StatusAnnulee)

	// Requests received through another channel land in ENVOYEE
	b.Configure(StatusEnvoyee).
		Permit(ActionSysteme, StatusEnAttenteConseiller).
		Permit(ActionRejeter, StatusRejetee).
		Permit(ActionAnnuler, StatusAnnulee)

	b.Configure(StatusEnAttenteConseiller).
		Permit(ActionPrendreEnCharge, StatusEnEtudeConseiller).
		Permit(ActionRejeter, StatusRejetee).
		Permit(ActionAnnuler, StatusAnnulee)

	b.Configure(StatusEnEtudeConseiller).
		Permit(ActionValider, StatusEnAnalyseRisques).
		Permit(ActionValider, StatusApprouvee).
		Permit(ActionValider, StatusEnAttenteRM).
		Permit(ActionRemonter, StatusEnAttenteRM).
		Permit(ActionRetourner, StatusEnAttenteConseiller).
		Permit(ActionRejeter, StatusRejetee).
		Permit(ActionAnnuler, StatusAnnulee)

	b.Configure(StatusEnAnalyseRisques).
		Permit(ActionValider, StatusEnAttenteRM).
		Permit(ActionValider, StatusEnAttenteDCE).
		Permit(ActionValider, StatusEnAttenteADG).
		Permit(ActionValider, StatusApprouvee).
		Permit(ActionRejeter, StatusRejetee).
		Permit(ActionAnnuler, StatusAnnulee)

	b.Configure(StatusEnAttenteRM).
		Permit(ActionValider, StatusApprouvee).
		Permit(ActionValider, StatusEnAttenteDCE).
		Permit(ActionRemonter, StatusEnAttenteDCE).
		Permit(ActionRetourner, StatusEnEtudeConseiller).
		Permit(ActionRejeter, StatusRejetee).
		Permit(ActionAnnuler, StatusAnnulee)

	b.Configure(StatusEnAttenteDCE).
		Permit(ActionValider, StatusApprouvee).
		Permit(ActionValider, StatusEnAttenteADG).
		Permit(ActionRemonter, StatusEnAttenteADG).
		Permit(ActionRetourner, StatusEnAttenteRM).
		Permit(ActionRejeter, StatusRejetee).
		Permit(ActionAnnuler, StatusAnnulee)

	b.Configure(StatusEnAttenteADG).
		Permit(ActionValider, StatusApprouvee).
		Permit(ActionRetourner, StatusEnAttenteDCE).
		Permit(ActionRejeter, StatusRejetee).
		Permit(ActionAnnuler, StatusAnnulee)

	b.Configure(StatusApprouvee).
		Permit(ActionDecaisser, StatusDecaissee).
		Permit(ActionAnnuler, StatusAnnulee)

	b.Configure(StatusDecaissee).
		Permit(ActionSysteme, StatusEnSuivi).
		Permit(ActionRegulariser, StatusRegularisee)

	b.Configure(StatusEnSuivi).
		Permit(ActionRegulariser, StatusRegularisee)

	return b
}

// NewMachine returns a state machine positioned at initial, configured with
// the forcing request lifecycle. It panics on an unknown status.
func NewMachine(initial Status) StateMachine {
	return forcingBuilder.Build(initial)
}

// LegalTransitions returns the statuses reachable from s in one step.
// Unknown and terminal statuses yield an empty slice.
func LegalTransitions(s Status) []Status {
	return append([]Status{}, legalTargets[s]...)
}

// IsTransitionAllowed reports whether the table permits moving from one status to another
func IsTransitionAllowed(from, to Status) bool {
	for _, t := range legalTargets[from] {
		if t == to {
			return true
		}
	}
	return false
}
