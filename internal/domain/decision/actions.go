package decision

import (
	"github.com/garyjia/forcing-workflow/internal/domain/policy"
	"github.com/garyjia/forcing-workflow/internal/domain/workflow"
)

// AvailableActions returns the actions the actor may invoke on the request,
// in AllActions order. Every returned action produces a real transition
// through NextStatus; candidates that would not are filtered out here.
func (e *Engine) AvailableActions(rc RequestContext) []workflow.Action {
	if !rc.CurrentStatus.IsValid() || rc.CurrentStatus.IsTerminal() {
		return []workflow.Action{}
	}

	candidates := candidateActions(rc)
	out := make([]workflow.Action, 0, len(candidates))
	for _, a := range workflow.AllActions() {
		if !candidates[a] {
			continue
		}
		if e.NextStatus(a, rc) == rc.CurrentStatus {
			continue
		}
		out = append(out, a)
	}
	return out
}

// candidateActions lists what each role is entitled to attempt at a status
func candidateActions(rc RequestContext) map[workflow.Action]bool {
	set := make(map[workflow.Action]bool)
	add := func(actions ...workflow.Action) {
		for _, a := range actions {
			set[a] = true
		}
	}

	status := rc.CurrentStatus

	switch rc.ActorRole {
	case policy.RoleClient:
		if !rc.IsOwner {
			break
		}
		switch status {
		case workflow.StatusBrouillon:
			add(workflow.ActionSoumettre, workflow.ActionAnnuler)
		case workflow.StatusEnAttenteConseiller:
			add(workflow.ActionAnnuler)
		}

	case policy.RoleConseiller:
		switch status {
		case workflow.StatusEnAttenteConseiller:
			add(workflow.ActionPrendreEnCharge)
		case workflow.StatusEnEtudeConseiller:
			add(workflow.ActionValider, workflow.ActionRejeter, workflow.ActionRemonter, workflow.ActionRetourner)
		}

	case policy.RoleRM, policy.RoleDCE, policy.RoleADG:
		if owner, ok := ResponsibleRole(status); ok && owner == rc.ActorRole {
			add(workflow.ActionValider, workflow.ActionRejeter, workflow.ActionRetourner)
			if rc.ActorRole != policy.RoleADG {
				add(workflow.ActionRemonter)
			}
		}
		if status == workflow.StatusEnAnalyseRisques {
			add(workflow.ActionValider, workflow.ActionRejeter)
		}

	case policy.RoleRisques:
		if status == workflow.StatusEnAnalyseRisques {
			add(workflow.ActionValider, workflow.ActionRejeter)
		}

	case policy.RoleDGA, policy.RoleAdmin:
		add(workflow.ActionValider, workflow.ActionRejeter)
		if status != workflow.StatusRejetee {
			add(workflow.ActionAnnuler)
		}
		switch status {
		case workflow.StatusApprouvee:
			add(workflow.ActionDecaisser)
		case workflow.StatusDecaissee, workflow.StatusEnSuivi:
			add(workflow.ActionRegulariser)
		}
	}

	return set
}

// responsibleRoles maps each non-terminal status to the role expected to act on it
var responsibleRoles = map[workflow.Status]policy.Role{
	workflow.StatusBrouillon:           policy.RoleClient,
	workflow.StatusEnvoyee:             policy.RoleConseiller,
	workflow.StatusEnAttenteConseiller: policy.RoleConseiller,
	workflow.StatusEnEtudeConseiller:   policy.RoleConseiller,
	workflow.StatusEnAttenteRM:         policy.RoleRM,
	workflow.StatusEnAttenteDCE:        policy.RoleDCE,
	workflow.StatusEnAttenteADG:        policy.RoleADG,
	workflow.StatusEnAnalyseRisques:    policy.RoleRisques,
	workflow.StatusApprouvee:           policy.RoleAdmin,
	workflow.StatusDecaissee:           policy.RoleConseiller,
	workflow.StatusEnSuivi:             policy.RoleConseiller,
}

// ResponsibleRole returns the role expected to act next on a request in
// status. ok is false for terminal and unknown statuses.
func ResponsibleRole(status workflow.Status) (policy.Role, bool) {
	r, ok := responsibleRoles[status]
	return r, ok
}

func containsAction(actions []workflow.Action, a workflow.Action) bool {
	for _, x := range actions {
		if x == a {
			return true
		}
	}
	return false
}
