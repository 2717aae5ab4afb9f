package workflow

import (
	"fmt"
	"strings"
)

// Status represents a forcing request status in the approval lifecycle
type Status string

const (
	StatusBrouillon           Status = "BROUILLON"
	StatusEnvoyee             Status = "ENVOYEE"
	StatusEnAttenteConseiller Status = "EN_ATTENTE_CONSEILLER"
	StatusEnEtudeConseiller   Status = "EN_ETUDE_CONSEILLER"
	StatusEnAttenteRM         Status = "EN_ATTENTE_RM"
	StatusEnAttenteDCE        Status = "EN_ATTENTE_DCE"
	StatusEnAttenteADG        Status = "EN_ATTENTE_ADG"
	StatusEnAnalyseRisques    Status = "EN_ANALYSE_RISQUES"
	StatusApprouvee           Status = "APPROUVEE"
	StatusRejetee             Status = "REJETEE"
	StatusDecaissee           Status = "DECAISSEE"
	StatusEnSuivi             Status = "EN_SUIVI"
	StatusRegularisee         Status = "REGULARISEE"
	StatusAnnulee             Status = "ANNULEE"
)

// allStatuses keeps declaration order for deterministic iteration
var allStatuses = []Status{
	StatusBrouillon,
	StatusEnvoyee,
	StatusEnAttenteConseiller,
	StatusEnEtudeConseiller,
	StatusEnAttenteRM,
	StatusEnAttenteDCE,
	StatusEnAttenteADG,
	StatusEnAnalyseRisques,
	StatusApprouvee,
	StatusRejetee,
	StatusDecaissee,
	StatusEnSuivi,
	StatusRegularisee,
	StatusAnnulee,
}

var validStatuses = func() map[Status]bool {
	m := make(map[Status]bool, len(allStatuses))
	for _, s := range allStatuses {
		m[s] = true
	}
	return m
}()

var terminalStatuses = map[Status]bool{
	StatusRejetee:     true,
	StatusRegularisee: true,
	StatusAnnulee:     true,
}

// AllStatuses returns every known status in lifecycle order
func AllStatuses() []Status {
	return append([]Status(nil), allStatuses...)
}

// ParseStatus converts a raw value into a Status, rejecting unknown values
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, raw)
	}
	return s, nil
}

// IsTerminal returns true if the status is terminal (no further transitions allowed)
func (s Status) IsTerminal() bool {
	return terminalStatuses[s]
}

// String returns the string representation of the status
func (s Status) String() string {
	return string(s)
}

// IsValid returns true if the status is a known workflow status
func (s Status) IsValid() bool {
	return validStatuses[s]
}
