package workflow

import (
	"github.com/garyjia/forcing-workflow/internal/domain/decision"
	"github.com/garyjia/forcing-workflow/internal/domain/entity"
)

// NewRequestContext builds the decision input for actor acting on req
func NewRequestContext(req *entity.ForcingRequest, actor Actor) decision.RequestContext {
	return decision.RequestContext{
		CurrentStatus: req.Status,
		Amount:        req.Amount,
		ActorRole:     actor.Role,
		ClientRating:  req.ClientRating,
		AgencyID:      req.AgencyID,
		IsOwner:       req.IsOwnedBy(actor.ID),
	}
}
