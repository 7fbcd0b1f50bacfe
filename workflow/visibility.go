package workflow

import "backend/models"

// Eligibility is the per-viewer verdict the UI renders from. The flags mirror
// the engine's own rules so the interface never has to duplicate transition
// logic.
type Eligibility struct {
	Visible    bool `json:"visible"`
	CanApprove bool `json:"can_approve"`
	CanEdit    bool `json:"can_edit"`
	CanCancel  bool `json:"can_cancel"`
}

// Visible reports whether a viewer may see an indent at all. Drafts are
// private to their owner. Everyone else sees all non-draft indents, except
// MTC, which only sees movements it resources once they reach its queue.
func Visible(ind *models.Indent, viewer Actor) bool {
	if ind.Status == models.StatusDraft {
		return ind.OwnedBy(viewer.UserID)
	}
	if viewer.Role == models.RoleApproverMTC {
		if ind.TypeOfIndent.IsInternalMovement() {
			return false
		}
		switch ind.Status {
		case models.StatusPendingMTC, models.StatusApproved, models.StatusRejected:
			return true
		}
		return false
	}
	return true
}

// Eligible computes the full verdict for one indent and viewer.
func Eligible(ind *models.Indent, viewer Actor) Eligibility {
	el := Eligibility{Visible: Visible(ind, viewer)}
	if !el.Visible {
		return el
	}

	if holder, ok := models.StageHolder(ind.Status); ok && holder == viewer.Role {
		if viewer.Role == models.RoleRequestor {
			el.CanApprove = ind.OwnedBy(viewer.UserID)
		} else {
			el.CanApprove = true
		}
	}

	el.CanEdit = ind.Status != models.StatusCancelled && ind.Status != models.StatusRejected
	el.CanCancel = viewer.Role == models.RoleRequestor &&
		ind.OwnedBy(viewer.UserID) &&
		!ind.Status.IsTerminal()
	return el
}

// FilterVisible narrows a listing to what the viewer may see, preserving
// order.
func FilterVisible(indents []models.Indent, viewer Actor) []models.Indent {
	out := make([]models.Indent, 0, len(indents))
	for i := range indents {
		if Visible(&indents[i], viewer) {
			out = append(out, indents[i])
		}
	}
	return out
}
