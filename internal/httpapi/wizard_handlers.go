package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"contratos.app/internal/audit"
	"contratos.app/internal/auth"
	"contratos.app/internal/contract"
	"contratos.app/internal/obs"
	"contratos.app/internal/plan"
	"contratos.app/internal/stream"
	"contratos.app/internal/wizard"
)

type finishResponse struct {
	Contract contract.Record `json:"contract"`
	Identity identityPayload `json:"identity"`
}

func planLimitText(id auth.Identity) string {
	return plan.LimitText(id.Plan, id.ContractsUsed)
}

// allowCreation applies the plan gate to the request's identity and writes
// the 403 when it denies.
func (a *API) allowCreation(w http.ResponseWriter, r *http.Request) bool {
	id := principal(r).Identity
	if id.CanCreate() {
		return true
	}
	obs.RecordPlanDenial(string(id.Plan))
	_ = audit.LogEvent(r.Context(), audit.EventPlanLimitDenied, map[string]any{
		"plan":  string(id.Plan),
		"usage": id.ContractsUsed,
	})
	writeErrorWith(w, r, http.StatusForbidden, "plan limit reached", map[string]any{
		"plan":       id.Plan,
		"plan_label": id.Plan.Label(),
		"limit_text": planLimitText(id),
	})
	return false
}

// wizardClosed answers requests that reach a wizard another request already
// finished.
func wizardClosed(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusConflict, "wizard already finished")
}

// openedWizard runs the plan gate and returns the session's wizard.
func (a *API) openedWizard(w http.ResponseWriter, r *http.Request) (*wizard.Wizard, bool) {
	if !a.allowCreation(w, r) {
		return nil, false
	}
	wz, ok := a.wizards.Get(principal(r).SessionID)
	if !ok {
		writeError(w, r, http.StatusNotFound, "no open wizard")
		return nil, false
	}
	return wz, true
}

func (a *API) openWizard(w http.ResponseWriter, r *http.Request) {
	if !a.allowCreation(w, r) {
		return
	}
	wz := a.wizards.Open(principal(r).SessionID)
	writeJSON(w, http.StatusCreated, wz.State())
}

func (a *API) wizardState(w http.ResponseWriter, r *http.Request) {
	wz, ok := a.openedWizard(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, wz.State())
}

func (a *API) discardWizard(w http.ResponseWriter, r *http.Request) {
	a.wizards.Close(principal(r).SessionID, nil)
	w.WriteHeader(http.StatusNoContent)
}

// editDraft merges the posted fields into the draft. Absent fields keep their
// values.
func (a *API) editDraft(w http.ResponseWriter, r *http.Request) {
	wz, ok := a.openedWizard(w, r)
	if !ok {
		return
	}
	var patch json.RawMessage
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	err := wz.Update(func(d *contract.Draft) error {
		dec := json.NewDecoder(bytes.NewReader(patch))
		dec.DisallowUnknownFields()
		return dec.Decode(d)
	})
	if errors.Is(err, wizard.ErrClosed) {
		wizardClosed(w, r)
		return
	}
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, wz.State())
}

func (a *API) wizardNext(w http.ResponseWriter, r *http.Request) {
	wz, ok := a.openedWizard(w, r)
	if !ok {
		return
	}
	st, err := wz.Next()
	if errors.Is(err, wizard.ErrClosed) {
		wizardClosed(w, r)
		return
	}
	if errors.Is(err, wizard.ErrIncomplete) {
		writeErrorWith(w, r, http.StatusConflict, "required fields missing", map[string]any{
			"can_proceed": false,
			"state":       st,
		})
		return
	}
	if err != nil {
		internalError(w, r, "wizard next", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (a *API) wizardBack(w http.ResponseWriter, r *http.Request) {
	wz, ok := a.openedWizard(w, r)
	if !ok {
		return
	}
	st, err := wz.Back()
	if errors.Is(err, wizard.ErrClosed) {
		wizardClosed(w, r)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (a *API) finishWizard(w http.ResponseWriter, r *http.Request) {
	wz, ok := a.openedWizard(w, r)
	if !ok {
		return
	}
	p := principal(r)
	rec, err := wz.Finish(r.Context(), p.Identity.ID, a.saver)
	switch {
	case errors.Is(err, wizard.ErrClosed):
		wizardClosed(w, r)
		return
	case errors.Is(err, wizard.ErrNotAtReview), errors.Is(err, wizard.ErrIncomplete):
		writeErrorWith(w, r, http.StatusConflict, err.Error(), map[string]any{"state": wz.State()})
		return
	case errors.Is(err, contract.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		internalError(w, r, "save contract", err)
		return
	}
	a.wizards.Close(p.SessionID, wz)

	obs.RecordContractCreated()
	_ = audit.LogEvent(r.Context(), audit.EventContractCreated, map[string]any{
		"contract_id":  rec.ID,
		"has_artifact": rec.ArtifactRef != nil,
	})
	a.publish(stream.ContractCreated, p.Identity.ID, rec.ID, rec.Title)

	ident := a.refreshIdentity(r, p.Identity)
	w.Header().Set("Location", "/v1/contracts/"+rec.ID)
	writeJSON(w, http.StatusCreated, finishResponse{Contract: rec, Identity: newIdentityPayload(ident)})
}

func (a *API) publish(kind stream.Kind, ownerID, contractID, title string) {
	if a.events == nil {
		return
	}
	a.events.Publish(stream.Event{Kind: kind, OwnerID: ownerID, ContractID: contractID, Title: title, At: a.now().UTC()})
}
