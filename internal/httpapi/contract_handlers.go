package httpapi

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"contratos.app/internal/artifact"
	"contratos.app/internal/audit"
	"contratos.app/internal/contract"
	"contratos.app/internal/dashboard"
	"contratos.app/internal/ids"
	"contratos.app/internal/obs"
	"contratos.app/internal/stream"
)

type previewResponse struct {
	Title   string `json:"title"`
	Preview string `json:"preview"`
}

type deleteResponse struct {
	Deleted  string          `json:"deleted"`
	Identity identityPayload `json:"identity"`
}

func (a *API) contractTypes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"items": contract.Types})
}

func (a *API) preview(w http.ResponseWriter, r *http.Request) {
	var d contract.Draft
	if err := decodeJSON(r, &d); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := d.Validate(); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, previewResponse{Title: contract.Title(d), Preview: contract.Preview(d)})
}

func (a *API) listContracts(w http.ResponseWriter, r *http.Request) {
	filter, err := dashboard.ParseFilter(r.URL.Query().Get("filter"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	id := principal(r).Identity
	view, err := a.dashboard.View(r.Context(), id.ID, id.Plan, filter)
	if err != nil {
		internalError(w, r, "list contracts", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// exportContracts downloads the filtered list as a spreadsheet.
func (a *API) exportContracts(w http.ResponseWriter, r *http.Request) {
	filter, err := dashboard.ParseFilter(r.URL.Query().Get("filter"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	id := principal(r).Identity
	view, err := a.dashboard.View(r.Context(), id.ID, id.Plan, filter)
	if err != nil {
		internalError(w, r, "export contracts", err)
		return
	}
	var buf bytes.Buffer
	if err := dashboard.WriteXLSX(&buf, view); err != nil {
		internalError(w, r, "export contracts", err)
		return
	}
	name := fmt.Sprintf("contratos_%s.xlsx", a.now().Format("20060102_150405"))
	w.Header().Set("Content-Type", dashboard.XLSXContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// contractID reads the {id} path parameter. Malformed ids get the same 404
// as unknown ones without touching the store.
func contractID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if !ids.Valid(id) {
		writeError(w, r, http.StatusNotFound, "contract not found")
		return "", false
	}
	return id, true
}

func (a *API) getContract(w http.ResponseWriter, r *http.Request) {
	id, ok := contractID(w, r)
	if !ok {
		return
	}
	rec, err := a.dashboard.Find(r.Context(), principal(r).Identity.ID, id)
	if errors.Is(err, contract.ErrNotFound) {
		writeError(w, r, http.StatusNotFound, "contract not found")
		return
	}
	if err != nil {
		internalError(w, r, "get contract", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (a *API) deleteContract(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	id, ok := contractID(w, r)
	if !ok {
		return
	}
	confirmed, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))

	// The record is read first so its artifact can be removed after the row.
	// A failed read stops the delete so no object is orphaned.
	var rec contract.Record
	if confirmed && a.archive != nil {
		found, err := a.dashboard.Find(r.Context(), p.Identity.ID, id)
		switch {
		case errors.Is(err, contract.ErrNotFound):
		case err != nil:
			internalError(w, r, "load contract for delete", err)
			return
		default:
			rec = found
		}
	}
	err := a.dashboard.Delete(r.Context(), p.Identity.ID, dashboard.DeleteRequest{ID: id, Confirmed: confirmed})
	switch {
	case errors.Is(err, dashboard.ErrConfirmationRequired):
		writeError(w, r, http.StatusPreconditionRequired, "confirm=true is required to delete")
		return
	case errors.Is(err, contract.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "contract not found")
		return
	case err != nil:
		internalError(w, r, "delete contract", err)
		return
	}
	if a.archive != nil {
		a.archive.Remove(r.Context(), rec)
	}

	obs.RecordContractDeleted()
	_ = audit.LogEvent(r.Context(), audit.EventContractDeleted, map[string]any{"contract_id": id})
	a.publish(stream.ContractDeleted, p.Identity.ID, id, "")

	ident := a.refreshIdentity(r, p.Identity)
	writeJSON(w, http.StatusOK, deleteResponse{Deleted: id, Identity: newIdentityPayload(ident)})
}

func (a *API) contractArtifact(w http.ResponseWriter, r *http.Request) {
	if a.archive == nil {
		writeError(w, r, http.StatusNotFound, "artifacts are disabled")
		return
	}
	id, ok := contractID(w, r)
	if !ok {
		return
	}
	rec, err := a.dashboard.Find(r.Context(), principal(r).Identity.ID, id)
	if errors.Is(err, contract.ErrNotFound) {
		writeError(w, r, http.StatusNotFound, "contract not found")
		return
	}
	if err != nil {
		internalError(w, r, "get contract", err)
		return
	}
	url, err := a.archive.Link(r.Context(), rec)
	if errors.Is(err, artifact.ErrNoArtifact) {
		writeError(w, r, http.StatusNotFound, "contract has no artifact")
		return
	}
	if err != nil {
		internalError(w, r, "presign artifact", err)
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}
