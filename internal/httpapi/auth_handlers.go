package httpapi

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"contratos.app/internal/audit"
	"contratos.app/internal/auth"
	"contratos.app/internal/obs"
)

type signUpRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token    string          `json:"token"`
	Identity identityPayload `json:"identity"`
}

// identityPayload is the identity plus the plan fields the UI shows.
type identityPayload struct {
	auth.Identity
	PlanLabel string `json:"plan_label"`
	LimitText string `json:"limit_text"`
	CanCreate bool   `json:"can_create"`
}

func newIdentityPayload(id auth.Identity) identityPayload {
	return identityPayload{
		Identity:  id,
		PlanLabel: id.Plan.Label(),
		LimitText: planLimitText(id),
		CanCreate: id.CanCreate(),
	}
}

func (a *API) signUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	p, err := a.auth.SignUp(r.Context(), req.Name, req.Email, req.Password)
	switch {
	case errors.Is(err, auth.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, auth.ErrAlreadyExists):
		writeError(w, r, http.StatusConflict, "email already registered")
		return
	case err != nil:
		internalError(w, r, "sign up", err)
		return
	}
	ctx := auth.ContextWithPrincipal(r.Context(), p)
	_ = audit.LogEvent(ctx, audit.EventSignUp, map[string]any{"email": p.Identity.Email})
	writeJSON(w, http.StatusCreated, sessionResponse{Token: p.Token, Identity: newIdentityPayload(p.Identity)})
}

func (a *API) signIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	p, err := a.auth.SignIn(r.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		obs.RecordSignIn("invalid")
		_ = audit.LogEvent(r.Context(), audit.EventSignInFailed, map[string]any{"reason": "invalid_credentials"})
		unauthorized(w, r, "invalid email or password")
		return
	case errors.Is(err, auth.ErrUnconfirmed):
		obs.RecordSignIn("unconfirmed")
		_ = audit.LogEvent(r.Context(), audit.EventSignInFailed, map[string]any{"reason": "unconfirmed"})
		writeError(w, r, http.StatusForbidden, "account is not active")
		return
	case err != nil:
		obs.RecordSignIn("error")
		internalError(w, r, "sign in", err)
		return
	}
	obs.RecordSignIn("ok")
	ctx := auth.ContextWithPrincipal(r.Context(), p)
	_ = audit.LogEvent(ctx, audit.EventSignIn, nil)
	writeJSON(w, http.StatusOK, sessionResponse{Token: p.Token, Identity: newIdentityPayload(p.Identity)})
}

func (a *API) signOut(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	if err := a.auth.SignOut(r.Context(), p.Token); err != nil {
		internalError(w, r, "sign out", err)
		return
	}
	a.wizards.Close(p.SessionID, nil)
	_ = audit.LogEvent(r.Context(), audit.EventSignOut, nil)
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newIdentityPayload(principal(r).Identity))
}

// refreshIdentity re-counts usage after a create or delete. The change itself
// already happened, so a failed count is logged and the stale identity kept.
func (a *API) refreshIdentity(r *http.Request, id auth.Identity) auth.Identity {
	fresh, err := a.auth.RefreshUsage(r.Context(), id)
	if err != nil {
		obs.Logger().Warn("usage_refresh_failed",
			zap.String("request_id", RequestIDFromContext(r.Context())),
			zap.String("user_id", id.ID),
			zap.Error(err),
		)
	}
	return fresh
}
