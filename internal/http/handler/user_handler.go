package handler

import (
	"errors"
	"net/http"

	"github.com/sandeepkv93/deepscan-backend/internal/http/response"
	"github.com/sandeepkv93/deepscan-backend/internal/service"
)

type UserHandler struct {
	userSvc service.UserServiceInterface
}

func NewUserHandler(userSvc service.UserServiceInterface) *UserHandler {
	return &UserHandler{userSvc: userSvc}
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOrUnauthorized(w, r)
	if !ok {
		return
	}
	profile, err := h.userSvc.Profile(r.Context(), p.UserID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "user not found", nil)
			return
		}
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to load profile", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, profile)
}

func (h *UserHandler) Ledger(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOrUnauthorized(w, r)
	if !ok {
		return
	}
	pageReq, err := parsePageRequest(r)
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	res, err := h.userSvc.Ledger(r.Context(), p.UserID, pageReq)
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to load credit history", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, paginatedData(res.Items, res.Page, res.PageSize, res.Total, res.TotalPages))
}
