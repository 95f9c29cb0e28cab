package handlers

import (
	"net/http"

	"procurement/internal/lifecycle"
	"procurement/models"
)

type createTenderRequest struct {
	Name            string             `json:"name"`
	Description     string             `json:"description"`
	ServiceType     models.ServiceType `json:"serviceType"`
	Status          string             `json:"status"`
	OrganizationID  string             `json:"organizationId"`
	CreatorUsername string             `json:"creatorUsername"`
}

func (req createTenderRequest) validate() error {
	if err := validateName(req.Name); err != nil {
		return err
	}
	if err := validateDescription(req.Description); err != nil {
		return err
	}
	if req.ServiceType != "" && !req.ServiceType.Valid() {
		return errInvalid("serviceType", string(req.ServiceType))
	}
	if req.Status != "" && models.TenderStatus(req.Status) != models.TenderCreated {
		return errInvalid("status", req.Status)
	}
	if err := validateUUID("organizationId", req.OrganizationID); err != nil {
		return err
	}
	if req.CreatorUsername == "" {
		return errMissing("creatorUsername")
	}
	return nil
}

// CreateTenderHandler handles POST /api/tenders/new.
func (h *Handler) CreateTenderHandler(w http.ResponseWriter, r *http.Request) {
	var req createTenderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	tender, err := h.Tenders.Create(r.Context(), lifecycle.NewTender{
		Name:            req.Name,
		Description:     req.Description,
		OrganizationID:  req.OrganizationID,
		ServiceType:     req.ServiceType,
		CreatorUsername: req.CreatorUsername,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tender)
}

// GetTendersHandler lists tenders, optionally filtered by service_type.
func (h *Handler) GetTendersHandler(w http.ResponseWriter, r *http.Request) {
	params, err := parsePaginationParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var serviceTypes []models.ServiceType
	for _, v := range r.URL.Query()["service_type"] {
		st := models.ServiceType(v)
		if !st.Valid() {
			writeError(w, http.StatusBadRequest, errInvalid("service_type", v).Error())
			return
		}
		serviceTypes = append(serviceTypes, st)
	}

	tenders, err := h.Tenders.List(r.Context(), params.Limit, params.Offset, serviceTypes)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tenders)
}

// GetUserTendersHandler lists the tenders created by username.
func (h *Handler) GetUserTendersHandler(w http.ResponseWriter, r *http.Request) {
	params, err := parsePaginationParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	username, err := requireQuery(r, "username")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	tenders, err := h.Tenders.ListByCreator(r.Context(), username, params.Limit, params.Offset)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tenders)
}

func (h *Handler) GetTenderStatusHandler(w http.ResponseWriter, r *http.Request) {
	tenderID, err := pathID(r, "tenderId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	status, err := h.Tenders.Status(r.Context(), tenderID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *Handler) UpdateTenderStatusHandler(w http.ResponseWriter, r *http.Request) {
	tenderID, err := pathID(r, "tenderId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	username, err := requireQuery(r, "username")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	status := models.TenderStatus(r.URL.Query().Get("status"))
	if !status.Valid() {
		writeError(w, http.StatusBadRequest, errInvalid("status", string(status)).Error())
		return
	}

	tender, err := h.Tenders.SetStatus(r.Context(), tenderID, status, username)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tender)
}

func (h *Handler) EditTenderHandler(w http.ResponseWriter, r *http.Request) {
	tenderID, err := pathID(r, "tenderId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	username, err := requireQuery(r, "username")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var patch models.TenderPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if patch.Name != nil && *patch.Name != "" {
		if err := validateName(*patch.Name); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if patch.Description != nil {
		if err := validateDescription(*patch.Description); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	tender, err := h.Tenders.Edit(r.Context(), tenderID, username, patch)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tender)
}

func (h *Handler) RollbackTenderHandler(w http.ResponseWriter, r *http.Request) {
	tenderID, err := pathID(r, "tenderId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	version, err := pathVersion(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	username, err := requireQuery(r, "username")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	tender, err := h.Tenders.Rollback(r.Context(), tenderID, version, username)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tender)
}
