package handlers

import (
	"net/http"
	"unicode/utf8"

	"procurement/internal/lifecycle"
	"procurement/models"
)

type createBidRequest struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	TenderID        string `json:"tenderId"`
	OrganizationID  string `json:"organizationId"`
	Status          string `json:"status"`
	CreatorUsername string `json:"creatorUsername"`
}

func (req createBidRequest) validate() error {
	if err := validateName(req.Name); err != nil {
		return err
	}
	if err := validateDescription(req.Description); err != nil {
		return err
	}
	if err := validateUUID("tenderId", req.TenderID); err != nil {
		return err
	}
	// organizationId is optional: without it the bid belongs to its author.
	if req.OrganizationID != "" {
		if err := validateUUID("organizationId", req.OrganizationID); err != nil {
			return err
		}
	}
	if req.Status != "" && models.BidStatus(req.Status) != models.BidCreated {
		return errInvalid("status", req.Status)
	}
	if req.CreatorUsername == "" {
		return errMissing("creatorUsername")
	}
	return nil
}

func (h *Handler) CreateBidHandler(w http.ResponseWriter, r *http.Request) {
	var req createBidRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	bid, err := h.Bids.Create(r.Context(), lifecycle.NewBid{
		Name:            req.Name,
		Description:     req.Description,
		TenderID:        req.TenderID,
		OrganizationID:  req.OrganizationID,
		CreatorUsername: req.CreatorUsername,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bid)
}

func (h *Handler) GetUserBidsHandler(w http.ResponseWriter, r *http.Request) {
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

	bids, err := h.Bids.ListByAuthor(r.Context(), username, params.Limit, params.Offset)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bids)
}

func (h *Handler) GetBidsForTenderHandler(w http.ResponseWriter, r *http.Request) {
	params, err := parsePaginationParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	tenderID, err := pathID(r, "tenderId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	bids, err := h.Bids.ListForTender(r.Context(), tenderID, params.Limit, params.Offset)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bids)
}

func (h *Handler) GetBidStatusHandler(w http.ResponseWriter, r *http.Request) {
	bidID, err := pathID(r, "bidId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	status, err := h.Bids.Status(r.Context(), bidID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *Handler) UpdateBidStatusHandler(w http.ResponseWriter, r *http.Request) {
	bidID, err := pathID(r, "bidId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	username, err := requireQuery(r, "username")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	status := models.BidStatus(r.URL.Query().Get("status"))
	if !status.Valid() {
		writeError(w, http.StatusBadRequest, errInvalid("status", string(status)).Error())
		return
	}

	bid, err := h.Bids.SetStatus(r.Context(), bidID, status, username)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bid)
}

func (h *Handler) EditBidHandler(w http.ResponseWriter, r *http.Request) {
	bidID, err := pathID(r, "bidId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	username, err := requireQuery(r, "username")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var patch models.BidPatch
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

	bid, err := h.Bids.Edit(r.Context(), bidID, username, patch)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bid)
}

func (h *Handler) SubmitDecisionHandler(w http.ResponseWriter, r *http.Request) {
	bidID, err := pathID(r, "bidId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	username, err := requireQuery(r, "username")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	decision := models.Decision(r.URL.Query().Get("decision"))
	if !decision.Valid() {
		writeError(w, http.StatusBadRequest, errInvalid("decision", string(decision)).Error())
		return
	}

	bid, err := h.Bids.SubmitDecision(r.Context(), bidID, decision, username)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bid)
}

func (h *Handler) RollbackBidHandler(w http.ResponseWriter, r *http.Request) {
	bidID, err := pathID(r, "bidId")
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

	bid, err := h.Bids.Rollback(r.Context(), bidID, version, username)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bid)
}

// BidFeedbackHandler handles PUT /api/bids/{bidId}/feedback.
func (h *Handler) BidFeedbackHandler(w http.ResponseWriter, r *http.Request) {
	bidID, err := pathID(r, "bidId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	username, err := requireQuery(r, "username")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	text := r.URL.Query().Get("bidFeedback")
	if text == "" || utf8.RuneCountInString(text) > maxFeedbackLen {
		writeError(w, http.StatusBadRequest, "bidFeedback is required and max length 1000")
		return
	}

	fb, err := h.Feedback.Create(r.Context(), bidID, username, text)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, fb)
}

// GetBidReviewsHandler handles GET /api/bids/{tenderId}/reviews.
func (h *Handler) GetBidReviewsHandler(w http.ResponseWriter, r *http.Request) {
	params, err := parsePaginationParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	tenderID, err := pathID(r, "tenderId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	author, err := requireQuery(r, "authorUsername")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	requester, err := requireQuery(r, "requesterUsername")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	reviews, err := h.Feedback.ListReviews(r.Context(), tenderID, author, requester, params.Limit, params.Offset)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reviews)
}
