package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/example/akiya-reservations/internal/application"
)

type reservationService interface {
	PrepareIntake(ctx context.Context, principal application.Principal, ref application.ListingRef) (application.IntakeForm, error)
	Submit(ctx context.Context, principal application.Principal, input application.ReservationInput) (application.Reservation, error)
	SetReservationStatus(ctx context.Context, principal application.Principal, id, status string) (application.Reservation, error)
	ListReservations(ctx context.Context, principal application.Principal) ([]application.Reservation, error)
}

type draftService interface {
	Stage(ctx context.Context, token string, principal application.Principal, input application.ReservationInput) (application.Draft, error)
	Load(ctx context.Context, token string) (application.Draft, error)
	DraftDate(draft application.Draft) (string, error)
	Confirm(ctx context.Context, token string, principal application.Principal) (application.Reservation, error)
	Discard(ctx context.Context, token string) error
}

type ReservationHandler struct {
	reservations reservationService
	drafts       draftService
	responder    responder
	logger       *logrus.Logger
}

func NewReservationHandler(reservations reservationService, drafts draftService, logger *logrus.Logger) *ReservationHandler {
	base := defaultLogger(logger)
	return &ReservationHandler{reservations: reservations, drafts: drafts, responder: newResponder(base), logger: base}
}

func (h *ReservationHandler) log(c *gin.Context, operation string, fields logrus.Fields) *logrus.Entry {
	return handlerLogger(c.Request.Context(), h.logger, "ReservationHandler", operation, fields)
}

// Intake returns the prefilled reservation form for ?houseId= or ?museumId=.
func (h *ReservationHandler) Intake(c *gin.Context) {
	principal, _ := principalFrom(c)
	ref := application.ListingRef{HouseID: c.Query("houseId"), MuseumID: c.Query("museumId")}

	form, err := h.reservations.PrepareIntake(c.Request.Context(), principal, ref)
	if err != nil {
		h.responder.handleServiceError(c, err)
		return
	}
	h.responder.writeJSON(c, http.StatusOK, intakeDTO{
		Listing:            toListingDTO(form.Listing),
		Name:               form.Name,
		Email:              form.Email,
		Contact:            form.Contact,
		MinDate:            form.MinDate,
		RemarksPlaceholder: form.RemarksPlaceholder,
	})
}

func (h *ReservationHandler) Submit(c *gin.Context) {
	input, ok := h.bindReservation(c, "Submit")
	if !ok {
		return
	}
	principal, _ := principalFrom(c)

	reservation, err := h.reservations.Submit(c.Request.Context(), principal, input)
	if err != nil {
		h.responder.handleServiceError(c, err)
		return
	}
	h.responder.writeJSON(c, http.StatusCreated, toReservationDTO(reservation))
}

func (h *ReservationHandler) StageDraft(c *gin.Context) {
	input, ok := h.bindReservation(c, "StageDraft")
	if !ok {
		return
	}
	principal, _ := principalFrom(c)

	draft, err := h.drafts.Stage(c.Request.Context(), sessionTokenFrom(c), principal, input)
	if err != nil {
		h.responder.handleServiceError(c, err)
		return
	}
	h.writeDraft(c, http.StatusCreated, draft)
}

func (h *ReservationHandler) LoadDraft(c *gin.Context) {
	draft, err := h.drafts.Load(c.Request.Context(), sessionTokenFrom(c))
	if err != nil {
		h.responder.handleServiceError(c, err)
		return
	}
	h.writeDraft(c, http.StatusOK, draft)
}

func (h *ReservationHandler) ConfirmDraft(c *gin.Context) {
	principal, _ := principalFrom(c)

	reservation, err := h.drafts.Confirm(c.Request.Context(), sessionTokenFrom(c), principal)
	if err != nil {
		h.responder.handleServiceError(c, err)
		return
	}
	h.responder.writeJSON(c, http.StatusCreated, toReservationDTO(reservation))
}

func (h *ReservationHandler) DiscardDraft(c *gin.Context) {
	if err := h.drafts.Discard(c.Request.Context(), sessionTokenFrom(c)); err != nil {
		h.log(c, "DiscardDraft", nil).WithError(err).Error("failed to discard draft")
		h.responder.handleServiceError(c, err)
		return
	}
	h.responder.writeJSON(c, http.StatusNoContent, nil)
}

func (h *ReservationHandler) AdminList(c *gin.Context) {
	principal, _ := principalFrom(c)

	reservations, err := h.reservations.ListReservations(c.Request.Context(), principal)
	if err != nil {
		h.log(c, "AdminList", nil).WithError(err).Error("failed to load reservations")
		h.responder.handleServiceError(c, err)
		return
	}

	items := make([]reservationDTO, 0, len(reservations))
	for _, reservation := range reservations {
		items = append(items, toReservationDTO(reservation))
	}
	h.responder.writeJSON(c, http.StatusOK, gin.H{"items": items})
}

func (h *ReservationHandler) SetStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.responder.writeError(c, http.StatusBadRequest, errBadRequestBody)
		return
	}
	principal, _ := principalFrom(c)

	reservation, err := h.reservations.SetReservationStatus(c.Request.Context(), principal, c.Param("id"), req.Status)
	if err != nil {
		h.log(c, "SetStatus", logrus.Fields{"reservation_id": c.Param("id")}).WithError(err).Warn("status update rejected")
		h.responder.handleServiceError(c, err)
		return
	}
	h.responder.writeJSON(c, http.StatusOK, toReservationDTO(reservation))
}

func (h *ReservationHandler) bindReservation(c *gin.Context, operation string) (application.ReservationInput, bool) {
	var req reservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log(c, operation, logrus.Fields{"error_kind": "bad_request"}).WithError(err).Error("failed to decode reservation request")
		h.responder.writeError(c, http.StatusBadRequest, errBadRequestBody)
		return application.ReservationInput{}, false
	}
	return req.toInput(), true
}

func (h *ReservationHandler) writeDraft(c *gin.Context, status int, draft application.Draft) {
	visitDate, err := h.drafts.DraftDate(draft)
	if err != nil {
		h.log(c, "writeDraft", nil).WithError(err).Warn("draft carries an unreadable date")
	}
	h.responder.writeJSON(c, status, draftDTO{Draft: draft, VisitDate: visitDate})
}

type reservationRequest struct {
	HouseID  string `json:"houseId"`
	MuseumID string `json:"museumId"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Contact  string `json:"contact"`
	Date     string `json:"date"`
	Payment  string `json:"payment"`
	Remarks  string `json:"remarks"`
}

func (r reservationRequest) toInput() application.ReservationInput {
	return application.ReservationInput{
		Listing: application.ListingRef{HouseID: r.HouseID, MuseumID: r.MuseumID},
		Name:    r.Name,
		Email:   r.Email,
		Contact: r.Contact,
		Date:    r.Date,
		Payment: r.Payment,
		Remarks: r.Remarks,
	}
}

type statusRequest struct {
	Status string `json:"status"`
}

type reservationDTO struct {
	ID              string  `json:"id"`
	HouseID         *string `json:"houseId"`
	MuseumID        *string `json:"museumId"`
	UserID          string  `json:"userId"`
	Name            string  `json:"name"`
	Email           string  `json:"email"`
	Contact         string  `json:"contact"`
	Date            string  `json:"date"`
	Payment         string  `json:"payment"`
	Remarks         string  `json:"remarks"`
	Status          string  `json:"status"`
	CreatedAt       string  `json:"createdAt"`
	UpdatedAt       *string `json:"updatedAt"`
	ApproveDisabled bool    `json:"approveDisabled"`
	DeclineDisabled bool    `json:"declineDisabled"`
}

func toReservationDTO(r application.Reservation) reservationDTO {
	dto := reservationDTO{
		ID:              r.ID,
		HouseID:         optionalString(r.HouseID),
		MuseumID:        optionalString(r.MuseumID),
		UserID:          r.UserID,
		Name:            r.Name,
		Email:           r.Email,
		Contact:         r.Contact,
		Date:            r.Date,
		Payment:         r.Payment,
		Remarks:         r.Remarks,
		Status:          r.Status,
		CreatedAt:       r.CreatedAt.UTC().Format(time.RFC3339),
		ApproveDisabled: r.ApproveDisabled(),
		DeclineDisabled: r.DeclineDisabled(),
	}
	if r.UpdatedAt != nil {
		updated := r.UpdatedAt.UTC().Format(time.RFC3339)
		dto.UpdatedAt = &updated
	}
	return dto
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

type draftDTO struct {
	application.Draft
	VisitDate string `json:"visitDate,omitempty"`
}

type intakeDTO struct {
	Listing            listingDTO `json:"listing"`
	Name               string     `json:"name"`
	Email              string     `json:"email"`
	Contact            string     `json:"contact"`
	MinDate            string     `json:"minDate"`
	RemarksPlaceholder string     `json:"remarksPlaceholder"`
}
