package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/counseling-appointments/internal/appointment"
	"github.com/hackgods/counseling-appointments/internal/availability"
)

type handlers struct {
	booking BookingService
	slots   AvailabilityService
	logger  *zap.Logger
	now     func() time.Time
}

func (h *handlers) listSlots(w http.ResponseWriter, r *http.Request) {
	date, ok := h.queryDate(w, r)
	if !ok {
		return
	}
	slots, err := h.slots.Resolve(r.Context(), availability.Query{
		Site: strings.TrimSpace(r.URL.Query().Get("site")),
		Date: date,
	})
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSlotList(slots))
}

func (h *handlers) counselorFreeHours(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "invalid_counselor_id")
	if !ok {
		return
	}
	date, ok := h.queryDate(w, r)
	if !ok {
		return
	}
	slots, err := h.slots.CounselorDay(r.Context(), id, date)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSlotList(slots))
}

func (h *handlers) counselorAppointments(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "invalid_counselor_id")
	if !ok {
		return
	}
	appts, err := h.booking.ListForCounselorDay(r.Context(), id, r.URL.Query().Get("date"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentList(appts))
}

func (h *handlers) assignScheduleBlock(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "invalid_counselor_id")
	if !ok {
		return
	}
	var req ScheduleBlockRequest
	if !decodeBody(w, r, &req) {
		return
	}
	block, err := h.booking.AssignScheduleBlock(r.Context(), id, req.Weekday, req.StartTime, req.EndTime)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ScheduleBlockResponse{
		ID:          block.ID,
		CounselorID: block.CounselorID,
		Weekday:     block.Weekday.String(),
		StartTime:   block.StartTime,
		EndTime:     block.EndTime,
	})
}

func (h *handlers) bookAppointment(w http.ResponseWriter, r *http.Request) {
	var req BookAppointmentRequest
	if !decodeBody(w, r, &req) {
		return
	}

	studentID, err := uuid.Parse(req.StudentID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_student_id", "student_id must be a valid UUID")
		return
	}
	counselorID, err := uuid.Parse(req.CounselorID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_counselor_id", "counselor_id must be a valid UUID")
		return
	}
	in := appointment.BookInput{
		StudentID:   studentID,
		CounselorID: counselorID,
		Reason:      req.Reason,
		Date:        req.Date,
		Time:        req.Time,
		Modality:    req.Modality,
	}
	if req.PriorAppointmentID != nil && *req.PriorAppointmentID != "" {
		prior, err := uuid.Parse(*req.PriorAppointmentID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_prior_appointment_id", "prior_appointment_id must be a valid UUID")
			return
		}
		in.PriorAppointmentID = &prior
	}

	appt, err := h.booking.Book(r.Context(), in)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
}

func (h *handlers) getAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "invalid_appointment_id")
	if !ok {
		return
	}
	detail, err := h.booking.Get(r.Context(), id)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDetailResponse(detail))
}

// transitionHandler serves the body-less state changes.
func (h *handlers) transitionHandler(fn func(r *http.Request, id uuid.UUID) (*appointment.Appointment, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "invalid_appointment_id")
		if !ok {
			return
		}
		appt, err := fn(r, id)
		if err != nil {
			h.handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func (h *handlers) cancelAppointment(r *http.Request, id uuid.UUID) (*appointment.Appointment, error) {
	return h.booking.Cancel(r.Context(), id)
}

func (h *handlers) markRescheduled(r *http.Request, id uuid.UUID) (*appointment.Appointment, error) {
	return h.booking.MarkRescheduled(r.Context(), id)
}

func (h *handlers) revertReschedule(r *http.Request, id uuid.UUID) (*appointment.Appointment, error) {
	return h.booking.RevertReschedule(r.Context(), id)
}

func (h *handlers) attend(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "invalid_appointment_id")
	if !ok {
		return
	}
	var req AttendRequest
	if !decodeBody(w, r, &req) {
		return
	}
	appt, outcome, err := h.booking.Attend(r.Context(), id, appointment.AttendInput{
		ReferralArea:         req.ReferralArea,
		PresumptiveDiagnosis: req.PresumptiveDiagnosis,
		ContactMedium:        req.ContactMedium,
		Recommendations:      req.Recommendations,
		Observations:         req.Observations,
		FollowUpRequested:    req.FollowUpRequested,
	})
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ClosedAppointmentResponse{
		Appointment: toAppointmentResponse(appt),
		Outcome:     toOutcomeResponse(outcome),
	})
}

func (h *handlers) noShow(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "invalid_appointment_id")
	if !ok {
		return
	}
	// the body is optional
	var req NoShowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}
	appt, outcome, err := h.booking.NoShow(r.Context(), id, req.Observations)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ClosedAppointmentResponse{
		Appointment: toAppointmentResponse(appt),
		Outcome:     toOutcomeResponse(outcome),
	})
}

func (h *handlers) followUp(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "invalid_appointment_id")
	if !ok {
		return
	}
	next, err := h.booking.FollowUpOf(r.Context(), id)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	resp := FollowUpResponse{}
	if next != nil {
		a := toAppointmentResponse(next)
		resp.FollowUp = &a
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) rescheduleFollowUp(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "invalid_appointment_id")
	if !ok {
		return
	}
	var req FollowUpRescheduleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	appt, err := h.booking.RescheduleFollowUp(r.Context(), id, appointment.FollowUpChange{
		Cancel:   req.Cancel,
		Date:     req.Date,
		Time:     req.Time,
		Modality: req.Modality,
	})
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *handlers) studentPending(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "invalid_student_id")
	if !ok {
		return
	}
	appt, err := h.booking.PendingForStudent(r.Context(), id)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	resp := PendingResponse{Pending: appt != nil}
	if appt != nil {
		a := toAppointmentResponse(appt)
		resp.Appointment = &a
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) studentHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "invalid_student_id")
	if !ok {
		return
	}
	appts, err := h.booking.HistoryForStudent(r.Context(), id)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentList(appts))
}

func (h *handlers) refer(w http.ResponseWriter, r *http.Request) {
	var req ReferralRequest
	if !decodeBody(w, r, &req) {
		return
	}
	studentID, err := uuid.Parse(req.StudentID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_student_id", "student_id must be a valid UUID")
		return
	}
	counselorID, err := uuid.Parse(req.CounselorID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_counselor_id", "counselor_id must be a valid UUID")
		return
	}
	appt, err := h.booking.Refer(r.Context(), appointment.ReferralInput{
		StudentID:   studentID,
		CounselorID: counselorID,
		Reason:      req.Reason,
	})
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
}

// queryDate reads ?date= and enforces the booking window for listings.
func (h *handlers) queryDate(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	raw := r.URL.Query().Get("date")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "missing_date", "date query parameter is required")
		return time.Time{}, false
	}
	date, err := appointment.ParseDate(raw)
	if err != nil {
		h.handleError(w, r, err)
		return time.Time{}, false
	}
	policy := h.booking.Policy()
	now := h.now()
	if date.Before(policy.Today(now)) {
		writeError(w, http.StatusBadRequest, "date_in_past", "date must not be in the past")
		return time.Time{}, false
	}
	if err := policy.CheckLookahead(date, now); err != nil {
		h.handleError(w, r, err)
		return time.Time{}, false
	}
	return date, true
}

func pathID(w http.ResponseWriter, r *http.Request, code string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, code, "id must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return false
	}
	return true
}

// handleError maps service errors to HTTP responses. Unexpected errors are
// logged and reported without detail.
func (h *handlers) handleError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case appointment.IsValidationError(err):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, appointment.ErrStudentNotFound):
		writeError(w, http.StatusNotFound, "student_not_found", err.Error())
	case errors.Is(err, appointment.ErrCounselorNotFound):
		writeError(w, http.StatusNotFound, "counselor_not_found", err.Error())
	case errors.Is(err, appointment.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, appointment.ErrBeyondLookahead):
		writeError(w, http.StatusBadRequest, "beyond_lookahead", err.Error())
	case errors.Is(err, appointment.ErrLeadTimeNotMet):
		writeError(w, http.StatusBadRequest, "lead_time_not_met", err.Error())
	case errors.Is(err, appointment.ErrLineageMismatch):
		writeError(w, http.StatusBadRequest, "lineage_mismatch", err.Error())
	case errors.Is(err, appointment.ErrSlotTaken):
		writeError(w, http.StatusConflict, "slot_already_reserved", err.Error())
	case errors.Is(err, appointment.ErrPendingAppointmentExists):
		writeError(w, http.StatusConflict, "pending_appointment_exists", err.Error())
	case errors.Is(err, appointment.ErrSlotBeingBooked):
		writeError(w, http.StatusConflict, "slot_being_booked", "slot is currently being booked, please retry shortly")
	case errors.Is(err, appointment.ErrAlreadySuperseded):
		writeError(w, http.StatusConflict, "already_superseded", err.Error())
	case errors.Is(err, appointment.ErrInvalidStatusTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	default:
		h.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", GetRequestID(r.Context())),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}
