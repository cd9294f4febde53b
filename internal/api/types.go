package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/counseling-appointments/internal/appointment"
	"github.com/hackgods/counseling-appointments/internal/availability"
)

type BookAppointmentRequest struct {
	StudentID          string  `json:"student_id"`
	CounselorID        string  `json:"counselor_id"`
	Reason             string  `json:"reason"`
	Date               string  `json:"date"`
	Time               string  `json:"time"`
	Modality           string  `json:"modality"`
	PriorAppointmentID *string `json:"prior_appointment_id,omitempty"`
}

type AttendRequest struct {
	ReferralArea         *string `json:"referral_area"`
	PresumptiveDiagnosis *string `json:"presumptive_diagnosis"`
	ContactMedium        *string `json:"contact_medium"`
	Recommendations      *string `json:"recommendations"`
	Observations         *string `json:"observations"`
	FollowUpRequested    *bool   `json:"follow_up_requested"`
}

type NoShowRequest struct {
	Observations *string `json:"observations"`
}

type FollowUpRescheduleRequest struct {
	Cancel   bool   `json:"cancel"`
	Date     string `json:"date"`
	Time     string `json:"time"`
	Modality string `json:"modality"`
}

type ReferralRequest struct {
	StudentID   string `json:"student_id"`
	CounselorID string `json:"counselor_id"`
	Reason      string `json:"reason"`
}

type ScheduleBlockRequest struct {
	Weekday   string `json:"weekday"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type AppointmentResponse struct {
	ID                 uuid.UUID  `json:"id"`
	StudentID          uuid.UUID  `json:"student_id"`
	CounselorID        uuid.UUID  `json:"counselor_id"`
	Reason             string     `json:"reason"`
	Date               string     `json:"date"`
	Time               string     `json:"time"`
	Modality           string     `json:"modality"`
	Status             string     `json:"status"`
	MeetLink           *string    `json:"meet_link,omitempty"`
	CalendarEventID    *string    `json:"calendar_event_id,omitempty"`
	PriorAppointmentID *uuid.UUID `json:"prior_appointment_id,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

type OutcomeResponse struct {
	ReferralArea         *string   `json:"referral_area,omitempty"`
	PresumptiveDiagnosis *string   `json:"presumptive_diagnosis,omitempty"`
	ContactMedium        *string   `json:"contact_medium,omitempty"`
	Recommendations      *string   `json:"recommendations,omitempty"`
	Observations         *string   `json:"observations,omitempty"`
	FollowUpRequested    *bool     `json:"follow_up_requested,omitempty"`
	UpdatedAt            time.Time `json:"updated_at"`
}

type PersonResponse struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

type AppointmentDetailResponse struct {
	AppointmentResponse
	Student   *PersonResponse      `json:"student,omitempty"`
	Counselor *PersonResponse      `json:"counselor,omitempty"`
	Outcome   *OutcomeResponse     `json:"outcome,omitempty"`
	Prior     *AppointmentResponse `json:"prior,omitempty"`
}

type ClosedAppointmentResponse struct {
	Appointment AppointmentResponse `json:"appointment"`
	Outcome     *OutcomeResponse    `json:"outcome,omitempty"`
}

type PendingResponse struct {
	Pending     bool                 `json:"pending"`
	Appointment *AppointmentResponse `json:"appointment,omitempty"`
}

type FollowUpResponse struct {
	FollowUp *AppointmentResponse `json:"follow_up"`
}

type SlotResponse struct {
	CounselorID   uuid.UUID `json:"counselor_id"`
	CounselorName string    `json:"counselor_name"`
	SourceID      string    `json:"source_id"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	Label         string    `json:"label"`
}

type ScheduleBlockResponse struct {
	ID          uuid.UUID `json:"id"`
	CounselorID uuid.UUID `json:"counselor_id"`
	Weekday     string    `json:"weekday"`
	StartTime   string    `json:"start_time"`
	EndTime     string    `json:"end_time"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func toAppointmentResponse(a *appointment.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:                 a.ID,
		StudentID:          a.StudentID,
		CounselorID:        a.CounselorID,
		Reason:             a.Reason,
		Date:               a.DateString(),
		Time:               a.Time,
		Modality:           string(a.Modality),
		Status:             string(a.Status),
		MeetLink:           a.MeetLink,
		CalendarEventID:    a.CalendarEventID,
		PriorAppointmentID: a.PriorAppointmentID,
		CreatedAt:          a.CreatedAt,
		UpdatedAt:          a.UpdatedAt,
	}
}

func toAppointmentList(appts []appointment.Appointment) []AppointmentResponse {
	out := make([]AppointmentResponse, 0, len(appts))
	for i := range appts {
		out = append(out, toAppointmentResponse(&appts[i]))
	}
	return out
}

func toOutcomeResponse(o *appointment.Outcome) *OutcomeResponse {
	if o == nil {
		return nil
	}
	return &OutcomeResponse{
		ReferralArea:         o.ReferralArea,
		PresumptiveDiagnosis: o.PresumptiveDiagnosis,
		ContactMedium:        o.ContactMedium,
		Recommendations:      o.Recommendations,
		Observations:         o.Observations,
		FollowUpRequested:    o.FollowUpRequested,
		UpdatedAt:            o.UpdatedAt,
	}
}

func toDetailResponse(d *appointment.AppointmentDetail) AppointmentDetailResponse {
	resp := AppointmentDetailResponse{
		AppointmentResponse: toAppointmentResponse(&d.Appointment),
		Outcome:             toOutcomeResponse(d.Outcome),
	}
	if d.Student != nil {
		resp.Student = &PersonResponse{ID: d.Student.ID, Name: d.Student.Name, Email: d.Student.Email}
	}
	if d.Counselor != nil {
		resp.Counselor = &PersonResponse{ID: d.Counselor.ID, Name: d.Counselor.DisplayName(), Email: d.Counselor.Email}
	}
	if d.Prior != nil {
		prior := toAppointmentResponse(d.Prior)
		resp.Prior = &prior
	}
	return resp
}

func toSlotList(slots []availability.Slot) []SlotResponse {
	out := make([]SlotResponse, 0, len(slots))
	for _, s := range slots {
		out = append(out, SlotResponse{
			CounselorID:   s.CounselorID,
			CounselorName: s.CounselorName,
			SourceID:      s.SourceID,
			Start:         s.Start,
			End:           s.End,
			Label:         s.Label,
		})
	}
	return out
}
