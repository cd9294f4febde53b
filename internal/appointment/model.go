package appointment

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/counseling-appointments/internal/calendar"
)

type AppointmentStatus string

const (
	StatusPending     AppointmentStatus = "pendiente"
	StatusAttended    AppointmentStatus = "atendida"
	StatusNoShow      AppointmentStatus = "no_asistio"
	StatusCancelled   AppointmentStatus = "cancelada"
	StatusRescheduled AppointmentStatus = "reprogramada"
)

// Terminal reports whether the status ends the appointment's lifecycle.
func (s AppointmentStatus) Terminal() bool {
	return s != StatusPending
}

type Modality string

const (
	ModalityVirtual  Modality = "virtual"
	ModalityInPerson Modality = "presencial"
)

func ParseModality(raw string) (Modality, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "virtual":
		return ModalityVirtual, nil
	case "presencial", "in-person", "in_person":
		return ModalityInPerson, nil
	}
	return "", validationError("modality must be virtual or presencial")
}

type Counselor struct {
	ID                   uuid.UUID
	Name                 string
	Email                string
	Phone                *string
	Site                 *string
	CalendarAccessToken  *string
	CalendarRefreshToken *string
	CalendarTokenExpiry  *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

func (c *Counselor) DisplayName() string {
	return "Psicól. " + c.Name
}

// Credential returns the stored calendar credential. A counselor with only a
// refresh token still has one; the gateway exchanges it on first use.
func (c *Counselor) Credential() (calendar.Credential, bool) {
	var cred calendar.Credential
	if c.CalendarAccessToken != nil {
		cred.AccessToken = *c.CalendarAccessToken
	}
	if c.CalendarRefreshToken != nil {
		cred.RefreshToken = *c.CalendarRefreshToken
	}
	if c.CalendarTokenExpiry != nil {
		cred.Expiry = *c.CalendarTokenExpiry
	}
	return cred, cred.Usable()
}

type Student struct {
	ID        uuid.UUID
	Name      string
	Email     string
	Code      *string
	Site      *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ScheduleBlock is a recurring weekly availability window in HH:mm local time.
type ScheduleBlock struct {
	ID          uuid.UUID
	CounselorID uuid.UUID
	Weekday     time.Weekday
	StartTime   string
	EndTime     string
	CreatedAt   time.Time
}

type Appointment struct {
	ID                 uuid.UUID
	StudentID          uuid.UUID
	CounselorID        uuid.UUID
	Reason             string
	Date               time.Time // calendar date at 00:00 UTC
	Time               string    // HH:mm in the institution timezone
	Modality           Modality
	MeetLink           *string
	CalendarEventID    *string
	Status             AppointmentStatus
	PriorAppointmentID *uuid.UUID
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// DateString is the appointment date as YYYY-MM-DD.
func (a *Appointment) DateString() string {
	return a.Date.Format(time.DateOnly)
}

// NewAppointment carries the fields of an appointment about to be inserted.
type NewAppointment struct {
	StudentID          uuid.UUID
	CounselorID        uuid.UUID
	Reason             string
	Date               time.Time
	Time               string
	Modality           Modality
	Status             AppointmentStatus
	PriorAppointmentID *uuid.UUID
}

// Outcome is the clinical disposition recorded when an appointment is attended
// or missed. A no-show only carries Observations.
type Outcome struct {
	AppointmentID        uuid.UUID
	ReferralArea         *string
	PresumptiveDiagnosis *string
	ContactMedium        *string
	Recommendations      *string
	Observations         *string
	FollowUpRequested    *bool
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}

type AppointmentDetail struct {
	Appointment
	Student   *Student
	Counselor *Counselor
	Outcome   *Outcome
	Prior     *Appointment
}
