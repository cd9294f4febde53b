package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrStudentNotFound     = errors.New("student not found")
	ErrCounselorNotFound   = errors.New("counselor not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrOutcomeNotFound     = errors.New("outcome not found")

	// Returned by the store when an insert or update hits one of the partial
	// unique indexes guarding active appointments.
	ErrSlotTaken                = errors.New("the time slot is already reserved")
	ErrPendingAppointmentExists = errors.New("student already has a pending appointment")
	ErrAlreadySuperseded        = errors.New("appointment already has a follow-up or replacement")
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	GetStudentByID(ctx context.Context, id uuid.UUID) (*Student, error)
	GetCounselorByID(ctx context.Context, id uuid.UUID) (*Counselor, error)
	ListCounselors(ctx context.Context, site string) ([]Counselor, error)

	// Credential maintenance
	ListCounselorsWithRefreshToken(ctx context.Context) ([]Counselor, error)
	UpdateCounselorCredential(ctx context.Context, id uuid.UUID, accessToken string, refreshToken *string, expiry *time.Time) error

	CreateScheduleBlock(ctx context.Context, block ScheduleBlock) (*ScheduleBlock, error)
	ListScheduleBlocks(ctx context.Context, counselorID uuid.UUID, weekday time.Weekday) ([]ScheduleBlock, error)

	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	GetSuccessor(ctx context.Context, id uuid.UUID) (*Appointment, error)
	GetPendingForStudent(ctx context.Context, studentID uuid.UUID) (*Appointment, error)
	ListAppointmentsByStudent(ctx context.Context, studentID uuid.UUID) ([]Appointment, error)
	ListAppointmentsByCounselorDate(ctx context.Context, counselorID uuid.UUID, date time.Time) ([]Appointment, error)

	// Creation and updates
	CreateAppointment(ctx context.Context, appt NewAppointment) (*Appointment, error)
	// SupersedeAppointment moves prevID from `from` to reprogramada and inserts
	// next in the same transaction.
	SupersedeAppointment(ctx context.Context, prevID uuid.UUID, from AppointmentStatus, next NewAppointment) (*Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error)
	SetCalendarEvent(ctx context.Context, id uuid.UUID, eventID, meetLink *string) (*Appointment, error)

	// RecordOutcome moves id from `from` to `to` and upserts its outcome record
	// in the same transaction.
	RecordOutcome(ctx context.Context, id uuid.UUID, from, to AppointmentStatus, outcome Outcome) (*Appointment, *Outcome, error)
	GetOutcome(ctx context.Context, appointmentID uuid.UUID) (*Outcome, error)

	// Event logging
	InsertEvent(ctx context.Context, ev EventLog) error
}
