package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/counseling-appointments/internal/calendar"
	redisclient "github.com/hackgods/counseling-appointments/internal/redis"
)

const (
	EventAppointmentCreated     = "APPOINTMENT_CREATED"
	EventAppointmentCancelled   = "APPOINTMENT_CANCELLED"
	EventAppointmentRescheduled = "APPOINTMENT_RESCHEDULED"
	EventAppointmentReverted    = "APPOINTMENT_RESCHEDULE_REVERTED"
	EventAppointmentAttended    = "APPOINTMENT_ATTENDED"
	EventAppointmentNoShow      = "APPOINTMENT_NO_SHOW"
	EventAppointmentSuperseded  = "APPOINTMENT_SUPERSEDED"
	EventAppointmentReferred    = "APPOINTMENT_REFERRED"
	EventCalendarEventCreated   = "CALENDAR_EVENT_CREATED"
	EventCalendarEventFailed    = "CALENDAR_EVENT_FAILED"
	EventCalendarEventDeleted   = "CALENDAR_EVENT_DELETED"
	EventCalendarDeleteFailed   = "CALENDAR_DELETE_FAILED"
	EventCalendarNoCredential   = "CALENDAR_NO_CREDENTIAL"
)

const (
	followUpReason             = "seguimiento"
	referralModality           = ModalityInPerson
	maxChainLength             = 64
	defaultEventSummary        = "Cita de Psicología"
	rescheduledFollowUpSummary = "Cita de seguimiento reprogramada"
)

var (
	ErrSlotBeingBooked         = errors.New("slot is currently being booked, please retry")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrLineageMismatch         = errors.New("prior appointment belongs to a different student or counselor")
)

type Service struct {
	repo    Repository
	locker  redisclient.Locker
	gateway calendar.Gateway
	policy  Policy
	logger  *zap.Logger
	now     func() time.Time
}

func NewService(repo Repository, locker redisclient.Locker, gateway calendar.Gateway, policy Policy, logger *zap.Logger) *Service {
	if locker == nil {
		locker = redisclient.NopLocker{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:    repo,
		locker:  locker,
		gateway: gateway,
		policy:  policy,
		logger:  logger,
		now:     time.Now,
	}
}

func (s *Service) Policy() Policy { return s.policy }

type BookInput struct {
	StudentID          uuid.UUID
	CounselorID        uuid.UUID
	Reason             string
	Date               string
	Time               string
	Modality           string
	PriorAppointmentID *uuid.UUID
}

type slotRequest struct {
	date     time.Time
	time     string
	modality Modality
}

// validateSlot runs the checks that need no store access.
func (s *Service) validateSlot(date, hhmm, modality string) (slotRequest, error) {
	d, err := ParseDate(date)
	if err != nil {
		return slotRequest{}, err
	}
	if err := s.policy.CheckLookahead(d, s.now()); err != nil {
		return slotRequest{}, err
	}
	if _, _, err := ParseTimeOfDay(hhmm); err != nil {
		return slotRequest{}, err
	}
	m, err := ParseModality(modality)
	if err != nil {
		return slotRequest{}, err
	}
	return slotRequest{date: d, time: hhmm, modality: m}, nil
}

// Book reserves a slot for a student. With a prior appointment it books a
// follow-up (prior attended) or a replacement (prior rescheduled).
func (s *Service) Book(ctx context.Context, in BookInput) (*Appointment, error) {
	req, err := s.validateSlot(in.Date, in.Time, in.Modality)
	if err != nil {
		return nil, err
	}
	reason := strings.TrimSpace(in.Reason)
	if in.PriorAppointmentID == nil && reason == "" {
		return nil, validationError("reason is required")
	}

	student, err := s.repo.GetStudentByID(ctx, in.StudentID)
	if err != nil {
		if errors.Is(err, ErrStudentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load student: %w", err)
	}
	counselor, err := s.repo.GetCounselorByID(ctx, in.CounselorID)
	if err != nil {
		if errors.Is(err, ErrCounselorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load counselor: %w", err)
	}

	followUp := false
	if in.PriorAppointmentID != nil {
		prior, err := s.repo.GetAppointmentByID(ctx, *in.PriorAppointmentID)
		if err != nil {
			if errors.Is(err, ErrAppointmentNotFound) {
				return nil, fmt.Errorf("prior %w", err)
			}
			return nil, fmt.Errorf("load prior appointment: %w", err)
		}
		if prior.StudentID != student.ID || prior.CounselorID != counselor.ID {
			return nil, ErrLineageMismatch
		}
		switch prior.Status {
		case StatusAttended:
			followUp = true
			reason = followUpReason
		case StatusRescheduled:
			if reason == "" {
				reason = prior.Reason
			}
		default:
			return nil, fmt.Errorf("%w: prior appointment is %s", ErrInvalidStatusTransition, prior.Status)
		}
	}

	if err := s.policy.CheckLeadTime(req.date, s.now(), followUp); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetPendingForStudent(ctx, student.ID); err == nil {
		return nil, ErrPendingAppointmentExists
	} else if !errors.Is(err, ErrAppointmentNotFound) {
		return nil, fmt.Errorf("check pending appointment: %w", err)
	}

	next := NewAppointment{
		StudentID:          student.ID,
		CounselorID:        counselor.ID,
		Reason:             reason,
		Date:               req.date,
		Time:               req.time,
		Modality:           req.modality,
		Status:             StatusPending,
		PriorAppointmentID: in.PriorAppointmentID,
	}

	var created *Appointment
	err = s.withSlotLock(ctx, next, func(lockCtx context.Context) error {
		appt, err := s.repo.CreateAppointment(lockCtx, next)
		if err != nil {
			return err
		}
		created = appt
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logEvent(ctx, created.ID, EventAppointmentCreated, map[string]any{
		"student_id":   student.ID.String(),
		"counselor_id": counselor.ID.String(),
		"date":         created.DateString(),
		"time":         created.Time,
		"follow_up":    followUp,
	})

	return s.attachCalendarEvent(ctx, created, student, counselor, defaultEventSummary), nil
}

func (s *Service) withSlotLock(ctx context.Context, appt NewAppointment, fn func(context.Context) error) error {
	key := fmt.Sprintf("%s:%s:%s", appt.CounselorID, appt.Date.Format(time.DateOnly), appt.Time)
	err := s.locker.WithSlotLock(ctx, key, fn)
	if errors.Is(err, redisclient.ErrLockNotAcquired) {
		return ErrSlotBeingBooked
	}
	return err
}

// Cancel moves a pending appointment to cancelada and then removes its
// calendar event. A failed removal does not undo the cancellation.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	updated, err := s.transition(ctx, id, StatusPending, StatusCancelled)
	if err != nil {
		return nil, err
	}
	s.logEvent(ctx, updated.ID, EventAppointmentCancelled, map[string]any{})
	return s.releaseCalendarEvent(ctx, updated), nil
}

// MarkRescheduled moves a pending appointment to reprogramada and frees its slot.
func (s *Service) MarkRescheduled(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	updated, err := s.transition(ctx, id, StatusPending, StatusRescheduled)
	if err != nil {
		return nil, err
	}
	s.logEvent(ctx, updated.ID, EventAppointmentRescheduled, map[string]any{})
	return s.releaseCalendarEvent(ctx, updated), nil
}

// RevertReschedule restores a reprogramada appointment to pendiente. The
// store rejects it if the slot or the student's pending place was taken.
func (s *Service) RevertReschedule(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.Status != StatusRescheduled {
		return nil, fmt.Errorf("%w: appointment is %s", ErrInvalidStatusTransition, appt.Status)
	}
	if _, err := s.repo.GetSuccessor(ctx, id); err == nil {
		return nil, ErrAlreadySuperseded
	} else if !errors.Is(err, ErrAppointmentNotFound) {
		return nil, fmt.Errorf("load successor: %w", err)
	}

	updated, err := s.transition(ctx, id, StatusRescheduled, StatusPending)
	if err != nil {
		return nil, err
	}
	s.logEvent(ctx, updated.ID, EventAppointmentReverted, map[string]any{})
	return updated, nil
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.Status != from {
		return nil, fmt.Errorf("%w: appointment is %s", ErrInvalidStatusTransition, appt.Status)
	}
	updated, err := s.repo.UpdateAppointmentStatus(ctx, id, from, to)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// status changed between the read and the guarded update
			return nil, ErrInvalidStatusTransition
		}
		return nil, err
	}
	return updated, nil
}

type AttendInput struct {
	ReferralArea         *string
	PresumptiveDiagnosis *string
	ContactMedium        *string
	Recommendations      *string
	Observations         *string
	FollowUpRequested    *bool
}

// Attend records the session as attended with its outcome. Calling it again on
// an attended appointment replaces the outcome.
func (s *Service) Attend(ctx context.Context, id uuid.UUID, in AttendInput) (*Appointment, *Outcome, error) {
	return s.close(ctx, id, StatusAttended, EventAppointmentAttended, Outcome{
		AppointmentID:        id,
		ReferralArea:         in.ReferralArea,
		PresumptiveDiagnosis: in.PresumptiveDiagnosis,
		ContactMedium:        in.ContactMedium,
		Recommendations:      in.Recommendations,
		Observations:         in.Observations,
		FollowUpRequested:    in.FollowUpRequested,
	})
}

// NoShow records that the student did not attend, with optional observations.
func (s *Service) NoShow(ctx context.Context, id uuid.UUID, observations *string) (*Appointment, *Outcome, error) {
	return s.close(ctx, id, StatusNoShow, EventAppointmentNoShow, Outcome{
		AppointmentID: id,
		Observations:  observations,
	})
}

func (s *Service) close(ctx context.Context, id uuid.UUID, to AppointmentStatus, eventType string, outcome Outcome) (*Appointment, *Outcome, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if appt.Status != StatusPending && appt.Status != to {
		return nil, nil, fmt.Errorf("%w: appointment is %s", ErrInvalidStatusTransition, appt.Status)
	}
	updated, saved, err := s.repo.RecordOutcome(ctx, id, appt.Status, to, outcome)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, nil, ErrInvalidStatusTransition
		}
		return nil, nil, fmt.Errorf("record outcome: %w", err)
	}
	s.logEvent(ctx, updated.ID, eventType, map[string]any{"from": string(appt.Status)})
	return updated, saved, nil
}

type FollowUpChange struct {
	Cancel   bool
	Date     string
	Time     string
	Modality string
}

// RescheduleFollowUp acts on the last live appointment of the chain that
// starts at id. A pending tail is cancelled (Cancel) or superseded by a new
// pending appointment at the requested slot. An attended or reprogramada tail
// means the previous follow-up was cancelled, so the chain continues with a
// new pending appointment linked to that tail.
func (s *Service) RescheduleFollowUp(ctx context.Context, id uuid.UUID, change FollowUpChange) (*Appointment, error) {
	tail, err := s.ChainTail(ctx, id)
	if err != nil {
		return nil, err
	}
	supersede := tail.Status == StatusPending
	switch {
	case supersede && change.Cancel:
		return s.Cancel(ctx, tail.ID)
	case supersede:
	case !change.Cancel && (tail.Status == StatusAttended || tail.Status == StatusRescheduled):
	default:
		return nil, fmt.Errorf("%w: latest appointment in the chain is %s", ErrInvalidStatusTransition, tail.Status)
	}

	req, err := s.validateSlot(change.Date, change.Time, change.Modality)
	if err != nil {
		return nil, err
	}
	if err := s.policy.CheckLeadTime(req.date, s.now(), true); err != nil {
		return nil, err
	}

	student, err := s.repo.GetStudentByID(ctx, tail.StudentID)
	if err != nil {
		return nil, fmt.Errorf("load student: %w", err)
	}
	counselor, err := s.repo.GetCounselorByID(ctx, tail.CounselorID)
	if err != nil {
		return nil, fmt.Errorf("load counselor: %w", err)
	}

	reason := tail.Reason
	if tail.Status == StatusAttended {
		reason = followUpReason
	}
	prevID := tail.ID
	next := NewAppointment{
		StudentID:          tail.StudentID,
		CounselorID:        tail.CounselorID,
		Reason:             reason,
		Date:               req.date,
		Time:               req.time,
		Modality:           req.modality,
		Status:             StatusPending,
		PriorAppointmentID: &prevID,
	}

	var created *Appointment
	err = s.withSlotLock(ctx, next, func(lockCtx context.Context) error {
		var appt *Appointment
		var err error
		if supersede {
			appt, err = s.repo.SupersedeAppointment(lockCtx, prevID, StatusPending, next)
		} else {
			appt, err = s.repo.CreateAppointment(lockCtx, next)
		}
		if err != nil {
			return err
		}
		created = appt
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, ErrInvalidStatusTransition
		}
		return nil, err
	}

	if supersede {
		s.logEvent(ctx, prevID, EventAppointmentSuperseded, map[string]any{
			"replacement_id": created.ID.String(),
		})
	}
	s.logEvent(ctx, created.ID, EventAppointmentCreated, map[string]any{
		"student_id":   tail.StudentID.String(),
		"counselor_id": tail.CounselorID.String(),
		"date":         created.DateString(),
		"time":         created.Time,
		"prior_id":     prevID.String(),
	})

	if supersede {
		tail.Status = StatusRescheduled
		s.releaseCalendarEvent(ctx, tail)
	}
	return s.attachCalendarEvent(ctx, created, student, counselor, rescheduledFollowUpSummary), nil
}

// ChainTail follows live successor links from id to the newest appointment.
func (s *Service) ChainTail(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	cur, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	seen := map[uuid.UUID]bool{cur.ID: true}
	for i := 0; i < maxChainLength; i++ {
		next, err := s.repo.GetSuccessor(ctx, cur.ID)
		if errors.Is(err, ErrAppointmentNotFound) {
			return cur, nil
		}
		if err != nil {
			return nil, fmt.Errorf("load successor: %w", err)
		}
		if seen[next.ID] {
			break
		}
		seen[next.ID] = true
		cur = next
	}
	return cur, nil
}

// FollowUpOf returns the appointment that directly succeeds id, or nil.
func (s *Service) FollowUpOf(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	if _, err := s.repo.GetAppointmentByID(ctx, id); err != nil {
		return nil, err
	}
	next, err := s.repo.GetSuccessor(ctx, id)
	if errors.Is(err, ErrAppointmentNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load successor: %w", err)
	}
	return next, nil
}

// Get retrieves a fully hydrated appointment by ID
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*AppointmentDetail, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	detail := &AppointmentDetail{Appointment: *appt}

	if detail.Student, err = s.repo.GetStudentByID(ctx, appt.StudentID); err != nil {
		return nil, fmt.Errorf("load student: %w", err)
	}
	if detail.Counselor, err = s.repo.GetCounselorByID(ctx, appt.CounselorID); err != nil {
		return nil, fmt.Errorf("load counselor: %w", err)
	}
	outcome, err := s.repo.GetOutcome(ctx, id)
	switch {
	case err == nil:
		detail.Outcome = outcome
	case !errors.Is(err, ErrOutcomeNotFound):
		return nil, fmt.Errorf("load outcome: %w", err)
	}
	if appt.PriorAppointmentID != nil {
		prior, err := s.repo.GetAppointmentByID(ctx, *appt.PriorAppointmentID)
		if err != nil && !errors.Is(err, ErrAppointmentNotFound) {
			return nil, fmt.Errorf("load prior appointment: %w", err)
		}
		detail.Prior = prior
	}
	return detail, nil
}

// PendingForStudent returns the student's pending appointment, or nil.
func (s *Service) PendingForStudent(ctx context.Context, studentID uuid.UUID) (*Appointment, error) {
	if _, err := s.repo.GetStudentByID(ctx, studentID); err != nil {
		return nil, err
	}
	appt, err := s.repo.GetPendingForStudent(ctx, studentID)
	if errors.Is(err, ErrAppointmentNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load pending appointment: %w", err)
	}
	return appt, nil
}

// HistoryForStudent lists every appointment of the student, newest first.
func (s *Service) HistoryForStudent(ctx context.Context, studentID uuid.UUID) ([]Appointment, error) {
	if _, err := s.repo.GetStudentByID(ctx, studentID); err != nil {
		return nil, err
	}
	appts, err := s.repo.ListAppointmentsByStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("list appointments by student: %w", err)
	}
	return appts, nil
}

// ListForCounselorDay lists a counselor's appointments on one date ordered by time.
func (s *Service) ListForCounselorDay(ctx context.Context, counselorID uuid.UUID, date string) ([]Appointment, error) {
	d, err := ParseDate(date)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.GetCounselorByID(ctx, counselorID); err != nil {
		return nil, err
	}
	appts, err := s.repo.ListAppointmentsByCounselorDate(ctx, counselorID, d)
	if err != nil {
		return nil, fmt.Errorf("list appointments by counselor: %w", err)
	}
	return appts, nil
}

type ReferralInput struct {
	StudentID   uuid.UUID
	CounselorID uuid.UUID
	Reason      string
}

// Refer records a walk-in referral: an appointment already attended at the
// current local time. It does not touch the calendar.
func (s *Service) Refer(ctx context.Context, in ReferralInput) (*Appointment, error) {
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		return nil, validationError("reason is required")
	}
	if _, err := s.repo.GetStudentByID(ctx, in.StudentID); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetCounselorByID(ctx, in.CounselorID); err != nil {
		return nil, err
	}

	now := s.now().In(s.policy.Location)
	appt, err := s.repo.CreateAppointment(ctx, NewAppointment{
		StudentID:   in.StudentID,
		CounselorID: in.CounselorID,
		Reason:      reason,
		Date:        s.policy.Today(now),
		Time:        now.Format("15:04"),
		Modality:    referralModality,
		Status:      StatusAttended,
	})
	if err != nil {
		return nil, fmt.Errorf("create referral: %w", err)
	}
	s.logEvent(ctx, appt.ID, EventAppointmentReferred, map[string]any{})
	return appt, nil
}

// AssignScheduleBlock adds a weekly availability window for a counselor.
func (s *Service) AssignScheduleBlock(ctx context.Context, counselorID uuid.UUID, day, start, end string) (*ScheduleBlock, error) {
	weekday, err := ParseWeekday(day)
	if err != nil {
		return nil, err
	}
	sh, sm, err := ParseTimeOfDay(start)
	if err != nil {
		return nil, err
	}
	eh, em, err := ParseTimeOfDay(end)
	if err != nil {
		return nil, err
	}
	if eh*60+em <= sh*60+sm {
		return nil, validationError("end time must be after start time")
	}
	if _, err := s.repo.GetCounselorByID(ctx, counselorID); err != nil {
		return nil, err
	}
	block, err := s.repo.CreateScheduleBlock(ctx, ScheduleBlock{
		CounselorID: counselorID,
		Weekday:     weekday,
		StartTime:   start,
		EndTime:     end,
	})
	if err != nil {
		return nil, fmt.Errorf("create schedule block: %w", err)
	}
	return block, nil
}

// attachCalendarEvent creates the calendar event for a committed appointment.
// Failures are recorded and the appointment is returned unchanged.
func (s *Service) attachCalendarEvent(ctx context.Context, appt *Appointment, student *Student, counselor *Counselor, summary string) *Appointment {
	cred, ok := counselor.Credential()
	if !ok {
		s.logEvent(ctx, appt.ID, EventCalendarNoCredential, map[string]any{"counselor_id": counselor.ID.String()})
		return appt
	}
	start, err := s.policy.SlotStart(appt.Date, appt.Time)
	if err != nil {
		s.logger.Error("stored appointment has malformed time", zap.Stringer("appointment_id", appt.ID), zap.Error(err))
		return appt
	}

	created, ok := s.gateway.CreateEvent(ctx, cred, calendar.EventRequest{
		Summary:     summary,
		Description: appt.Reason,
		Start:       start,
		End:         start.Add(s.policy.SlotDuration),
		Attendees:   []string{counselor.Email, student.Email},
		Virtual:     appt.Modality == ModalityVirtual,
	})
	if !ok {
		s.logEvent(ctx, appt.ID, EventCalendarEventFailed, map[string]any{})
		return appt
	}

	var link *string
	if appt.Modality == ModalityVirtual {
		link = created.MeetLink
	}
	updated, err := s.repo.SetCalendarEvent(ctx, appt.ID, &created.EventID, link)
	if err != nil {
		s.logger.Error("failed to store calendar event id",
			zap.Stringer("appointment_id", appt.ID),
			zap.String("event_id", created.EventID),
			zap.Error(err))
		return appt
	}
	s.logEvent(ctx, appt.ID, EventCalendarEventCreated, map[string]any{"event_id": created.EventID})
	return updated
}

// releaseCalendarEvent deletes the appointment's calendar event if it has one
// and clears the stored id and link on success.
func (s *Service) releaseCalendarEvent(ctx context.Context, appt *Appointment) *Appointment {
	if appt.CalendarEventID == nil {
		return appt
	}
	eventID := *appt.CalendarEventID

	counselor, err := s.repo.GetCounselorByID(ctx, appt.CounselorID)
	if err != nil {
		s.logger.Error("failed to load counselor for calendar cleanup", zap.Stringer("appointment_id", appt.ID), zap.Error(err))
		return appt
	}
	cred, ok := counselor.Credential()
	if !ok {
		s.logEvent(ctx, appt.ID, EventCalendarNoCredential, map[string]any{"event_id": eventID})
		return appt
	}
	if !s.gateway.DeleteEvent(ctx, cred, eventID) {
		s.logEvent(ctx, appt.ID, EventCalendarDeleteFailed, map[string]any{"event_id": eventID})
		return appt
	}

	s.logEvent(ctx, appt.ID, EventCalendarEventDeleted, map[string]any{"event_id": eventID})
	updated, err := s.repo.SetCalendarEvent(ctx, appt.ID, nil, nil)
	if err != nil {
		s.logger.Error("failed to clear calendar event id", zap.Stringer("appointment_id", appt.ID), zap.Error(err))
		return appt
	}
	return updated
}

func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Warn("failed to marshal event payload", zap.String("event_type", eventType), zap.Error(err))
		data = nil
	}

	apptID := appointmentID

	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     s.now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.logger.Warn("failed to insert event log",
			zap.String("event_type", eventType),
			zap.Stringer("appointment_id", appointmentID),
			zap.Error(err))
	}
}
