package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hackgods/counseling-appointments/internal/appointment"
	"github.com/hackgods/counseling-appointments/internal/availability"
)

// BookingService is implemented by *appointment.Service.
type BookingService interface {
	Policy() appointment.Policy
	Book(ctx context.Context, in appointment.BookInput) (*appointment.Appointment, error)
	Cancel(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error)
	MarkRescheduled(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error)
	RevertReschedule(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error)
	Attend(ctx context.Context, id uuid.UUID, in appointment.AttendInput) (*appointment.Appointment, *appointment.Outcome, error)
	NoShow(ctx context.Context, id uuid.UUID, observations *string) (*appointment.Appointment, *appointment.Outcome, error)
	RescheduleFollowUp(ctx context.Context, id uuid.UUID, change appointment.FollowUpChange) (*appointment.Appointment, error)
	FollowUpOf(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error)
	Get(ctx context.Context, id uuid.UUID) (*appointment.AppointmentDetail, error)
	PendingForStudent(ctx context.Context, studentID uuid.UUID) (*appointment.Appointment, error)
	HistoryForStudent(ctx context.Context, studentID uuid.UUID) ([]appointment.Appointment, error)
	ListForCounselorDay(ctx context.Context, counselorID uuid.UUID, date string) ([]appointment.Appointment, error)
	Refer(ctx context.Context, in appointment.ReferralInput) (*appointment.Appointment, error)
	AssignScheduleBlock(ctx context.Context, counselorID uuid.UUID, day, start, end string) (*appointment.ScheduleBlock, error)
}

// AvailabilityService is implemented by *availability.Resolver.
type AvailabilityService interface {
	Resolve(ctx context.Context, q availability.Query) ([]availability.Slot, error)
	CounselorDay(ctx context.Context, counselorID uuid.UUID, date time.Time) ([]availability.Slot, error)
}

type RouterConfig struct {
	Booking      BookingService
	Availability AvailabilityService
	PgPool       *pgxpool.Pool
	Redis        *redis.Client // nil when the slot lock is disabled
	Logger       *zap.Logger
	Env          string
	Version      string
	Now          func() time.Time
}

func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	h := &handlers{
		booking: cfg.Booking,
		slots:   cfg.Availability,
		logger:  logger,
		now:     now,
	}

	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(logger))
	r.Use(RecoverMiddleware(logger))

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	r.Get("/slots", h.listSlots)

	r.Route("/counselors/{id}", func(r chi.Router) {
		r.Get("/free-hours", h.counselorFreeHours)
		r.Get("/appointments", h.counselorAppointments)
		r.Post("/schedule-blocks", h.assignScheduleBlock)
	})

	r.Post("/appointments", h.bookAppointment)
	r.Route("/appointments/{id}", func(r chi.Router) {
		r.Get("/", h.getAppointment)
		r.Put("/cancel", h.transitionHandler(h.cancelAppointment))
		r.Put("/reschedule", h.transitionHandler(h.markRescheduled))
		r.Put("/reschedule/revert", h.transitionHandler(h.revertReschedule))
		r.Put("/attend", h.attend)
		r.Put("/no-show", h.noShow)
		r.Get("/follow-up", h.followUp)
		r.Put("/follow-up/reschedule", h.rescheduleFollowUp)
	})

	r.Route("/students/{id}", func(r chi.Router) {
		r.Get("/pending", h.studentPending)
		r.Get("/appointments", h.studentHistory)
	})

	r.Post("/referrals", h.refer)

	return r
}
