package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/counseling-appointments/internal/appointment"
	"github.com/hackgods/counseling-appointments/internal/availability"
)

type fakeBooking struct {
	policy    appointment.Policy
	bookFn    func(in appointment.BookInput) (*appointment.Appointment, error)
	cancelFn  func(id uuid.UUID) (*appointment.Appointment, error)
	noShowFn  func(id uuid.UUID, observations *string) (*appointment.Appointment, *appointment.Outcome, error)
	pendingFn func(id uuid.UUID) (*appointment.Appointment, error)
	getFn     func(id uuid.UUID) (*appointment.AppointmentDetail, error)
}

func (f *fakeBooking) Policy() appointment.Policy { return f.policy }

func (f *fakeBooking) Book(_ context.Context, in appointment.BookInput) (*appointment.Appointment, error) {
	return f.bookFn(in)
}

func (f *fakeBooking) Cancel(_ context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	return f.cancelFn(id)
}

func (f *fakeBooking) MarkRescheduled(context.Context, uuid.UUID) (*appointment.Appointment, error) {
	panic("not used")
}

func (f *fakeBooking) RevertReschedule(context.Context, uuid.UUID) (*appointment.Appointment, error) {
	panic("not used")
}

func (f *fakeBooking) Attend(context.Context, uuid.UUID, appointment.AttendInput) (*appointment.Appointment, *appointment.Outcome, error) {
	panic("not used")
}

func (f *fakeBooking) NoShow(_ context.Context, id uuid.UUID, observations *string) (*appointment.Appointment, *appointment.Outcome, error) {
	return f.noShowFn(id, observations)
}

func (f *fakeBooking) RescheduleFollowUp(context.Context, uuid.UUID, appointment.FollowUpChange) (*appointment.Appointment, error) {
	panic("not used")
}

func (f *fakeBooking) FollowUpOf(context.Context, uuid.UUID) (*appointment.Appointment, error) {
	panic("not used")
}

func (f *fakeBooking) Get(_ context.Context, id uuid.UUID) (*appointment.AppointmentDetail, error) {
	return f.getFn(id)
}

func (f *fakeBooking) PendingForStudent(_ context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	return f.pendingFn(id)
}

func (f *fakeBooking) HistoryForStudent(context.Context, uuid.UUID) ([]appointment.Appointment, error) {
	panic("not used")
}

func (f *fakeBooking) ListForCounselorDay(context.Context, uuid.UUID, string) ([]appointment.Appointment, error) {
	panic("not used")
}

func (f *fakeBooking) Refer(context.Context, appointment.ReferralInput) (*appointment.Appointment, error) {
	panic("not used")
}

func (f *fakeBooking) AssignScheduleBlock(context.Context, uuid.UUID, string, string, string) (*appointment.ScheduleBlock, error) {
	panic("not used")
}

type fakeAvailability struct {
	resolveFn func(q availability.Query) ([]availability.Slot, error)
}

func (f *fakeAvailability) Resolve(_ context.Context, q availability.Query) ([]availability.Slot, error) {
	return f.resolveFn(q)
}

func (f *fakeAvailability) CounselorDay(context.Context, uuid.UUID, time.Time) ([]availability.Slot, error) {
	panic("not used")
}

func newTestRouter(t *testing.T, booking *fakeBooking, slots *fakeAvailability) http.Handler {
	t.Helper()
	loc, err := time.LoadLocation("America/Lima")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	booking.policy = appointment.DefaultPolicy(loc)
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, loc)
	return NewRouter(RouterConfig{
		Booking:      booking,
		Availability: slots,
		Logger:       zap.NewNop(),
		Now:          func() time.Time { return now },
	})
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var decoded map[string]any
	if strings.HasPrefix(strings.TrimSpace(rec.Body.String()), "{") {
		if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return rec, decoded
}

func sampleAppointment() *appointment.Appointment {
	return &appointment.Appointment{
		ID:          uuid.New(),
		StudentID:   uuid.New(),
		CounselorID: uuid.New(),
		Reason:      "ansiedad",
		Date:        time.Date(2025, 6, 4, 0, 0, 0, 0, time.UTC),
		Time:        "10:00",
		Modality:    appointment.ModalityVirtual,
		Status:      appointment.StatusPending,
	}
}

func TestBookAppointment(t *testing.T) {
	appt := sampleAppointment()
	var got appointment.BookInput
	booking := &fakeBooking{bookFn: func(in appointment.BookInput) (*appointment.Appointment, error) {
		got = in
		return appt, nil
	}}
	h := newTestRouter(t, booking, &fakeAvailability{})

	body := fmt.Sprintf(`{"student_id":%q,"counselor_id":%q,"reason":"ansiedad","date":"2025-06-04","time":"10:00","modality":"virtual"}`,
		appt.StudentID, appt.CounselorID)
	rec, resp := do(t, h, http.MethodPost, "/appointments", body)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if resp["date"] != "2025-06-04" || resp["status"] != "pendiente" || resp["id"] != appt.ID.String() {
		t.Fatalf("unexpected response: %v", resp)
	}
	if got.StudentID != appt.StudentID || got.Date != "2025-06-04" || got.PriorAppointmentID != nil {
		t.Fatalf("unexpected input passed to service: %+v", got)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected X-Request-ID header")
	}
}

func TestBookAppointment_BadIDs(t *testing.T) {
	h := newTestRouter(t, &fakeBooking{}, &fakeAvailability{})

	rec, resp := do(t, h, http.MethodPost, "/appointments", `{"student_id":"nope","counselor_id":"nope"}`)
	if rec.Code != http.StatusBadRequest || resp["error"] != "invalid_student_id" {
		t.Fatalf("status = %d, resp = %v", rec.Code, resp)
	}

	rec, resp = do(t, h, http.MethodPost, "/appointments", `{`)
	if rec.Code != http.StatusBadRequest || resp["error"] != "invalid_request_body" {
		t.Fatalf("status = %d, resp = %v", rec.Code, resp)
	}

	body := fmt.Sprintf(`{"student_id":%q,"counselor_id":%q,"prior_appointment_id":"x"}`, uuid.New(), uuid.New())
	rec, resp = do(t, h, http.MethodPost, "/appointments", body)
	if rec.Code != http.StatusBadRequest || resp["error"] != "invalid_prior_appointment_id" {
		t.Fatalf("status = %d, resp = %v", rec.Code, resp)
	}
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", appointment.NewValidationError("invalid time"), http.StatusBadRequest, "invalid_request"},
		{"lead time", fmt.Errorf("%w: earliest is Wednesday", appointment.ErrLeadTimeNotMet), http.StatusBadRequest, "lead_time_not_met"},
		{"lookahead", appointment.ErrBeyondLookahead, http.StatusBadRequest, "beyond_lookahead"},
		{"student missing", appointment.ErrStudentNotFound, http.StatusNotFound, "student_not_found"},
		{"counselor missing", appointment.ErrCounselorNotFound, http.StatusNotFound, "counselor_not_found"},
		{"slot taken", appointment.ErrSlotTaken, http.StatusConflict, "slot_already_reserved"},
		{"pending exists", appointment.ErrPendingAppointmentExists, http.StatusConflict, "pending_appointment_exists"},
		{"lock busy", appointment.ErrSlotBeingBooked, http.StatusConflict, "slot_being_booked"},
		{"internal", errors.New("pq: connection refused"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			booking := &fakeBooking{bookFn: func(appointment.BookInput) (*appointment.Appointment, error) {
				return nil, tc.err
			}}
			h := newTestRouter(t, booking, &fakeAvailability{})
			body := fmt.Sprintf(`{"student_id":%q,"counselor_id":%q}`, uuid.New(), uuid.New())

			rec, resp := do(t, h, http.MethodPost, "/appointments", body)
			if rec.Code != tc.status || resp["error"] != tc.code {
				t.Fatalf("status = %d, resp = %v; want %d %s", rec.Code, resp, tc.status, tc.code)
			}
			if tc.status == http.StatusInternalServerError && strings.Contains(rec.Body.String(), "connection refused") {
				t.Fatalf("internal error detail leaked: %s", rec.Body.String())
			}
		})
	}
}

func TestListSlots(t *testing.T) {
	var got availability.Query
	slots := &fakeAvailability{resolveFn: func(q availability.Query) ([]availability.Slot, error) {
		got = q
		return []availability.Slot{{CounselorID: uuid.New(), CounselorName: "Psicól. Rosa", SourceID: "m1", Label: "09:00"}}, nil
	}}
	h := newTestRouter(t, &fakeBooking{}, slots)

	rec, _ := do(t, h, http.MethodGet, "/slots?site=lima&date=2025-06-04", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var list []SlotResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 1 || list[0].Label != "09:00" {
		t.Fatalf("unexpected slots: %+v", list)
	}
	if got.Site != "lima" || got.Date.Format(time.DateOnly) != "2025-06-04" {
		t.Fatalf("unexpected query: %+v", got)
	}
}

func TestListSlots_DateChecks(t *testing.T) {
	h := newTestRouter(t, &fakeBooking{}, &fakeAvailability{})

	cases := []struct {
		query string
		code  string
	}{
		{"", "missing_date"},
		{"?date=04-06-2025", "invalid_request"},
		{"?date=2025-06-01", "date_in_past"},
		{"?date=2025-06-18", "beyond_lookahead"},
	}
	for _, tc := range cases {
		rec, resp := do(t, h, http.MethodGet, "/slots"+tc.query, "")
		if rec.Code != http.StatusBadRequest || resp["error"] != tc.code {
			t.Fatalf("%s: status = %d, resp = %v; want 400 %s", tc.query, rec.Code, resp, tc.code)
		}
	}
}

func TestCancelAndNotFound(t *testing.T) {
	appt := sampleAppointment()
	booking := &fakeBooking{cancelFn: func(id uuid.UUID) (*appointment.Appointment, error) {
		if id != appt.ID {
			return nil, appointment.ErrAppointmentNotFound
		}
		cancelled := *appt
		cancelled.Status = appointment.StatusCancelled
		return &cancelled, nil
	}}
	h := newTestRouter(t, booking, &fakeAvailability{})

	rec, resp := do(t, h, http.MethodPut, "/appointments/"+appt.ID.String()+"/cancel", "")
	if rec.Code != http.StatusOK || resp["status"] != "cancelada" {
		t.Fatalf("status = %d, resp = %v", rec.Code, resp)
	}

	rec, resp = do(t, h, http.MethodPut, "/appointments/"+uuid.NewString()+"/cancel", "")
	if rec.Code != http.StatusNotFound || resp["error"] != "appointment_not_found" {
		t.Fatalf("status = %d, resp = %v", rec.Code, resp)
	}

	rec, resp = do(t, h, http.MethodPut, "/appointments/abc/cancel", "")
	if rec.Code != http.StatusBadRequest || resp["error"] != "invalid_appointment_id" {
		t.Fatalf("status = %d, resp = %v", rec.Code, resp)
	}
}

func TestNoShow_OptionalBody(t *testing.T) {
	appt := sampleAppointment()
	var gotObs *string
	booking := &fakeBooking{noShowFn: func(_ uuid.UUID, obs *string) (*appointment.Appointment, *appointment.Outcome, error) {
		gotObs = obs
		missed := *appt
		missed.Status = appointment.StatusNoShow
		return &missed, &appointment.Outcome{Observations: obs}, nil
	}}
	h := newTestRouter(t, booking, &fakeAvailability{})

	rec, _ := do(t, h, http.MethodPut, "/appointments/"+appt.ID.String()+"/no-show", "")
	if rec.Code != http.StatusOK || gotObs != nil {
		t.Fatalf("status = %d, observations = %v", rec.Code, gotObs)
	}

	rec, resp := do(t, h, http.MethodPut, "/appointments/"+appt.ID.String()+"/no-show", `{"observations":"no contestó"}`)
	if rec.Code != http.StatusOK || gotObs == nil || *gotObs != "no contestó" {
		t.Fatalf("status = %d, observations = %v", rec.Code, gotObs)
	}
	inner, _ := resp["appointment"].(map[string]any)
	if inner["status"] != "no_asistio" {
		t.Fatalf("unexpected response: %v", resp)
	}
}

func TestStudentPending(t *testing.T) {
	booking := &fakeBooking{pendingFn: func(uuid.UUID) (*appointment.Appointment, error) { return nil, nil }}
	h := newTestRouter(t, booking, &fakeAvailability{})

	rec, resp := do(t, h, http.MethodGet, "/students/"+uuid.NewString()+"/pending", "")
	if rec.Code != http.StatusOK || resp["pending"] != false {
		t.Fatalf("status = %d, resp = %v", rec.Code, resp)
	}
	if _, ok := resp["appointment"]; ok {
		t.Fatalf("appointment must be omitted when nothing is pending")
	}
}

func TestGetAppointmentDetail(t *testing.T) {
	appt := sampleAppointment()
	booking := &fakeBooking{getFn: func(uuid.UUID) (*appointment.AppointmentDetail, error) {
		return &appointment.AppointmentDetail{
			Appointment: *appt,
			Student:     &appointment.Student{ID: appt.StudentID, Name: "Ana", Email: "ana@example.edu"},
			Counselor:   &appointment.Counselor{ID: appt.CounselorID, Name: "Rosa", Email: "rosa@example.edu"},
		}, nil
	}}
	h := newTestRouter(t, booking, &fakeAvailability{})

	rec, resp := do(t, h, http.MethodGet, "/appointments/"+appt.ID.String(), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	counselor, _ := resp["counselor"].(map[string]any)
	if counselor["name"] != "Psicól. Rosa" || resp["time"] != "10:00" {
		t.Fatalf("unexpected detail: %v", resp)
	}
}

func TestLiveness(t *testing.T) {
	h := newTestRouter(t, &fakeBooking{}, &fakeAvailability{})
	rec, resp := do(t, h, http.MethodGet, "/health/live", "")
	if rec.Code != http.StatusOK || resp["status"] != "ok" {
		t.Fatalf("status = %d, resp = %v", rec.Code, resp)
	}
}
