package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/hackgods/counseling-appointments/internal/api"
	"github.com/hackgods/counseling-appointments/internal/app"
	"github.com/hackgods/counseling-appointments/internal/appointment"
	"github.com/hackgods/counseling-appointments/internal/config"
	"github.com/hackgods/counseling-appointments/internal/db"
)

// SimConfig drives a contention run: every round, Contenders students race
// to book the same free slot and at most one may win.
type SimConfig struct {
	APIBaseURL string
	Rounds     int
	Contenders int
	Site       string
	Date       string
	Modality   string
	Cleanup    bool
}

type Simulator struct {
	config   SimConfig
	students []uuid.UUID
	client   *http.Client
	logger   *zap.Logger

	booking opMetrics
	cancel  opMetrics
	slots   opMetrics

	mu             sync.Mutex
	doubleBookings int
	roundsRun      int
}

func main() {
	baseCfg, err := config.Load()
	if err != nil {
		panic("config load error: " + err.Error())
	}

	logger := app.NewLogger(baseCfg.Env).Named("simulate")
	defer func() { _ = logger.Sync() }()

	cfg := loadConfig(baseCfg)
	if err := validateConfig(cfg); err != nil {
		logger.Fatal("invalid config", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pgPool, err := db.ConnectPostgres(ctx, baseCfg.PostgresDSN, baseCfg.PostgresMaxConn)
	if err != nil {
		logger.Fatal("connect postgres", zap.Error(err))
	}
	defer pgPool.Close()

	students, err := loadStudents(ctx, pgPool, cfg.Contenders)
	if err != nil {
		logger.Fatal("load students", zap.Error(err))
	}

	logger.Info("simulation configured",
		zap.Int("rounds", cfg.Rounds),
		zap.Int("contenders", len(students)),
		zap.String("date", cfg.Date),
		zap.String("site", cfg.Site),
	)

	sim := &Simulator{
		config:   cfg,
		students: students,
		client:   &http.Client{Timeout: 10 * time.Second},
		logger:   logger,
	}

	sim.Run(context.Background())
	sim.PrintReport()
}

func loadConfig(base config.Config) SimConfig {
	cfg := SimConfig{
		APIBaseURL: strings.TrimRight(getEnv("SIM_API_BASE_URL", "http://localhost:8080"), "/"),
		Rounds:     getInt("SIM_ROUNDS", 5),
		Contenders: getInt("SIM_CONTENDERS", 20),
		Site:       os.Getenv("SIM_SITE"),
		Date:       os.Getenv("SIM_DATE"),
		Modality:   getEnv("SIM_MODALITY", string(appointment.ModalityVirtual)),
		Cleanup:    getEnv("SIM_CLEANUP", "true") == "true",
	}
	if cfg.Date == "" {
		policy := appointment.Policy{
			Location:         base.Location,
			SlotDuration:     base.SlotDuration,
			LeadTime:         base.LeadTime,
			FollowUpLeadTime: base.FollowUpLeadTime,
			LookaheadDays:    base.LookaheadDays,
		}
		// the day after the earliest bookable one clears the lead time for every slot
		cfg.Date = policy.EarliestDay(time.Now(), false).AddDate(0, 0, 1).Format(time.DateOnly)
	}
	return cfg
}

func validateConfig(cfg SimConfig) error {
	if cfg.Rounds <= 0 {
		return fmt.Errorf("SIM_ROUNDS must be > 0")
	}
	if cfg.Contenders < 2 {
		return fmt.Errorf("SIM_CONTENDERS must be >= 2")
	}
	if _, err := time.Parse(time.DateOnly, cfg.Date); err != nil {
		return fmt.Errorf("SIM_DATE must be YYYY-MM-DD: %w", err)
	}
	return nil
}

// loadStudents picks students with no pending appointment so the
// one-pending-per-student rule does not mask slot conflicts.
func loadStudents(ctx context.Context, pool *pgxpool.Pool, limit int) ([]uuid.UUID, error) {
	rows, err := pool.Query(ctx, `
		SELECT s.id FROM students s
		WHERE NOT EXISTS (
			SELECT 1 FROM appointments a
			WHERE a.student_id = s.id AND a.status = 'pendiente'
		)
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, err
	}
	if len(ids) < 2 {
		return nil, fmt.Errorf("need at least 2 students without a pending appointment, found %d", len(ids))
	}
	return ids, nil
}

func (s *Simulator) Run(ctx context.Context) {
	slots, err := s.fetchSlots(ctx)
	if err != nil {
		s.logger.Error("fetch slots", zap.Error(err))
		return
	}
	if len(slots) == 0 {
		s.logger.Warn("no free slots for the simulated date", zap.String("date", s.config.Date))
		return
	}

	for round := 0; round < s.config.Rounds; round++ {
		slot := slots[round%len(slots)]
		s.runRound(ctx, round, slot)
	}
	s.logger.Info("simulation complete")
}

func (s *Simulator) fetchSlots(ctx context.Context) ([]api.SlotResponse, error) {
	q := url.Values{"date": {s.config.Date}}
	if s.config.Site != "" {
		q.Set("site", s.config.Site)
	}

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.config.APIBaseURL+"/slots?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		s.slots.record(latency, outcomeError, "")
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		code := errorCode(resp)
		s.slots.record(latency, outcomeError, code)
		return nil, fmt.Errorf("list slots: status %d (%s)", resp.StatusCode, code)
	}
	s.slots.record(latency, outcomeSuccess, "")

	var slots []api.SlotResponse
	if err := json.NewDecoder(resp.Body).Decode(&slots); err != nil {
		return nil, fmt.Errorf("decode slots: %w", err)
	}
	return slots, nil
}

func (s *Simulator) runRound(ctx context.Context, round int, slot api.SlotResponse) {
	body := api.BookAppointmentRequest{
		CounselorID: slot.CounselorID.String(),
		Reason:      "simulated contention",
		Date:        s.config.Date,
		Time:        slot.Label,
		Modality:    s.config.Modality,
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []uuid.UUID
	)
	gate := make(chan struct{})

	for _, student := range s.students {
		wg.Add(1)
		go func(student uuid.UUID) {
			defer wg.Done()
			req := body
			req.StudentID = student.String()
			<-gate
			if id, ok := s.book(ctx, req); ok {
				mu.Lock()
				winners = append(winners, id)
				mu.Unlock()
			}
		}(student)
	}

	close(gate)
	wg.Wait()

	s.mu.Lock()
	s.roundsRun++
	if len(winners) > 1 {
		s.doubleBookings++
	}
	s.mu.Unlock()

	fields := []zap.Field{
		zap.Int("round", round),
		zap.String("counselor", slot.CounselorName),
		zap.String("time", slot.Label),
		zap.Int("winners", len(winners)),
	}
	if len(winners) > 1 {
		s.logger.Error("slot booked more than once", fields...)
	} else {
		s.logger.Info("round finished", fields...)
	}

	if s.config.Cleanup {
		for _, id := range winners {
			s.cancelAppointment(ctx, id)
		}
	}
}

func (s *Simulator) book(ctx context.Context, body api.BookAppointmentRequest) (uuid.UUID, bool) {
	payload, _ := json.Marshal(body)

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.APIBaseURL+"/appointments", bytes.NewReader(payload))
	if err != nil {
		s.booking.record(0, outcomeError, "")
		return uuid.Nil, false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		s.booking.record(latency, outcomeError, "")
		return uuid.Nil, false
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated:
		var created api.AppointmentResponse
		if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
			s.booking.record(latency, outcomeError, "bad_body")
			return uuid.Nil, false
		}
		s.booking.record(latency, outcomeSuccess, "")
		return created.ID, true
	case http.StatusConflict:
		s.booking.record(latency, outcomeConflict, errorCode(resp))
	default:
		s.booking.record(latency, outcomeError, errorCode(resp))
	}
	return uuid.Nil, false
}

func (s *Simulator) cancelAppointment(ctx context.Context, id uuid.UUID) {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodPut,
		fmt.Sprintf("%s/appointments/%s/cancel", s.config.APIBaseURL, id), nil)
	if err != nil {
		return
	}
	resp, err := s.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		s.cancel.record(latency, outcomeError, "")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		s.cancel.record(latency, outcomeSuccess, "")
		return
	}
	s.cancel.record(latency, outcomeError, errorCode(resp))
}

func errorCode(resp *http.Response) string {
	var e api.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&e); err != nil || e.Error == "" {
		return strconv.Itoa(resp.StatusCode)
	}
	return e.Error
}

func (s *Simulator) PrintReport() {
	line := strings.Repeat("=", 80)
	fmt.Println("\n" + line)
	fmt.Println("CONTENTION REPORT")
	fmt.Println(line)
	fmt.Printf("Date: %s\n", s.config.Date)
	fmt.Printf("Rounds: %d\n", s.roundsRun)
	fmt.Printf("Contenders per round: %d\n", len(s.students))
	fmt.Printf("Rounds with more than one winner: %d\n", s.doubleBookings)
	fmt.Println()

	for _, r := range []struct {
		name string
		m    *opMetrics
	}{
		{"List slots", &s.slots},
		{"Booking", &s.booking},
		{"Cancel", &s.cancel},
	} {
		if out := r.m.report(r.name); out != "" {
			fmt.Println(out)
		}
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
