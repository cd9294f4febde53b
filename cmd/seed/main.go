package main

import (
	"context"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/hackgods/counseling-appointments/internal/app"
	"github.com/hackgods/counseling-appointments/internal/config"
	"github.com/hackgods/counseling-appointments/internal/db"
)

var sites = []string{"Lima Centro", "San Isidro", "Arequipa", "Trujillo"}

// weekly office hours given to every seeded counselor, Monday to Friday
var officeHours = [][2]string{
	{"09:00", "13:00"},
	{"14:00", "17:00"},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("config load error: " + err.Error())
	}

	logger := app.NewLogger(cfg.Env).Named("seed")
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN, cfg.PostgresMaxConn)
	if err != nil {
		logger.Fatal("connect postgres", zap.Error(err))
	}
	defer pool.Close()

	migrator, err := db.NewMigrator(pool, logger)
	if err != nil {
		logger.Fatal("migrator init", zap.Error(err))
	}
	if err := migrator.Up(ctx); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}
	_ = migrator.Close()

	gofakeit.Seed(time.Now().UnixNano())

	counselors, err := seedCounselors(ctx, pool, logger, 12)
	if err != nil {
		logger.Fatal("seed counselors", zap.Error(err))
	}
	if err := seedScheduleBlocks(ctx, pool, counselors); err != nil {
		logger.Fatal("seed schedule blocks", zap.Error(err))
	}
	logger.Info("schedule blocks seeded", zap.Int("counselors", len(counselors)))

	if err := seedStudents(ctx, pool, logger, 2000); err != nil {
		logger.Fatal("seed students", zap.Error(err))
	}

	logger.Info("seed complete")
}

func seedCounselors(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger, count int) ([]uuid.UUID, error) {
	logger.Info("seeding counselors", zap.Int("count", count))

	ids := make([]uuid.UUID, 0, count)
	err := pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		for i := 0; i < count; i++ {
			id := uuid.New()
			tag, err := tx.Exec(ctx, `
				INSERT INTO counselors (id, name, email, phone, site)
				VALUES ($1, $2, $3, $4, $5)
				ON CONFLICT DO NOTHING
			`, id, gofakeit.Name(), gofakeit.Email(), gofakeit.Phone(), sites[i%len(sites)])
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 1 {
				ids = append(ids, id)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func seedScheduleBlocks(ctx context.Context, pool *pgxpool.Pool, counselors []uuid.UUID) error {
	batch := &pgx.Batch{}
	for _, id := range counselors {
		for day := time.Monday; day <= time.Friday; day++ {
			for _, h := range officeHours {
				batch.Queue(`
					INSERT INTO schedule_blocks (counselor_id, weekday, start_time, end_time)
					VALUES ($1, $2, $3, $4)
				`, id, int16(day), h[0], h[1])
			}
		}
	}
	return pool.SendBatch(ctx, batch).Close()
}

func seedStudents(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger, count int) error {
	logger.Info("seeding students", zap.Int("count", count))

	const batchSize = 500

	for offset := 0; offset < count; offset += batchSize {
		end := min(offset+batchSize, count)

		batch := &pgx.Batch{}
		for i := offset; i < end; i++ {
			batch.Queue(`
				INSERT INTO students (name, email, code, site)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT DO NOTHING
			`, gofakeit.Name(), gofakeit.Email(), studentCode(i), gofakeit.RandomString(sites))
		}
		if err := pool.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("students %d-%d: %w", offset, end, err)
		}

		logger.Info("students seeded", zap.Int("done", end), zap.Int("total", count))
	}
	return nil
}

func studentCode(i int) string {
	return fmt.Sprintf("U%d%06d", time.Now().Year(), i)
}
