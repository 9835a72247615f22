package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/vadimbarashkov/shortlink/internal/config"
	"github.com/vadimbarashkov/shortlink/internal/database"
	pgpool "github.com/vadimbarashkov/shortlink/pkg/postgres"
)

const migrationsPath = "file://../../../migrations"

func setupPostgres(t testing.TB) config.Postgres {
	t.Helper()

	ctx := context.Background()

	pgUser := "test"
	pgPassword := "test"
	pgDB := "shortlink"

	pgCont, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image: "postgres:16-alpine",
			Env: map[string]string{
				"POSTGRES_USER":     pgUser,
				"POSTGRES_PASSWORD": pgPassword,
				"POSTGRES_DB":       pgDB,
			},
			ExposedPorts: []string{"5432/tcp"},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := pgCont.Terminate(ctx); err != nil {
			t.Fatalf("Failed to terminate postgres container: %v", err)
		}
	})

	pgHost, err := pgCont.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	pgPort, err := pgCont.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	return config.Postgres{
		User:     pgUser,
		Password: pgPassword,
		Host:     pgHost,
		Port:     pgPort.Int(),
		DB:       pgDB,
		SSLMode:  "disable",
	}
}

type RepositoryIntegrationSuite struct {
	suite.Suite
	db        *sqlx.DB
	urlRepo   *URLRepository
	clickRepo *ClickRepository
}

func (s *RepositoryIntegrationSuite) SetupSuite() {
	if testing.Short() {
		s.T().Skip("skipping integration test in short mode")
	}

	cfg := setupPostgres(s.T())

	if err := pgpool.RunMigrations(migrationsPath, cfg.DSN()); err != nil {
		s.T().Fatalf("Failed to run migrations: %v", err)
	}

	db, err := pgpool.New(context.Background(), cfg.DSN())
	if err != nil {
		s.T().Fatalf("Failed to connect to database: %v", err)
	}

	s.db = db
	s.urlRepo = NewURLRepository(db)
	s.clickRepo = NewClickRepository(db)
}

func (s *RepositoryIntegrationSuite) TearDownSuite() {
	if s.db != nil {
		s.db.Close()
	}
}

func (s *RepositoryIntegrationSuite) SetupTest() {
	_, err := s.db.Exec(`TRUNCATE urls, clicks`)
	s.Require().NoError(err)
}

func (s *RepositoryIntegrationSuite) TestCreateAndResolve() {
	ctx := context.Background()

	url, err := s.urlRepo.Create(ctx, "aZ3kT9", "https://example.com")
	s.Require().NoError(err)
	s.Equal("aZ3kT9", url.ShortCode)
	s.False(url.CreatedAt.IsZero())

	got, err := s.urlRepo.GetByShortCode(ctx, "aZ3kT9")
	s.Require().NoError(err)
	s.Equal("https://example.com", got.OriginalURL)

	byURL, err := s.urlRepo.GetByOriginalURL(ctx, "https://example.com")
	s.Require().NoError(err)
	s.Equal("aZ3kT9", byURL.ShortCode)

	_, err = s.urlRepo.GetByShortCode(ctx, "bogus1")
	s.ErrorIs(err, database.ErrURLNotFound)
}

func (s *RepositoryIntegrationSuite) TestCreate_CollisionLeavesNoRow() {
	ctx := context.Background()

	_, err := s.urlRepo.Create(ctx, "aZ3kT9", "https://example.com")
	s.Require().NoError(err)

	_, err = s.urlRepo.Create(ctx, "aZ3kT9", "https://example.org")
	s.ErrorIs(err, database.ErrShortCodeExists)

	urls, err := s.urlRepo.List(ctx)
	s.Require().NoError(err)
	s.Len(urls, 1)
	s.Equal("https://example.com", urls[0].OriginalURL)
}

func (s *RepositoryIntegrationSuite) TestConcurrentCreate_SingleWinner() {
	ctx := context.Background()

	const writers = 8
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		won    int
		failed int
	)

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			_, err := s.urlRepo.Create(ctx, "Samecd", fmt.Sprintf("https://example.com/%d", i))

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				won++
			case errors.Is(err, database.ErrShortCodeExists):
				failed++
			}
		}(i)
	}
	wg.Wait()

	s.Equal(1, won)
	s.Equal(writers-1, failed)
}

func (s *RepositoryIntegrationSuite) TestClicksAndDelete() {
	ctx := context.Background()

	_, err := s.urlRepo.Create(ctx, "aZ3kT9", "https://example.com")
	s.Require().NoError(err)

	for i := 0; i < 3; i++ {
		s.Require().NoError(s.clickRepo.Create(ctx, "aZ3kT9"))
	}

	daily, err := s.clickRepo.DailyByShortCode(ctx, "aZ3kT9")
	s.Require().NoError(err)
	s.Require().Len(daily, 1)
	s.Equal(int64(3), daily[0].Count)
	s.True(time.Now().UTC().Truncate(24*time.Hour).Equal(daily[0].Date))

	totals, err := s.clickRepo.Totals(ctx)
	s.Require().NoError(err)
	s.Equal(int64(1), totals.TotalURLs)
	s.Equal(int64(3), totals.TotalClicks)

	url, err := s.urlRepo.Delete(ctx, "aZ3kT9")
	s.Require().NoError(err)
	s.Equal("https://example.com", url)

	s.ErrorIs(s.clickRepo.Create(ctx, "aZ3kT9"), database.ErrURLNotFound)

	totals, err = s.clickRepo.Totals(ctx)
	s.Require().NoError(err)
	s.Zero(totals.TotalClicks)
}

func (s *RepositoryIntegrationSuite) TestDeleteAllAndStale() {
	ctx := context.Background()

	_, err := s.urlRepo.Create(ctx, "oldold", "https://example.com/old")
	s.Require().NoError(err)
	_, err = s.db.Exec(`UPDATE urls SET created_at = NOW() - INTERVAL '40 days' WHERE short_code = 'oldold'`)
	s.Require().NoError(err)
	_, err = s.urlRepo.Create(ctx, "newnew", "https://example.com/new")
	s.Require().NoError(err)

	codes, err := s.urlRepo.DeleteCreatedBefore(ctx, time.Now().Add(-30*24*time.Hour))
	s.Require().NoError(err)
	s.Equal([]string{"oldold"}, codes)

	n, err := s.urlRepo.DeleteAll(ctx)
	s.Require().NoError(err)
	s.Equal(int64(1), n)
}

func TestRepositoryIntegration(t *testing.T) {
	suite.Run(t, new(RepositoryIntegrationSuite))
}
