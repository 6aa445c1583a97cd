package integration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"github.com/zPat/easy-edgedb/internal/app"
	"github.com/zPat/easy-edgedb/internal/domain"
	"github.com/zPat/easy-edgedb/internal/infra/postgres"
	pgmigrations "github.com/zPat/easy-edgedb/internal/infra/postgres/migrations"
	infraredis "github.com/zPat/easy-edgedb/internal/infra/redis"
)

func TestBookThroughPostgresAndRedis(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	runMigrations(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	loader := postgres.NewChapterLoader(pool)
	if err := loader.SaveBook(ctx, sampleBook()); err != nil {
		t.Fatalf("save book: %v", err)
	}

	// A direct load skips every cache and proves the JSONB round trip.
	ch, err := loader.LoadChapter(ctx, 1)
	if err != nil {
		t.Fatalf("load chapter: %v", err)
	}
	if ch.Title != "Jonathan Harker travels to Transylvania" {
		t.Fatalf("unexpected title %q", ch.Title)
	}
	if ch.Quiz == nil || len(ch.Quiz.Questions) != 2 {
		t.Fatalf("quiz did not survive postgres: %+v", ch.Quiz)
	}

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	repo := infraredis.NewChapterRepository(redisClient, loader, 5*time.Minute)
	book := app.NewBookService(repo, nil, nil)
	if err := book.Load(ctx); err != nil {
		t.Fatalf("load book: %v", err)
	}

	summaries, err := book.Summaries(ctx)
	if err != nil {
		t.Fatalf("summaries: %v", err)
	}
	if len(summaries) != 2 || summaries[0].Number != 1 || summaries[1].Number != 2 {
		t.Fatalf("unexpected summaries: %+v", summaries)
	}

	// Full practice walkthrough with sessions living in redis.
	sessions := infraredis.NewSessionStore(redisClient, 5*time.Minute)
	practice := app.NewPracticeService(book, sessions)

	session, quiz, err := practice.Start(ctx, 1)
	if err != nil {
		t.Fatalf("start practice: %v", err)
	}
	if len(quiz.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(quiz.Questions))
	}

	_, question, index, done, err := practice.Next(ctx, session.ID)
	if err != nil || done {
		t.Fatalf("next: err=%v done=%v", err, done)
	}
	if index != 0 || question != "How do you insert a City?" {
		t.Fatalf("unexpected first question %d %q", index, question)
	}

	_, answer, index, err := practice.Reveal(ctx, session.ID)
	if err != nil {
		t.Fatalf("reveal: %v", err)
	}
	if index != 0 || answer != "With a plain INSERT statement." {
		t.Fatalf("unexpected answer %d %q", index, answer)
	}

	if _, _, _, done, _ = practice.Next(ctx, session.ID); done {
		t.Fatal("second question should not be done")
	}
	if _, _, _, done, _ = practice.Next(ctx, session.ID); !done {
		t.Fatal("expected the walkthrough to finish")
	}
	if err := practice.End(ctx, session.ID); err != nil {
		t.Fatalf("end: %v", err)
	}

	// Re-ingesting a smaller book prunes dropped chapters.
	if err := loader.SaveBook(ctx, sampleBook()[:1]); err != nil {
		t.Fatalf("save smaller book: %v", err)
	}
	if err := repo.Invalidate(ctx); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, err := loader.LoadChapter(ctx, 2); !errors.Is(err, domain.ErrChapterNotFound) {
		t.Fatalf("expected chapter 2 pruned, got %v", err)
	}
	chapters, err := repo.Book(ctx)
	if err != nil {
		t.Fatalf("book after prune: %v", err)
	}
	if len(chapters) != 1 || chapters[0].Number != 1 {
		t.Fatalf("expected only chapter 1 after prune, got %+v", chapters)
	}
}

func runMigrations(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func sampleBook() []domain.Chapter {
	return []domain.Chapter{
		{
			Number: 1,
			Title:  "Jonathan Harker travels to Transylvania",
			Tags:   []string{"Scalar Types", "Insert"},
			Blocks: []domain.Block{
				{Kind: domain.BlockProse, Text: "# Jonathan Harker travels to Transylvania\n\nJonathan boards a train in London.", Line: 1},
				{Kind: domain.BlockCode, Lang: domain.LangSDL, Text: "type City {\n  required property name -> str;\n}\n", Line: 5},
			},
			Quiz: &domain.Quiz{
				Questions:   []string{"How do you insert a City?", "How do you filter on population?"},
				AnswersLink: "answers.md",
				Line:        9,
			},
			Answers: &domain.Answers{
				Items: []string{"With a plain INSERT statement.", "With FILTER .population > n."},
			},
		},
		{
			Number: 2,
			Title:  "The Golden Krone Hotel",
			Blocks: []domain.Block{
				{Kind: domain.BlockProse, Text: "# The Golden Krone Hotel\n\nJonathan arrives in Bistritz.", Line: 1},
			},
		},
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "book", "POSTGRES_PASSWORD": "bookpass", "POSTGRES_DB": "bookdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://book:bookpass@%s:%s/bookdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
