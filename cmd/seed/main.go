// Package main seeds a development database with a club, one tasting and
// its votes, then prints bearer tokens for the seeded admin and a member.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/utafrali/QuaichGo/internal/auth"
	"github.com/utafrali/QuaichGo/internal/cache"
	"github.com/utafrali/QuaichGo/internal/cache/memory"
	"github.com/utafrali/QuaichGo/internal/config"
	"github.com/utafrali/QuaichGo/internal/domain"
	"github.com/utafrali/QuaichGo/internal/repository/postgres"
	"github.com/utafrali/QuaichGo/internal/service"
	"github.com/utafrali/QuaichGo/migrations"
	"github.com/utafrali/QuaichGo/pkg/database"
	apperrors "github.com/utafrali/QuaichGo/pkg/errors"
	"github.com/utafrali/QuaichGo/pkg/logger"
)

var memberDefs = []domain.Member{
	{Name: "Moira", LastName: "MacLeod", Email: "moira@quaich.club", Role: domain.RoleAdmin},
	{Name: "Angus", LastName: "Fraser", Email: "angus@quaich.club"},
	{Name: "Isla", LastName: "Campbell", Email: "isla@quaich.club"},
	{Name: "Callum", LastName: "Reid", Email: "callum@quaich.club"},
	{Name: "Eilidh", LastName: "Stewart", Email: "eilidh@quaich.club"},
}

var whiskyDefs = []domain.Whisky{
	{Name: "Glenkinchie 12", Description: "Lowland, light and floral"},
	{Name: "Oban 14", Description: "West Highland, citrus and sea salt"},
	{Name: "Talisker 10", Description: "Skye, pepper and smoke"},
	{Name: "Lagavulin 16", Description: "Islay, peat and dried fruit"},
}

var comments = []string{
	"", "", "honey on the nose", "long peppery finish", "too much sherry for me", "would buy a bottle",
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log := logger.New("quaich-seed", cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	pgCfg := cfg.Postgres()
	pool, err := database.NewPostgresPool(ctx, &pgCfg, log)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()

	if err := database.RunMigrations(ctx, pool, migrations.FS, log); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	c := cache.New(memory.New(), log)
	dispatcher := cache.NewDispatcher(c, log)
	ttl := cfg.CacheTTL()
	meetingRepo := postgres.NewMeetingRepository(pool)

	members := service.NewMemberService(postgres.NewMemberRepository(pool), c, dispatcher, ttl, log)
	meetings := service.NewMeetingService(meetingRepo, c, dispatcher, nil, ttl, log)
	whiskies := service.NewWhiskyService(postgres.NewWhiskyRepository(pool), meetingRepo, c, dispatcher, ttl, log)
	votes := service.NewVoteService(postgres.NewVoteRepository(pool), dispatcher, nil, log)

	// 1. Members, reusing existing ones on a second run.
	seeded, err := seedMembers(ctx, members)
	if err != nil {
		return err
	}
	log.Info("members ready", slog.Int("count", len(seeded)))

	// 2. One open meeting with its whiskies.
	meeting, err := meetings.Create(ctx, &domain.Meeting{
		Date:     time.Now().UTC().Truncate(time.Hour),
		Location: "The Bow Bar, Edinburgh",
	})
	if err != nil {
		return fmt.Errorf("create meeting: %w", err)
	}

	var poured []*domain.Whisky
	for i, def := range whiskyDefs {
		w := def
		w.MeetingID = meeting.ID
		w.DisplayOrder = i + 1
		created, err := whiskies.Create(ctx, &w)
		if err != nil {
			return fmt.Errorf("create whisky %q: %w", def.Name, err)
		}
		poured = append(poured, created)
	}
	log.Info("meeting ready",
		slog.String("meeting_id", meeting.ID),
		slog.Int("whiskies", len(poured)),
	)

	// 3. Every member rates every whisky.
	cast := 0
	for _, m := range seeded {
		for _, w := range poured {
			var comment *string
			if text := comments[rand.IntN(len(comments))]; text != "" { // #nosec G404 -- demo data
				comment = &text
			}
			rating := domain.MinRating + rand.IntN(domain.MaxRating-domain.MinRating+1) // #nosec G404 -- demo data
			if _, err := votes.Cast(ctx, w.ID, m.ID, rating, comment); err != nil {
				return fmt.Errorf("cast vote: %w", err)
			}
			cast++
		}
	}
	log.Info("votes cast", slog.Int("count", cast))

	// 4. Development tokens.
	for _, m := range []domain.Member{seeded[0], seeded[1]} {
		token, err := devToken(cfg.JWTSecret, cfg.JWTIssuer, m, 24*time.Hour)
		if err != nil {
			return err
		}
		log.Info("dev token",
			slog.String("email", m.Email),
			slog.String("role", m.Role),
			slog.String("token", token),
		)
	}

	log.Info("seed complete", slog.String("results", "/api/v1/meetings/"+meeting.ID+"/results"))
	return nil
}

func seedMembers(ctx context.Context, members *service.MemberService) ([]domain.Member, error) {
	existing, err := members.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	byEmail := make(map[string]domain.Member, len(existing))
	for _, m := range existing {
		byEmail[m.Email] = m
	}

	seeded := make([]domain.Member, 0, len(memberDefs))
	for _, def := range memberDefs {
		if m, ok := byEmail[strings.ToLower(def.Email)]; ok {
			seeded = append(seeded, m)
			continue
		}
		m := def
		created, err := members.Create(ctx, &m)
		if err != nil && !errors.Is(err, apperrors.ErrAlreadyExists) {
			return nil, fmt.Errorf("create member %s: %w", def.Email, err)
		}
		if created != nil {
			seeded = append(seeded, *created)
		}
	}
	if len(seeded) < 2 {
		return nil, errors.New("need at least two members")
	}
	return seeded, nil
}

// devToken signs an HS256 access token the API accepts, standing in for the
// identity provider during local development.
func devToken(secret, issuer string, m domain.Member, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := auth.Claims{
		MemberID: m.ID,
		Role:     m.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   m.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}
