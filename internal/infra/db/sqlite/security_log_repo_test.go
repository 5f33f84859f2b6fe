package sqlite

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	domain "github.com/bryanwahyu/jailbreak-firewall/internal/domain/analysis"
)

// SecurityLogSuite runs every test against a fresh in-memory database.
type SecurityLogSuite struct {
	suite.Suite
	repo *SecurityLogRepository
	ctx  context.Context
}

func (s *SecurityLogSuite) SetupTest() {
	s.ctx = context.Background()
	db, err := Open(s.ctx, ":memory:")
	s.Require().NoError(err)
	s.T().Cleanup(func() { db.Close() })

	s.repo = NewSecurityLogRepository(db)
	s.Require().NoError(s.repo.EnsureSchema(s.ctx))
}

func TestSecurityLogSuite(t *testing.T) {
	suite.Run(t, new(SecurityLogSuite))
}

func (s *SecurityLogSuite) insert(prompt, jbCat, harmCat string) *domain.Record {
	rec := &domain.Record{
		PromptText:          prompt,
		JailbreakScore:      0.87,
		JailbreakCategory:   jbCat,
		HarmfulnessScore:    0.42,
		HarmfulnessCategory: harmCat,
		Verdict:             "ALLOW",
		Recommendation:      "proceed",
	}
	s.Require().NoError(s.repo.Insert(s.ctx, rec))
	return rec
}

func (s *SecurityLogSuite) TestInsert_AssignsIDAndTimestamp() {
	start := time.Now()
	a := s.insert("first", "roleplay_bypass", "low")
	b := s.insert("first", "roleplay_bypass", "low")

	s.NotZero(a.ID)
	s.Greater(b.ID, a.ID)
	s.False(a.CreatedAt.Before(start))
	s.False(b.CreatedAt.Before(a.CreatedAt))
}

func (s *SecurityLogSuite) TestRoundTrip() {
	in := s.insert("  verbatim\nprompt ✓ ", "roleplay_bypass", "low")

	all, err := s.repo.FindAll(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 1)
	s.Equal(in.ID, all[0].ID)
	s.Equal("  verbatim\nprompt ✓ ", all[0].PromptText)
	s.Equal(0.87, all[0].JailbreakScore)
	s.Equal("roleplay_bypass", all[0].JailbreakCategory)
	s.Equal(0.42, all[0].HarmfulnessScore)
	s.Equal("low", all[0].HarmfulnessCategory)
	s.Equal("ALLOW", all[0].Verdict)
	s.Equal("proceed", all[0].Recommendation)
	s.True(in.CreatedAt.Equal(all[0].CreatedAt))
}

func (s *SecurityLogSuite) TestFindByCategory() {
	s.insert("a", "roleplay_bypass", "low")
	s.insert("b", "prompt_leak", "high")
	s.insert("c", "roleplay_bypass", "high")
	s.insert("d", "Roleplay_Bypass", "low")

	byJB, err := s.repo.FindByJailbreakCategory(s.ctx, "roleplay_bypass")
	s.Require().NoError(err)
	s.Require().Len(byJB, 2)
	for _, r := range byJB {
		s.Equal("roleplay_bypass", r.JailbreakCategory)
	}
	s.Equal("a", byJB[0].PromptText)
	s.Equal("c", byJB[1].PromptText)

	byHarm, err := s.repo.FindByHarmfulnessCategory(s.ctx, "high")
	s.Require().NoError(err)
	s.Require().Len(byHarm, 2)
	s.Equal("b", byHarm[0].PromptText)
	s.Equal("c", byHarm[1].PromptText)

	none, err := s.repo.FindByJailbreakCategory(s.ctx, "unknown")
	s.Require().NoError(err)
	s.Empty(none)
}

func (s *SecurityLogSuite) TestOfflineRecordHasNullCategories() {
	rec := &domain.Record{
		PromptText:     "hi",
		Verdict:        domain.VerdictEngineOffline,
		Recommendation: "Check if the scoring engine is running",
	}
	s.Require().NoError(s.repo.Insert(s.ctx, rec))

	var n int
	s.Require().NoError(s.repo.db.QueryRowContext(s.ctx,
		`SELECT COUNT(*) FROM security_log WHERE jailbreak_category IS NULL AND harmfulness_category IS NULL`).Scan(&n))
	s.Equal(1, n)

	all, err := s.repo.FindAll(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 1)
	s.True(all[0].Offline())
	s.Zero(all[0].JailbreakScore)
	s.Empty(all[0].HarmfulnessCategory)
}

func (s *SecurityLogSuite) TestWhitespaceLabelsRoundTrip() {
	in := &domain.Record{
		PromptText:          "hi",
		JailbreakCategory:   " ",
		HarmfulnessCategory: "\t",
		Verdict:             " ",
		Recommendation:      "  ",
	}
	s.Require().NoError(s.repo.Insert(s.ctx, in))

	all, err := s.repo.FindAll(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 1)
	got := all[0]
	s.Equal(in.JailbreakCategory, got.JailbreakCategory)
	s.Equal(in.HarmfulnessCategory, got.HarmfulnessCategory)
	s.Equal(in.Verdict, got.Verdict)
	s.Equal(in.Recommendation, got.Recommendation)
	s.True(in.CreatedAt.Equal(got.CreatedAt))

	byJB, err := s.repo.FindByJailbreakCategory(s.ctx, " ")
	s.Require().NoError(err)
	s.Require().Len(byJB, 1)
	s.Equal(in.ID, byJB[0].ID)

	byHarm, err := s.repo.FindByHarmfulnessCategory(s.ctx, "\t")
	s.Require().NoError(err)
	s.Len(byHarm, 1)
}

func (s *SecurityLogSuite) TestPromptLengthConstraint() {
	ok := &domain.Record{PromptText: strings.Repeat("日", domain.MaxPromptLength)}
	s.NoError(s.repo.Insert(s.ctx, ok))

	tooLong := &domain.Record{PromptText: strings.Repeat("a", domain.MaxPromptLength+1)}
	s.Error(s.repo.Insert(s.ctx, tooLong))
	s.Zero(tooLong.ID)
}

func (s *SecurityLogSuite) TestConcurrentInserts() {
	var wg sync.WaitGroup
	ids := make(chan int64, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec := &domain.Record{PromptText: "same prompt"}
			if s.NoError(s.repo.Insert(s.ctx, rec)) {
				ids <- rec.ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[int64]bool{}
	for id := range ids {
		s.False(seen[id], "duplicate id %d", id)
		seen[id] = true
	}
	s.Len(seen, 20)
}

func TestOpen_FileDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "firewall.db")
	ctx := context.Background()

	db, err := Open(ctx, path)
	require.NoError(t, err)
	repo := NewSecurityLogRepository(db)
	require.NoError(t, repo.EnsureSchema(ctx))
	require.NoError(t, repo.EnsureSchema(ctx))
	require.NoError(t, repo.Insert(ctx, &domain.Record{PromptText: "persisted"}))
	require.NoError(t, db.Close())

	db, err = Open(ctx, path)
	require.NoError(t, err)
	defer db.Close()
	all, err := NewSecurityLogRepository(db).FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, "persisted", all[0].PromptText)
}
