// Package fixtures loads YAML seed data into the in-memory store, giving a
// fresh process a competition to exercise without a real backend.
package fixtures

import (
	"context"
	"fmt"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/promptarena/verdict/internal/adapters/repository"
	"github.com/promptarena/verdict/internal/domain/model"
	"github.com/promptarena/verdict/pkg/logger"
)

// Fixture mirrors the YAML seed file layout.
type Fixture struct {
	Competitions []CompetitionFixture `koanf:"competitions"`
}

// CompetitionFixture seeds one competition with standings and submissions.
type CompetitionFixture struct {
	ID          string              `koanf:"id"`
	Name        string              `koanf:"name"`
	TopN        int                 `koanf:"top_n"`
	MaxPerJudge int                 `koanf:"max_per_judge"`
	Ranking     []RankingFixture    `koanf:"ranking"`
	Submissions []SubmissionFixture `koanf:"submissions"`
}

// RankingFixture seeds one leaderboard row.
type RankingFixture struct {
	ParticipantID string  `koanf:"participant_id"`
	Rank          int     `koanf:"rank"`
	TotalScore    float64 `koanf:"total_score"`
}

// SubmissionFixture seeds one submission.
type SubmissionFixture struct {
	ParticipantID string `koanf:"participant_id"`
	ChallengeID   string `koanf:"challenge_id"`
	Content       string `koanf:"content"`
	Status        string `koanf:"status"`
}

// Load reads the YAML file at path and seeds store with its contents.
func Load(ctx context.Context, path string, store *repository.MemoryStore) error {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return fmt.Errorf("%w: %w", ErrLoadFixture, err)
	}
	var fx Fixture
	if err := k.UnmarshalWithConf("", &fx, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return fmt.Errorf("%w: %w", ErrLoadFixture, err)
	}

	log := logger.Get().Named("fixtures")
	now := time.Now()
	for _, cf := range fx.Competitions {
		if cf.ID == "" {
			return fmt.Errorf("%w: competition without id", ErrLoadFixture)
		}
		store.PutCompetition(&model.Competition{
			ID:          cf.ID,
			Name:        cf.Name,
			TopN:        cf.TopN,
			MaxPerJudge: cf.MaxPerJudge,
			CreatedAt:   now,
			UpdatedAt:   now,
		})

		entries := make([]model.LeaderboardEntry, 0, len(cf.Ranking))
		for _, rf := range cf.Ranking {
			entries = append(entries, model.LeaderboardEntry{
				ParticipantID: rf.ParticipantID,
				Rank:          rf.Rank,
				TotalScore:    rf.TotalScore,
			})
		}
		store.PutRanking(cf.ID, entries)

		subs := make([]model.Submission, 0, len(cf.Submissions))
		for _, sf := range cf.Submissions {
			status := model.SubmissionStatus(sf.Status)
			if status == "" {
				status = model.SubmissionSubmitted
			}
			subs = append(subs, model.Submission{
				ID:            model.SubmissionID(sf.ParticipantID, sf.ChallengeID),
				ParticipantID: sf.ParticipantID,
				ChallengeID:   sf.ChallengeID,
				Content:       sf.Content,
				Status:        status,
			})
		}
		store.PutSubmissions(cf.ID, subs)

		log.Info(ctx, "seeded competition",
			logger.String("competition", cf.ID),
			logger.Int("ranking", len(entries)),
			logger.Int("submissions", len(subs)),
		)
	}
	return nil
}
