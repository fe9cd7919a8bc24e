package game

import (
	"context"
	"errors"
	"sort"

	"github.com/charhunt/api/internal/models"
)

// RankedUser is one leaderboard row: a pseudo's best completion time
// and its 1-based position.
type RankedUser struct {
	Pseudo    string `json:"pseudo"`
	ElapsedMs int64  `json:"elapsedTime"`
	Rank      int    `json:"rank"`
}

// RankBestTimes groups completed runs by pseudo, keeps each pseudo's
// minimum elapsed time and sorts ascending. Runs without a pseudo
// cannot be grouped and are excluded. The sort is stable: equal times
// keep first-seen order.
func RankBestTimes(runs []models.CompletedRun) []RankedUser {
	best := make(map[string]int64)
	var order []string

	for _, run := range runs {
		if run.Pseudo == "" {
			continue
		}
		if current, ok := best[run.Pseudo]; !ok {
			best[run.Pseudo] = run.ElapsedMs
			order = append(order, run.Pseudo)
		} else if run.ElapsedMs < current {
			best[run.Pseudo] = run.ElapsedMs
		}
	}

	ranked := make([]RankedUser, 0, len(order))
	for _, pseudo := range order {
		ranked = append(ranked, RankedUser{Pseudo: pseudo, ElapsedMs: best[pseudo]})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].ElapsedMs < ranked[j].ElapsedMs
	})

	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}

// RankFor returns the 1-based rank of pseudo within ranked, or 0 when
// the pseudo does not appear.
func RankFor(ranked []RankedUser, pseudo string) int {
	for _, entry := range ranked {
		if entry.Pseudo == pseudo {
			return entry.Rank
		}
	}
	return 0
}

// Leaderboard validates the requesting session and computes the ranked
// best-time board from the store. The session must exist and be
// completed, otherwise ErrInvalidSession.
func (s *Service) Leaderboard(ctx context.Context, sessionID string) ([]RankedUser, *models.GameSession, error) {
	session, err := s.store.Session(ctx, sessionID)
	if errors.Is(err, ErrSessionNotFound) {
		return nil, nil, ErrInvalidSession
	}
	if err != nil {
		return nil, nil, err
	}
	if !session.Completed() {
		return nil, nil, ErrInvalidSession
	}

	runs, err := s.store.CompletedRuns(ctx)
	if err != nil {
		return nil, nil, err
	}
	return RankBestTimes(runs), session, nil
}

// RankedBoard computes the board without a session precondition; used
// to rebuild the leaderboard cache at startup.
func (s *Service) RankedBoard(ctx context.Context) ([]RankedUser, error) {
	runs, err := s.store.CompletedRuns(ctx)
	if err != nil {
		return nil, err
	}
	return RankBestTimes(runs), nil
}
