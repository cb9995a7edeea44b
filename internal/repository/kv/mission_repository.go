package kv

import (
	"context"
	"errors"
	"strconv"

	"gemvault/internal/kvstore"
	"gemvault/internal/model"
	"gemvault/internal/repository"
)

const missionsIndexKey = "missions:all"

type missionRepository struct {
	store kvstore.Store
}

func NewMissionRepository(store kvstore.Store) repository.MissionRepository {
	return &missionRepository{store: store}
}

var _ repository.MissionRepository = (*missionRepository)(nil)

func missionKey(id string) string {
	return "mission:" + id
}

func progressKey(userID int64) string {
	return "missionprog:" + strconv.FormatInt(userID, 10)
}

func leaderboardKey(weekKey string) string {
	return "missionboard:" + weekKey
}

func (r *missionRepository) Get(ctx context.Context, id string) (*model.Mission, error) {
	var mission model.Mission
	if err := getJSON(ctx, r.store, missionKey(id), &mission); err != nil {
		return nil, err
	}
	return &mission, nil
}

func (r *missionRepository) Save(ctx context.Context, mission *model.Mission) error {
	if err := putJSON(ctx, r.store, missionKey(mission.ID), mission); err != nil {
		return err
	}
	return addToList(ctx, r.store, missionsIndexKey, mission.ID)
}

func (r *missionRepository) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, missionKey(id)); err != nil {
		return err
	}
	return removeFromList(ctx, r.store, missionsIndexKey, id)
}

func (r *missionRepository) ListIDs(ctx context.Context) ([]string, error) {
	return getList[string](ctx, r.store, missionsIndexKey)
}

func (r *missionRepository) GetProgress(ctx context.Context, userID int64) (*model.MissionProgress, error) {
	var progress model.MissionProgress
	err := getJSON(ctx, r.store, progressKey(userID), &progress)
	if errors.Is(err, ErrNotFound) {
		return &model.MissionProgress{UserID: userID, Map: map[string]int64{}}, nil
	}
	if err != nil {
		return nil, err
	}
	if progress.Map == nil {
		progress.Map = map[string]int64{}
	}
	progress.UserID = userID
	return &progress, nil
}

func (r *missionRepository) SaveProgress(ctx context.Context, progress *model.MissionProgress) error {
	return putJSON(ctx, r.store, progressKey(progress.UserID), progress)
}

func (r *missionRepository) IncrWeeklyScore(ctx context.Context, userID int64, weekKey string, amount int64) error {
	scores, err := r.WeeklyScores(ctx, weekKey)
	if err != nil {
		return err
	}
	if scores == nil {
		scores = map[int64]int64{}
	}
	scores[userID] += amount
	return putJSON(ctx, r.store, leaderboardKey(weekKey), scores)
}

func (r *missionRepository) WeeklyScores(ctx context.Context, weekKey string) (map[int64]int64, error) {
	var scores map[int64]int64
	err := getJSON(ctx, r.store, leaderboardKey(weekKey), &scores)
	if errors.Is(err, ErrNotFound) {
		return map[int64]int64{}, nil
	}
	if err != nil {
		return nil, err
	}
	return scores, nil
}
