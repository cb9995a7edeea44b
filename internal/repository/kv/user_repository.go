package kv

import (
	"context"
	"errors"
	"strconv"
	"time"

	"gemvault/internal/kvstore"
	"gemvault/internal/model"
	"gemvault/internal/repository"
)

const (
	usersIndexKey  = "users:all"
	adminsIndexKey = "admins:all"
)

type userRepository struct {
	store kvstore.Store
}

func NewUserRepository(store kvstore.Store) repository.UserRepository {
	return &userRepository{store: store}
}

var _ repository.UserRepository = (*userRepository)(nil)

func (r *userRepository) Get(ctx context.Context, id int64) (*model.User, error) {
	var user model.User
	if err := getJSON(ctx, r.store, userKey(id), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) Save(ctx context.Context, user *model.User) error {
	return putJSON(ctx, r.store, userKey(user.ID), user)
}

func (r *userRepository) ListIDs(ctx context.Context) ([]int64, error) {
	return getList[int64](ctx, r.store, usersIndexKey)
}

func (r *userRepository) AddToIndex(ctx context.Context, id int64) error {
	return addToList(ctx, r.store, usersIndexKey, id)
}

func (r *userRepository) AdminIDs(ctx context.Context) ([]int64, error) {
	return getList[int64](ctx, r.store, adminsIndexKey)
}

func (r *userRepository) SetAdmin(ctx context.Context, id int64, admin bool) error {
	if admin {
		return addToList(ctx, r.store, adminsIndexKey, id)
	}
	return removeFromList(ctx, r.store, adminsIndexKey, id)
}

func blockKey(id int64) string {
	return "block:" + strconv.FormatInt(id, 10)
}

func (r *userRepository) IsBlocked(ctx context.Context, id int64) (bool, error) {
	return exists(ctx, r.store, blockKey(id))
}

func (r *userRepository) SetBlocked(ctx context.Context, id int64, blocked bool) error {
	if blocked {
		return putJSON(ctx, r.store, blockKey(id), map[string]any{"at": time.Now().UTC()})
	}
	return r.store.Delete(ctx, blockKey(id))
}

func checkinKey(id int64) string {
	return "checkin:" + strconv.FormatInt(id, 10)
}

func (r *userRepository) GetCheckIn(ctx context.Context, id int64) (*model.CheckIn, error) {
	var rec model.CheckIn
	err := getJSON(ctx, r.store, checkinKey(id), &rec)
	if errors.Is(err, ErrNotFound) {
		return &model.CheckIn{UserID: id}, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *userRepository) SaveCheckIn(ctx context.Context, rec *model.CheckIn) error {
	return putJSON(ctx, r.store, checkinKey(rec.UserID), rec)
}

func refWeekKey(id int64, weekKey string) string {
	return "refweek:" + strconv.FormatInt(id, 10) + ":" + weekKey
}

func (r *userRepository) WeeklyReferrals(ctx context.Context, id int64, weekKey string) (int, error) {
	var count int
	err := getJSON(ctx, r.store, refWeekKey(id, weekKey), &count)
	if errors.Is(err, ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *userRepository) IncrWeeklyReferrals(ctx context.Context, id int64, weekKey string) (int, error) {
	count, err := r.WeeklyReferrals(ctx, id, weekKey)
	if err != nil {
		return 0, err
	}
	count++
	if err := putJSON(ctx, r.store, refWeekKey(id, weekKey), count); err != nil {
		return 0, err
	}
	return count, nil
}
