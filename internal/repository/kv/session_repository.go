package kv

import (
	"context"
	"errors"
	"strconv"

	"gemvault/internal/kvstore"
	"gemvault/internal/model"
	"gemvault/internal/repository"
)

type sessionRepository struct {
	store kvstore.Store
}

func NewSessionRepository(store kvstore.Store) repository.SessionRepository {
	return &sessionRepository{store: store}
}

var _ repository.SessionRepository = (*sessionRepository)(nil)

func sessionKey(userID int64) string {
	return "session:" + strconv.FormatInt(userID, 10)
}

// Get returns an empty session for users without one; sessions are created
// on demand and never a prerequisite.
func (r *sessionRepository) Get(ctx context.Context, userID int64) (*model.Session, error) {
	var session model.Session
	err := getJSON(ctx, r.store, sessionKey(userID), &session)
	if errors.Is(err, ErrNotFound) {
		return &model.Session{UserID: userID}, nil
	}
	if err != nil {
		return nil, err
	}
	session.UserID = userID
	return &session, nil
}

func (r *sessionRepository) Save(ctx context.Context, session *model.Session) error {
	return putJSON(ctx, r.store, sessionKey(session.UserID), session)
}

func (r *sessionRepository) Clear(ctx context.Context, userID int64) error {
	return r.store.Delete(ctx, sessionKey(userID))
}
