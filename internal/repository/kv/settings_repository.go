package kv

import (
	"context"
	"errors"

	"gemvault/internal/kvstore"
	"gemvault/internal/model"
	"gemvault/internal/repository"
)

const settingsKey = "settings"

type settingsRepository struct {
	store kvstore.Store
}

func NewSettingsRepository(store kvstore.Store) repository.SettingsRepository {
	return &settingsRepository{store: store}
}

var _ repository.SettingsRepository = (*settingsRepository)(nil)

func (r *settingsRepository) Get(ctx context.Context) (*model.Settings, error) {
	var settings model.Settings
	err := getJSON(ctx, r.store, settingsKey, &settings)
	if errors.Is(err, ErrNotFound) {
		return model.DefaultSettings(), nil
	}
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

func (r *settingsRepository) Save(ctx context.Context, settings *model.Settings) error {
	return putJSON(ctx, r.store, settingsKey, settings)
}
