package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"gemvault/internal/model"
	"gemvault/internal/period"
	"gemvault/internal/repository"
	"gemvault/pkg/token"
)

var ErrNotOwner = errors.New("not the owner of this file")

// FileService covers the registry side of content items: creation on
// upload, owner edits, admin toggles. Delivery decisions live in
// DeliveryService.
type FileService struct {
	files  repository.FileRepository
	now    period.Clock
	logger *zap.Logger
}

func NewFileService(files repository.FileRepository, now period.Clock, logger *zap.Logger) *FileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = period.UTCNow
	}
	return &FileService{files: files, now: now, logger: logger}
}

// Create registers an uploaded item under a fresh capability token.
func (s *FileService) Create(ctx context.Context, owner int64, fileType model.FileType, payloadRef, name string, size int64) (*model.FileItem, error) {
	item := &model.FileItem{
		Token:      token.New(token.FileTokenLength),
		Owner:      owner,
		Type:       fileType,
		PayloadRef: payloadRef,
		Name:       name,
		Size:       size,
		CreatedAt:  s.now(),
	}
	if err := s.files.Save(ctx, item); err != nil {
		return nil, err
	}
	s.logger.Info("file registered",
		zap.String("token", item.Token),
		zap.Int64("owner", owner),
		zap.String("name", name),
	)
	return item, nil
}

func (s *FileService) Get(ctx context.Context, fileToken string) (*model.FileItem, error) {
	return s.files.Get(ctx, fileToken)
}

// Rename changes the display name; only the owner (or an admin) may.
func (s *FileService) Rename(ctx context.Context, fileToken string, actor int64, isAdmin bool, name string) error {
	item, err := s.files.Get(ctx, fileToken)
	if err != nil {
		return err
	}
	if item.Owner != actor && !isAdmin {
		return ErrNotOwner
	}
	item.Name = name
	return s.files.Save(ctx, item)
}

// SetPrice updates cost_points; 0 makes the item free.
func (s *FileService) SetPrice(ctx context.Context, fileToken string, actor int64, isAdmin bool, price int64) error {
	if price < 0 {
		return ErrInvalidAmount
	}
	item, err := s.files.Get(ctx, fileToken)
	if err != nil {
		return err
	}
	if item.Owner != actor && !isAdmin {
		return ErrNotOwner
	}
	item.CostPoints = price
	return s.files.Save(ctx, item)
}

// SetLimits updates per-item quota settings.
func (s *FileService) SetLimits(ctx context.Context, fileToken string, maxDownloads int64, deleteOnLimit bool) error {
	if maxDownloads < 0 {
		return ErrInvalidAmount
	}
	item, err := s.files.Get(ctx, fileToken)
	if err != nil {
		return err
	}
	item.MaxDownloads = maxDownloads
	item.DeleteOnLimit = deleteOnLimit
	return s.files.Save(ctx, item)
}

// SetDisabled flips the enable flag.
func (s *FileService) SetDisabled(ctx context.Context, fileToken string, disabled bool) error {
	item, err := s.files.Get(ctx, fileToken)
	if err != nil {
		return err
	}
	item.Disabled = disabled
	return s.files.Save(ctx, item)
}

// Delete removes the item and its index entries.
func (s *FileService) Delete(ctx context.Context, fileToken string, actor int64, isAdmin bool) error {
	item, err := s.files.Get(ctx, fileToken)
	if err != nil {
		return err
	}
	if item.Owner != actor && !isAdmin {
		return ErrNotOwner
	}
	return s.files.Delete(ctx, fileToken)
}

// ListByOwner returns the owner's items.
func (s *FileService) ListByOwner(ctx context.Context, owner int64) ([]*model.FileItem, error) {
	tokens, err := s.files.ListByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}
	return s.resolve(ctx, tokens)
}

// ListAll returns every registered item.
func (s *FileService) ListAll(ctx context.Context) ([]*model.FileItem, error) {
	tokens, err := s.files.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return s.resolve(ctx, tokens)
}

func (s *FileService) resolve(ctx context.Context, tokens []string) ([]*model.FileItem, error) {
	out := make([]*model.FileItem, 0, len(tokens))
	for _, t := range tokens {
		item, err := s.files.Get(ctx, t)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}
