package items

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgdb "github.com/stockroomhq/stockroom-backend/pkg/db"
	"github.com/stockroomhq/stockroom-backend/pkg/db/models"
	pkgerrors "github.com/stockroomhq/stockroom-backend/pkg/errors"
	"github.com/stockroomhq/stockroom-backend/pkg/logger"
)

// Service manages the item catalog.
type Service interface {
	Create(ctx context.Context, code, name string, qcRequired bool) (*models.Item, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Item, error)
	List(ctx context.Context) ([]models.Item, error)
}

// ServiceParams configure the item service.
type ServiceParams struct {
	Repo   Repository
	Logger *logger.Logger
}

type service struct {
	repo Repository
	logg *logger.Logger
}

// NewService builds the item service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("item repository required")
	}
	return &service{repo: params.Repo, logg: params.Logger}, nil
}

func (s *service) Create(ctx context.Context, code, name string, qcRequired bool) (*models.Item, error) {
	if code == "" || name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "code and name are required")
	}

	item := &models.Item{
		Code:       code,
		Name:       name,
		QCRequired: qcRequired,
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, pkgdb.NormalizeError(err)
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithItemID(ctx, item.ID.String()), "item created")
	}
	return item, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeItemNotFound, "item not found")
		}
		return nil, pkgdb.NormalizeError(err)
	}
	return item, nil
}

func (s *service) List(ctx context.Context) ([]models.Item, error) {
	list, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgdb.NormalizeError(err)
	}
	return list, nil
}
