package service

import (
	"context"
	"strings"

	"photoquest/internal/db"
	"photoquest/internal/domain"
	"photoquest/internal/logger"
	"photoquest/internal/repository"
	"photoquest/internal/storage"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Upload is an uploaded file with its declared content type.
type Upload struct {
	Data        []byte
	ContentType string
}

type PackageService struct {
	db       *pgxpool.Pool
	packages *repository.PackageRepository
	blobs    storage.BlobStore
	audit    *AuditService
}

func NewPackageService(db *pgxpool.Pool, packages *repository.PackageRepository, blobs storage.BlobStore, audit *AuditService) *PackageService {
	return &PackageService{db: db, packages: packages, blobs: blobs, audit: audit}
}

type NewPackage struct {
	Name  string
	Coins int64
	Price decimal.Decimal
}

func (s *PackageService) Create(ctx context.Context, adminID int64, n NewPackage, qr *Upload) (*domain.Package, error) {
	n.Name = strings.TrimSpace(n.Name)
	if n.Name == "" {
		return nil, domain.Validation("name is required")
	}
	if n.Coins <= 0 {
		return nil, domain.Validation("coins must be positive")
	}
	if !n.Price.IsPositive() {
		return nil, domain.Validation("price must be positive")
	}

	p := &domain.Package{Name: n.Name, Coins: n.Coins, Price: n.Price.Round(2), Status: domain.PackageStatusActive}
	if qr != nil {
		url, err := s.blobs.Store(ctx, storage.KindQR, qr.Data, qr.ContentType)
		if err != nil {
			return nil, err
		}
		p.QRURL = url
	}

	if err := s.packages.Create(ctx, p); err != nil {
		s.discard(ctx, p.QRURL)
		return nil, err
	}
	s.audit.Log(ctx, adminID, domain.AuditActionPackageCreate, domain.AuditCategoryPackage, map[string]interface{}{"package_id": p.ID})
	return p, nil
}

// Update applies a partial update. Coins and price are frozen once an
// approved transaction references the package.
func (s *PackageService) Update(ctx context.Context, adminID, id int64, u domain.PackageUpdate, qr *Upload) (*domain.Package, error) {
	if err := u.Validate(); err != nil {
		return nil, err
	}
	if u.Price != nil {
		rounded := u.Price.Round(2)
		u.Price = &rounded
	}

	var oldQR string
	if qr != nil {
		url, err := s.blobs.Store(ctx, storage.KindQR, qr.Data, qr.ContentType)
		if err != nil {
			return nil, err
		}
		u.QRURL = &url
	}

	var out *domain.Package
	err := db.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		cur, err := s.packages.GetForUpdateWithTx(ctx, tx, id)
		if err != nil {
			return err
		}
		oldQR = cur.QRURL

		quoteChanged := (u.Coins != nil && *u.Coins != cur.Coins) || (u.Price != nil && !u.Price.Equal(cur.Price))
		if quoteChanged {
			settled, err := s.packages.HasApprovedWithTx(ctx, tx, id)
			if err != nil {
				return err
			}
			if settled {
				return domain.InvalidState("package %d has approved top-ups; its coins and price cannot change", id)
			}
		}

		out, err = s.packages.UpdateWithTx(ctx, tx, id, u)
		return err
	})
	if err != nil {
		if u.QRURL != nil {
			s.discard(ctx, *u.QRURL)
		}
		return nil, err
	}

	if u.QRURL != nil && oldQR != "" {
		s.discard(ctx, oldQR)
	}
	s.audit.Log(ctx, adminID, domain.AuditActionPackageUpdate, domain.AuditCategoryPackage, map[string]interface{}{"package_id": id})
	return out, nil
}

func (s *PackageService) Delete(ctx context.Context, adminID, id int64) error {
	p, err := s.packages.Delete(ctx, id)
	if err != nil {
		return err
	}
	s.discard(ctx, p.QRURL)
	s.audit.Log(ctx, adminID, domain.AuditActionPackageDelete, domain.AuditCategoryPackage, map[string]interface{}{"package_id": id})
	return nil
}

func (s *PackageService) ToggleStatus(ctx context.Context, adminID, id int64) (*domain.Package, error) {
	p, err := s.packages.ToggleStatus(ctx, id)
	if err != nil {
		return nil, err
	}
	s.audit.Log(ctx, adminID, domain.AuditActionPackageUpdate, domain.AuditCategoryPackage, map[string]interface{}{
		"package_id": id,
		"status":     p.Status,
	})
	return p, nil
}

func (s *PackageService) Get(ctx context.Context, id int64) (*domain.Package, error) {
	return s.packages.GetByID(ctx, id)
}

func (s *PackageService) ListActive(ctx context.Context) ([]*domain.Package, error) {
	return s.packages.ListActive(ctx)
}

func (s *PackageService) ListAll(ctx context.Context) ([]*domain.Package, error) {
	return s.packages.ListAll(ctx)
}

func (s *PackageService) discard(ctx context.Context, url string) {
	if url == "" {
		return
	}
	if err := s.blobs.Delete(context.WithoutCancel(ctx), url); err != nil {
		logger.WithContext(ctx).Warn("failed to remove blob", "url", url, "error", err)
	}
}
