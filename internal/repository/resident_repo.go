package repository

import (
	"github.com/condovia/condovia-backend/internal/domain"
	"gorm.io/gorm"
)

// ResidentRepository resident lookup interface (identity collaborator)
type ResidentRepository interface {
	FindByID(id uint) (*domain.Resident, error)
	FindByIDs(ids []uint) ([]*domain.Resident, error)
	FindByUsername(username string) (*domain.Resident, error)
}

type residentRepository struct {
	db *gorm.DB
}

// NewResidentRepository creates a new ResidentRepository
func NewResidentRepository(db *gorm.DB) ResidentRepository {
	return &residentRepository{db: db}
}

func (r *residentRepository) FindByID(id uint) (*domain.Resident, error) {
	var resident domain.Resident
	if err := r.db.First(&resident, id).Error; err != nil {
		return nil, err
	}
	return &resident, nil
}

func (r *residentRepository) FindByIDs(ids []uint) ([]*domain.Resident, error) {
	var residents []*domain.Resident
	if err := r.db.Where("id IN ?", ids).Find(&residents).Error; err != nil {
		return nil, err
	}
	return residents, nil
}

func (r *residentRepository) FindByUsername(username string) (*domain.Resident, error) {
	var resident domain.Resident
	if err := r.db.Where("username = ?", username).First(&resident).Error; err != nil {
		return nil, err
	}
	return &resident, nil
}
