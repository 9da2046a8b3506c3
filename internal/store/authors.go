package store

import (
	"context"

	"gorm.io/gorm"

	"github.com/veritaslab/newstrust/internal/model"
)

// AuthorByEmail looks an author up by identity within a unit handle.
func (s *Store) AuthorByEmail(tx *gorm.DB, email string) (*model.Author, error) {
	var a model.Author
	if err := tx.Where("email = ?", email).First(&a).Error; err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

// AuthorByID looks an author up by primary key.
func (s *Store) AuthorByID(ctx context.Context, id uint) (*model.Author, error) {
	var a model.Author
	if err := s.db.WithContext(ctx).First(&a, id).Error; err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

// CreateAuthor inserts a new author within a unit handle.
func (s *Store) CreateAuthor(tx *gorm.DB, a *model.Author) error {
	if err := tx.Create(a).Error; err != nil {
		return translate(err)
	}
	return nil
}

// SaveAuthor persists author changes within a unit handle.
func (s *Store) SaveAuthor(tx *gorm.DB, a *model.Author) error {
	return translate(tx.Save(a).Error)
}

// SaveAuthorDirect persists author changes outside any unit, used by the
// override recompute.
func (s *Store) SaveAuthorDirect(ctx context.Context, a *model.Author) error {
	return translate(s.db.WithContext(ctx).Save(a).Error)
}
