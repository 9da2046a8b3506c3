package store

import (
	"context"

	"github.com/veritaslab/newstrust/internal/model"
)

// ImageByDigest looks an image record up by its content digest.
func (s *Store) ImageByDigest(ctx context.Context, digest string) (*model.Image, error) {
	var img model.Image
	if err := s.db.WithContext(ctx).Where("digest = ?", digest).First(&img).Error; err != nil {
		return nil, translate(err)
	}
	return &img, nil
}

// CreateImage appends a new image record to the corpus.
func (s *Store) CreateImage(ctx context.Context, img *model.Image) error {
	if err := s.db.WithContext(ctx).Create(img).Error; err != nil {
		return translate(err)
	}
	return nil
}

// ImageFingerprints loads digest and perceptual hash for every stored
// image. The dedup scan walks the whole corpus per request; that O(n)
// cost is a documented limitation of the engine, not something this query
// tries to hide.
func (s *Store) ImageFingerprints(ctx context.Context) ([]model.Image, error) {
	var images []model.Image
	err := s.db.WithContext(ctx).
		Select("id", "digest", "p_hash").
		Find(&images).Error
	if err != nil {
		return nil, err
	}
	return images, nil
}
