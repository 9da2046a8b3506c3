package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/veritaslab/newstrust/internal/model"
)

// ErrDuplicate reports a unique-constraint violation on create. The
// orchestrator treats it as "somebody else won the race" and re-reads.
var ErrDuplicate = errors.New("duplicate record")

func translate(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return model.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	default:
		return err
	}
}

// ArticleByTextHash looks an article up by its dedup key.
func (s *Store) ArticleByTextHash(ctx context.Context, hash string) (*model.Article, error) {
	var a model.Article
	if err := s.db.WithContext(ctx).Where("text_hash = ?", hash).First(&a).Error; err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

// ArticleByID looks an article up by primary key.
func (s *Store) ArticleByID(ctx context.Context, id uint) (*model.Article, error) {
	var a model.Article
	if err := s.db.WithContext(ctx).First(&a, id).Error; err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

// CreateArticle inserts a new article within the given unit handle.
func (s *Store) CreateArticle(tx *gorm.DB, a *model.Article) error {
	if err := tx.Create(a).Error; err != nil {
		return translate(err)
	}
	return nil
}

// SaveArticle persists changes to an existing article.
func (s *Store) SaveArticle(ctx context.Context, a *model.Article) error {
	return translate(s.db.WithContext(ctx).Save(a).Error)
}

// ArticlesByAuthor returns the author's articles in submission order, the
// order the trust replay depends on.
func (s *Store) ArticlesByAuthor(ctx context.Context, authorID uint) ([]model.Article, error) {
	var articles []model.Article
	err := s.db.WithContext(ctx).
		Where("author_id = ?", authorID).
		Order("created_at ASC, id ASC").
		Find(&articles).Error
	if err != nil {
		return nil, err
	}
	return articles, nil
}

// ArticlesNeedingAnchor returns articles whose ledger anchor has not
// succeeded yet, oldest first, capped at limit.
func (s *Store) ArticlesNeedingAnchor(ctx context.Context, limit int) ([]model.Article, error) {
	var articles []model.Article
	err := s.db.WithContext(ctx).
		Where("anchor_status IN ?", []string{model.AnchorPending, model.AnchorFailed}).
		Order("created_at ASC").
		Limit(limit).
		Find(&articles).Error
	if err != nil {
		return nil, err
	}
	return articles, nil
}

// CountArticles returns the total article count.
func (s *Store) CountArticles(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&model.Article{}).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

// AverageComposite returns the mean composite score across all articles,
// zero when the store is empty.
func (s *Store) AverageComposite(ctx context.Context) (float64, error) {
	var avg *float64
	err := s.db.WithContext(ctx).
		Model(&model.Article{}).
		Select("AVG(composite)").
		Scan(&avg).Error
	if err != nil {
		return 0, fmt.Errorf("average composite: %w", err)
	}
	if avg == nil {
		return 0, nil
	}
	return *avg, nil
}
