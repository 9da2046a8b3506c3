package model

import "time"

// Anchor status values for an article's ledger record.
const (
	AnchorPending = "pending"
	AnchorSuccess = "success"
	AnchorFailed  = "failed"
)

// Article is a scored news article. Identity is the SHA-256 hash of the
// article text: a second submission of the same text returns the stored
// scores instead of recomputing them.
type Article struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	URL    string `gorm:"size:2048" json:"url"`
	Source string `gorm:"size:255" json:"source"`
	Title  string `gorm:"size:1024" json:"title"`
	Text   string `gorm:"type:text" json:"text"`

	// TextHash is the dedup key. Unique at the storage layer so two racing
	// submissions of the same text cannot both create a record.
	TextHash string `gorm:"size:64;uniqueIndex;not null" json:"text_hash"`

	// Sub-scores and composite, all in [0,1].
	M float64 `json:"m"`
	F float64 `json:"f_fact"`
	C float64 `json:"c"`
	// Composite holds f = alpha*M + beta*F + (1-alpha-beta)*C.
	Composite float64 `json:"composite"`

	WordCount   int `json:"word_count"`
	ReadingTime int `json:"reading_time"` // minutes

	AuthorID uint   `gorm:"index;not null" json:"author_id"`
	Author   Author `gorm:"foreignKey:AuthorID" json:"author,omitempty"`

	// Image match metadata, set when an analyzed image is attached.
	ImageDigest     string  `gorm:"size:64" json:"image_digest,omitempty"`
	ImagePHash      string  `gorm:"size:64" json:"image_phash,omitempty"`
	ImageReused     bool    `json:"image_reused"`
	ImageSimilarity float64 `json:"image_similarity"`
	ImageMatched    string  `gorm:"size:64" json:"image_matched,omitempty"`

	// Ledger anchor metadata. The anchor write is decoupled from the
	// scoring transaction; status moves pending -> success|failed.
	AnchorHash   string     `gorm:"size:64" json:"anchor_hash,omitempty"`
	AnchorTxRef  string     `gorm:"size:128" json:"anchor_tx_ref,omitempty"`
	AnchorStatus string     `gorm:"size:16" json:"anchor_status,omitempty"`
	AnchorAt     *time.Time `json:"anchor_at,omitempty"`

	// Manual override metadata.
	Overridden     bool       `json:"overridden"`
	OverrideReason string     `gorm:"size:1024" json:"override_reason,omitempty"`
	OverrideBy     string     `gorm:"size:255" json:"override_by,omitempty"`
	OverrideAt     *time.Time `json:"override_at,omitempty"`
	PriorScore     float64    `json:"prior_score"`

	CreatedAt time.Time `json:"created_at"`
}

// Author aggregates trust over everything one email has submitted.
type Author struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Name          string    `gorm:"size:255;not null" json:"name"`
	Email         string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	TrustScore    float64   `gorm:"default:0.5" json:"trust_score"`
	TotalArticles int       `json:"total_articles"`
	FakeArticles  int       `json:"fake_articles"`
	CreatedAt     time.Time `json:"created_at"`
}

// Image is one analyzed image, keyed by the SHA-256 of its bytes. Records
// are append-only: every analyzed image becomes a comparison candidate for
// later submissions.
type Image struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	URL      string `gorm:"size:2048" json:"url"`
	SourceID string `gorm:"size:255" json:"source_id"`
	Digest   string `gorm:"size:64;uniqueIndex;not null" json:"digest"`
	// PHash is a perceptual fingerprint (hex), compared by Hamming
	// distance, never by equality.
	PHash         string    `gorm:"size:64" json:"phash"`
	Reused        bool      `json:"reused"`
	Similarity    float64   `json:"similarity"`
	MatchedDigest string    `gorm:"size:64" json:"matched_digest,omitempty"`
	FirstAppeared time.Time `json:"first_appeared"`
}
