// Palette - Illustrator Recommendation Feature Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palette

package catalog

import (
	"time"
)

// Category is the closed set of work types an item can belong to.
// Values read from storage are kept verbatim even when they are not one of
// the known constants; they score as unknown instead of being rejected.
type Category string

// Known categories.
const (
	CategoryCharacterDesign Category = "character_design"
	CategoryLive2DModel     Category = "live2d_model"
	CategoryIllustration    Category = "illustration"
	CategoryEmote           Category = "emote"
	CategoryOverlay         Category = "overlay"
	CategoryThumbnail       Category = "thumbnail"
	CategoryBanner          Category = "banner"
	CategoryLogo            Category = "logo"
)

// Categories lists every known category in display order.
var Categories = []Category{
	CategoryCharacterDesign,
	CategoryLive2DModel,
	CategoryIllustration,
	CategoryEmote,
	CategoryOverlay,
	CategoryThumbnail,
	CategoryBanner,
	CategoryLogo,
}

// Known reports whether c is one of the closed-set categories.
func (c Category) Known() bool {
	for _, k := range Categories {
		if c == k {
			return true
		}
	}
	return false
}

// Item is a published creative work.
type Item struct {
	// ID is the opaque, unique item identifier.
	ID string `json:"id" validate:"required"`

	// Title is the display title.
	Title string `json:"title"`

	// Description is free text supplied by the creator.
	Description string `json:"description,omitempty"`

	// Category is the work type. May be empty or unknown.
	Category Category `json:"category"`

	// Style is a free-form style label. Optional.
	Style string `json:"style,omitempty"`

	// Tags is the unordered tag set. May be empty.
	Tags []string `json:"tags" validate:"dive,required,nocomma"`

	// CreatorID references the owning illustrator.
	CreatorID string `json:"creator_id" validate:"required"`

	// Public marks the item as visible in the marketplace.
	Public bool `json:"public"`

	// EngagementCount is the non-negative popularity signal.
	EngagementCount int64 `json:"engagement_count" validate:"gte=0"`

	// CreatedAt is when the item was published.
	CreatedAt time.Time `json:"created_at" validate:"required"`
}

// ApprovalEvent is a user's explicit like (Approved=true) or dislike on an item.
type ApprovalEvent struct {
	UserID    string                 `json:"user_id" validate:"required"`
	ItemID    string                 `json:"item_id" validate:"required"`
	Approved  bool                   `json:"approved"`
	Context   map[string]interface{} `json:"context,omitempty"`
	CreatedAt time.Time              `json:"created_at" validate:"required"`
}

// BehaviorEvent is an implicit interaction such as a view or a bookmark.
// Behavior events are read and counted but no derived structure consumes them.
type BehaviorEvent struct {
	UserID    string    `json:"user_id" validate:"required"`
	ItemID    string    `json:"item_id" validate:"required"`
	Action    string    `json:"action" validate:"required"`
	CreatedAt time.Time `json:"created_at" validate:"required"`
}

// FeatureVector is the fixed-shape numeric summary of one item.
type FeatureVector struct {
	// CategoryScore is the hand-assigned category weight in [0,1].
	CategoryScore float64 `json:"category_score"`

	// StyleScore is the hand-assigned style weight in [0,1].
	StyleScore float64 `json:"style_score"`

	// TagVector has one slot per reference tag, 1.0 where an item tag matched.
	TagVector []float64 `json:"tag_vector"`

	// PopularityScore is the engagement count, raw unless normalization is enabled.
	PopularityScore float64 `json:"popularity_score"`

	// RecencyScore decays linearly from 1 at publication to 0 after a year.
	RecencyScore float64 `json:"recency_score"`
}

// ItemFeatures pairs an item with its feature vector.
type ItemFeatures struct {
	Item     Item          `json:"item"`
	Features FeatureVector `json:"features"`
}

// UserPreferenceProfile folds one user's likes into raw count distributions.
type UserPreferenceProfile struct {
	UserID string `json:"user_id"`

	// LikedItems is in approval order.
	LikedItems []string `json:"liked_items"`

	Categories map[string]int `json:"categories"`
	Styles     map[string]int `json:"styles"`
	Tags       map[string]int `json:"tags"`
	Creators   map[string]int `json:"creators"`
}

// NewUserPreferenceProfile returns an empty profile with initialized maps.
func NewUserPreferenceProfile(userID string) *UserPreferenceProfile {
	return &UserPreferenceProfile{
		UserID:     userID,
		LikedItems: []string{},
		Categories: make(map[string]int),
		Styles:     make(map[string]int),
		Tags:       make(map[string]int),
		Creators:   make(map[string]int),
	}
}

// SimilarityMatrix maps item id to item id to similarity in [0,1].
// Both directions are stored and there is no diagonal.
type SimilarityMatrix map[string]map[string]float64

// Get returns similarity(a, b) and whether the pair was computed.
func (m SimilarityMatrix) Get(a, b string) (float64, bool) {
	row, ok := m[a]
	if !ok {
		return 0, false
	}
	v, ok := row[b]
	return v, ok
}

// Pairs returns the number of stored ordered pairs.
func (m SimilarityMatrix) Pairs() int {
	n := 0
	for _, row := range m {
		n += len(row)
	}
	return n
}

// AffinityMatrix maps user id to item id to 1.0 for every positive approval.
// Absence means no signal, never a negative one.
type AffinityMatrix map[string]map[string]float64

// RankedCount is one entry of a ranked tally.
type RankedCount struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// CreatorTotal aggregates a creator's catalog footprint.
type CreatorTotal struct {
	CreatorID       string `json:"creator_id"`
	ItemCount       int    `json:"item_count"`
	TotalEngagement int64  `json:"total_engagement"`
}

// GlobalStats holds the ranked top-K lists computed over the full catalog.
type GlobalStats struct {
	TopCategories []RankedCount  `json:"top_categories"`
	TopStyles     []RankedCount  `json:"top_styles"`
	TopTags       []RankedCount  `json:"top_tags"`
	TopCreators   []CreatorTotal `json:"top_creators"`
}
