package models

import "time"

// ContentType tags what kind of learnable unit a review item is.
type ContentType string

const (
	ContentKana       ContentType = "kana"
	ContentKanji      ContentType = "kanji"
	ContentVocabulary ContentType = "vocabulary"
	ContentSentence   ContentType = "sentence"
	ContentCustom     ContentType = "custom"
)

// ValidContentType reports whether t is one of the known content types.
func ValidContentType(t ContentType) bool {
	switch t {
	case ContentKana, ContentKanji, ContentVocabulary, ContentSentence, ContentCustom:
		return true
	}
	return false
}

// ReviewItem is one trackable unit a user has saved for study.
// The scheduling engine reads identity only; schedule state lives in
// ScheduleState keyed by (UserID, ItemID).
type ReviewItem struct {
	ID          int64       `json:"id" db:"id"`
	UserID      int64       `json:"user_id" db:"user_id"`
	ContentType ContentType `json:"content_type" db:"content_type"`
	Front       string      `json:"front" db:"front"`       // prompt side: kana, kanji, word, sentence
	Back        string      `json:"back" db:"back"`         // answer side: meaning / translation
	Reading     string      `json:"reading" db:"reading"`   // optional kana reading
	ListIDs     []int64     `json:"list_ids" db:"-"`        // owning collections, stored as CSV
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
}

// InList reports whether the item belongs to the given list.
func (i ReviewItem) InList(listID int64) bool {
	for _, id := range i.ListIDs {
		if id == listID {
			return true
		}
	}
	return false
}
