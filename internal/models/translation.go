package models

import (
	"time"
)

// Tag is a label shared across translations. Names are globally unique;
// tags are created lazily and never deleted, even when no translation
// references them anymore.
type Tag struct {
	ID          string `json:"id" bson:"_id,omitempty"`
	Name        string `json:"name" bson:"name" validate:"required,max=100"`
	Description string `json:"description,omitempty" bson:"description,omitempty" validate:"max=500"`
}

// Translation is a single localized message, identified logically by the
// (Key, Locale) pair, which is unique across the catalog. Version backs the
// optimistic-concurrency check and is advanced by the storage layer on
// every successful write.
type Translation struct {
	ID        string    `json:"id" bson:"_id,omitempty"`
	Key       string    `json:"key" bson:"translationKey" validate:"required,max=255"`
	Locale    string    `json:"locale" bson:"locale" validate:"required,max=10"`
	Content   string    `json:"content" bson:"content" validate:"required"`
	Tags      []Tag     `json:"tags,omitempty" bson:"tags,omitempty"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
	Version   int64     `json:"version" bson:"version"`
}

// TagNames returns the names of the translation's tags.
func (t *Translation) TagNames() []string {
	names := make([]string, 0, len(t.Tags))
	for _, tag := range t.Tags {
		names = append(names, tag.Name)
	}
	return names
}

// TranslationRequest is the create/update payload. Version is only
// meaningful on updates: when set, it is the version the caller read and
// the write fails if the stored version has moved past it.
type TranslationRequest struct {
	Key     string   `json:"key" validate:"required,max=255"`
	Locale  string   `json:"locale" validate:"required,max=10"`
	Content string   `json:"content" validate:"required"`
	Tags    []string `json:"tags,omitempty" validate:"dive,required,max=100"`
	Version *int64   `json:"version,omitempty"`
}

// TranslationPage is one page of search results.
type TranslationPage struct {
	Content       []Translation `json:"content"`
	Page          int           `json:"page"`
	Size          int           `json:"size"`
	TotalElements int64         `json:"totalElements"`
	TotalPages    int64         `json:"totalPages"`
}
