package services

import (
	"context"
	"errors"

	"github.com/localehub/translation-management-backend/internal/models"
	"github.com/localehub/translation-management-backend/internal/storage"
)

// TagRegistry resolves tag names to tag entities, creating missing ones
// lazily. Tags are never deleted; an orphaned tag stays resolvable.
type TagRegistry struct {
	store storage.TagStore
}

func NewTagRegistry(store storage.TagStore) *TagRegistry {
	return &TagRegistry{store: store}
}

// Resolve returns one tag per distinct name, creating tags that do not
// exist yet. A duplicate-create race (name uniqueness is enforced by the
// storage layer) is resolved by retrying the lookup exactly once before
// surfacing ErrTagConflict.
func (r *TagRegistry) Resolve(ctx context.Context, names []string) ([]models.Tag, error) {
	seen := make(map[string]bool, len(names))
	tags := make([]models.Tag, 0, len(names))

	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true

		if name == "" {
			return nil, newValidationError("tags", "tag name cannot be blank")
		}
		if len(name) > 100 {
			return nil, newValidationError("tags", "tag name must not exceed 100 characters")
		}

		tag, err := r.lookupOrCreate(ctx, name)
		if err != nil {
			return nil, err
		}
		tags = append(tags, *tag)
	}
	return tags, nil
}

func (r *TagRegistry) lookupOrCreate(ctx context.Context, name string) (*models.Tag, error) {
	tag, err := r.store.FindTagByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if tag != nil {
		return tag, nil
	}

	created, err := r.store.SaveTag(ctx, &models.Tag{Name: name})
	if err == nil {
		return created, nil
	}
	if !errors.Is(err, storage.ErrDuplicateKey) {
		return nil, err
	}

	// Another request created the tag between our lookup and save.
	tag, err = r.store.FindTagByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if tag == nil {
		return nil, ErrTagConflict
	}
	return tag, nil
}
