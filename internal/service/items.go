package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/grocerly/backend/internal/cache"
	"github.com/grocerly/backend/internal/model"
)

// ItemStore is the slice of the durable store the item pipeline consumes.
type ItemStore interface {
	ListItems(ctx context.Context) ([]model.Item, error)
	CreateItem(ctx context.Context, item model.Item) error
	UpdateItem(ctx context.Context, item model.Item) error
	DeleteItem(ctx context.Context, id string) error
}

// Broadcaster fans a realtime event out to every connected subscriber,
// including the originator.
type Broadcaster interface {
	Broadcast(event string, data any)
}

// ItemService runs every item mutation through the same pipeline:
// validate -> persist -> cache update -> broadcast. The cache and the
// subscribers only ever see state the store has already accepted.
type ItemService struct {
	store     ItemStore
	items     *cache.Envelope[model.Item]
	broadcast Broadcaster
	validate  *validator.Validate
}

func NewItemService(store ItemStore, items *cache.Envelope[model.Item], broadcast Broadcaster) *ItemService {
	return &ItemService{
		store:     store,
		items:     items,
		broadcast: broadcast,
		validate:  newValidator(),
	}
}

// Add validates the payload, assigns a fresh id and persists the item before
// the cache or any subscriber sees it.
func (s *ItemService) Add(ctx context.Context, item model.Item) (model.Item, error) {
	if err := s.validate.Struct(item); err != nil {
		return model.Item{}, asValidationError(err)
	}

	now := time.Now()
	item.ID = uuid.NewString()
	item.CreatedAt = now
	item.UpdatedAt = now
	item.DeletedAt = nil
	item.IsDeleted = false

	if err := s.store.CreateItem(ctx, item); err != nil {
		return model.Item{}, fmt.Errorf("create item: %w", err)
	}

	s.items.Upsert(item.ID, item)
	s.broadcast.Broadcast(model.EventNewItem, item)
	log.Printf("[Items] New item added -> %s | %s", item.ID, item.Name)
	return item, nil
}

// Update persists the new state of an existing item by id.
func (s *ItemService) Update(ctx context.Context, item model.Item) (model.Item, error) {
	if err := s.validateExisting(item); err != nil {
		return model.Item{}, err
	}

	item.UpdatedAt = time.Now()

	if err := s.store.UpdateItem(ctx, item); err != nil {
		return model.Item{}, fmt.Errorf("update item: %w", err)
	}

	s.items.Upsert(item.ID, item)
	s.broadcast.Broadcast(model.EventUpdateItem, item)
	log.Printf("[Items] Item updated -> %s | %s", item.ID, item.Name)
	return item, nil
}

// Delete soft-deletes: the row is flagged and timestamped but kept until the
// retention sweeper purges it. Listings stop returning it immediately.
func (s *ItemService) Delete(ctx context.Context, item model.Item) (model.Item, error) {
	if err := s.validateExisting(item); err != nil {
		return model.Item{}, err
	}

	now := time.Now()
	item.UpdatedAt = now
	item.DeletedAt = &now
	item.IsDeleted = true

	if err := s.store.UpdateItem(ctx, item); err != nil {
		return model.Item{}, fmt.Errorf("delete item: %w", err)
	}

	// The soft-deleted entry stays cached so the sweeper can see it.
	s.items.Upsert(item.ID, item)
	s.broadcast.Broadcast(model.EventRemoveItem, item)
	log.Printf("[Items] Item deleted -> %s | %s", item.ID, item.Name)
	return item, nil
}

// List serves non-deleted items from the cache while it is fresh and
// otherwise rebuilds the whole envelope from the store.
func (s *ItemService) List(ctx context.Context) ([]model.Item, error) {
	now := time.Now()
	if entries, ok := s.items.Get(now); ok {
		return liveItems(entries), nil
	}

	all, err := s.store.ListItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}

	entries := make(map[string]model.Item, len(all))
	for _, item := range all {
		entries[item.ID] = item
	}
	s.items.Replace(entries, now)

	return liveItems(entries), nil
}

func (s *ItemService) validateExisting(item model.Item) error {
	if item.ID == "" {
		return newValidationError(`"_id" is required`)
	}
	if err := s.validate.Struct(item); err != nil {
		return asValidationError(err)
	}
	return nil
}

func liveItems(entries map[string]model.Item) []model.Item {
	out := make([]model.Item, 0, len(entries))
	for _, item := range entries {
		if item.IsDeleted {
			continue
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
