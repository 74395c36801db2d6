// Package mirror hosts the server-side cart the client mirrors into.
// It is best-effort from the client's point of view and never authoritative.
package mirror

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/oakmart/storefront/internal/domain"
)

type Service struct {
	repo  CartRepository
	cache CartCache
	log   *slog.Logger
	sfg   singleflight.Group // Prevents cache stampede
}

func NewService(repo CartRepository, cache CartCache, log *slog.Logger) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
		log:   log,
	}
}

func (s *Service) GetCart(ctx context.Context, sessionID string) (*domain.Cart, error) {
	// Use singleflight so concurrent cache misses for the same session hit
	// the repository once.
	v, err, _ := s.sfg.Do(sessionID, func() (interface{}, error) {
		cart, err := s.cache.Get(ctx, sessionID)
		if err == nil {
			return cart, nil
		}

		if !errors.Is(err, ErrCacheMiss) {
			s.log.Warn("cache get error", "error", err) // log cache error but continue
		}

		cart, errGet := s.repo.GetCart(ctx, sessionID)
		if errGet != nil && errors.Is(errGet, ErrCartNotFound) {
			// Unknown session gets an empty cart.
			return &domain.Cart{
				SessionID: sessionID,
				Items:     nil,
				CreatedAt: time.Now(),
				UpdatedAt: time.Now(),
			}, nil
		}
		if errGet != nil {
			return nil, errGet
		}

		go func() {
			if errSet := s.cache.Set(context.Background(), sessionID, cart); errSet != nil {
				s.log.Warn("cache set error", "error", errSet)
			}
		}()

		return cart, nil
	})

	if err != nil {
		return nil, err
	}

	return v.(*domain.Cart), nil
}

func (s *Service) AddItem(ctx context.Context, sessionID string, item domain.CartItem) error {
	if err := s.repo.AddItem(ctx, sessionID, item); err != nil {
		s.log.Warn("repo add item error", "error", err)
		return err
	}

	s.invalidateCache(sessionID)
	return nil
}

func (s *Service) UpdateQuantity(ctx context.Context, sessionID string, productID int64, quantity int) error {
	if err := s.repo.UpdateItemQuantity(ctx, sessionID, productID, quantity); err != nil {
		s.log.Warn("repo update item quantity error", "error", err)
		return err
	}

	s.invalidateCache(sessionID)
	return nil
}

func (s *Service) RemoveItem(ctx context.Context, sessionID string, productID int64) error {
	if err := s.repo.RemoveItem(ctx, sessionID, productID); err != nil {
		s.log.Warn("repo remove item error", "error", err)
		return err
	}

	s.invalidateCache(sessionID)
	return nil
}

func (s *Service) ClearCart(ctx context.Context, sessionID string) error {
	err := s.repo.DeleteCart(ctx, sessionID)
	if err != nil && !errors.Is(err, ErrCartNotFound) {
		s.log.Warn("repo delete cart error", "error", err)
		return err
	}

	s.invalidateCache(sessionID)
	return nil
}

func (s *Service) invalidateCache(sessionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, sessionID); err != nil {
		s.log.Warn("cache invalidate error", "error", err)
	}
}
