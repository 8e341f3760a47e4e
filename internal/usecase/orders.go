package usecase

import (
	"context"
	"strconv"
)

// Orders answers read-only questions about placed orders.
type Orders struct {
	repo  OrderRepo
	cache OrderCache // optional
}

func NewOrders(repo OrderRepo, cache OrderCache) *Orders {
	return &Orders{repo: repo, cache: cache}
}

func (uc *Orders) ListPlaced(ctx context.Context) ([]OrderView, error) {
	list, err := uc.repo.ListPlaced(ctx)
	if err != nil {
		return nil, err
	}
	return NewOrderViews(list), nil
}

func (uc *Orders) ListByUser(ctx context.Context, userID int64) ([]OrderView, error) {
	list, err := uc.repo.ListPlacedByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return NewOrderViews(list), nil
}

// Status reads through the status cache, filling it on a miss.
func (uc *Orders) Status(ctx context.Context, orderID int64) (string, error) {
	key := strconv.FormatInt(orderID, 10)
	if uc.cache != nil {
		if s, ok, err := uc.cache.GetStatus(ctx, key); err == nil && ok {
			return s, nil
		}
	}
	o, err := uc.repo.GetPlaced(ctx, orderID)
	if err != nil {
		return "", err
	}
	if uc.cache != nil {
		_ = uc.cache.SetStatus(ctx, key, string(o.Status))
	}
	return string(o.Status), nil
}
