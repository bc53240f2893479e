package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"retailhub/backend/internal/domain"
	"retailhub/backend/internal/store"
	"retailhub/backend/internal/xid"
)

// CreateTransfer records a pending transfer. The source check here does not
// reserve stock; completion checks again.
func (s *Service) CreateTransfer(ctx context.Context, req domain.TransferCreateRequest) (domain.TransferResult, error) {
	defer s.metrics.Track("create_transfer", time.Now())

	switch {
	case req.FromShopID <= 0 || req.ToShopID <= 0 || req.ProductID <= 0:
		return s.transferOutcome("create_transfer", invalid("from_shop_id, to_shop_id and product_id are required"))
	case req.FromShopID == req.ToShopID:
		return s.transferOutcome("create_transfer", invalid("source and destination shops must differ"))
	case req.Quantity <= 0:
		return s.transferOutcome("create_transfer", invalid("quantity must be greater than zero"))
	}

	var created domain.StockTransfer
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.GetShop(ctx, req.ToShopID); err != nil {
			return wrapNotFound(err, "shop %d", req.ToShopID)
		}
		if err := ensureShopAndProduct(ctx, tx, req.FromShopID, req.ProductID); err != nil {
			return err
		}
		lookup, err := tx.LockStock(ctx, req.FromShopID, req.ProductID)
		if err != nil {
			return err
		}
		if !lookup.Found {
			return fmt.Errorf("%w for product %d in source shop %d: no stock record", store.ErrInsufficientStock, req.ProductID, req.FromShopID)
		}
		if lookup.Row.Quantity < req.Quantity {
			return fmt.Errorf("%w in source shop %d: available %d, requested %d",
				store.ErrInsufficientStock, req.FromShopID, lookup.Row.Quantity, req.Quantity)
		}

		created, err = tx.InsertTransfer(ctx, domain.StockTransfer{
			TransferNumber: xid.Number(xid.PrefixTransfer),
			FromShopID:     req.FromShopID,
			ToShopID:       req.ToShopID,
			ProductID:      req.ProductID,
			Quantity:       req.Quantity,
			Status:         domain.TransferPending,
			Notes:          strings.TrimSpace(req.Notes),
			CreatedBy:      actorID(ctx),
			CreatedAt:      s.now(),
		})
		return err
	})
	if err != nil {
		return s.transferOutcome("create_transfer", err)
	}
	return domain.TransferResult{
		Result:         ok("transfer created successfully"),
		TransferID:     created.ID,
		TransferNumber: created.TransferNumber,
		Transfer:       &created,
	}, nil
}

// CompleteTransfer moves the quantity out of the source shop and into the
// destination in one unit of work.
func (s *Service) CompleteTransfer(ctx context.Context, transferID int64) (domain.TransferResult, error) {
	defer s.metrics.Track("complete_transfer", time.Now())

	receiver := actorID(ctx)
	var completed domain.StockTransfer
	var entries []domain.LedgerEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		entries = entries[:0]
		transfer, err := lockPendingTransfer(ctx, tx, transferID, domain.TransferCompleted)
		if err != nil {
			return err
		}

		ref := &domain.Reference{Type: domain.ReferenceTransfer, ID: transfer.ID}
		out := movement{
			shopID:    transfer.FromShopID,
			productID: transfer.ProductID,
			qty:       transfer.Quantity,
			txType:    domain.TxTransferOut,
			ref:       ref,
			actorID:   receiver,
			notes:     "Transfer " + transfer.TransferNumber,
		}
		in := out
		in.shopID = transfer.ToShopID
		in.txType = domain.TxTransferIn

		// Rows are locked lower shop id first, whichever side it is on.
		if transfer.ToShopID < transfer.FromShopID {
			if _, err := tx.LockStock(ctx, transfer.ToShopID, transfer.ProductID); err != nil {
				return err
			}
		}
		_, outEntry, err := debit(ctx, tx, out)
		if err != nil {
			return err
		}
		_, inEntry, err := credit(ctx, tx, in, pricing{})
		if err != nil {
			return err
		}
		entries = append(entries, outEntry, inEntry)

		now := s.now()
		transfer.Status = domain.TransferCompleted
		transfer.ReceivedBy = &receiver
		transfer.CompletedAt = &now
		if err := tx.UpdateTransfer(ctx, transfer); err != nil {
			return err
		}
		completed = transfer
		return nil
	})
	if err != nil {
		return s.transferOutcome("complete_transfer", err)
	}

	s.afterCommit(ctx, "complete_transfer", entries)
	return domain.TransferResult{
		Result:         ok("transfer completed successfully"),
		TransferID:     completed.ID,
		TransferNumber: completed.TransferNumber,
		Transfer:       &completed,
	}, nil
}

func (s *Service) CancelTransfer(ctx context.Context, transferID int64) (domain.TransferResult, error) {
	defer s.metrics.Track("cancel_transfer", time.Now())

	var cancelled domain.StockTransfer
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		transfer, err := lockPendingTransfer(ctx, tx, transferID, domain.TransferCancelled)
		if err != nil {
			return err
		}
		transfer.Status = domain.TransferCancelled
		if err := tx.UpdateTransfer(ctx, transfer); err != nil {
			return err
		}
		cancelled = transfer
		return nil
	})
	if err != nil {
		return s.transferOutcome("cancel_transfer", err)
	}
	return domain.TransferResult{
		Result:         ok("transfer cancelled successfully"),
		TransferID:     cancelled.ID,
		TransferNumber: cancelled.TransferNumber,
		Transfer:       &cancelled,
	}, nil
}

func lockPendingTransfer(ctx context.Context, tx store.Tx, id int64, next domain.TransferStatus) (domain.StockTransfer, error) {
	transfer, err := tx.LockTransfer(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.StockTransfer{}, fmt.Errorf("transfer %d: %w", id, store.ErrNotFound)
		}
		return domain.StockTransfer{}, err
	}
	if !transfer.Status.CanTransitionTo(next) {
		return domain.StockTransfer{}, fmt.Errorf("transfer %s is %s: %w", transfer.TransferNumber, transfer.Status, store.ErrAlreadyProcessed)
	}
	return transfer, nil
}

func (s *Service) GetTransfer(ctx context.Context, id int64) (domain.StockTransfer, error) {
	return s.repo.GetTransfer(ctx, id)
}

func (s *Service) ListTransfers(ctx context.Context, filter domain.TransferFilter) ([]domain.StockTransfer, domain.Pagination, error) {
	filter.Page = normalizePage(filter.Page.Page, filter.Page.Limit)
	transfers, total, err := s.repo.ListTransfers(ctx, filter)
	if err != nil {
		return nil, domain.Pagination{}, err
	}
	return transfers, domain.NewPagination(filter.Page.Page, filter.Page.Limit, total), nil
}

func (s *Service) transferOutcome(op string, err error) (domain.TransferResult, error) {
	res, err := s.outcome(op, err)
	return domain.TransferResult{Result: res}, err
}
