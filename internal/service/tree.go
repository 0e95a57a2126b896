package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rocketscienceinc/guessgame-backend/internal/apperror"
	"github.com/rocketscienceinc/guessgame-backend/internal/entity"
	"github.com/rocketscienceinc/guessgame-backend/internal/repository"
)

type nodeRepo interface {
	repository.NodeTx
	Atomic(ctx context.Context, id int64, fn func(tx repository.NodeTx) error) error
}

// DecisionTree enforces the node invariants on top of a node store.
type DecisionTree struct {
	logger *slog.Logger

	store repository.NodeTx
	repo  nodeRepo
}

func NewDecisionTree(logger *slog.Logger, repo nodeRepo) *DecisionTree {
	return &DecisionTree{
		logger: logger.With("component", "tree"),
		store:  repo,
		repo:   repo,
	}
}

func (that *DecisionTree) Get(ctx context.Context, id int64) (*entity.Node, error) {
	node, err := that.store.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get node: %w", err)
	}

	if err = node.Validate(); err != nil {
		return nil, err
	}

	return node, nil
}

func (that *DecisionTree) CreateLeaf(ctx context.Context, text string) (int64, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, fmt.Errorf("%w: leaf text is empty", apperror.ErrValidation)
	}

	id, err := that.store.CreateLeaf(ctx, text)
	if err != nil {
		return 0, fmt.Errorf("failed to create leaf: %w", err)
	}

	return id, nil
}

// RewriteToQuestion turns the leaf with the given id into a question in
// place. Parents keep pointing at the same id and now find the question.
func (that *DecisionTree) RewriteToQuestion(ctx context.Context, id int64, text string, yesID, noID int64) error {
	log := that.logger.With("method", "RewriteToQuestion", "node_id", id)

	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("%w: question text is empty", apperror.ErrValidation)
	}

	node, err := that.Get(ctx, id)
	if err != nil {
		return err
	}

	// children must be fresh nodes distinct from the target, otherwise the
	// reachable graph could loop
	if yesID == id || noID == id || yesID == noID {
		log.Error("rejected rewrite with overlapping children", "yes_id", yesID, "no_id", noID)
		return fmt.Errorf("%w: children of node %d must be two other nodes", apperror.ErrInvalidState, id)
	}

	for _, childID := range []int64{yesID, noID} {
		if _, err = that.Get(ctx, childID); err != nil {
			return fmt.Errorf("failed to resolve child: %w", err)
		}
	}

	if err = node.ToQuestion(text, yesID, noID); err != nil {
		log.Error("rejected rewrite of a non-leaf", "error", err)
		return err
	}

	if err = that.store.Rewrite(ctx, node.ID, node.Text, node.YesID, node.NoID); err != nil {
		return fmt.Errorf("failed to rewrite node: %w", err)
	}

	return nil
}

// Atomic runs fn against a tree whose writes are applied all at once. The
// id names the node whose concurrent modification aborts the whole unit.
func (that *DecisionTree) Atomic(ctx context.Context, id int64, fn func(tree *DecisionTree) error) error {
	// a tree handed out by Atomic has no repo: nested units join the
	// surrounding transaction and commit or roll back with it
	if that.repo == nil {
		return fn(that)
	}

	return that.repo.Atomic(ctx, id, func(tx repository.NodeTx) error {
		return fn(&DecisionTree{
			logger: that.logger,
			store:  tx,
		})
	})
}
