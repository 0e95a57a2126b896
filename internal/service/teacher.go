package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rocketscienceinc/guessgame-backend/internal/entity"
)

// Teacher grows the tree after a wrong guess.
type Teacher struct {
	logger *slog.Logger
	tree   *DecisionTree
}

func NewTeacher(logger *slog.Logger, tree *DecisionTree) *Teacher {
	return &Teacher{
		logger: logger.With("component", "teacher"),
		tree:   tree,
	}
}

// Teach replaces the wrong leaf with a question that tells newTitle apart
// from the old title. The old title moves to a new leaf; side is the branch
// newTitle occupies. Returns the rewritten node.
func (that *Teacher) Teach(ctx context.Context, leafID int64, newTitle, question string, side entity.Side) (*entity.Node, error) {
	log := that.logger.With("method", "Teach", "leaf_id", leafID)

	err := that.tree.Atomic(ctx, leafID, func(tree *DecisionTree) error {
		wrong, err := tree.Get(ctx, leafID)
		if err != nil {
			return err
		}

		newID, err := tree.CreateLeaf(ctx, newTitle)
		if err != nil {
			return err
		}

		movedID, err := tree.CreateLeaf(ctx, wrong.Text)
		if err != nil {
			return err
		}

		yesID, noID := newID, movedID
		if side == entity.SideNo {
			yesID, noID = movedID, newID
		}

		return tree.RewriteToQuestion(ctx, leafID, question, yesID, noID)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to teach: %w", err)
	}

	node, err := that.tree.Get(ctx, leafID)
	if err != nil {
		return nil, err
	}

	log.Info("tree learned a new title", "title", newTitle, "yes_id", node.YesID, "no_id", node.NoID)

	return node, nil
}
