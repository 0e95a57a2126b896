package service

import (
	"context"
	"fmt"

	"github.com/rocketscienceinc/guessgame-backend/internal/apperror"
	"github.com/rocketscienceinc/guessgame-backend/internal/entity"
)

type nodeReader interface {
	Get(ctx context.Context, id int64) (*entity.Node, error)
}

// GameSession drives one player's entity.Session through the tree:
// at_question --answer--> at_question | at_leaf,
// at_leaf --confirm--> won, at_leaf --reject--> lost, any --undo--> previous node.
type GameSession struct {
	tree nodeReader
}

func NewGameSession(tree nodeReader) *GameSession {
	return &GameSession{
		tree: tree,
	}
}

// Start resets the session to the root and returns the root node.
func (that *GameSession) Start(ctx context.Context, session *entity.Session) (*entity.Node, error) {
	root, err := that.tree.Get(ctx, entity.RootID)
	if err != nil {
		return nil, fmt.Errorf("failed to get root: %w", err)
	}

	session.Reset()
	session.ResolveState(root)

	return root, nil
}

// Current returns the node the session points at. A session in play takes
// its state from that node, so a leaf taught by another player reads as a
// question from now on.
func (that *GameSession) Current(ctx context.Context, session *entity.Session) (*entity.Node, error) {
	node, err := that.tree.Get(ctx, session.CurrentNodeID)
	if err != nil {
		return nil, fmt.Errorf("failed to get current node: %w", err)
	}

	if !session.IsTerminal() {
		session.ResolveState(node)
	}

	return node, nil
}

func (that *GameSession) Answer(ctx context.Context, session *entity.Session, side entity.Side) (*entity.Node, error) {
	current, err := that.Current(ctx, session)
	if err != nil {
		return nil, err
	}

	if session.State != entity.StateAtQuestion {
		return nil, fmt.Errorf("%w: answer from %q", apperror.ErrInvalidTransition, session.State)
	}

	nextID, err := current.Child(side)
	if err != nil {
		return nil, err
	}

	next, err := that.tree.Get(ctx, nextID)
	if err != nil {
		return nil, fmt.Errorf("failed to get child node: %w", err)
	}

	session.Push(next.ID)
	session.ResolveState(next)

	return next, nil
}

// Undo steps back to the previously visited node. With an empty history it
// leaves the session as is and returns the current node.
func (that *GameSession) Undo(ctx context.Context, session *entity.Session) (*entity.Node, error) {
	if len(session.History) == 0 {
		return that.Current(ctx, session)
	}

	previous, err := that.tree.Get(ctx, session.History[len(session.History)-1])
	if err != nil {
		return nil, fmt.Errorf("failed to get previous node: %w", err)
	}

	session.Pop()
	session.ResolveState(previous)
	session.PendingTitle = ""

	return previous, nil
}

func (that *GameSession) ConfirmWin(ctx context.Context, session *entity.Session) (*entity.Node, error) {
	leaf, err := that.Current(ctx, session)
	if err != nil {
		return nil, err
	}

	if session.State != entity.StateAtLeaf {
		return nil, fmt.Errorf("%w: confirm win from %q", apperror.ErrInvalidTransition, session.State)
	}

	session.State = entity.StateWon

	return leaf, nil
}

// RejectGuess marks the guess as wrong and returns the leaf to teach.
func (that *GameSession) RejectGuess(ctx context.Context, session *entity.Session) (*entity.Node, error) {
	leaf, err := that.Current(ctx, session)
	if err != nil {
		return nil, err
	}

	if session.State != entity.StateAtLeaf {
		return nil, fmt.Errorf("%w: reject guess from %q", apperror.ErrInvalidTransition, session.State)
	}

	session.State = entity.StateLost

	return leaf, nil
}
