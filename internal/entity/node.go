package entity

import (
	"fmt"

	"github.com/rocketscienceinc/guessgame-backend/internal/apperror"
)

// RootID is the pre-provisioned id every game starts from.
const RootID int64 = 1

type Kind string

const (
	KindQuestion Kind = "question"
	KindLeaf     Kind = "leaf"
)

// Side selects one of the two branches of a question.
type Side string

const (
	SideYes Side = "yes"
	SideNo  Side = "no"
)

func ParseSide(value string) (Side, error) {
	switch Side(value) {
	case SideYes, SideNo:
		return Side(value), nil
	default:
		return "", fmt.Errorf("%w: %q", apperror.ErrInvalidChoice, value)
	}
}

type Node struct {
	ID    int64  `json:"id"`
	Kind  Kind   `json:"kind"`
	Text  string `json:"text"`
	YesID int64  `json:"yes_id,omitempty"`
	NoID  int64  `json:"no_id,omitempty"`
}

func NewLeaf(id int64, text string) *Node {
	return &Node{
		ID:   id,
		Kind: KindLeaf,
		Text: text,
	}
}

func (that *Node) IsLeaf() bool {
	return that.Kind == KindLeaf
}

func (that *Node) IsQuestion() bool {
	return that.Kind == KindQuestion
}

// Child returns the id behind the given branch of a question.
func (that *Node) Child(side Side) (int64, error) {
	if !that.IsQuestion() {
		return 0, fmt.Errorf("%w: node %d is not a question", apperror.ErrInvalidState, that.ID)
	}

	if side == SideYes {
		return that.YesID, nil
	}

	return that.NoID, nil
}

// ToQuestion converts a leaf into a question in place, keeping its id.
func (that *Node) ToQuestion(text string, yesID, noID int64) error {
	if !that.IsLeaf() {
		return fmt.Errorf("%w: node %d is already a question", apperror.ErrInvalidState, that.ID)
	}

	that.Kind = KindQuestion
	that.Text = text
	that.YesID = yesID
	that.NoID = noID

	return nil
}

// Validate checks the local shape of a node: leaves carry no children,
// questions carry two.
func (that *Node) Validate() error {
	switch that.Kind {
	case KindLeaf:
		if that.YesID != 0 || that.NoID != 0 {
			return fmt.Errorf("%w: leaf %d has children", apperror.ErrInvalidState, that.ID)
		}
	case KindQuestion:
		if that.YesID == 0 || that.NoID == 0 {
			return fmt.Errorf("%w: question %d is missing a child", apperror.ErrInvalidState, that.ID)
		}
	default:
		return fmt.Errorf("%w: node %d has unknown kind %q", apperror.ErrInvalidState, that.ID, that.Kind)
	}

	return nil
}

// Summary is the read-only aggregate over the stored tree.
type Summary struct {
	LeafCount     int     `json:"leaf_count"`
	QuestionCount int     `json:"question_count"`
	RecentLeaves  []*Node `json:"recent_leaves"`
}
