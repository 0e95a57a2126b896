package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/rocketscienceinc/guessgame-backend/internal/apperror"
	"github.com/rocketscienceinc/guessgame-backend/internal/entity"
)

const (
	nodeKeyPrefix    = "node:"
	nodeSeqKey       = "node:seq"
	leafIndexKey     = "nodes:leaves"
	questionIndexKey = "nodes:questions"
)

// NodeTx is the set of node operations available inside Atomic.
type NodeTx interface {
	GetByID(ctx context.Context, id int64) (*entity.Node, error)
	CreateLeaf(ctx context.Context, text string) (int64, error)
	Rewrite(ctx context.Context, id int64, text string, yesID, noID int64) error
}

type NodeRepository interface {
	NodeTx

	CountByKind(ctx context.Context) (leaves, questions int, err error)
	RecentLeaves(ctx context.Context, limit int) ([]*entity.Node, error)

	// Seed provisions the root as a leaf when it does not exist yet.
	Seed(ctx context.Context, rootText string) (bool, error)

	// Atomic runs fn against a transactional view guarding the node with the
	// given id. Writes made through tx become visible all at once or not at all.
	Atomic(ctx context.Context, id int64, fn func(tx NodeTx) error) error
}

type dbNode struct {
	client *redis.Client
}

func NewNodeRepository(client *redis.Client) NodeRepository {
	return &dbNode{
		client: client,
	}
}

func nodeKey(id int64) string {
	return nodeKeyPrefix + strconv.FormatInt(id, 10)
}

func (that *dbNode) GetByID(ctx context.Context, id int64) (*entity.Node, error) {
	return getNode(ctx, that.client, id)
}

func (that *dbNode) CreateLeaf(ctx context.Context, text string) (int64, error) {
	id, err := that.client.Incr(ctx, nodeSeqKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to allocate node id: %w", err)
	}

	if _, err = that.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		return queueNode(ctx, pipe, entity.NewLeaf(id, text))
	}); err != nil {
		return 0, fmt.Errorf("failed to create leaf: %w", err)
	}

	return id, nil
}

func (that *dbNode) Rewrite(ctx context.Context, id int64, text string, yesID, noID int64) error {
	node := &entity.Node{ID: id, Kind: entity.KindQuestion, Text: text, YesID: yesID, NoID: noID}

	if _, err := that.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		return queueNode(ctx, pipe, node)
	}); err != nil {
		return fmt.Errorf("failed to rewrite node: %w", err)
	}

	return nil
}

func (that *dbNode) CountByKind(ctx context.Context) (int, int, error) {
	var leaves, questions *redis.IntCmd

	if _, err := that.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		leaves = pipe.ZCard(ctx, leafIndexKey)
		questions = pipe.SCard(ctx, questionIndexKey)
		return nil
	}); err != nil {
		return 0, 0, fmt.Errorf("failed to count nodes: %w", err)
	}

	return int(leaves.Val()), int(questions.Val()), nil
}

func (that *dbNode) RecentLeaves(ctx context.Context, limit int) ([]*entity.Node, error) {
	if limit <= 0 {
		return []*entity.Node{}, nil
	}

	members, err := that.client.ZRevRange(ctx, leafIndexKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list recent leaves: %w", err)
	}

	if len(members) == 0 {
		return []*entity.Node{}, nil
	}

	keys := make([]string, 0, len(members))
	for _, member := range members {
		keys = append(keys, nodeKeyPrefix+member)
	}

	values, err := that.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get recent leaves: %w", err)
	}

	leaves := make([]*entity.Node, 0, len(values))
	for _, value := range values {
		raw, ok := value.(string)
		if !ok {
			continue
		}

		var node entity.Node
		if err = json.Unmarshal([]byte(raw), &node); err != nil {
			return nil, fmt.Errorf("failed to unmarshal node: %w", err)
		}

		leaves = append(leaves, &node)
	}

	return leaves, nil
}

func (that *dbNode) Seed(ctx context.Context, rootText string) (bool, error) {
	created := false
	rootKey := nodeKey(entity.RootID)

	err := that.client.Watch(ctx, func(tx *redis.Tx) error {
		exists, err := tx.Exists(ctx, rootKey).Result()
		if err != nil {
			return err
		}

		if exists == 1 {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if err := queueNode(ctx, pipe, entity.NewLeaf(entity.RootID, rootText)); err != nil {
				return err
			}
			pipe.SetNX(ctx, nodeSeqKey, entity.RootID, 0)
			return nil
		})
		if err == nil {
			created = true
		}

		return err
	}, rootKey)
	if err != nil {
		return false, fmt.Errorf("failed to seed root: %w", err)
	}

	return created, nil
}

func (that *dbNode) Atomic(ctx context.Context, id int64, fn func(tx NodeTx) error) error {
	err := that.client.Watch(ctx, func(tx *redis.Tx) error {
		view := &txNode{tx: tx, pending: make(map[int64]*entity.Node)}

		if err := fn(view); err != nil {
			return err
		}

		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, nodeID := range view.order {
				if err := queueNode(ctx, pipe, view.pending[nodeID]); err != nil {
					return err
				}
			}
			return nil
		})

		return err
	}, nodeKey(id))

	if errors.Is(err, redis.TxFailedErr) {
		return fmt.Errorf("%w: node %d", apperror.ErrConflict, id)
	}

	return err
}

// txNode buffers writes until the surrounding MULTI/EXEC. Reads see the
// buffered writes first.
type txNode struct {
	tx      *redis.Tx
	pending map[int64]*entity.Node
	order   []int64
}

func (that *txNode) GetByID(ctx context.Context, id int64) (*entity.Node, error) {
	if node, ok := that.pending[id]; ok {
		copied := *node
		return &copied, nil
	}

	return getNode(ctx, that.tx, id)
}

func (that *txNode) CreateLeaf(ctx context.Context, text string) (int64, error) {
	id, err := that.tx.Incr(ctx, nodeSeqKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to allocate node id: %w", err)
	}

	that.stage(entity.NewLeaf(id, text))

	return id, nil
}

func (that *txNode) Rewrite(_ context.Context, id int64, text string, yesID, noID int64) error {
	that.stage(&entity.Node{ID: id, Kind: entity.KindQuestion, Text: text, YesID: yesID, NoID: noID})

	return nil
}

func (that *txNode) stage(node *entity.Node) {
	if _, ok := that.pending[node.ID]; !ok {
		that.order = append(that.order, node.ID)
	}

	that.pending[node.ID] = node
}

func getNode(ctx context.Context, client redis.Cmdable, id int64) (*entity.Node, error) {
	response, err := client.Get(ctx, nodeKey(id)).Result()

	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: id %d", apperror.ErrNotFound, id)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get node by id: %w", err)
	}

	var node entity.Node
	if err = json.Unmarshal([]byte(response), &node); err != nil {
		return nil, fmt.Errorf("failed to unmarshal node: %w", err)
	}

	return &node, nil
}

// queueNode writes the node and keeps the kind indexes in step with it.
func queueNode(ctx context.Context, pipe redis.Pipeliner, node *entity.Node) error {
	nodeJSON, err := json.Marshal(node)
	if err != nil {
		return fmt.Errorf("could not marshal node: %w", err)
	}

	member := strconv.FormatInt(node.ID, 10)

	pipe.Set(ctx, nodeKey(node.ID), nodeJSON, 0)

	if node.IsLeaf() {
		pipe.ZAdd(ctx, leafIndexKey, redis.Z{Score: float64(node.ID), Member: member})
		pipe.SRem(ctx, questionIndexKey, member)
		return nil
	}

	pipe.ZRem(ctx, leafIndexKey, member)
	pipe.SAdd(ctx, questionIndexKey, member)

	return nil
}
