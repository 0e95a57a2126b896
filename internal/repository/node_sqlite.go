package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rocketscienceinc/guessgame-backend/internal/apperror"
	"github.com/rocketscienceinc/guessgame-backend/internal/entity"
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type sqliteNode struct {
	conn *sql.DB
}

func NewSQLiteNodeRepository(conn *sql.DB) NodeRepository {
	return &sqliteNode{
		conn: conn,
	}
}

func (that *sqliteNode) GetByID(ctx context.Context, id int64) (*entity.Node, error) {
	return (&sqliteTx{q: that.conn}).GetByID(ctx, id)
}

func (that *sqliteNode) CreateLeaf(ctx context.Context, text string) (int64, error) {
	var id int64

	err := that.inTx(ctx, func(tx *sqliteTx) error {
		var err error
		id, err = tx.CreateLeaf(ctx, text)
		return err
	})

	return id, err
}

func (that *sqliteNode) Rewrite(ctx context.Context, id int64, text string, yesID, noID int64) error {
	return (&sqliteTx{q: that.conn}).Rewrite(ctx, id, text, yesID, noID)
}

func (that *sqliteNode) CountByKind(ctx context.Context) (int, int, error) {
	query := `SELECT
		COALESCE(SUM(CASE WHEN is_question = 0 THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN is_question = 1 THEN 1 ELSE 0 END), 0)
	FROM nodes`

	var leaves, questions int
	if err := that.conn.QueryRowContext(ctx, query).Scan(&leaves, &questions); err != nil {
		return 0, 0, fmt.Errorf("can't count nodes: %w", err)
	}

	return leaves, questions, nil
}

func (that *sqliteNode) RecentLeaves(ctx context.Context, limit int) ([]*entity.Node, error) {
	if limit <= 0 {
		return []*entity.Node{}, nil
	}

	query := `SELECT id, text FROM nodes WHERE is_question = 0 ORDER BY id DESC LIMIT ?`

	rows, err := that.conn.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("can't list recent leaves: %w", err)
	}
	defer rows.Close()

	leaves := make([]*entity.Node, 0, limit)
	for rows.Next() {
		var (
			id   int64
			text string
		)
		if err = rows.Scan(&id, &text); err != nil {
			return nil, fmt.Errorf("can't scan leaf: %w", err)
		}

		leaves = append(leaves, entity.NewLeaf(id, text))
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("can't list recent leaves: %w", err)
	}

	return leaves, nil
}

func (that *sqliteNode) Seed(ctx context.Context, rootText string) (bool, error) {
	created := false

	err := that.inTx(ctx, func(tx *sqliteTx) error {
		result, err := tx.q.ExecContext(ctx,
			`INSERT OR IGNORE INTO nodes (id, text, is_question) VALUES (?, ?, 0)`, entity.RootID, rootText)
		if err != nil {
			return fmt.Errorf("can't insert root: %w", err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("can't insert root: %w", err)
		}

		if affected == 0 {
			return nil
		}

		if _, err = tx.q.ExecContext(ctx,
			`UPDATE sequences SET value = MAX(value, ?) WHERE name = 'node'`, entity.RootID); err != nil {
			return fmt.Errorf("can't advance node sequence: %w", err)
		}

		created = true

		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to seed root: %w", err)
	}

	return created, nil
}

func (that *sqliteNode) Atomic(ctx context.Context, _ int64, fn func(tx NodeTx) error) error {
	return that.inTx(ctx, func(tx *sqliteTx) error {
		return fn(tx)
	})
}

func (that *sqliteNode) inTx(ctx context.Context, fn func(tx *sqliteTx) error) error {
	tx, err := that.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("can't begin transaction: %w", err)
	}

	if err = fn(&sqliteTx{q: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("can't commit transaction: %w", err)
	}

	return nil
}

type sqliteTx struct {
	q querier
}

func (that *sqliteTx) GetByID(ctx context.Context, id int64) (*entity.Node, error) {
	query := `SELECT id, text, is_question, yes_id, no_id FROM nodes WHERE id = ?`

	var (
		node        entity.Node
		isQuestion  bool
		yesID, noID sql.NullInt64
	)

	err := that.q.QueryRowContext(ctx, query, id).Scan(&node.ID, &node.Text, &isQuestion, &yesID, &noID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", apperror.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("can't get node by id: %w", err)
	}

	node.Kind = entity.KindLeaf
	if isQuestion {
		node.Kind = entity.KindQuestion
		node.YesID = yesID.Int64
		node.NoID = noID.Int64
	}

	return &node, nil
}

func (that *sqliteTx) CreateLeaf(ctx context.Context, text string) (int64, error) {
	var id int64

	err := that.q.QueryRowContext(ctx,
		`UPDATE sequences SET value = value + 1 WHERE name = 'node' RETURNING value`).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("can't allocate node id: %w", err)
	}

	if _, err = that.q.ExecContext(ctx,
		`INSERT INTO nodes (id, text, is_question) VALUES (?, ?, 0)`, id, text); err != nil {
		return 0, fmt.Errorf("can't create leaf: %w", err)
	}

	return id, nil
}

func (that *sqliteTx) Rewrite(ctx context.Context, id int64, text string, yesID, noID int64) error {
	query := `UPDATE nodes SET text = ?, is_question = 1, yes_id = ?, no_id = ? WHERE id = ?`

	result, err := that.q.ExecContext(ctx, query, text, yesID, noID, id)
	if err != nil {
		return fmt.Errorf("can't rewrite node: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("can't rewrite node: %w", err)
	}

	if affected == 0 {
		return fmt.Errorf("%w: id %d", apperror.ErrNotFound, id)
	}

	return nil
}
