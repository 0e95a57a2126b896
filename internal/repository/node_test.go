package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/guessgame-backend/internal/apperror"
	"github.com/rocketscienceinc/guessgame-backend/internal/entity"
	"github.com/rocketscienceinc/guessgame-backend/testing/suite"
)

var errAbort = errors.New("abort")

func TestRedisNodeRepository(t *testing.T) {
	runNodeRepositoryContract(t, func(t *testing.T) (context.Context, NodeRepository) {
		ctx, st := suite.New(t)
		return ctx, NewNodeRepository(st.Storage)
	})
}

func TestRedisNodeRepository_Docker(t *testing.T) {
	runNodeRepositoryContract(t, func(t *testing.T) (context.Context, NodeRepository) {
		ctx, st := suite.NewDocker(t)
		return ctx, NewNodeRepository(st.Storage)
	})
}

func TestSQLiteNodeRepository(t *testing.T) {
	runNodeRepositoryContract(t, func(t *testing.T) (context.Context, NodeRepository) {
		ctx, st := suite.NewSQLite(t)
		return ctx, NewSQLiteNodeRepository(st.Connection)
	})
}

func TestRedisNodeRepository_AtomicConflict(t *testing.T) {
	ctx, st := suite.New(t)
	nodeRepo := NewNodeRepository(st.Storage)

	_, err := nodeRepo.Seed(ctx, "Doom")
	require.NoError(t, err)

	// When: another writer rewrites the watched node in the middle of a transaction
	err = nodeRepo.Atomic(ctx, entity.RootID, func(tx NodeTx) error {
		yesID, err := tx.CreateLeaf(ctx, "Quake")
		if err != nil {
			return err
		}

		require.NoError(t, nodeRepo.Rewrite(ctx, entity.RootID, "Concurrent?", 90, 91))

		return tx.Rewrite(ctx, entity.RootID, "Is it id Software's?", yesID, yesID)
	})

	// Then: the transaction is rejected with ErrConflict and none of its writes land
	require.ErrorIs(t, err, apperror.ErrConflict)

	root, err := nodeRepo.GetByID(ctx, entity.RootID)
	require.NoError(t, err)
	assert.Equal(t, "Concurrent?", root.Text)

	leaves, _, err := nodeRepo.CountByKind(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, leaves)
}

func runNodeRepositoryContract(t *testing.T, newRepo func(t *testing.T) (context.Context, NodeRepository)) {
	t.Helper()

	t.Run("GetByID_NotFound", func(t *testing.T) {
		ctx, nodeRepo := newRepo(t)

		// When: GetByID is called with non-existent ID
		node, err := nodeRepo.GetByID(ctx, 9999999)

		// Then: an ErrNotFound error should be returned
		require.ErrorIs(t, err, apperror.ErrNotFound)
		assert.Nil(t, node)
	})

	t.Run("Seed_CreatesRootOnce", func(t *testing.T) {
		ctx, nodeRepo := newRepo(t)

		// When: seeding twice
		created, err := nodeRepo.Seed(ctx, "Doom")
		require.NoError(t, err)
		assert.True(t, created)

		created, err = nodeRepo.Seed(ctx, "Other")
		require.NoError(t, err)
		assert.False(t, created)

		// Then: the root is the first leaf and the next id follows it
		root, err := nodeRepo.GetByID(ctx, entity.RootID)
		require.NoError(t, err)
		assert.Equal(t, entity.NewLeaf(entity.RootID, "Doom"), root)

		id, err := nodeRepo.CreateLeaf(ctx, "Quake")
		require.NoError(t, err)
		assert.Equal(t, int64(2), id)
	})

	t.Run("CreateLeaf_AllocatesIncreasingIDs", func(t *testing.T) {
		ctx, nodeRepo := newRepo(t)

		first, err := nodeRepo.CreateLeaf(ctx, "Doom")
		require.NoError(t, err)

		second, err := nodeRepo.CreateLeaf(ctx, "Quake")
		require.NoError(t, err)

		assert.Greater(t, second, first)

		node, err := nodeRepo.GetByID(ctx, second)
		require.NoError(t, err)
		assert.Equal(t, entity.NewLeaf(second, "Quake"), node)
	})

	t.Run("Rewrite_KeepsIDAndUpdatesCounts", func(t *testing.T) {
		ctx, nodeRepo := newRepo(t)

		leafID, err := nodeRepo.CreateLeaf(ctx, "Doom")
		require.NoError(t, err)
		yesID, err := nodeRepo.CreateLeaf(ctx, "Quake")
		require.NoError(t, err)
		noID, err := nodeRepo.CreateLeaf(ctx, "Doom")
		require.NoError(t, err)

		// When: the first leaf is rewritten into a question
		err = nodeRepo.Rewrite(ctx, leafID, "Is it id Software's?", yesID, noID)
		require.NoError(t, err)

		// Then: the same id now resolves to a question
		node, err := nodeRepo.GetByID(ctx, leafID)
		require.NoError(t, err)
		expectedNode := &entity.Node{
			ID:    leafID,
			Kind:  entity.KindQuestion,
			Text:  "Is it id Software's?",
			YesID: yesID,
			NoID:  noID,
		}
		assert.Equal(t, expectedNode, node)

		leaves, questions, err := nodeRepo.CountByKind(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, leaves)
		assert.Equal(t, 1, questions)
	})

	t.Run("RecentLeaves_NewestFirst", func(t *testing.T) {
		ctx, nodeRepo := newRepo(t)

		titles := []string{"Doom", "Quake", "Halo", "Portal", "Celeste", "Hades"}
		for _, title := range titles {
			_, err := nodeRepo.CreateLeaf(ctx, title)
			require.NoError(t, err)
		}

		// When: asking for the five most recent leaves
		recent, err := nodeRepo.RecentLeaves(ctx, 5)
		require.NoError(t, err)

		// Then: they come back by id, descending
		got := make([]string, 0, len(recent))
		for _, leaf := range recent {
			got = append(got, leaf.Text)
		}
		assert.Equal(t, []string{"Hades", "Celeste", "Portal", "Halo", "Quake"}, got)
	})

	t.Run("Atomic_CommitsAllWrites", func(t *testing.T) {
		ctx, nodeRepo := newRepo(t)

		_, err := nodeRepo.Seed(ctx, "Doom")
		require.NoError(t, err)

		var yesID, noID int64
		err = nodeRepo.Atomic(ctx, entity.RootID, func(tx NodeTx) error {
			var err error
			if yesID, err = tx.CreateLeaf(ctx, "Quake"); err != nil {
				return err
			}
			if noID, err = tx.CreateLeaf(ctx, "Doom"); err != nil {
				return err
			}

			// reads inside the transaction see its own writes
			leaf, err := tx.GetByID(ctx, yesID)
			if err != nil {
				return err
			}
			assert.Equal(t, "Quake", leaf.Text)

			return tx.Rewrite(ctx, entity.RootID, "Is it id Software's?", yesID, noID)
		})
		require.NoError(t, err)

		root, err := nodeRepo.GetByID(ctx, entity.RootID)
		require.NoError(t, err)
		assert.True(t, root.IsQuestion())
		assert.Equal(t, yesID, root.YesID)
		assert.Equal(t, noID, root.NoID)

		leaves, questions, err := nodeRepo.CountByKind(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, leaves)
		assert.Equal(t, 1, questions)
	})

	t.Run("Atomic_DiscardsWritesOnError", func(t *testing.T) {
		ctx, nodeRepo := newRepo(t)

		_, err := nodeRepo.Seed(ctx, "Doom")
		require.NoError(t, err)

		// When: the transaction body fails after writing
		err = nodeRepo.Atomic(ctx, entity.RootID, func(tx NodeTx) error {
			if _, err := tx.CreateLeaf(ctx, "Quake"); err != nil {
				return err
			}
			return errAbort
		})

		// Then: nothing was persisted
		require.ErrorIs(t, err, errAbort)

		leaves, questions, err := nodeRepo.CountByKind(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, leaves)
		assert.Equal(t, 0, questions)

		root, err := nodeRepo.GetByID(ctx, entity.RootID)
		require.NoError(t, err)
		assert.True(t, root.IsLeaf())
	})
}
