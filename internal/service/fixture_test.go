package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/guessgame-backend/internal/entity"
	"github.com/rocketscienceinc/guessgame-backend/internal/repository"
	"github.com/rocketscienceinc/guessgame-backend/testing/suite"
)

type backend struct {
	name    string
	newRepo func(t *testing.T) (context.Context, repository.NodeRepository)
}

var backends = []backend{
	{
		name: "redis",
		newRepo: func(t *testing.T) (context.Context, repository.NodeRepository) {
			ctx, st := suite.New(t)
			return ctx, repository.NewNodeRepository(st.Storage)
		},
	},
	{
		name: "sqlite",
		newRepo: func(t *testing.T) (context.Context, repository.NodeRepository) {
			ctx, st := suite.NewSQLite(t)
			return ctx, repository.NewSQLiteNodeRepository(st.Connection)
		},
	},
}

// seedFPSTree builds root(1) "Is it an FPS?" with yes->5 "Doom" and no->6 "Minecraft".
// Leaves 2..4 are unreachable filler so the ids line up.
func seedFPSTree(ctx context.Context, t *testing.T, nodeRepo repository.NodeRepository) {
	t.Helper()

	_, err := nodeRepo.Seed(ctx, "placeholder")
	require.NoError(t, err)

	for _, title := range []string{"Tetris", "Zelda", "Mario", "Doom", "Minecraft"} {
		_, err = nodeRepo.CreateLeaf(ctx, title)
		require.NoError(t, err)
	}

	require.NoError(t, nodeRepo.Rewrite(ctx, entity.RootID, "Is it an FPS?", 5, 6))
}

func newTestTree(t *testing.T) (context.Context, *DecisionTree, repository.NodeRepository) {
	t.Helper()

	ctx, st := suite.New(t)
	nodeRepo := repository.NewNodeRepository(st.Storage)
	seedFPSTree(ctx, t, nodeRepo)

	return ctx, NewDecisionTree(st.Logger, nodeRepo), nodeRepo
}
