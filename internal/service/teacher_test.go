package service

import (
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/guessgame-backend/internal/apperror"
	"github.com/rocketscienceinc/guessgame-backend/internal/entity"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

func TestTeacher_Teach(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			t.Run("Wrong guess grows the tree by one question and one leaf", func(t *testing.T) {
				ctx, nodeRepo := b.newRepo(t)
				seedFPSTree(ctx, t, nodeRepo)

				tree := NewDecisionTree(newLogger(), nodeRepo)
				stats := NewStatsReporter(nodeRepo)
				teacher := NewTeacher(newLogger(), tree)
				gameSession := NewGameSession(tree)

				before, err := stats.Summary(ctx)
				require.NoError(t, err)

				// Given: a session that reached leaf 5 and rejected the guess
				session := entity.NewSession("player")
				_, err = gameSession.Start(ctx, session)
				require.NoError(t, err)
				_, err = gameSession.Answer(ctx, session, entity.SideYes)
				require.NoError(t, err)
				leaf, err := gameSession.RejectGuess(ctx, session)
				require.NoError(t, err)

				// When: the player teaches Quake on the yes side
				node, err := teacher.Teach(ctx, leaf.ID, "Quake", "Is it id Software's?", entity.SideYes)
				require.NoError(t, err)

				// Then: node 5 keeps its id and became the question
				assert.Equal(t, int64(5), node.ID)
				assert.True(t, node.IsQuestion())
				assert.Equal(t, "Is it id Software's?", node.Text)

				yes, err := tree.Get(ctx, node.YesID)
				require.NoError(t, err)
				assert.Equal(t, entity.NewLeaf(node.YesID, "Quake"), yes)

				no, err := tree.Get(ctx, node.NoID)
				require.NoError(t, err)
				assert.Equal(t, entity.NewLeaf(node.NoID, "Doom"), no)

				assert.Greater(t, node.YesID, int64(6))
				assert.Greater(t, node.NoID, int64(6))

				// Then: counts grew by exactly one each and the new leaves are the most recent
				after, err := stats.Summary(ctx)
				require.NoError(t, err)
				assert.Equal(t, before.LeafCount+1, after.LeafCount)
				assert.Equal(t, before.QuestionCount+1, after.QuestionCount)

				recent := make([]string, 0, len(after.RecentLeaves))
				for _, leaf := range after.RecentLeaves {
					recent = append(recent, leaf.Text)
				}
				assert.Equal(t, []string{"Doom", "Quake"}, recent[:2])

				// Then: replaying the old path ends on the moved Doom leaf
				replay := entity.NewSession("replay")
				_, err = gameSession.Start(ctx, replay)
				require.NoError(t, err)
				_, err = gameSession.Answer(ctx, replay, entity.SideYes)
				require.NoError(t, err)
				assert.Equal(t, entity.StateAtQuestion, replay.State)
				leaf, err = gameSession.Answer(ctx, replay, entity.SideNo)
				require.NoError(t, err)
				assert.Equal(t, "Doom", leaf.Text)
				assert.Equal(t, entity.StateAtLeaf, replay.State)
			})

			t.Run("No side puts the new title on the no branch", func(t *testing.T) {
				ctx, nodeRepo := b.newRepo(t)
				seedFPSTree(ctx, t, nodeRepo)
				tree := NewDecisionTree(newLogger(), nodeRepo)

				node, err := NewTeacher(newLogger(), tree).Teach(ctx, 6, "Terraria", "Is it 3D?", entity.SideNo)
				require.NoError(t, err)

				yes, err := tree.Get(ctx, node.YesID)
				require.NoError(t, err)
				no, err := tree.Get(ctx, node.NoID)
				require.NoError(t, err)

				assert.Equal(t, "Minecraft", yes.Text)
				assert.Equal(t, "Terraria", no.Text)
			})

			t.Run("Teaching a question fails and changes nothing", func(t *testing.T) {
				ctx, nodeRepo := b.newRepo(t)
				seedFPSTree(ctx, t, nodeRepo)
				tree := NewDecisionTree(newLogger(), nodeRepo)
				stats := NewStatsReporter(nodeRepo)

				before, err := stats.Summary(ctx)
				require.NoError(t, err)

				_, err = NewTeacher(newLogger(), tree).Teach(ctx, entity.RootID, "Quake", "Is it id Software's?", entity.SideYes)
				require.ErrorIs(t, err, apperror.ErrInvalidState)

				after, err := stats.Summary(ctx)
				require.NoError(t, err)
				assert.Equal(t, before.LeafCount, after.LeafCount)
				assert.Equal(t, before.QuestionCount, after.QuestionCount)
			})

			t.Run("Empty question is rejected without leaving orphan leaves", func(t *testing.T) {
				ctx, nodeRepo := b.newRepo(t)
				seedFPSTree(ctx, t, nodeRepo)
				tree := NewDecisionTree(newLogger(), nodeRepo)
				stats := NewStatsReporter(nodeRepo)

				before, err := stats.Summary(ctx)
				require.NoError(t, err)

				_, err = NewTeacher(newLogger(), tree).Teach(ctx, 5, "Quake", " ", entity.SideYes)
				require.ErrorIs(t, err, apperror.ErrValidation)

				after, err := stats.Summary(ctx)
				require.NoError(t, err)
				assert.Equal(t, before.LeafCount, after.LeafCount)
			})
		})
	}
}

func TestTeacher_ConcurrentTeachOnSameLeaf(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			ctx, nodeRepo := b.newRepo(t)
			seedFPSTree(ctx, t, nodeRepo)
			tree := NewDecisionTree(newLogger(), nodeRepo)
			teacher := NewTeacher(newLogger(), tree)
			stats := NewStatsReporter(nodeRepo)

			before, err := stats.Summary(ctx)
			require.NoError(t, err)

			// When: two players teach the same leaf at once
			var wg sync.WaitGroup
			errs := make([]error, 2)
			for i, title := range []string{"Quake", "Wolfenstein"} {
				wg.Add(1)
				go func(i int, title string) {
					defer wg.Done()
					_, errs[i] = teacher.Teach(ctx, 5, title, "Is it "+title+"?", entity.SideYes)
				}(i, title)
			}
			wg.Wait()

			// Then: at most one of them lands and the tree stays well formed
			succeeded := 0
			for _, err := range errs {
				if err == nil {
					succeeded++
				}
			}
			assert.LessOrEqual(t, succeeded, 1)

			after, err := stats.Summary(ctx)
			require.NoError(t, err)
			assert.Equal(t, before.LeafCount+succeeded, after.LeafCount)
			assert.Equal(t, before.QuestionCount+succeeded, after.QuestionCount)

			node, err := tree.Get(ctx, 5)
			require.NoError(t, err)
			if node.IsQuestion() {
				_, err = tree.Get(ctx, node.YesID)
				require.NoError(t, err)
				_, err = tree.Get(ctx, node.NoID)
				require.NoError(t, err)
			}
		})
	}
}
