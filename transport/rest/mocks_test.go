package rest

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/rocketscienceinc/guessgame-backend/internal/entity"
	"github.com/rocketscienceinc/guessgame-backend/internal/usecase"
)

type mockGame struct {
	mock.Mock
}

func (that *mockGame) view(args mock.Arguments) (*usecase.View, error) {
	view, _ := args.Get(0).(*usecase.View)
	return view, args.Error(1)
}

func (that *mockGame) NewSession(ctx context.Context) (*usecase.View, error) {
	return that.view(that.Called(ctx))
}

func (that *mockGame) Start(ctx context.Context, sessionID string) (*usecase.View, error) {
	return that.view(that.Called(ctx, sessionID))
}

func (that *mockGame) Current(ctx context.Context, sessionID string) (*usecase.View, error) {
	return that.view(that.Called(ctx, sessionID))
}

func (that *mockGame) Answer(ctx context.Context, sessionID, choice string) (*usecase.View, error) {
	return that.view(that.Called(ctx, sessionID, choice))
}

func (that *mockGame) Undo(ctx context.Context, sessionID string) (*usecase.View, error) {
	return that.view(that.Called(ctx, sessionID))
}

func (that *mockGame) ConfirmWin(ctx context.Context, sessionID string) (*usecase.View, error) {
	return that.view(that.Called(ctx, sessionID))
}

func (that *mockGame) RejectGuess(ctx context.Context, sessionID string) (*usecase.View, error) {
	return that.view(that.Called(ctx, sessionID))
}

func (that *mockGame) CheckTitle(ctx context.Context, sessionID string, req usecase.TitleRequest) (*usecase.TitleCheck, error) {
	args := that.Called(ctx, sessionID, req)
	check, _ := args.Get(0).(*usecase.TitleCheck)
	return check, args.Error(1)
}

func (that *mockGame) ConfirmTitle(ctx context.Context, sessionID string, req usecase.TitleRequest) (*usecase.View, error) {
	return that.view(that.Called(ctx, sessionID, req))
}

func (that *mockGame) Teach(ctx context.Context, sessionID string, req usecase.TeachRequest) (*usecase.View, error) {
	return that.view(that.Called(ctx, sessionID, req))
}

func (that *mockGame) Stats(ctx context.Context) (*entity.Summary, error) {
	args := that.Called(ctx)
	summary, _ := args.Get(0).(*entity.Summary)
	return summary, args.Error(1)
}

func (that *mockGame) EndSession(ctx context.Context, sessionID string) error {
	return that.Called(ctx, sessionID).Error(0)
}
