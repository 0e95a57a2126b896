package usecase

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type mockOracle struct {
	mock.Mock
}

func (that *mockOracle) LookupImage(ctx context.Context, name string) string {
	args := that.Called(ctx, name)
	return args.String(0)
}

func (that *mockOracle) ValidateName(ctx context.Context, name string) (string, bool) {
	args := that.Called(ctx, name)
	return args.String(0), args.Bool(1)
}
