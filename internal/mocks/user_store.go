package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/dtroode/authkeeper/internal/model"
)

// UserStore is a mock type for the model.UserStore type.
type UserStore struct {
	mock.Mock
}

func (_m *UserStore) GetByUsername(ctx context.Context, username string) (model.User, error) {
	ret := _m.Called(ctx, username)

	if len(ret) == 0 {
		panic("no return value specified for GetByUsername")
	}

	var r0 model.User
	if rf, ok := ret.Get(0).(func(context.Context, string) model.User); ok {
		r0 = rf(ctx, username)
	} else {
		r0 = ret.Get(0).(model.User)
	}

	return r0, ret.Error(1)
}

func (_m *UserStore) GetByLogin(ctx context.Context, login string) (model.User, error) {
	ret := _m.Called(ctx, login)

	if len(ret) == 0 {
		panic("no return value specified for GetByLogin")
	}

	var r0 model.User
	if rf, ok := ret.Get(0).(func(context.Context, string) model.User); ok {
		r0 = rf(ctx, login)
	} else {
		r0 = ret.Get(0).(model.User)
	}

	return r0, ret.Error(1)
}

func (_m *UserStore) Create(ctx context.Context, user model.NewUser) (model.User, error) {
	ret := _m.Called(ctx, user)

	if len(ret) == 0 {
		panic("no return value specified for Create")
	}

	var r0 model.User
	if rf, ok := ret.Get(0).(func(context.Context, model.NewUser) model.User); ok {
		r0 = rf(ctx, user)
	} else {
		r0 = ret.Get(0).(model.User)
	}

	return r0, ret.Error(1)
}

func (_m *UserStore) Activate(ctx context.Context, token string, newToken string) (int64, error) {
	ret := _m.Called(ctx, token, newToken)

	if len(ret) == 0 {
		panic("no return value specified for Activate")
	}

	var r0 int64
	if rf, ok := ret.Get(0).(func(context.Context, string, string) int64); ok {
		r0 = rf(ctx, token, newToken)
	} else {
		r0 = ret.Get(0).(int64)
	}

	return r0, ret.Error(1)
}

func (_m *UserStore) ResetPassword(ctx context.Context, token string, passwordHash string, newToken string) (int64, error) {
	ret := _m.Called(ctx, token, passwordHash, newToken)

	if len(ret) == 0 {
		panic("no return value specified for ResetPassword")
	}

	var r0 int64
	if rf, ok := ret.Get(0).(func(context.Context, string, string, string) int64); ok {
		r0 = rf(ctx, token, passwordHash, newToken)
	} else {
		r0 = ret.Get(0).(int64)
	}

	return r0, ret.Error(1)
}

// NewUserStore creates a new instance of UserStore. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewUserStore(t interface {
	mock.TestingT
	Cleanup(func())
}) *UserStore {
	m := &UserStore{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
