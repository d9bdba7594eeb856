package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/dtroode/authkeeper/internal/model"
)

// AuthService is a mock type for the account lifecycle service consumed by the HTTP handlers.
type AuthService struct {
	mock.Mock
}

func (_m *AuthService) Register(ctx context.Context, params model.RegisterParams) (model.Registration, error) {
	ret := _m.Called(ctx, params)

	if len(ret) == 0 {
		panic("no return value specified for Register")
	}

	var r0 model.Registration
	if rf, ok := ret.Get(0).(func(context.Context, model.RegisterParams) model.Registration); ok {
		r0 = rf(ctx, params)
	} else {
		r0 = ret.Get(0).(model.Registration)
	}

	return r0, ret.Error(1)
}

func (_m *AuthService) Activate(ctx context.Context, token string) error {
	ret := _m.Called(ctx, token)

	if len(ret) == 0 {
		panic("no return value specified for Activate")
	}

	return ret.Error(0)
}

func (_m *AuthService) ResetPassword(ctx context.Context, token string, password string) error {
	ret := _m.Called(ctx, token, password)

	if len(ret) == 0 {
		panic("no return value specified for ResetPassword")
	}

	return ret.Error(0)
}

func (_m *AuthService) Login(ctx context.Context, login string, password string) (model.Session, error) {
	ret := _m.Called(ctx, login, password)

	if len(ret) == 0 {
		panic("no return value specified for Login")
	}

	var r0 model.Session
	if rf, ok := ret.Get(0).(func(context.Context, string, string) model.Session); ok {
		r0 = rf(ctx, login, password)
	} else {
		r0 = ret.Get(0).(model.Session)
	}

	return r0, ret.Error(1)
}

// NewAuthService creates a new instance of AuthService. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewAuthService(t interface {
	mock.TestingT
	Cleanup(func())
}) *AuthService {
	m := &AuthService{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
