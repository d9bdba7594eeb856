package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/dtroode/authkeeper/internal/model"
)

// TokenService is a mock type for the session token operations consumed by the HTTP layer.
type TokenService struct {
	mock.Mock
}

func (_m *TokenService) Refresh(ctx context.Context, refreshToken string, userID uuid.UUID) (model.Session, error) {
	ret := _m.Called(ctx, refreshToken, userID)

	if len(ret) == 0 {
		panic("no return value specified for Refresh")
	}

	var r0 model.Session
	if rf, ok := ret.Get(0).(func(context.Context, string, uuid.UUID) model.Session); ok {
		r0 = rf(ctx, refreshToken, userID)
	} else {
		r0 = ret.Get(0).(model.Session)
	}

	return r0, ret.Error(1)
}

func (_m *TokenService) Revoke(ctx context.Context, refreshToken string, userID uuid.UUID) error {
	ret := _m.Called(ctx, refreshToken, userID)

	if len(ret) == 0 {
		panic("no return value specified for Revoke")
	}

	return ret.Error(0)
}

func (_m *TokenService) GetClaims(ctx context.Context, accessToken string) (model.AccessClaims, error) {
	ret := _m.Called(ctx, accessToken)

	if len(ret) == 0 {
		panic("no return value specified for GetClaims")
	}

	var r0 model.AccessClaims
	if rf, ok := ret.Get(0).(func(context.Context, string) model.AccessClaims); ok {
		r0 = rf(ctx, accessToken)
	} else {
		r0 = ret.Get(0).(model.AccessClaims)
	}

	return r0, ret.Error(1)
}

// NewTokenService creates a new instance of TokenService. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewTokenService(t interface {
	mock.TestingT
	Cleanup(func())
}) *TokenService {
	m := &TokenService{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
