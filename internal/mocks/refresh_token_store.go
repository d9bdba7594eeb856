package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/dtroode/authkeeper/internal/model"
)

// RefreshTokenStore is a mock type for the model.RefreshTokenStore type.
type RefreshTokenStore struct {
	mock.Mock
}

func (_m *RefreshTokenStore) Create(ctx context.Context, token model.RefreshToken) error {
	ret := _m.Called(ctx, token)

	if len(ret) == 0 {
		panic("no return value specified for Create")
	}

	return ret.Error(0)
}

func (_m *RefreshTokenStore) FindValid(ctx context.Context, tokenHash []byte, userID uuid.UUID, now time.Time) (model.User, error) {
	ret := _m.Called(ctx, tokenHash, userID, now)

	if len(ret) == 0 {
		panic("no return value specified for FindValid")
	}

	var r0 model.User
	if rf, ok := ret.Get(0).(func(context.Context, []byte, uuid.UUID, time.Time) model.User); ok {
		r0 = rf(ctx, tokenHash, userID, now)
	} else {
		r0 = ret.Get(0).(model.User)
	}

	return r0, ret.Error(1)
}

func (_m *RefreshTokenStore) Rotate(ctx context.Context, oldHash []byte, next model.RefreshToken, now time.Time) (int64, error) {
	ret := _m.Called(ctx, oldHash, next, now)

	if len(ret) == 0 {
		panic("no return value specified for Rotate")
	}

	var r0 int64
	if rf, ok := ret.Get(0).(func(context.Context, []byte, model.RefreshToken, time.Time) int64); ok {
		r0 = rf(ctx, oldHash, next, now)
	} else {
		r0 = ret.Get(0).(int64)
	}

	return r0, ret.Error(1)
}

func (_m *RefreshTokenStore) Revoke(ctx context.Context, tokenHash []byte, userID uuid.UUID) (int64, error) {
	ret := _m.Called(ctx, tokenHash, userID)

	if len(ret) == 0 {
		panic("no return value specified for Revoke")
	}

	var r0 int64
	if rf, ok := ret.Get(0).(func(context.Context, []byte, uuid.UUID) int64); ok {
		r0 = rf(ctx, tokenHash, userID)
	} else {
		r0 = ret.Get(0).(int64)
	}

	return r0, ret.Error(1)
}

func (_m *RefreshTokenStore) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	ret := _m.Called(ctx, now)

	if len(ret) == 0 {
		panic("no return value specified for PurgeExpired")
	}

	var r0 int64
	if rf, ok := ret.Get(0).(func(context.Context, time.Time) int64); ok {
		r0 = rf(ctx, now)
	} else {
		r0 = ret.Get(0).(int64)
	}

	return r0, ret.Error(1)
}

// NewRefreshTokenStore creates a new instance of RefreshTokenStore. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewRefreshTokenStore(t interface {
	mock.TestingT
	Cleanup(func())
}) *RefreshTokenStore {
	m := &RefreshTokenStore{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
