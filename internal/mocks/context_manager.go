package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/dtroode/authkeeper/internal/model"
)

// ContextManager is a mock type for the model.ContextManager type.
type ContextManager struct {
	mock.Mock
}

func (_m *ContextManager) SetClaimsToContext(ctx context.Context, claims model.AccessClaims) context.Context {
	ret := _m.Called(ctx, claims)

	if len(ret) == 0 {
		panic("no return value specified for SetClaimsToContext")
	}

	if rf, ok := ret.Get(0).(func(context.Context, model.AccessClaims) context.Context); ok {
		return rf(ctx, claims)
	}
	return ret.Get(0).(context.Context)
}

func (_m *ContextManager) GetClaimsFromContext(ctx context.Context) (model.AccessClaims, bool) {
	ret := _m.Called(ctx)

	if len(ret) == 0 {
		panic("no return value specified for GetClaimsFromContext")
	}

	var r0 model.AccessClaims
	if rf, ok := ret.Get(0).(func(context.Context) model.AccessClaims); ok {
		r0 = rf(ctx)
	} else {
		r0 = ret.Get(0).(model.AccessClaims)
	}

	return r0, ret.Bool(1)
}

// NewContextManager creates a new instance of ContextManager. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewContextManager(t interface {
	mock.TestingT
	Cleanup(func())
}) *ContextManager {
	m := &ContextManager{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
