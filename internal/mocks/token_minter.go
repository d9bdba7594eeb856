package mocks

import (
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/dtroode/authkeeper/internal/model"
)

// TokenMinter is a mock type for the model.TokenMinter type.
type TokenMinter struct {
	mock.Mock
}

func (_m *TokenMinter) Mint(user model.User) (string, time.Time, error) {
	ret := _m.Called(user)

	if len(ret) == 0 {
		panic("no return value specified for Mint")
	}

	var r0 string
	if rf, ok := ret.Get(0).(func(model.User) string); ok {
		r0 = rf(user)
	} else {
		r0 = ret.Get(0).(string)
	}

	var r1 time.Time
	if rf, ok := ret.Get(1).(func(model.User) time.Time); ok {
		r1 = rf(user)
	} else {
		r1 = ret.Get(1).(time.Time)
	}

	return r0, r1, ret.Error(2)
}

func (_m *TokenMinter) Parse(token string) (model.AccessClaims, error) {
	ret := _m.Called(token)

	if len(ret) == 0 {
		panic("no return value specified for Parse")
	}

	var r0 model.AccessClaims
	if rf, ok := ret.Get(0).(func(string) model.AccessClaims); ok {
		r0 = rf(token)
	} else {
		r0 = ret.Get(0).(model.AccessClaims)
	}

	return r0, ret.Error(1)
}

// NewTokenMinter creates a new instance of TokenMinter. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewTokenMinter(t interface {
	mock.TestingT
	Cleanup(func())
}) *TokenMinter {
	m := &TokenMinter{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
