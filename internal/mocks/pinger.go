package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// Pinger is a mock type for the model.Pinger type.
type Pinger struct {
	mock.Mock
}

func (_m *Pinger) Ping(ctx context.Context) error {
	ret := _m.Called(ctx)

	if len(ret) == 0 {
		panic("no return value specified for Ping")
	}

	return ret.Error(0)
}

// NewPinger creates a new instance of Pinger. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewPinger(t interface {
	mock.TestingT
	Cleanup(func())
}) *Pinger {
	m := &Pinger{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
