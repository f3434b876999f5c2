package mocks

import (
	"context"

	runner "github.com/panbanda/gravedigger/internal/runner"
	mock "github.com/stretchr/testify/mock"
)

// MockRunner is a mock type for the Runner type
type MockRunner struct {
	mock.Mock
}

type MockRunner_Expecter struct {
	mock *mock.Mock
}

func (_m *MockRunner) EXPECT() *MockRunner_Expecter {
	return &MockRunner_Expecter{mock: &_m.Mock}
}

// Run provides a mock function with given fields: ctx, testRef
func (_m *MockRunner) Run(ctx context.Context, testRef string) (*runner.Result, error) {
	ret := _m.Called(ctx, testRef)

	var r0 *runner.Result
	if rf, ok := ret.Get(0).(func(context.Context, string) *runner.Result); ok {
		r0 = rf(ctx, testRef)
	} else if v := ret.Get(0); v != nil {
		r0 = v.(*runner.Result)
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, testRef)
	} else {
		r1 = ret.Error(1)
	}
	return r0, r1
}

func (_e *MockRunner_Expecter) Run(ctx interface{}, testRef interface{}) *mock.Call {
	return _e.mock.On("Run", ctx, testRef)
}

// NewMockRunner creates a new instance of MockRunner. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockRunner(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockRunner {
	m := &MockRunner{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
