package mocks

import (
	"context"

	mock "github.com/stretchr/testify/mock"
)

// MockWorktree is a mock type for the Worktree type
type MockWorktree struct {
	mock.Mock
}

type MockWorktree_Expecter struct {
	mock *mock.Mock
}

func (_m *MockWorktree) EXPECT() *MockWorktree_Expecter {
	return &MockWorktree_Expecter{mock: &_m.Mock}
}

// CheckoutBranch provides a mock function with given fields: name
func (_m *MockWorktree) CheckoutBranch(name string) error {
	ret := _m.Called(name)
	return ret.Error(0)
}

func (_e *MockWorktree_Expecter) CheckoutBranch(name interface{}) *mock.Call {
	return _e.mock.On("CheckoutBranch", name)
}

// Commit provides a mock function with given fields: message, paths
func (_m *MockWorktree) Commit(message string, paths ...string) (string, error) {
	_va := make([]interface{}, len(paths))
	for _i := range paths {
		_va[_i] = paths[_i]
	}
	var _ca []interface{}
	_ca = append(_ca, message)
	_ca = append(_ca, _va...)
	ret := _m.Called(_ca...)

	var r0 string
	if rf, ok := ret.Get(0).(func(string, ...string) string); ok {
		r0 = rf(message, paths...)
	} else {
		r0 = ret.String(0)
	}
	return r0, ret.Error(1)
}

func (_e *MockWorktree_Expecter) Commit(message interface{}, paths ...interface{}) *mock.Call {
	return _e.mock.On("Commit", append([]interface{}{message}, paths...)...)
}

// CurrentBranch provides a mock function with given fields:
func (_m *MockWorktree) CurrentBranch() (string, error) {
	ret := _m.Called()
	return ret.String(0), ret.Error(1)
}

func (_e *MockWorktree_Expecter) CurrentBranch() *mock.Call {
	return _e.mock.On("CurrentBranch")
}

// IsClean provides a mock function with given fields:
func (_m *MockWorktree) IsClean() (bool, error) {
	ret := _m.Called()
	return ret.Bool(0), ret.Error(1)
}

func (_e *MockWorktree_Expecter) IsClean() *mock.Call {
	return _e.mock.On("IsClean")
}

// ModifiedPaths provides a mock function with given fields:
func (_m *MockWorktree) ModifiedPaths() ([]string, error) {
	ret := _m.Called()

	var r0 []string
	if v := ret.Get(0); v != nil {
		r0 = v.([]string)
	}
	return r0, ret.Error(1)
}

func (_e *MockWorktree_Expecter) ModifiedPaths() *mock.Call {
	return _e.mock.On("ModifiedPaths")
}

// Push provides a mock function with given fields: ctx
func (_m *MockWorktree) Push(ctx context.Context) error {
	ret := _m.Called(ctx)
	return ret.Error(0)
}

func (_e *MockWorktree_Expecter) Push(ctx interface{}) *mock.Call {
	return _e.mock.On("Push", ctx)
}

// Revert provides a mock function with given fields: paths
func (_m *MockWorktree) Revert(paths ...string) error {
	_va := make([]interface{}, len(paths))
	for _i := range paths {
		_va[_i] = paths[_i]
	}
	ret := _m.Called(_va...)
	return ret.Error(0)
}

func (_e *MockWorktree_Expecter) Revert(paths ...interface{}) *mock.Call {
	return _e.mock.On("Revert", paths...)
}

// RevertAll provides a mock function with given fields:
func (_m *MockWorktree) RevertAll() error {
	ret := _m.Called()
	return ret.Error(0)
}

func (_e *MockWorktree_Expecter) RevertAll() *mock.Call {
	return _e.mock.On("RevertAll")
}

// Root provides a mock function with given fields:
func (_m *MockWorktree) Root() string {
	ret := _m.Called()
	return ret.String(0)
}

func (_e *MockWorktree_Expecter) Root() *mock.Call {
	return _e.mock.On("Root")
}

// NewMockWorktree creates a new instance of MockWorktree. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockWorktree(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockWorktree {
	m := &MockWorktree{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
