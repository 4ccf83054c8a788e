package mocks

import (
	mock "github.com/stretchr/testify/mock"
	unix "golang.org/x/sys/unix"
)

// UnixProvider is a mock type for the unixProvider type.
type UnixProvider struct {
	mock.Mock
}

// Stat provides a mock function with given fields: path, stat
func (_m *UnixProvider) Stat(path string, stat *unix.Stat_t) error {
	ret := _m.Called(path, stat)

	if len(ret) == 0 {
		panic("no return value specified for Stat")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func(string, *unix.Stat_t) error); ok {
		r0 = rf(path, stat)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// Statfs provides a mock function with given fields: path, buf
func (_m *UnixProvider) Statfs(path string, buf *unix.Statfs_t) error {
	ret := _m.Called(path, buf)

	if len(ret) == 0 {
		panic("no return value specified for Statfs")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func(string, *unix.Statfs_t) error); ok {
		r0 = rf(path, buf)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// NewUnixProvider creates a new instance of UnixProvider. It also registers a
// testing interface on the mock and a cleanup function to assert the mocks
// expectations.
func NewUnixProvider(t interface {
	mock.TestingT
	Cleanup(func())
},
) *UnixProvider {
	m := &UnixProvider{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
