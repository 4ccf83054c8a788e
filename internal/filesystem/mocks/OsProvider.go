package mocks

import (
	fs "io/fs"

	mock "github.com/stretchr/testify/mock"
)

// OsProvider is a mock type for the osProvider type.
type OsProvider struct {
	mock.Mock
}

// MkdirAll provides a mock function with given fields: path, perm
func (_m *OsProvider) MkdirAll(path string, perm fs.FileMode) error {
	ret := _m.Called(path, perm)

	if len(ret) == 0 {
		panic("no return value specified for MkdirAll")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func(string, fs.FileMode) error); ok {
		r0 = rf(path, perm)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// Stat provides a mock function with given fields: name
func (_m *OsProvider) Stat(name string) (fs.FileInfo, error) {
	ret := _m.Called(name)

	if len(ret) == 0 {
		panic("no return value specified for Stat")
	}

	var r0 fs.FileInfo
	var r1 error
	if rf, ok := ret.Get(0).(func(string) (fs.FileInfo, error)); ok {
		return rf(name)
	}
	if rf, ok := ret.Get(0).(func(string) fs.FileInfo); ok {
		r0 = rf(name)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).(fs.FileInfo)
	}

	if rf, ok := ret.Get(1).(func(string) error); ok {
		r1 = rf(name)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewOsProvider creates a new instance of OsProvider. It also registers a
// testing interface on the mock and a cleanup function to assert the mocks
// expectations.
func NewOsProvider(t interface {
	mock.TestingT
	Cleanup(func())
},
) *OsProvider {
	m := &OsProvider{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
