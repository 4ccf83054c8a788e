package io

import (
	context "context"

	mock "github.com/stretchr/testify/mock"
)

// mockVerifier is a mock type for the Verifier type.
type mockVerifier struct {
	mock.Mock
}

// Verify provides a mock function with given fields: ctx, src, dst, expectedSize
func (_m *mockVerifier) Verify(ctx context.Context, src string, dst string, expectedSize uint64) error {
	ret := _m.Called(ctx, src, dst, expectedSize)

	if len(ret) == 0 {
		panic("no return value specified for Verify")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, string, string, uint64) error); ok {
		r0 = rf(ctx, src, dst, expectedSize)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// newMockVerifier creates a new instance of mockVerifier. It also registers a
// testing interface on the mock and a cleanup function to assert the mocks
// expectations.
func newMockVerifier(t interface {
	mock.TestingT
	Cleanup(func())
},
) *mockVerifier {
	m := &mockVerifier{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
