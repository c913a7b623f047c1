// Package mock_client provides testify mocks for the transport ports.
package mock_client

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/stretchr/testify/mock"

	"blockbookclient/internal/core/domain"
	"blockbookclient/internal/core/domain/client"
)

// MockHTTPRequester is a testify mock of client.HTTPRequester.
type MockHTTPRequester struct {
	mock.Mock
}

var _ client.HTTPRequester = (*MockHTTPRequester)(nil)

// NewMockHTTPRequester creates a mock that verifies its expectations on test
// cleanup.
func NewMockHTTPRequester(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockHTTPRequester {
	m := &MockHTTPRequester{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockHTTPRequester) Request(
	ctx context.Context,
	method string,
	node domain.Node,
	path string,
	query url.Values,
	body []byte,
) (json.RawMessage, error) {
	args := m.Called(ctx, method, node, path, query, body)
	var raw json.RawMessage
	if args.Get(0) != nil {
		raw = args.Get(0).(json.RawMessage)
	}
	return raw, args.Error(1)
}

// MockSocketSession is a testify mock of client.SocketSession.
type MockSocketSession struct {
	mock.Mock
}

var _ client.SocketSession = (*MockSocketSession)(nil)

// NewMockSocketSession creates a mock that verifies its expectations on test
// cleanup.
func NewMockSocketSession(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockSocketSession {
	m := &MockSocketSession{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockSocketSession) Connect(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockSocketSession) Disconnect(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockSocketSession) IsConnected() bool {
	return m.Called().Bool(0)
}

func (m *MockSocketSession) Request(ctx context.Context, id, method string, params any) (json.RawMessage, error) {
	args := m.Called(ctx, id, method, params)
	var raw json.RawMessage
	if args.Get(0) != nil {
		raw = args.Get(0).(json.RawMessage)
	}
	return raw, args.Error(1)
}

func (m *MockSocketSession) SubscribeNewBlock(ctx context.Context, fn client.MessageHandler) error {
	return m.Called(ctx, fn).Error(0)
}

func (m *MockSocketSession) UnsubscribeNewBlock(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockSocketSession) SubscribeNewTransaction(ctx context.Context, fn client.MessageHandler) error {
	return m.Called(ctx, fn).Error(0)
}

func (m *MockSocketSession) UnsubscribeNewTransaction(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockSocketSession) SubscribeAddresses(ctx context.Context, addresses []string, fn client.MessageHandler) error {
	return m.Called(ctx, addresses, fn).Error(0)
}

func (m *MockSocketSession) UnsubscribeAddresses(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}
