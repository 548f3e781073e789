/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package mocks

import (
	"context"

	"github.com/shadowpay/shadowpay/model"
	"github.com/stretchr/testify/mock"
)

// MockDataSource is a mock implementation of the IDataSource interface
type MockDataSource struct {
	mock.Mock
}

func (m *MockDataSource) CreateLink(ctx context.Context, link *model.Link) error {
	args := m.Called(ctx, link)
	return args.Error(0)
}

func (m *MockDataSource) GetLinkByID(ctx context.Context, id string) (*model.Link, error) {
	args := m.Called(ctx, id)
	link, _ := args.Get(0).(*model.Link)
	return link, args.Error(1)
}

func (m *MockDataSource) GetLinksByCreator(ctx context.Context, creatorID string) ([]model.Link, error) {
	args := m.Called(ctx, creatorID)
	links, _ := args.Get(0).([]model.Link)
	return links, args.Error(1)
}

func (m *MockDataSource) GetAllLinks(ctx context.Context) ([]model.Link, error) {
	args := m.Called(ctx)
	links, _ := args.Get(0).([]model.Link)
	return links, args.Error(1)
}

func (m *MockDataSource) MarkLinkPaid(ctx context.Context, id string, p model.Payment) (*model.Link, error) {
	args := m.Called(ctx, id, p)
	link, _ := args.Get(0).(*model.Link)
	return link, args.Error(1)
}

func (m *MockDataSource) MarkLinkWithdrawn(ctx context.Context, id string, w model.Withdrawal) (*model.Link, error) {
	args := m.Called(ctx, id, w)
	link, _ := args.Get(0).(*model.Link)
	return link, args.Error(1)
}
