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

package database

import (
	"context"

	"github.com/shadowpay/shadowpay/model"
)

// IDataSource defines the interface for data source operations, grouping related functionalities.
type IDataSource interface {
	link // Interface for payment link operations
}

// link defines methods for handling payment links. The Mark methods are the only
// status writers; each is conditional on the link still being in the prior status.
type link interface {
	CreateLink(ctx context.Context, link *model.Link) error                                   // Stores a new link in created status
	GetLinkByID(ctx context.Context, id string) (*model.Link, error)                          // Retrieves a link by ID
	GetLinksByCreator(ctx context.Context, creatorID string) ([]model.Link, error)            // Retrieves the links a user created
	GetAllLinks(ctx context.Context) ([]model.Link, error)                                    // Retrieves every link, newest first
	MarkLinkPaid(ctx context.Context, id string, p model.Payment) (*model.Link, error)        // created -> paid
	MarkLinkWithdrawn(ctx context.Context, id string, w model.Withdrawal) (*model.Link, error) // paid -> withdrawn
}
