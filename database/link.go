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
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/shadowpay/shadowpay/internal/apierror"
	"github.com/shadowpay/shadowpay/model"
)

const linkColumns = `link_id, creator_id, amount, amount_type, token, status, commitment, paid_lamports,
	deposit_tx, withdraw_tx, recipient_wallet, payment_count, created_at, paid_at, withdrawn_at`

func (d Datasource) CreateLink(ctx context.Context, link *model.Link) error {
	_, err := d.Conn.ExecContext(ctx, `
		INSERT INTO payment_links (link_id, creator_id, amount, amount_type, token, status, payment_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, link.LinkID, link.CreatorID, nullString(link.Amount), link.AmountType, link.Token, link.Status, link.PaymentCount, link.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apierror.NewAPIError(apierror.ErrConflict, "Link already exists", err)
		}
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to create link", err)
	}
	return nil
}

func (d Datasource) GetLinkByID(ctx context.Context, id string) (*model.Link, error) {
	row := d.Conn.QueryRowContext(ctx, `SELECT `+linkColumns+` FROM payment_links WHERE link_id = $1`, id)
	link, err := scanLink(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, "Link not found", nil)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve link", err)
	}
	return link, nil
}

func (d Datasource) GetLinksByCreator(ctx context.Context, creatorID string) ([]model.Link, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT `+linkColumns+` FROM payment_links WHERE creator_id = $1 ORDER BY created_at DESC
	`, creatorID)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve links", err)
	}
	return collectLinks(rows)
}

func (d Datasource) GetAllLinks(ctx context.Context) ([]model.Link, error) {
	rows, err := d.Conn.QueryContext(ctx, `SELECT `+linkColumns+` FROM payment_links ORDER BY created_at DESC`)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve links", err)
	}
	return collectLinks(rows)
}

// MarkLinkPaid records a confirmed deposit. The update only applies while the
// link is still created, so of two racing payments exactly one is recorded.
func (d Datasource) MarkLinkPaid(ctx context.Context, id string, p model.Payment) (*model.Link, error) {
	res, err := d.Conn.ExecContext(ctx, `
		UPDATE payment_links
		SET status = $1, commitment = $2, deposit_tx = $3, paid_lamports = $4,
			payment_count = payment_count + 1, paid_at = $5
		WHERE link_id = $6 AND status = $7
	`, model.LinkStatusPaid, p.Commitment, p.DepositTx, p.Lamports, p.PaidAt, id, model.LinkStatusCreated)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to record payment", err)
	}
	if err := d.requireUpdated(ctx, res, id, "Already paid"); err != nil {
		return nil, err
	}
	return d.GetLinkByID(ctx, id)
}

// MarkLinkWithdrawn records a confirmed withdrawal, only while the link is paid.
func (d Datasource) MarkLinkWithdrawn(ctx context.Context, id string, w model.Withdrawal) (*model.Link, error) {
	res, err := d.Conn.ExecContext(ctx, `
		UPDATE payment_links
		SET status = $1, withdraw_tx = $2, recipient_wallet = $3, withdrawn_at = $4
		WHERE link_id = $5 AND status = $6 AND commitment IS NOT NULL
	`, model.LinkStatusWithdrawn, w.WithdrawTx, w.RecipientWallet, w.WithdrawnAt, id, model.LinkStatusPaid)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to record withdrawal", err)
	}
	if err := d.requireUpdated(ctx, res, id, "Not withdrawable"); err != nil {
		return nil, err
	}
	return d.GetLinkByID(ctx, id)
}

// requireUpdated turns a conditional update that matched nothing into not found
// or a state conflict.
func (d Datasource) requireUpdated(ctx context.Context, res sql.Result, id, conflict string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to read update result", err)
	}
	if n > 0 {
		return nil
	}
	if _, err := d.GetLinkByID(ctx, id); err != nil {
		return err
	}
	return apierror.NewAPIError(apierror.ErrStateConflict, conflict, nil)
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanLink(row scanner) (*model.Link, error) {
	var (
		link                             model.Link
		amount, commitment               sql.NullString
		depositTx, withdrawTx, recipient sql.NullString
		paidAt, withdrawnAt              sql.NullTime
	)
	err := row.Scan(&link.LinkID, &link.CreatorID, &amount, &link.AmountType, &link.Token, &link.Status,
		&commitment, &link.PaidLamports, &depositTx, &withdrawTx, &recipient, &link.PaymentCount,
		&link.CreatedAt, &paidAt, &withdrawnAt)
	if err != nil {
		return nil, err
	}

	link.Amount = amount.String
	if commitment.Valid {
		link.Commitment = &commitment.String
	}
	link.DepositTx = depositTx.String
	link.WithdrawTx = withdrawTx.String
	link.RecipientWallet = recipient.String
	link.PaidAt = nullTime(paidAt)
	link.WithdrawnAt = nullTime(withdrawnAt)
	return &link, nil
}

func collectLinks(rows *sql.Rows) ([]model.Link, error) {
	defer rows.Close()

	links := []model.Link{}
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan link data", err)
		}
		links = append(links, *link)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over links", err)
	}
	return links, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code.Name() == "unique_violation"
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique || liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
