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

package shadowpay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shadowpay/shadowpay/internal/apierror"
	"github.com/shadowpay/shadowpay/internal/cache"
	redlock "github.com/shadowpay/shadowpay/internal/lock"
	"github.com/shadowpay/shadowpay/internal/privacypool"
	"github.com/shadowpay/shadowpay/internal/relayerclient"
	"github.com/shadowpay/shadowpay/model"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	linkCacheTTL = time.Minute
	// a lock outlives the relayer call so a slow deposit is never doubled
	lockGrace = 30 * time.Second
)

// CreateLinkInput is what a creator supplies for a new link.
type CreateLinkInput struct {
	Amount     string
	AmountType model.AmountType
	Token      string
	CreatorID  string
}

// PayInput describes a payment against a link. Lamports wins over Amount when both are set.
type PayInput struct {
	Lamports       int64
	Amount         string
	TransferTx     string
	PayerPublicKey string
}

func linkCacheKey(id string) string {
	return "links:" + id
}

// LinkURL is the public page a payer opens.
func (s *ShadowPay) LinkURL(id string) string {
	return strings.TrimRight(s.conf.Server.FrontendOrigin, "/") + "/pay/" + id
}

func (s *ShadowPay) CreateLink(ctx context.Context, input CreateLinkInput) (*model.Link, error) {
	ctx, span := tracer.Start(ctx, "CreateLink")
	defer span.End()

	if strings.TrimSpace(input.CreatorID) == "" {
		return nil, apierror.NewAPIError(apierror.ErrBadRequest, "creator_id is required", nil)
	}
	token, err := model.ParseToken(input.Token)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrBadRequest, err.Error(), nil)
	}

	amountType := input.AmountType
	if amountType == "" {
		amountType = model.AmountFixed
	}
	link := &model.Link{
		CreatorID:  strings.TrimSpace(input.CreatorID),
		AmountType: amountType,
		Token:      token,
		Status:     model.LinkStatusCreated,
		CreatedAt:  s.now(),
	}

	switch amountType {
	case model.AmountFixed:
		if strings.TrimSpace(input.Amount) == "" {
			return nil, apierror.NewAPIError(apierror.ErrBadRequest, "amount is required", nil)
		}
		if _, err := model.ToBaseUnits(input.Amount, token); err != nil {
			return nil, apierror.NewAPIError(apierror.ErrBadRequest, err.Error(), nil)
		}
		link.Amount = strings.TrimSpace(input.Amount)
	case model.AmountAny:
	default:
		return nil, apierror.NewAPIError(apierror.ErrBadRequest, fmt.Sprintf("unsupported amount type %q", amountType), nil)
	}

	link.LinkID, err = model.GenerateLinkID()
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to generate link id", err)
	}
	if err := s.datasource.CreateLink(ctx, link); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{"link_id": link.LinkID, "creator_id": link.CreatorID}).Info("link created")
	s.publish(ctx, EventLinkCreated, link)
	return link, nil
}

func (s *ShadowPay) GetLink(ctx context.Context, id string) (*model.Link, error) {
	ctx, span := tracer.Start(ctx, "GetLink")
	defer span.End()

	if s.cache != nil {
		var cached model.Link
		err := s.cache.Get(ctx, linkCacheKey(id), &cached)
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			logrus.WithError(err).Warn("link cache read failed")
		}
	}

	link, err := s.datasource.GetLinkByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, linkCacheKey(id), link, linkCacheTTL); err != nil {
			logrus.WithError(err).Warn("link cache write failed")
		}
	}
	return link, nil
}

func (s *ShadowPay) GetLinksByCreator(ctx context.Context, creatorID string) ([]model.Link, error) {
	ctx, span := tracer.Start(ctx, "GetLinksByCreator")
	defer span.End()

	if creatorID == "" {
		return []model.Link{}, nil
	}
	return s.datasource.GetLinksByCreator(ctx, creatorID)
}

// PayLink deposits into the pool for a created link and records the commitment.
// Nothing is written unless the relayer returns one. The link is read under the
// link lock, so a payment that finished meanwhile is seen before the relayer is called.
func (s *ShadowPay) PayLink(ctx context.Context, id string, input PayInput) (*model.Link, error) {
	ctx, span := tracer.Start(ctx, "PayLink", trace.WithAttributes(attribute.String("link.id", id)))
	defer span.End()

	unlock, err := s.lockLink(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	link, err := s.datasource.GetLinkByID(ctx, id)
	if err != nil {
		return nil, err
	}
	switch link.Status {
	case model.LinkStatusCreated:
	case model.LinkStatusWithdrawn:
		return nil, apierror.NewAPIError(apierror.ErrStateConflict, "Link already withdrawn", nil)
	default:
		return nil, apierror.NewAPIError(apierror.ErrStateConflict, "Already paid", nil)
	}

	lamports, err := paymentUnits(link, input)
	if err != nil {
		return nil, err
	}

	res, err := s.relayer.Deposit(ctx, relayerclient.DepositRequest{
		Lamports:   lamports,
		LinkID:     link.LinkID,
		Token:      string(link.Token),
		TransferTx: input.TransferTx,
	})
	if err != nil {
		span.RecordError(err)
		return nil, upstreamError("deposit", id, err)
	}

	paid, err := s.datasource.MarkLinkPaid(ctx, id, model.Payment{
		Commitment: res.Commitment,
		DepositTx:  res.Tx,
		Lamports:   lamports,
		PaidAt:     s.now(),
	})
	if err != nil {
		logrus.WithFields(logrus.Fields{"link_id": id, "tx": res.Tx}).WithError(err).
			Error("deposit confirmed but link was not marked paid")
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"link_id": id,
		"tx":      res.Tx,
		"amount":  model.FromBaseUnits(lamports, link.Token),
		"token":   link.Token,
	}).Info("link paid")
	s.invalidate(ctx, id)
	s.publish(ctx, EventLinkPaid, paid)
	return paid, nil
}

// paymentUnits resolves the base units to deposit. A fixed link with no amount
// in the request is paid at its own amount.
func paymentUnits(link *model.Link, input PayInput) (int64, error) {
	var requested int64
	switch {
	case input.Lamports != 0:
		if input.Lamports < 0 {
			return 0, apierror.NewAPIError(apierror.ErrInvalidInput, "lamports must be positive", nil)
		}
		requested = input.Lamports
	case strings.TrimSpace(input.Amount) != "":
		units, err := model.ToBaseUnits(input.Amount, link.Token)
		if err != nil {
			return 0, apierror.NewAPIError(apierror.ErrInvalidInput, err.Error(), nil)
		}
		requested = units
	}

	if link.AmountType == model.AmountAny {
		if requested <= 0 {
			return 0, apierror.NewAPIError(apierror.ErrInvalidInput, "amount is required", nil)
		}
		return requested, nil
	}

	expected, err := link.ExpectedBaseUnits()
	if err != nil {
		return 0, apierror.NewAPIError(apierror.ErrInternalServer, "Link amount is invalid", err)
	}
	if requested == 0 {
		return expected, nil
	}
	if requested != expected {
		return 0, apierror.NewAPIError(apierror.ErrInvalidInput, "Amount mismatch", nil)
	}
	return expected, nil
}

// ClaimLink withdraws a paid link's funds to recipient. Only the link's creator
// may claim it, and nothing about the link is reported to anyone else.
func (s *ShadowPay) ClaimLink(ctx context.Context, id, wallet, recipient string) (*model.Link, error) {
	ctx, span := tracer.Start(ctx, "ClaimLink", trace.WithAttributes(attribute.String("link.id", id)))
	defer span.End()

	unlock, err := s.lockLink(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	link, err := s.datasource.GetLinkByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if wallet == "" || wallet != link.CreatorID {
		return nil, apierror.NewAPIError(apierror.ErrUnauthorized, "Not the link creator", nil)
	}
	if link.Status != model.LinkStatusPaid {
		return nil, apierror.NewAPIError(apierror.ErrStateConflict, "Not withdrawable", nil)
	}
	if err := link.CheckInvariants(); err != nil {
		logrus.WithField("link_id", id).WithError(err).Error("critical: paid link without commitment")
		s.notify(err)
		return nil, apierror.NewAPIError(apierror.ErrInvariant, "Link is paid but has no commitment", nil)
	}
	if err := privacypool.ValidateAddress(recipient); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, "Invalid wallet", nil)
	}

	res, err := s.relayer.Withdraw(ctx, relayerclient.WithdrawRequest{
		Commitment: *link.Commitment,
		Recipient:  recipient,
		Lamports:   link.PaidLamports,
	})
	if err != nil {
		span.RecordError(err)
		return nil, upstreamError("withdraw", id, err)
	}

	withdrawn, err := s.datasource.MarkLinkWithdrawn(ctx, id, model.Withdrawal{
		WithdrawTx:      res.Tx,
		RecipientWallet: recipient,
		WithdrawnAt:     s.now(),
	})
	if err != nil {
		logrus.WithFields(logrus.Fields{"link_id": id, "tx": res.Tx}).WithError(err).
			Error("withdraw confirmed but link was not marked withdrawn")
		return nil, err
	}

	logrus.WithFields(logrus.Fields{"link_id": id, "tx": res.Tx}).Info("link withdrawn")
	s.invalidate(ctx, id)
	s.publish(ctx, EventLinkWithdrawn, withdrawn)
	return withdrawn, nil
}

// lockLink takes the per-link lock when Redis is configured.
func (s *ShadowPay) lockLink(ctx context.Context, id string) (func(), error) {
	if s.redis == nil {
		return func() {}, nil
	}
	locker := redlock.ForLink(s.redis, id)
	if err := locker.Lock(ctx, s.conf.RelayerCallTimeout()+lockGrace); err != nil {
		if errors.Is(err, redlock.ErrLockHeld) {
			return nil, apierror.NewAPIError(apierror.ErrStateConflict, "operation already in progress", nil)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to lock link", err)
	}
	return func() {
		if err := locker.Unlock(context.WithoutCancel(ctx)); err != nil {
			logrus.WithField("link_id", id).WithError(err).Warn("failed to release link lock")
		}
	}, nil
}

func (s *ShadowPay) invalidate(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, linkCacheKey(id)); err != nil {
		logrus.WithField("link_id", id).WithError(err).Warn("link cache invalidation failed")
	}
}

// upstreamError carries the relayer's own text to the caller.
func upstreamError(op, id string, err error) error {
	message := err.Error()
	var relayerErr *relayerclient.Error
	if errors.As(err, &relayerErr) && relayerErr.Message != "" {
		message = relayerErr.Message
	}
	logrus.WithFields(logrus.Fields{"link_id": id, "op": op}).WithError(err).Error("relayer call failed")
	return apierror.NewAPIError(apierror.ErrUpstream, message, nil)
}
