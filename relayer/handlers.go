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

package relayer

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shadowpay/shadowpay/internal/offload"
	"github.com/shadowpay/shadowpay/internal/privacypool"
	"github.com/shadowpay/shadowpay/model"
	"github.com/sirupsen/logrus"
)

func (r *Relayer) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "relayer": r.keypair.Address()})
}

// Deposit moves lamports from the relayer wallet into the pool and returns the
// resulting commitment.
func (r *Relayer) Deposit(c *gin.Context) {
	var req DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	job := r.request(offload.KindDeposit)
	job.Lamports = req.Lamports

	logger := logrus.WithFields(logrus.Fields{"link_id": req.LinkID, "lamports": req.Lamports})
	res, err := r.offloader.Run(context.WithoutCancel(c.Request.Context()), job)
	if err != nil {
		logger.WithError(err).Error("deposit failed")
		offloadFailure(c, err)
		return
	}

	if res.Commitment == "" {
		// funds may have moved; the tx is logged so the note can be traced by hand
		logger.WithField("tx", res.Tx).Error("deposit returned no commitment")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "pool returned no commitment", "code": "NO_COMMITMENT"})
		return
	}
	logger.WithField("tx", res.Tx).Info("deposit complete")
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"commitment":  res.Commitment,
		"tx":          res.Tx,
		"duration_ms": durationMs(res.Duration),
	})
}

func (r *Relayer) Withdraw(c *gin.Context) {
	var req WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	job := r.request(offload.KindWithdraw)
	job.Lamports = req.Lamports
	job.Commitment = req.Commitment
	job.Recipient = req.Recipient

	logger := logrus.WithFields(logrus.Fields{"recipient": req.Recipient, "lamports": req.Lamports})
	res, err := r.offloader.Run(context.WithoutCancel(c.Request.Context()), job)
	if err != nil {
		logger.WithError(err).Error("withdraw failed")
		offloadFailure(c, err)
		return
	}

	logger.WithField("tx", res.Tx).Info("withdraw complete")
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"tx":          res.Tx,
		"duration_ms": durationMs(res.Duration),
	})
}

func (r *Relayer) Balance(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), r.conf.DepositTimeout())
	defer cancel()

	bal, err := r.pool.Balance(ctx)
	if err != nil {
		logrus.WithError(err).Error("balance lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "balance": bal.Lamports})
}

func (r *Relayer) DepositInstruction(c *gin.Context) {
	var req DepositInstructionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	token, err := model.ParseToken(req.Token)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	data, err := privacypool.BuildDepositData(req.Commitment, req.Amount, token.AssetType())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	instructionResponse(c, data)
}

func (r *Relayer) WithdrawInstruction(c *gin.Context) {
	var req WithdrawInstructionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	token, err := model.ParseToken(req.Token)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	data, err := privacypool.BuildWithdrawData(req.Root, req.Nullifier, req.Amount, token.AssetType())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	instructionResponse(c, data)
}

func instructionResponse(c *gin.Context, data []byte) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    base64.StdEncoding.EncodeToString(data),
		"hex":     hex.EncodeToString(data),
		"length":  len(data),
	})
}

// offloadFailure reports the unit's own message verbatim with a code naming
// how the unit ended.
func offloadFailure(c *gin.Context, err error) {
	code := "INTERNAL"
	var (
		stopped  *offload.UnitStoppedError
		reported *offload.ReportedError
	)
	switch {
	case errors.Is(err, offload.ErrTimeout):
		code = "TIMEOUT"
	case errors.As(err, &stopped):
		code = "UNIT_STOPPED"
	case errors.As(err, &reported):
		code = "REPORTED"
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "code": code})
}
