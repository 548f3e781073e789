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

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shadowpay/shadowpay/api/middleware"
	model2 "github.com/shadowpay/shadowpay/api/model"
	"github.com/shadowpay/shadowpay/model"
)

func (a Api) Login(c *gin.Context) {
	var login model2.Login
	if err := c.ShouldBindJSON(&login); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := login.ValidateLogin(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, err := a.shadowpay.Login(c.Request.Context(), login.PublicKey, login.Message, login.Signature)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "token": token})
}

func (a Api) CreateLink(c *gin.Context) {
	var newLink model2.CreateLink
	if err := c.ShouldBindJSON(&newLink); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := newLink.ValidateCreateLink(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	link, err := a.shadowpay.CreateLink(c.Request.Context(), newLink.ToCreateLinkInput())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "link": link, "url": a.shadowpay.LinkURL(link.LinkID)})
}

func (a Api) GetLink(c *gin.Context) {
	link, err := a.shadowpay.GetLink(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "link": link})
}

func (a Api) PayLink(c *gin.Context) {
	var pay model2.PayLink
	if err := c.ShouldBindJSON(&pay); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := pay.ValidatePayLink(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	link, err := a.shadowpay.PayLink(c.Request.Context(), c.Param("id"), pay.ToPayInput())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "tx": link.DepositTx, "link": link})
}

func (a Api) ClaimLink(c *gin.Context) {
	var claim model2.ClaimLink
	if err := c.ShouldBindJSON(&claim); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := claim.ValidateClaimLink(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	link, err := a.shadowpay.ClaimLink(c.Request.Context(), c.Param("id"), middleware.Wallet(c), claim.RecipientWallet)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "tx": link.WithdrawTx, "link": link})
}

// GetPaymentLinks lists a creator's links for the dashboard. No user gives an empty list.
func (a Api) GetPaymentLinks(c *gin.Context) {
	links, err := a.shadowpay.GetLinksByCreator(c.Request.Context(), c.Query("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if links == nil {
		links = []model.Link{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "links": links})
}
