/*
Copyright 2024 RoutePay Authors.

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
	"github.com/sirupsen/logrus"

	model2 "github.com/routepay/payrouter/api/model"
	"github.com/routepay/payrouter/internal/apierror"
)

// respondError maps an engine error to its HTTP status and a stable error
// code so clients can branch without parsing messages.
func respondError(c *gin.Context, err error) {
	c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{
		"code":  apierror.CodeOf(err),
		"error": err.Error(),
	})
}

// CreatePayout handles the creation of a single payout. The payout comes back
// with its assigned route and quoted fee.
func (a Api) CreatePayout(c *gin.Context) {
	var newPayout model2.CreatePayout
	if err := c.ShouldBindJSON(&newPayout); err != nil {
		logrus.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	if err := newPayout.ValidateCreatePayout(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	resp, err := a.engine.CreatePayout(c.Request.Context(), newPayout.ToPayoutRequest())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// SubmitBatch handles a batch submission and returns per-item results in
// submission order.
func (a Api) SubmitBatch(c *gin.Context) {
	var newBatch model2.CreateBatch
	if err := c.ShouldBindJSON(&newBatch); err != nil {
		logrus.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	if err := newBatch.ValidateCreateBatch(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	resp, err := a.engine.SubmitBatch(c.Request.Context(), newBatch.ToPayoutRequests(), newBatch.Strategy)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// GetPayout retrieves a payout by its ID.
func (a Api) GetPayout(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}

	resp, err := a.engine.GetPayout(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ListPayouts returns payouts, filtered by the optional status query param.
func (a Api) ListPayouts(c *gin.Context) {
	resp, err := a.engine.ListPayouts(c.Request.Context(), c.Query("status"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// DispatchPayout hands a routed payout to its settlement backend.
func (a Api) DispatchPayout(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}

	resp, err := a.engine.DispatchPayout(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ReconcilePayout refreshes a payout's confirmation count.
func (a Api) ReconcilePayout(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}

	resp, err := a.engine.ReconcilePayout(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// CancelPayout cancels a payout that has not yet been dispatched.
func (a Api) CancelPayout(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}

	resp, err := a.engine.CancelPayout(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// RefundPayout issues a refund against a completed or failed payout.
func (a Api) RefundPayout(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}

	var refund model2.RefundPayout
	if err := c.ShouldBindJSON(&refund); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	if err := refund.ValidateRefundPayout(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	resp, err := a.engine.RefundPayout(c.Request.Context(), id, refund.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// GetBatch retrieves a batch record by its ID.
func (a Api) GetBatch(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}

	resp, err := a.engine.GetBatch(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
