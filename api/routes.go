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

	model2 "github.com/routepay/payrouter/api/model"
)

// RoutesHealth returns a snapshot of every route's live state.
func (a Api) RoutesHealth(c *gin.Context) {
	c.JSON(http.StatusOK, a.engine.Registry().Snapshot())
}

// RoutesAnalytics returns lifetime analytics for every route.
func (a Api) RoutesAnalytics(c *gin.Context) {
	c.JSON(http.StatusOK, a.engine.Registry().AnalyticsAll())
}

// RouteAnalytics returns lifetime analytics for a single route.
func (a Api) RouteAnalytics(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}

	resp, err := a.engine.Registry().Analytics(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// SetRouteOffline toggles the administrative offline state of a route.
func (a Api) SetRouteOffline(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}

	var req model2.SetRouteOffline
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	if err := a.engine.Registry().SetOffline(id, req.Offline); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"route_id": id, "offline": req.Offline})
}
