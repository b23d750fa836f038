// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package rest exposes a thin status/trigger surface over a running
// sampling job: start a sampling run, check its progress, and fetch a
// pixel's saved chain. Grounded on the teacher's gin-based internal/rest
// server, retargeted from FITS-pipeline endpoints to sampler control.
package rest

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mlnoga/dustlos/internal/chain"
)

// Job is the narrow surface this package drives a long-running sampling
// job through, implemented by the caller (internal/workers' dispatcher or
// a single-pixel driver).
type Job interface {
	Status() (running bool, pixelsDone, pixelsTotal int)
	Trigger(filePattern string) error
	PixelChain(key chain.Key) *chain.Store
}

// Server wraps a gin engine bound to one Job.
type Server struct {
	job    Job
	engine *gin.Engine
}

// NewServer wires the status/trigger/pixel routes against job.
func NewServer(job Job) *Server {
	s := &Server{job: job, engine: gin.Default()}
	api := s.engine.Group("/api")
	{
		v1 := api.Group("/v1")
		{
			v1.GET("/ping", getPing)
			v1.POST("/sample", s.postSample)
			v1.GET("/status", s.getStatus)
			v1.GET("/pixel/:key", s.getPixel)
		}
	}
	return s
}

// Run listens and serves on addr (empty for gin's default 0.0.0.0:8080).
func (s *Server) Run(addr ...string) error { return s.engine.Run(addr...) }

func getPing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}

type postSampleArgs struct {
	FilePattern string `json:"filePattern"`
}

func (s *Server) postSample(c *gin.Context) {
	var args postSampleArgs
	if err := c.ShouldBindJSON(&args); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.job.Trigger(args.FilePattern); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "sampling started"})
}

func (s *Server) getStatus(c *gin.Context) {
	running, done, total := s.job.Status()
	c.JSON(http.StatusOK, gin.H{"running": running, "pixelsDone": done, "pixelsTotal": total})
}

func (s *Server) getPixel(c *gin.Context) {
	keyStr := c.Param("key")
	key, err := parseKey(keyStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	store := s.job.PixelChain(key)
	if store == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no chain for key " + keyStr})
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": keyStr, "points": store.All()})
}

func parseKey(s string) (chain.Key, error) {
	var key chain.Key
	cur := 0
	started := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			cur = cur*10 + int(r-'0')
			started = true
		case r == '.':
			if !started {
				return nil, fmt.Errorf("rest: malformed key %q", s)
			}
			key = append(key, cur)
			cur, started = 0, false
		default:
			return nil, fmt.Errorf("rest: malformed key %q", s)
		}
	}
	if !started {
		return nil, fmt.Errorf("rest: malformed key %q", s)
	}
	return append(key, cur), nil
}
