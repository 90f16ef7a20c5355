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

// Package restapi exposes the batch driver over HTTP: a thin job-submission
// surface for hosts that would rather POST a document than shell out to
// the CLI.
package restapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mlnoga/starcal/internal/batch"
)

// Serve starts the job-submission API on addr (gin's default 0.0.0.0:8080
// if addr is empty).
func Serve(addr string) error {
	r := gin.Default()
	v1 := r.Group("/api").Group("/v1")
	{
		v1.GET("/ping", getPing)
		v1.POST("/jobs", postJob)
	}
	if addr == "" {
		return r.Run()
	}
	return r.Run(addr)
}

func getPing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}

// postJob binds the request body to a batch.Job, streams an echo of the
// parsed job and a per-target completion line to the response body as
// plain text, the way the teacher's job endpoint streamed promise
// materialization progress.
func postJob(c *gin.Context) {
	var job batch.Job
	if err := c.ShouldBindJSON(&job); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := job.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	w := c.Writer
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)

	if m, err := json.MarshalIndent(job, "", "  "); err == nil {
		fmt.Fprintf(w, "job:\n%s\n\n", m)
	}

	results, err := batch.Run(c.Request.Context(), &job, w)
	if err != nil {
		fmt.Fprintf(w, "error: %v\n", err)
		return
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	fmt.Fprintf(w, "\n%d targets, %d failed\n", len(results), failed)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}
