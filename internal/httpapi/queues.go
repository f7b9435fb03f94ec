package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ppiankov/canari/internal/model"
	"github.com/ppiankov/canari/internal/queue"
)

// countRequest is a count as entered on the form. TotalFruit accepts a JSON
// number or a numeric string.
type countRequest struct {
	CreatedBy   string      `json:"createdBy"`
	Variety     string      `json:"variety"`
	Subvariety  string      `json:"subvariety"`
	BlockNumber string      `json:"blockNumber"`
	Row         string      `json:"row"`
	Tree        string      `json:"tree"`
	CanopyType  string      `json:"canopyType"`
	TotalFruit  json.Number `json:"totalFruit"`
	Vigor       string      `json:"vigor"`
}

func (r countRequest) count() (model.Count, error) {
	n, err := model.ParseTotalFruit(r.TotalFruit.String())
	if err != nil {
		return model.Count{}, err
	}
	return model.Count{
		CreatedBy:   r.CreatedBy,
		Variety:     r.Variety,
		Subvariety:  r.Subvariety,
		BlockNumber: r.BlockNumber,
		Row:         r.Row,
		Tree:        r.Tree,
		CanopyType:  r.CanopyType,
		TotalFruit:  n,
		Vigor:       r.Vigor,
	}, nil
}

type queueView struct {
	ID            string               `json:"id"`
	Counts        []queue.QueuedRecord `json:"counts"`
	CanopyOptions []string             `json:"canopyOptions"`
	VigorOptions  []string             `json:"vigorOptions"`
}

func queueViewOf(id string, q *queue.Queue) queueView {
	return queueView{
		ID:            id,
		Counts:        q.List(),
		CanopyOptions: model.CanopyOptions,
		VigorOptions:  model.VigorOptions,
	}
}

func (s *Server) lookupQueue(c *gin.Context) (*queue.Queue, bool) {
	q, ok := s.queues.get(c.Param("id"))
	if !ok {
		abort(c, fmt.Errorf("queue %s: %w", c.Param("id"), model.ErrNotFound))
	}
	return q, ok
}

func (s *Server) createQueue(c *gin.Context) {
	q := s.app.NewQueue()
	id := s.queues.add(q)
	c.JSON(http.StatusCreated, queueViewOf(id, q))
}

func (s *Server) getQueue(c *gin.Context) {
	if q, ok := s.lookupQueue(c); ok {
		c.JSON(http.StatusOK, queueViewOf(c.Param("id"), q))
	}
}

func (s *Server) deleteQueue(c *gin.Context) {
	if !s.queues.remove(c.Param("id")) {
		abort(c, fmt.Errorf("queue %s: %w", c.Param("id"), model.ErrNotFound))
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) enqueue(c *gin.Context) {
	q, ok := s.lookupQueue(c)
	if !ok {
		return
	}
	var req countRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	count, err := req.count()
	if err != nil {
		abort(c, err)
		return
	}
	id, err := q.Enqueue(count)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id, "queued": q.Len()})
}

func (s *Server) dequeue(c *gin.Context) {
	q, ok := s.lookupQueue(c)
	if !ok {
		return
	}
	if err := q.Dequeue(queue.QueueID(c.Param("countID"))); err != nil {
		abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// submitQueue sends every queued count. On failure the response reports the
// ids stored before the error and how many counts are queued again.
func (s *Server) submitQueue(c *gin.Context) {
	q, ok := s.lookupQueue(c)
	if !ok {
		return
	}
	ids, err := q.Submit(c.Request.Context(), s.app.Records())
	if err != nil {
		if ids == nil {
			ids = []string{}
		}
		abortWith(c, err, gin.H{"stored": ids, "queued": q.Len()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ids": ids})
}
