// Package server serves a task collection over HTTP the way the client in
// internal/store/remote expects it: GET/POST on the collection path and
// GET/PATCH/DELETE on <path>/<id>, all JSON.
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"

	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/store"
)

const maxBodySize = 64 << 10

// Collection is the storage behind the server.
type Collection interface {
	List(ctx context.Context) ([]model.Task, error)
	Get(ctx context.Context, id string) (model.Task, error)
	Create(ctx context.Context, t model.Task) (model.Task, error)
	Patch(ctx context.Context, p model.TaskPatch) (model.Task, error)
	Delete(ctx context.Context, id string) error
}

type Server struct {
	tasks  Collection
	router *gin.Engine
}

// New builds the router for tasks mounted at /tasks. Request logs go to
// logOut; pass io.Discard to silence them.
func New(tasks Collection, logOut io.Writer) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.LoggerWithWriter(logOut), gin.Recovery())

	s := &Server{tasks: tasks, router: router}
	g := router.Group("/tasks")
	g.GET("", s.handleList)
	g.POST("", s.handleCreate)
	g.GET("/:id", s.handleGet)
	g.PATCH("/:id", s.handlePatch)
	g.DELETE("/:id", s.handleDelete)
	return s
}

// Handler returns the router wrapped with permissive CORS so browser front
// ends on other origins can use it too.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Accept"},
	})
	return c.Handler(s.router)
}

func (s *Server) handleList(c *gin.Context) {
	tasks, err := s.tasks.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

func (s *Server) handleGet(c *gin.Context) {
	t, err := s.tasks.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (s *Server) handleCreate(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodySize)
	var t model.Task
	if err := c.ShouldBindJSON(&t); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON: " + err.Error()})
		return
	}
	t.Title = strings.TrimSpace(t.Title)
	created, err := s.tasks.Create(c.Request.Context(), t)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (s *Server) handlePatch(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodySize)
	var p model.TaskPatch
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON: " + err.Error()})
		return
	}
	// The path decides which task changes.
	p.ID = c.Param("id")
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		writeError(c, store.ErrInvalidTask)
		return
	}
	t, err := s.tasks.Patch(c.Request.Context(), p)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (s *Server) handleDelete(c *gin.Context) {
	if err := s.tasks.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}

func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, store.ErrDuplicateID):
		status = http.StatusConflict
	case errors.Is(err, store.ErrInvalidTask):
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
