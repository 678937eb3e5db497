package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"matchengine/internal/controller"
)

func (s *Server) rootHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": s.sc.Online()})
}

func (s *Server) healthHandler(c *gin.Context) {
	health, err := s.sc.Health(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": health, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": health})
}

func (s *Server) joinQueueHandler(c *gin.Context) {
	var req controller.JoinQueueRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "code": "InvalidTicket"})
		return
	}

	ticketID, err := s.tc.EnqueueTicket(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, controller.ErrUnknownMode):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "UnknownMode"})
		case errors.Is(err, controller.ErrInvalidTicket):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "InvalidTicket"})
		default:
			log.Error().Err(err).Str("gameMode", req.GameMode).Msg("Failed to enqueue ticket")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to enqueue ticket", "code": "StoreError"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":  "You have been queued",
		"ticketId": ticketID,
	})
}

func (s *Server) poolSizeHandler(c *gin.Context) {
	mode := c.Param("mode")

	size, err := s.tc.PoolSize(c.Request.Context(), mode)
	if err != nil {
		if errors.Is(err, controller.ErrUnknownMode) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "UnknownMode"})
			return
		}
		log.Error().Err(err).Str("gameMode", mode).Msg("Failed to read pool size")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read pool size", "code": "StoreError"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"gameMode": mode, "size": size})
}
