package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"poolwatch/internal/models"
	"poolwatch/internal/store"
)

// SnapshotReader exposes the last published snapshot
type SnapshotReader interface {
	Latest() []models.DisplayToken
	Publish(ctx context.Context)
}

// MetadataRefresher retries metadata resolution for a known mint
type MetadataRefresher interface {
	RefreshMetadata(ctx context.Context, mint string) (models.Metadata, error)
}

// TokenHandler serves the token read and refresh endpoints
type TokenHandler struct {
	store     *store.TokenStore
	snapshots SnapshotReader
	refresher MetadataRefresher
}

// NewTokenHandler creates a token handler
func NewTokenHandler(s *store.TokenStore, snapshots SnapshotReader, refresher MetadataRefresher) *TokenHandler {
	return &TokenHandler{
		store:     s,
		snapshots: snapshots,
		refresher: refresher,
	}
}

// ListTokens returns the latest published snapshot
func (h *TokenHandler) ListTokens(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"count": len(h.snapshots.Latest()),
		"data":  h.snapshots.Latest(),
	})
}

// GetToken returns the raw record of one mint
func (h *TokenHandler) GetToken(c *gin.Context) {
	mint := c.Param("mint")
	if _, err := solana.PublicKeyFromBase58(mint); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid mint address"})
		return
	}

	rec, err := h.store.Get(mint)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Token not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rec)
}

// RefreshMetadata resolves the metadata of one mint now, outside the
// backfill attempt ceiling, and republishes the snapshot
func (h *TokenHandler) RefreshMetadata(c *gin.Context) {
	mint := c.Param("mint")
	if _, err := solana.PublicKeyFromBase58(mint); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid mint address"})
		return
	}

	meta, err := h.refresher.RefreshMetadata(c.Request.Context(), mint)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Token not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	log.WithFields(log.Fields{
		"mint":     mint,
		"resolved": meta.Resolved(),
	}).Info("Manual metadata refresh")

	h.snapshots.Publish(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"mint":     mint,
		"resolved": meta.Resolved(),
		"metadata": meta,
	})
}
