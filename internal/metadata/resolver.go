package metadata

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"
	log "github.com/sirupsen/logrus"

	"poolwatch/internal/models"
	"poolwatch/internal/observability"
	chain "poolwatch/pkg/solana"
)

// Resolution results recorded in metrics
const (
	ResultCacheHit   = "cache_hit"
	ResultResolved   = "resolved"
	ResultUnresolved = "unresolved"
	ResultInvalid    = "invalid"
)

// OnChainSource reads the token metadata account of a mint
type OnChainSource interface {
	TokenMetadata(ctx context.Context, mint string) (*chain.TokenMetadata, error)
}

// DocumentSource fetches the off-chain document behind a metadata URI
type DocumentSource interface {
	Fetch(ctx context.Context, uri string) (*OffChainMetadata, error)
}

// ImageSource looks up a token image from a secondary index
type ImageSource interface {
	Image(ctx context.Context, mint string) (string, error)
}

// Resolver turns a mint into display metadata by layering the on-chain
// account, its off-chain document and a secondary image source.
type Resolver struct {
	onChain   OnChainSource
	documents DocumentSource
	images    ImageSource
	cache     *Cache
	metrics   *observability.Metrics
}

// NewResolver creates a resolver. images may be nil.
func NewResolver(onChain OnChainSource, documents DocumentSource, images ImageSource, cache *Cache, metrics *observability.Metrics) *Resolver {
	if cache == nil {
		cache = NewCache()
	}
	return &Resolver{
		onChain:   onChain,
		documents: documents,
		images:    images,
		cache:     cache,
		metrics:   metrics,
	}
}

// Cache returns the resolver's positive-result cache
func (r *Resolver) Cache() *Cache {
	return r.cache
}

// Resolve never fails: on any problem it returns the sentinel metadata.
func (r *Resolver) Resolve(ctx context.Context, mint string) models.Metadata {
	if _, err := solana.PublicKeyFromBase58(mint); err != nil {
		r.metrics.RecordMetadataResolve(ResultInvalid)
		return models.UnknownMetadata()
	}

	if m, ok := r.cache.Get(mint); ok {
		r.metrics.RecordMetadataResolve(ResultCacheHit)
		return m
	}

	started := time.Now()
	onChain, err := r.onChain.TokenMetadata(ctx, mint)
	r.metrics.RecordProvider("metaplex", started, err)
	if err != nil {
		log.WithFields(log.Fields{
			"mint":  mint,
			"error": err.Error(),
		}).Debug("On-chain metadata unavailable")
		r.metrics.RecordMetadataResolve(ResultUnresolved)
		return models.UnknownMetadata()
	}

	result := models.Metadata{
		Name:   nonEmpty(onChain.Name, models.UnknownValue),
		Symbol: nonEmpty(onChain.Symbol, models.UnknownValue),
		URI:    onChain.URI,
	}

	if result.URI != "" && r.documents != nil {
		started = time.Now()
		doc, err := r.documents.Fetch(ctx, result.URI)
		r.metrics.RecordProvider("metadata_uri", started, err)
		if err != nil {
			log.WithFields(log.Fields{
				"mint":  mint,
				"uri":   result.URI,
				"error": err.Error(),
			}).Debug("Off-chain metadata unavailable")
		} else {
			result.Name = nonEmpty(doc.Name, result.Name)
			result.Symbol = nonEmpty(doc.Symbol, result.Symbol)
			result.Image = doc.ImageLink()
		}
	}

	// a mint without a URI has no document to describe; the secondary
	// index is only consulted when the document lacked an image
	if result.URI != "" && result.Image == "" && r.images != nil {
		started = time.Now()
		image, err := r.images.Image(ctx, mint)
		r.metrics.RecordProvider("solscan", started, err)
		if err != nil {
			log.WithFields(log.Fields{
				"mint":  mint,
				"error": err.Error(),
			}).Debug("Secondary image lookup failed")
		} else {
			result.Image = image
		}
	}

	if r.cache.Put(mint, result) {
		r.metrics.RecordMetadataResolve(ResultResolved)
	} else {
		r.metrics.RecordMetadataResolve(ResultUnresolved)
	}
	return result
}

func nonEmpty(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
