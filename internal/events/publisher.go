package events

import (
	"context"
	"fmt"
	"time"

	"catalog-service/internal/models"
	"github.com/Tesseract-Nexus/go-shared/events"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Publisher wraps the go-shared events publisher for product-specific events
type Publisher struct {
	publisher *events.Publisher
	logger    *logrus.Entry
}

// NewPublisher creates a new product events publisher
func NewPublisher(natsURL string, logger *logrus.Logger) (*Publisher, error) {
	config := events.DefaultPublisherConfig(natsURL)
	config.Name = "catalog-service"

	publisher, err := events.NewPublisher(config, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create events publisher: %w", err)
	}

	// Ensure the products stream exists
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := publisher.EnsureStream(ctx, events.StreamProducts, []string{"product.>"}); err != nil {
		logger.WithError(err).Warn("Failed to ensure products stream (may already exist)")
	}

	return &Publisher{
		publisher: publisher,
		logger:    logger.WithField("component", "catalog-events"),
	}, nil
}

// Close closes the NATS connection
func (p *Publisher) Close() {
	if p.publisher != nil {
		p.publisher.Close()
	}
}

// PublishProductCreated publishes a product.created event for an imported product
func (p *Publisher) PublishProductCreated(ctx context.Context, product *models.Product, actorID string) error {
	event := p.buildProductEvent(events.ProductCreated, product)
	event.ActorID = actorID
	event.ChangeType = "created"
	event.NewValue = snapshot(product)
	return p.publish(ctx, event)
}

// PublishProductUpdated publishes a product.updated event. changedFields lists
// the scalar fields and replaced collections of the import record.
func (p *Publisher) PublishProductUpdated(ctx context.Context, product, oldProduct *models.Product, changedFields []string, actorID string) error {
	event := p.buildProductEvent(events.ProductUpdated, product)
	event.ActorID = actorID
	event.ChangeType = "updated"
	event.ChangedFields = changedFields
	if oldProduct != nil {
		event.OldValue = snapshot(oldProduct)
	}
	event.NewValue = snapshot(product)
	return p.publish(ctx, event)
}

func snapshot(product *models.Product) map[string]interface{} {
	desc := ""
	if product.Description != nil {
		desc = *product.Description
	}
	return map[string]interface{}{
		"name":        product.Name,
		"description": desc,
		"type":        product.Type,
		"status":      product.Status,
	}
}

// buildProductEvent creates a ProductEvent from a product model
func (p *Publisher) buildProductEvent(eventType string, product *models.Product) *events.ProductEvent {
	event := events.NewProductEvent(eventType, product.TenantID)
	event.SourceID = uuid.New().String()
	event.ProductID = product.ID.String()
	event.ProductName = product.Name
	event.SKU = product.SKU
	event.Status = string(product.Status)
	return event
}

// publish is a helper that logs and publishes events asynchronously
func (p *Publisher) publish(ctx context.Context, event *events.ProductEvent) error {
	// Publish asynchronously to not block the main flow
	go func() {
		pubCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := p.publisher.PublishProduct(pubCtx, event); err != nil {
			p.logger.WithFields(logrus.Fields{
				"eventType": event.EventType,
				"productID": event.ProductID,
				"tenantID":  event.TenantID,
			}).WithError(err).Error("Failed to publish product event")
		} else {
			p.logger.WithFields(logrus.Fields{
				"eventType": event.EventType,
				"productID": event.ProductID,
				"sku":       event.SKU,
				"tenantID":  event.TenantID,
			}).Debug("Product event published")
		}
	}()

	return nil
}
