package typesense

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/typesense/typesense-go/v2/typesense"
	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"
	"github.com/zatekoja/intakedesk/pkg/config"
	"github.com/zatekoja/intakedesk/pkg/retry"
)

const (
	AppointmentsCollection = "appointments"
)

// Client represents a Typesense client
type Client struct {
	client *typesense.Client
}

// NewClient creates a new Typesense client with exponential backoff retry
func NewClient(cfg *config.TypesenseConfig) (*Client, error) {
	client := typesense.NewClient(
		typesense.WithServer(cfg.URL),
		typesense.WithAPIKey(cfg.APIKey),
		typesense.WithConnectionTimeout(5*time.Second),
	)

	err := retry.DoWithLog(
		context.Background(),
		retry.DefaultConfig(),
		"Typesense",
		func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_, err := client.Health(ctx, 2*time.Second)
			return err
		},
		func(attempt int, err error, nextDelay time.Duration) {
			log.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", nextDelay).Msg("Typesense connection failed")
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Typesense after retries: %w", err)
	}

	log.Info().Str("url", cfg.URL).Msg("connected to Typesense")
	return &Client{client: client}, nil
}

// Client returns the underlying Typesense client
func (c *Client) Client() *typesense.Client {
	return c.client
}

// AppointmentsSchema is the collection holding searchable patient fields.
// Only identifying fields are indexed. Clinical text stays in Postgres.
func AppointmentsSchema() *api.CollectionSchema {
	return &api.CollectionSchema{
		Name: AppointmentsCollection,
		Fields: []api.Field{
			{Name: "id", Type: "string"},
			{Name: "project_name", Type: "string", Facet: pointer.True()},
			{Name: "lead_name", Type: "string"},
			{Name: "lead_phone_number", Type: "string", Optional: pointer.True()},
			{Name: "lead_phone_digits", Type: "string", Optional: pointer.True()},
			{Name: "lead_email", Type: "string", Optional: pointer.True()},
			{Name: "status", Type: "string", Facet: pointer.True(), Optional: pointer.True()},
			{Name: "date_of_appointment", Type: "string", Optional: pointer.True()},
			{Name: "created_at", Type: "int64"},
		},
		DefaultSortingField: pointer.String("created_at"),
	}
}

// InitSchema ensures the appointments collection exists
func (c *Client) InitSchema(ctx context.Context) error {
	collections, err := c.client.Collections().Retrieve(ctx)
	if err != nil {
		return fmt.Errorf("failed to retrieve collections: %w", err)
	}

	for _, col := range collections {
		if col.Name == AppointmentsCollection {
			return nil
		}
	}

	if _, err := c.client.Collections().Create(ctx, AppointmentsSchema()); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	log.Info().Str("collection", AppointmentsCollection).Msg("created Typesense collection")
	return nil
}

// DropSchema deletes the appointments collection, used before a full reindex
func (c *Client) DropSchema(ctx context.Context) error {
	if _, err := c.client.Collection(AppointmentsCollection).Delete(ctx); err != nil {
		return fmt.Errorf("failed to drop collection: %w", err)
	}
	return nil
}
