package autorespond

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wolfman30/autorespond/internal/clients"
	"github.com/wolfman30/autorespond/pkg/logging"
)

// ContextBuilder resolves the client and gathers catalog facts for one reply.
type ContextBuilder struct {
	clients ClientStore
	catalog CatalogStore
	logger  *logging.Logger
}

func NewContextBuilder(clientStore ClientStore, catalogStore CatalogStore, logger *logging.Logger) *ContextBuilder {
	if clientStore == nil {
		panic("autorespond: client store required")
	}
	if catalogStore == nil {
		panic("autorespond: catalog store required")
	}
	return &ContextBuilder{clients: clientStore, catalog: catalogStore, logger: logging.OrDefault(logger)}
}

// ResolveClient finds the client by the sender address for the channel, creating a
// placeholder with throwaway credentials when none exists.
func (b *ContextBuilder) ResolveClient(ctx context.Context, msg InboundMessage) (*clients.Client, error) {
	address := strings.TrimSpace(msg.From)
	var (
		client *clients.Client
		err    error
	)
	if msg.Channel == ChannelSMS {
		client, err = b.clients.FindByPhone(ctx, address)
	} else {
		client, err = b.clients.FindByEmail(ctx, address)
	}
	if err == nil {
		return client, nil
	}
	if !errors.Is(err, clients.ErrNotFound) {
		return nil, fmt.Errorf("autorespond: lookup client: %w", err)
	}

	creds, err := clients.GenerateCredentials(address)
	if err != nil {
		return nil, fmt.Errorf("autorespond: placeholder credentials: %w", err)
	}
	req := &clients.NewClient{
		Username:     creds.Username,
		PasswordHash: creds.PasswordHash,
		Placeholder:  true,
		Preferences:  clients.DefaultPreferences(),
	}
	if msg.Channel == ChannelSMS {
		req.Phone = address
	} else {
		req.Email = address
	}
	client, err = b.clients.Create(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("autorespond: create placeholder client: %w", err)
	}
	b.logger.Info("created placeholder client", "client_id", client.ID, "channel", msg.Channel)
	return client, nil
}

// Build fetches fresh catalog data. Any storage error aborts the reply.
func (b *ContextBuilder) Build(ctx context.Context, client *clients.Client, msg InboundMessage) (ResponseContext, error) {
	settings, err := b.catalog.BusinessSettings(ctx)
	if err != nil {
		return ResponseContext{}, fmt.Errorf("autorespond: load business settings: %w", err)
	}
	services, err := b.catalog.ListServices(ctx)
	if err != nil {
		return ResponseContext{}, fmt.Errorf("autorespond: list services: %w", err)
	}
	staff, err := b.catalog.ListStaff(ctx)
	if err != nil {
		return ResponseContext{}, fmt.Errorf("autorespond: list staff: %w", err)
	}
	knowledge, err := b.catalog.BusinessKnowledge(ctx)
	if err != nil {
		return ResponseContext{}, fmt.Errorf("autorespond: load knowledge: %w", err)
	}

	rctx := ResponseContext{
		BusinessName: settings.BusinessName,
		BusinessType: settings.BusinessType,
		Settings:     settings,
		Services:     services,
		Staff:        staff,
		Knowledge:    knowledge,
		Message:      msg,
	}
	if client != nil {
		rctx.Client = *client
	}
	return rctx, nil
}
