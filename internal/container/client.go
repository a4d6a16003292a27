package container

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/po-approval/internal/application/dispatcher"
	"github.com/garyjia/po-approval/internal/application/lifecycle"
	"github.com/garyjia/po-approval/internal/application/port"
	"github.com/garyjia/po-approval/internal/application/session"
	"github.com/garyjia/po-approval/internal/infrastructure/external/catalog"
	"github.com/garyjia/po-approval/internal/infrastructure/sessionstore"
	"github.com/garyjia/po-approval/pkg/utils"
)

// Client holds the components the command line client works with.
// Session and Lifecycle share one dispatcher and one catalog client.
type Client struct {
	Store      port.SessionStore
	Catalog    *catalog.Client
	Dispatcher dispatcher.Dispatcher
	Session    *session.Manager
	Lifecycle  *lifecycle.Lifecycle
}

// NewClient wires the client against the real filesystem
func NewClient(cfg ClientConfig, logger *zap.Logger) (*Client, error) {
	return NewClientWithStore(cfg, sessionstore.NewOSFileStore(cfg.SessionFile, logger), logger)
}

// NewClientWithStore wires the client around an existing token store
func NewClientWithStore(cfg ClientConfig, store port.SessionStore, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	api, err := catalog.NewClient(catalog.Config{BaseURL: cfg.BaseURL, Timeout: cfg.Timeout}, store, logger)
	if err != nil {
		return nil, err
	}

	kv := utils.NewKVLogger(logger)
	events := dispatcher.NewDispatcher(dispatcher.WithLogger(kv))

	return &Client{
		Store:      store,
		Catalog:    api,
		Dispatcher: events,
		Session:    session.NewManager(store, api, session.WithDispatcher(events), session.WithLogger(kv)),
		Lifecycle: lifecycle.NewLifecycle(api,
			lifecycle.WithDispatcher(events),
			lifecycle.WithLogger(kv),
			lifecycle.WithFetchWorkers(cfg.FetchWorkers),
		),
	}, nil
}

// Close waits for in-flight event handlers
func (c *Client) Close() error {
	return c.Dispatcher.Close()
}
