package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"carrethree/internal/cart"
	"carrethree/internal/client"
	"carrethree/internal/config"
	"carrethree/internal/logger"

	"go.uber.org/zap"
)

const identityKey = "identity"

// app holds everything one shopper invocation needs
type app struct {
	cfg     *config.ClientConfig
	logger  *zap.Logger
	storage *cart.BoltStorage
	api     *client.Client
	session *cart.Session
}

func openApp(ctx context.Context, cfg *config.ClientConfig, verbose bool) (*app, error) {
	log, err := logger.NewCLI(verbose)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	api, err := client.New(cfg.APIURL, &http.Client{Timeout: cfg.Timeout})
	if err != nil {
		return nil, err
	}

	storage, err := cart.OpenBoltStorage(cfg.StorePath)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		logger:  log,
		storage: storage,
		api:     api,
		session: cart.NewSession(storage, api, api, log),
	}

	if err := a.restore(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) Close() {
	if err := a.storage.Close(); err != nil {
		a.logger.Warn("Failed to close local storage", zap.Error(err))
	}
	a.logger.Sync()
}

func (a *app) savedIdentity() (*cart.Identity, error) {
	raw, err := a.storage.Get(identityKey)
	if err != nil || raw == nil {
		return nil, err
	}
	var id cart.Identity
	if err := json.Unmarshal(raw, &id); err != nil {
		a.logger.Warn("Discarding unreadable identity", zap.Error(err))
		return nil, a.storage.Delete(identityKey)
	}
	return &id, nil
}

func (a *app) saveIdentity(id cart.Identity) error {
	raw, err := json.Marshal(id)
	if err != nil {
		return err
	}
	return a.storage.Put(identityKey, raw)
}

// restore signs the session back in with the stored identity, refreshing the
// access token once if the server rejects it
func (a *app) restore(ctx context.Context) error {
	id, err := a.savedIdentity()
	if err != nil || id == nil {
		return err
	}

	err = a.session.Login(ctx, *id)
	if !errors.Is(err, client.ErrUnauthorized) {
		return err
	}

	refreshed, refreshErr := a.api.Refresh(ctx, *id)
	if refreshErr != nil {
		a.logger.Warn("Stored session expired, continuing as guest", zap.Error(refreshErr))
		if err := a.storage.Delete(identityKey); err != nil {
			return err
		}
		return a.session.Logout(ctx)
	}
	if err := a.saveIdentity(refreshed); err != nil {
		return err
	}
	return a.session.Login(ctx, refreshed)
}

// signIn persists id and moves the session onto the server cart
func (a *app) signIn(ctx context.Context, id cart.Identity) error {
	if err := a.saveIdentity(id); err != nil {
		return err
	}
	return a.session.Login(ctx, id)
}

func (a *app) signOut(ctx context.Context) error {
	if id, ok := a.session.Identity(); ok {
		if err := a.api.Logout(ctx, id); err != nil {
			a.logger.Warn("Server logout failed", zap.Error(err))
		}
	}
	if err := a.storage.Delete(identityKey); err != nil {
		return err
	}
	return a.session.Logout(ctx)
}
