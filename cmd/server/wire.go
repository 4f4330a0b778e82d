//go:build wireinject
// +build wireinject

package main

import (
	"database/sql"

	"github.com/google/wire"

	"hearth/config"
	"hearth/internal/alerts"
	"hearth/internal/api"
	"hearth/internal/auth"
	"hearth/internal/chat"
	"hearth/internal/hub"
	"hearth/internal/notify"
	"hearth/internal/user"
)

func InitializeServer(cfg *config.Config, db *sql.DB) *api.Server {
	wire.Build(
		user.Set,
		chat.Set,
		alerts.Set,
		notify.Set,
		auth.Set,
		hub.Set,
		api.NewServer,
	)
	return nil
}
