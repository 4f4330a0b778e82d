package notify

import (
	"github.com/google/wire"

	"hearth/config"
	"hearth/internal/user"
)

// ProvideDispatcher is a Wire provider function that assembles the configured
// notification channels. Unconfigured channels are left nil and skipped.
func ProvideDispatcher(cfg *config.Config, users user.Repository) Dispatcher {
	var push PushClient
	if cfg.FCMServerKey != "" {
		push = NewFCMClient(cfg.FCMServerKey)
	}
	var mailer *AlertMailer
	if cfg.SMTPHost != "" {
		mailer = NewAlertMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.AlertEmailFrom)
	}
	return NewService(users, users, push, mailer)
}

var Set = wire.NewSet(ProvideDispatcher)
