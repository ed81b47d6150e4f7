package handler

import (
	"collabrelay/internal/app/membership"
	"collabrelay/internal/app/relay"
	"collabrelay/internal/configs"
)

// AppDeps bundles the dependencies shared by the HTTP and websocket handlers.
type AppDeps struct {
	Manager    *relay.Manager
	Config     *configs.AppConfig
	Membership membership.Checker
}
