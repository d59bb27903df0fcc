package main

import (
	"fmt"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"

	"manga-merger/cmd/manga-merger/handlers"
	"manga-merger/cmd/manga-merger/utils"
	"manga-merger/internal"
	"manga-merger/internal/history"
	"manga-merger/internal/settings"
)

// AppContext holds all the application state and dependencies
type AppContext struct {
	Config         *utils.AppConfig
	Settings       *settings.Store
	ProcessManager *internal.ProcessManager

	MergeHandler *handlers.MergeHandler
}

// NewAppContext creates a new application context with all dependencies initialized
func NewAppContext(config *utils.AppConfig) (*AppContext, error) {
	settingsStore, err := settings.Open(config.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %v", err)
	}

	processManager, err := internal.NewProcessManager(config.ProcessesFile())
	if err != nil {
		return nil, fmt.Errorf("failed to load process history: %v", err)
	}
	if config.ProcessRetention > 0 {
		if err := processManager.CleanupOldProcesses(config.ProcessRetention); err != nil {
			utils.LogMessage("WARNING", fmt.Sprintf("Failed to prune process history: %v", err))
		}
	}

	secret := []byte(config.SessionSecret)
	if len(secret) == 0 {
		utils.LogMessage("WARNING", "SESSION_SECRET not set, sessions will not survive a restart")
		secret = securecookie.GenerateRandomKey(32)
	}
	sessionStore := sessions.NewCookieStore(secret)
	sessionStore.Options.HttpOnly = true
	sessionStore.MaxAge(30 * 24 * 60 * 60)

	ctx := &AppContext{
		Config:         config,
		Settings:       settingsStore,
		ProcessManager: processManager,
	}

	ctx.MergeHandler = &handlers.MergeHandler{
		Config:         config,
		Settings:       settingsStore,
		ProcessManager: processManager,
		History:        history.NewStore(utils.NewSimpleLogger("history")),
		MergeConfig:    config.MergeConfig(),
		SessionStore:   sessionStore,
		Logger:         utils.LogMessage,
	}

	return ctx, nil
}

// ListenPort returns the PORT override or the port from the settings file
func (ctx *AppContext) ListenPort() string {
	if ctx.Config.Port != "" {
		return ctx.Config.Port
	}
	return fmt.Sprintf("%d", ctx.Settings.Get().Port)
}
