package main

import (
	"github.com/Zuo-Peng/adk-session-viewer/internal/config"
	"github.com/Zuo-Peng/adk-session-viewer/internal/drive"
	"github.com/Zuo-Peng/adk-session-viewer/internal/history"
	"github.com/Zuo-Peng/adk-session-viewer/internal/loader"
	"github.com/samber/do/v2"
)

func setupDI(cfg *config.Config) do.Injector {
	injector := do.New()

	do.ProvideValue(injector, cfg)
	do.Provide(injector, func(i do.Injector) (*history.DB, error) {
		c := do.MustInvoke[*config.Config](i)
		return history.OpenDB(c.HistoryPath)
	})
	do.Provide(injector, func(i do.Injector) (*drive.Client, error) {
		c := do.MustInvoke[*config.Config](i)
		return drive.New(drive.Config{
			APIKey:       c.Drive.APIKey,
			ClientID:     c.Drive.ClientID,
			ClientSecret: c.Drive.ClientSecret,
			AppID:        c.Drive.AppID,
		}), nil
	})
	do.Provide(injector, func(i do.Injector) (*loader.Loader, error) {
		c := do.MustInvoke[*config.Config](i)
		remote := do.MustInvoke[*drive.Client](i)
		return loader.New(remote, c.Drive.Missing()), nil
	})

	return injector
}
