package commands

import (
	"fmt"

	"github.com/pterm/pterm"

	"github.com/Somnusochi/auto-novel/am"
	"github.com/Somnusochi/auto-novel/logger"
	"github.com/Somnusochi/auto-novel/sym"
	"github.com/Somnusochi/auto-novel/version"
)

// printStartupBanner prints the operator-facing summary before the server starts
func printStartupBanner(verbosity int, dbPath string, cfg *am.Config) {
	info := version.Get()

	pterm.DefaultHeader.WithFullWidth().Printf("%s Sakura scheduler", sym.Sakura)
	pterm.Println()

	pterm.DefaultTable.WithData(pterm.TableData{
		{"Version", fmt.Sprintf("%s (commit %s)", info.Version, info.Short())},
		{"Built", info.BuildTime},
		{"Verbosity", logger.LevelName(verbosity)},
		{"Database", dbPath},
		{"Port", fmt.Sprintf("%d", cfg.GetServerPort())},
		{"Queue ceiling", fmt.Sprintf("%d jobs", cfg.Sakura.MaxQueuedJobs)},
		{"Min account age", cfg.Sakura.MinAccountAge().String()},
	}).Render()
	pterm.Println()

	if cfg.Auth.JWTSecret == "" {
		pterm.Warning.Println("auth.jwt_secret is unset; tokens will not survive a restart")
	}
}
