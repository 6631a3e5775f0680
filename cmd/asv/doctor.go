package main

import (
	"fmt"
	"os"

	"github.com/Zuo-Peng/adk-session-viewer/internal/config"
	"github.com/Zuo-Peng/adk-session-viewer/internal/history"
	"github.com/Zuo-Peng/adk-session-viewer/internal/scan"
	"github.com/samber/do/v2"
	"github.com/spf13/cobra"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Self-check: verify config, Drive credentials and history DB",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}

			fmt.Println("=== Config ===")
			fmt.Printf("  Timezone: %s\n", cfg.Location())
			fmt.Printf("  Log:      %s (level %s)\n", cfg.LogPath, cfg.LogLevel)

			fmt.Println("\n=== Sessions Root ===")
			checkDir("Root", cfg.SessionsRoot)
			if files, err := scan.JSONFiles(cfg.SessionsRoot); err != nil {
				fmt.Printf("  scan error: %v\n", err)
			} else {
				fmt.Printf("  JSON files: %d\n", len(files))
			}

			fmt.Println("\n=== Drive ===")
			if missing := cfg.Drive.Missing(); len(missing) > 0 {
				for _, name := range missing {
					fmt.Printf("  %s: NOT SET\n", name)
				}
				fmt.Println("  Status: remote loading disabled")
			} else {
				fmt.Printf("  App ID: %s\n", cfg.Drive.AppID)
				fmt.Println("  Status: OK (consent runs on first remote load)")
			}

			fmt.Println("\n=== History ===")
			fmt.Printf("  Path: %s\n", cfg.HistoryPath)
			if _, err := os.Stat(cfg.HistoryPath); os.IsNotExist(err) {
				fmt.Println("  Status: NOT FOUND (created on first load)")
				return nil
			}

			db, err := do.Invoke[*history.DB](setupDI(cfg))
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			defer db.Close()

			n, err := db.Count()
			if err != nil {
				return fmt.Errorf("count loads: %w", err)
			}
			fmt.Printf("  Loads: %d\n", n)
			if last, err := db.Last(); err == nil && last != nil {
				fmt.Printf("  Last:  %s %s (%s)\n", last.Source, last.Ref, last.LoadedAt.Format("2006-01-02 15:04"))
			}

			if info, err := os.Stat(cfg.HistoryPath); err == nil {
				fmt.Printf("\n=== DB Size: %.1f KB ===\n", float64(info.Size())/1024)
			}

			return nil
		},
	}
}

func checkDir(name, path string) {
	if info, err := os.Stat(path); err != nil {
		fmt.Printf("  %s: %s (NOT FOUND)\n", name, path)
	} else if !info.IsDir() {
		fmt.Printf("  %s: %s (NOT A DIRECTORY)\n", name, path)
	} else {
		fmt.Printf("  %s: %s (OK)\n", name, path)
	}
}
