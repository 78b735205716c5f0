package main

import (
	"catcher/internal/config"
	"fmt"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}
	fmt.Printf("backend=%s timeout=%.1fs status=%s jitter=%s capture=%s\n",
		cfg.Backend.BaseURL, cfg.Backend.TimeoutSec, cfg.StatusInterval(), cfg.JitterInterval(), cfg.CaptureWindow())
	fmt.Printf("hooks=%d examples=%d history=%v metrics=%v(%s)\n",
		len(cfg.Hooks), len(cfg.UI.Examples), cfg.History.Enabled, cfg.Metrics.Enabled, cfg.Metrics.Addr)
	for i, h := range cfg.Hooks {
		fmt.Printf("hook %d match=%v cmd=%s args=%v\n", i, h.Match, h.Command, h.Args)
	}
}
