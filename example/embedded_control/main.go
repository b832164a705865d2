package main

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	rasacontrol "github.com/ntphong404/rasa-control"
)

// This example loads a TOML config file and embeds the control surface into
// a custom mux using the public rasacontrol facade.
func main() {
	// Use the sample config in the repo (adjust path if running from a different cwd)
	cfgPath := filepath.Join("example", "config", "config.toml")
	cfg, err := rasacontrol.LoadConfig(cfgPath)
	if err != nil {
		panic(err)
	}

	ctl, err := rasacontrol.New(cfg)
	if err != nil {
		panic(err)
	}
	defer func() { _ = ctl.Close(context.Background()) }()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	ctl.CheckConnections(ctx)
	cancel()

	mux := http.NewServeMux()
	mux.Handle("/", ctl.Handler())

	fmt.Println("control surface on http://localhost:5000")
	if err := http.ListenAndServe(":5000", mux); err != nil {
		panic(err)
	}
}
