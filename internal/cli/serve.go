// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/jeranaias/liquidgpt/internal/server"
)

// HandleServe runs the local HTTP API until interrupted.
func HandleServe(args Args) error {
	app, err := NewApp(args)
	if err != nil {
		return err
	}
	defer app.Close()

	p := NewArgParser(args.Raw)
	host := p.FlagOrDefault("host", app.Config.Server.Host)
	port := p.FlagIntOrDefault("port", app.Config.Server.Port)
	if port < 1 || port > 65535 {
		return fmt.Errorf("invalid port %d", port)
	}
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	app.Session.Restore()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(app.Session,
		server.WithLogger(app.Logger),
		server.WithVersion(Version),
	)

	if !args.Quiet {
		fmt.Printf("%s http://%s %s\n", titleStyle.Render("Listening on"), addr, dimStyle.Render("(Ctrl+C to stop)"))
		if !app.Client.IsConfigured() {
			fmt.Println(warningStyle.Render("OPENROUTER_API_KEY is not set; sends will return 503"))
		}
	}
	return srv.ListenAndServe(ctx, addr)
}
