package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/taxgate/internal/audit"
	"github.com/smallbiznis/taxgate/internal/clock"
	"github.com/smallbiznis/taxgate/internal/config"
	"github.com/smallbiznis/taxgate/internal/gateway"
	"github.com/smallbiznis/taxgate/internal/invoice"
	"github.com/smallbiznis/taxgate/internal/migration"
	"github.com/smallbiznis/taxgate/internal/observability"
	"github.com/smallbiznis/taxgate/internal/reference"
	"github.com/smallbiznis/taxgate/internal/scheduler"
	"github.com/smallbiznis/taxgate/internal/server"
	"github.com/smallbiznis/taxgate/internal/submission"
	"github.com/smallbiznis/taxgate/internal/tenant"
	"github.com/smallbiznis/taxgate/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// Functional Domains
		tenant.Module,
		invoice.Module,
		reference.Module,
		audit.Module,
		gateway.Module,
		submission.Module,
		scheduler.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
