package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/pricingread/internal/clock"
	"github.com/smallbiznis/pricingread/internal/config"
	"github.com/smallbiznis/pricingread/internal/deadletter"
	"github.com/smallbiznis/pricingread/internal/factstore"
	"github.com/smallbiznis/pricingread/internal/ingestion"
	"github.com/smallbiznis/pricingread/internal/keylock"
	"github.com/smallbiznis/pricingread/internal/migration"
	"github.com/smallbiznis/pricingread/internal/normalize"
	"github.com/smallbiznis/pricingread/internal/observability"
	"github.com/smallbiznis/pricingread/internal/readmodel"
	"github.com/smallbiznis/pricingread/internal/server"
	"github.com/smallbiznis/pricingread/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		clock.Module,
		keylock.Module,

		// Write side
		factstore.Module,
		deadletter.Module,
		normalize.Module,
		ingestion.Module,

		// Read side
		readmodel.Module,

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
