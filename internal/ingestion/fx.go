package ingestion

import (
	"github.com/smallbiznis/pricingread/internal/ingestion/service"
	"go.uber.org/fx"
)

var Module = fx.Module("ingestion",
	fx.Provide(service.NewService),
)
