package readmodel

import (
	"github.com/smallbiznis/pricingread/internal/readmodel/service"
	"go.uber.org/fx"
)

var Module = fx.Module("readmodel",
	fx.Provide(service.NewService),
)
