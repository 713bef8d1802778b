package deadletter

import (
	"github.com/smallbiznis/pricingread/internal/deadletter/service"
	"go.uber.org/fx"
)

var Module = fx.Module("deadletter.service",
	fx.Provide(service.NewService),
)
