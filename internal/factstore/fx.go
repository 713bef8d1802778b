package factstore

import (
	"github.com/smallbiznis/pricingread/internal/factstore/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("factstore",
	fx.Provide(repository.NewStore),
)
