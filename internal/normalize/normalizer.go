// Package normalize turns validated events into fact rows. It owns version and
// identity assignment; producers never decide either.
package normalize

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/smallbiznis/pricingread/internal/clock"
	"github.com/smallbiznis/pricingread/internal/config"
	"github.com/smallbiznis/pricingread/internal/contract"
	factdomain "github.com/smallbiznis/pricingread/internal/factstore/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type Params struct {
	fx.In

	Store  factdomain.Store
	Log    *zap.Logger
	Clock  clock.Clock
	Ingest *config.IngestConfigHolder
}

type Normalizer struct {
	store  factdomain.Store
	log    *zap.Logger
	clock  clock.Clock
	ingest *config.IngestConfigHolder
}

func New(p Params) *Normalizer {
	return &Normalizer{
		store:  p.Store,
		log:    p.Log.Named("normalize"),
		clock:  p.Clock,
		ingest: p.Ingest,
	}
}

var Module = fx.Module("normalize",
	fx.Provide(New),
)

func (n *Normalizer) emitter(family contract.Family, given string) string {
	if v := strings.TrimSpace(given); v != "" {
		return v
	}
	return n.ingest.Get().EmitterFor(string(family))
}

// eventID keeps the producer id; anonymous events get a generated one so rows stay traceable.
func eventID(given string) string {
	if v := strings.TrimSpace(given); v != "" {
		return v
	}
	return "evt_" + uuid.NewString()
}

func optionalString(v string) *string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return &v
}

// metadata builds a JSON column, dropping empty entries.
func metadata(pairs ...any) datatypes.JSONMap {
	out := datatypes.JSONMap{}
	for i := 0; i+1 < len(pairs); i += 2 {
		key, _ := pairs[i].(string)
		switch v := pairs[i+1].(type) {
		case nil:
		case string:
			if v != "" {
				out[key] = v
			}
		case map[string]any:
			if len(v) > 0 {
				out[key] = v
			}
		default:
			out[key] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func (n *Normalizer) now() time.Time {
	return n.clock.Now()
}
