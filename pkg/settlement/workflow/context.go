package workflow

import (
	"github.com/canopy-network/regionledger/pkg/settlement/activity"
	"github.com/canopy-network/regionledger/pkg/temporal"
)

type Context struct {
	TemporalClient  *temporal.Client
	ActivityContext *activity.Context
}
