package temporal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	taskqueuepb "go.temporal.io/api/taskqueue/v1"
	workflowservicepb "go.temporal.io/api/workflowservice/v1"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/log"
	"go.uber.org/zap"

	"github.com/canopy-network/regionledger/pkg/utils"
)

// Client carries the Temporal connection plus the queue and workflow id layout used for
// settlement.
type Client struct {
	TClient   client.Client
	Namespace string

	// SettlementQueue serves the weekly reset and circulating supply workflows.
	SettlementQueue string

	// SettlementWorkflowID is formatted with the trigger's unix minute so a cron tick that fires
	// twice starts one run.
	SettlementWorkflowID  string
	CirculatingWorkflowID string
}

type Health struct {
	ConnectionOK    bool                      `json:"connection_ok"`
	SettlementQueue []*taskqueuepb.PollerInfo `json:"settlement_queue"`
}

// NewClient dials Temporal using TEMPORAL_HOSTPORT and TEMPORAL_NAMESPACE.
func NewClient(ctx context.Context, logger *zap.Logger) (*Client, error) {
	host := utils.Env("TEMPORAL_HOSTPORT", "localhost:7233")
	ns := utils.Env("TEMPORAL_NAMESPACE", "regionledger")

	logger.Info("Connecting to Temporal", zap.String("host", host), zap.String("namespace", ns))
	tClient, err := Dial(ctx, host, ns, NewZapAdapter(logger))
	if err != nil {
		return nil, err
	}

	if _, err = tClient.CheckHealth(ctx, nil); err != nil {
		tClient.Close()
		return nil, err
	}

	return &Client{
		TClient:               tClient,
		Namespace:             ns,
		SettlementQueue:       utils.Env("TEMPORAL_SETTLEMENT_QUEUE", "settlement"),
		SettlementWorkflowID:  "settlement:weekly:%d",
		CirculatingWorkflowID: "settlement:circulating:%d",
	}, nil
}

// Dial connects to Temporal using the provided hostPort and namespace.
func Dial(ctx context.Context, hostPort, namespace string, logger log.Logger) (client.Client, error) {
	return client.DialContext(
		ctx,
		client.Options{
			HostPort:  hostPort,
			Namespace: namespace,
			Logger:    logger,
		},
	)
}

// GetSettlementWorkflowID returns the weekly settlement workflow id for a trigger time.
func (c *Client) GetSettlementWorkflowID(at time.Time) string {
	return fmt.Sprintf(c.SettlementWorkflowID, at.Unix()/60)
}

// GetCirculatingWorkflowID returns the circulating supply workflow id for a trigger time.
func (c *Client) GetCirculatingWorkflowID(at time.Time) string {
	return fmt.Sprintf(c.CirculatingWorkflowID, at.Unix()/60)
}

// Start launches workflow on the settlement queue. An id that is running returns its run id; an id
// that already completed is skipped and reported with an empty run id.
func (c *Client) Start(ctx context.Context, id string, workflow interface{}, args ...interface{}) (string, error) {
	run, err := c.TClient.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:                       id,
		TaskQueue:                c.SettlementQueue,
		WorkflowExecutionTimeout: time.Hour,
		WorkflowIDReusePolicy:    enums.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
	}, workflow, args...)
	var started *serviceerror.WorkflowExecutionAlreadyStarted
	if errors.As(err, &started) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("start workflow %s: %w", id, err)
	}
	return run.GetRunID(), nil
}

// Health returns the health of the Temporal client.
func (c *Client) Health(ctx context.Context) (Health, error) {
	h := Health{ConnectionOK: true}
	ctx, cancel := context.WithTimeout(ctx, 1*time.Second)
	defer cancel()

	svc := c.TClient.WorkflowService()
	if svc != nil {
		if rep, err := svc.DescribeTaskQueue(ctx, &workflowservicepb.DescribeTaskQueueRequest{
			Namespace:     c.Namespace,
			TaskQueue:     &taskqueuepb.TaskQueue{Name: c.SettlementQueue},
			TaskQueueType: enums.TASK_QUEUE_TYPE_WORKFLOW,
		}); err == nil {
			h.SettlementQueue = rep.GetPollers()
		}
	}
	return h, nil
}

// Close closes the connection.
func (c *Client) Close() {
	c.TClient.Close()
}
