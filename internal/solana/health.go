package solana

import (
	"context"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/gagliardetto/solana-go/rpc"
)

// WaitHealthy polls getHealth until the endpoint reports ok.
func WaitHealthy(ctx context.Context, c *Connection, attempts uint, delay time.Duration) error {
	return retry.Do(func() error {
		out, err := c.RPC.GetHealth(ctx)
		if err != nil {
			return err
		}
		if out != rpc.HealthOk {
			return fmt.Errorf("%s not healthy yet: %s", c.Name, out)
		}
		return nil
	},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(delay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
}
