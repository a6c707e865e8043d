package replcraft

import (
	"context"
	"encoding/json"
	"time"
)

// dispatchPush classifies an inbound frame by its `type` discriminator and
// re-emits it as a typed event on the global bus. Frames without a type field
// (plain responses) are ignored here.
func (c *Client) dispatchPush(env envelope, data []byte) {
	switch env.Type {
	case "":
		return

	case pushContextOpened:
		var f contextOpenedFrame
		if !c.parsePush(data, &f) {
			return
		}
		sc := c.adoptContext(f.ID)
		c.logger.Debug().Int("context", f.ID).Str("cause", f.Cause).Msg("context opened")
		c.bus.publish(topicContextOpened, ContextOpenedEvent{Context: sc, Cause: f.Cause})

	case pushContextClosed:
		var f contextClosedFrame
		if !c.parsePush(data, &f) {
			return
		}
		c.logger.Debug().Int("context", f.ID).Str("cause", f.Cause).Msg("context closed")
		// The matching context's own listener disposes it during this publish.
		c.removeContext(f.ID)
		c.bus.publish(topicContextClosed, ContextClosedEvent{ID: f.ID, Cause: f.Cause})

	case pushBlockUpdate:
		var f blockUpdateFrame
		if !c.parsePush(data, &f) {
			return
		}
		c.bus.publish(topicBlockUpdate, BlockUpdateEvent{
			Cause:     f.Cause,
			Block:     f.Block,
			X:         f.X,
			Y:         f.Y,
			Z:         f.Z,
			ContextID: f.Context,
		})

	case pushTransact:
		var f transactFrame
		if !c.parsePush(data, &f) {
			return
		}
		sctx, _ := c.LookupContext(f.Context)
		nonce := f.QueryNonce
		c.bus.publish(topicTransact, TransactEvent{
			Player:     f.Player,
			PlayerUUID: f.PlayerUUID,
			Amount:     f.Amount,
			Query:      f.Query,
			ContextID:  f.Context,
			respond: func(ctx context.Context, accept bool) error {
				_, err := c.request(ctx, sctx, map[string]any{
					"action":     "respond",
					"queryNonce": nonce,
					"accept":     accept,
				})
				return err
			},
		})

	default:
		c.onError(SDKError{Kind: FaultUnknownPush, Raw: data, Timestamp: time.Now()})
	}
}

func (c *Client) parsePush(data []byte, v any) bool {
	if err := json.Unmarshal(data, v); err != nil {
		c.onError(SDKError{Kind: FaultParse, Cause: err, Raw: data, Timestamp: time.Now()})
		return false
	}
	return true
}
