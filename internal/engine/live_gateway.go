package engine

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/GoBitflyer/bitflyer-trader/internal/bitflyer"
)

// LiveGateway submits intents through the exchange REST client.
type LiveGateway struct {
	client *bitflyer.Client
	expire int
}

func NewLiveGateway(client *bitflyer.Client, expireMinutes int) *LiveGateway {
	return &LiveGateway{client: client, expire: expireMinutes}
}

func (g *LiveGateway) Submit(ctx context.Context, intent OrderIntent) (OrderAck, error) {
	if intent.Kind == KindLimitBracket {
		resp, err := g.client.SendParentOrder(ctx, bitflyer.ParentOrderRequest{
			OrderMethod:    bitflyer.OrderMethodIFDOCO,
			MinuteToExpire: g.expire,
			TimeInForce:    intent.TimeInForce,
			Parameters: []bitflyer.ParentOrderParameter{
				{
					ProductCode:   intent.ProductCode,
					ConditionType: bitflyer.ConditionLimit,
					Side:          intent.Side,
					Price:         intent.Price,
					Size:          intent.Size,
				},
				{
					ProductCode:   intent.ProductCode,
					ConditionType: bitflyer.ConditionLimit,
					Side:          intent.Side.Opposite(),
					Price:         intent.TakeProfit,
					Size:          intent.Size,
				},
				{
					ProductCode:   intent.ProductCode,
					ConditionType: bitflyer.ConditionStop,
					Side:          intent.Side.Opposite(),
					TriggerPrice:  intent.StopLoss,
					Size:          intent.Size,
				},
			},
		})
		if err != nil {
			return OrderAck{}, err
		}
		return OrderAck{AcceptanceID: resp.ParentOrderAcceptanceID}, nil
	}

	resp, err := g.client.SendChildOrder(ctx, bitflyer.ChildOrderRequest{
		ProductCode:    intent.ProductCode,
		ChildOrderType: "MARKET",
		Side:           intent.Side,
		Size:           intent.Size,
		TimeInForce:    intent.TimeInForce,
	})
	if err != nil {
		return OrderAck{}, err
	}
	return OrderAck{AcceptanceID: resp.ChildOrderAcceptanceID}, nil
}

// DryRunGateway logs intents without placing orders, for shadow rollout.
type DryRunGateway struct{}

func (DryRunGateway) Submit(_ context.Context, intent OrderIntent) (OrderAck, error) {
	logrus.WithFields(logrus.Fields{
		"side": intent.Side,
		"size": intent.Size,
		"kind": intent.Kind,
	}).Info("[DRY] order suppressed")
	return OrderAck{AcceptanceID: "DRY-" + intent.ID}, nil
}
