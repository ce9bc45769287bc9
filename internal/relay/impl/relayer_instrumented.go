package impl

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/global"
	"go.opentelemetry.io/otel/metric/instrument"

	"github.com/custodix/go-metarelay/internal/relay"
	"github.com/custodix/go-metarelay/pkg/metrics"
)

// InstrumentedRelayer implements an instrumented Relayer.
type InstrumentedRelayer struct {
	relayer          relay.Relayer
	callCount        instrument.Int64Counter
	latencyHistogram instrument.Int64Histogram
}

var _ (relay.Relayer) = (*InstrumentedRelayer)(nil)

// NewInstrumentedRelayer creates a new InstrumentedRelayer.
func NewInstrumentedRelayer(relayer relay.Relayer) (relay.Relayer, error) {
	meter := global.MeterProvider().Meter("metarelay")
	callCount, err := meter.Int64Counter("metarelay.relayer.call.count")
	if err != nil {
		return &InstrumentedRelayer{}, fmt.Errorf("registering call counter: %s", err)
	}
	latencyHistogram, err := meter.Int64Histogram("metarelay.relayer.call.latency")
	if err != nil {
		return &InstrumentedRelayer{}, fmt.Errorf("registering latency histogram: %s", err)
	}

	return &InstrumentedRelayer{relayer, callCount, latencyHistogram}, nil
}

// Initialize implements relay.Relayer.
func (i *InstrumentedRelayer) Initialize(ctx context.Context) error {
	start := time.Now()
	err := i.relayer.Initialize(ctx)
	latency := time.Since(start).Milliseconds()

	attributes := append([]attribute.KeyValue{
		{Key: "method", Value: attribute.StringValue("Initialize")},
		{Key: "success", Value: attribute.BoolValue(err == nil)},
	}, metrics.BaseAttrs...)

	i.callCount.Add(ctx, 1, attributes...)
	i.latencyHistogram.Record(ctx, latency, attributes...)

	return err
}

// Ready implements relay.Relayer.
func (i *InstrumentedRelayer) Ready() bool {
	return i.relayer.Ready()
}

// SendMetaTransaction implements relay.Relayer.
func (i *InstrumentedRelayer) SendMetaTransaction(
	ctx context.Context,
	req relay.MetaTxRequest,
) (relay.MetaTxResponse, error) {
	start := time.Now()
	resp, err := i.relayer.SendMetaTransaction(ctx, req)
	latency := time.Since(start).Milliseconds()

	attributes := append([]attribute.KeyValue{
		{Key: "method", Value: attribute.StringValue("SendMetaTransaction")},
		{Key: "success", Value: attribute.BoolValue(err == nil)},
		{Key: "chainID", Value: attribute.Int64Value(int64(req.ChainID))},
	}, metrics.BaseAttrs...)

	i.callCount.Add(ctx, 1, attributes...)
	i.latencyHistogram.Record(ctx, latency, attributes...)

	return resp, err
}

// GetTransaction implements relay.Relayer.
func (i *InstrumentedRelayer) GetTransaction(
	ctx context.Context,
	chainID relay.ChainID,
	hash string,
) (relay.TxnResponse, error) {
	start := time.Now()
	resp, err := i.relayer.GetTransaction(ctx, chainID, hash)
	latency := time.Since(start).Milliseconds()

	attributes := append([]attribute.KeyValue{
		{Key: "method", Value: attribute.StringValue("GetTransaction")},
		{Key: "success", Value: attribute.BoolValue(err == nil)},
		{Key: "chainID", Value: attribute.Int64Value(int64(chainID))},
	}, metrics.BaseAttrs...)

	i.callCount.Add(ctx, 1, attributes...)
	i.latencyHistogram.Record(ctx, latency, attributes...)

	return resp, err
}

// ListWalletTransactions implements relay.Relayer.
func (i *InstrumentedRelayer) ListWalletTransactions(
	ctx context.Context,
	chainID relay.ChainID,
	address string,
) ([]relay.TxnResponse, error) {
	start := time.Now()
	resp, err := i.relayer.ListWalletTransactions(ctx, chainID, address)
	latency := time.Since(start).Milliseconds()

	attributes := append([]attribute.KeyValue{
		{Key: "method", Value: attribute.StringValue("ListWalletTransactions")},
		{Key: "success", Value: attribute.BoolValue(err == nil)},
		{Key: "chainID", Value: attribute.Int64Value(int64(chainID))},
	}, metrics.BaseAttrs...)

	i.callCount.Add(ctx, 1, attributes...)
	i.latencyHistogram.Record(ctx, latency, attributes...)

	return resp, err
}
