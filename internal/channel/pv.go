package channel

import (
	"context"

	"codeberg.org/mutker/pidctl/internal/epics"
	"codeberg.org/mutker/pidctl/internal/errors"
	"codeberg.org/mutker/pidctl/internal/logger"
)

// OutCurrentSuffix addresses the output current attribute of a PV.
const OutCurrentSuffix = ":outCur"

// PV is the normal-mode backend, delegating to an EPICS client.
type PV struct {
	client     epics.Client
	name       string
	force      bool
	lastKnown  float64
	onFallback FallbackObserver
}

// OpenPV checks connectivity before returning the channel. With force set,
// a disconnected PV is accepted and failed reads fall back to the last
// known value.
func OpenPV(ctx context.Context, client epics.Client, name string, force bool, onFallback FallbackObserver) (*PV, error) {
	errFactory := errors.New()

	if !client.IsConnected(ctx, name) {
		if !force {
			return nil, errFactory.WithData(errors.ErrChannelUnavailable, name)
		}
		logger.Warn().Str("pv", name).Msg("PV is not connected, continuing because of --force")
	}

	return &PV{
		client:     client,
		name:       name,
		force:      force,
		onFallback: onFallback,
	}, nil
}

func (p *PV) Read(ctx context.Context) (float64, error) {
	value, err := p.client.Read(ctx, p.name)
	if err != nil {
		if !p.force {
			return p.lastKnown, errors.New().Wrap(errors.ErrChannelUnavailable, err)
		}
		logger.Info().
			Str("pv", p.name).
			Float64("fallback", p.lastKnown).
			Err(err).
			Msg("PV read failed, using last known value")
		if p.onFallback != nil {
			p.onFallback(p.name, "disconnected")
		}
		return p.lastKnown, nil
	}

	p.lastKnown = value

	return value, nil
}

func (p *PV) Write(ctx context.Context, value float64) error {
	if err := p.client.Write(ctx, p.name, value); err != nil {
		return errors.New().Wrap(errors.ErrChannelWrite, err)
	}
	p.lastKnown = value

	return nil
}

func (p *PV) LastKnown() float64 {
	return p.lastKnown
}

func (p *PV) Name() string {
	return p.name
}

func (*PV) Close() error {
	return nil
}
