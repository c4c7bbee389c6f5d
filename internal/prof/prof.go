// Package prof runs the continuous profiler when one is configured.
package prof

import (
	"context"
	"fmt"
	"runtime"

	"github.com/grafana/pyroscope-go"

	"github.com/mohammadalshikh/orbit/internal/log"
	"github.com/mohammadalshikh/orbit/internal/xerrors"
)

type Options struct {
	Enabled           bool
	AppName           string
	ServerAddress     string
	TenantID          string
	BasicAuthUser     string
	BasicAuthPassword string
	Tags              map[string]string
	// MutexFraction and BlockRate enable the mutex and block profiles when > 0.
	MutexFraction int
	BlockRate     int
	// OnActive reports whether the profiler is running (for a gauge).
	OnActive func(bool)
}

var profileTypes = []pyroscope.ProfileType{
	pyroscope.ProfileCPU,
	pyroscope.ProfileAllocObjects,
	pyroscope.ProfileAllocSpace,
	pyroscope.ProfileInuseObjects,
	pyroscope.ProfileInuseSpace,
	pyroscope.ProfileGoroutines,
	pyroscope.ProfileMutexCount,
	pyroscope.ProfileMutexDuration,
	pyroscope.ProfileBlockCount,
	pyroscope.ProfileBlockDuration,
}

// Start launches the profiler and returns its stop func. A disabled profiler
// returns a no-op stop and a nil error.
func Start(ctx context.Context, opts Options) (func(), error) {
	L := log.FromContext(ctx)
	setActive := func(on bool) {
		if opts.OnActive != nil {
			opts.OnActive(on)
		}
	}

	if !opts.Enabled {
		L.Info(ctx, "pyroscope disabled")
		setActive(false)
		return func() {}, nil
	}
	if opts.ServerAddress == "" {
		return func() {}, xerrors.Newf("invalid pyroscope server address (%q)", opts.ServerAddress)
	}
	if opts.AppName == "" {
		return func() {}, xerrors.New("pyroscope app name is required")
	}

	if opts.MutexFraction > 0 {
		runtime.SetMutexProfileFraction(opts.MutexFraction)
	}
	if opts.BlockRate > 0 {
		runtime.SetBlockProfileRate(opts.BlockRate)
	}

	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName:   opts.AppName,
		ServerAddress:     opts.ServerAddress,
		TenantID:          opts.TenantID,
		BasicAuthUser:     opts.BasicAuthUser,
		BasicAuthPassword: opts.BasicAuthPassword,
		Tags:              opts.Tags,
		Logger:            pyroLogger{ctx: ctx, L: L},
		ProfileTypes:      profileTypes,
	})
	if err != nil {
		setActive(false)
		return func() {}, xerrors.Wrapf(err, "start pyroscope (server=%s)", opts.ServerAddress)
	}
	setActive(true)

	L.Info(ctx, "pyroscope started",
		"server_address", opts.ServerAddress,
		"app_name", opts.AppName,
	)

	return func() {
		_ = profiler.Stop()
		setActive(false)
		L.Info(context.Background(), "pyroscope stopped", "app_name", opts.AppName)
	}, nil
}

// pyroLogger routes the profiler's own messages into the app logger.
type pyroLogger struct {
	ctx context.Context
	L   log.Logger
}

func (p pyroLogger) Infof(format string, args ...any) {
	p.L.Debug(p.ctx, fmt.Sprintf(format, args...), "component", "pyroscope")
}

func (p pyroLogger) Debugf(format string, args ...any) {
	p.L.Debug(p.ctx, fmt.Sprintf(format, args...), "component", "pyroscope")
}

func (p pyroLogger) Errorf(format string, args ...any) {
	p.L.Error(p.ctx, fmt.Errorf(format, args...), "pyroscope error", "component", "pyroscope")
}
