// Package prof runs Pyroscope continuous profiling.
package prof

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/grafana/pyroscope-go"

	"github.com/heriman22/blog-main/internal/log"
	"github.com/heriman22/blog-main/internal/xerrors"
)

type Options struct {
	Enabled              bool
	AppName              string
	ServerAddress        string
	BasicAuthUser        string
	BasicAuthPassword    string
	TenantID             string
	Tags                 map[string]string
	ProfileMutexFraction int
	BlockProfileRate     int
	// OnActive reports whether the profiler is running, e.g. into the
	// profiling_active gauge. Called on start and on stop.
	OnActive func(active bool)
}

func (o Options) report(active bool) {
	if o.OnActive != nil {
		o.OnActive(active)
	}
}

// Start launches the profiler. The returned stop func is never nil and is
// safe to call more than once.
func Start(ctx context.Context, opts Options) (func(), error) {
	L := log.FromContext(ctx)

	if !opts.Enabled {
		L.Info(ctx, "pyroscope disabled")
		opts.report(false)
		return func() {}, nil
	}

	if opts.ServerAddress == "" {
		err := xerrors.Newf("invalid server address (%q)", opts.ServerAddress)
		L.Error(ctx, err, "pyroscope options")
		opts.report(false)
		return func() {}, err
	}

	if opts.ProfileMutexFraction > 0 {
		runtime.SetMutexProfileFraction(opts.ProfileMutexFraction)
	}
	if opts.BlockProfileRate > 0 {
		runtime.SetBlockProfileRate(opts.BlockProfileRate)
	}
	cfg := pyroscope.Config{
		ApplicationName:   opts.AppName,
		ServerAddress:     opts.ServerAddress,
		BasicAuthUser:     opts.BasicAuthUser,
		BasicAuthPassword: opts.BasicAuthPassword,
		TenantID:          opts.TenantID,
		Tags:              opts.Tags,
		Logger:            pyroLogger{ctx: ctx, l: L.With("component", "pyroscope")},
	}
	cfg.ProfileTypes = []pyroscope.ProfileType{
		pyroscope.ProfileCPU,
		pyroscope.ProfileAllocObjects,
		pyroscope.ProfileAllocSpace,
		pyroscope.ProfileInuseObjects,
		pyroscope.ProfileInuseSpace,
		pyroscope.ProfileGoroutines,
	}
	if opts.ProfileMutexFraction > 0 {
		cfg.ProfileTypes = append(cfg.ProfileTypes, pyroscope.ProfileMutexCount, pyroscope.ProfileMutexDuration)
	}
	if opts.BlockProfileRate > 0 {
		cfg.ProfileTypes = append(cfg.ProfileTypes, pyroscope.ProfileBlockCount, pyroscope.ProfileBlockDuration)
	}

	profiler, err := pyroscope.Start(cfg)
	if err != nil {
		err = xerrors.Wrap(err, "pyroscope start")
		L.Error(ctx, err, "pyroscope start failed",
			"server_address", opts.ServerAddress,
			"app_name", opts.AppName,
		)
		opts.report(false)
		return func() {}, err
	}

	L.Info(ctx, "pyroscope started",
		"server_address", opts.ServerAddress,
		"app_name", opts.AppName,
	)
	opts.report(true)

	var once sync.Once
	return func() {
		once.Do(func() {
			_ = profiler.Stop()
			opts.report(false)
			L.Info(context.Background(), "pyroscope stopped",
				"server_address", opts.ServerAddress,
				"app_name", opts.AppName,
			)
		})
	}, nil
}

// pyroLogger routes the profiler's own logging into ours. Its info output
// is chatty, so it goes to debug.
type pyroLogger struct {
	ctx context.Context
	l   log.Logger
}

func (p pyroLogger) Infof(format string, args ...any) {
	p.l.Debug(p.ctx, fmt.Sprintf(format, args...))
}

func (p pyroLogger) Debugf(format string, args ...any) {
	p.l.Debug(p.ctx, fmt.Sprintf(format, args...))
}

func (p pyroLogger) Errorf(format string, args ...any) {
	p.l.Warn(p.ctx, fmt.Sprintf(format, args...))
}
