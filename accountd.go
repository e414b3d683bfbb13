package accountd

import (
	"os"
	"sync"

	"go.accountd.dev/accountd/core"
	"go.accountd.dev/accountd/db"
	"go.uber.org/zap"
)

const ExitCodeFailedQuit = 2

var activeApp App

type App interface {
	Init() error
	Start() error
	Stop() error
	Context() core.Context
}

type AppImpl struct {
	ctx   core.Context
	ctxMu sync.RWMutex
}

func NewApp(ctx core.Context) *AppImpl {
	return &AppImpl{ctx: ctx}
}

// Init builds the database, instantiates every registered service in
// dependency order and rebuilds the context with the collected options. The
// services themselves run no logic yet; that happens in Start.
func (a *AppImpl) Init() error {
	ctx := a.Context()

	ctx.Logger().Info("Initializing identity core")

	_, ctxOpts := db.NewDatabase(ctx)

	opts, err := a.initServices(ctx)
	if err != nil {
		return err
	}
	ctxOpts = append(ctxOpts, opts...)

	ctxOpts = append(ctxOpts, core.ContextWithEvents(core.GetEvents()...))

	ctx, err = core.NewContext(ctx.Config(), ctx.Logger(), ctxOpts...)
	if err != nil {
		ctx.Logger().Error("Error creating context", zap.Error(err))
		return err
	}

	a.SetContext(ctx)

	return nil
}

func (a *AppImpl) Start() error {
	ctx := a.Context()
	ctx.Logger().Info("Starting identity core")

	for _, startupFunc := range ctx.StartupFuncs() {
		if err := startupFunc(ctx); err != nil {
			ctx.Logger().Error("Error during startup", zap.Error(err))
			return err
		}
	}

	return nil
}

func (a *AppImpl) Stop() error {
	ctx := a.Context()
	ctx.Logger().Info("Stopping identity core")

	for _, exitFunc := range ctx.ExitFuncs() {
		if err := exitFunc(ctx); err != nil {
			ctx.Logger().Error("Error during shutdown", zap.Error(err))
		}
	}

	return nil
}

func (a *AppImpl) initServices(ctx core.Context) (ctxOpts []core.ContextBuilderOption, err error) {
	for _, svcInfo := range core.GetServices() {
		svc, opts, err := svcInfo.Factory()
		if err != nil {
			ctx.Logger().Error("Error creating service", zap.String("service", svcInfo.ID), zap.Error(err))
			return nil, err
		}

		if opts != nil {
			ctxOpts = append(ctxOpts, opts...)
		}

		ctxOpts = append(ctxOpts, core.ContextWithService(svcInfo.ID, svc))
	}

	return ctxOpts, nil
}

func (a *AppImpl) Context() core.Context {
	a.ctxMu.RLock()
	defer a.ctxMu.RUnlock()
	return a.ctx
}

func (a *AppImpl) SetContext(ctx core.Context) {
	a.ctxMu.Lock()
	defer a.ctxMu.Unlock()
	a.ctx = ctx
}

func NewActiveApp(ctx core.Context) {
	activeApp = NewApp(ctx)
}

func Init() error {
	return activeApp.Init()
}

func Start() error {
	return activeApp.Start()
}

func Stop() error {
	return activeApp.Stop()
}

func Context() core.Context {
	return activeApp.Context()
}

func ActiveApp() App {
	return activeApp
}

func Shutdown(app App, logger *zap.Logger) {
	ctx := app.Context()

	if logger == nil {
		logger = ctx.Logger().Logger
	}

	ctx.Cancel()
	<-ctx.Done()

	if err := app.Stop(); err != nil {
		logger.Error("Failed to stop cleanly", zap.Error(err))
		ctx.SetExitCode(ExitCodeFailedQuit)
	}

	os.Exit(ctx.ExitCode())
}
