// Command go-coderun starts a http server that accepts python programs,
// runs them and compares them against reference solutions.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/coderun/go-coderun/cmd/go-coderun/config"
	restexecutor "github.com/coderun/go-coderun/cmd/go-coderun/rest_executor"
	"github.com/coderun/go-coderun/cmd/go-coderun/version"
	wsexecutor "github.com/coderun/go-coderun/cmd/go-coderun/ws_executor"
	"github.com/coderun/go-coderun/envexec"
	"github.com/coderun/go-coderun/filestore"
	"github.com/coderun/go-coderun/jobqueue"
	"github.com/coderun/go-coderun/jobstore"
	"github.com/coderun/go-coderun/judger"
	"github.com/coderun/go-coderun/language"
	"github.com/coderun/go-coderun/worker"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

const welcomeMessage = "Welcome to the Code Execution API!"

var logger *zap.Logger

func main() {
	conf := loadConf()
	if conf.Version {
		fmt.Println(version.Version)
		return
	}
	initLogger(conf)
	defer logger.Sync()
	if ce := logger.Check(zap.InfoLevel, "Config loaded"); ce != nil {
		ce.Write(zap.String("config", fmt.Sprintf("%+v", conf)))
	}
	warnIfNotUnix()

	lang := language.Python{}
	fs := newFileStore(conf)
	executor := newExecutor(conf, fs, lang)
	judge := judger.New(executor, lang, conf.CompareCases, logger.Named("judger"))
	work := worker.New(worker.Config{
		Executor:     executor,
		Comparer:     judge,
		Parallelism:  conf.Parallelism,
		ExecObserver: execObserve,
	})
	work.Start()
	logger.Info("Worker started",
		zap.Int("parallelism", conf.Parallelism),
		zap.String("dir", fs.Dir()),
		zap.Duration("timeout", conf.Timeout))

	store, storeCleanUp := newJobStore(conf)
	jobs := jobqueue.New(jobqueue.Config{
		Store:       store,
		Worker:      work,
		Logger:      logger,
		JobObserver: jobObserve,
	})

	// stages stop in order: listeners, then the jobs they accepted, then
	// the worker running them and the job store last
	servers := [][]initFunc{
		{initSweeper(conf, fs), initHTTPServer(conf, jobs), initMonitorHTTPServer(conf)},
		{cleanUpJobs(jobs)},
		{cleanUpWorker(work)},
		{cleanUpStore(storeCleanUp)},
	}

	// Gracefully shutdown, with signal / HTTP server / Monitor HTTP server
	sig := make(chan os.Signal, 1+len(servers[0]))

	stages := make([][]stopFunc, 0, len(servers))
	for _, stage := range servers {
		stops := []stopFunc{}
		for _, s := range stage {
			start, stop := s()
			if start != nil {
				go func() {
					start()
					sig <- os.Interrupt
				}()
			}
			if stop != nil {
				stops = append(stops, stop)
			}
		}
		stages = append(stages, stops)
	}

	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	signal.Reset(syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Shutting Down...")

	ctx, cancel := context.WithTimeout(context.TODO(), time.Second*3)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- shutdown(ctx, stages...)
	}()
	select {
	case err := <-done:
		logger.Info("Shutdown Finished", zap.Error(err))
	case <-ctx.Done():
		logger.Warn("Shutdown timed out", zap.Error(ctx.Err()))
	}
}

// shutdown runs the stages one after another, the stop funcs of a stage
// concurrently
func shutdown(ctx context.Context, stages ...[]stopFunc) error {
	var errs []error
	for _, stage := range stages {
		var eg errgroup.Group
		for _, s := range stage {
			eg.Go(func() error {
				return s(ctx)
			})
		}
		errs = append(errs, eg.Wait())
	}
	return errors.Join(errs...)
}

func warnIfNotUnix() {
	if runtime.GOOS == "windows" {
		logger.Warn("Platform is not primarily supported", zap.String("GOOS", runtime.GOOS))
		logger.Warn("Memory usage is not reported and only the direct child is killed on timeout")
	}
}

func loadConf() *config.Config {
	var conf config.Config
	if err := conf.Load(); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		log.Fatalln("load config failed ", err)
	}
	return &conf
}

type (
	stopFunc func(ctx context.Context) error
	initFunc func() (start func(), cleanUp stopFunc)
)

func cleanUpWorker(work worker.Worker) initFunc {
	return func() (start func(), cleanUp stopFunc) {
		return nil, func(ctx context.Context) error {
			work.Shutdown()
			logger.Info("Worker shutdown")
			return nil
		}
	}
}

func cleanUpJobs(jobs *jobqueue.Service) initFunc {
	return func() (start func(), cleanUp stopFunc) {
		return nil, func(ctx context.Context) error {
			err := jobs.Shutdown(ctx)
			logger.Info("Job service shutdown", zap.Error(err))
			return err
		}
	}
}

func cleanUpStore(storeCleanUp func() error) initFunc {
	return func() (start func(), cleanUp stopFunc) {
		if storeCleanUp == nil {
			return nil, nil
		}
		return nil, func(ctx context.Context) error {
			err := storeCleanUp()
			logger.Info("Job store closed")
			return err
		}
	}
}

func initSweeper(conf *config.Config, fs filestore.FileStore) initFunc {
	return func() (start func(), cleanUp stopFunc) {
		if conf.FileMaxAge <= 0 || conf.FileSweepInt <= 0 {
			return nil, nil
		}
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			defer close(done)
			filestore.RunSweeper(ctx, fs, conf.FileMaxAge, conf.FileSweepInt, func(n int, err error) {
				if err != nil {
					logger.Warn("Sweep leftover source files", zap.Error(err))
				}
				if n > 0 {
					logger.Info("Removed leftover source files", zap.Int("count", n))
				}
			})
		}()
		return nil, func(ctx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

func initHTTPServer(conf *config.Config, jobs restexecutor.JobService) initFunc {
	return func() (start func(), cleanUp stopFunc) {
		// Init http handle
		r := initHTTPMux(conf, jobs)
		srv := http.Server{
			Addr:    conf.HTTPAddr,
			Handler: r,
		}

		return func() {
				lis, err := net.Listen("tcp", conf.HTTPAddr)
				if err != nil {
					logger.Error("Http server listen failed", zap.Error(err))
					return
				}
				logger.Info("Starting http server", zap.String("addr", lis.Addr().String()))
				if err := srv.Serve(lis); errors.Is(err, http.ErrServerClosed) {
					logger.Info("Http server stopped", zap.Error(err))
				} else {
					logger.Error("Http server stopped", zap.Error(err))
				}
			}, func(ctx context.Context) error {
				logger.Info("Http server shutting down")
				return srv.Shutdown(ctx)
			}
	}
}

func initMonitorHTTPServer(conf *config.Config) initFunc {
	return func() (start func(), cleanUp stopFunc) {
		// Init monitor HTTP server
		mr := initMonitorHTTPMux(conf)
		if mr == nil {
			return nil, nil
		}
		msrv := http.Server{
			Addr:    conf.MonitorAddr,
			Handler: mr,
		}
		return func() {
				lis, err := net.Listen("tcp", conf.MonitorAddr)
				if err != nil {
					logger.Error("Monitoring http listen failed", zap.Error(err))
					return
				}
				logger.Info("Starting monitoring http server", zap.String("addr", lis.Addr().String()))
				logger.Info("Monitoring http server stopped", zap.Error(msrv.Serve(lis)))
			}, func(ctx context.Context) error {
				logger.Info("Monitoring http server shutdown")
				return msrv.Shutdown(ctx)
			}
	}
}

func initLogger(conf *config.Config) {
	if conf.Silent {
		logger = zap.NewNop()
		return
	}

	var err error
	if conf.Release {
		logger, err = zap.NewProduction()
	} else {
		config := zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		if !conf.EnableDebug {
			config.Level.SetLevel(zap.InfoLevel)
		}
		logger, err = config.Build()
	}
	if err != nil {
		log.Fatalln("init logger failed ", err)
	}
}

func initHTTPMux(conf *config.Config, jobs restexecutor.JobService) http.Handler {
	var r *gin.Engine
	if conf.Release {
		gin.SetMode(gin.ReleaseMode)
	}
	r = gin.New()
	r.Use(ginzap.Ginzap(logger, "", false))
	r.Use(ginzap.RecoveryWithZap(logger, true))

	// Metrics Handle
	if conf.EnableMetrics {
		initGinMetrics(r)
	}

	// Welcome and version handle
	r.GET("/", handleWelcome)
	r.GET("/version", generateHandleVersion(conf))

	// Add auth token
	if conf.AuthToken != "" {
		r.Use(tokenAuth(conf.AuthToken))
		logger.Info("Attach token auth")
	}

	// Rest Handle
	jobHandle := restexecutor.NewJobHandle(jobs, logger)
	jobHandle.Register(r)

	// WebSocket Handle
	wsHandle := wsexecutor.New(jobs, 0, logger)
	wsHandle.Register(r)

	return r
}

func initMonitorHTTPMux(conf *config.Config) http.Handler {
	if !conf.EnableMetrics && !conf.EnableDebug {
		return nil
	}
	mux := http.NewServeMux()
	if conf.EnableMetrics {
		mux.Handle("/metrics", promhttp.Handler())
	}
	if conf.EnableDebug {
		initDebugRoute(mux)
	}
	return mux
}

func initDebugRoute(mux *http.ServeMux) {
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
}

func initGinMetrics(r *gin.Engine) {
	p := ginprometheus.NewWithConfig(ginprometheus.Config{
		Subsystem:          "gin",
		DisableBodyReading: true,
	})
	p.ReqCntURLLabelMappingFn = func(c *gin.Context) string {
		return c.FullPath()
	}
	r.Use(p.HandlerFunc())
}

func tokenAuth(token string) gin.HandlerFunc {
	const bearer = "Bearer "
	return func(c *gin.Context) {
		reqToken := c.GetHeader("Authorization")
		if strings.HasPrefix(reqToken, bearer) && reqToken[len(bearer):] == token {
			c.Next()
			return
		}
		c.AbortWithStatus(http.StatusUnauthorized)
	}
}

func newFileStore(conf *config.Config) filestore.FileStore {
	fs, err := filestore.NewFileLocalStore(conf.Dir)
	if err != nil {
		logger.Fatal("Failed to create file store", zap.Error(err))
	}
	if conf.FileMaxAge > 0 {
		if n, err := fs.Sweep(conf.FileMaxAge); err != nil {
			logger.Warn("Sweep leftover source files", zap.Error(err))
		} else if n > 0 {
			logger.Info("Removed leftover source files", zap.Int("count", n))
		}
	}
	if conf.EnableMetrics {
		fs = newMetricsFileStore(fs)
	}
	return fs
}

func newExecutor(conf *config.Config, fs filestore.FileStore, lang language.Language) envexec.Executor {
	args, err := conf.InterpreterArgs()
	if err != nil {
		logger.Fatal("Invalid interpreter", zap.Error(err))
	}
	r, err := envexec.NewRunner(envexec.Config{
		Interpreter:  args,
		Timeout:      conf.Timeout,
		FileStore:    fs,
		SourceSuffix: lang.SourceSuffix(),
		WorkDir:      conf.WorkDir,
		Env:          conf.Env(),
		OutputLimit:  *conf.OutputLimit,
		Logger:       logger.Named("runner"),
	})
	if err != nil {
		logger.Fatal("Create runner failed", zap.Error(err))
	}
	if conf.EnableMetrics {
		return &metricsExecutor{r}
	}
	return r
}

func newJobStore(conf *config.Config) (jobstore.Store, func() error) {
	if conf.RedisAddr == "" {
		m := jobstore.NewMemory(conf.JobTTL)
		logger.Info("Using in memory job store", zap.Duration("ttl", conf.JobTTL))
		if conf.JobTTL <= 0 {
			return m, nil
		}
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			ticker := time.NewTicker(conf.JobTTL)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if n := m.Sweep(); n > 0 {
						logger.Debug("Expired jobs dropped", zap.Int("count", n))
					}
				}
			}
		}()
		return m, func() error {
			cancel()
			return nil
		}
	}

	client := redis.NewClient(redisOptions(conf))
	s := jobstore.NewRedis(client, conf.RedisPrefix, conf.JobTTL)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Ping(ctx); err != nil {
		logger.Fatal("Failed to connect to redis", zap.String("addr", conf.RedisAddr), zap.Error(err))
	}
	logger.Info("Using redis job store", zap.String("addr", conf.RedisAddr), zap.Duration("ttl", conf.JobTTL))
	return s, client.Close
}

func redisOptions(conf *config.Config) *redis.Options {
	return &redis.Options{
		Addr:     conf.RedisAddr,
		Username: conf.RedisUser,
		Password: conf.RedisPassword,
		DB:       conf.RedisDB,
	}
}

func handleWelcome(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": welcomeMessage})
}

func generateHandleVersion(conf *config.Config) func(*gin.Context) {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"buildVersion": version.Version,
			"goVersion":    runtime.Version(),
			"platform":     runtime.GOARCH,
			"os":           runtime.GOOS,
			"interpreter":  conf.Interpreter,
			"timeout":      conf.Timeout.Seconds(),
		})
	}
}
