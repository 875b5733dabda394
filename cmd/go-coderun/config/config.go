package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"
	"time"

	"github.com/coderun/go-coderun/envexec"
	"github.com/google/shlex"
	"github.com/joho/godotenv"
	"github.com/koding/multiconfig"
)

// Config defines go-coderun server configuration
type Config struct {
	// runner
	Interpreter  string        `flagUsage:"interpreter command line, the source path is appended" default:"python3 -I"`
	Timeout      time.Duration `flagUsage:"wall clock deadline of each execution" default:"5s"`
	OutputLimit  *envexec.Size `flagUsage:"specifies the captured size of stdout and stderr" default:"64m"`
	WorkDir      string        `flagUsage:"working directory of executed programs (file system root by default)"`
	InheritEnv   bool          `flagUsage:"pass the server environment to executed programs" default:"true"`
	Parallelism  int           `flagUsage:"control the # of concurrent jobs (default equal to number of cpu)"`
	CompareCases int           `flagUsage:"control the # of test cases of one problem run concurrently" default:"1"`

	// file store
	Dir          string        `flagUsage:"specifies directory to store source files (temp dir by default)"`
	FileMaxAge   time.Duration `flagUsage:"remove leftover source files older than this" default:"10m"`
	FileSweepInt time.Duration `flagUsage:"specifies leftover source file check interval" default:"1m"`

	// job store
	RedisAddr     string        `flagUsage:"redis address for job status, in memory when empty"`
	RedisUser     string        `flagUsage:"redis ACL user name"`
	RedisPassword string        `flagUsage:"redis password"`
	RedisDB       int           `flagUsage:"redis database"`
	RedisPrefix   string        `flagUsage:"redis key prefix of jobs" default:"coderun:job:"`
	JobTTL        time.Duration `flagUsage:"how long job results are kept" default:"1h"`

	// server config
	HTTPAddr      string `flagUsage:"specifies the http binding address" default:":8000"`
	MonitorAddr   string `flagUsage:"specifies the metrics binding address" default:":8001"`
	AuthToken     string `flagUsage:"bearer token auth for REST"`
	EnableDebug   bool   `flagUsage:"enable debug endpoint"`
	EnableMetrics bool   `flagUsage:"enable promethus metrics endpoint"`

	// logger config
	Release bool `flagUsage:"release level of logs"`
	Silent  bool `flagUsage:"do not print logs"`

	// show version and exit
	Version bool `flagUsage:"show version and exit"`
}

// Load loads config from .env file, flag & environment variables
func (c *Config) Load() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	cl := multiconfig.MultiLoader(
		&multiconfig.TagLoader{},
		&multiconfig.EnvironmentLoader{
			Prefix:    "CR",
			CamelCase: true,
		},
		&multiconfig.FlagLoader{
			CamelCase: true,
			EnvPrefix: "CR",
		},
	)
	if os.Getpid() == 1 {
		c.Release = true
	}
	if err := cl.Load(c); err != nil {
		return err
	}
	if c.Parallelism <= 0 {
		c.Parallelism = runtime.NumCPU()
	}
	return nil
}

// InterpreterArgs splits the interpreter command line
func (c *Config) InterpreterArgs() ([]string, error) {
	args, err := shlex.Split(c.Interpreter)
	if err != nil {
		return nil, fmt.Errorf("interpreter %q: %w", c.Interpreter, err)
	}
	if len(args) == 0 {
		return nil, errors.New("interpreter is empty")
	}
	return args, nil
}

// Env returns the environment of executed programs, nil inherits
func (c *Config) Env() []string {
	if c.InheritEnv {
		return nil
	}
	return []string{}
}
