// Package backends selects, once per process, the backend that executes operations.
//
// Backends register a Constructor during package initialization (see Register). Selection builds
// every registered backend, keeps those that report IsAvailable() and CanRun(), and picks the one
// with the highest Priority(); ties go to the first registered. The result is an immutable *Handle
// that callers thread through their code:
//
//	import _ "github.com/gomlx/ndgraph/backends/default"
//
//	handle := backends.MustResolve()
//	fmt.Println(handle.Name(), handle.Backend().Capabilities())
//
// The NDGRAPH_BACKEND environment variable (see Resolve) restricts the selection to one named
// backend and passes it a configuration.
package backends

import (
	"fmt"
	"os"
	"strings"

	"github.com/janpfeifer/must"
	"k8s.io/klog/v2"
)

// Priorities of the standard kinds of backends. Backends may return any value in between.
const (
	PriorityCPU = 0
	PriorityGPU = 100
)

// Backend is the API a backend implements to take part in the selection.
type Backend interface {
	// Name returns the short name of the backend, e.g.: "cpu".
	Name() string

	// Description is a longer description of the Backend that can be used to pretty-print.
	Description() string

	// IsAvailable returns whether the backend's hardware and libraries are present.
	// It must be cheap and free of side effects.
	IsAvailable() bool

	// CanRun returns whether the backend is able to execute operations in this process.
	CanRun() bool

	// Priority of the backend, higher values are preferred. See PriorityCPU and PriorityGPU.
	Priority() int

	// AllowsOrder returns whether the backend accepts arrays in either memory order ('c' and 'f').
	// It is a capability queried by the kernel dispatcher; it is not enforced here.
	AllowsOrder() bool

	// Capabilities returns the operation categories and dtypes supported.
	Capabilities() Capabilities

	// Environment returns the execution environment settings of the backend.
	Environment() Environment

	// BuildInfo returns a free-form multi-line description of the build and the native libraries used.
	BuildInfo() string
}

// Environment holds the execution settings of a backend.
type Environment struct {
	// MaxThreads used by the backend to execute operations.
	MaxThreads int

	Debug   bool
	Verbose bool

	// Description of the environment, for instance the devices used.
	Description string
}

// String implements fmt.Stringer.
func (e Environment) String() string {
	return fmt.Sprintf("threads=%d, debug=%v, verbose=%v, %s", e.MaxThreads, e.Debug, e.Verbose, e.Description)
}

// Constructor takes a config string (optionally empty) and returns a Backend.
// A backend that is not available on this system should still be returned (with IsAvailable()
// returning false) so the selection can report it: errors are reserved for invalid configurations.
type Constructor func(config string) (Backend, error)

// NDGRAPH_BACKEND is the environment variable with the backend configuration to use.
//
// The format of config is "<backend_name>[:<backend_configuration>]".
// The "<backend_name>" is the name of a registered backend (e.g.: "cpu") and
// "<backend_configuration>" is backend specific.
const NDGRAPH_BACKEND = "NDGRAPH_BACKEND"

// NDGRAPH_LOG_INIT is the environment variable that, if set to "false", disables logging the build
// information of the selected backend.
const NDGRAPH_LOG_INIT = "NDGRAPH_LOG_INIT"

// DefaultConfig is the backend configuration used if NDGRAPH_BACKEND is not set.
//
// See NDGRAPH_BACKEND for the format of the configuration string.
var DefaultConfig string

// ConfigFromEnv returns the configuration used by Resolve:
//
// 1. The environment NDGRAPH_BACKEND is used as a configuration if defined.
// 2. Next the variable DefaultConfig.
func ConfigFromEnv() string {
	if config, found := os.LookupEnv(NDGRAPH_BACKEND); found {
		return config
	}
	return DefaultConfig
}

// splitConfig splits "<name>:<config>" into its parts. The name is empty if config is empty.
func splitConfig(config string) (name, backendConfig string) {
	name, backendConfig, _ = strings.Cut(config, ":")
	return
}

// logInit logs the selected backend, unless disabled with NDGRAPH_LOG_INIT=false.
func logInit(h *Handle) {
	if strings.EqualFold(os.Getenv(NDGRAPH_LOG_INIT), "false") {
		return
	}
	klog.Infof("Loaded [%s] backend\n%s", h.Name(), h.Backend().BuildInfo())
}

// DefaultRegistry is where backends register themselves, during initialization.
var DefaultRegistry = NewRegistry()

// Register backend with the given name in the DefaultRegistry.
//
// To be safe, call Register during initialization of a package.
func Register(name string, constructor Constructor) {
	DefaultRegistry.Register(name, constructor)
}

// Select runs a new selection in the DefaultRegistry with the given config. See Registry.Select.
func Select(config string) (*Handle, error) {
	return DefaultRegistry.Select(config)
}

// Resolve returns the backend of the process, selected from the DefaultRegistry on the first call.
// See Registry.Resolve.
func Resolve() (*Handle, error) {
	return DefaultRegistry.Resolve()
}

// MustResolve is like Resolve, but panics on error.
func MustResolve() *Handle {
	return must.M1(Resolve())
}
