// Command libcortex builds the committee as a C shared library for host apps:
//
//	go build -buildmode=c-shared -o libcortex.so ./cmd/libcortex
package main

/*
#include <stdlib.h>

// topic: event name, payload: JSON
typedef void (*EventCallback)(char* topic, char* payload);

// Go cannot call a C function pointer directly.
static void invokeCallback(EventCallback cb, char* topic, char* payload) {
    if (cb) {
        cb(topic, payload);
    }
}
*/
import "C"

import (
	"encoding/json"
	"errors"
	"sync"
	"time"
	"unsafe"

	"go.uber.org/zap"

	"github.com/dyike/CortexCommittee/config"
	"github.com/dyike/CortexCommittee/internal/logging"
	"github.com/dyike/CortexCommittee/internal/service"
	"github.com/dyike/CortexCommittee/internal/storage"
	"github.com/dyike/CortexCommittee/pkg/app"
	"github.com/dyike/CortexCommittee/pkg/bridge"
)

var (
	globalCallback C.EventCallback

	mu  sync.Mutex
	rt  *app.Runtime
	svc *service.Service
)

func init() {
	bridge.SetNotifyImpl(func(topic, payload string) {
		if globalCallback == nil {
			return
		}
		cTopic := C.CString(topic)
		cPayload := C.CString(payload)
		defer C.free(unsafe.Pointer(cTopic))
		defer C.free(unsafe.Pointer(cPayload))

		C.invokeCallback(globalCallback, cTopic, cPayload)
	})
}

// InitSDK opens config.json under workDir, seeding it from configJson when the file
// does not exist yet, and starts the committee runtime.
//
//export InitSDK
func InitSDK(workDir *C.char, configJson *C.char) *C.char {
	dir := C.GoString(workDir)
	raw := C.GoString(configJson)

	mu.Lock()
	defer mu.Unlock()
	shutdown()

	initial := config.DefaultConfigFromEnv(dir)
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), initial); err != nil {
			return C.CString("Error: invalid config: " + err.Error())
		}
	}
	logger, err := logging.New(initial.Debug)
	if err != nil {
		logger = zap.NewNop()
	}
	mgr, err := config.NewManager(
		config.WithConfigDir(dir),
		config.WithInitialConfig(initial),
		config.WithManagerLogger(logger),
	)
	if err != nil {
		return C.CString("Error: " + err.Error())
	}
	cfg := mgr.Get()
	if err := cfg.EnsureDirectories(); err != nil {
		return C.CString("Error: " + err.Error())
	}

	store, err := storage.OpenFromConfig(&cfg)
	if err != nil && !errors.Is(err, storage.ErrNotConfigured) {
		return C.CString("Error: " + err.Error())
	}
	runtime, err := app.NewRuntime(mgr,
		app.WithLogger(logger),
		app.WithStore(store),
		app.WithNotifier(bridge.Notify),
	)
	if err != nil {
		_ = store.Close()
		return C.CString("Error: " + err.Error())
	}
	rt = runtime
	svc = service.New(runtime, logger, 10*time.Minute)
	return C.CString("Success")
}

//export RegisterCallback
func RegisterCallback(cb C.EventCallback) {
	globalCallback = cb
}

//export UpdateConfig
func UpdateConfig(jsonStr *C.char) *C.char {
	mu.Lock()
	defer mu.Unlock()
	if rt == nil {
		return C.CString("Error: sdk not initialized")
	}
	if err := rt.UpdateConfigJSON(C.GoString(jsonStr)); err != nil {
		return C.CString("Error: " + err.Error())
	}
	return C.CString("Success")
}

//export Call
func Call(method *C.char, params *C.char) *C.char {
	mu.Lock()
	s := svc
	mu.Unlock()
	if s == nil {
		return C.CString(`{"code":503,"msg":"sdk not initialized"}`)
	}
	return C.CString(s.Dispatch(C.GoString(method), C.GoString(params)))
}

//export Shutdown
func Shutdown() {
	mu.Lock()
	defer mu.Unlock()
	shutdown()
}

//export FreeString
func FreeString(str *C.char) {
	C.free(unsafe.Pointer(str))
}

func shutdown() {
	if svc != nil {
		svc.Close()
		svc = nil
	}
	if rt != nil {
		store := rt.Store()
		rt.Close()
		_ = store.Close()
		rt = nil
	}
}

func main() {}
