package middleware

import (
	"net/http"
	"net/http/pprof"

	"github.com/labstack/echo/v4"
)

type PprofConfig struct {
	PathPrefix string
}

var DefaultPprofConfig = PprofConfig{
	PathPrefix: "",
}

// PprofWrap mounts the runtime profiling endpoints under /debug/pprof.
func PprofWrap(e *echo.Echo, opts ...PprofConfig) {
	conf := DefaultPprofConfig
	if len(opts) > 0 {
		conf.PathPrefix = opts[0].PathPrefix
	}

	fromFunc := func(f http.HandlerFunc) echo.HandlerFunc {
		return echo.WrapHandler(f)
	}

	pprofGroup := e.Group(conf.PathPrefix)
	pprofGroup.GET("/debug/pprof/", fromFunc(pprof.Index))
	pprofGroup.GET("/debug/pprof/heap", echo.WrapHandler(pprof.Handler("heap")))
	pprofGroup.GET("/debug/pprof/goroutine", echo.WrapHandler(pprof.Handler("goroutine")))
	pprofGroup.GET("/debug/pprof/block", echo.WrapHandler(pprof.Handler("block")))
	pprofGroup.GET("/debug/pprof/threadcreate", echo.WrapHandler(pprof.Handler("threadcreate")))
	pprofGroup.GET("/debug/pprof/cmdline", fromFunc(pprof.Cmdline))
	pprofGroup.GET("/debug/pprof/profile", fromFunc(pprof.Profile))
	pprofGroup.GET("/debug/pprof/symbol", fromFunc(pprof.Symbol))
	pprofGroup.GET("/debug/pprof/trace", fromFunc(pprof.Trace))
}
