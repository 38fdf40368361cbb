package scripting

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/citysim/core/internal/grid"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM for city formulas.
// Single-goroutine access only (tick loop).
type Engine struct {
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine creates a Lua engine and loads every script under
// scriptsDir/core and scriptsDir/city. Missing directories are skipped.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}
	vm := lua.NewState()
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log}
	for _, sub := range []string{"core", "city"} {
		if err := e.loadDir(filepath.Join(scriptsDir, sub)); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load %s scripts: %w", sub, err)
		}
	}
	return e, nil
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// Has reports whether a global Lua function is defined.
func (e *Engine) Has(name string) bool {
	_, ok := e.vm.GetGlobal(name).(*lua.LFunction)
	return ok
}

// CalcGridHappiness calls Lua calc_grid_happiness(ctx). Without the function,
// or when it fails or returns something other than a finite number, the plain
// mean of the sample is used.
func (e *Engine) CalcGridHappiness(s grid.HappinessSample) float64 {
	fn := e.vm.GetGlobal("calc_grid_happiness")
	if fn == lua.LNil {
		return s.Mean()
	}

	ctx := e.vm.NewTable()
	ctx.RawSetString("grid", lua.LNumber(s.GridID))
	ctx.RawSetString("residential", lua.LNumber(s.Residential))
	ctx.RawSetString("vacant", lua.LNumber(s.Vacant))
	ctx.RawSetString("residents", lua.LNumber(s.Residents))
	ctx.RawSetString("sum", lua.LNumber(s.Sum))
	ctx.RawSetString("mean", lua.LNumber(s.Mean()))

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, ctx); err != nil {
		e.log.Error("lua call error", zap.String("func", "calc_grid_happiness"), zap.Error(err))
		return s.Mean()
	}
	ret := e.vm.Get(-1)
	e.vm.Pop(1)

	n, ok := ret.(lua.LNumber)
	if !ok || math.IsNaN(float64(n)) || math.IsInf(float64(n), 0) {
		e.log.Warn("calc_grid_happiness returned a non-number",
			zap.Int("grid", s.GridID), zap.String("type", ret.Type().String()))
		return s.Mean()
	}
	return float64(n)
}

// ScoreHappiness implements grid.HappinessScorer.
func (e *Engine) ScoreHappiness(s grid.HappinessSample) float64 {
	return e.CalcGridHappiness(s)
}

// CallNumber calls a Lua function with numeric args and returns its numeric
// result.
func (e *Engine) CallNumber(name string, args ...float64) (float64, error) {
	fn := e.vm.GetGlobal(name)
	if fn == lua.LNil {
		return 0, fmt.Errorf("lua function %s not found", name)
	}

	lArgs := make([]lua.LValue, len(args))
	for i, a := range args {
		lArgs[i] = lua.LNumber(a)
	}
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, lArgs...); err != nil {
		return 0, fmt.Errorf("call %s: %w", name, err)
	}
	ret := e.vm.Get(-1)
	e.vm.Pop(1)
	return float64(lua.LVAsNumber(ret)), nil
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}
