package effects

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	lua "github.com/yuin/gopher-lua"

	"lightstrip-controller/internal/color"
	"lightstrip-controller/internal/x/mathx"
)

// DefaultFrameBudget bounds a single call of a script's frame function.
const DefaultFrameBudget = 200 * time.Millisecond

// LuaAnimation runs a script that defines frame(n). The script draws with
// set_pixel and fill; returning false from frame ends the animation. Pixel
// indices are zero based, like the strip.
type LuaAnimation struct {
	name   string
	L      *lua.LState
	fn     *lua.LFunction
	frame  []color.PixelColor
	n      int
	done   bool
	budget time.Duration
	log    *logrus.Entry
}

// NewLuaAnimation compiles code and looks up its frame function.
func NewLuaAnimation(name, code string, count int, logger *logrus.Entry) (*LuaAnimation, error) {
	a := &LuaAnimation{
		name:   name,
		L:      lua.NewState(),
		frame:  make([]color.PixelColor, count),
		budget: DefaultFrameBudget,
		log:    logger.WithField("pattern", name),
	}
	a.registerGoFunctions()

	ctx, cancel := context.WithTimeout(context.Background(), a.budget)
	a.L.SetContext(ctx)
	err := a.L.DoString(code)
	a.L.RemoveContext()
	cancel()
	if err != nil {
		a.L.Close()
		return nil, fmt.Errorf("load pattern %q: %w", name, err)
	}

	fn, ok := a.L.GetGlobal("frame").(*lua.LFunction)
	if !ok {
		a.L.Close()
		return nil, fmt.Errorf("pattern %q does not define frame(n)", name)
	}
	a.fn = fn
	return a, nil
}

// Next calls frame(n) and returns the pixels the script drew.
func (a *LuaAnimation) Next() ([]color.PixelColor, bool) {
	if a.done {
		return nil, false
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.budget)
	defer cancel()
	a.L.SetContext(ctx)
	defer a.L.RemoveContext()

	err := a.L.CallByParam(lua.P{Fn: a.fn, NRet: 1, Protect: true}, lua.LNumber(a.n))
	if err != nil {
		a.log.WithError(err).Warn("Pattern script failed, stopping it")
		a.done = true
		return nil, false
	}
	ret := a.L.Get(-1)
	a.L.Pop(1)
	if ret == lua.LFalse {
		a.done = true
		return nil, false
	}

	a.n++
	out := make([]color.PixelColor, len(a.frame))
	copy(out, a.frame)
	return out, true
}

// Reset starts the script over from frame 0 on a black strip.
func (a *LuaAnimation) Reset() {
	a.n = 0
	a.done = false
	for i := range a.frame {
		a.frame[i] = color.Black
	}
}

func (a *LuaAnimation) Close() error {
	a.L.Close()
	return nil
}

func (a *LuaAnimation) registerGoFunctions() {
	a.L.SetGlobal("LED_COUNT", lua.LNumber(len(a.frame)))
	a.L.SetGlobal("set_pixel", a.L.NewFunction(a.luaSetPixel))
	a.L.SetGlobal("fill", a.L.NewFunction(a.luaFill))
	a.L.SetGlobal("hsv", a.L.NewFunction(luaHSV))
	a.L.SetGlobal("print", a.L.NewFunction(a.luaPrint))
}

func (a *LuaAnimation) luaPrint(L *lua.LState) int {
	a.log.Info(L.ToString(1))
	return 0
}

func (a *LuaAnimation) luaSetPixel(L *lua.LState) int {
	i := L.CheckInt(1)
	if i < 0 || i >= len(a.frame) {
		L.ArgError(1, fmt.Sprintf("led index %d out of range 0-%d", i, len(a.frame)-1))
		return 0
	}
	a.frame[i] = checkColor(L, 2)
	return 0
}

func (a *LuaAnimation) luaFill(L *lua.LState) int {
	c := checkColor(L, 1)
	for i := range a.frame {
		a.frame[i] = c
	}
	return 0
}

func luaHSV(L *lua.LState) int {
	h := float64(L.CheckNumber(1))
	s := float64(L.CheckNumber(2))
	v := float64(L.CheckNumber(3))
	c := color.FromHSV(h, s, v)
	L.Push(lua.LNumber(c.R))
	L.Push(lua.LNumber(c.G))
	L.Push(lua.LNumber(c.B))
	return 3
}

// checkColor reads three channel arguments starting at n, clamped to 0-255.
func checkColor(L *lua.LState, n int) color.PixelColor {
	ch := func(i int) uint8 {
		return uint8(mathx.Clamp(L.CheckInt(i), 0, 255))
	}
	return color.RGB(ch(n), ch(n+1), ch(n+2))
}
