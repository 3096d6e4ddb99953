package setting

import (
	"fmt"
	"strconv"
	"strings"
)

// Color - цвет в формате ARGB.
type Color struct {
	core[uint32]
	alpha bool
}

// NewColor создаёт цветовую настройку. Если alpha=false, прозрачность
// не редактируется и не показывается в Hex.
func NewColor(name, description string, def uint32, alpha bool) *Color {
	return &Color{core: newCore(name, description, def), alpha: alpha}
}

func (c *Color) Type() Type      { return TypeColor }
func (c *Color) Get() uint32     { return c.value }
func (c *Color) Default() uint32 { return c.def }
func (c *Color) HasAlpha() bool  { return c.alpha }
func (c *Color) Set(v uint32)    { c.store(v) }
func (c *Color) Reset()          { c.store(c.def) }

func (c *Color) Alpha() uint8 { return uint8(c.value >> 24) }
func (c *Color) Red() uint8   { return uint8(c.value >> 16) }
func (c *Color) Green() uint8 { return uint8(c.value >> 8) }
func (c *Color) Blue() uint8  { return uint8(c.value) }

// SetRGB задаёт непрозрачный цвет.
func (c *Color) SetRGB(r, g, b uint8) {
	c.SetRGBA(r, g, b, 0xFF)
}

func (c *Color) SetRGBA(r, g, b, a uint8) {
	c.store(uint32(a)<<24 | uint32(r)<<16 | uint32(g)<<8 | uint32(b))
}

// Hex возвращает RRGGBB или AARRGGBB без решётки.
func (c *Color) Hex() string {
	if c.alpha {
		return fmt.Sprintf("%08X", c.value)
	}
	return fmt.Sprintf("%06X", c.value&0xFFFFFF)
}

func (c *Color) Serialize() string { return "#" + fmt.Sprintf("%08X", c.value) }
func (c *Color) Display() string   { return "#" + c.Hex() }

// Deserialize принимает "#RRGGBB", "#AARRGGBB" или десятичное знаковое ARGB.
func (c *Color) Deserialize(s string) error {
	v, err := parseColor(strings.TrimSpace(s))
	if err != nil {
		warnMalformed(c.name, s, err)
		c.store(c.def)
		return err
	}
	c.store(v)
	return nil
}

func parseColor(s string) (uint32, error) {
	if hex, ok := strings.CutPrefix(s, "#"); ok {
		v, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return 0, err
		}
		switch len(hex) {
		case 6:
			return 0xFF000000 | uint32(v), nil
		case 8:
			return uint32(v), nil
		default:
			return 0, fmt.Errorf("ожидалось 6 или 8 шестнадцатеричных цифр")
		}
	}
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(int32(v)), nil
}

// OnChange добавляет наблюдателя изменений.
func (c *Color) OnChange(fn func(uint32)) *Color {
	c.observe(fn)
	return c
}
