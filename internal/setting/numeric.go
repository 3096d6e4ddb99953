package setting

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"strings"
	"time"
)

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// snap привязывает значение к ближайшему кратному step и округляет
// до знаков после запятой самого шага, чтобы 0.3 с шагом 0.1 оставалось 0.3.
func snap(v, step float64) float64 {
	if step <= 0 {
		return v
	}
	v = math.Round(v/step) * step
	if d := decimals(step); d <= 15 {
		p := math.Pow(10, float64(d))
		v = math.Round(v*p) / p
	}
	return v
}

// decimals - число знаков после запятой в кратчайшей записи x.
func decimals(x float64) int {
	s := strconv.FormatFloat(x, 'f', -1, 64)
	if i := strings.IndexByte(s, '.'); i >= 0 {
		return len(s) - i - 1
	}
	return 0
}

func parseFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("недопустимое число %q", s)
	}
	return v, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Number - число в отрезке [min, max] с шагом step.
type Number struct {
	core[float64]
	min, max float64
	step     float64
	integer  bool
}

// NewNumber создаёт дробную числовую настройку.
func NewNumber(name, description string, def, min, max, step float64) *Number {
	return newNumber(name, description, def, min, max, step, false)
}

// NewInt создаёт целочисленную настройку с шагом 1.
func NewInt(name, description string, def, min, max int) *Number {
	return newNumber(name, description, float64(def), float64(min), float64(max), 1, true)
}

func newNumber(name, description string, def, min, max, step float64, integer bool) *Number {
	if min > max {
		min, max = max, min
	}
	n := &Number{min: min, max: max, step: step, integer: integer}
	def = n.normalize(def)
	n.core = newCore(name, description, def)
	return n
}

func (n *Number) normalize(v float64) float64 {
	v = clamp(v, n.min, n.max)
	return clamp(snap(v, n.step), n.min, n.max)
}

func (n *Number) Type() Type       { return TypeNumber }
func (n *Number) Get() float64     { return n.value }
func (n *Number) Default() float64 { return n.def }
func (n *Number) Min() float64     { return n.min }
func (n *Number) Max() float64     { return n.max }
func (n *Number) Step() float64    { return n.step }
func (n *Number) IsInteger() bool  { return n.integer }

// Int возвращает значение, округлённое до целого.
func (n *Number) Int() int { return int(math.Round(n.value)) }

// Set ограничивает значение отрезком и привязывает к шагу.
func (n *Number) Set(v float64) {
	if math.IsNaN(v) {
		return
	}
	n.store(n.normalize(v))
}

func (n *Number) Reset() { n.store(n.def) }

// Progress - положение значения в отрезке, от 0 до 1.
func (n *Number) Progress() float64 {
	if n.max == n.min {
		return 0
	}
	return (n.value - n.min) / (n.max - n.min)
}

// SetProgress выставляет значение по положению слайдера.
func (n *Number) SetProgress(p float64) {
	p = clamp(p, 0, 1)
	n.Set(n.min + (n.max-n.min)*p)
}

func (n *Number) Serialize() string { return formatFloat(n.value) }

func (n *Number) Display() string {
	if n.integer {
		return strconv.Itoa(n.Int())
	}
	return fmt.Sprintf("%.2f", n.value)
}

func (n *Number) Deserialize(s string) error {
	v, err := parseFloat(s)
	if err != nil {
		warnMalformed(n.name, s, err)
		n.store(n.def)
		return err
	}
	n.Set(v)
	return nil
}

// OnChange добавляет наблюдателя изменений.
func (n *Number) OnChange(fn func(float64)) *Number {
	n.observe(fn)
	return n
}

// Range - отрезок [min, max] внутри абсолютных границ [lo, hi].
// После любой операции выполняется lo <= min <= max <= hi.
type Range struct {
	core[[2]float64]
	lo, hi  float64
	step    float64
	integer bool
	rng     *rand.Rand
}

// NewRange создаёт дробный диапазон.
func NewRange(name, description string, defMin, defMax, lo, hi, step float64) *Range {
	return newRange(name, description, defMin, defMax, lo, hi, step, false)
}

// NewIntRange создаёт целочисленный диапазон с шагом 1.
func NewIntRange(name, description string, defMin, defMax, lo, hi int) *Range {
	return newRange(name, description, float64(defMin), float64(defMax), float64(lo), float64(hi), 1, true)
}

func newRange(name, description string, defMin, defMax, lo, hi, step float64, integer bool) *Range {
	if lo > hi {
		lo, hi = hi, lo
	}
	r := &Range{
		lo:      lo,
		hi:      hi,
		step:    step,
		integer: integer,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	r.core = newCore(name, description, r.orderedPair(defMin, defMax))
	return r
}

// WithRand подменяет источник случайных чисел (для тестов и воспроизводимости).
func (r *Range) WithRand(rng *rand.Rand) *Range {
	if rng != nil {
		r.rng = rng
	}
	return r
}

func (r *Range) bound(v float64) float64 {
	v = clamp(v, r.lo, r.hi)
	return clamp(snap(v, r.step), r.lo, r.hi)
}

// orderedPair приводит обе границы к отрезку и шагу, перевёрнутую пару
// меняет местами.
func (r *Range) orderedPair(min, max float64) [2]float64 {
	min, max = r.bound(min), r.bound(max)
	if min > max {
		min, max = max, min
	}
	return [2]float64{min, max}
}

func (r *Range) Type() Type          { return TypeRange }
func (r *Range) Min() float64        { return r.value[0] }
func (r *Range) Max() float64        { return r.value[1] }
func (r *Range) MinInt() int         { return int(math.Round(r.value[0])) }
func (r *Range) MaxInt() int         { return int(math.Round(r.value[1])) }
func (r *Range) Default() [2]float64 { return r.def }
func (r *Range) Lower() float64      { return r.lo }
func (r *Range) Upper() float64      { return r.hi }
func (r *Range) Step() float64       { return r.step }
func (r *Range) IsInteger() bool     { return r.integer }

// SetMin двигает нижнюю границу. Если она переходит через верхнюю,
// то прижимается к ней; верхняя граница не меняется.
func (r *Range) SetMin(v float64) {
	if math.IsNaN(v) {
		return
	}
	v = r.bound(v)
	if v > r.value[1] {
		v = r.value[1]
	}
	r.store([2]float64{v, r.value[1]})
}

// SetMax двигает верхнюю границу, прижимая её к нижней при пересечении.
func (r *Range) SetMax(v float64) {
	if math.IsNaN(v) {
		return
	}
	v = r.bound(v)
	if v < r.value[0] {
		v = r.value[0]
	}
	r.store([2]float64{r.value[0], v})
}

// SetRange задаёт обе границы сразу. Перевёрнутая пара меняется местами:
// SetRange(4, 2) даёт [2, 4]. В отличие от SetMin и SetMax здесь нет
// "двигаемой" границы, к которой можно прижать другую.
func (r *Range) SetRange(min, max float64) {
	if math.IsNaN(min) || math.IsNaN(max) {
		return
	}
	r.store(r.orderedPair(min, max))
}

func (r *Range) Reset() { r.store(r.def) }

// Sample возвращает случайное значение в [min, max], привязанное к шагу.
func (r *Range) Sample() float64 {
	min, max := r.value[0], r.value[1]
	if min >= max {
		return min
	}
	v := min + (max-min)*r.rng.Float64()
	return clamp(snap(v, r.step), min, max)
}

// SampleInt возвращает случайное целое в [MinInt, MaxInt] включительно.
func (r *Range) SampleInt() int {
	min, max := r.MinInt(), r.MaxInt()
	if min >= max {
		return min
	}
	return min + r.rng.Intn(max-min+1)
}

// SampleDuration - Sample, интерпретированный как миллисекунды.
func (r *Range) SampleDuration() time.Duration {
	return time.Duration(math.Round(r.Sample())) * time.Millisecond
}

func (r *Range) Span() float64     { return r.value[1] - r.value[0] }
func (r *Range) Midpoint() float64 { return (r.value[0] + r.value[1]) / 2 }

// Contains проверяет попадание v в текущий отрезок включительно.
func (r *Range) Contains(v float64) bool {
	return v >= r.value[0] && v <= r.value[1]
}

// MinProgress и MaxProgress - положение границ внутри [lo, hi].
func (r *Range) MinProgress() float64 {
	if r.hi == r.lo {
		return 0
	}
	return (r.value[0] - r.lo) / (r.hi - r.lo)
}

func (r *Range) MaxProgress() float64 {
	if r.hi == r.lo {
		return 1
	}
	return (r.value[1] - r.lo) / (r.hi - r.lo)
}

func (r *Range) SetMinProgress(p float64) {
	r.SetMin(r.lo + (r.hi-r.lo)*clamp(p, 0, 1))
}

func (r *Range) SetMaxProgress(p float64) {
	r.SetMax(r.lo + (r.hi-r.lo)*clamp(p, 0, 1))
}

func (r *Range) Serialize() string {
	return formatFloat(r.value[0]) + "," + formatFloat(r.value[1])
}

func (r *Range) Display() string {
	if r.integer {
		return fmt.Sprintf("%d - %d", r.MinInt(), r.MaxInt())
	}
	return fmt.Sprintf("%.2f - %.2f", r.value[0], r.value[1])
}

func (r *Range) Deserialize(s string) error {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		err := fmt.Errorf("ожидалось \"min,max\", получено %d частей", len(parts))
		warnMalformed(r.name, s, err)
		r.store(r.def)
		return err
	}
	min, err := parseFloat(parts[0])
	if err == nil {
		var max float64
		if max, err = parseFloat(parts[1]); err == nil {
			r.SetRange(min, max)
			return nil
		}
	}
	warnMalformed(r.name, s, err)
	r.store(r.def)
	return err
}

// OnChange добавляет наблюдателя изменений; получает пару {min, max}.
func (r *Range) OnChange(fn func([2]float64)) *Range {
	r.observe(fn)
	return r
}
