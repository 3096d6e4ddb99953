package module

import (
	"strconv"
	"strings"
	"sync"
)

// Коды клавиш (совпадают с GLFW).
const (
	KeySpace        = 32
	KeyApostrophe   = 39
	KeyComma        = 44
	KeyMinus        = 45
	KeyPeriod       = 46
	KeySlash        = 47
	Key0            = 48
	Key9            = 57
	KeySemicolon    = 59
	KeyEqual        = 61
	KeyA            = 65
	KeyG            = 71
	KeyZ            = 90
	KeyLeftBracket  = 91
	KeyBackslash    = 92
	KeyRightBracket = 93
	KeyGraveAccent  = 96
	KeyEscape       = 256
	KeyEnter        = 257
	KeyTab          = 258
	KeyBackspace    = 259
	KeyInsert       = 260
	KeyDelete       = 261
	KeyRight        = 262
	KeyLeft         = 263
	KeyDown         = 264
	KeyUp           = 265
	KeyPageUp       = 266
	KeyPageDown     = 267
	KeyHome         = 268
	KeyEnd          = 269
	KeyCapsLock     = 280
	KeyScrollLock   = 281
	KeyNumLock      = 282
	KeyPrintScreen  = 283
	KeyPause        = 284
	KeyF1           = 290
	KeyF12          = 301
	KeyKP0          = 320
	KeyKP9          = 329
	KeyKPDecimal    = 330
	KeyKPDivide     = 331
	KeyKPMultiply   = 332
	KeyKPSubtract   = 333
	KeyKPAdd        = 334
	KeyKPEnter      = 335
	KeyKPEqual      = 336
	KeyLeftShift    = 340
	KeyLeftControl  = 341
	KeyLeftAlt      = 342
	KeyLeftSuper    = 343
	KeyRightShift   = 344
	KeyRightControl = 345
	KeyRightAlt     = 346
	KeyRightSuper   = 347
	KeyMenu         = 348
)

var namedKeys = map[int]string{
	KeySpace:        "SPACE",
	KeyApostrophe:   "'",
	KeyComma:        ",",
	KeyMinus:        "-",
	KeyPeriod:       ".",
	KeySlash:        "/",
	KeySemicolon:    ";",
	KeyEqual:        "=",
	KeyLeftBracket:  "[",
	KeyBackslash:    "\\",
	KeyRightBracket: "]",
	KeyGraveAccent:  "`",
	KeyEscape:       "ESC",
	KeyEnter:        "ENTER",
	KeyTab:          "TAB",
	KeyBackspace:    "BKSP",
	KeyInsert:       "INS",
	KeyDelete:       "DEL",
	KeyRight:        "RIGHT",
	KeyLeft:         "LEFT",
	KeyDown:         "DOWN",
	KeyUp:           "UP",
	KeyPageUp:       "PGUP",
	KeyPageDown:     "PGDN",
	KeyHome:         "HOME",
	KeyEnd:          "END",
	KeyCapsLock:     "CAPS",
	KeyScrollLock:   "SCROLL_LK",
	KeyNumLock:      "NUM_LOCK",
	KeyPrintScreen:  "PRT_SC",
	KeyPause:        "PAUSE",
	KeyKPDecimal:    "NP.",
	KeyKPDivide:     "NP/",
	KeyKPMultiply:   "NP*",
	KeyKPSubtract:   "NP-",
	KeyKPAdd:        "NP+",
	KeyKPEnter:      "NP_ENT",
	KeyKPEqual:      "NP=",
	KeyLeftShift:    "L-SHIFT",
	KeyLeftControl:  "L-CTRL",
	KeyLeftAlt:      "L-ALT",
	KeyLeftSuper:    "L-WIN",
	KeyRightShift:   "R-SHIFT",
	KeyRightControl: "R-CTRL",
	KeyRightAlt:     "R-ALT",
	KeyRightSuper:   "R-WIN",
	KeyMenu:         "MENU",
}

// KeyName возвращает отображаемое имя клавиши: "None" для неназначенной,
// букву или цифру, имя служебной клавиши или KEY_<код>.
func KeyName(code int) string {
	switch {
	case code < 0:
		return "None"
	case code >= KeyA && code <= KeyZ, code >= Key0 && code <= Key9:
		return string(rune(code))
	case code >= KeyF1 && code <= KeyF12:
		return "F" + strconv.Itoa(code-KeyF1+1)
	case code >= KeyKP0 && code <= KeyKP9:
		return "NP" + strconv.Itoa(code-KeyKP0)
	}
	if name, ok := namedKeys[code]; ok {
		return name
	}
	return "KEY_" + strconv.Itoa(code)
}

var (
	keyCodesOnce sync.Once
	keyCodes     map[string]int
)

// KeyCode - обратное преобразование к KeyName (без учёта регистра).
// Понимает также число и "KEY_<код>".
func KeyCode(name string) (int, bool) {
	keyCodesOnce.Do(func() {
		keyCodes = make(map[string]int)
		for code := 0; code <= KeyMenu; code++ {
			n := KeyName(code)
			if !strings.HasPrefix(n, "KEY_") {
				keyCodes[n] = code
			}
		}
	})

	name = strings.ToUpper(strings.TrimSpace(name))
	if name == "NONE" || name == "" {
		return -1, true
	}
	if code, ok := keyCodes[name]; ok {
		return code, true
	}
	if code, err := strconv.Atoi(strings.TrimPrefix(name, "KEY_")); err == nil {
		return code, true
	}
	return 0, false
}
