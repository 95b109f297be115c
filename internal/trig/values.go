package trig

import "fmt"

// Function is one of the four trigonometric functions the generator asks about.
type Function string

const (
	Sin Function = "sin"
	Cos Function = "cos"
	Tg  Function = "tg"
	Ctg Function = "ctg"
)

// Functions lists every supported function in a stable order.
var Functions = []Function{Sin, Cos, Tg, Ctg}

// Undefined is the value of tg/ctg where the function has a pole.
const Undefined = "undefined"

// firstQuadrant holds exact values at the reference angles.
var firstQuadrant = map[Function]map[int]string{
	Sin: {0: "0", 30: "1/2", 45: "sqrt(2)/2", 60: "sqrt(3)/2", 90: "1"},
	Cos: {0: "1", 30: "sqrt(3)/2", 45: "sqrt(2)/2", 60: "1/2", 90: "0"},
	Tg:  {0: "0", 30: "sqrt(3)/3", 45: "1", 60: "sqrt(3)", 90: Undefined},
	Ctg: {0: Undefined, 30: "sqrt(3)", 45: "1", 60: "sqrt(3)/3", 90: "0"},
}

type angle struct {
	deg int
	rad string
}

// quadrants maps each quadrant to the angles questions are drawn from.
var quadrants = map[int][]angle{
	1: {{0, "0"}, {30, "pi/6"}, {45, "pi/4"}, {60, "pi/3"}, {90, "pi/2"}},
	2: {{120, "2*pi/3"}, {135, "3*pi/4"}, {150, "5*pi/6"}, {180, "pi"}},
	3: {{210, "7*pi/6"}, {225, "5*pi/4"}, {240, "4*pi/3"}, {270, "3*pi/2"}},
	4: {{300, "5*pi/3"}, {315, "7*pi/4"}, {330, "11*pi/6"}, {360, "2*pi"}},
}

// Value returns the exact value of fn at deg for one of the generator's angles.
func Value(fn Function, deg int) (string, error) {
	table, ok := firstQuadrant[fn]
	if !ok {
		return "", fmt.Errorf("unknown function %q", fn)
	}
	q, ok := quadrantOf(deg)
	if !ok {
		return "", fmt.Errorf("unsupported angle %d", deg)
	}
	base := table[reference(q, deg)]
	if base == "0" || base == Undefined {
		return base, nil
	}
	if negative(fn, q) {
		return "-" + base, nil
	}
	return base, nil
}

func quadrantOf(deg int) (int, bool) {
	for q, angles := range quadrants {
		for _, a := range angles {
			if a.deg == deg {
				return q, true
			}
		}
	}
	return 0, false
}

func reference(quadrant, deg int) int {
	switch quadrant {
	case 2:
		return 180 - deg
	case 3:
		return deg - 180
	case 4:
		return 360 - deg
	}
	return deg
}

func negative(fn Function, quadrant int) bool {
	switch fn {
	case Sin:
		return quadrant == 3 || quadrant == 4
	case Cos:
		return quadrant == 2 || quadrant == 3
	default:
		return quadrant == 2 || quadrant == 4
	}
}

func formatDegrees(deg int) string {
	return fmt.Sprintf("%d°", deg)
}
