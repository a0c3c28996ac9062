package eval

import (
	"math"
	"regexp"
	"strings"

	"nickandperla.net/cbs/internal/jsnum"
)

// MaxDice caps how many dice a single roll throws.
const MaxDice = 10000

var diceNotation = regexp.MustCompile(`(?i)^(\d*)d(\d+)([+-]\d+)?$`)

// rollDice throws num dice with the given sides. ok is false for notation
// that cannot be rolled.
func rollDice(ctx *Context, num, sides float64) (float64, bool) {
	if math.IsNaN(num) || math.IsNaN(sides) || num < 1 || sides < 1 || num > MaxDice {
		return 0, false
	}
	var total float64
	for i := 0.0; i < num; i++ {
		total += math.Floor(ctx.float64()*sides) + 1
	}
	return total, true
}

// dice rolls "XdY+Z" notation.
func dice(ctx *Context, notation string) string {
	m := diceNotation.FindStringSubmatch(notation)
	if m == nil {
		return "NaN"
	}
	num := jsnum.Number(orFallback([]string{m[1]}, 0, "1"))
	sides := jsnum.Number(m[2])
	if num > MaxDice {
		return "NaN"
	}
	total := jsnum.Number(m[3])
	for i := 0.0; i < num; i++ {
		total += math.Floor(ctx.float64()*sides) + 1
	}
	return jsnum.Format(total)
}

// choices splits the random command's single argument: a JSON array, or a
// list separated by ":" or "," where "\," is a literal comma.
func choices(arg string) []string {
	if strings.HasPrefix(arg, "[") && strings.HasSuffix(arg, "]") {
		arr := arrayArg(arg)
		out := make([]string, len(arr))
		for i, v := range arr {
			out[i] = jsString(v)
		}
		return out
	}
	arg = strings.ReplaceAll(arg, `\,`, "\x00")
	parts := splitAny(arg, ":,")
	for i, p := range parts {
		parts[i] = strings.ReplaceAll(p, "\x00", ",")
	}
	return parts
}

// splitAny splits on every occurrence of any separator byte, keeping
// empty fields.
func splitAny(s, seps string) []string {
	var out []string
	last := 0
	for i := 0; i < len(s); i++ {
		if strings.IndexByte(seps, s[i]) >= 0 {
			out = append(out, s[last:i])
			last = i + 1
		}
	}
	return append(out, s[last:])
}

var randomCommands = []Command{
	{
		Name:        "random",
		Description: "Random number, or a random choice among the arguments",
		Fn: func(args []string, ctx *Context, _ map[string]string) (Output, error) {
			var list []string
			switch len(args) {
			case 0:
				return Text(jsnum.Format(ctx.float64()))
			case 1:
				list = choices(args[0])
			default:
				list = args
			}
			if len(list) == 0 {
				return Text("")
			}
			return Text(list[int(ctx.float64()*float64(len(list)))])
		},
	},
	{
		Name:        "randint",
		Description: "Random integer between min and max inclusive",
		Fn: func(args []string, ctx *Context, _ map[string]string) (Output, error) {
			lo := jsnum.Number(orDefault(args, 0, "0"))
			hi := jsnum.Number(orDefault(args, 1, "100"))
			if math.IsNaN(lo) || math.IsNaN(hi) {
				return Text("NaN")
			}
			return Text(jsnum.Format(math.Floor(ctx.float64()*(hi-lo+1)) + lo))
		},
	},
	{
		Name:        "roll",
		Description: "Roll XdY dice",
		Fn: func(args []string, ctx *Context, _ map[string]string) (Output, error) {
			if len(args) == 0 {
				return Text("1")
			}
			num, sides := 1.0, 6.0
			switch parts := strings.Split(args[0], "d"); len(parts) {
			case 1:
				sides = jsnum.Number(parts[0])
			case 2:
				num = jsnum.Number(orFallback(parts, 0, "1"))
				sides = jsnum.Number(orFallback(parts, 1, "6"))
			}
			total, ok := rollDice(ctx, num, sides)
			if !ok {
				return Text("NaN")
			}
			return Text(jsnum.Format(total))
		},
	},
	{
		Name:        "dice",
		Description: "Roll XdY+Z dice",
		Fn: func(args []string, ctx *Context, _ map[string]string) (Output, error) {
			return Text(dice(ctx, orDefault(args, 0, "1d6")))
		},
	},
	{
		Name:        "pick",
		Description: "Choice picked by hashing the first argument",
		Fn: func(args []string, _ *Context, _ map[string]string) (Output, error) {
			if len(args) < 2 {
				return Text("")
			}
			opts := args[1:]
			return Text(opts[hash32(args[0])%int64(len(opts))])
		},
	},
	{
		Name:        "rollp",
		Description: "Dice roll that stays fixed for the rest of the evaluation",
		Fn: func(args []string, ctx *Context, vars map[string]string) (Output, error) {
			key := "__rollp_" + orDefault(args, 0, "default") + "__"
			if v := vars[key]; v != "" {
				return Text(v)
			}
			v := dice(ctx, orDefault(args, 1, "1d6"))
			if v == "NaN" {
				return Text(v)
			}
			vars[key] = v
			return Output{Text: v, Vars: vars}, nil
		},
	},
}
