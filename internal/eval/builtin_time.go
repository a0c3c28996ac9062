package eval

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"nickandperla.net/cbs/internal/jsnum"
)

// Values the clock commands return when TokenizeAccurate is set.
const (
	fixedTime    = "00:00:00"
	fixedDate    = "2000-1-1"
	fixedISODate = "2000-01-01"
)

// maxDateFormat is the longest format string FormatDate accepts.
const maxDateFormat = 300

// dateTokens are tried longest first at every position.
var dateTokens = []string{
	"YYYY", "YY", "MMMM", "MMM", "MM", "DDDD", "DD", "dddd", "ddd",
	"HH", "hh", "mm", "ss", "X", "x", "A",
}

func pad2(n int) string {
	return fmt.Sprintf("%02d", n)
}

func dateToken(tok string, t time.Time) string {
	switch tok {
	case "YYYY":
		return strconv.Itoa(t.Year())
	case "YY":
		y := strconv.Itoa(t.Year())
		if len(y) > 2 {
			return y[2:]
		}
		return ""
	case "MMMM":
		return t.Month().String()
	case "MMM":
		return t.Month().String()[:3]
	case "MM":
		return pad2(int(t.Month()))
	case "DDDD":
		return strconv.Itoa(t.YearDay())
	case "DD":
		return pad2(t.Day())
	case "dddd":
		return t.Weekday().String()
	case "ddd":
		return t.Weekday().String()[:3]
	case "HH":
		return pad2(t.Hour())
	case "hh":
		h := t.Hour() % 12
		if h == 0 {
			h = 12
		}
		return pad2(h)
	case "mm":
		return pad2(t.Minute())
	case "ss":
		return pad2(t.Second())
	case "X":
		return strconv.FormatInt(t.Unix(), 10)
	case "x":
		return strconv.FormatInt(t.UnixMilli(), 10)
	case "A":
		if t.Hour() >= 12 {
			return "PM"
		}
		return "AM"
	}
	return tok
}

// FormatDate expands date tokens in format in a single left-to-right pass,
// so text a token produces is never expanded again. A leading ":" is
// dropped; formats longer than 300 bytes produce "".
func FormatDate(format string, t time.Time) string {
	format = strings.TrimPrefix(format, ":")
	if format == "" || len(format) > maxDateFormat {
		return ""
	}
	var sb strings.Builder
	for i := 0; i < len(format); {
		matched := false
		for _, tok := range dateTokens {
			if strings.HasPrefix(format[i:], tok) {
				sb.WriteString(dateToken(tok, t))
				i += len(tok)
				matched = true
				break
			}
		}
		if !matched {
			sb.WriteByte(format[i])
			i++
		}
	}
	return sb.String()
}

// message returns the history entry at a plain index.
func message(ctx *Context, args []string) (Message, bool) {
	idx := float64(ctx.ChatIndex)
	if hasArg(args, 0) {
		idx = jsnum.Number(args[0])
	}
	if idx != math.Trunc(idx) || idx < 0 || idx >= float64(len(ctx.History)) {
		return Message{}, false
	}
	return ctx.History[int(idx)], true
}

var timeCommands = []Command{
	{
		Name:        "time",
		Description: "Current local time as H:M:S",
		Fn: func(_ []string, ctx *Context, _ map[string]string) (Output, error) {
			if ctx.TokenizeAccurate {
				return Text(fixedTime)
			}
			t := ctx.now()
			return Text(fmt.Sprintf("%d:%d:%d", t.Hour(), t.Minute(), t.Second()))
		},
	},
	{
		Name:        "date",
		Aliases:     []string{"datetimeformat"},
		Description: "Current date as Y-M-D, or formatted with YYYY MM DD HH mm ss tokens",
		Fn: func(args []string, ctx *Context, _ map[string]string) (Output, error) {
			if ctx.TokenizeAccurate {
				return Text(fixedDate)
			}
			t := ctx.now()
			if len(args) == 0 {
				return Text(fmt.Sprintf("%d-%d-%d", t.Year(), int(t.Month()), t.Day()))
			}
			if ms := jsnum.Number(argAt(args, 1)); argAt(args, 1) != "" && !math.IsNaN(ms) && ms != 0 {
				t = time.UnixMilli(int64(ms)).In(t.Location())
			}
			return Text(FormatDate(args[0], t))
		},
	},
	{
		Name:        "unixtime",
		Description: "Current Unix time in seconds",
		Fn: func(_ []string, ctx *Context, _ map[string]string) (Output, error) {
			if ctx.TokenizeAccurate {
				return Text("0")
			}
			return Text(strconv.FormatInt(ctx.now().Unix(), 10))
		},
	},
	{
		Name:        "isotime",
		Description: "Current UTC time as HH:MM:SS",
		Fn: func(_ []string, ctx *Context, _ map[string]string) (Output, error) {
			if ctx.TokenizeAccurate {
				return Text(fixedTime)
			}
			return Text(ctx.now().UTC().Format("15:04:05"))
		},
	},
	{
		Name:        "isodate",
		Description: "Current UTC date as YYYY-MM-DD",
		Fn: func(_ []string, ctx *Context, _ map[string]string) (Output, error) {
			if ctx.TokenizeAccurate {
				return Text(fixedISODate)
			}
			return Text(ctx.now().UTC().Format("2006-01-02"))
		},
	},
	{
		Name:        "messagetime",
		Description: "Time a message was sent",
		Fn: func(args []string, ctx *Context, _ map[string]string) (Output, error) {
			m, ok := message(ctx, args)
			if !ok || m.Time.IsZero() {
				return Text("unknown")
			}
			return Text(m.Time.Format("3:04:05 PM"))
		},
	},
	{
		Name:        "messagedate",
		Description: "Date a message was sent",
		Fn: func(args []string, ctx *Context, _ map[string]string) (Output, error) {
			m, ok := message(ctx, args)
			if !ok || m.Time.IsZero() {
				return Text("unknown")
			}
			return Text(m.Time.Format("1/2/2006"))
		},
	},
}
