package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"nickandperla.net/cbs/pkg/cbs"
)

// Alt+key mappings: Alt+key sends ESC (0x1b) followed by the key byte
var altKeyMappings = map[byte]string{
	'{': "{{",        // Alt+{ (Alt+Shift+[) - Open tag
	'}': "}}",        // Alt+} (Alt+Shift+]) - Close tag
	';': "::",        // Alt+; - Argument separator
	'#': "{{#",       // Alt+# (Alt+Shift+3) - Open block
	'/': "{{/",       // Alt+/ - Close block
	'e': "{{:else}}", // Alt+e - Else branch
}

func newReplCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Evaluate templates interactively",
		Long: `Start an interactive session. Variables persist from one line to the
next, and are saved after every line when a session is configured.

End a line with \ to continue it. :vars prints the variables, :reset
reloads the context and :quit exits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.runtime()
			if err != nil {
				return err
			}
			defer rt.Close()
			ctx, err := a.context(rt)
			if err != nil {
				return err
			}
			r := &repl{a: a, rt: rt, ctx: ctx, out: cmd.OutOrStdout(), eol: "\n"}

			r.printBanner()
			in := cmd.InOrStdin()
			if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
				return r.runRaw(f)
			}
			return r.runBasic(in)
		},
	}
}

type repl struct {
	a   *app
	rt  *cbs.Runtime
	ctx *cbs.Context
	out io.Writer
	eol string // "\r\n" in raw mode
}

func (r *repl) printf(format string, args ...any) {
	fmt.Fprint(r.out, strings.ReplaceAll(fmt.Sprintf(format, args...), "\n", r.eol))
}

func (r *repl) printBanner() {
	r.printf("cbs REPL (Ctrl+D to exit)\n\n")
	r.printf("Keys (use Alt+key):\n")
	r.printf("  Alt+{ → {{        Alt+} → }}\n")
	r.printf("  Alt+# → {{#       Alt+/ → {{/\n")
	r.printf("  Alt+; → ::        Alt+e → {{:else}}\n\n")
}

// handle evaluates one complete input. It returns false when the REPL should stop.
func (r *repl) handle(input string) bool {
	switch strings.TrimSpace(input) {
	case "":
		return true
	case ":quit", ":q":
		return false
	case ":reset":
		ctx, err := r.a.context(r.rt)
		if err != nil {
			r.printf("Error: %v\n", err)
			return true
		}
		r.ctx = ctx
		return true
	case ":vars":
		r.printVars("chat", r.ctx.ChatVars)
		r.printVars("global", r.ctx.GlobalVars)
		return true
	}

	res := r.rt.Evaluate(input, r.ctx)
	r.a.logger.Debug("evaluated",
		zap.Int("bytes", len(input)),
		zap.Int("steps", len(res.Trace)),
		zap.Int("errors", len(res.Errors)),
	)
	if res.Output != "" {
		r.printf("%s\n", res.Output)
	}
	for _, e := range res.Errors {
		r.printf("%s\n", e.Error())
	}
	if err := r.a.save(r.rt, res); err != nil {
		r.printf("Error: %v\n", err)
	}
	return true
}

func (r *repl) printVars(scope string, vars map[string]string) {
	names := make([]string, 0, len(vars))
	for n := range vars {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		r.printf("%s %s = %q\n", scope, n, vars[n])
	}
}

// runBasic handles non-TTY input (piped input)
func (r *repl) runBasic(in io.Reader) error {
	reader := bufio.NewReader(in)
	var multiline strings.Builder
	inMultiline := false

	for {
		if inMultiline {
			r.printf("... ")
		} else {
			r.printf(">>> ")
		}

		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			r.printf("\n")
			return nil
		}
		line = strings.TrimRight(line, "\r\n")

		if strings.HasSuffix(line, "\\") {
			multiline.WriteString(strings.TrimSuffix(line, "\\"))
			multiline.WriteString("\n")
			inMultiline = true
			continue
		}

		input := line
		if inMultiline {
			multiline.WriteString(line)
			input = multiline.String()
			multiline.Reset()
			inMultiline = false
		}
		if !r.handle(input) {
			return nil
		}
	}
}

// runRaw handles TTY input with Alt+key support
func (r *repl) runRaw(f *os.File) error {
	fd := int(f.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		r.a.logger.Warn("failed to set raw mode", zap.Error(err))
		return r.runBasic(f)
	}
	defer term.Restore(fd, oldState)
	r.eol = "\r\n"

	var multiline strings.Builder
	inMultiline := false

	for {
		if inMultiline {
			r.printf("... ")
		} else {
			r.printf(">>> ")
		}

		line, eof := r.readLineRaw(f)
		if eof {
			r.printf("\n")
			return nil
		}

		if strings.HasSuffix(line, "\\") {
			multiline.WriteString(strings.TrimSuffix(line, "\\"))
			multiline.WriteString("\n")
			inMultiline = true
			continue
		}

		input := line
		if inMultiline {
			multiline.WriteString(line)
			input = multiline.String()
			multiline.Reset()
			inMultiline = false
		}
		if !r.handle(input) {
			return nil
		}
	}
}

// readLineRaw reads a line in raw mode with Alt+key support.
// Returns the line and whether EOF was encountered.
func (r *repl) readLineRaw(f *os.File) (string, bool) {
	var line []rune
	cursor := 0 // Position in line (for arrow key navigation)
	buf := make([]byte, 1)

	redrawFromCursor := func() {
		fmt.Fprint(r.out, "\x1b[K")
		fmt.Fprint(r.out, string(line[cursor:]))
		if cursor < len(line) {
			fmt.Fprintf(r.out, "\x1b[%dD", len(line)-cursor)
		}
	}
	insert := func(runes []rune) {
		newLine := make([]rune, 0, len(line)+len(runes))
		newLine = append(newLine, line[:cursor]...)
		newLine = append(newLine, runes...)
		newLine = append(newLine, line[cursor:]...)
		line = newLine
		cursor += len(runes)
		fmt.Fprint(r.out, string(runes))
		if cursor < len(line) {
			redrawFromCursor()
		}
	}
	readByte := func() (byte, bool) {
		n, err := f.Read(buf)
		if err != nil || n == 0 {
			return 0, false
		}
		return buf[0], true
	}

	for {
		b, ok := readByte()
		if !ok {
			return string(line), true
		}

		switch b {
		case 0x04: // Ctrl+D
			if len(line) == 0 {
				return "", true
			}
			if cursor < len(line) {
				line = append(line[:cursor], line[cursor+1:]...)
				redrawFromCursor()
			}

		case 0x03: // Ctrl+C
			fmt.Fprint(r.out, "^C\r\n")
			return "", false

		case 0x0d, 0x0a: // Enter (CR or LF)
			fmt.Fprint(r.out, "\r\n")
			return string(line), false

		case 0x7f, 0x08: // Backspace (DEL or BS)
			if cursor > 0 {
				cursor--
				line = append(line[:cursor], line[cursor+1:]...)
				fmt.Fprint(r.out, "\b")
				redrawFromCursor()
			}

		case 0x1b: // ESC - Alt+key or arrow key sequence
			next, ok := readByte()
			if !ok {
				continue
			}
			if next != '[' {
				if text, ok := altKeyMappings[next]; ok {
					insert([]rune(text))
				}
				continue
			}
			arrow, ok := readByte()
			if !ok {
				continue
			}
			switch arrow {
			case 'C': // Right arrow
				if cursor < len(line) {
					cursor++
					fmt.Fprint(r.out, "\x1b[C")
				}
			case 'D': // Left arrow
				if cursor > 0 {
					cursor--
					fmt.Fprint(r.out, "\x1b[D")
				}
			case '3': // Delete key: ESC [ 3 ~
				if tilde, ok := readByte(); ok && tilde == '~' && cursor < len(line) {
					line = append(line[:cursor], line[cursor+1:]...)
					redrawFromCursor()
				}
			}

		case 0x01: // Ctrl+A - beginning of line
			if cursor > 0 {
				fmt.Fprintf(r.out, "\x1b[%dD", cursor)
				cursor = 0
			}

		case 0x05: // Ctrl+E - end of line
			if cursor < len(line) {
				fmt.Fprintf(r.out, "\x1b[%dC", len(line)-cursor)
				cursor = len(line)
			}

		case 0x0b: // Ctrl+K - kill to end of line
			if cursor < len(line) {
				line = line[:cursor]
				fmt.Fprint(r.out, "\x1b[K")
			}

		case 0x15: // Ctrl+U - kill to beginning of line
			if cursor > 0 {
				fmt.Fprintf(r.out, "\x1b[%dD", cursor)
				line = line[cursor:]
				cursor = 0
				redrawFromCursor()
			}

		default:
			switch {
			case b >= 0x20 && b < 0x7f:
				insert([]rune{rune(b)})
			case b >= 0x80:
				// UTF-8 multi-byte sequence - read remaining bytes
				utf := []byte{b}
				more := 0
				switch {
				case b&0xE0 == 0xC0:
					more = 1
				case b&0xF0 == 0xE0:
					more = 2
				case b&0xF8 == 0xF0:
					more = 3
				}
				for range more {
					c, ok := readByte()
					if !ok {
						break
					}
					utf = append(utf, c)
				}
				insert([]rune(string(utf))[:1])
			}
		}
	}
}
