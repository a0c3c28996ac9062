package eval

import (
	"fmt"

	"nickandperla.net/cbs/internal/token"
)

// display returns a callback that renders markup only while displaying.
// hidden is what it emits otherwise.
func display(render func(args []string) string, hidden func(args []string) string) Callback {
	return func(args []string, ctx *Context, _ map[string]string) (Output, error) {
		if !ctx.Displaying {
			return Text(hidden(args))
		}
		return Text(render(args))
	}
}

func nothing([]string) string { return "" }

func first(args []string) string { return argAt(args, 0) }

func runes(rs ...rune) Callback {
	return constant(string(rs))
}

var displayCommands = []Command{
	{Name: "blank", Aliases: []string{"none"}, Description: "Empty string", Fn: constant("")},
	{Name: "br", Aliases: []string{"newline"}, Description: "Newline", Fn: constant("\n")},
	{Name: "__", Description: "Blank line", Fn: constant("\n\n")},
	{Name: "//", Description: "Comment", Fn: constant("")},
	{
		Name:        "comment",
		Description: "Comment shown only while displaying",
		Fn: display(func(args []string) string {
			return fmt.Sprintf(`<div class="risu-comment">%s</div>`, argAt(args, 0))
		}, nothing),
	},
	{
		Name:        "tex",
		Aliases:     []string{"latex"},
		Description: "LaTeX markup",
		Fn: display(func(args []string) string {
			return fmt.Sprintf(`<span class="risu-tex">%s</span>`, argAt(args, 0))
		}, nothing),
	},
	{
		Name:        "ruby",
		Description: "Ruby annotation",
		Fn: display(func(args []string) string {
			return fmt.Sprintf(`<ruby>%s<rp>(</rp><rt>%s</rt><rp>)</rp></ruby>`, argAt(args, 0), argAt(args, 1))
		}, first),
	},
	{
		Name:        "codeblock",
		Description: "Code block",
		Fn: display(func(args []string) string {
			return fmt.Sprintf(`<pre><code class="language-%s">%s</code></pre>`, argAt(args, 1), argAt(args, 0))
		}, first),
	},
	{
		Name:        "button",
		Description: "Button",
		Fn: display(func(args []string) string {
			return fmt.Sprintf(`<button class="risu-button" data-action="%s">%s</button>`, argAt(args, 1), orDefault(args, 0, "Button"))
		}, nothing),
	},

	// Assets are resolved by the host; the engine emits nothing for them.
	{Name: "asset", Description: "Asset", Fn: constant("")},
	{Name: "emotion", Description: "Emotion image", Fn: constant("")},
	{Name: "audio", Description: "Audio", Fn: constant("")},
	{Name: "bg", Aliases: []string{"background"}, Description: "Background", Fn: constant("")},
	{Name: "bgm", Description: "Background music", Fn: constant("")},
	{Name: "video", Description: "Video", Fn: constant("")},
	{Name: "image", Aliases: []string{"img"}, Description: "Image", Fn: constant("")},
	{Name: "inlay", Description: "Inlay", Fn: constant("")},
	{Name: "erase", Description: "Erase", Fn: constant("")},
	{Name: "hiddenkey", Description: "Hidden key", Fn: constant("")},
	{Name: "hidden", Description: "Hidden text", Fn: constant("")},
	{Name: "pass", Description: "No output", Fn: constant("")},

	{Name: "decbo", Aliases: []string{"displayescapedcurlybracketopen"}, Description: "Escaped {", Fn: runes(token.RuneCurlyOpen)},
	{Name: "decbc", Aliases: []string{"displayescapedcurlybracketclose"}, Description: "Escaped }", Fn: runes(token.RuneCurlyClose)},
	{Name: "bo", Aliases: []string{"ddecbo"}, Description: "Escaped {{", Fn: runes(token.RuneCurlyOpen, token.RuneCurlyOpen)},
	{Name: "bc", Aliases: []string{"ddecbc"}, Description: "Escaped }}", Fn: runes(token.RuneCurlyClose, token.RuneCurlyClose)},
	{Name: "displayescapedbracketopen", Aliases: []string{"debo"}, Description: "Escaped [", Fn: runes(token.RuneSquareOpen)},
	{Name: "displayescapedbracketclose", Aliases: []string{"debc"}, Description: "Escaped ]", Fn: runes(token.RuneSquareClose)},
	{Name: "displayescapedanglebracketopen", Aliases: []string{"deabo"}, Description: "Escaped <", Fn: runes(token.RuneAngleOpen)},
	{Name: "displayescapedanglebracketclose", Aliases: []string{"deabc"}, Description: "Escaped >", Fn: runes(token.RuneAngleClose)},
	{Name: "displayescapedcolon", Aliases: []string{"dec"}, Description: "Escaped :", Fn: runes(token.RuneColon)},
	{Name: "displayescapedsemicolon", Aliases: []string{"des"}, Description: "Escaped ;", Fn: runes(token.RuneSemicolon)},
}
