package eval

import (
	"math/rand/v2"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC)

// fixedContext has a pinned clock, a seeded random source and a short
// chat history.
func fixedContext() *Context {
	ctx := newTestContext()
	ctx.Char.Nickname = "Botty"
	ctx.Char.Emotions = []string{"happy", "sad"}
	ctx.Now = func() time.Time { return testNow }
	ctx.Rand = rand.New(rand.NewPCG(1, 2))
	ctx.EnabledModules = []string{"m1"}
	ctx.History = []Message{
		{Role: RoleUser, Content: "u1", Time: time.Date(2024, 3, 5, 9, 5, 3, 0, time.UTC)},
		{Role: RoleChar, Content: "c1"},
		{Role: RoleUser, Content: "u2"},
		{Role: RoleChar, Content: "c2"},
	}
	return ctx
}

type builtinCase struct {
	src  string
	want string
}

func runBuiltinCases(t *testing.T, cases []builtinCase) {
	t.Helper()
	for _, tt := range cases {
		t.Run(tt.src, func(t *testing.T) {
			res := evaluate(t, tt.src, fixedContext())
			assert.Equal(t, tt.want, res.Output)
			assert.Empty(t, res.Errors)
		})
	}
}

func TestMathBuiltins(t *testing.T) {
	runBuiltinCases(t, []builtinCase{
		{"{{round::3.7}}", "4"},
		{"{{round::-2.5}}", "-2"},
		{"{{floor::3.9}}", "3"},
		{"{{ceil::3.1}}", "4"},
		{"{{abs::-5}}", "5"},
		{"{{abs::x}}", "NaN"},
		{"{{min::5::2::8}}", "2"},
		{"{{max::5::2::8}}", "8"},
		{"{{min}}", "Infinity"},
		{"{{sum::1::2::3}}", "6"},
		{`{{sum::[1,2,"3"]}}`, "6"},
		{"{{average::2::4::6}}", "4"},
		{"{{remaind::7::3}}", "1"},
		{"{{pow::2::10}}", "1024"},
		{"{{fixnum::3.14159::2}}", "3.14"},
		{"{{fixnum::2.5}}", "3"},
		{"{{fixnumber::-1.25::1}}", "-1.3"},
		{"{{fixnum::-0}}", "0"},
		{"{{tonumber::abc}}", "0"},
		{"{{tonumber:: 42 }}", "42"},
		{"{{tohex::255}}", "ff"},
		{"{{tohex::255.9}}", "ff"},
		{"{{fromhex::ff}}", "255"},
		{"{{fromhex::0x1A}}", "26"},
		{"{{fromhex::zz}}", "NaN"},
		{"{{hash::hello}}", "99162322"},
		{"{{calc::10/0}}", "NaN"},
	})
}

func TestLogicBuiltins(t *testing.T) {
	runBuiltinCases(t, []builtinCase{
		{"{{equal::a::a}}", "1"},
		{"{{equal::a::b}}", "0"},
		{"{{notequal::a::b}}", "1"},
		{"{{greater::10::5}}", "1"},
		{"{{greater::abc::1}}", "0"},
		{"{{less::1::2}}", "1"},
		{"{{greaterequal::2::2}}", "1"},
		{"{{lessequal::3::2}}", "0"},
		{"{{and::1::0}}", "0"},
		{"{{or::1::0}}", "1"},
		{"{{not::1}}", "0"},
		{"{{not::x}}", "1"},
		{"{{?::1::yes::no}}", "yes"},
		{"{{?::0::yes::no}}", "no"},
		{"{{iserror::NaN}}", "1"},
		{"{{iserror::3}}", "0"},
	})
}

func TestStringBuiltins(t *testing.T) {
	runBuiltinCases(t, []builtinCase{
		{"{{length::hello}}", "5"},
		{"{{length::\U0001F600}}", "2"},
		{"{{upper::hello}}", "HELLO"},
		{"{{lower::HeLLo}}", "hello"},
		{"{{capitalize::hello world}}", "Hello world"},
		{"{{trim::  x  }}", "x"},
		{"{{replace::hello world::o::0}}", "hell0 w0rld"},
		{"{{startswith::hello::he}}", "1"},
		{"{{endswith::hello::lo}}", "1"},
		{"{{contains::hello::z}}", "0"},
		{"{{split::a,b,c::,}}", `["a","b","c"]`},
		{`{{join::["a","b"]::-}}`, "a-b"},
		{`{{join::[1,null,"x"]::,}}`, "1,,x"},
		{"{{reverse::abc}}", "cba"},
		{"{{reverse::[1,2,3]}}", "[3,2,1]"},
		{"{{unicodeencode::Hi}}", `\u0048\u0069`},
		{`{{unicodedecode::\u0048\u0069}}`, "Hi"},
		{`{{u::\ud83d\ude00}}`, "\U0001F600"},
		{"{{xordecrypt::{{xor::secret::key}}::key}}", "secret"},
		{"{{xor::text::}}", "text"},
		{"{{xordecrypt::!!!::key}}", ""},
		{"{{cbr::1}}", "\n"},
		{"{{bkspc::2}}", "\b\b"},
	})
}

func TestStringBuiltinErrors(t *testing.T) {
	for _, src := range []string{"{{xor::日本::k}}", "{{bkspc::-1}}", "{{bkspc::99999999}}"} {
		res := evaluate(t, src, nil)
		assert.Equal(t, "", res.Output, src)
		assert.Len(t, res.Failures(), 1, src)
	}
}

func TestArrayBuiltins(t *testing.T) {
	runBuiltinCases(t, []builtinCase{
		{`{{arraylength::["a","b","c"]}}`, "3"},
		{"{{arraylength::nope}}", "0"},
		{`{{arrayelement::["a","b","c"]::1}}`, "b"},
		{`{{arrayelement::["a","b","c"]::-1}}`, "c"},
		{`{{arrayelement::["a","b","c"]::5}}`, "null"},
		{`{{arrayelement::[{"k":1}]::0}}`, `{"k":1}`},
		{`{{arraypush::["a","b"]::c}}`, `["a","b","c"]`},
		{`{{arraypop::["a","b"]}}`, `["a"]`},
		{`{{arrayshift::["a","b"]}}`, `["b"]`},
		{"{{arraysplice::[1,2,3,4]::1::2::x}}", `[1,"x",4]`},
		{"{{makearray::a::b::c}}", `["a","b","c"]`},
		{"{{a::x}}", `["x"]`},
		{"{{makedict::b=2::a=1::b=3}}", `{"b":"3","a":"1"}`},
		{`{{dictelement::{"a": {"b": 1} }::a}}`, `{"b":1}`},
		{`{{dictelement::{"a":"x"}::b}}`, "null"},
		{"{{dictelement::notjson::a}}", "null"},
		{`{{objectelement::["p","q"]::1}}`, "q"},
		{`{{spread::["a","b"]}}`, "a, b"},
		{`{{spread::["a","b"]::|}}`, "a|b"},
		{`{{filter::["1","0","true"]::$item}}`, `["1","true"]`},
		{`{{all::["1",true]}}`, "1"},
		{`{{any::["0","false"]}}`, "0"},
		{"{{range::0::5}}", "[0,1,2,3,4]"},
		{"{{range::0::1::0.25}}", "[0,0.25,0.5,0.75]"},
		{"{{range::0::5::0}}", "[]"},
	})
}

func TestRangeIsCapped(t *testing.T) {
	res := evaluate(t, "{{arraylength::{{range::0::100000}}}}", nil)
	assert.Equal(t, strconv.Itoa(MaxRange), res.Output)
}

func TestRandomBuiltins(t *testing.T) {
	ctx := fixedContext()
	for range 20 {
		assert.Contains(t, []string{"a", "b", "c"}, evaluate(t, "{{random::a::b::c}}", ctx).Output)
		assert.Contains(t, []string{"x", "y,z"}, evaluate(t, `{{random::x,y\,z}}`, ctx).Output)
		assert.Contains(t, []string{"p", "q"}, evaluate(t, `{{random::["p","q"]}}`, ctx).Output)

		n, err := strconv.Atoi(evaluate(t, "{{randint::1::6}}", ctx).Output)
		require.NoError(t, err)
		assert.True(t, n >= 1 && n <= 6, n)

		n, err = strconv.Atoi(evaluate(t, "{{dice::2d6+1}}", ctx).Output)
		require.NoError(t, err)
		assert.True(t, n >= 3 && n <= 13, n)

		n, err = strconv.Atoi(evaluate(t, "{{roll::3d4}}", ctx).Output)
		require.NoError(t, err)
		assert.True(t, n >= 3 && n <= 12, n)
	}

	assert.Equal(t, "NaN", evaluate(t, "{{dice::bad}}", ctx).Output)
	assert.Equal(t, "NaN", evaluate(t, "{{roll::0}}", ctx).Output)
	assert.Equal(t, "1", evaluate(t, "{{roll}}", ctx).Output)
}

func TestPickIsDeterministic(t *testing.T) {
	a := evaluate(t, "{{pick::seed::a::b::c}}", nil).Output
	b := evaluate(t, "{{pick::seed::a::b::c}}", nil).Output
	assert.Equal(t, a, b)
	assert.Equal(t, "a", a)
}

func TestRollpIsSticky(t *testing.T) {
	out := evaluate(t, "{{rollp::hp::1d6}}{{rollp::hp::1d6}}", fixedContext()).Output
	require.Len(t, out, 2)
	assert.Equal(t, out[0], out[1])
}

func TestTimeBuiltins(t *testing.T) {
	runBuiltinCases(t, []builtinCase{
		{"{{time}}", "14:7:9"},
		{"{{date}}", "2024-3-5"},
		{"{{date::YYYY-MM-DD HH:mm:ss}}", "2024-03-05 14:07:09"},
		{"{{date:::MMMM dddd A hh}}", "March Tuesday PM 02"},
		{"{{date::YY MMM ddd}}", "24 Mar Tue"},
		{"{{date::DDDD}}", "65"},
		{"{{date::X}}", "1709647629"},
		{"{{date::YYYY::0}}", "2024"},
		{"{{date::YYYY::946684800000}}", "2000"},
		{"{{unixtime}}", "1709647629"},
		{"{{isotime}}", "14:07:09"},
		{"{{isodate}}", "2024-03-05"},
		{"{{messagetime::0}}", "9:05:03 AM"},
		{"{{messagedate::0}}", "3/5/2024"},
		{"{{messagetime::1}}", "unknown"},
		{"{{messagedate::9}}", "unknown"},
	})
}

func TestTokenizeAccurateFreezesClock(t *testing.T) {
	ctx := fixedContext()
	ctx.TokenizeAccurate = true
	res := evaluate(t, "{{time}}|{{date}}|{{unixtime}}|{{isotime}}|{{isodate}}", ctx)
	assert.Equal(t, "00:00:00|2000-1-1|0|00:00:00|2000-01-01", res.Output)
}

func TestFormatDate(t *testing.T) {
	aug := time.Date(2023, 8, 1, 0, 30, 0, 0, time.UTC)
	assert.Equal(t, "August AM", FormatDate("MMMM A", aug))
	assert.Equal(t, "12:30", FormatDate("hh:mm", aug))
	assert.Equal(t, "2023", FormatDate(":YYYY", aug))
	assert.Equal(t, "", FormatDate("", aug))
	assert.Equal(t, "", FormatDate(strings.Repeat("Y", maxDateFormat+1), aug))
	assert.Equal(t, "on the", FormatDate("on the", aug))
	assert.Equal(t, "literal te1690849800000t", FormatDate("literal text", aug))
	assert.Equal(t, "1690849800000|1690849800", FormatDate("x|X", aug))
}

func TestHistoryBuiltins(t *testing.T) {
	runBuiltinCases(t, []builtinCase{
		{"{{previouscharchat}}", "c2"},
		{"{{previoususerchat}}", "u2"},
		{"{{lastmessage}}", "c2"},
		{"{{lastmessageid}}", "3"},
		{"{{history::0}}", "u1"},
		{"{{history::-1}}", "c2"},
		{"{{history::7}}", ""},
		{"{{previouschatlog::2}}", "u2\nc2"},
		{"{{userhistory::1}}", "u2"},
		{"{{charhistory::-2}}", "c1"},
		{"{{firstmsgindex}}", "0"},
		{"{{isfirstmsg}}", "0"},
	})
}

func TestContextBuiltins(t *testing.T) {
	runBuiltinCases(t, []builtinCase{
		{"{{char}}", "Botty"},
		{"{{user}}", "TestUser"},
		{"{{model}}", "unknown"},
		{"{{role}}", "unknown"},
		{"{{trigger_id}}", "null"},
		{"{{maxcontext}}", "4096"},
		{"{{chatindex}}", "-1"},
		{"{{emotionlist}}", `["happy","sad"]`},
		{"{{assetlist}}", "[]"},
		{"{{moduleenabled::m1}}", "1"},
		{"{{moduleenabled::m2}}", "0"},
		{"{{jbtoggled}}", "0"},
		{"{{risu}}", "RisuStudio"},
	})
}

func TestDisplayBuiltins(t *testing.T) {
	runBuiltinCases(t, []builtinCase{
		{"{{comment::x}}", ""},
		{"{{ruby::a::b}}", "a"},
		{"{{button::Go::go}}", ""},
		{"a{{br}}b", "a\nb"},
		{"{{__}}", "\n\n"},
		{"{{blank}}", ""},
		{"{{image::cat.png}}", ""},
		{"{{bo}}{{bc}}", "\uE9B8\uE9B8\uE9B9\uE9B9"},
		{"{{dec}}", "\uE9BE"},
	})

	ctx := newTestContext()
	ctx.Displaying = true
	assert.Equal(t, `<div class="risu-comment">x</div>`, evaluate(t, "{{comment::x}}", ctx).Output)
	assert.Equal(t, `<button class="risu-button" data-action="go">Go</button>`, evaluate(t, "{{button::Go::go}}", ctx).Output)
}

func TestVariableBuiltins(t *testing.T) {
	ctx := newTestContext()
	ctx.ChatVars["hp"] = "50"
	ctx.GlobalVars["g"] = "global"

	assert.Equal(t, "dflt", evaluate(t, "{{getvar::missing::dflt}}", ctx).Output)
	assert.Equal(t, "50", evaluate(t, "{{getvar::hp::dflt}}", ctx).Output)
	assert.Equal(t, "global", evaluate(t, "{{getglobalvar::g}}", ctx).Output)

	evaluate(t, "{{addvar::hp::25}}", ctx)
	assert.Equal(t, "75", ctx.ChatVars["hp"])

	evaluate(t, "{{setdefaultvar::hp::1}}{{setdefaultvar::mp::9}}", ctx)
	assert.Equal(t, "75", ctx.ChatVars["hp"])
	assert.Equal(t, "9", ctx.ChatVars["mp"])
}
