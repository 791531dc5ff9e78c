package code

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hupe1980/rlmesh/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoCaller answers every prompt with "echo:<prompt>".
type echoCaller struct {
	calls atomic.Int32
}

func (c *echoCaller) Query(ctx context.Context, prompt string) (any, error) {
	c.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return "echo:" + prompt, nil
}

func (c *echoCaller) QueryAll(ctx context.Context, prompts []string) ([]any, error) {
	out := make([]any, len(prompts))
	for i, p := range prompts {
		v, err := c.Query(ctx, p)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func newEnv(t *testing.T, input string, caller Caller) Environment {
	t.Helper()
	env, err := NewInterpreter().NewEnvironment(context.Background(), input, caller)
	require.NoError(t, err)
	t.Cleanup(func() { _ = env.Close() })
	return env
}

func TestInterpreter_StatePersistsAcrossSnippets(t *testing.T) {
	env := newEnv(t, "", nil)
	ctx := context.Background()

	res, err := env.Execute(ctx, "x := 41")
	require.NoError(t, err)
	assert.False(t, res.Faulted())

	res, err = env.Execute(ctx, "fmt.Println(x + 1)")
	require.NoError(t, err)
	assert.Equal(t, "42\n", res.Output)
	assert.Nil(t, res.Final)
}

func TestInterpreter_ContextVariable(t *testing.T) {
	env := newEnv(t, "hello world", nil)

	res, err := env.Execute(context.Background(), `fmt.Println(strings.ToUpper(context), rlm.Context() == context)`)
	require.NoError(t, err)
	assert.Equal(t, "HELLO WORLD true\n", res.Output)
}

func TestInterpreter_Final(t *testing.T) {
	env := newEnv(t, "a b c", nil)

	res, err := env.Execute(context.Background(), `rlm.Final(len(strings.Fields(context)))
fmt.Println("after final")`)
	require.NoError(t, err)
	require.NotNil(t, res.Final)
	assert.Equal(t, 3, res.Final.Value)
	assert.Equal(t, "after final\n", res.Output, "the snippet runs to completion")

	res, err = env.Execute(context.Background(), `fmt.Println("next")`)
	require.NoError(t, err)
	assert.Nil(t, res.Final, "terminal marker is per snippet")
}

func TestInterpreter_FaultIsCapturedNotReturned(t *testing.T) {
	env := newEnv(t, "", nil)

	res, err := env.Execute(context.Background(), `fmt.Println("before")
undefinedFunction()`)
	require.NoError(t, err)
	assert.True(t, res.Faulted())
	assert.Contains(t, res.Output, "Error: ")
	assert.ErrorIs(t, res.Err(), ErrExecution)
}

func TestInterpreter_PanicIsCaptured(t *testing.T) {
	env := newEnv(t, "", nil)

	res, err := env.Execute(context.Background(), `panic("boom")`)
	require.NoError(t, err)
	assert.Equal(t, "panic: boom", res.Fault)
	assert.Contains(t, res.Output, "Error: panic: boom")

	// The environment survives a panic.
	res, err = env.Execute(context.Background(), `fmt.Println("alive")`)
	require.NoError(t, err)
	assert.Equal(t, "alive\n", res.Output)
}

func TestInterpreter_ImportsInSnippet(t *testing.T) {
	env := newEnv(t, "", nil)
	ctx := context.Background()

	res, err := env.Execute(ctx, "import \"math\"\nfmt.Println(math.Sqrt(16))")
	require.NoError(t, err)
	assert.Equal(t, "4\n", res.Output)

	res, err = env.Execute(ctx, "import (\n\t\"fmt\"\n\t\"math\"\n)\nfmt.Println(math.Abs(-2))")
	require.NoError(t, err)
	assert.False(t, res.Faulted(), res.Output)
	assert.Equal(t, "2\n", res.Output)
}

func TestInterpreter_LeafDeniesRecursion(t *testing.T) {
	env := newEnv(t, "", nil)

	res, err := env.Execute(context.Background(), `_, err := rlm.Query("sub task")
fmt.Println(err)`)
	require.NoError(t, err)
	assert.Contains(t, res.Output, core.ErrRecursionDepth.Error())
	assert.False(t, res.Faulted(), "denial is an error value, not a fault")
}

func TestInterpreter_LeafDenialIsPrintedWhenErrorIsDiscarded(t *testing.T) {
	env := newEnv(t, "", nil)

	res, err := env.Execute(context.Background(), `v, _ := rlm.Query("sub")
fmt.Println(v)
all, _ := rlm.QueryAll([]string{"a"})
fmt.Println(len(all))`)
	require.NoError(t, err)
	msg := "Error: " + core.ErrRecursionDepth.Error() + "\n"
	assert.Equal(t, msg+"<nil>\n"+msg+"0\n", res.Output)
	assert.False(t, res.Faulted())
}

// refusingCaller denies every call the way a leaf capability does.
type refusingCaller struct{}

func (refusingCaller) Query(context.Context, string) (any, error) {
	return nil, core.ErrRecursionDepth
}

func (refusingCaller) QueryAll(context.Context, []string) ([]any, error) {
	return nil, core.ErrRecursionDepth
}

func TestInterpreter_RefusingCallerIsPrinted(t *testing.T) {
	env := newEnv(t, "", refusingCaller{})

	res, err := env.Execute(context.Background(), `rlm.Query("sub")`)
	require.NoError(t, err)
	assert.Contains(t, res.Output, "Error: "+core.ErrRecursionDepth.Error())
	require.Len(t, res.Calls, 1)
	assert.Equal(t, core.ErrRecursionDepth.Error(), res.Calls[0].Err)
}

func TestInterpreter_QueryAndQueryAll(t *testing.T) {
	caller := &echoCaller{}
	env := newEnv(t, "", caller)

	res, err := env.Execute(context.Background(), `v, err := rlm.Query("one")
fmt.Println(v, err)
all, err := rlm.QueryAll([]string{"a", "b", "c"})
fmt.Println(all, err)`)
	require.NoError(t, err)
	assert.Equal(t, "echo:one <nil>\n[echo:a echo:b echo:c] <nil>\n", res.Output)
	assert.Equal(t, int32(4), caller.calls.Load())
	require.Len(t, res.Calls, 4)
	assert.Equal(t, "one", res.Calls[0].Prompt)
	assert.Equal(t, "c", res.Calls[3].Prompt)
	assert.Equal(t, "echo:c", res.Calls[3].Result)
}

func TestInterpreter_GoroutinesInSnippet(t *testing.T) {
	env := newEnv(t, "", &echoCaller{})

	res, err := env.Execute(context.Background(), `var wg sync.WaitGroup
var mu sync.Mutex
results := make([]string, 3)
for i := 0; i < 3; i++ {
	wg.Add(1)
	go func(i int) {
		defer wg.Done()
		v, _ := rlm.Query(strconv.Itoa(i))
		mu.Lock()
		results[i] = v.(string)
		mu.Unlock()
	}(i)
}
wg.Wait()
fmt.Println(strings.Join(results, ","))`)
	require.NoError(t, err)
	assert.Equal(t, "echo:0,echo:1,echo:2\n", res.Output)
}

func TestInterpreter_SnippetStartingWithDeclarations(t *testing.T) {
	tests := []struct {
		name    string
		snippet string
		want    string
	}{
		{
			name:    "var then statements",
			snippet: "var total int\ntotal = 3\nfmt.Println(total)",
			want:    "3\n",
		},
		{
			name:    "func then call",
			snippet: "func double(n int) int {\n\treturn n * 2\n}\nfmt.Println(double(2))",
			want:    "4\n",
		},
		{
			name: "type with method",
			snippet: `type counter struct{ n int }

func (c *counter) inc() { c.n++ }

c := &counter{}
c.inc()
fmt.Println(c.n)`,
			want: "1\n",
		},
		{
			name:    "declaration after statements",
			snippet: "x := 5\nfunc triple(n int) int { return n * 3 }\nfmt.Println(triple(x))",
			want:    "15\n",
		},
		{
			name:    "leading func literal",
			snippet: "func() {\n\tfmt.Println(\"called\")\n}()",
			want:    "called\n",
		},
		{
			name: "loop and if headers",
			snippet: `var sum int
for i := 0; i < 4; i++ {
	if r := i % 2; r == 0 {
		sum += i
	}
}
fmt.Println(sum)`,
			want: "2\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newEnv(t, "", nil)

			res, err := env.Execute(context.Background(), tt.snippet)
			require.NoError(t, err)
			assert.False(t, res.Faulted(), res.Output)
			assert.Equal(t, tt.want, res.Output)
		})
	}
}

func TestInterpreter_DeclarationsPersist(t *testing.T) {
	env := newEnv(t, "", nil)
	ctx := context.Background()

	_, err := env.Execute(ctx, "func shout(s string) string { return strings.ToUpper(s) + \"!\" }")
	require.NoError(t, err)

	res, err := env.Execute(ctx, `fmt.Println(shout("hi"))`)
	require.NoError(t, err)
	assert.Equal(t, "HI!\n", res.Output)
}

func TestInterpreter_GoRecoversPanics(t *testing.T) {
	env := newEnv(t, "", nil)
	ctx := context.Background()

	res, err := env.Execute(ctx, `var wg sync.WaitGroup
wg.Add(1)
rlm.Go(func() {
	defer wg.Done()
	var m map[string]int
	m["a"] = 1
})
wg.Wait()
fmt.Println("after")`)
	require.NoError(t, err)
	require.True(t, res.Faulted())
	assert.True(t, strings.HasPrefix(res.Fault, "panic: "), res.Fault)
	assert.Contains(t, res.Fault, "assignment to entry in nil map")
	assert.Contains(t, res.Output, "after\n")

	res, err = env.Execute(ctx, `fmt.Println("alive")`)
	require.NoError(t, err)
	assert.False(t, res.Faulted(), "a recovered panic is local to its snippet")
	assert.Equal(t, "alive\n", res.Output)
}

func TestInterpreter_GoIsAwaited(t *testing.T) {
	env := newEnv(t, "", &echoCaller{})

	res, err := env.Execute(context.Background(), `var mu sync.Mutex
got := map[int]string{}
for i := 0; i < 3; i++ {
	i := i
	rlm.Go(func() {
		v, _ := rlm.Query(strconv.Itoa(i))
		mu.Lock()
		got[i] = v.(string)
		mu.Unlock()
	})
}`)
	require.NoError(t, err)
	assert.False(t, res.Faulted(), res.Output)
	assert.Len(t, res.Calls, 3, "the snippet ends after its goroutines")
}

func TestSplitChunks(t *testing.T) {
	chunks := splitChunks(`var a int
const b = 2
a = b
for i := 0; i < 2; i++ {
	a++
}
func f() {}
type T int
func (T) m() {}
func() {}()`)

	require.Len(t, chunks, 4)
	assert.Equal(t, chunk{decl: true, src: "var a int\nconst b = 2"}, chunks[0])
	assert.Equal(t, chunk{decl: false, src: "a = b\nfor i := 0; i < 2; i++ {\n\ta++\n}"}, chunks[1])
	assert.Equal(t, chunk{decl: true, src: "func f() {}\ntype T int\nfunc (T) m() {}"}, chunks[2])
	assert.Equal(t, chunk{decl: false, src: ";func() {}()"}, chunks[3])

	assert.Nil(t, splitChunks("  \n"))
	assert.Equal(t, []chunk{{src: "x := \"open"}}, splitChunks("x := \"open"))
}

func TestInterpreter_Cancellation(t *testing.T) {
	env := newEnv(t, "", nil)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := env.Execute(ctx, "import \"time\"\ntime.Sleep(2 * time.Second)")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestInterpreter_CancelledBeforeStart(t *testing.T) {
	env := newEnv(t, "", nil)
	ctx, cancel := context.WithCancelCause(context.Background())
	cause := errors.New("tree aborted")
	cancel(cause)

	_, err := env.Execute(ctx, `fmt.Println("never")`)
	assert.ErrorIs(t, err, cause)
}

func TestInterpreter_Closed(t *testing.T) {
	env, err := NewInterpreter().NewEnvironment(context.Background(), "", nil)
	require.NoError(t, err)
	require.NoError(t, env.Close())

	_, err = env.Execute(context.Background(), "x := 1")
	assert.ErrorIs(t, err, ErrEnvironmentClosed)
}

func TestInterpreter_EnvironmentsAreIsolated(t *testing.T) {
	a := newEnv(t, "a", nil)
	b := newEnv(t, "b", nil)

	_, err := a.Execute(context.Background(), "secret := 1")
	require.NoError(t, err)

	res, err := b.Execute(context.Background(), "fmt.Println(secret)")
	require.NoError(t, err)
	assert.True(t, res.Faulted())
}

func TestProbeSnippet(t *testing.T) {
	t.Run("short context is shown in full", func(t *testing.T) {
		env := newEnv(t, "tiny", nil)
		res, err := env.Execute(context.Background(), ProbeSnippet)
		require.NoError(t, err)
		assert.Equal(t, "Context type: string\nContext length: 4\nContext: tiny\n", res.Output)
	})

	t.Run("long context shows head and tail", func(t *testing.T) {
		input := strings.Repeat("a", 500) + strings.Repeat("m", 100) + strings.Repeat("z", 500)
		env := newEnv(t, input, nil)
		res, err := env.Execute(context.Background(), ProbeSnippet)
		require.NoError(t, err)
		assert.Contains(t, res.Output, "Context length: 1100\n")
		assert.Contains(t, res.Output, "First 500 characters of context: "+strings.Repeat("a", 500)+"\n")
		assert.Contains(t, res.Output, "Last 500 characters of context: "+strings.Repeat("z", 500)+"\n")
		assert.NotContains(t, res.Output, "m")
	})
}

func TestSplitImports(t *testing.T) {
	specs, body := splitImports("package main\nimport \"os\"\nimport (\n\t\"io\"\n\tj \"encoding/json\" // codec\n)\nx := 1")
	assert.Equal(t, []string{`"os"`, `"io"`, `j "encoding/json"`}, specs)
	assert.Equal(t, "x := 1", body)
}

func ExampleInterpreter() {
	env, _ := NewInterpreter().NewEnvironment(context.Background(), "the quick brown fox", nil)
	defer env.Close()

	res, _ := env.Execute(context.Background(), `rlm.Final(len(strings.Fields(context)))`)
	fmt.Println(res.Final.Value)
	// Output: 4
}
