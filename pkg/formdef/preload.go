package formdef

import (
	"fmt"
	"time"

	"github.com/alecthomas/participle/v2"
	"github.com/google/uuid"

	"github.com/gltn/stdm/pkg/form"
)

// A preload expression is a literal or a call to one of the built-in
// functions:
//
//	today()   the current date at midnight UTC
//	now()     the current time
//	uuid()    a random UUID string
//	empty()   no value
//	"text"  42  2.5  true  false
type preloadExpr struct {
	Bool   *boolean  `  @("true" | "false")`
	Call   *callExpr `| @@`
	String *string   `| @String`
	Float  *float64  `| @Float`
	Int    *int64    `| @Int`
}

type callExpr struct {
	Name string `@Ident "(" ")"`
}

type boolean bool

func (b *boolean) Capture(values []string) error {
	*b = values[0] == "true"
	return nil
}

var preloadParser = participle.MustBuild[preloadExpr](participle.Unquote("String"))

var preloadFuncs = map[string]func(now func() time.Time) any{
	"today": func(now func() time.Time) any {
		y, m, d := now().Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	},
	"now":   func(now func() time.Time) any { return now() },
	"uuid":  func(func() time.Time) any { return uuid.NewString() },
	"empty": func(func() time.Time) any { return nil },
}

// PreloadFunctions lists the functions preload expressions may call.
func PreloadFunctions() []string {
	return []string{"empty", "now", "today", "uuid"}
}

// compilePreload parses src. Function calls are evaluated each time the
// returned preload runs.
func compilePreload(src string, now func() time.Time) (form.Preload, error) {
	expr, err := preloadParser.ParseString("", src)
	if err != nil {
		return nil, fmt.Errorf("parse preload %q: %w", src, err)
	}
	switch {
	case expr.Bool != nil:
		v := bool(*expr.Bool)
		return func() any { return v }, nil
	case expr.Call != nil:
		fn, ok := preloadFuncs[expr.Call.Name]
		if !ok {
			return nil, fmt.Errorf("parse preload %q: unknown function %s()", src, expr.Call.Name)
		}
		return func() any { return fn(now) }, nil
	case expr.String != nil:
		v := *expr.String
		return func() any { return v }, nil
	case expr.Float != nil:
		v := *expr.Float
		return func() any { return v }, nil
	case expr.Int != nil:
		v := *expr.Int
		return func() any { return v }, nil
	}
	return nil, fmt.Errorf("parse preload %q: empty expression", src)
}
