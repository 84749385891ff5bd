// Package env provides a few helpers to load in environment variables
// with defaults
package env

import (
	"encoding"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	multierror "github.com/hashicorp/go-multierror"
)

type Var struct {
	env     string
	envType string
	def     interface{}
}

func (f Var) String() string {
	return fmt.Sprintf("%-24s %-8s (%v)", f.env, f.envType, f.def)
}

func (f Var) Name() string {
	return f.env
}

// Loader reads variables into fields, collecting every parse failure so they
// can be reported together.
type Loader struct {
	vars map[string]Var // a map of all the vars this loader has been asked to load
	err  error
}

func NewLoader() *Loader {
	return &Loader{
		vars: make(map[string]Var),
	}
}

func (l *Loader) Err() error {
	return l.err
}

// String inspects the system env var given by env. If it is present it will
// set the contents of fld.
func (l *Loader) String(fld *string, env string) {
	l.addVar(*fld, env, "string")
	val, ok := os.LookupEnv(env)
	if !ok {
		return
	}
	*fld = val
}

// Bool inspects the system env var given by env. If it is present
// it will use the truthy or falsy strings as per ParseBool to set
// the contents of fld. An empty value leaves fld unaltered.
// If the parse fails the content of fld is left unaltered and the
// loader multi error added to.
func (l *Loader) Bool(fld *bool, env string) {
	l.addVar(*fld, env, "bool")
	val, ok := os.LookupEnv(env)
	if !ok || val == "" {
		return
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		l.err = multierror.Append(l.err, fmt.Errorf("env var: %q caused an error: %w", env, err))
		return
	}
	*fld = b
}

// Text inspects the system env var given by env. If it is present and not
// empty it is parsed with the field's UnmarshalText.
// If the parse fails the loader multi error added to.
func (l *Loader) Text(fld TextField, env string) {
	def, _ := fld.MarshalText()
	l.addVar(string(def), env, "text")
	val, ok := os.LookupEnv(env)
	if !ok || val == "" {
		return
	}
	if err := fld.UnmarshalText([]byte(val)); err != nil {
		l.err = multierror.Append(l.err, fmt.Errorf("env var: %q caused an error: %w", env, err))
	}
}

// TextField is a pointer to a value with a text representation, such as a
// recorder mode or cassette format.
type TextField interface {
	encoding.TextMarshaler
	encoding.TextUnmarshaler
}

type Vars []Var

// Sort the vars v in place alphabetically
func (v Vars) Sort() {
	sort.Slice(v, func(i, j int) bool {
		return v[i].env < v[j].env
	})
}

func (l *Loader) VarsUsed() Vars {
	vars := make(Vars, 0, len(l.vars))
	const maxDefaultLen = 80
	for _, v := range l.vars {
		if def, ok := v.def.(string); ok {
			def = strings.Replace(def, "\n", "\\n", -1)
			if len(def) > maxDefaultLen {
				def = def[:maxDefaultLen] + " ..."
			}
			v.def = def
		}
		vars = append(vars, v)
	}
	vars.Sort()
	return vars
}

func (l *Loader) addVar(def interface{}, env, envType string) {
	if _, ok := l.vars[env]; ok {
		panic("duplicate environment variable " + env)
	}
	l.vars[env] = Var{
		env:     env,
		envType: envType,
		def:     def,
	}
}
