package lab

import (
	"context"
	"fmt"
	"os"
)

// EnvVar is one propagated variable.
type EnvVar struct {
	Name  string
	Value string
}

// Snapshot captures, in allow-list order, the variables that are set and
// non-empty. Unset names are omitted so the session keeps whatever it had.
func Snapshot(names []string, lookup func(string) (string, bool)) []EnvVar {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	vars := make([]EnvVar, 0, len(names))
	for _, name := range names {
		if v, ok := lookup(name); ok && v != "" {
			vars = append(vars, EnvVar{Name: name, Value: v})
		}
	}
	return vars
}

// Propagate writes vars into the server's global environment. The server is
// dedicated to one session, so global scope is session scope, and windows
// created afterwards inherit the values.
func Propagate(ctx context.Context, mux Mux, vars []EnvVar) error {
	for _, v := range vars {
		if err := mux.SetGlobalEnvironment(ctx, v.Name, v.Value); err != nil {
			return fmt.Errorf("propagating %s: %w", v.Name, err)
		}
	}
	return nil
}
