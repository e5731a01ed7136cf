// Package app defines the contract between application options and the
// app bootstrap.
package app

import "github.com/spf13/pflag"

// NamedFlagSets groups flag sets by section name, preserving order.
type NamedFlagSets struct {
	// Order is the order in which flag sets were added.
	Order []string
	// FlagSets maps section name to flag set.
	FlagSets map[string]*pflag.FlagSet
}

// FlagSet returns the flag set for the given name, creating it on first
// use and recording the order.
func (nfs *NamedFlagSets) FlagSet(name string) *pflag.FlagSet {
	if nfs.FlagSets == nil {
		nfs.FlagSets = map[string]*pflag.FlagSet{}
	}
	if _, ok := nfs.FlagSets[name]; !ok {
		nfs.FlagSets[name] = pflag.NewFlagSet(name, pflag.ExitOnError)
		nfs.Order = append(nfs.Order, name)
	}
	return nfs.FlagSets[name]
}

// CliOptions is the interface for aggregated CLI options.
// Any options struct implementing this interface can be used with App.
type CliOptions interface {
	// Flags returns the grouped flag sets.
	Flags() NamedFlagSets
	// Validate validates the options.
	Validate() error
	// Complete completes the options with defaults.
	Complete() error
}
